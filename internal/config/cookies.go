package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Cookies splits a JWT between a readable "auth" cookie (header and payload)
// and an HttpOnly "sign" cookie holding the signature.
type Cookies struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
	jwt      *JWT
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToUpper(s) {
	case "DEFAULT":
		return http.SameSiteDefaultMode, nil
	case "LAX":
		return http.SameSiteLaxMode, nil
	case "STRICT":
		return http.SameSiteStrictMode, nil
	case "NONE":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("unknown COOKIES_SAMESITE value %q", s)
}

func NewCookies(jwt *JWT) (*Cookies, error) {
	domain, ok := os.LookupEnv("COOKIES_DOMAIN")
	if !ok {
		return nil, fmt.Errorf("COOKIES_DOMAIN env variable is not set")
	}

	secureStr, ok := os.LookupEnv("COOKIES_SECURE")
	if !ok {
		return nil, fmt.Errorf("COOKIES_SECURE env variable is not set")
	}

	sameSiteStr, ok := os.LookupEnv("COOKIES_SAMESITE")
	if !ok {
		return nil, fmt.Errorf("COOKIES_SAMESITE env variable is not set")
	}
	sameSite, err := parseSameSite(sameSiteStr)
	if err != nil {
		return nil, err
	}

	return NewCookiesWith(domain, secureStr != "0", sameSite, jwt), nil
}

func NewCookiesWith(domain string, secure bool, sameSite http.SameSite, jwt *JWT) *Cookies {
	return &Cookies{
		Domain:   domain,
		Secure:   secure,
		SameSite: sameSite,
		jwt:      jwt,
	}
}

func (c *Cookies) cookie(name, value string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     "/",
		Value:    value,
		HttpOnly: httpOnly,
		Domain:   c.Domain,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

func (c *Cookies) Clear(w http.ResponseWriter) {
	for _, cookie := range []*http.Cookie{
		c.cookie("auth", "delete", false),
		c.cookie("sign", "delete", true),
	} {
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

// Refresh signs a fresh token for the player and stores it in the response.
func (c *Cookies) Refresh(w http.ResponseWriter, playerId int64, username string) error {
	token, err := c.jwt.Sign(c.jwt.NewPlayerClaims(playerId, username))
	if err != nil {
		return fmt.Errorf("unable to sign token: %w", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("malformed JWT token generated")
	}
	header, payload, signature := parts[0], parts[1], parts[2]
	expires := time.Now().Add(c.jwt.Lifetime)
	for _, cookie := range []*http.Cookie{
		c.cookie("auth", header+"."+payload, false),
		c.cookie("sign", signature, true),
	} {
		cookie.Expires = expires
		http.SetCookie(w, cookie)
	}
	return nil
}

func (c *Cookies) ParsePlayerClaims(r *http.Request) (*PlayerClaims, error) {
	authCookie, err := r.Cookie("auth")
	if err != nil {
		return nil, err
	}
	signCookie, err := r.Cookie("sign")
	if err != nil {
		return nil, err
	}
	return c.jwt.ParsePlayerClaims(authCookie.Value + "." + signCookie.Value)
}
