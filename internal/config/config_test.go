package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func generateKeys(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privatePEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return
}

func TestPort(t *testing.T) {
	t.Setenv("APP_PORT", "")
	assert.Equal(t, "8080", Port())
	t.Setenv("APP_PORT", "9000")
	assert.Equal(t, ":9000", Addr())
}

func TestCorsOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "")
	assert.Empty(t, CorsOrigins())
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, CorsOrigins())
}

func TestDevelopment(t *testing.T) {
	t.Setenv("DEVELOPMENT", "1")
	assert.True(t, Development())
	assert.Equal(t, logrus.DebugLevel, LogLevel())
	t.Setenv("DEVELOPMENT", "0")
	assert.False(t, Development())
	assert.Equal(t, logrus.InfoLevel, LogLevel())
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, logrus.WarnLevel, LogLevel())
}

func TestSetupLoggingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	t.Setenv("DEVELOPMENT", "0")
	t.Setenv("LOG_FILE", path)

	log := logrus.New()
	log.SetOutput(io.Discard)
	require.NoError(t, SetupLogging(log))
	log.WithField("game", "abc").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"game":"abc"`)
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MINESWEEPER_TEST_VAR=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MINESWEEPER_TEST_VAR") })

	require.NoError(t, Load(path))
	assert.Equal(t, "from-file", os.Getenv("MINESWEEPER_TEST_VAR"))

	assert.NoError(t, Load(filepath.Join(t.TempDir(), "missing.env")))
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://direct")
	dbURL, err := DatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://direct", dbURL)

	os.Unsetenv("DATABASE_URL")
	t.Setenv("POSTGRES_USER", "mines")
	t.Setenv("POSTGRES_PASSWORD", "p@ss word")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_DB", "minesweeper")
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("POSTGRES_SSLMODE", "require")

	dbURL, err = DatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgresql://mines:p%40ss%20word@db:5432/minesweeper?sslmode=require", dbURL)

	cfg, err := NewPgxpoolConfig()
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.ConnConfig.Host)
	assert.Equal(t, "p@ss word", cfg.ConnConfig.Password)

	os.Unsetenv("POSTGRES_HOST")
	_, err = DatabaseURL()
	assert.ErrorContains(t, err, "POSTGRES_HOST")
}

func TestPasswordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("secret\n"), 0o600))
	t.Setenv("POSTGRES_PASSWORD_FILE", path)
	os.Unsetenv("POSTGRES_PASSWORD")

	password, err := loadPassword()
	require.NoError(t, err)
	assert.Equal(t, "secret", password)
}

func TestSessionsAndRateLimit(t *testing.T) {
	t.Setenv("SESSION_MAX_IDLE", "2h")
	t.Setenv("SESSION_SWEEP_INTERVAL", "")
	t.Setenv("SESSION_DB_PATH", "/tmp/sessions.db")
	s, err := NewSessions()
	require.NoError(t, err)
	assert.Equal(t, &Sessions{DBPath: "/tmp/sessions.db", MaxIdle: 2 * time.Hour, SweepInterval: 5 * time.Minute}, s)

	t.Setenv("SESSION_MAX_IDLE", "forever")
	_, err = NewSessions()
	assert.ErrorContains(t, err, "SESSION_MAX_IDLE")

	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "")
	rl, err := NewRateLimit()
	require.NoError(t, err)
	assert.Equal(t, rate.Limit(2.5), rl.Limit)
	assert.Equal(t, 40, rl.Burst)
	assert.Empty(t, rl.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7,::ffff:172.16.0.1, fd00::1/64")
	rl, err = NewRateLimit()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
		netip.MustParsePrefix("172.16.0.1/32"),
		netip.MustParsePrefix("fd00::/64"),
	}, rl.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")
	_, err = NewRateLimit()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
	t.Setenv("TRUSTED_PROXIES", "")

	t.Setenv("RATE_LIMIT_BURST", "0")
	_, err = NewRateLimit()
	assert.Error(t, err)
}

func TestJWT(t *testing.T) {
	privatePEM, publicPEM := generateKeys(t)
	t.Setenv("JWT_PRIVATE_KEY", string(privatePEM))
	keyFile := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(keyFile, publicPEM, 0o600))
	os.Unsetenv("JWT_PUBLIC_KEY")
	t.Setenv("JWT_PUBLIC_KEY_FILE", keyFile)
	t.Setenv("JWT_LIFETIME", "1h")

	j, err := NewJWT()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, j.Lifetime)

	token, err := j.Sign(j.NewPlayerClaims(42, "alice"))
	require.NoError(t, err)
	claims, err := j.ParsePlayerClaims(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.PlayerId)
	assert.Equal(t, "alice", claims.Username)

	_, err = j.ParsePlayerClaims(token + "x")
	assert.Error(t, err)

	expired := j.NewPlayerClaims(1, "bob")
	expired.ExpiresAt.Time = time.Now().Add(-time.Minute)
	token, err = j.Sign(expired)
	require.NoError(t, err)
	_, err = j.ParsePlayerClaims(token)
	assert.Error(t, err)
}

func TestCookies(t *testing.T) {
	privatePEM, publicPEM := generateKeys(t)
	j, err := NewJWTFromPEM(privatePEM, publicPEM, time.Hour)
	require.NoError(t, err)

	t.Setenv("COOKIES_DOMAIN", "example.com")
	t.Setenv("COOKIES_SECURE", "1")
	t.Setenv("COOKIES_SAMESITE", "lax")
	cookies, err := NewCookies(j)
	require.NoError(t, err)
	assert.Equal(t, http.SameSiteLaxMode, cookies.SameSite)
	assert.True(t, cookies.Secure)

	w := httptest.NewRecorder()
	require.NoError(t, cookies.Refresh(w, 5, "carol"))
	set := w.Result().Cookies()
	require.Len(t, set, 2)
	assert.Equal(t, "auth", set[0].Name)
	assert.False(t, set[0].HttpOnly)
	assert.Equal(t, "sign", set[1].Name)
	assert.True(t, set[1].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range set {
		r.AddCookie(c)
	}
	claims, err := cookies.ParsePlayerClaims(r)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.PlayerId)
	assert.Equal(t, "carol", claims.Username)

	w = httptest.NewRecorder()
	cookies.Clear(w)
	for _, c := range w.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}

	_, err = cookies.ParsePlayerClaims(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, http.ErrNoCookie)

	t.Setenv("COOKIES_SAMESITE", "sideways")
	_, err = NewCookies(j)
	assert.Error(t, err)
}
