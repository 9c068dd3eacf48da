package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/repository"
)

type PlayerStore interface {
	CreatePlayer(ctx context.Context, params repository.CreatePlayerParams) (*repository.Player, error)
	FetchPlayer(ctx context.Context, username string) (*repository.Player, error)
}

type Auth struct {
	log     logrus.FieldLogger
	repo    PlayerStore
	cookies *config.Cookies
	cost    int
}

func NewAuth(log logrus.FieldLogger, repo PlayerStore, cookies *config.Cookies) *Auth {
	return &Auth{
		log:     log,
		repo:    repo,
		cookies: cookies,
		cost:    bcrypt.DefaultCost,
	}
}

type PlayerInfo struct {
	PlayerId int64  `json:"player_id"`
	Username string `json:"username"`
}

type Status struct {
	LoggedIn bool        `json:"logged_in"`
	Player   *PlayerInfo `json:"player,omitempty"`
}

const (
	maxUsernameLength = 32
	maxPasswordLength = 72
)

var (
	ErrBadAuthBody        = errors.New("request body must contain url-encoded username and password")
	ErrBadUsernameTooLong = errors.New("username too long")
	ErrBadPasswordTooLong = errors.New("password too long")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

func (a Auth) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r.Context())
	if !ok {
		a.cookies.Clear(w)
		sendJSONOrLog(w, a.log, Status{LoggedIn: false})
		return
	}
	if err := a.cookies.Refresh(w, claims.PlayerId, claims.Username); err != nil {
		internalError(w, a.log, "unable to refresh cookies", err)
		return
	}
	sendJSONOrLog(w, a.log, Status{
		LoggedIn: true,
		Player:   &PlayerInfo{claims.PlayerId, claims.Username},
	})
}

type credentials struct {
	username string
	password []byte
}

func (a Auth) parseCredentials(w http.ResponseWriter, r *http.Request) (*credentials, bool) {
	if err := r.ParseForm(); err != nil {
		sendError(w, a.log, http.StatusBadRequest, ErrBadAuthBody)
		return nil, false
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		sendError(w, a.log, http.StatusBadRequest, ErrBadAuthBody)
		return nil, false
	}
	if len(username) > maxUsernameLength {
		sendError(w, a.log, http.StatusBadRequest, ErrBadUsernameTooLong)
		return nil, false
	}
	if len(password) > maxPasswordLength {
		sendError(w, a.log, http.StatusBadRequest, ErrBadPasswordTooLong)
		return nil, false
	}
	return &credentials{username, []byte(password)}, true
}

func (a Auth) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := a.parseCredentials(w, r)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword(creds.password, a.cost)
	if err != nil {
		internalError(w, a.log, "unable to hash password", err)
		return
	}

	player, err := a.repo.CreatePlayer(r.Context(), repository.CreatePlayerParams{
		Username:     creds.username,
		PasswordHash: hash,
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		sendError(w, a.log, http.StatusConflict, ErrUsernameTaken)
		return
	}
	if err != nil {
		internalError(w, a.log, "unable to insert player", err)
		return
	}

	if err := a.cookies.Refresh(w, player.PlayerID, player.Username); err != nil {
		internalError(w, a.log, "unable to create a jwt token", err)
		return
	}
	a.log.WithField("username", player.Username).Info("registered player")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	sendJSONOrLog(w, a.log, Status{
		LoggedIn: true,
		Player:   &PlayerInfo{player.PlayerID, player.Username},
	})
}

func (a Auth) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := a.parseCredentials(w, r)
	if !ok {
		return
	}

	player, err := a.repo.FetchPlayer(r.Context(), creds.username)
	if errors.Is(err, pgx.ErrNoRows) {
		sendError(w, a.log, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}
	if err != nil {
		internalError(w, a.log, "unable to fetch player", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword(player.PasswordHash, creds.password); err != nil {
		sendError(w, a.log, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}

	if err := a.cookies.Refresh(w, player.PlayerID, player.Username); err != nil {
		internalError(w, a.log, "unable to create a jwt token", err)
		return
	}
	sendJSONOrLog(w, a.log, Status{
		LoggedIn: true,
		Player:   &PlayerInfo{player.PlayerID, player.Username},
	})
}

func (a Auth) Logout(w http.ResponseWriter, r *http.Request) {
	a.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
