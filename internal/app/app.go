// Package app wires configuration, storage and handlers into the HTTP
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/database"
	"github.com/vancomm/minesweeper/internal/handlers"
	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/repository"
	"github.com/vancomm/minesweeper/internal/session"
	"github.com/vancomm/minesweeper/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	limiterInterval = time.Minute
)

type App struct {
	log    *logrus.Logger
	router *http.ServeMux
}

func New(log *logrus.Logger) *App {
	return &App{
		log:    log,
		router: http.NewServeMux(),
	}
}

// openSessions returns the registry backed by the sqlite file at path, or an
// in-memory one when path is empty. closeFn releases the file.
func (a *App) openSessions(
	path string, opts ...session.Option,
) (sessions *session.Registry, closeFn func() error, err error) {
	opts = append([]session.Option{session.WithLogger(a.log)}, opts...)
	if path == "" {
		a.log.Warn("SESSION_DB_PATH is not set, sessions will not survive restarts")
		return session.NewRegistry(nil, opts...), func() error { return nil }, nil
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(db, "sessions")
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	sessions = session.NewRegistry(st, opts...)
	n, err := sessions.Restore()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("unable to restore sessions: %w", err)
	}
	a.log.WithField("count", n).Info("restored sessions")
	return sessions, db.Close, nil
}

func (a *App) Start(ctx context.Context) error {
	jwt, err := config.NewJWT()
	if err != nil {
		return err
	}
	cookies, err := config.NewCookies(jwt)
	if err != nil {
		return err
	}
	ws, err := config.NewWebSocket()
	if err != nil {
		return err
	}
	sessCfg, err := config.NewSessions()
	if err != nil {
		return err
	}
	rl, err := config.NewRateLimit()
	if err != nil {
		return err
	}

	pool, migrator, err := database.ConnectAndMigrate(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to db: %w", err)
	}
	defer pool.Close()
	if version, dirty, err := migrator.Version(); err == nil {
		a.log.WithFields(logrus.Fields{
			"version": version,
			"dirty":   dirty,
		}).Info("database migrated")
	}
	migrator.Close()

	repo := repository.New(pool)
	sessions, closeSessions, err := a.openSessions(
		sessCfg.DBPath, session.WithFinishFunc(handlers.RecordFinished(repo)),
	)
	if err != nil {
		return err
	}
	defer closeSessions()

	limiters := middleware.NewLimiters(rl.Limit, rl.Burst)

	a.loadRoutes(
		handlers.NewGameHandler(a.log, sessions, ws),
		handlers.NewAuth(a.log, repo, cookies),
		handlers.NewHighscores(a.log, repo),
	)

	server := &http.Server{
		Addr:    config.Addr(),
		Handler: a.handler(cookies, limiters, rl.TrustedProxies...),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", server.Addr).Info("server listening")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("shutting down")
		return server.Shutdown(ctx)
	})
	g.Go(func() error {
		return sessions.Run(gctx, sessCfg.SweepInterval, sessCfg.MaxIdle)
	})
	g.Go(func() error {
		return limiters.Run(gctx, limiterInterval, rl.TTL)
	})
	return g.Wait()
}
