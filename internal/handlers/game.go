package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
	"github.com/vancomm/minesweeper/internal/session"
)

type GameHandler struct {
	log      logrus.FieldLogger
	sessions *session.Registry
	ws       *config.WebSocket
	dec      *schema.Decoder
}

func NewGameHandler(
	log logrus.FieldLogger,
	sessions *session.Registry,
	ws *config.WebSocket,
) *GameHandler {
	return &GameHandler{
		log:      log,
		sessions: sessions,
		ws:       ws,
		dec:      newDecoder(),
	}
}

// RecordStore persists finished rounds.
type RecordStore interface {
	CreateGameRecord(
		ctx context.Context, params repository.CreateGameRecordParams,
	) (*repository.GameRecord, error)
}

// RecordFinished returns a [session.FinishFunc] that writes a game record
// for every finished round.
func RecordFinished(records RecordStore) session.FinishFunc {
	return func(ctx context.Context, s session.Summary) error {
		_, err := records.CreateGameRecord(
			context.WithoutCancel(ctx),
			repository.CreateGameRecordParams{
				SessionID: s.SessionID,
				PlayerID:  s.PlayerID,
				Rows:      s.Difficulty.Rows,
				Cols:      s.Difficulty.Cols,
				MineCount: s.Difficulty.MineCount,
				Won:       s.Won,
				StartedAt: s.StartedAt,
				EndedAt:   s.EndedAt,
			},
		)
		return err
	}
}

func (g GameHandler) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		sendError(w, g.log, http.StatusNotFound, err)
	case errors.Is(err, mines.ErrAllocation):
		sendError(w, g.log, http.StatusBadRequest, err)
	default:
		internalError(w, g.log, "unable to update session", err)
	}
}

func (g GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseCreateNewGameDTO(g.dec, r.URL.Query())
	if err != nil {
		sendError(w, g.log, http.StatusBadRequest, err)
		return
	}
	d, err := dto.ResolveDifficulty()
	if err != nil {
		sendError(w, g.log, http.StatusBadRequest, err)
		return
	}

	var (
		playerID *int64
		opts     []mines.Option
	)
	if claims, ok := middleware.PlayerClaims(r.Context()); ok {
		playerID = &claims.PlayerId
	}
	if dto.QuestionMarks {
		opts = append(opts, mines.WithQuestionMarks())
	}

	s, err := g.sessions.Create(d, playerID, opts...)
	if err != nil {
		g.sessionError(w, err)
		return
	}
	g.log.WithFields(logrus.Fields{
		"session":    s.ID,
		"difficulty": d,
		"player":     playerID,
	}).Debug("created game")

	var view GameDTO
	err = g.sessions.View(s.ID, func(s *session.Session) error {
		view = NewGameDTO(s)
		return nil
	})
	if err != nil {
		g.sessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	sendJSONOrLog(w, g.log, view)
}

// Fetch answers with the current game. Reading advances and stores the game
// clock, so it also counts as activity for the idle sweep.
func (g GameHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	g.update(w, r, func(*mines.Game) error { return nil })
}

// update applies fn to the session named in the path and answers with the
// resulting game.
func (g GameHandler) update(
	w http.ResponseWriter, r *http.Request, fn func(*mines.Game) error,
) {
	var dto GameDTO
	err := g.sessions.Update(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		if err := fn(s.Game); err != nil {
			return err
		}
		s.Game.RevealAllMines()
		dto = NewGameDTO(s)
		return nil
	})
	if err != nil {
		g.sessionError(w, err)
		return
	}
	sendJSONOrLog(w, g.log, dto)
}

func (g GameHandler) MakeAMove(w http.ResponseWriter, r *http.Request) {
	move, err := ParseMoveDTO(g.dec, r.URL.Query())
	if err != nil {
		sendError(w, g.log, http.StatusBadRequest, err)
		return
	}
	g.update(w, r, func(game *mines.Game) error {
		move.Apply(game)
		return nil
	})
}

// Restart starts a new round in the same session. The difficulty may be
// changed with the same parameters as [GameHandler.NewGame].
func (g GameHandler) Restart(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseCreateNewGameDTO(g.dec, r.URL.Query())
	if err != nil {
		sendError(w, g.log, http.StatusBadRequest, err)
		return
	}
	var d *mines.Difficulty
	if resolved, err := dto.ResolveDifficulty(); err == nil {
		d = &resolved
	} else if !errors.Is(err, ErrDifficultyRequired) {
		sendError(w, g.log, http.StatusBadRequest, err)
		return
	}

	g.update(w, r, func(game *mines.Game) error {
		next := game.Difficulty()
		if d != nil {
			next = *d
		}
		if game.Restart(next).State() == mines.StateInvalid {
			return game.Err()
		}
		return nil
	})
}

func (g GameHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	g.update(w, r, func(game *mines.Game) error {
		game.Forfeit()
		return nil
	})
}

func (g GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := g.sessions.Delete(r.PathValue("id")); err != nil {
		g.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
