package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
)

type HighscoreStore interface {
	GetHighscores(ctx context.Context, filter repository.HighscoreFilter) ([]repository.Highscore, error)
}

type Highscores struct {
	log  logrus.FieldLogger
	repo HighscoreStore
	dec  *schema.Decoder
}

func NewHighscores(log logrus.FieldLogger, repo HighscoreStore) *Highscores {
	return &Highscores{log: log, repo: repo, dec: newDecoder()}
}

type HighscoresDTO struct {
	Username   string `schema:"username"`
	Difficulty string `schema:"difficulty"`
	Limit      int    `schema:"limit"`
}

func (dto HighscoresDTO) Filter() (repository.HighscoreFilter, error) {
	filter := repository.HighscoreFilter{Limit: dto.Limit}
	if dto.Username != "" {
		filter.Username = &dto.Username
	}
	if dto.Difficulty != "" {
		d, err := mines.ParseDifficulty(dto.Difficulty)
		if err != nil {
			return filter, err
		}
		filter.Difficulty = &d
	}
	return filter, nil
}

func (h Highscores) parseFilter(w http.ResponseWriter, r *http.Request) (repository.HighscoreFilter, bool) {
	var dto HighscoresDTO
	if err := h.dec.Decode(&dto, r.URL.Query()); err != nil {
		sendError(w, h.log, http.StatusBadRequest, err)
		return repository.HighscoreFilter{}, false
	}
	filter, err := dto.Filter()
	if err != nil {
		sendError(w, h.log, http.StatusBadRequest, err)
		return filter, false
	}
	return filter, true
}

func (h Highscores) send(w http.ResponseWriter, r *http.Request, filter repository.HighscoreFilter) {
	scores, err := h.repo.GetHighscores(r.Context(), filter)
	if err != nil {
		internalError(w, h.log, "unable to fetch highscores", err)
		return
	}
	if scores == nil {
		scores = []repository.Highscore{}
	}
	sendJSONOrLog(w, h.log, scores)
}

func (h Highscores) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	h.send(w, r, filter)
}

// Own lists the highscores of the logged in player.
func (h Highscores) Own(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	filter.Username = &claims.Username
	h.send(w, r, filter)
}
