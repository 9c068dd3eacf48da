package handlers

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/schema"
	"github.com/samber/lo"

	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/session"
)

var ErrDifficultyRequired = errors.New(
	"either difficulty or rows, cols and mine_count are required",
)

// CreateNewGameDTO selects the board either by preset/seed or by explicit size.
type CreateNewGameDTO struct {
	Difficulty    string `schema:"difficulty"`
	Rows          int    `schema:"rows"`
	Cols          int    `schema:"cols"`
	MineCount     int    `schema:"mine_count"`
	QuestionMarks bool   `schema:"question_marks"`
}

func ParseCreateNewGameDTO(dec *schema.Decoder, src url.Values) (CreateNewGameDTO, error) {
	var dto CreateNewGameDTO
	err := dec.Decode(&dto, src)
	return dto, err
}

func (dto CreateNewGameDTO) ResolveDifficulty() (mines.Difficulty, error) {
	if dto.Difficulty != "" {
		return mines.ParseDifficulty(dto.Difficulty)
	}
	if dto.Rows == 0 && dto.Cols == 0 && dto.MineCount == 0 {
		return mines.Difficulty{}, ErrDifficultyRequired
	}
	d := mines.Difficulty{Rows: dto.Rows, Cols: dto.Cols, MineCount: dto.MineCount}
	return d, d.Validate()
}

type Move string

const (
	Open  Move = "open"
	Flag  Move = "flag"
	Chord Move = "chord"
)

type MoveDTO struct {
	Move Move `schema:"move,required"`
	Row  int  `schema:"row,required"`
	Col  int  `schema:"col,required"`
}

func ParseMoveDTO(dec *schema.Decoder, src url.Values) (MoveDTO, error) {
	var dto MoveDTO
	if err := dec.Decode(&dto, src); err != nil {
		return dto, err
	}
	switch dto.Move {
	case Open, Flag, Chord:
		return dto, nil
	}
	return dto, fmt.Errorf("unknown move %q", dto.Move)
}

func (dto MoveDTO) Apply(g *mines.Game) {
	switch dto.Move {
	case Open:
		g.Reveal(dto.Row, dto.Col)
	case Flag:
		g.ToggleFlag(dto.Row, dto.Col)
	case Chord:
		g.ChordReveal(dto.Row, dto.Col)
	}
}

type GameDTO struct {
	ID             string     `json:"id"`
	Difficulty     string     `json:"difficulty"`
	Rows           int        `json:"rows"`
	Cols           int        `json:"cols"`
	MineCount      int        `json:"mine_count"`
	MinesRemaining int        `json:"mines_remaining"`
	QuestionMarks  bool       `json:"question_marks"`
	State          string     `json:"state"`
	StartedAt      int64      `json:"started_at"`
	ElapsedMs      int64      `json:"elapsed_ms"`
	Grid           [][]string `json:"grid"`
}

// grid renders the board as the player sees it. Covered cells are blank, so
// mine positions are only visible once the round is over.
func grid(g *mines.Game) [][]string {
	b := g.Board()
	if b == nil {
		return [][]string{}
	}
	glyphs := make([]string, 0, b.Rows()*b.Cols())
	for row := range b.Rows() {
		for col := range b.Cols() {
			glyphs = append(glyphs, b.Cell(row, col).Glyph())
		}
	}
	return lo.Chunk(glyphs, b.Cols())
}

// NewGameDTO must be called while holding the session, see
// [session.Registry.View].
func NewGameDTO(s *session.Session) GameDTO {
	g := s.Game
	d := g.Difficulty()
	return GameDTO{
		ID:             s.ID,
		Difficulty:     d.Name(),
		Rows:           d.Rows,
		Cols:           d.Cols,
		MineCount:      d.MineCount,
		MinesRemaining: g.MinesRemaining(),
		QuestionMarks:  g.QuestionMarks(),
		State:          g.State().String(),
		StartedAt:      g.Clock().Start.UnixMilli(),
		ElapsedMs:      g.Elapsed().Milliseconds(),
		Grid:           grid(g),
	}
}
