package mines

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

type snapshot struct {
	Difficulty    Difficulty
	Revealed      int
	Cells         []Cell
	Mines         int
	State         State
	Clock         Clock
	QuestionMarks bool
}

func (g *Game) Bytes() ([]byte, error) {
	s := snapshot{
		Mines:         g.mines,
		State:         g.state,
		Clock:         g.clock,
		QuestionMarks: g.questionMarks,
	}
	if g.board != nil {
		s.Difficulty = g.board.difficulty
		s.Revealed = g.board.revealed
		s.Cells = g.board.cells
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGame restores a game written by [Game.Bytes]. Options apply as in
// [NewGame]; the question mark setting is taken from the snapshot.
func DecodeGame(buf []byte, opts ...Option) (*Game, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&s); err != nil {
		return nil, err
	}

	g := newGame(opts)
	g.mines = s.Mines
	g.state = s.State
	g.clock = s.Clock
	g.questionMarks = s.QuestionMarks
	if s.State == StateInvalid && len(s.Cells) == 0 {
		return g, nil
	}

	if err := s.Difficulty.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game snapshot: %w", err)
	}
	if len(s.Cells) != s.Difficulty.CellCount() {
		return nil, fmt.Errorf(
			"invalid game snapshot: %d cells for %s",
			len(s.Cells), s.Difficulty,
		)
	}
	if err := checkRevealed(s); err != nil {
		return nil, fmt.Errorf("invalid game snapshot: %w", err)
	}
	g.board = &Board{
		difficulty: s.Difficulty,
		revealed:   s.Revealed,
		cells:      s.Cells,
		rnd:        g.rnd,
	}
	return g, nil
}

// checkRevealed matches the revealed counter against the cells. A lost round
// may count the mine that was hit.
func checkRevealed(s snapshot) error {
	safe, mines := 0, 0
	for _, c := range s.Cells {
		switch {
		case c.Revealed && c.Mine:
			mines++
		case c.Revealed:
			safe++
		}
	}
	if s.State == StatePlaying && mines > 0 {
		return fmt.Errorf("%d mines revealed while playing", mines)
	}
	if s.Revealed == safe || (s.State == StateLost && mines > 0 && s.Revealed == safe+1) {
		return nil
	}
	return fmt.Errorf("%d cells revealed, counter says %d", safe, s.Revealed)
}
