package mines

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixedGame(t *testing.T, rows, cols int, mines ...[2]int) *Game {
	t.Helper()
	d := Difficulty{Rows: rows, Cols: cols, MineCount: len(mines)}
	g := NewGame(d, WithRand(rand.New(rand.NewPCG(1, 2))))
	require.Equal(t, StatePlaying, g.State())
	plant(g.Board(), mines...)
	return g
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNewGame(t *testing.T) {
	g := NewGame(Classic)
	assert.Equal(t, StatePlaying, g.State())
	assert.NoError(t, g.Err())
	assert.Equal(t, 10, g.MinesRemaining())
	assert.Equal(t, Classic, g.Difficulty())
	assert.Equal(t, 10, countMines(g.Board()))
	assert.False(t, g.Clock().Start.IsZero())
	assert.True(t, g.Clock().End.IsZero())
}

func TestNewGameInvalid(t *testing.T) {
	g := NewGame(Difficulty{Rows: 9, Cols: 9, MineCount: 100})
	assert.Equal(t, StateInvalid, g.State())
	assert.ErrorIs(t, g.Err(), ErrAllocation)
	assert.Nil(t, g.Board())

	g.Reveal(0, 0)
	g.ToggleFlag(0, 0)
	g.ChordReveal(0, 0)
	g.RevealAllMines()
	g.Tick()
	g.Destroy()
	_, ok := g.Cell(0, 0)
	assert.False(t, ok)
	assert.Equal(t, StateInvalid, g.State())

	assert.Equal(t, StatePlaying, g.StartNew(Classic))
	assert.NoError(t, g.Err())
}

func TestRevealMine(t *testing.T) {
	g := newFixedGame(t, 3, 3, [2]int{0, 0})

	g.Reveal(0, 0)
	assert.Equal(t, StateLost, g.State())
	assert.Equal(t, 1, g.Board().Revealed())
	assert.Equal(t, 1, countRevealed(g.Board()))

	g.Reveal(2, 2)
	assert.Equal(t, 1, g.Board().Revealed(), "no reveals after the game is lost")
}

func TestFloodFill(t *testing.T) {
	t.Run("whole board", func(t *testing.T) {
		g := newFixedGame(t, 5, 5, [2]int{4, 4})
		g.Reveal(0, 0)

		assert.Equal(t, 24, g.Board().Revealed())
		assert.Equal(t, 24, countRevealed(g.Board()))
		assert.False(t, g.Board().Cell(4, 4).Revealed)
		assert.Equal(t, StateWon, g.State())
		assert.Zero(t, g.MinesRemaining())
	})

	t.Run("stops at numbers", func(t *testing.T) {
		g := newFixedGame(t, 5, 5,
			[2]int{2, 0}, [2]int{2, 1}, [2]int{2, 2}, [2]int{2, 3}, [2]int{2, 4},
		)
		g.Reveal(0, 0)

		assert.Equal(t, StatePlaying, g.State())
		assert.Equal(t, 10, g.Board().Revealed())
		for col := range 5 {
			assert.True(t, g.Board().Cell(0, col).Revealed)
			assert.True(t, g.Board().Cell(1, col).Revealed)
			assert.False(t, g.Board().Cell(2, col).Revealed)
			assert.False(t, g.Board().Cell(3, col).Revealed)
		}
	})

	t.Run("numbered cell does not cascade", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.Reveal(1, 1)
		assert.Equal(t, 1, g.Board().Revealed())
		assert.Equal(t, StatePlaying, g.State())
	})

	t.Run("flags stop the flood", func(t *testing.T) {
		g := newFixedGame(t, 1, 5, [2]int{0, 4})
		g.ToggleFlag(0, 1)
		g.Reveal(0, 0)
		assert.Equal(t, 1, g.Board().Revealed())
		assert.False(t, g.Board().Cell(0, 1).Revealed)
	})
}

func TestWinClassic(t *testing.T) {
	g := NewGame(Classic, WithRand(rand.New(rand.NewPCG(5, 6))))
	b := g.Board()

	for row := range b.Rows() {
		for col := range b.Cols() {
			if b.Cell(row, col).Mine {
				continue
			}
			require.Equal(t, StatePlaying, g.State())
			g.Reveal(row, col)
		}
	}

	assert.Equal(t, StateWon, g.State())
	assert.Equal(t, 71, b.Revealed())
	assert.Equal(t, 71, countRevealed(b))
	assert.Zero(t, g.MinesRemaining())
}

func TestRevealedCountConsistency(t *testing.T) {
	for seed := range uint64(30) {
		r := rand.New(rand.NewPCG(seed, seed+1))
		g := NewGame(Difficulty{Rows: 8, Cols: 8, MineCount: 6}, WithRand(r))
		b := g.Board()

		for step := 0; step < 200 && g.State() == StatePlaying; step++ {
			row, col := r.IntN(10)-1, r.IntN(10)-1
			switch r.IntN(4) {
			case 0, 1:
				g.Reveal(row, col)
			case 2:
				g.ToggleFlag(row, col)
			case 3:
				g.ChordReveal(row, col)
			}
			require.Equal(t, countRevealed(b), b.Revealed(), "seed %d step %d", seed, step)
			require.LessOrEqual(t, b.Revealed(), 64)
		}
		if g.State() == StateWon {
			assert.Equal(t, 58, b.Revealed())
		}
	}
}

func TestToggleFlag(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.ToggleFlag(2, 2)
		assert.True(t, g.Board().Cell(2, 2).Flagged())
		assert.Equal(t, 0, g.MinesRemaining())
		g.ToggleFlag(2, 2)
		assert.False(t, g.Board().Cell(2, 2).Flagged())
		assert.Equal(t, 1, g.MinesRemaining())
	})

	t.Run("revealed cell", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.Reveal(1, 1)
		g.ToggleFlag(1, 1)
		assert.False(t, g.Board().Cell(1, 1).Flagged())
		assert.Equal(t, 1, g.MinesRemaining())
	})

	t.Run("counter goes negative", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.ToggleFlag(0, 0)
		g.ToggleFlag(0, 1)
		g.ToggleFlag(0, 2)
		assert.Equal(t, -2, g.MinesRemaining())
	})

	t.Run("flag blocks reveal", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.ToggleFlag(0, 0)
		g.Reveal(0, 0)
		assert.Equal(t, StatePlaying, g.State())
		assert.Zero(t, g.Board().Revealed())
	})
}

func TestQuestionMarks(t *testing.T) {
	g := NewGame(Difficulty{Rows: 3, Cols: 3, MineCount: 1}, WithQuestionMarks())
	plant(g.Board(), [2]int{0, 0})
	require.True(t, g.QuestionMarks())

	marks := []Mark{MarkFlag, MarkQuestion, MarkNone}
	counters := []int{0, 1, 1}
	for i := range marks {
		g.ToggleFlag(2, 2)
		assert.Equal(t, marks[i], g.Board().Cell(2, 2).Mark)
		assert.Equal(t, counters[i], g.MinesRemaining())
	}

	g.ToggleFlag(2, 2)
	g.ToggleFlag(2, 2)
	require.Equal(t, MarkQuestion, g.Board().Cell(2, 2).Mark)
	g.Reveal(2, 2)
	assert.True(t, g.Board().Cell(2, 2).Revealed)
	assert.Equal(t, MarkNone, g.Board().Cell(2, 2).Mark)
}

func TestChordReveal(t *testing.T) {
	t.Run("flagged mines open neighbours", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.Reveal(1, 1)
		require.Equal(t, 1, g.Board().Revealed())

		g.ToggleFlag(0, 0)
		g.ChordReveal(1, 1)
		assert.Equal(t, 8, g.Board().Revealed())
		assert.Equal(t, 8, countRevealed(g.Board()))
		assert.Equal(t, StateWon, g.State())
	})

	t.Run("missing flags", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.Reveal(1, 1)
		g.ChordReveal(1, 1)
		assert.Equal(t, 1, g.Board().Revealed())
		assert.True(t, g.Board().Cell(1, 1).Revealed)
	})

	t.Run("wrong flag", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.Reveal(1, 1)
		g.ToggleFlag(0, 1)
		g.ChordReveal(1, 1)
		assert.Equal(t, StateLost, g.State())
		assert.True(t, g.Board().Cell(0, 0).Revealed)
		assert.Equal(t, countRevealed(g.Board()), g.Board().Revealed())
	})

	t.Run("covered cell", func(t *testing.T) {
		g := newFixedGame(t, 3, 3, [2]int{0, 0})
		g.ChordReveal(2, 2)
		assert.Zero(t, g.Board().Revealed())
	})
}

func TestOutOfBounds(t *testing.T) {
	g := NewGame(Classic, WithRand(rand.New(rand.NewPCG(7, 8))))
	before, err := g.Bytes()
	require.NoError(t, err)

	for range 3 {
		for _, p := range [][2]int{{-1, -1}, {-1, 4}, {4, -1}, {9, 0}, {0, 9}, {1 << 20, 3}} {
			g.Reveal(p[0], p[1])
			g.ToggleFlag(p[0], p[1])
			g.ChordReveal(p[0], p[1])
			_, ok := g.Cell(p[0], p[1])
			assert.False(t, ok)
			assert.Nil(t, g.Board().Cell(p[0], p[1]))
		}
	}

	after, err := g.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, StatePlaying, g.State())
}

func TestRevealAllMines(t *testing.T) {
	g := newFixedGame(t, 3, 3, [2]int{0, 0}, [2]int{2, 2})

	g.RevealAllMines()
	assert.False(t, g.Board().Cell(0, 0).Revealed, "ignored while playing")

	g.Reveal(2, 2)
	require.Equal(t, StateLost, g.State())
	g.RevealAllMines()
	assert.True(t, g.Board().Cell(0, 0).Revealed)
	assert.True(t, g.Board().Cell(2, 2).Revealed)
	assert.Equal(t, 1, g.Board().Revealed())
}

func TestForfeit(t *testing.T) {
	g := newFixedGame(t, 3, 3, [2]int{0, 0})
	g.Forfeit()
	assert.Equal(t, StateLost, g.State())
	assert.True(t, g.Board().Cell(0, 0).Revealed)
	assert.Zero(t, g.Board().Revealed())
}

func TestTick(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := NewGame(Difficulty{Rows: 3, Cols: 3, MineCount: 1}, WithClock(clock.now))
	plant(g.Board(), [2]int{0, 0})

	assert.Zero(t, g.Elapsed())
	clock.advance(3 * time.Second)
	g.Tick()
	assert.Equal(t, 3*time.Second, g.Elapsed())

	clock.advance(2 * time.Second)
	g.Tick()
	assert.Equal(t, 5*time.Second, g.Elapsed())

	g.Reveal(0, 0)
	require.Equal(t, StateLost, g.State())
	clock.advance(time.Minute)
	g.Tick()
	assert.Equal(t, 5*time.Second, g.Elapsed(), "clock is frozen once the game is over")
}

func TestRestart(t *testing.T) {
	g := NewGame(Classic, WithRand(rand.New(rand.NewPCG(9, 10))))
	b := g.Board()
	storage := &b.cells[0]

	var mines [][2]int
	for row := range b.Rows() {
		for col := range b.Cols() {
			if b.Cell(row, col).Mine {
				mines = append(mines, [2]int{row, col})
			}
		}
	}
	g.ToggleFlag(mines[1][0], mines[1][1])
	g.Reveal(mines[0][0], mines[0][1])
	require.Equal(t, StateLost, g.State())
	g.RevealAllMines()

	g = g.Restart(Classic)
	assert.Equal(t, StatePlaying, g.State())
	assert.Same(t, b, g.Board())
	assert.Same(t, storage, &g.Board().cells[0])
	assert.Zero(t, g.Board().Revealed())
	assert.Zero(t, countRevealed(g.Board()))
	assert.Equal(t, 10, countMines(g.Board()))
	assert.Equal(t, 10, g.MinesRemaining())
	for _, c := range g.Board().cells {
		assert.False(t, c.Flagged())
	}

	same := true
	for _, m := range mines {
		if !g.Board().Cell(m[0], m[1]).Mine {
			same = false
		}
	}
	assert.False(t, same, "mines are placed anew")

	g = g.Restart(Advanced)
	assert.Equal(t, StatePlaying, g.State())
	assert.Equal(t, Advanced, g.Difficulty())
	assert.Equal(t, 40, g.MinesRemaining())

	g = g.Restart(Difficulty{Rows: 2, Cols: 2, MineCount: 4})
	assert.Equal(t, StateInvalid, g.State())
	assert.Nil(t, g.Board())
	assert.ErrorIs(t, g.Err(), ErrAllocation)

	g = g.Restart(Expert)
	assert.Equal(t, StatePlaying, g.State())
	assert.Equal(t, 99, countMines(g.Board()))
}

func TestClick(t *testing.T) {
	g := newFixedGame(t, 3, 3, [2]int{0, 0})

	g.Click(1, 1, ButtonLeft)
	assert.True(t, g.Board().Cell(1, 1).Revealed)

	g.Click(2, 2, ButtonLeft)
	assert.False(t, g.Board().Cell(2, 2).Revealed, "held button is not a new press")

	g.Click(2, 2, 0)
	g.Click(0, 0, ButtonRight)
	assert.True(t, g.Board().Cell(0, 0).Flagged())

	g.Click(0, 0, 0)
	g.Click(1, 1, ButtonMiddle)
	assert.Equal(t, StateWon, g.State())
}
