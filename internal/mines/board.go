package mines

import (
	"fmt"
	"hash/maphash"
	"iter"
	"math/rand/v2"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

func createRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

// Board is a rows x cols grid of cells stored row-major.
type Board struct {
	difficulty Difficulty
	revealed   int
	cells      []Cell
	rnd        *rand.Rand
}

// NewBoard allocates an empty board. Mines are placed by [Board.Init].
// A nil rnd is replaced by a randomly seeded source.
func NewBoard(d Difficulty, rnd *rand.Rand) (*Board, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("unable to create board: %w", err)
	}
	if rnd == nil {
		rnd = createRand()
	}
	b := &Board{
		difficulty: d,
		cells:      make([]Cell, d.CellCount()),
		rnd:        rnd,
	}
	return b, nil
}

// Init starts a fresh round on d. Storage is reallocated only when d differs
// from the current difficulty; otherwise cells are cleared in place.
func (b *Board) Init(d Difficulty) error {
	if d != b.difficulty || b.cells == nil {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("unable to resize board: %w", err)
		}
		b.difficulty = d
		b.cells = make([]Cell, d.CellCount())
	} else {
		clear(b.cells)
	}
	b.revealed = 0

	b.generateMines()
	b.computeAdjacency()

	Log.WithFields(logrus.Fields{
		"difficulty": b.difficulty.String(),
	}).Debug("board initialized")
	return nil
}

// generateMines draws uniformly random cells and redraws on collision until
// exactly MineCount distinct cells are mined.
func (b *Board) generateMines() {
	rows, cols, mineCount := b.difficulty.Unpack()
	for placed := 0; placed < mineCount; {
		i := b.rnd.IntN(rows)*cols + b.rnd.IntN(cols)
		if !b.cells[i].Mine {
			b.cells[i].Mine = true
			placed++
		}
	}
}

func (b *Board) computeAdjacency() {
	for row := range b.difficulty.Rows {
		for col := range b.difficulty.Cols {
			c := &b.cells[b.index(row, col)]
			if c.Mine {
				continue
			}
			c.AdjacentMines = 0
			for r, cc := range b.neighbors(row, col) {
				if b.cells[b.index(r, cc)].Mine {
					c.AdjacentMines++
				}
			}
		}
	}
}

func (b *Board) index(row, col int) int {
	return row*b.difficulty.Cols + col
}

func (b *Board) InBounds(row, col int) bool {
	return b.cells != nil &&
		0 <= row && row < b.difficulty.Rows &&
		0 <= col && col < b.difficulty.Cols
}

// neighbors yields the coordinates of the up to 8 cells around (row, col),
// clamped at the edges.
func (b *Board) neighbors(row, col int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for r := max(0, row-1); r <= min(row+1, b.difficulty.Rows-1); r++ {
			for c := max(0, col-1); c <= min(col+1, b.difficulty.Cols-1); c++ {
				if r == row && c == col {
					continue
				}
				if !yield(r, c) {
					return
				}
			}
		}
	}
}

// RevealCell marks the cell revealed and counts it. It does not check
// whether the cell was already revealed.
func (b *Board) RevealCell(row, col int) {
	if !b.InBounds(row, col) {
		return
	}
	b.cells[b.index(row, col)].Revealed = true
	b.revealed++
}

func (b *Board) coverCell(row, col int) {
	if !b.InBounds(row, col) {
		return
	}
	c := &b.cells[b.index(row, col)]
	if c.Revealed {
		c.Revealed = false
		b.revealed--
	}
}

func (b *Board) Complete() bool {
	return b.revealed == b.difficulty.SafeCells()
}

// Cell returns nil for coordinates outside the board.
func (b *Board) Cell(row, col int) *Cell {
	if !b.InBounds(row, col) {
		return nil
	}
	return &b.cells[b.index(row, col)]
}

func (b *Board) Difficulty() Difficulty { return b.difficulty }
func (b *Board) MineCount() int { return b.difficulty.MineCount }
func (b *Board) Rows() int { return b.difficulty.Rows }
func (b *Board) Cols() int { return b.difficulty.Cols }
func (b *Board) Revealed() int { return b.revealed }

// Destroy releases the cells. A destroyed board can be brought back with
// [Board.Init].
func (b *Board) Destroy() {
	b.cells = nil
	b.revealed = 0
}

func (b *Board) String() string {
	var sb strings.Builder
	for row := range b.difficulty.Rows {
		if b.cells == nil {
			break
		}
		for col := range b.difficulty.Cols {
			fmt.Fprint(&sb, b.cells[b.index(row, col)].Glyph()+" ")
		}
		fmt.Fprint(&sb, "\n")
	}
	return sb.String()
}
