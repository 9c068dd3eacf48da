package mines

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxSide bounds both board dimensions. Boards larger than this cannot be
// allocated.
const MaxSide = 255

type Difficulty struct {
	Rows, Cols, MineCount int
}

var (
	Classic  = Difficulty{Rows: 9, Cols: 9, MineCount: 10}
	Advanced = Difficulty{Rows: 16, Cols: 16, MineCount: 40}
	Expert   = Difficulty{Rows: 16, Cols: 30, MineCount: 99}
)

var presets = []struct {
	name string
	d    Difficulty
}{
	{"classic", Classic},
	{"advanced", Advanced},
	{"expert", Expert},
}

// Difficulties returns the built-in presets from easiest to hardest.
func Difficulties() []Difficulty {
	ds := make([]Difficulty, 0, len(presets))
	for _, p := range presets {
		ds = append(ds, p.d)
	}
	return ds
}

func (d Difficulty) Unpack() (rows, cols, mineCount int) {
	return d.Rows, d.Cols, d.MineCount
}

func (d Difficulty) CellCount() int {
	return d.Rows * d.Cols
}

// SafeCells is the number of cells that have to be revealed to win.
func (d Difficulty) SafeCells() int {
	return d.Rows*d.Cols - d.MineCount
}

func (d Difficulty) Validate() error {
	switch {
	case d.Rows <= 0 || d.Rows > MaxSide,
		d.Cols <= 0 || d.Cols > MaxSide,
		d.MineCount <= 0,
		d.MineCount >= d.Rows*d.Cols:
		return InvalidDifficultyError{d}
	}
	return nil
}

// Name returns the preset name, or the seed for custom difficulties.
func (d Difficulty) Name() string {
	for _, p := range presets {
		if p.d == d {
			return p.name
		}
	}
	return d.Seed()
}

func (d Difficulty) String() string {
	return fmt.Sprintf("%dx%d(%d)", d.Rows, d.Cols, d.MineCount)
}

func (d Difficulty) Seed() string {
	return fmt.Sprintf("%d:%d:%d", d.Rows, d.Cols, d.MineCount)
}

var errBadSeed = errors.New("seed must be ROWS:COLS:MINES")

func ParseSeed(seed string) (Difficulty, error) {
	parts := strings.Split(seed, ":")
	if len(parts) != 3 {
		return Difficulty{}, fmt.Errorf("invalid difficulty seed %q: %w", seed, errBadSeed)
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Difficulty{}, fmt.Errorf("invalid difficulty seed %q: %w", seed, errBadSeed)
		}
		fields[i] = n
	}
	d := Difficulty{Rows: fields[0], Cols: fields[1], MineCount: fields[2]}
	if err := d.Validate(); err != nil {
		return Difficulty{}, err
	}
	return d, nil
}

// ParseDifficulty accepts a preset name (case-insensitive) or a seed as
// produced by [Difficulty.Seed].
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.TrimSpace(s)
	for _, p := range presets {
		if strings.EqualFold(p.name, s) {
			return p.d, nil
		}
	}
	return ParseSeed(s)
}
