package mines

import "strconv"

type Mark int8

const (
	MarkNone Mark = iota
	MarkFlag
	MarkQuestion
)

func (m Mark) String() string {
	switch m {
	case MarkFlag:
		return "flag"
	case MarkQuestion:
		return "question"
	default:
		return "none"
	}
}

type Cell struct {
	Mine          bool
	Mark          Mark
	Revealed      bool
	AdjacentMines int // 0-8, fixed at generation; unused for mines
}

func (c Cell) Flagged() bool {
	return c.Mark == MarkFlag
}

// Glyph is how the cell looks to the player:
//
//   - " " covered
//   - "*" flagged
//   - "?" question mark
//   - "X" revealed mine
//   - "0" to "8" revealed cell with its adjacent mine count
func (c Cell) Glyph() string {
	switch {
	case c.Revealed && c.Mine:
		return "X"
	case c.Revealed:
		return strconv.Itoa(c.AdjacentMines)
	case c.Mark == MarkFlag:
		return "*"
	case c.Mark == MarkQuestion:
		return "?"
	default:
		return " "
	}
}

func (c Cell) String() string {
	return c.Glyph()
}
