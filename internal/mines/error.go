package mines

import (
	"errors"
	"fmt"
)

var ErrAllocation = errors.New("unable to allocate board")

type InvalidDifficultyError struct {
	Difficulty Difficulty
}

// [InvalidDifficultyError] implements [error]
func (e InvalidDifficultyError) Error() string {
	rows, cols, mineCount := e.Difficulty.Unpack()
	switch {
	case rows <= 0 || rows > MaxSide:
		return fmt.Sprintf("cannot create a board with %d rows", rows)
	case cols <= 0 || cols > MaxSide:
		return fmt.Sprintf("cannot create a board with %d columns", cols)
	case mineCount <= 0:
		return fmt.Sprintf("cannot create a board with %d mines", mineCount)
	case mineCount >= rows*cols:
		return fmt.Sprintf(
			"not enough space for %d mines (%d >= %d * %d)",
			mineCount, mineCount, rows, cols,
		)
	default:
		return "invalid difficulty"
	}
}

// Every construction failure is an allocation failure as far as the game is
// concerned.
func (e InvalidDifficultyError) Unwrap() error {
	return ErrAllocation
}
