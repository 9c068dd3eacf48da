// Package commands implements the line protocol spoken over the game
// WebSocket. Each line is a single command:
//
//	g            advance the clock
//	o ROW COL    reveal a cell
//	f ROW COL    cycle the mark on a cell
//	c ROW COL    chord a revealed cell
//	r            forfeit
//	n [LEVEL]    start a new round, LEVEL is a preset name or ROWS:COLS:MINES
package commands

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper/internal/mines"
)

type Verb string

const (
	Tick    Verb = "g"
	Open    Verb = "o"
	Flag    Verb = "f"
	Chord   Verb = "c"
	Forfeit Verb = "r"
	New     Verb = "n"
)

// Maps known verbs to the accepted number of arguments
var verbNargs = map[Verb][]int{
	Tick:    {0},
	Open:    {2},
	Flag:    {2},
	Chord:   {2},
	Forfeit: {0},
	New:     {0, 1},
}

var (
	ErrEmpty         = errors.New("empty command")
	ErrUnknownVerb   = errors.New("unknown command")
	ErrArgumentCount = errors.New("invalid number of arguments")
)

type Command struct {
	Verb     Verb
	Row, Col int
	// Difficulty is set for [New] when a level was given.
	Difficulty *mines.Difficulty
}

func (c Command) String() string {
	switch c.Verb {
	case Open, Flag, Chord:
		return fmt.Sprintf("%s %d %d", c.Verb, c.Row, c.Col)
	case New:
		if c.Difficulty != nil {
			return fmt.Sprintf("%s %s", c.Verb, c.Difficulty.Name())
		}
	}
	return string(c.Verb)
}

func parseRowCol(args []string) (row int, col int, err error) {
	if row, err = strconv.Atoi(args[0]); err != nil {
		err = errors.New("row must be an int")
		return
	}
	if col, err = strconv.Atoi(args[1]); err != nil {
		err = errors.New("column must be an int")
		return
	}
	return
}

func Parse(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, ErrEmpty
	}

	verb, args := Verb(parts[0]), parts[1:]
	nargs, ok := verbNargs[verb]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownVerb, parts[0])
	}
	valid := false
	for _, n := range nargs {
		valid = valid || n == len(args)
	}
	if !valid {
		return Command{}, fmt.Errorf("%w for %s: %d", ErrArgumentCount, verb, len(args))
	}

	cmd := Command{Verb: verb}
	switch verb {
	case Open, Flag, Chord:
		row, col, err := parseRowCol(args)
		if err != nil {
			return Command{}, err
		}
		cmd.Row, cmd.Col = row, col
	case New:
		if len(args) == 1 {
			d, err := mines.ParseDifficulty(args[0])
			if err != nil {
				return Command{}, err
			}
			cmd.Difficulty = &d
		}
	}
	return cmd, nil
}

// Execute applies cmd to g. Coordinates outside the board are ignored by the
// engine and are not an error here.
func Execute(g *mines.Game, cmd Command) error {
	switch cmd.Verb {
	case Tick:
		g.Tick()
	case Open:
		g.Reveal(cmd.Row, cmd.Col)
	case Flag:
		g.ToggleFlag(cmd.Row, cmd.Col)
	case Chord:
		g.ChordReveal(cmd.Row, cmd.Col)
	case Forfeit:
		g.Forfeit()
	case New:
		d := g.Difficulty()
		if cmd.Difficulty != nil {
			d = *cmd.Difficulty
		}
		if g.Restart(d).State() == mines.StateInvalid {
			return g.Err()
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownVerb, cmd.Verb)
	}
	return nil
}

// ExecuteAll runs every non-blank line of message against g. It stops at the
// first error, or as soon as a command ends the round.
func ExecuteAll(g *mines.Game, message string) (executed int, err error) {
	for i, line := range byPiece(strings.TrimSpace(message), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, err := Parse(line)
		if err != nil {
			return executed, fmt.Errorf("line %d: %w", i+1, err)
		}
		was := g.State()
		if err := Execute(g, cmd); err != nil {
			return executed, fmt.Errorf("%s: %w", cmd, err)
		}
		executed++
		if !was.Over() && g.State().Over() {
			break
		}
	}
	return executed, nil
}

func byPiece(s string, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 0
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, sep)
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}
