package mines

import (
	"math/rand/v2"
	"time"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
)

type State int8

const (
	StateInvalid State = iota
	StatePlaying
	StateWon
	StateLost
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateWon:
		return "won"
	case StateLost:
		return "lost"
	default:
		return "invalid"
	}
}

// Over reports whether the round has finished, either way.
func (s State) Over() bool {
	return s == StateWon || s == StateLost
}

// Clock.End is zero until the first tick.
type Clock struct {
	Start, End time.Time
}

// Buttons is a pointer button bitmask.
type Buttons uint8

const (
	ButtonLeft Buttons = 1 << iota
	ButtonMiddle
	ButtonRight
)

type Game struct {
	board         *Board
	clock         Clock
	mines         int
	state         State
	prevButtons   Buttons
	err           error
	rnd           *rand.Rand
	now           func() time.Time
	questionMarks bool
}

type Option func(*Game)

// WithRand sets the source used for mine placement.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rnd = r }
}

// WithClock replaces [time.Now].
func WithClock(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

// WithQuestionMarks makes [Game.ToggleFlag] cycle none -> flag -> question.
func WithQuestionMarks() Option {
	return func(g *Game) { g.questionMarks = true }
}

func newGame(opts []Option) *Game {
	g := &Game{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.rnd == nil {
		g.rnd = createRand()
	}
	return g
}

// NewGame creates a game and starts the first round. If the board cannot be
// allocated the game is returned in [StateInvalid] and [Game.Err] says why.
func NewGame(d Difficulty, opts ...Option) *Game {
	g := newGame(opts)
	board, err := NewBoard(d, g.rnd)
	if err != nil {
		Log.WithError(err).Error("unable to create game")
		g.err = err
		g.state = StateInvalid
		return g
	}
	g.board = board
	g.StartNew(d)
	return g
}

// StartNew (re)initializes the board for d and starts the clock.
func (g *Game) StartNew(d Difficulty) State {
	if g.board == nil {
		board, err := NewBoard(d, g.rnd)
		if err != nil {
			g.err = err
			g.state = StateInvalid
			return g.state
		}
		g.board = board
	}
	if err := g.board.Init(d); err != nil {
		Log.WithError(err).Error("unable to start new game")
		g.err = err
		g.state = StateInvalid
		return g.state
	}
	g.err = nil
	g.clock = Clock{Start: g.now()}
	g.state = StatePlaying
	g.mines = g.board.MineCount()
	g.prevButtons = 0
	return g.state
}

// Restart begins a new round, reusing the board storage when d is unchanged.
// On failure the board is released and the game is left invalid.
func (g *Game) Restart(d Difficulty) *Game {
	if g.StartNew(d) == StateInvalid && g.board != nil {
		g.board.Destroy()
		g.board = nil
	}
	return g
}

func (g *Game) playing() bool {
	return g.state == StatePlaying && g.board != nil
}

// Reveal opens the cell and floods outward from every opened cell whose
// flagged neighbours account for all of its adjacent mines. Hitting a mine
// loses the game immediately.
func (g *Game) Reveal(row, col int) {
	if !g.playing() {
		return
	}

	var todo deque.Deque[[2]int]
	todo.PushBack([2]int{row, col})
	for todo.Len() > 0 {
		p := todo.PopBack()

		c := g.board.Cell(p[0], p[1])
		if c == nil || c.Revealed || c.Flagged() {
			continue
		}

		g.board.RevealCell(p[0], p[1])
		c.Mark = MarkNone

		if c.Mine {
			g.state = StateLost
			Log.WithFields(logrus.Fields{
				"row": p[0], "col": p[1],
			}).Debug("mine revealed, game lost")
			return
		}

		if g.flaggedNeighbors(p[0], p[1]) < c.AdjacentMines {
			continue
		}
		for r, cc := range g.board.neighbors(p[0], p[1]) {
			n := g.board.Cell(r, cc)
			if !n.Revealed && !n.Flagged() {
				todo.PushBack([2]int{r, cc})
			}
		}
	}

	if g.board.Complete() && g.state == StatePlaying {
		g.state = StateWon
		g.mines = 0
		Log.WithFields(logrus.Fields{
			"difficulty": g.board.Difficulty().String(),
			"elapsed":    g.Elapsed().String(),
		}).Debug("game won")
	}
}

func (g *Game) flaggedNeighbors(row, col int) (n int) {
	for r, c := range g.board.neighbors(row, col) {
		if g.board.Cell(r, c).Flagged() {
			n++
		}
	}
	return
}

// ToggleFlag flips the flag on a covered cell. The mine counter is not
// clamped and goes negative when the player over-flags.
func (g *Game) ToggleFlag(row, col int) {
	if !g.playing() {
		return
	}
	c := g.board.Cell(row, col)
	if c == nil || c.Revealed {
		return
	}
	switch c.Mark {
	case MarkNone:
		c.Mark = MarkFlag
		g.mines--
	case MarkFlag:
		if g.questionMarks {
			c.Mark = MarkQuestion
		} else {
			c.Mark = MarkNone
		}
		g.mines++
	case MarkQuestion:
		c.Mark = MarkNone
	}
}

// ChordReveal covers an already revealed cell again and reveals it anew,
// so that a cell whose mines are all flagged opens its neighbours.
func (g *Game) ChordReveal(row, col int) {
	if !g.playing() {
		return
	}
	c := g.board.Cell(row, col)
	if c == nil || !c.Revealed {
		return
	}
	g.board.coverCell(row, col)
	g.Reveal(row, col)
}

// Click dispatches a pointer press: left reveals, right flags, middle
// chords. Buttons held down since the previous call are ignored.
func (g *Game) Click(row, col int, buttons Buttons) {
	pressed := g.prevButtons == 0
	g.prevButtons = buttons
	if !pressed {
		return
	}
	switch {
	case buttons&ButtonLeft != 0:
		g.Reveal(row, col)
	case buttons&ButtonRight != 0:
		g.ToggleFlag(row, col)
	case buttons&ButtonMiddle != 0:
		g.ChordReveal(row, col)
	}
}

// RevealAllMines uncovers every mine once the round is over. The revealed
// counter is left untouched.
func (g *Game) RevealAllMines() {
	if !g.state.Over() || g.board == nil {
		return
	}
	for i := range g.board.cells {
		if g.board.cells[i].Mine {
			g.board.cells[i].Revealed = true
		}
	}
}

// Forfeit ends a running round as lost and shows the mines.
func (g *Game) Forfeit() {
	if !g.playing() {
		return
	}
	g.state = StateLost
	g.RevealAllMines()
}

// Tick advances the clock while playing; the clock stays frozen afterwards.
func (g *Game) Tick() {
	if g.state != StatePlaying {
		return
	}
	g.clock.End = g.now()
}

func (g *Game) Elapsed() time.Duration {
	if g.clock.End.IsZero() {
		return 0
	}
	return g.clock.End.Sub(g.clock.Start)
}

// Cell returns a copy of the cell at (row, col).
func (g *Game) Cell(row, col int) (Cell, bool) {
	if g.board == nil {
		return Cell{}, false
	}
	c := g.board.Cell(row, col)
	if c == nil {
		return Cell{}, false
	}
	return *c, true
}

func (g *Game) Destroy() {
	if g.board != nil {
		g.board.Destroy()
	}
}

func (g *Game) State() State { return g.state }
func (g *Game) Err() error { return g.err }
func (g *Game) Board() *Board { return g.board }
func (g *Game) Clock() Clock { return g.clock }
func (g *Game) MinesRemaining() int { return g.mines }
func (g *Game) QuestionMarks() bool { return g.questionMarks }

func (g *Game) Difficulty() Difficulty {
	if g.board == nil {
		return Difficulty{}
	}
	return g.board.Difficulty()
}
