// Package session keeps the running games of the server in memory and mirrors
// them into a key-value store so they survive restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
)

var ErrNotFound = errors.New("session not found")

// Store is the persistence backend, see [store.Store].
type Store interface {
	Get(key string, value any) error
	Set(key string, value any) error
	Delete(key string) error
	GetAllKeys() ([]string, error)
}

type Session struct {
	mu sync.Mutex
	// saveMu orders store writes of the session. It is taken after mu is
	// released so slow storage never blocks players of other sessions.
	saveMu  sync.Mutex
	version uint64
	saved   uint64

	ID        string
	PlayerID  *int64
	Game      *mines.Game
	CreatedAt time.Time
	UpdatedAt time.Time
	// Recorded is set once the finished round was handed to the finish hook.
	Recorded bool

	removed atomic.Bool
}

// Summary describes a finished round.
type Summary struct {
	SessionID  string
	PlayerID   *int64
	Difficulty mines.Difficulty
	Won        bool
	StartedAt  time.Time
	EndedAt    time.Time
}

type FinishFunc func(ctx context.Context, s Summary) error

type record struct {
	PlayerID  *int64
	Game      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	Recorded  bool
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store    Store
	log      *logrus.Logger
	now      func() time.Time
	gameOpts []mines.Option
	onFinish FinishFunc
}

type Option func(*Registry)

func WithLogger(log *logrus.Logger) Option {
	return func(r *Registry) { r.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithGameOptions are applied to every game the registry creates or restores.
func WithGameOptions(opts ...mines.Option) Option {
	return func(r *Registry) { r.gameOpts = append(r.gameOpts, opts...) }
}

// WithFinishFunc registers a hook called once for every round that ends.
func WithFinishFunc(f FinishFunc) Option {
	return func(r *Registry) { r.onFinish = f }
}

// NewRegistry creates an empty registry. store may be nil, in which case
// sessions live in memory only.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) gameOptions(extra []mines.Option) []mines.Option {
	opts := append([]mines.Option{mines.WithClock(r.now)}, r.gameOpts...)
	return append(opts, extra...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Create starts a new game for playerID (nil for anonymous players).
func (r *Registry) Create(
	d mines.Difficulty, playerID *int64, opts ...mines.Option,
) (*Session, error) {
	g := mines.NewGame(d, r.gameOptions(opts)...)
	if g.State() == mines.StateInvalid {
		return nil, g.Err()
	}

	now := r.now()
	s := &Session{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Game:      g,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := r.snapshot(s)
	if err != nil {
		return nil, err
	}
	if err := r.save(s.ID, rec); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"session":    s.ID,
		"difficulty": d,
	}).Debug("created session")
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) acquire(id string) (*Session, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.isRemoved() {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return s, nil
}

// View runs fn with exclusive access to the session. fn must not modify the
// session: nothing it does is stored and the idle clock is left alone.
func (r *Registry) View(id string, fn func(*Session) error) error {
	s, err := r.acquire(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	return fn(s)
}

// Update runs fn with exclusive access to the session. The game clock is
// advanced around fn. When fn finishes the round the mines are uncovered.
// The finish hook and the store write run after the session is released.
func (r *Registry) Update(
	ctx context.Context, id string, fn func(*Session) error,
) error {
	s, err := r.acquire(id)
	if err != nil {
		return err
	}

	s.Game.Tick()
	fnErr := fn(s)
	s.Game.Tick()
	s.UpdatedAt = r.now()

	var finished *Summary
	switch st := s.Game.State(); {
	case st == mines.StatePlaying:
		s.Recorded = false
	case st.Over() && !s.Recorded:
		s.Game.RevealAllMines()
		s.Recorded = true
		summary := r.summary(s)
		finished = &summary
	}
	s.version++
	version := s.version
	rec, snapErr := r.snapshot(s)
	s.mu.Unlock()

	if finished != nil {
		r.finish(ctx, *finished)
	}
	if snapErr != nil {
		return errors.Join(fnErr, snapErr)
	}
	if err := r.persist(s, version, rec); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// summary must be called while holding s.mu.
func (r *Registry) summary(s *Session) Summary {
	clock := s.Game.Clock()
	return Summary{
		SessionID:  s.ID,
		PlayerID:   s.PlayerID,
		Difficulty: s.Game.Difficulty(),
		Won:        s.Game.State() == mines.StateWon,
		StartedAt:  clock.Start,
		EndedAt:    clock.End,
	}
}

func (r *Registry) finish(ctx context.Context, summary Summary) {
	r.log.WithFields(logrus.Fields{
		"session": summary.SessionID,
		"won":     summary.Won,
		"elapsed": summary.EndedAt.Sub(summary.StartedAt),
	}).Info("round finished")

	if r.onFinish == nil {
		return
	}
	if err := r.onFinish(ctx, summary); err != nil {
		r.log.WithError(err).WithField("session", summary.SessionID).Error("finish hook failed")
	}
}

// snapshot encodes the session for the store, or returns nil without a
// store. It must be called while holding s.mu.
func (r *Registry) snapshot(s *Session) (*record, error) {
	if r.store == nil {
		return nil, nil
	}
	buf, err := s.Game.Bytes()
	if err != nil {
		return nil, fmt.Errorf("unable to serialize game: %w", err)
	}
	return &record{
		PlayerID:  s.PlayerID,
		Game:      buf,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Recorded:  s.Recorded,
	}, nil
}

func (r *Registry) save(id string, rec *record) error {
	if rec == nil {
		return nil
	}
	if err := r.store.Set(id, *rec); err != nil {
		return fmt.Errorf("unable to persist session: %w", err)
	}
	return nil
}

// persist writes rec unless a newer version of the session was already
// written or the session is gone.
func (r *Registry) persist(s *Session, version uint64, rec *record) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.saved || s.isRemoved() {
		return nil
	}
	if err := r.save(s.ID, rec); err != nil {
		return err
	}
	s.saved = version
	return nil
}

// Delete removes the session and releases its board.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.mu.Lock()
	s.release()
	s.mu.Unlock()
	return r.unpersist(s)
}

// release must be called while holding s.mu.
func (s *Session) release() {
	s.removed.Store(true)
	s.Game.Destroy()
}

func (s *Session) isRemoved() bool {
	return s.removed.Load()
}

func (r *Registry) unpersist(s *Session) error {
	if r.store == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return r.store.Delete(s.ID)
}

// expire releases the session when it has been idle since before deadline.
func (s *Session) expire(deadline time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRemoved() || !s.UpdatedAt.Before(deadline) {
		return false
	}
	s.release()
	return true
}

// Sweep drops every session idle for longer than maxIdle and reports how many
// were removed. Session locks are never awaited while the registry is
// locked.
func (r *Registry) Sweep(maxIdle time.Duration) (int, error) {
	deadline := r.now().Add(-maxIdle)

	r.mu.RLock()
	candidates := maps.Clone(r.sessions)
	r.mu.RUnlock()

	expired := lo.PickBy(candidates, func(_ string, s *Session) bool {
		return s.expire(deadline)
	})

	r.mu.Lock()
	for id, s := range expired {
		if r.sessions[id] == s {
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range expired {
		if err := r.unpersist(s); err != nil {
			errs = append(errs, err)
		}
	}
	return len(expired), errors.Join(errs...)
}

// Restore loads every persisted session into memory. Entries that cannot be
// decoded are dropped from the store.
func (r *Registry) Restore() (int, error) {
	if r.store == nil {
		return 0, nil
	}
	keys, err := r.store.GetAllKeys()
	if err != nil {
		return 0, fmt.Errorf("unable to list sessions: %w", err)
	}

	restored := 0
	for _, id := range keys {
		var rec record
		if err := r.store.Get(id, &rec); err != nil {
			return restored, fmt.Errorf("unable to load session %s: %w", id, err)
		}
		g, err := mines.DecodeGame(rec.Game, r.gameOptions(nil)...)
		if err != nil {
			r.log.WithError(err).WithField("session", id).Warn("dropping corrupted session")
			if err := r.store.Delete(id); err != nil {
				return restored, err
			}
			continue
		}

		r.mu.Lock()
		r.sessions[id] = &Session{
			ID:        id,
			PlayerID:  rec.PlayerID,
			Game:      g,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
			Recorded:  rec.Recorded,
		}
		r.mu.Unlock()
		restored++
	}
	return restored, nil
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.Sweep(maxIdle)
			if err != nil {
				r.log.WithError(err).Error("unable to sweep sessions")
			}
			if n > 0 {
				r.log.WithFields(logrus.Fields{
					"removed": n,
					"active":  r.Len(),
				}).Info("swept idle sessions")
			}
		}
	}
}
