// Package session owns the process-wide login state: the current credential,
// its decoded claims, and whether it still counts as logged in.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/credential"
	"github.com/spec-kit/space-booking/internal/credstore"
)

// Session is a read-only snapshot of the login state.
type Session struct {
	Credential string
	Claims     credential.Claims
	LoggedIn   bool
}

// Role returns the primary role of a logged-in session, or "".
func (s Session) Role() string {
	if !s.LoggedIn {
		return ""
	}
	return s.Claims.Role
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for slot I/O failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the Token Store. One Store per execution context; stores that
// share a credstore.Slot converge through Sync/Watch.
type Store struct {
	slot   credstore.Slot
	now    func() time.Time
	logger *zap.Logger

	mu      sync.RWMutex
	current Session
	loaded  bool

	subsMu sync.Mutex
	nextID uint64
	subs   map[uint64]func(Session)
}

// New creates a Store backed by slot. Nothing is read until the first Current.
func New(slot credstore.Slot, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		now:    time.Now,
		logger: zap.NewNop(),
		subs:   make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login adopts raw as the session credential. A malformed or expired
// credential logs the store out instead; no error is returned either way.
func (s *Store) Login(ctx context.Context, raw string) Session {
	next, err := s.derive(raw)
	if err != nil {
		s.logger.Info("credential rejected at login", zap.Error(err))
		s.Logout(ctx)
		return Session{}
	}

	prev := s.swap(next)
	if err := s.slot.Save(ctx, raw); err != nil {
		s.logger.Warn("persist credential", zap.Error(err))
	}
	if prev.Credential != next.Credential {
		s.notify(next)
	}
	return next
}

// Logout forgets the credential in memory and in the slot. Calling it on an
// anonymous store is a no-op apart from re-clearing the slot.
func (s *Store) Logout(ctx context.Context) {
	prev := s.swap(Session{})
	s.clearSlot(ctx)
	if prev.LoggedIn {
		s.notify(Session{})
	}
}

// Current returns the session, loading it from the slot on first use. Expiry
// is re-checked on every call; an expired session is dropped and the slot cleared.
func (s *Store) Current(ctx context.Context) Session {
	s.ensureLoaded(ctx)

	s.mu.Lock()
	sess := s.current
	expired := sess.LoggedIn && credential.IsExpired(sess.Claims, s.now())
	if expired {
		s.current = Session{}
	}
	s.mu.Unlock()

	if !expired {
		return sess
	}
	s.logger.Info("credential expired", zap.String("subject", sess.Claims.Subject))
	s.clearSlot(ctx)
	s.notify(Session{})
	return Session{}
}

// Subscribe registers fn for every change of the session. The returned func
// unregisters it.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// Sync starts following changes made to the slot by other stores and returns
// once the subscription is in place.
func (s *Store) Sync(ctx context.Context) (stop func(), err error) {
	s.ensureLoaded(ctx)
	return s.slot.Watch(ctx, func(c credstore.Change) {
		s.apply(ctx, c)
	})
}

// Watch follows slot changes until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	stop, err := s.Sync(ctx)
	if err != nil {
		return err
	}
	defer stop()
	<-ctx.Done()
	return nil
}

func (s *Store) apply(ctx context.Context, c credstore.Change) {
	if c.Kind == credstore.ChangeCleared {
		if prev := s.swap(Session{}); prev.LoggedIn {
			s.notify(Session{})
		}
		return
	}

	raw := c.Credential
	if raw == "" {
		var ok bool
		var err error
		if raw, ok, err = s.slot.Load(ctx); err != nil || !ok {
			if err != nil {
				s.logger.Warn("reload credential", zap.Error(err))
			}
			return
		}
	}

	next, err := s.derive(raw)
	if err != nil {
		s.logger.Info("credential from another context rejected", zap.Error(err))
		prev := s.swap(Session{})
		s.clearSlot(ctx)
		if prev.LoggedIn {
			s.notify(Session{})
		}
		return
	}
	if prev := s.swap(next); prev.Credential != next.Credential {
		s.notify(next)
	}
}

func (s *Store) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	raw, ok, err := s.slot.Load(ctx)
	if err != nil {
		s.logger.Warn("load credential", zap.Error(err))
	}

	var (
		next   Session
		reject bool
	)
	if ok {
		if next, err = s.derive(raw); err != nil {
			s.logger.Info("stored credential rejected", zap.Error(err))
			reject = true
		}
	}

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.loaded = true
	s.mu.Unlock()

	if reject {
		s.clearSlot(ctx)
	}
}

// swap replaces the current session and returns the previous one.
func (s *Store) swap(next Session) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = next
	s.loaded = true
	return prev
}

func (s *Store) derive(raw string) (Session, error) {
	claims, err := credential.Check(raw, s.now())
	if err != nil {
		return Session{}, err
	}
	return Session{Credential: raw, Claims: claims, LoggedIn: true}, nil
}

func (s *Store) clearSlot(ctx context.Context) {
	if err := s.slot.Clear(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("clear credential", zap.Error(err))
	}
}

func (s *Store) notify(sess Session) {
	s.subsMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
