package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/session"
)

// SessionWatcher follows the durable credential slot so a long-running process
// notices logins and logouts made elsewhere.
type SessionWatcher struct {
	store  *session.Store
	logger *zap.Logger
}

// NewSessionWatcher constructs the watcher.
func NewSessionWatcher(store *session.Store, logger *zap.Logger) *SessionWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionWatcher{store: store, logger: logger}
}

// Run delivers every session change to fn until ctx ends. The current session
// is delivered first.
func (w *SessionWatcher) Run(ctx context.Context, fn func(session.Session)) error {
	cancel := w.store.Subscribe(func(s session.Session) {
		w.logger.Info("session changed",
			zap.Bool("logged_in", s.LoggedIn),
			zap.String("subject", s.Claims.Subject),
			zap.String("role", s.Role()))
		fn(s)
	})
	defer cancel()

	stop, err := w.store.Sync(ctx)
	if err != nil {
		return err
	}
	defer stop()

	fn(w.store.Current(ctx))
	<-ctx.Done()
	return nil
}
