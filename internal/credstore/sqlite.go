package credstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/persistence"
)

// SQLite keeps the slot in a local database file so every process on the
// machine sees the same credential. Changes are detected by polling a
// per-slot version counter.
type SQLite struct {
	db       *sql.DB
	name     string
	interval time.Duration
	logger   *zap.Logger
	ownsDB   bool
}

// OpenSQLite opens the database at path and returns a slot that owns it.
func OpenSQLite(ctx context.Context, path, name string, interval time.Duration, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := persistence.OpenSQLite(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	slot := NewSQLite(db, name, interval, logger)
	slot.ownsDB = true
	return slot, nil
}

// NewSQLite wraps an already migrated database. The caller keeps ownership of db.
func NewSQLite(db *sql.DB, name string, interval time.Duration, logger *zap.Logger) *SQLite {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &SQLite{db: db, name: name, interval: interval, logger: logger}
}

func (s *SQLite) Load(ctx context.Context) (string, bool, error) {
	raw, _, err := s.read(ctx)
	if err != nil {
		return "", false, err
	}
	return raw.String, raw.Valid, nil
}

func (s *SQLite) Save(ctx context.Context, raw string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential_slots (name, credential, version, updated_at)
		VALUES (?, ?, 1, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(name) DO UPDATE SET
			credential = excluded.credential,
			version    = credential_slots.version + 1,
			updated_at = excluded.updated_at`, s.name, raw)
	return err
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE credential_slots
		SET credential = NULL,
		    version    = version + 1,
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE name = ? AND credential IS NOT NULL`, s.name)
	return err
}

// Watch polls for version changes. cancel blocks until the poller exits, so it
// must not be called from fn.
func (s *SQLite) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	if fn == nil {
		return nil, errors.New("credstore: nil watch func")
	}
	_, version, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}

			raw, current, err := s.read(watchCtx)
			if err != nil {
				if watchCtx.Err() == nil {
					s.logger.Warn("poll credential slot", zap.String("slot", s.name), zap.Error(err))
				}
				continue
			}
			if current == version {
				continue
			}
			version = current

			change := Change{Slot: s.name, Kind: ChangeCleared}
			if raw.Valid {
				change.Kind, change.Credential = ChangeStored, raw.String
			}
			fn(change)
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}, nil
}

func (s *SQLite) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *SQLite) read(ctx context.Context) (sql.NullString, int64, error) {
	var (
		raw     sql.NullString
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT credential, version FROM credential_slots WHERE name = ?`, s.name).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullString{}, 0, nil
	}
	return raw, version, err
}
