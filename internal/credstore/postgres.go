package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresChannel = "credential_slot_changes"

// Postgres stores the slot in the credential_slots table. Each mutation and
// its pg_notify commit together, so watchers never see a change that did not happen.
type Postgres struct {
	pool    *pgxpool.Pool
	name    string
	logger  *zap.Logger
	closeFn func()
}

// NewPostgres wraps a pool whose schema is already migrated.
func NewPostgres(pool *pgxpool.Pool, name string, logger *zap.Logger, closeFn func()) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, name: name, logger: logger, closeFn: closeFn}
}

func (p *Postgres) Load(ctx context.Context) (string, bool, error) {
	var raw *string
	err := p.pool.QueryRow(ctx,
		`SELECT credential FROM credential_slots WHERE name = $1`, p.name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}
	return *raw, true, nil
}

func (p *Postgres) Save(ctx context.Context, raw string) error {
	return p.mutate(ctx, Change{Slot: p.name, Kind: ChangeStored, Credential: raw}, `
		INSERT INTO credential_slots (name, credential, version, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (name) DO UPDATE SET
			credential = EXCLUDED.credential,
			version    = credential_slots.version + 1,
			updated_at = now()`, p.name, raw)
}

func (p *Postgres) Clear(ctx context.Context) error {
	return p.mutate(ctx, Change{Slot: p.name, Kind: ChangeCleared}, `
		UPDATE credential_slots
		SET credential = NULL, version = version + 1, updated_at = now()
		WHERE name = $1`, p.name)
}

func (p *Postgres) mutate(ctx context.Context, change Change, query string, args ...any) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, postgresChannel, string(payload)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Listener reconnect backoff bounds.
var (
	postgresRetryMin = 250 * time.Millisecond
	postgresRetryMax = 10 * time.Second
)

// Watch holds one pooled connection in LISTEN mode until cancel is called.
// A dropped connection is replaced with backoff and the slot is reloaded so
// changes made while disconnected still reach fn.
func (p *Postgres) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	if fn == nil {
		return nil, errors.New("credstore: nil watch func")
	}

	conn, err := p.listen(ctx)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			err := p.receive(watchCtx, conn, fn)
			p.release(conn)
			if watchCtx.Err() != nil {
				return
			}
			p.logger.Warn("slot listener lost, reconnecting", zap.String("slot", p.name), zap.Error(err))

			if conn = p.relisten(watchCtx); conn == nil {
				return
			}
			p.resync(watchCtx, fn)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (p *Postgres) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+postgresChannel); err != nil {
		conn.Release()
		return nil, err
	}
	return conn, nil
}

// relisten retries listen until it succeeds or ctx ends, in which case it returns nil.
func (p *Postgres) relisten(ctx context.Context) *pgxpool.Conn {
	delay := postgresRetryMin
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		conn, err := p.listen(ctx)
		if err == nil {
			p.logger.Info("slot listener restored", zap.String("slot", p.name))
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Warn("relisten slot", zap.String("slot", p.name), zap.Duration("retry_in", delay), zap.Error(err))
		delay = min(delay*2, postgresRetryMax)
	}
}

// receive delivers notifications until the connection fails or ctx ends.
func (p *Postgres) receive(ctx context.Context, conn *pgxpool.Conn, fn func(Change)) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var change Change
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			p.logger.Warn("decode slot change", zap.String("slot", p.name), zap.Error(err))
			continue
		}
		if change.Slot != p.name {
			continue
		}
		fn(change)
	}
}

// resync reports the slot's current value as a change after a reconnect.
func (p *Postgres) resync(ctx context.Context, fn func(Change)) {
	raw, ok, err := p.Load(ctx)
	if err != nil {
		p.logger.Warn("reload slot after reconnect", zap.String("slot", p.name), zap.Error(err))
		return
	}
	if ok {
		fn(Change{Slot: p.name, Kind: ChangeStored, Credential: raw})
		return
	}
	fn(Change{Slot: p.name, Kind: ChangeCleared})
}

func (p *Postgres) release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, _ = conn.Exec(ctx, "UNLISTEN "+postgresChannel)
		cancel()
	}
	conn.Release()
}

func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
