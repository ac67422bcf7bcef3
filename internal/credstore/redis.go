package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "credential:slot:"

// Redis stores the slot under a key and announces changes on a pub/sub channel,
// so sessions on different hosts converge.
type Redis struct {
	client  *redis.Client
	name    string
	logger  *zap.Logger
	closeFn func() error
}

// NewRedis wraps client. closeFn, when set, runs on Close.
func NewRedis(client *redis.Client, name string, logger *zap.Logger, closeFn func() error) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, name: name, logger: logger, closeFn: closeFn}
}

func (r *Redis) key() string     { return redisKeyPrefix + r.name }
func (r *Redis) channel() string { return redisKeyPrefix + r.name + ":changes" }

func (r *Redis) Load(ctx context.Context) (string, bool, error) {
	raw, err := r.client.Get(ctx, r.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

func (r *Redis) Save(ctx context.Context, raw string) error {
	return r.mutate(ctx, Change{Slot: r.name, Kind: ChangeStored, Credential: raw}, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, r.key(), raw, 0)
	})
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.mutate(ctx, Change{Slot: r.name, Kind: ChangeCleared}, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, r.key())
	})
}

func (r *Redis) mutate(ctx context.Context, change Change, write func(redis.Pipeliner)) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		write(pipe)
		pipe.Publish(ctx, r.channel(), payload)
		return nil
	})
	return err
}

func (r *Redis) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	if fn == nil {
		return nil, errors.New("credstore: nil watch func")
	}

	sub := r.client.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		messages := sub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					r.logger.Warn("decode slot change", zap.String("slot", r.name), zap.Error(err))
					continue
				}
				fn(change)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
			wg.Wait()
		})
	}, nil
}

func (r *Redis) Close() error {
	if r.closeFn != nil {
		return r.closeFn()
	}
	return nil
}
