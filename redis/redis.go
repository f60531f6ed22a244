// Package redis persists bridge operation records and the burn nonce
// counter. Records live under bridgeop:<status>:<id> and each key is also a
// member of its status set, so operations can be listed per status.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"gowicpbridge/config"
	"gowicpbridge/errs"
	"gowicpbridge/logger"
	"gowicpbridge/types"
)

type Store struct {
	pool *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(host string, port int) *Store {
	addr := fmt.Sprintf("%s:%d", host, port)
	return &Store{pool: &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 5 * time.Minute,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
	}}
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "redis unavailable")
	}
	defer conn.Close()
	_, err = conn.Do("PING")
	return errors.Wrap(err, "redis ping")
}

func recordKey(status, id string) string {
	return fmt.Sprintf("bridgeop:%s:%s", status, id)
}

func statusSet(status string) (string, error) {
	set, ok := config.RedisStatusSets[status]
	if !ok {
		return "", errors.Newf("no redis set for status %q", status)
	}
	return set, nil
}

func checkOperation(op *types.BridgeOperation) error {
	if op == nil {
		return errors.New("null object to store")
	}
	if op.Status == "" {
		return errors.New("bridge operation cannot have empty status")
	}
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	return nil
}

// UpsertBridgeOperation stores op under its current status.
// Multiple sets should never contain one operation.
func (s *Store) UpsertBridgeOperation(op *types.BridgeOperation) error {
	if err := checkOperation(op); err != nil {
		return err
	}
	set, err := statusSet(op.Status)
	if err != nil {
		return err
	}
	opJSON, err := json.Marshal(op)
	if err != nil {
		return errors.Wrap(err, "cannot marshal bridge operation to JSON")
	}

	conn := s.pool.Get()
	defer conn.Close()

	key := recordKey(op.Status, op.ID)
	conn.Send("MULTI")
	conn.Send("SET", key, opJSON)
	conn.Send("SADD", set, key)
	if _, err := conn.Do("EXEC"); err != nil {
		logger.Warn("redis upsert failed", "key", key, logger.Err(err))
		return errors.Wrap(err, "redis upsert")
	}
	return nil
}

// ChangeBridgeOperationStatus moves op from prevStatus to its current
// status in one transaction. It fails with errs.InvalidState unless the
// stored record is still in prevStatus.
func (s *Store) ChangeBridgeOperationStatus(op *types.BridgeOperation, prevStatus string) error {
	if err := checkOperation(op); err != nil {
		return err
	}
	if prevStatus == op.Status {
		return s.UpsertBridgeOperation(op)
	}
	prevSet, err := statusSet(prevStatus)
	if err != nil {
		return err
	}
	set, err := statusSet(op.Status)
	if err != nil {
		return err
	}
	opJSON, err := json.Marshal(op)
	if err != nil {
		return errors.Wrap(err, "cannot marshal bridge operation to JSON")
	}

	conn := s.pool.Get()
	defer conn.Close()

	prevKey, key := recordKey(prevStatus, op.ID), recordKey(op.Status, op.ID)
	if _, err := conn.Do("WATCH", prevKey); err != nil {
		return errors.Wrap(err, "redis watch")
	}
	if err := checkStoredStatus(conn, prevKey, prevStatus); err != nil {
		conn.Do("UNWATCH")
		return errors.Wrapf(err, "operation %s", op.ID)
	}

	conn.Send("MULTI")
	conn.Send("SREM", prevSet, prevKey)
	conn.Send("DEL", prevKey)
	conn.Send("SET", key, opJSON)
	conn.Send("SADD", set, key)
	_, err = redis.Values(conn.Do("EXEC"))
	if errors.Is(err, redis.ErrNil) {
		// prevKey changed after WATCH
		return errors.Wrapf(errs.InvalidState, "operation %s changed while moving to %s", op.ID, op.Status)
	}
	if err != nil {
		logger.Warn("redis status change failed", "from", prevKey, "to", key, logger.Err(err))
		return errors.Wrap(err, "redis status change")
	}
	return nil
}

// checkStoredStatus confirms the record at key exists with status.
func checkStoredStatus(conn redis.Conn, key, status string) error {
	raw, err := redis.Bytes(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return errors.Wrapf(errs.InvalidState, "no record in status %s", status)
	}
	if err != nil {
		return errors.Wrap(err, "redis get")
	}
	var stored types.BridgeOperation
	if err := json.Unmarshal(raw, &stored); err != nil {
		return errors.Wrapf(err, "corrupt record %s", key)
	}
	if stored.Status != status {
		return errors.Wrapf(errs.InvalidState, "record %s holds status %s", key, stored.Status)
	}
	return nil
}

// GetBridgeOperation looks id up under every status.
func (s *Store) GetBridgeOperation(id string) (*types.BridgeOperation, error) {
	conn := s.pool.Get()
	defer conn.Close()

	for status := range config.RedisStatusSets {
		raw, err := redis.Bytes(conn.Do("GET", recordKey(status, id)))
		if errors.Is(err, redis.ErrNil) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "redis get")
		}
		var op types.BridgeOperation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, errors.Wrapf(err, "corrupt record %s", recordKey(status, id))
		}
		return &op, nil
	}
	return nil, errors.Wrapf(errs.NotFound, "bridge operation %s", id)
}

func (s *Store) FindAllBridgeOperationsByStatus(status string) ([]*types.BridgeOperation, error) {
	set, err := statusSet(status)
	if err != nil {
		return nil, err
	}

	conn := s.pool.Get()
	defer conn.Close()

	ops := make([]*types.BridgeOperation, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", set, cursor))
		if err != nil {
			return nil, errors.Wrap(err, "redis sscan")
		}

		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return nil, errors.Wrap(err, "redis sscan reply")
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				// set member without a record, skip it
				logger.Warn("dangling status set member", "set", set, "key", key)
				continue
			}
			if err != nil {
				return nil, errors.Wrap(err, "redis get")
			}

			var op types.BridgeOperation
			if err := json.Unmarshal(raw, &op); err != nil {
				return nil, errors.Wrapf(err, "corrupt record %s", key)
			}
			if op.Status == status {
				ops = append(ops, &op)
			}
		}

		if cursor == 0 {
			break
		}
	}
	return ops, nil
}

// nonces are millisecond timestamps, well below 2^53, so Lua numbers are exact
var burnNonceScript = redis.NewScript(1, `
local last = tonumber(redis.call('GET', KEYS[1]) or '0')
local nonce = tonumber(ARGV[1])
if nonce <= last then
	nonce = last + 1
end
redis.call('SET', KEYS[1], nonce)
return nonce
`)

// NextBurnNonce atomically returns max(nowMillis, last+1) and stores it, so
// nonces never repeat across restarts or processes sharing the redis.
func (s *Store) NextBurnNonce(ctx context.Context, nowMillis uint64) (uint64, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "redis unavailable")
	}
	defer conn.Close()

	nonce, err := redis.Uint64(burnNonceScript.Do(conn, config.RedisBurnNonceKey, nowMillis))
	if err != nil {
		return 0, errors.Wrap(err, "burn nonce")
	}
	return nonce, nil
}
