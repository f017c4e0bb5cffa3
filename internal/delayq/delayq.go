// Package delayq implements the Redis data layout behind the delay scheduler.
//
// A message lives in exactly one of three keys of a queue:
//
//	delayed (ZSET, score = due time in ms)
//	pending (LIST, due and waiting for a worker)
//	active  (ZSET, score = lease deadline in ms)
//
// Every transition between keys is a single Lua script so concurrent workers
// never observe a message in two places.
package delayq

import (
	"context"
	"errors"
	"strconv"

	"github.com/ace-232/day-planner-app/internal/keys"
	"github.com/redis/go-redis/v9"
)

// promoteScript atomically moves up to ARGV[2] due members from delayed to pending,
// earliest first. It returns the number moved.
var promoteScript = redis.NewScript(`
local dkey  = KEYS[1]
local pkey  = KEYS[2]
local now   = ARGV[1]
local limit = tonumber(ARGV[2])
local items = redis.call('ZRANGEBYSCORE', dkey, '-inf', now, 'LIMIT', 0, limit)
local moved = 0
for _, m in ipairs(items) do
  if redis.call('ZREM', dkey, m) == 1 then
    redis.call('LPUSH', pkey, m)
    moved = moved + 1
  end
end
return moved
`)

// reclaimScript atomically moves up to ARGV[2] active members whose lease has
// expired back to pending. It returns the number moved.
var reclaimScript = redis.NewScript(`
local akey  = KEYS[1]
local pkey  = KEYS[2]
local now   = ARGV[1]
local limit = tonumber(ARGV[2])
local items = redis.call('ZRANGEBYSCORE', akey, '-inf', now, 'LIMIT', 0, limit)
local moved = 0
for _, m in ipairs(items) do
  if redis.call('ZREM', akey, m) == 1 then
    redis.call('LPUSH', pkey, m)
    moved = moved + 1
  end
end
return moved
`)

// dequeueScript atomically pops the oldest pending member and leases it in active.
var dequeueScript = redis.NewScript(
	// language=Lua
	`
	local v = redis.call('RPOP', KEYS[1])
	if not v then return false end
	redis.call('ZADD', KEYS[2], ARGV[1], v)
	return v
	`,
)

// Schedule stores raw so it becomes visible at dueMs. Members already due go
// straight to pending.
func Schedule(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, raw []byte, dueMs, nowMs int64) error {
	if dueMs <= nowMs {
		return rdb.LPush(ctx, k.Pending, raw).Err()
	}
	return rdb.ZAdd(ctx, k.Delayed, redis.Z{Score: float64(dueMs), Member: raw}).Err()
}

// Promote moves due delayed members to pending.
func Promote(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, nowMs int64, limit int) (int, error) {
	return promoteScript.Run(ctx, rdb, []string{k.Delayed, k.Pending}, strconv.FormatInt(nowMs, 10), limit).Int()
}

// Reclaim returns members with an expired lease to pending. Their retry state
// is untouched; the consumer sees them as a plain redelivery.
func Reclaim(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, nowMs int64, limit int) (int, error) {
	return reclaimScript.Run(ctx, rdb, []string{k.Active, k.Pending}, strconv.FormatInt(nowMs, 10), limit).Int()
}

// Dequeue leases one pending member until leaseMs. It returns nil, nil when
// nothing is pending.
func Dequeue(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, leaseMs int64) ([]byte, error) {
	res, err := dequeueScript.Run(ctx, rdb, []string{k.Pending, k.Active}, strconv.FormatInt(leaseMs, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch v := res.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, nil
	}
}

// Ack removes a leased member permanently.
func Ack(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, raw []byte) error {
	return rdb.ZRem(ctx, k.Active, raw).Err()
}

// Counts returns the number of delayed, pending and active members.
func Counts(ctx context.Context, rdb redis.UniversalClient, k keys.Queue) (delayed, pending, active int64, err error) {
	var dc, pc, ac *redis.IntCmd
	_, err = rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		dc = p.ZCard(ctx, k.Delayed)
		pc = p.LLen(ctx, k.Pending)
		ac = p.ZCard(ctx, k.Active)
		return nil
	})
	if err != nil {
		return 0, 0, 0, err
	}
	return dc.Val(), pc.Val(), ac.Val(), nil
}
