// Package redis stores rate limit accounts in Redis so that several server
// instances can share quotas. Each account is a hash; check-and-increment
// and period reset run as Lua scripts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/service/ratelimit"
)

const (
	keyAccount  = "%s:account:%s" // prefix, api key
	keyAccounts = "%s:accounts"   // prefix; set of api keys

	// DefaultPrefix namespaces every key this package writes.
	DefaultPrefix = "emailguard"
)

const createLuaScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1],
    "id", ARGV[1], "plan", ARGV[2], "quota", ARGV[3], "used", ARGV[4],
    "reset_at", ARGV[5], "created_at", ARGV[6])
redis.call("SADD", KEYS[2], ARGV[7])
return 1
`

// Returns {consumed, field, value, ...}; consumed is -1 for a missing account.
const incrementLuaScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
    return {-1}
end
local used = tonumber(redis.call("HGET", KEYS[1], "used") or "0")
local quota = tonumber(redis.call("HGET", KEYS[1], "quota") or "0")
local consumed = 0
if used < quota then
    redis.call("HINCRBY", KEYS[1], "used", 1)
    consumed = 1
end
local out = redis.call("HGETALL", KEYS[1])
table.insert(out, 1, consumed)
return out
`

const resetLuaScript = `
local current = redis.call("HGET", KEYS[1], "reset_at")
if not current then
    return -1
end
if current ~= ARGV[1] then
    return 0
end
redis.call("HSET", KEYS[1], "used", "0", "reset_at", ARGV[2])
return 1
`

// AccountRepo implements ratelimit.Repository against Redis.
type AccountRepo struct {
	client          *goredis.Client
	prefix          string
	createScript    *goredis.Script
	incrementScript *goredis.Script
	resetScript     *goredis.Script
}

// NewAccountRepo creates a Redis-backed account repository. An empty prefix
// selects DefaultPrefix.
func NewAccountRepo(client *goredis.Client, prefix string) *AccountRepo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AccountRepo{
		client:          client,
		prefix:          prefix,
		createScript:    goredis.NewScript(createLuaScript),
		incrementScript: goredis.NewScript(incrementLuaScript),
		resetScript:     goredis.NewScript(resetLuaScript),
	}
}

func (r *AccountRepo) accountKey(key string) string {
	return fmt.Sprintf(keyAccount, r.prefix, key)
}

func (r *AccountRepo) Get(ctx context.Context, key string) (*domain.Account, error) {
	fields, err := r.client.HGetAll(ctx, r.accountKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if len(fields) == 0 {
		return nil, ratelimit.ErrNotFound
	}
	return decodeAccount(key, fields)
}

func (r *AccountRepo) Create(ctx context.Context, acct *domain.Account) error {
	created, err := r.createScript.Run(ctx, r.client,
		[]string{r.accountKey(acct.Key), fmt.Sprintf(keyAccounts, r.prefix)},
		acct.ID,
		string(acct.Plan),
		acct.Quota,
		acct.Used,
		acct.PeriodResetAt.Unix(),
		acct.CreatedAt.Unix(),
		acct.Key,
	).Int()
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if created == 0 {
		return ratelimit.ErrDuplicateKey
	}
	return nil
}

func (r *AccountRepo) Increment(ctx context.Context, key string) (*domain.Account, bool, error) {
	result, err := r.incrementScript.Run(ctx, r.client, []string{r.accountKey(key)}).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("increment usage: %w", err)
	}
	if len(result) == 0 {
		return nil, false, fmt.Errorf("increment usage: empty script reply")
	}
	consumed, _ := result[0].(int64)
	if consumed < 0 {
		return nil, false, ratelimit.ErrNotFound
	}

	fields := make(map[string]string, (len(result)-1)/2)
	for i := 1; i+1 < len(result); i += 2 {
		k, _ := result[i].(string)
		v, _ := result[i+1].(string)
		fields[k] = v
	}
	acct, err := decodeAccount(key, fields)
	if err != nil {
		return nil, false, err
	}
	return acct, consumed == 1, nil
}

func (r *AccountRepo) Reset(ctx context.Context, key string, expected, next time.Time) (bool, error) {
	swapped, err := r.resetScript.Run(ctx, r.client,
		[]string{r.accountKey(key)},
		strconv.FormatInt(expected.Unix(), 10),
		next.Unix(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("reset usage: %w", err)
	}
	if swapped < 0 {
		return false, ratelimit.ErrNotFound
	}
	return swapped == 1, nil
}

func (r *AccountRepo) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, fmt.Sprintf(keyAccounts, r.prefix)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return int(n), nil
}

func decodeAccount(key string, f map[string]string) (*domain.Account, error) {
	quota, err := strconv.Atoi(f["quota"])
	if err != nil {
		return nil, fmt.Errorf("decode account quota: %w", err)
	}
	used, err := strconv.Atoi(f["used"])
	if err != nil {
		return nil, fmt.Errorf("decode account usage: %w", err)
	}
	resetAt, err := strconv.ParseInt(f["reset_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode account reset: %w", err)
	}
	createdAt, _ := strconv.ParseInt(f["created_at"], 10, 64)
	return &domain.Account{
		ID:            f["id"],
		Key:           key,
		Plan:          domain.Plan(f["plan"]),
		Quota:         quota,
		Used:          used,
		PeriodResetAt: time.Unix(resetAt, 0).UTC(),
		CreatedAt:     time.Unix(createdAt, 0).UTC(),
	}, nil
}
