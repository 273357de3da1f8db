package numgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/numkit/connector"
	"github.com/ceyewan/numkit/xerrors"
)

// advanceScript 条件推进脚本：仅当当前值低于 floor（或键不存在）时写入 floor。
// KEYS[1]: 计数器键
// ARGV[1]: floor
const advanceScript = `
local floor = tonumber(ARGV[1])
local cur = redis.call("GET", KEYS[1])
if cur == false or tonumber(cur) < floor then
  redis.call("SET", KEYS[1], floor)
  return floor
end
return tonumber(cur)
`

// redisCounterStore Redis 实现的计数器存储（非导出）
type redisCounterStore struct {
	client  *redis.Client
	prefix  string
	advance *redis.Script
}

// NewRedisCounterStore 创建 Redis 计数器存储
//
// keyPrefix 用于隔离不同部署的键空间，计数器键形如 "<prefix>:seq:<key>"。
func NewRedisCounterStore(redisConn connector.RedisConnector, keyPrefix string) (CounterStore, error) {
	if redisConn == nil {
		return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_nil")
	}
	return &redisCounterStore{
		client:  redisConn.GetClient(),
		prefix:  keyPrefix,
		advance: redis.NewScript(advanceScript),
	}, nil
}

// counterKey 构建计数器的完整 Redis 键
func (r *redisCounterStore) counterKey(key string) string {
	return fmt.Sprintf("%s:seq:%s", r.prefix, key)
}

// IncrBy 原子自增，基于 Redis INCRBY
func (r *redisCounterStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	result, err := r.client.IncrBy(ctx, r.counterKey(key), delta).Result()
	if err != nil {
		// Redis 在 64 位溢出时拒绝自增而不是回绕
		if strings.Contains(err.Error(), "increment or decrement would overflow") {
			return 0, xerrors.Wrap(ErrSequenceOverflow, "redis incrby")
		}
		return 0, xerrors.Wrap(err, "redis incrby failed")
	}
	return result, nil
}

// AdvanceAtLeast 条件推进，基于 Lua 脚本保证原子性
func (r *redisCounterStore) AdvanceAtLeast(ctx context.Context, key string, floor int64) (int64, error) {
	result, err := r.advance.Run(ctx, r.client, []string{r.counterKey(key)}, floor).Int64()
	if err != nil {
		return 0, xerrors.Wrap(err, "redis advance failed")
	}
	return result, nil
}

// Probe 以 PING 探测可达性
func (r *redisCounterStore) Probe(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return xerrors.Wrap(err, "redis ping failed")
	}
	return nil
}

// redisRuleStore Redis 实现的规则存储（非导出）。
//
// 规则以 JSON 存于 "<prefix>:rule:<key>"，SETNX 保证注册的一次性语义，
// 使重启后的实例与其他节点都能看到已注册的规则。
type redisRuleStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRuleStore 创建 Redis 规则存储
func NewRedisRuleStore(redisConn connector.RedisConnector, keyPrefix string) (RuleStore, error) {
	if redisConn == nil {
		return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_nil")
	}
	return &redisRuleStore{
		client: redisConn.GetClient(),
		prefix: keyPrefix,
	}, nil
}

// ruleKey 构建规则的完整 Redis 键
func (r *redisRuleStore) ruleKey(prefixKey string) string {
	return fmt.Sprintf("%s:rule:%s", r.prefix, prefixKey)
}

// Create 仅当键不存在时写入（SETNX）
func (r *redisRuleStore) Create(ctx context.Context, rule *PrefixRule) error {
	payload, err := json.Marshal(rule)
	if err != nil {
		return xerrors.Wrap(err, "marshal rule failed")
	}

	ok, err := r.client.SetNX(ctx, r.ruleKey(rule.PrefixKey), payload, 0).Result()
	if err != nil {
		return xerrors.Wrap(err, "redis setnx failed")
	}
	if !ok {
		return xerrors.Wrapf(ErrPrefixExists, "prefix %q", rule.PrefixKey)
	}
	return nil
}

// Get 读取并重新解析规则
func (r *redisRuleStore) Get(ctx context.Context, prefixKey string) (*PrefixRule, error) {
	payload, err := r.client.Get(ctx, r.ruleKey(prefixKey)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, xerrors.Wrapf(ErrPrefixNotFound, "prefix %q", prefixKey)
		}
		return nil, xerrors.Wrap(err, "redis get failed")
	}

	var stored PrefixRule
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return nil, xerrors.Wrap(err, "unmarshal rule failed")
	}

	// 存储层只保留原始字段，token 列表在读取时重建
	rule, err := ParseRule(stored.PrefixKey, stored.Format, stored.SeqLength, stored.InitialSeq)
	if err != nil {
		return nil, xerrors.Wrapf(err, "stored rule for prefix %q is corrupt", prefixKey)
	}
	return rule, nil
}

// Delete 删除规则
func (r *redisRuleStore) Delete(ctx context.Context, prefixKey string) error {
	if err := r.client.Del(ctx, r.ruleKey(prefixKey)).Err(); err != nil {
		return xerrors.Wrap(err, "redis del failed")
	}
	return nil
}
