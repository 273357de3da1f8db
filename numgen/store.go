package numgen

import "context"

// CounterStore 共享计数器存储的能力接口。
//
// 这是引擎对外部存储的全部要求：一个按前缀键划分的原子自增原语，
// 一个只进不退的条件推进原语（用于注册播种和分区恢复对账），以及
// 一个可达性探测。任何满足该接口的后端都可在启动时通过配置选择。
type CounterStore interface {
	// IncrBy 原子地将 key 对应的计数器增加 delta，返回增加后的值。
	// 计数器不存在时从 0 开始。增加会越过最大可表示值时返回
	// ErrSequenceOverflow 而不是回绕。
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// AdvanceAtLeast 原子地将计数器推进到不低于 floor 的值并返回当前值。
	// 当前值已不低于 floor 时不做修改；绝不回退。
	AdvanceAtLeast(ctx context.Context, key string, floor int64) (int64, error)

	// Probe 探测存储可达性；不可达时返回非 nil 错误。
	Probe(ctx context.Context) error
}

// RuleStore 前缀规则的持久化接口
type RuleStore interface {
	// Create 仅当前缀键不存在时写入规则；已存在时返回 ErrPrefixExists。
	Create(ctx context.Context, rule *PrefixRule) error

	// Get 读取规则；不存在时返回 ErrPrefixNotFound。
	Get(ctx context.Context, prefixKey string) (*PrefixRule, error)

	// Delete 删除规则；仅用于注册失败时的回滚与管理操作。
	Delete(ctx context.Context, prefixKey string) error
}
