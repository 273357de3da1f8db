package numgen

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/numkit/xerrors"
)

// MemoryCounterStore 内存实现的计数器存储。
//
// 单进程内满足 CounterStore 的全部语义，主要用于测试与本地开发；
// 通过 SetUnavailable 注入存储故障，驱动状态机的降级路径。
type MemoryCounterStore struct {
	mu          sync.Mutex
	counters    map[string]int64
	unavailable atomic.Bool
	failures    atomic.Int64
}

// NewMemoryCounterStore 创建内存计数器存储
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]int64),
	}
}

// SetUnavailable 控制故障注入：为 true 时所有操作返回 ErrStoreUnavailable
func (m *MemoryCounterStore) SetUnavailable(unavailable bool) {
	m.unavailable.Store(unavailable)
}

// FailNext 注入瞬时故障：接下来的 n 次操作返回 ErrStoreUnavailable，
// 之后自动恢复。用于模拟"单次调用失败但号段预留成功"的场景。
func (m *MemoryCounterStore) FailNext(n int64) {
	m.failures.Store(n)
}

// failOnce 消费一次注入的故障
func (m *MemoryCounterStore) failOnce() bool {
	for {
		n := m.failures.Load()
		if n <= 0 {
			return false
		}
		if m.failures.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// IncrBy 原子自增
func (m *MemoryCounterStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if m.unavailable.Load() || m.failOnce() {
		return 0, ErrStoreUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.counters[key]
	if cur > math.MaxInt64-delta {
		return 0, ErrSequenceOverflow
	}
	cur += delta
	m.counters[key] = cur
	return cur, nil
}

// AdvanceAtLeast 条件推进，绝不回退
func (m *MemoryCounterStore) AdvanceAtLeast(ctx context.Context, key string, floor int64) (int64, error) {
	if m.unavailable.Load() || m.failOnce() {
		return 0, ErrStoreUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.counters[key]
	if !ok || cur < floor {
		m.counters[key] = floor
		return floor, nil
	}
	return cur, nil
}

// Probe 探测可达性
func (m *MemoryCounterStore) Probe(ctx context.Context) error {
	if m.unavailable.Load() {
		return ErrStoreUnavailable
	}
	return nil
}

// Current 返回计数器当前值，不存在时返回 0；用于测试断言
func (m *MemoryCounterStore) Current(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// memoryRuleStore 内存实现的规则存储（非导出）
type memoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*PrefixRule
}

func newMemoryRuleStore() *memoryRuleStore {
	return &memoryRuleStore{
		rules: make(map[string]*PrefixRule),
	}
}

// Create 仅当键不存在时写入
func (m *memoryRuleStore) Create(ctx context.Context, rule *PrefixRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rules[rule.PrefixKey]; exists {
		return xerrors.Wrapf(ErrPrefixExists, "prefix %q", rule.PrefixKey)
	}
	m.rules[rule.PrefixKey] = rule
	return nil
}

// Get 读取规则
func (m *memoryRuleStore) Get(ctx context.Context, prefixKey string) (*PrefixRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[prefixKey]
	if !ok {
		return nil, xerrors.Wrapf(ErrPrefixNotFound, "prefix %q", prefixKey)
	}
	return rule, nil
}

// Delete 删除规则
func (m *memoryRuleStore) Delete(ctx context.Context, prefixKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, prefixKey)
	return nil
}
