package numgen

import (
	"context"
	"sync"
)

// registry 前缀规则的读穿缓存。
//
// 规则注册后不可变更，因此缓存命中的条目永远有效，
// 只有未命中时才会回源到 RuleStore。
type registry struct {
	store RuleStore

	mu    sync.RWMutex
	cache map[string]*PrefixRule
}

func newRegistry(store RuleStore) *registry {
	return &registry{
		store: store,
		cache: make(map[string]*PrefixRule),
	}
}

// create 向存储写入规则，成功后写入缓存
func (r *registry) create(ctx context.Context, rule *PrefixRule) error {
	if err := r.store.Create(ctx, rule); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[rule.PrefixKey] = rule
	r.mu.Unlock()
	return nil
}

// get 读取规则，缓存未命中时回源
func (r *registry) get(ctx context.Context, prefixKey string) (*PrefixRule, error) {
	r.mu.RLock()
	rule, ok := r.cache[prefixKey]
	r.mu.RUnlock()
	if ok {
		return rule, nil
	}

	rule, err := r.store.Get(ctx, prefixKey)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[prefixKey] = rule
	r.mu.Unlock()
	return rule, nil
}

// remove 删除规则并失效缓存；仅用于注册失败的回滚
func (r *registry) remove(ctx context.Context, prefixKey string) error {
	r.mu.Lock()
	delete(r.cache, prefixKey)
	r.mu.Unlock()
	return r.store.Delete(ctx, prefixKey)
}
