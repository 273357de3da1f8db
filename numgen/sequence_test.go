package numgen

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/numkit/testkit"
)

// newTestEngine 构造内存后端引擎；探测间隔拉长，
// 由各用例直接翻转健康标记来驱动确定性的恢复路径
func newTestEngine(t *testing.T) (*engine, *MemoryCounterStore) {
	t.Helper()

	store := NewMemoryCounterStore()
	cfg := &Config{
		Store:         "memory",
		BlockSize:     10,
		StoreTimeout:  200 * time.Millisecond,
		ProbeInterval: time.Hour,
	}

	eng, err := NewWithStores(cfg, store, newMemoryRuleStore(),
		WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter()))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	return eng.(*engine), store
}

func TestEngine_FirstNumberEqualsInitialSeq(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ORDER", "ORDER-{year}-{SEQ:6}", 6, 1000)
	require.NoError(t, err)

	num, err := eng.Next(ctx, "ORDER")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORDER-\d{4}-001000$`), num.Number)
	assert.Equal(t, int64(1000), num.Value)
	assert.Equal(t, ModeNormal, num.Mode)
}

func TestEngine_StrictlyIncreasingPerPrefix(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "SEQ", "{SEQ:4}", 4, 1)
	require.NoError(t, err)

	prev := int64(0)
	for i := 0; i < 50; i++ {
		num, err := eng.Next(ctx, "SEQ")
		require.NoError(t, err)
		assert.Greater(t, num.Value, prev)
		prev = num.Value
	}
}

func TestEngine_CrossPrefixIsolation(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "A", "A-{SEQ:3}", 3, 1)
	require.NoError(t, err)
	_, err = eng.Register(ctx, "B", "B-{SEQ:3}", 3, 1)
	require.NoError(t, err)

	// 交替发放，两个前缀各自独立计数
	for i := 1; i <= 2; i++ {
		numA, err := eng.Next(ctx, "A")
		require.NoError(t, err)
		numB, err := eng.Next(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("A-%03d", i), numA.Number)
		assert.Equal(t, fmt.Sprintf("B-%03d", i), numB.Number)
	}

	// A 被强制分区不影响 B
	require.NoError(t, eng.ForcePartition(ctx, "A"))
	numB, err := eng.Next(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, ModeNormal, numB.Mode)
	assert.Equal(t, "B-003", numB.Number)
}

func TestEngine_RegisterIsCreateOnce(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "DUPLICATE", "D-{SEQ:4}", 4, 100)
	require.NoError(t, err)

	// 完全相同的规则体也拒绝
	_, err = eng.Register(ctx, "DUPLICATE", "D-{SEQ:4}", 4, 100)
	assert.ErrorIs(t, err, ErrPrefixExists)

	// 不同的规则体同样拒绝，且原规则不变
	_, err = eng.Register(ctx, "DUPLICATE", "X-{SEQ:8}", 8, 999)
	assert.ErrorIs(t, err, ErrPrefixExists)

	rule, err := eng.Rule(ctx, "DUPLICATE")
	require.NoError(t, err)
	assert.Equal(t, int64(4), rule.SeqLength)
	assert.Equal(t, int64(100), rule.InitialSeq)
}

func TestEngine_RegisterRollsBackOnSeedFailure(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	store.SetUnavailable(true)
	_, err := eng.Register(ctx, "ROLLBACK", "R-{SEQ:4}", 4, 10)
	require.Error(t, err)

	// 注册是全有或全无的：播种失败后同一键可重新注册
	store.SetUnavailable(false)
	_, err = eng.Register(ctx, "ROLLBACK", "R-{SEQ:4}", 4, 10)
	require.NoError(t, err)

	num, err := eng.Next(ctx, "ROLLBACK")
	require.NoError(t, err)
	assert.Equal(t, "R-0010", num.Number)
}

func TestEngine_NextUnregisteredPrefix(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Next(context.Background(), "GHOST")
	assert.ErrorIs(t, err, ErrPrefixNotFound)
}

func TestEngine_InitialSeqZero(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ZERO", "Z-{SEQ:3}", 3, 0)
	require.NoError(t, err)

	num, err := eng.Next(ctx, "ZERO")
	require.NoError(t, err)
	assert.Equal(t, "Z-000", num.Number)
}

func TestEngine_TransientFailureEntersLocalSegment(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "LOAD", "L-{SEQ:4}", 4, 1)
	require.NoError(t, err)

	// 先正常发放到 50
	var last *Number
	for i := 0; i < 50; i++ {
		last, err = eng.Next(ctx, "LOAD")
		require.NoError(t, err)
	}
	require.Equal(t, int64(50), last.Value)

	// 单次失败后号段预留成功：块从 51 开始，本地分发
	store.FailNext(1)
	num, err := eng.Next(ctx, "LOAD")
	require.NoError(t, err)
	assert.Equal(t, ModeLocalSegment, num.Mode)
	assert.Equal(t, int64(51), num.Value)
	assert.False(t, strings.HasSuffix(num.Number, PartitionMarker))

	// 号段内继续本地分发，不触碰存储
	store.SetUnavailable(true)
	num, err = eng.Next(ctx, "LOAD")
	require.NoError(t, err)
	assert.Equal(t, ModeLocalSegment, num.Mode)
	assert.Equal(t, int64(52), num.Value)
	store.SetUnavailable(false)

	// 存储恢复后切回正常模式；预留已推进存储计数器，
	// 放弃的区间成为永久空洞
	eng.storeHealthy.Store(true)
	num, err = eng.Next(ctx, "LOAD")
	require.NoError(t, err)
	assert.Equal(t, ModeNormal, num.Mode)
	assert.Equal(t, int64(61), num.Value)
	assert.GreaterOrEqual(t, store.Current("LOAD"), int64(52))
}

func TestEngine_SegmentExhaustionEntersPartitioned(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "NP", "NP-{SEQ:3}", 3, 1)
	require.NoError(t, err)

	// 瞬时失败触发号段预留（块大小 10），随后存储彻底不可达
	store.FailNext(1)
	for i := 0; i < 10; i++ {
		num, err := eng.Next(ctx, "NP")
		require.NoError(t, err)
		require.Equal(t, ModeLocalSegment, num.Mode)
	}
	store.SetUnavailable(true)

	// 号段耗尽且存储不可达：进入分区模式，号码带标记
	num, err := eng.Next(ctx, "NP")
	require.NoError(t, err)
	assert.Equal(t, ModePartitioned, num.Mode)
	assert.True(t, strings.HasSuffix(num.Number, PartitionMarker))
}

func TestEngine_TotalOutageEntersPartitionedDirectly(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "OUT", "O-{SEQ:3}", 3, 1)
	require.NoError(t, err)

	// 首次调用与号段预留都失败：直接进入分区模式
	store.SetUnavailable(true)
	num, err := eng.Next(ctx, "OUT")
	require.NoError(t, err)
	assert.Equal(t, ModePartitioned, num.Mode)
	assert.True(t, strings.HasSuffix(num.Number, PartitionMarker))
}

func TestEngine_PartitionedRecoveryReconciles(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "REC", "R-{SEQ:3}", 3, 1)
	require.NoError(t, err)

	// 正常发放到 5，然后彻底断开
	for i := 0; i < 5; i++ {
		_, err := eng.Next(ctx, "REC")
		require.NoError(t, err)
	}
	store.SetUnavailable(true)
	num, err := eng.Next(ctx, "REC")
	require.NoError(t, err)
	require.Equal(t, ModePartitioned, num.Mode)

	// 恢复后对账：存储计数器推进到不低于已知最高值，
	// 随后的正常发放不会重复已发放的值
	store.SetUnavailable(false)
	eng.storeHealthy.Store(true)
	num, err = eng.Next(ctx, "REC")
	require.NoError(t, err)
	assert.Equal(t, ModeNormal, num.Mode)
	assert.Greater(t, num.Value, int64(5))
	assert.False(t, strings.HasSuffix(num.Number, PartitionMarker))
}

func TestEngine_ForcePartition(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "DRILL", "D-{SEQ:3}", 3, 1)
	require.NoError(t, err)

	_, err = eng.Next(ctx, "DRILL")
	require.NoError(t, err)
	committed := store.Current("DRILL")

	// 存储可达也立即切入分区模式
	require.NoError(t, eng.ForcePartition(ctx, "DRILL"))
	num, err := eng.Next(ctx, "DRILL")
	require.NoError(t, err)
	assert.Equal(t, ModePartitioned, num.Mode)
	assert.True(t, strings.HasSuffix(num.Number, PartitionMarker))

	// 强制分区被钉住：健康标记为真也不触发对账恢复，
	// 后续发放保持分区模式
	eng.storeHealthy.Store(true)
	for i := 0; i < 3; i++ {
		num, err = eng.Next(ctx, "DRILL")
		require.NoError(t, err)
		assert.Equal(t, ModePartitioned, num.Mode)
		assert.True(t, strings.HasSuffix(num.Number, PartitionMarker))
	}

	// 分区发放不推进共享计数器
	assert.Equal(t, committed, store.Current("DRILL"))
}

func TestEngine_ForcePartitionUnregistered(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.ForcePartition(context.Background(), "GHOST")
	assert.ErrorIs(t, err, ErrPrefixNotFound)
}

func TestEngine_OverflowIsTerminal(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "OVF", "V-{SEQ:3}", 3, 1)
	require.NoError(t, err)

	// 把计数器直接推到最大可表示值
	_, err = store.AdvanceAtLeast(ctx, "OVF", math.MaxInt64)
	require.NoError(t, err)

	_, err = eng.Next(ctx, "OVF")
	assert.ErrorIs(t, err, ErrSequenceOverflow)

	// 闭锁：即使存储健康，后续请求也不再尝试
	_, err = eng.Next(ctx, "OVF")
	assert.ErrorIs(t, err, ErrSequenceOverflow)
}

func TestEngine_ConcurrentUniqueness(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Register(ctx, "CONC", "C-{SEQ:6}", 6, 1)
	require.NoError(t, err)

	const (
		workers = 20
		perWork = 50
	)

	values := make(chan int64, workers*perWork)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWork; j++ {
				num, err := eng.Next(ctx, "CONC")
				assert.NoError(t, err)
				values <- num.Value
			}
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool, workers*perWork)
	for v := range values {
		assert.False(t, seen[v], "value %d issued twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers*perWork)
}

func TestEngine_StoreTimeoutTriggersDegradation(t *testing.T) {
	store := NewMemoryCounterStore()
	cfg := &Config{
		Store:         "memory",
		BlockSize:     10,
		StoreTimeout:  50 * time.Millisecond,
		ProbeInterval: time.Hour,
	}
	eng, err := NewWithStores(cfg, &slowStore{CounterStore: store, delay: 200 * time.Millisecond}, newMemoryRuleStore(),
		WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter()))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	ctx := context.Background()
	_, err = eng.Register(ctx, "SLOW", "S-{SEQ:3}", 3, 1)
	// 播种本身也会超时，注册失败
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreTimeout)
}

// slowStore 包装存储并注入延迟，用于超时路径测试
type slowStore struct {
	CounterStore
	delay time.Duration
}

func (s *slowStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if err := sleepCtx(ctx, s.delay); err != nil {
		return 0, err
	}
	return s.CounterStore.IncrBy(ctx, key, delta)
}

func (s *slowStore) AdvanceAtLeast(ctx context.Context, key string, floor int64) (int64, error) {
	if err := sleepCtx(ctx, s.delay); err != nil {
		return 0, err
	}
	return s.CounterStore.AdvanceAtLeast(ctx, key, floor)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
