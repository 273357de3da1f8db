package numgen

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/numkit/clog"
	"github.com/ceyewan/numkit/metrics"
	"github.com/ceyewan/numkit/xerrors"
)

// Mode 号码生成模式
type Mode int

const (
	// ModeNormal 正常模式：每次请求对共享计数器做一次原子自增
	ModeNormal Mode = iota

	// ModeLocalSegment 本地号段模式：一次性从存储预留号段，本地分发
	ModeLocalSegment

	// ModePartitioned 分区模式：存储不可达且无号段可用，
	// 发放带标记的时钟派生号码
	ModePartitioned
)

// String 返回模式名称
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeLocalSegment:
		return "local_segment"
	case ModePartitioned:
		return "partitioned"
	default:
		return "unknown"
	}
}

// localBlock 预留的连续号段 [next, end]
type localBlock struct {
	next int64
	end  int64
}

// exhausted 号段是否已分发完
func (b localBlock) exhausted() bool {
	return b.next > b.end
}

// counterState 单个前缀的计数器状态。
//
// mu 覆盖模式检查、号段分发与模式切换的完整临界区，
// 同一前缀的请求串行观察模式与号段，不同前缀的状态互不阻塞。
type counterState struct {
	mu sync.Mutex

	mode  Mode
	block localBlock

	// lastKnownCommitted 本节点已知的最高已发放计数器值，
	// 用于恢复时对账，保证存储计数器只进不退
	lastKnownCommitted int64

	// partitionEpoch 进入分区模式的次数，参与分区值的派生，
	// 降低同一前缀多次分区期间的取值碰撞概率
	partitionEpoch int64

	// forced 管理操作置位：强制分区不依赖故障检测，存储可达时
	// 也不自动恢复，演练结束由管理员重启进程
	forced bool

	// overflowed 溢出闭锁：一旦置位，该前缀的所有生成请求
	// 都返回 ErrSequenceOverflow，直到进程重启且管理员重置计数器
	overflowed bool
}

// next 生成下一个号码值；调用方必须持有 st.mu
func (e *engine) next(ctx context.Context, st *counterState, key string) (int64, Mode, error) {
	if st.overflowed {
		return 0, st.mode, xerrors.Wrapf(ErrSequenceOverflow, "prefix %q", key)
	}

	// 恢复检查：探测器报告存储可达时，在请求入口处切回正常模式。
	// 探测器自身从不发号，也从不阻塞请求路径。
	// 管理操作强制的分区不参与恢复，避免切换在一次发放前就被撤销。
	if st.mode != ModeNormal && !st.forced && e.storeHealthy.Load() {
		e.tryRecover(ctx, st, key)
	}

	switch st.mode {
	case ModeNormal:
		return e.nextNormal(ctx, st, key)
	case ModeLocalSegment:
		return e.nextLocalSegment(ctx, st, key)
	default:
		return e.nextPartitioned(ctx, st, key)
	}
}

// nextNormal 正常模式发号；存储失败时触发降级
func (e *engine) nextNormal(ctx context.Context, st *counterState, key string) (int64, Mode, error) {
	value, err := e.storeIncr(ctx, key, 1)
	if err == nil {
		if value > st.lastKnownCommitted {
			st.lastKnownCommitted = value
		}
		return value, ModeNormal, nil
	}

	if xerrors.Is(err, ErrSequenceOverflow) {
		st.overflowed = true
		e.logger.Error("sequence overflow, prefix is now terminal",
			clog.String("prefix", key))
		return 0, ModeNormal, xerrors.Wrapf(ErrSequenceOverflow, "prefix %q", key)
	}

	// 存储不可达：尝试一次号段预留，失败则直接进入分区模式
	e.logger.Warn("counter store unreachable, reserving local segment",
		clog.String("prefix", key), clog.Error(err))
	e.storeHealthy.Store(false)

	end, rerr := e.storeIncr(ctx, key, e.cfg.BlockSize)
	if rerr == nil {
		st.block = localBlock{next: end - e.cfg.BlockSize + 1, end: end}
		e.transition(ctx, st, key, ModeLocalSegment)
		return e.nextLocalSegment(ctx, st, key)
	}
	if xerrors.Is(rerr, ErrSequenceOverflow) {
		st.overflowed = true
		return 0, ModeNormal, xerrors.Wrapf(ErrSequenceOverflow, "prefix %q", key)
	}

	e.logger.Warn("segment reservation failed, entering partitioned mode",
		clog.String("prefix", key), clog.Error(rerr))
	e.transition(ctx, st, key, ModePartitioned)
	return e.nextPartitioned(ctx, st, key)
}

// nextLocalSegment 从本地号段分发；耗尽后进入分区模式
func (e *engine) nextLocalSegment(ctx context.Context, st *counterState, key string) (int64, Mode, error) {
	if st.block.exhausted() {
		e.logger.Warn("local segment exhausted while store unreachable",
			clog.String("prefix", key))
		e.transition(ctx, st, key, ModePartitioned)
		return e.nextPartitioned(ctx, st, key)
	}

	value := st.block.next
	st.block.next++
	if value > st.lastKnownCommitted {
		st.lastKnownCommitted = value
	}
	return value, ModeLocalSegment, nil
}

// nextPartitioned 发放时钟派生的分区值；不触碰共享计数器
func (e *engine) nextPartitioned(_ context.Context, st *counterState, _ string) (int64, Mode, error) {
	value := partitionValue(time.Now(), st.partitionEpoch, e.disambiguator)
	return value, ModePartitioned, nil
}

// tryRecover 在请求入口处尝试切回正常模式；调用方必须持有 st.mu。
// 恢复失败时保持当前模式，不向调用方暴露错误。
func (e *engine) tryRecover(ctx context.Context, st *counterState, key string) {
	switch st.mode {
	case ModeLocalSegment:
		// 号段预留本身已推进了存储计数器，放弃剩余区间即可安全切回；
		// 未用完的区间成为永久空洞，绝不重用
		e.transition(ctx, st, key, ModeNormal)
		st.block = localBlock{}
	case ModePartitioned:
		// 对账提交：把存储计数器推进到不低于已知最高值之后，只进不退
		if _, err := e.storeAdvance(ctx, key, st.lastKnownCommitted+1); err != nil {
			e.logger.Warn("reconciliation commit failed, staying partitioned",
				clog.String("prefix", key), clog.Error(err))
			e.storeHealthy.Store(false)
			return
		}
		e.transition(ctx, st, key, ModeNormal)
	}
}

// forcePartition 管理操作：无视实际可达性，立即进入分区模式并钉住，
// 后续请求保持分区发放直到进程重启
func (e *engine) forcePartition(ctx context.Context, st *counterState, key string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.forced = true
	if st.mode == ModePartitioned {
		return
	}
	if st.mode == ModeLocalSegment {
		st.block = localBlock{}
	}
	e.transition(ctx, st, key, ModePartitioned)
}

// transition 执行模式切换并记录；调用方必须持有 st.mu
func (e *engine) transition(ctx context.Context, st *counterState, key string, to Mode) {
	from := st.mode
	st.mode = to
	if to == ModePartitioned {
		st.partitionEpoch++
	}

	e.logger.Info("mode transition",
		clog.String("prefix", key),
		clog.String("from", from.String()),
		clog.String("to", to.String()))
	e.transitions.Inc(ctx,
		metrics.L("prefix", key),
		metrics.L("from", from.String()),
		metrics.L("to", to.String()))
}

// storeIncr 带超时与耗时指标的存储自增。
// 超时按存储不可达处理（ErrStoreTimeout），绝不无限等待。
func (e *engine) storeIncr(ctx context.Context, key string, delta int64) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	value, err := e.counters.IncrBy(opCtx, key, delta)
	e.storeLatency.Record(ctx, time.Since(start).Seconds(), metrics.L("op", "incr_by"))

	if err != nil {
		if xerrors.Is(err, context.DeadlineExceeded) {
			return 0, xerrors.Wrapf(ErrStoreTimeout, "incr by %d", delta)
		}
		return 0, err
	}
	return value, nil
}

// storeAdvance 带超时与耗时指标的条件推进
func (e *engine) storeAdvance(ctx context.Context, key string, floor int64) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	value, err := e.counters.AdvanceAtLeast(opCtx, key, floor)
	e.storeLatency.Record(ctx, time.Since(start).Seconds(), metrics.L("op", "advance_at_least"))

	if err != nil {
		if xerrors.Is(err, context.DeadlineExceeded) {
			return 0, xerrors.Wrapf(ErrStoreTimeout, "advance to %d", floor)
		}
		return 0, err
	}
	return value, nil
}

// partitionValue 派生分区模式的取值：
// 毫秒时间戳占高位，分区纪元与进程级区分码占低位。
// 唯一性依赖时钟精度与区分码，是概率性的，不做跨节点保证。
func partitionValue(now time.Time, epoch, disambiguator int64) int64 {
	return now.UnixMilli()<<22 | (epoch&0x3FF)<<12 | (disambiguator & 0xFFF)
}

// prober 后台可达性探测循环。
// 只翻转健康标记，恢复动作在下一次生成请求的入口处完成。
func (e *engine) prober() {
	ticker := time.NewTicker(e.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.StoreTimeout)
			err := e.counters.Probe(ctx)
			cancel()

			healthy := err == nil
			if e.storeHealthy.Swap(healthy) != healthy {
				if healthy {
					e.logger.Info("counter store reachable again")
				} else {
					e.logger.Warn("counter store probe failed", clog.Error(err))
				}
			}
		}
	}
}
