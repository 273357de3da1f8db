// Package numgen 提供带前缀的业务号码发放能力（订单号、工单号等）。
//
// 核心概念：
//   - 前缀规则：模板（如 "ORDER-{year}-{SEQ:6}"）+ 序列宽度 + 起始序号，
//     注册是一次性的，不允许覆盖
//   - 共享计数器存储：跨实例的原子自增原语（Redis / 关系库 / 内存）
//   - 三态状态机：正常（全局单调）→ 本地号段（块内唯一）→ 分区
//     （时钟派生、带 "-NP" 标记，概率唯一），存储恢复后自动对账切回
//
// 基本使用：
//
//	engine, err := numgen.New(cfg, redisConn, nil,
//	    numgen.WithLogger(logger), numgen.WithMeter(meter))
//	if err != nil {
//	    panic(err)
//	}
//	defer engine.Close()
//
//	rule, err := engine.Register(ctx, "ORDER", "ORDER-{year}-{SEQ:6}", 6, 1000)
//	num, err := engine.Next(ctx, "ORDER")
//	fmt.Println(num.Number) // "ORDER-2025-001000"
package numgen

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ceyewan/numkit/clog"
	"github.com/ceyewan/numkit/connector"
	"github.com/ceyewan/numkit/metrics"
	"github.com/ceyewan/numkit/xerrors"
)

// Number 一次发放的结果
type Number struct {
	// Number 渲染后的完整号码字符串；分区模式下以 "-NP" 结尾
	Number string `json:"number"`

	// Value 参与渲染的计数器值
	Value int64 `json:"-"`

	// Mode 发放时所处的生成模式
	Mode Mode `json:"-"`
}

// Engine 号码发放引擎接口
type Engine interface {
	// Register 注册前缀规则并播种计数器。
	// 前缀键已存在时返回 ErrPrefixExists（即使规则内容完全相同）；
	// 校验失败时一次性报告全部违规项，且不产生任何状态变更。
	Register(ctx context.Context, prefixKey, format string, seqLength, initialSeq int64) (*PrefixRule, error)

	// Rule 查询已注册的规则；未注册时返回 ErrPrefixNotFound。
	Rule(ctx context.Context, prefixKey string) (*PrefixRule, error)

	// Next 为前缀发放下一个号码；未注册时返回 ErrPrefixNotFound，
	// 计数器溢出后对该前缀永久返回 ErrSequenceOverflow。
	Next(ctx context.Context, prefixKey string) (*Number, error)

	// ForcePartition 管理操作：无视实际可达性，立即将前缀
	// 切入分区模式，用于演练与手动故障转移。
	ForcePartition(ctx context.Context, prefixKey string) error

	// Close 停止后台探测并释放资源。不关闭借用的连接器。
	Close() error
}

// engine Engine 的默认实现
type engine struct {
	cfg      *Config
	counters CounterStore
	rules    *registry
	logger   clog.Logger

	statesMu sync.Mutex
	states   map[string]*counterState

	// storeHealthy 后台探测器维护的可达性标记
	storeHealthy atomic.Bool

	// disambiguator 进程级 12 位区分码，参与分区值派生
	disambiguator int64

	issued       metrics.Counter
	transitions  metrics.Counter
	storeLatency metrics.Histogram

	closeOnce sync.Once
	closed    chan struct{}
}

// New 根据配置创建号码发放引擎。
//
// cfg.Store 选择计数器后端："redis" 需要 redisConn，"db" 需要 dbConn，
// "memory" 不需要连接器。cfg.RuleStore 为 "redis" 时规则持久化到
// Redis，实例重启后仍可见。
func New(cfg *Config, redisConn connector.RedisConnector, dbConn connector.DBConnector, opts ...Option) (Engine, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var (
		counters CounterStore
		err      error
	)
	switch cfg.Store {
	case "redis":
		counters, err = NewRedisCounterStore(redisConn, cfg.KeyPrefix)
	case "db":
		counters, err = NewDBCounterStore(dbConn)
	case "memory":
		counters = NewMemoryCounterStore()
	}
	if err != nil {
		return nil, err
	}

	var rules RuleStore
	switch cfg.RuleStore {
	case "redis":
		rules, err = NewRedisRuleStore(redisConn, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
	case "memory":
		rules = newMemoryRuleStore()
	}

	return NewWithStores(cfg, counters, rules, opts...)
}

// NewWithStores 以显式指定的存储实现创建引擎，
// 用于测试（故障注入）与自定义后端。
func NewWithStores(cfg *Config, counters CounterStore, rules RuleStore, opts ...Option) (Engine, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if counters == nil || rules == nil {
		return nil, xerrors.WithCode(ErrConnectorNil, "store_nil")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.Logger
	if logger == nil {
		logger = clog.Default()
	}
	logger = logger.WithNamespace("numgen")
	meter := o.Meter
	if meter == nil {
		meter = metrics.Discard()
	}

	issued, err := meter.Counter(MetricIssued, "Total numbers issued")
	if err != nil {
		return nil, xerrors.Wrap(err, "create issued counter failed")
	}
	transitions, err := meter.Counter(MetricModeTransitions, "Total generation mode transitions")
	if err != nil {
		return nil, xerrors.Wrap(err, "create transition counter failed")
	}
	storeLatency, err := meter.Histogram(MetricStoreLatency, "Counter store operation duration in seconds")
	if err != nil {
		return nil, xerrors.Wrap(err, "create store latency histogram failed")
	}

	u := uuid.New()
	e := &engine{
		cfg:           cfg,
		counters:      counters,
		rules:         newRegistry(rules),
		logger:        logger,
		states:        make(map[string]*counterState),
		disambiguator: int64(binary.BigEndian.Uint16(u[0:2])) & 0xFFF,
		issued:        issued,
		transitions:   transitions,
		storeLatency:  storeLatency,
		closed:        make(chan struct{}),
	}
	e.storeHealthy.Store(true)

	go e.prober()

	logger.Info("number engine initialized",
		clog.String("store", cfg.Store),
		clog.String("rule_store", cfg.RuleStore),
		clog.Int64("block_size", cfg.BlockSize))
	return e, nil
}

// Register 注册前缀规则并播种计数器
func (e *engine) Register(ctx context.Context, prefixKey, format string, seqLength, initialSeq int64) (*PrefixRule, error) {
	rule, err := ParseRule(prefixKey, format, seqLength, initialSeq)
	if err != nil {
		return nil, err
	}

	if err := e.rules.create(ctx, rule); err != nil {
		return nil, err
	}

	// 播种：把计数器推进到 initialSeq-1，首个发放值即 initialSeq。
	// 只进不退，幂等于其他节点的并发播种。
	if _, err := e.storeAdvance(ctx, prefixKey, initialSeq-1); err != nil {
		// 回滚注册，保持"全有或全无"；回滚失败仅记录
		if rerr := e.rules.remove(context.WithoutCancel(ctx), prefixKey); rerr != nil {
			e.logger.Error("rule rollback failed after seed failure",
				clog.String("prefix", prefixKey), clog.Error(rerr))
		}
		return nil, xerrors.Wrapf(err, "seed counter for prefix %q", prefixKey)
	}

	e.stateFor(rule)
	e.logger.Info("prefix registered",
		clog.String("prefix", prefixKey),
		clog.String("format", format),
		clog.Int64("initial_seq", initialSeq))
	return rule, nil
}

// Rule 查询已注册的规则
func (e *engine) Rule(ctx context.Context, prefixKey string) (*PrefixRule, error) {
	return e.rules.get(ctx, prefixKey)
}

// Next 发放下一个号码
func (e *engine) Next(ctx context.Context, prefixKey string) (*Number, error) {
	rule, err := e.rules.get(ctx, prefixKey)
	if err != nil {
		return nil, err
	}

	st := e.stateFor(rule)
	st.mu.Lock()
	value, mode, err := e.next(ctx, st, prefixKey)
	st.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.issued.Inc(ctx, metrics.L("prefix", prefixKey), metrics.L("mode", mode.String()))
	return &Number{
		Number: Assemble(rule, value, mode),
		Value:  value,
		Mode:   mode,
	}, nil
}

// ForcePartition 管理操作：立即切入分区模式
func (e *engine) ForcePartition(ctx context.Context, prefixKey string) error {
	rule, err := e.rules.get(ctx, prefixKey)
	if err != nil {
		return err
	}

	st := e.stateFor(rule)
	e.forcePartition(ctx, st, prefixKey)
	e.logger.Warn("prefix forced into partitioned mode", clog.String("prefix", prefixKey))
	return nil
}

// Close 停止后台探测
func (e *engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.logger.Info("number engine closed")
	})
	return nil
}

// stateFor 返回前缀的计数器状态，首次访问时懒初始化。
// 本地重启后状态从规则重建，已发放的历史由存储计数器本身承载。
func (e *engine) stateFor(rule *PrefixRule) *counterState {
	e.statesMu.Lock()
	defer e.statesMu.Unlock()

	st, ok := e.states[rule.PrefixKey]
	if !ok {
		st = &counterState{
			mode:               ModeNormal,
			lastKnownCommitted: rule.InitialSeq - 1,
		}
		e.states[rule.PrefixKey] = st
	}
	return st
}
