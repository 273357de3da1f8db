package numgen

import (
	"context"
	"math"
	"testing"

	"github.com/ceyewan/numkit/xerrors"
)

func TestMemoryCounterStore_IncrBy(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	v, err := store.IncrBy(ctx, "k", 1)
	if err != nil {
		t.Fatalf("IncrBy() error = %v", err)
	}
	if v != 1 {
		t.Errorf("IncrBy() from zero = %d, want 1", v)
	}

	v, err = store.IncrBy(ctx, "k", 10)
	if err != nil {
		t.Fatalf("IncrBy() error = %v", err)
	}
	if v != 11 {
		t.Errorf("IncrBy() = %d, want 11", v)
	}
}

func TestMemoryCounterStore_Overflow(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	if _, err := store.AdvanceAtLeast(ctx, "k", math.MaxInt64-5); err != nil {
		t.Fatalf("AdvanceAtLeast() error = %v", err)
	}

	// 不会回绕，而是报告溢出且不改变计数器
	if _, err := store.IncrBy(ctx, "k", 10); !xerrors.Is(err, ErrSequenceOverflow) {
		t.Errorf("IncrBy() error = %v, want ErrSequenceOverflow", err)
	}
	if got := store.Current("k"); got != math.MaxInt64-5 {
		t.Errorf("Current() = %d, counter mutated on overflow", got)
	}
}

func TestMemoryCounterStore_AdvanceAtLeast(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	v, err := store.AdvanceAtLeast(ctx, "k", 100)
	if err != nil {
		t.Fatalf("AdvanceAtLeast() error = %v", err)
	}
	if v != 100 {
		t.Errorf("AdvanceAtLeast() = %d, want 100", v)
	}

	// 只进不退
	v, err = store.AdvanceAtLeast(ctx, "k", 50)
	if err != nil {
		t.Fatalf("AdvanceAtLeast() error = %v", err)
	}
	if v != 100 {
		t.Errorf("AdvanceAtLeast() with lower floor = %d, want 100", v)
	}

	// 播种 initialSeq=0 时 floor 为 -1
	v, err = store.AdvanceAtLeast(ctx, "fresh", -1)
	if err != nil {
		t.Fatalf("AdvanceAtLeast() error = %v", err)
	}
	if v != -1 {
		t.Errorf("AdvanceAtLeast(-1) = %d, want -1", v)
	}
	if next, _ := store.IncrBy(ctx, "fresh", 1); next != 0 {
		t.Errorf("IncrBy() after -1 seed = %d, want 0", next)
	}
}

func TestMemoryCounterStore_FailureInjection(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	store.SetUnavailable(true)
	if _, err := store.IncrBy(ctx, "k", 1); !xerrors.Is(err, ErrStoreUnavailable) {
		t.Errorf("IncrBy() error = %v, want ErrStoreUnavailable", err)
	}
	if err := store.Probe(ctx); err == nil {
		t.Error("Probe() = nil while unavailable")
	}

	store.SetUnavailable(false)
	if err := store.Probe(ctx); err != nil {
		t.Errorf("Probe() error = %v after recovery", err)
	}

	// 瞬时故障只消费指定次数
	store.FailNext(2)
	for i := 0; i < 2; i++ {
		if _, err := store.IncrBy(ctx, "k", 1); err == nil {
			t.Fatalf("IncrBy() call %d succeeded, want injected failure", i+1)
		}
	}
	if _, err := store.IncrBy(ctx, "k", 1); err != nil {
		t.Errorf("IncrBy() error = %v after failures consumed", err)
	}
}

func TestMemoryRuleStore(t *testing.T) {
	store := newMemoryRuleStore()
	ctx := context.Background()

	rule, err := ParseRule("ORDER", "O-{SEQ:4}", 4, 1)
	if err != nil {
		t.Fatalf("ParseRule() error = %v", err)
	}

	if err := store.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(ctx, rule); !xerrors.Is(err, ErrPrefixExists) {
		t.Errorf("Create() twice error = %v, want ErrPrefixExists", err)
	}

	got, err := store.Get(ctx, "ORDER")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Format != "O-{SEQ:4}" {
		t.Errorf("Get().Format = %q", got.Format)
	}

	if _, err := store.Get(ctx, "GHOST"); !xerrors.Is(err, ErrPrefixNotFound) {
		t.Errorf("Get() missing error = %v, want ErrPrefixNotFound", err)
	}

	if err := store.Delete(ctx, "ORDER"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "ORDER"); !xerrors.Is(err, ErrPrefixNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrPrefixNotFound", err)
	}
}
