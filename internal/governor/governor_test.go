package governor

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestCooldownDropsInsideWindow(t *testing.T) {
	g := NewCooldown(time.Second)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	if !g.Admit(base) {
		t.Fatalf("first sample should be admitted")
	}
	if g.Admit(base.Add(300 * time.Millisecond)) {
		t.Fatalf("sample 0.3s after admission should be dropped")
	}
	if got := g.LastAdmitted(); !got.Equal(base) {
		t.Fatalf("dropped sample moved last admitted to %v", got)
	}
}

func TestCooldownAdmitsAfterWindow(t *testing.T) {
	g := NewCooldown(time.Second)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	if !g.Admit(base) {
		t.Fatalf("first sample should be admitted")
	}
	if !g.Admit(base.Add(1200 * time.Millisecond)) {
		t.Fatalf("sample 1.2s later should be admitted")
	}
}

func TestCooldownSpacingHoldsForRandomArrivals(t *testing.T) {
	const cooldown = 500 * time.Millisecond
	g := NewCooldown(cooldown)
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var admitted []time.Time
	for i := 0; i < 2000; i++ {
		now = now.Add(time.Duration(rng.Int63n(int64(300 * time.Millisecond))))
		if g.Admit(now) {
			admitted = append(admitted, now)
		}
	}
	if len(admitted) < 2 {
		t.Fatalf("expected several admissions, got %d", len(admitted))
	}
	for i := 1; i < len(admitted); i++ {
		if gap := admitted[i].Sub(admitted[i-1]); gap < cooldown {
			t.Fatalf("admissions %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestCooldownRejectsOutOfOrderSample(t *testing.T) {
	g := NewCooldown(time.Second)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g.Admit(base)
	if g.Admit(base.Add(-5 * time.Second)) {
		t.Fatalf("sample older than last admission should be dropped")
	}
}

func TestCooldownZeroIntervalAdmitsAll(t *testing.T) {
	g := NewCooldown(0)
	now := time.Now()
	for i := 0; i < 10; i++ {
		if !g.Admit(now) {
			t.Fatalf("zero interval should admit every sample")
		}
	}
}

func TestCooldownWaitDoesNotBlock(t *testing.T) {
	g := NewCooldown(time.Hour)
	start := time.Now()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("cooldown wait blocked")
	}
}

func TestPacerThroughput(t *testing.T) {
	const (
		fps    = 100.0
		cycles = 50
	)
	p := NewPacer(fps)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < cycles; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
		if !p.Admit(time.Now()) {
			t.Fatalf("pacer must admit every sample")
		}
	}
	elapsed := time.Since(start)
	// First slot is free, the remaining 49 are 10ms apart.
	if elapsed < 470*time.Millisecond {
		t.Fatalf("pacer ran too fast: %v for %d cycles", elapsed, cycles)
	}
	if elapsed > 900*time.Millisecond {
		t.Fatalf("pacer ran too slow: %v for %d cycles", elapsed, cycles)
	}
}

func TestPacerDoesNotCatchUp(t *testing.T) {
	p := NewPacer(50)
	ctx := context.Background()

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	// Simulate a slow capture spanning several slots.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	// One slot was banked, the next two must each take a full interval.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("pacer burst after a stall: 3 waits took %v", elapsed)
	}
}

func TestPacerWaitHonoursContext(t *testing.T) {
	p := NewPacer(0.5)
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected error from cancelled wait")
	}
}

func TestPacerDisabled(t *testing.T) {
	p := NewPacer(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("disabled pacer should not block")
	}
}
