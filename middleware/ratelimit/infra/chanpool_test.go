package infra

import (
	"context"
	"testing"
	"time"
)

func TestChanPool_TryAcquireFailsWhenFull(t *testing.T) {
	p := NewChanPool(1)

	release, ok := p.TryAcquire()
	if !ok {
		t.Fatalf("expected first TryAcquire to succeed")
	}
	if _, ok := p.TryAcquire(); ok {
		t.Fatalf("expected second TryAcquire to fail while slot is held")
	}

	release()
	if _, ok := p.TryAcquire(); !ok {
		t.Fatalf("expected TryAcquire to succeed after release")
	}
}

func TestChanPool_AcquireHonorsContext(t *testing.T) {
	p := NewChanPool(1)
	if _, ok := p.Acquire(context.Background()); !ok {
		t.Fatalf("expected first Acquire to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected Acquire to fail when ctx expires")
	}
}
