// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolSpawnFromHandler(t *testing.T) {
	t.Parallel()

	var (
		p    *workerPool[int]
		runs atomic.Int64
	)
	p = newWorkerPool(context.Background(), 3, time.Millisecond, func(_ context.Context, depth int) error {
		runs.Add(1)
		if depth < 3 {
			p.Spawn("child", depth+1)
			p.Spawn("child", depth+1)
		}

		return nil
	})

	if err := p.Submit("root", 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if fails := p.Wait(); len(fails) != 0 {
		t.Fatalf("unexpected failures: %v", fails)
	}
	if got := runs.Load(); got != 15 {
		t.Fatalf("runs=%d, want 15", got)
	}
	if p.Pending() != 0 {
		t.Fatalf("pending=%d after Wait", p.Pending())
	}
}

func TestWorkerPoolRecordsFailures(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	p := newWorkerPool(context.Background(), 2, time.Millisecond, func(_ context.Context, task string) error {
		switch task {
		case "panic":
			panic("bad input")
		case "fail":
			return errBoom
		default:
			return nil
		}
	})

	for _, task := range []string{"ok", "panic", "fail", "ok2"} {
		if err := p.Submit("z/"+task, task); err != nil {
			t.Fatalf("Submit(%s): %v", task, err)
		}
	}

	fails := p.Wait()
	if len(fails) != 2 {
		t.Fatalf("failures=%v, want 2", fails)
	}
	if fails[0].Path != "z/fail" || !errors.Is(fails[0], errBoom) {
		t.Fatalf("first failure=%v", fails[0])
	}
	if fails[1].Path != "z/panic" || !strings.Contains(fails[1].Error(), "panic: bad input") {
		t.Fatalf("second failure=%v", fails[1])
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	t.Parallel()

	p := newWorkerPool(context.Background(), 1, 0, func(context.Context, int) error { return nil })
	p.Close()

	if err := p.Submit("late", 1); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit after Close err=%v, want ErrPoolClosed", err)
	}
	if fails := p.Wait(); len(fails) != 0 {
		t.Fatalf("unexpected failures: %v", fails)
	}
}

func TestWorkerPoolCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs atomic.Int64
	p := newWorkerPool(ctx, 2, time.Millisecond, func(context.Context, int) error {
		runs.Add(1)
		return nil
	})
	for i := range 4 {
		if err := p.Submit(strconv.Itoa(i), i); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	fails := p.Wait()
	if len(fails) != 4 || runs.Load() != 0 {
		t.Fatalf("failures=%d runs=%d, want 4 and 0", len(fails), runs.Load())
	}
	for _, f := range fails {
		if !errors.Is(f, context.Canceled) {
			t.Fatalf("failure %v does not wrap context.Canceled", f)
		}
	}
}

func TestWorkerPoolIdleWorkersExit(t *testing.T) {
	t.Parallel()

	p := newWorkerPool(context.Background(), 8, time.Millisecond, func(context.Context, int) error { return nil })
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("idle pool did not stop")
	}
}
