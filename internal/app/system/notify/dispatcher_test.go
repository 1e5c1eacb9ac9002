package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_RunsAllQueuedJobs(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), nil, 3, 50, time.Second)
	d.Start()

	var ran int32
	for i := 0; i < 20; i++ {
		ok := d.Enqueue(Job{Kind: "test", Run: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
		if !ok {
			t.Fatalf("job %d dropped", i)
		}
	}
	d.Stop()

	if got := atomic.LoadInt32(&ran); got != 20 {
		t.Errorf("ran %d jobs, want 20", got)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(zap.New(core), nil, 1, 1, time.Second)

	noop := Job{Kind: "push", Run: func(context.Context) error { return nil }}
	if !d.Enqueue(noop) {
		t.Fatal("first job should fit")
	}
	if d.Enqueue(noop) {
		t.Fatal("second job should be dropped while no worker runs")
	}
	if logs.FilterMessage("notification dropped").Len() != 1 {
		t.Errorf("expected one drop warning, got %d", logs.Len())
	}

	d.Start()
	d.Stop()
	if d.Enqueue(noop) {
		t.Error("stopped dispatcher must refuse jobs")
	}
	d.Stop() // second Stop is a no-op
}

func TestDispatcher_ErrorsAndPanicsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(zap.New(core), nil, 1, 4, time.Second)
	d.Start()

	d.Enqueue(Job{Kind: "fails", Run: func(context.Context) error { return errors.New("provider down") }})
	d.Enqueue(Job{Kind: "panics", Run: func(context.Context) error { panic("boom") }})
	d.Stop()

	failed := logs.FilterMessage("notification failed").All()
	if len(failed) != 2 {
		t.Fatalf("got %d failure logs, want 2", len(failed))
	}
}

func TestDispatcher_JobTimeout(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), nil, 1, 1, 20*time.Millisecond)
	d.Start()

	var deadline atomic.Bool
	d.Enqueue(Job{Kind: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	}})
	d.Stop()

	if !deadline.Load() {
		t.Error("job context should hit its deadline")
	}
}
