package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/agent"
)

func TestScheduleRunsAndReturnsResult(t *testing.T) {
	s := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		return &agent.RunResult{Content: "hi " + req.Message}, nil
	})
	out := s.Schedule(context.Background(), LaneMain, agent.RunRequest{SessionKey: "s1", Message: "bob"})
	res := <-out
	if res.Err != nil || res.Result.Content != "hi bob" {
		t.Fatalf("unexpected outcome: %+v", res)
	}
}

func TestScheduleWithOptsCapsPerSessionConcurrency(t *testing.T) {
	var concurrent, maxObserved int32
	release := make(chan struct{})
	s := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		n := atomic.AddInt32(&concurrent, 1)
		defer atomic.AddInt32(&concurrent, -1)
		for {
			old := atomic.LoadInt32(&maxObserved)
			if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
				break
			}
		}
		<-release
		return &agent.RunResult{}, nil
	})

	var chans []<-chan Outcome
	for i := 0; i < 5; i++ {
		chans = append(chans, s.ScheduleWithOpts(context.Background(), LaneMain, agent.RunRequest{SessionKey: "group1"}, ScheduleOpts{MaxConcurrent: 2}))
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	for _, c := range chans {
		<-c
	}
	if atomic.LoadInt32(&maxObserved) > 2 {
		t.Fatalf("expected at most 2 concurrent runs for session, saw %d", maxObserved)
	}
}

func TestCancelOneSessionCancelsOldestRun(t *testing.T) {
	started := make(chan struct{}, 1)
	s := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	out := s.Schedule(context.Background(), LaneMain, agent.RunRequest{SessionKey: "s2"})
	<-started
	if !s.CancelOneSession("s2") {
		t.Fatal("expected an active run to cancel")
	}
	res := <-out
	if res.Err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestCancelOneSessionReportsFalseWhenIdle(t *testing.T) {
	s := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		return &agent.RunResult{}, nil
	})
	if s.CancelOneSession("nonexistent") {
		t.Fatal("expected no active run to cancel")
	}
}

func TestScheduleUnknownLaneReturnsError(t *testing.T) {
	s := NewScheduler(nil, DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		return &agent.RunResult{}, nil
	})
	out := s.Schedule(context.Background(), LaneMain, agent.RunRequest{SessionKey: "x"})
	res := <-out
	if res.Err == nil {
		t.Fatal("expected unknown-lane error")
	}
}
