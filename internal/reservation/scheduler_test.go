package reservation

import (
	"context"
	"testing"
	"time"
)

func TestTimerScheduler_FiresTask(t *testing.T) {
	t.Parallel()

	fired := make(chan RollbackTask, 1)
	sched := NewTimerScheduler(func(_ context.Context, task RollbackTask) {
		fired <- task
	}, nil)
	defer sched.Close()

	task := RollbackTask{CheckoutID: "co-1", TierID: "gold", Quantity: 2}
	id, err := sched.Schedule(context.Background(), task, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if id == "" {
		t.Fatalf("expected task id")
	}

	select {
	case got := <-fired:
		if got != task {
			t.Fatalf("unexpected task: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("task never fired")
	}
}

func TestTimerScheduler_CloseStopsPending(t *testing.T) {
	t.Parallel()

	fired := make(chan RollbackTask, 1)
	sched := NewTimerScheduler(func(_ context.Context, task RollbackTask) {
		fired <- task
	}, nil)

	if _, err := sched.Schedule(context.Background(), RollbackTask{CheckoutID: "co-1"}, time.Hour); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	sched.Close()

	if _, err := sched.Schedule(context.Background(), RollbackTask{CheckoutID: "co-2"}, time.Millisecond); err == nil {
		t.Fatalf("expected schedule after close to fail")
	}

	select {
	case task := <-fired:
		t.Fatalf("stopped task fired: %+v", task)
	case <-time.After(50 * time.Millisecond):
	}
}
