package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/veride/brandaudit/internal/adapters/mq/queue"
	"github.com/veride/brandaudit/internal/domain/inflight"
	"github.com/veride/brandaudit/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// recordingRunner tracks the audit IDs it was asked to run.
type recordingRunner struct {
	mu    sync.Mutex
	ran   []string
	err   error
	block chan struct{}
}

func (r *recordingRunner) Run(_ context.Context, auditID string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.ran = append(r.ran, auditID)
	r.mu.Unlock()
	return r.err
}

func (r *recordingRunner) runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerProcessesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	Convey("Given a worker draining a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		defer q.Close()
		runner := &recordingRunner{}
		w := NewInMemoryWorker(q, runner, inflight.NewRegistry(), WithName("worker-test"))

		go w.Run(ctx)

		Convey("When jobs are enqueued", func() {
			So(q.Enqueue(ctx, queue.Job{AuditID: "a-1", EnqueuedAt: time.Now()}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{AuditID: "a-2", EnqueuedAt: time.Now()}), ShouldBeTrue)

			Convey("Then the runner sees each audit exactly once", func() {
				waitFor(t, func() bool { return len(runner.runs()) == 2 })
				So(runner.runs(), ShouldResemble, []string{"a-1", "a-2"})
			})
		})

		Convey("When the runner fails", func() {
			fq := queue.NewInMemoryQueue(queue.WithCapacity(8))
			defer fq.Close()
			failing := &recordingRunner{err: errors.New("acquisition failed")}
			fw := NewInMemoryWorker(fq, failing, inflight.NewRegistry())
			go fw.Run(ctx)

			So(fq.Enqueue(ctx, queue.Job{AuditID: "a-3", EnqueuedAt: time.Now()}), ShouldBeTrue)

			Convey("Then the worker keeps running", func() {
				waitFor(t, func() bool { return len(failing.runs()) == 1 })
				So(fq.Enqueue(ctx, queue.Job{AuditID: "a-4", EnqueuedAt: time.Now()}), ShouldBeTrue)
				waitFor(t, func() bool { return len(failing.runs()) == 2 })
			})
		})
	})
}

func TestWorkerSkipsHeldAudits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	Convey("Given an audit already being processed", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		defer q.Close()
		runner := &recordingRunner{}
		locker := inflight.NewRegistry()
		So(locker.Acquire(ctx, "a-1"), ShouldBeTrue)

		w := NewInMemoryWorker(q, runner, locker)
		go w.Run(ctx)

		Convey("When a duplicate job for it arrives", func() {
			So(q.Enqueue(ctx, queue.Job{AuditID: "a-1", EnqueuedAt: time.Now()}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{AuditID: "a-2", EnqueuedAt: time.Now()}), ShouldBeTrue)

			Convey("Then the duplicate is dropped and other jobs proceed", func() {
				waitFor(t, func() bool { return len(runner.runs()) == 1 })
				So(runner.runs(), ShouldResemble, []string{"a-2"})
				So(locker.Held("a-1"), ShouldBeTrue)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running worker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		defer q.Close()
		runner := &recordingRunner{}
		w := NewInMemoryWorker(q, runner, inflight.NewRegistry())
		go w.Run(ctx)

		Convey("When shut down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			err := w.Shutdown(shutdownCtx)

			Convey("Then it stops cleanly", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	Convey("Given a worker pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		runner := &recordingRunner{}
		locker := inflight.NewRegistry()
		pool := NewPool(4, q, runner, locker)
		pool.Start(ctx)

		Convey("When many jobs are enqueued", func() {
			for i := 0; i < 16; i++ {
				So(q.Enqueue(ctx, queue.Job{AuditID: "a-" + string(rune('a'+i)), EnqueuedAt: time.Now()}), ShouldBeTrue)
			}

			Convey("Then all of them are processed", func() {
				waitFor(t, func() bool { return len(runner.runs()) == 16 })
				So(locker.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			Convey("Then the queue is closed and workers stop", func() {
				So(err, ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}

func TestPoolDefaultSize(t *testing.T) {
	Convey("Given a pool created with a non-positive count", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		defer q.Close()
		pool := NewPool(0, q, &recordingRunner{}, inflight.NewRegistry())

		Convey("Then a CPU-derived worker count is used", func() {
			So(len(pool.workers), ShouldBeGreaterThan, 0)
		})
	})
}
