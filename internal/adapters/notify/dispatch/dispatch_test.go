package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	dispatch "github.com/okian/vouch/internal/adapters/notify/dispatch"
	model "github.com/okian/vouch/internal/domain/model"
	logging "github.com/okian/vouch/pkg/logger"
)

// Mock implementations for testing.
type mockSource struct {
	noticeChan chan dispatch.Notice
	closeErr   error
	closeOnce  sync.Once
}

func newMockSource() *mockSource {
	return &mockSource{
		noticeChan: make(chan dispatch.Notice, 16),
	}
}

func (ms *mockSource) Subscribe(_ context.Context) <-chan dispatch.Notice {
	return ms.noticeChan
}

func (ms *mockSource) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.noticeChan)
	})
	return ms.closeErr
}

func (ms *mockSource) add(n dispatch.Notice) {
	ms.noticeChan <- n
}

type captureSink struct {
	name    string
	mu      sync.RWMutex
	handled []dispatch.Notice
	err     error
}

func newCaptureSink(name string) *captureSink {
	return &captureSink{name: name}
}

func (cs *captureSink) Name() string { return cs.name }

func (cs *captureSink) Handle(_ context.Context, n dispatch.Notice) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.err != nil {
		return cs.err
	}
	cs.handled = append(cs.handled, n)
	return nil
}

func (cs *captureSink) setError(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.err = err
}

func (cs *captureSink) count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.handled)
}

func (cs *captureSink) ids() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]string, len(cs.handled))
	for i, n := range cs.handled {
		out[i] = n.ID
	}
	return out
}

func TestDispatcher(t *testing.T) {
	convey.Convey("Given a new Dispatcher", t, func() {
		_ = logging.Init()

		source := newMockSource()
		first := newCaptureSink("first")
		second := newCaptureSink("second")

		convey.Convey("When creating a dispatcher with default options", func() {
			d := dispatch.NewDispatcher(source, []dispatch.Sink{first})

			convey.Convey("Then it should be created successfully", func() {
				convey.So(d, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a dispatcher with custom options", func() {
			d := dispatch.NewDispatcher(
				source,
				[]dispatch.Sink{first},
				dispatch.WithName("test-dispatcher"),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(d, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a dispatcher with two sinks", func() {
			d := dispatch.NewDispatcher(source, []dispatch.Sink{first, second})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go d.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And a notice arrives", func() {
				source.add(model.Notice{ID: "n1", Kind: model.NoticeSkillClaimed, Subject: "alice"})
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then every sink receives it", func() {
					convey.So(first.ids(), convey.ShouldResemble, []string{"n1"})
					convey.So(second.ids(), convey.ShouldResemble, []string{"n1"})
				})
			})

			convey.Convey("And one sink keeps failing", func() {
				first.setError(errors.New("sink broken"))
				source.add(model.Notice{ID: "n2", Kind: model.NoticeSkillEndorsed})
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the healthy sink still receives the notice", func() {
					convey.So(first.count(), convey.ShouldEqual, 0)
					convey.So(second.ids(), convey.ShouldResemble, []string{"n2"})
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := d.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})

				convey.Convey("And repeated shutdowns are safe", func() {
					convey.So(func() { _ = d.Shutdown(shutdownCtx) }, convey.ShouldNotPanic)
				})
			})
		})

		convey.Convey("When the source closes", func() {
			d := dispatch.NewDispatcher(source, []dispatch.Sink{first})
			ctx := context.Background()

			go d.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			source.add(model.Notice{ID: "n1"})
			_ = source.Close()
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then the dispatcher drains and stops", func() {
				convey.So(first.count(), convey.ShouldEqual, 1)

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()
				convey.So(d.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestDispatchPool(t *testing.T) {
	convey.Convey("Given a new dispatch Pool", t, func() {
		_ = logging.Init()

		source := newMockSource()
		sink := newCaptureSink("capture")

		convey.Convey("When creating a pool with an explicit count", func() {
			pool := dispatch.NewPool(3, source, sink)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a pool with a zero count", func() {
			pool := dispatch.NewPool(0, source, sink)

			convey.Convey("Then it falls back to a CPU-derived count", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the pool processes a stream of notices", func() {
			pool := dispatch.NewPool(3, source, sink)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)
			time.Sleep(10 * time.Millisecond)

			const total = 20
			for i := 0; i < total; i++ {
				source.add(model.Notice{ID: fmt.Sprintf("n-%d", i), Kind: model.NoticeSkillClaimed})
			}
			time.Sleep(100 * time.Millisecond)

			convey.Convey("Then each notice is handled exactly once", func() {
				convey.So(sink.count(), convey.ShouldEqual, total)

				seen := make(map[string]bool)
				for _, id := range sink.ids() {
					convey.So(seen[id], convey.ShouldBeFalse)
					seen[id] = true
				}
			})

			convey.Convey("And shutdown closes the source and drains", func() {
				err := pool.Shutdown(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(sink.count(), convey.ShouldEqual, total)
			})
		})

		convey.Convey("When stopping a pool without closing the source", func() {
			pool := dispatch.NewPool(2, source, sink)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("Then Stop returns once the dispatchers halt", func() {
				convey.So(func() { pool.Stop() }, convey.ShouldNotPanic)
				convey.So(func() { pool.Stop() }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestLogSink(t *testing.T) {
	convey.Convey("Given a log sink", t, func() {
		_ = logging.Init()
		sink := dispatch.NewLogSink()

		convey.Convey("Then it reports its name", func() {
			convey.So(sink.Name(), convey.ShouldEqual, "log")
		})

		convey.Convey("When handling notices of every kind", func() {
			kinds := []model.NoticeKind{
				model.NoticeSkillClaimed,
				model.NoticeSkillEndorsed,
				model.NoticeEndorsementSlashed,
				model.NoticeAuthorityChanged,
				model.NoticePauseChanged,
			}

			convey.Convey("Then none of them error", func() {
				for _, kind := range kinds {
					n := model.Notice{ID: "n1", Kind: kind, Subject: "alice", Skill: "go"}
					convey.So(sink.Handle(context.Background(), n), convey.ShouldBeNil)
				}
			})
		})
	})
}

func TestMetricsSink(t *testing.T) {
	convey.Convey("Given a metrics sink", t, func() {
		_ = logging.Init()
		sink := dispatch.NewMetricsSink()

		convey.Convey("Then it reports its name", func() {
			convey.So(sink.Name(), convey.ShouldEqual, "metrics")
		})

		convey.Convey("When handling notices of every kind", func() {
			notices := []model.Notice{
				{ID: "n1", Kind: model.NoticeSkillClaimed, Subject: "alice", Skill: "go"},
				{ID: "n2", Kind: model.NoticeSkillEndorsed, Stake: 300, Gain: 2, Credibility: 3},
				{ID: "n3", Kind: model.NoticeEndorsementSlashed, Stake: 300},
				{ID: "n4", Kind: model.NoticeAuthorityChanged, Authority: "admin"},
				{ID: "n5", Kind: model.NoticePauseChanged, Paused: true},
			}

			convey.Convey("Then none of them error", func() {
				for _, n := range notices {
					convey.So(sink.Handle(context.Background(), n), convey.ShouldBeNil)
				}
			})
		})
	})
}

type mockJournal struct {
	mu       sync.Mutex
	appended []model.Notice
	err      error
}

func (mj *mockJournal) AppendNotice(_ context.Context, n model.Notice) error {
	mj.mu.Lock()
	defer mj.mu.Unlock()
	if mj.err != nil {
		return mj.err
	}
	mj.appended = append(mj.appended, n)
	return nil
}

func TestJournalSink(t *testing.T) {
	convey.Convey("Given a journal sink", t, func() {
		_ = logging.Init()
		journal := &mockJournal{}
		sink := dispatch.NewJournalSink(journal)

		convey.Convey("Then it reports its name", func() {
			convey.So(sink.Name(), convey.ShouldEqual, "journal")
		})

		convey.Convey("When handling a notice", func() {
			n := model.Notice{ID: "n1", Kind: model.NoticeSkillClaimed}
			err := sink.Handle(context.Background(), n)

			convey.Convey("Then it is appended to the journal", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(journal.appended), convey.ShouldEqual, 1)
				convey.So(journal.appended[0].ID, convey.ShouldEqual, "n1")
			})
		})

		convey.Convey("When the journal fails", func() {
			journal.err = errors.New("disk full")
			err := sink.Handle(context.Background(), model.Notice{ID: "n2"})

			convey.Convey("Then the error propagates to the dispatcher", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
