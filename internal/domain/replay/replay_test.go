package replay_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vouch/internal/domain/replay"
)

func TestInMemoryGuard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh replay guard", t, func() {
		g := replay.NewInMemoryGuard()

		Convey("When a request ID arrives for the first time", func() {
			seen := g.SeenAndRecord(ctx, "req-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("And the same ID is flagged on resubmission", func() {
				So(g.SeenAndRecord(ctx, "req-1"), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded request is unrecorded", func() {
			g.SeenAndRecord(ctx, "req-1")
			g.Unrecord(ctx, "req-1")

			Convey("Then a retry passes through as new", func() {
				So(g.Size(), ShouldEqual, 0)
				So(g.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown ID", func() {
			g.Unrecord(ctx, "never-seen")

			Convey("Then the guard is unchanged", func() {
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the empty string is used as an ID", func() {
			So(g.SeenAndRecord(ctx, ""), ShouldBeFalse)

			Convey("Then it deduplicates like any other ID", func() {
				So(g.SeenAndRecord(ctx, ""), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestGuardEviction(t *testing.T) {
	ctx := context.Background()

	Convey("Given a guard bounded to three entries", t, func() {
		g := replay.NewInMemoryGuard(replay.WithMaxSize(3))

		Convey("When a fourth ID arrives at capacity", func() {
			for _, id := range []string{"req-1", "req-2", "req-3"} {
				So(g.SeenAndRecord(ctx, id), ShouldBeFalse)
			}
			So(g.SeenAndRecord(ctx, "req-4"), ShouldBeFalse)

			Convey("Then the oldest entry was evicted to make room", func() {
				So(g.Size(), ShouldEqual, 3)
				// req-1 was evicted and now records as new again.
				So(g.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
				So(g.Size(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a guard bounded to a single entry", t, func() {
		g := replay.NewInMemoryGuard(replay.WithMaxSize(1))

		Convey("When two IDs arrive in turn", func() {
			So(g.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			So(g.SeenAndRecord(ctx, "req-2"), ShouldBeFalse)

			Convey("Then only the newest survives", func() {
				So(g.Size(), ShouldEqual, 1)
				So(g.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded guard", t, func() {
		g := replay.NewInMemoryGuard(replay.WithMaxSize(0))

		Convey("When many IDs are recorded", func() {
			const n = 1000
			for i := 0; i < n; i++ {
				So(g.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing is evicted", func() {
				So(g.Size(), ShouldEqual, int64(n))
				So(g.SeenAndRecord(ctx, "req-0"), ShouldBeTrue)
			})
		})

		Convey("When IDs are unrecorded", func() {
			g.SeenAndRecord(ctx, "req-1")
			g.Unrecord(ctx, "req-1")

			Convey("Then the map shrinks accordingly", func() {
				So(g.Size(), ShouldEqual, 0)
				So(g.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})
	})
}

func TestGuardConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given concurrent producers", t, func() {
		g := replay.NewInMemoryGuard(replay.WithMaxSize(10000))
		const goroutines = 10
		const perGoroutine = 100

		Convey("When they record disjoint IDs at once", func() {
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(worker int) {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						g.SeenAndRecord(ctx, fmt.Sprintf("req-%d-%d", worker, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every ID is recorded exactly once", func() {
				So(g.Size(), ShouldEqual, int64(goroutines*perGoroutine))
			})
		})

		Convey("When they all race on the same ID", func() {
			var wg sync.WaitGroup
			fresh := make(chan bool, goroutines)
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !g.SeenAndRecord(ctx, "contested") {
						fresh <- true
					}
				}()
			}
			wg.Wait()
			close(fresh)

			Convey("Then exactly one caller wins the record", func() {
				So(len(fresh), ShouldEqual, 1)
				So(g.Size(), ShouldEqual, 1)
			})
		})
	})
}
