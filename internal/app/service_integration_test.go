package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/vouch/internal/app"
	"github.com/okian/vouch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		svc := service.New(
			service.WithMinEndorserCredibility(1),
			service.WithDispatcherCount(2),
			service.WithFeedCapacity(1_000),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When a subject is claimed and endorsed", func() {
			_, err := svc.Claim(ctx, "alice", "go")
			So(err, ShouldBeNil)
			_, err = svc.Claim(ctx, "bob", "go")
			So(err, ShouldBeNil)
			_, err = svc.Faucet(ctx, "bob", 0)
			So(err, ShouldBeNil)

			receipt, duplicate, err := svc.Endorse(ctx, "bob", "alice", "go", 300, "")
			So(err, ShouldBeNil)
			So(duplicate, ShouldBeFalse)

			Convey("Then the ledger reflects the endorsement", func() {
				So(receipt.Index, ShouldEqual, 0)
				So(receipt.Gain, ShouldEqual, 1)
				So(svc.Credibility("alice", "go"), ShouldEqual, 2)
				So(svc.Standing("bob", "go"), ShouldEqual, 1)
				So(svc.AggregateStake("alice", "go"), ShouldEqual, 300)
				So(svc.EscrowBalance(ctx), ShouldEqual, 300)
				So(svc.Balance(ctx, "bob"), ShouldEqual, 10_000-300)
			})

			Convey("And the standings board converges on the new credibility", func() {
				// Board updates ride the async notice pipeline.
				time.Sleep(500 * time.Millisecond)

				entries, err := svc.TopN(ctx, "go", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Subject, ShouldEqual, "alice")
				So(entries[0].Credibility, ShouldEqual, 2)
				So(entries[0].Rank, ShouldEqual, 1)

				pos, err := svc.Position(ctx, "go", "bob")
				So(err, ShouldBeNil)
				So(pos.Rank, ShouldEqual, 2)
			})

			Convey("And slashing the endorsement reverses its effects", func() {
				slashed, err := svc.Slash(ctx, "authority", "alice", "go", 0)
				So(err, ShouldBeNil)
				So(slashed.Endorser, ShouldEqual, "bob")
				So(slashed.Forfeited, ShouldEqual, 300)
				So(slashed.Credibility, ShouldEqual, 0)
				So(slashed.Standing, ShouldEqual, 0)

				So(svc.Credibility("alice", "go"), ShouldEqual, 0)
				So(svc.AggregateStake("alice", "go"), ShouldEqual, 0)
				So(svc.ActiveEndorsements("alice", "go"), ShouldEqual, 0)
				So(svc.TotalEndorsements("alice", "go"), ShouldEqual, 1)
				So(svc.EscrowBalance(ctx), ShouldEqual, 0)
				So(svc.Balance(ctx, "authority"), ShouldEqual, 300)

				ep, err := svc.EndorsementAt("alice", "go", 0)
				So(err, ShouldBeNil)
				So(ep.Active, ShouldBeFalse)
			})
		})

		Convey("When pausing the ledger", func() {
			err := svc.SetPaused(ctx, "authority", true)
			So(err, ShouldBeNil)

			Convey("Then claims are gated but queries still serve", func() {
				_, err := svc.Claim(ctx, "carol", "go")
				So(err, ShouldNotBeNil)
				So(svc.Paused(), ShouldBeTrue)
				So(svc.Credibility("carol", "go"), ShouldEqual, 0)
			})

			Convey("And unpausing restores operation", func() {
				So(svc.SetPaused(ctx, "authority", false), ShouldBeNil)
				_, err := svc.Claim(ctx, "carol", "go")
				So(err, ShouldBeNil)
			})
		})

		Convey("When transferring authority", func() {
			err := svc.SetAuthority(ctx, "authority", "governor")
			So(err, ShouldBeNil)

			Convey("Then the new identity holds the slash power", func() {
				So(svc.Authority(), ShouldEqual, "governor")

				_, err := svc.Claim(ctx, "dave", "go")
				So(err, ShouldBeNil)
				_, err = svc.Claim(ctx, "erin", "go")
				So(err, ShouldBeNil)
				_, err = svc.Faucet(ctx, "erin", 0)
				So(err, ShouldBeNil)
				_, _, err = svc.Endorse(ctx, "erin", "dave", "go", 100, "")
				So(err, ShouldBeNil)

				_, err = svc.Slash(ctx, "authority", "dave", "go", 0)
				So(err, ShouldNotBeNil)
				_, err = svc.Slash(ctx, "governor", "dave", "go", 0)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestServicePersistence(t *testing.T) {
	Convey("Given a service backed by an archive", t, func() {
		dir := t.TempDir()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// A single dispatcher keeps the journal in publish order.
		svc := service.New(
			service.WithDataDir(dir),
			service.WithMinEndorserCredibility(1),
			service.WithSnapshotInterval(time.Hour),
			service.WithDispatcherCount(1),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Claim(ctx, "alice", "go")
		So(err, ShouldBeNil)
		_, err = svc.Claim(ctx, "bob", "go")
		So(err, ShouldBeNil)
		_, err = svc.Faucet(ctx, "bob", 0)
		So(err, ShouldBeNil)
		_, _, err = svc.Endorse(ctx, "bob", "alice", "go", 400, "")
		So(err, ShouldBeNil)
		So(svc.SetAuthority(ctx, "authority", "governor"), ShouldBeNil)

		// Stop drains the notice pipeline into the journal and writes
		// the final snapshot.
		svc.Stop()

		Convey("When a new service opens the same archive", func() {
			restored := service.New(
				service.WithDataDir(dir),
				service.WithMinEndorserCredibility(1),
				service.WithSnapshotInterval(time.Hour),
			)
			So(restored.Start(ctx), ShouldBeNil)
			defer restored.Stop()

			Convey("Then profiles and counters survive", func() {
				profile, ok := restored.Profile("alice", "go")
				So(ok, ShouldBeTrue)
				So(profile.Claimed, ShouldBeTrue)
				So(profile.Credibility, ShouldEqual, 2)
				So(profile.EndorsementsReceived, ShouldEqual, 1)

				So(restored.Standing("bob", "go"), ShouldEqual, 1)
				So(restored.AggregateStake("alice", "go"), ShouldEqual, 400)
				So(restored.TotalEndorsements("alice", "go"), ShouldEqual, 1)
				So(restored.Authority(), ShouldEqual, "governor")
			})

			Convey("And the endorsement sequence is intact", func() {
				ep, err := restored.EndorsementAt("alice", "go", 0)
				So(err, ShouldBeNil)
				So(ep.Endorser, ShouldEqual, "bob")
				So(ep.Stake, ShouldEqual, 400)
				So(ep.Active, ShouldBeTrue)
			})

			Convey("And the standings board is rebuilt from the snapshot", func() {
				entries, err := restored.TopN(ctx, "go", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Subject, ShouldEqual, "alice")
				So(entries[0].Credibility, ShouldEqual, 2)
			})

			Convey("And the journal retains the notice history", func() {
				notices, err := restored.RecentNotices(ctx, 10)
				So(err, ShouldBeNil)
				// Two claims, one endorsement, one authority change.
				So(len(notices), ShouldEqual, 4)
				// Newest first.
				So(string(notices[0].Kind), ShouldEqual, "authority_changed")
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service with concurrent operations", t, func() {
		svc := service.New(
			service.WithMinEndorserCredibility(1),
			service.WithDispatcherCount(4),
			service.WithFeedCapacity(10_000),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)

		subjects := []string{"s0", "s1", "s2", "s3", "s4"}
		endorsers := []string{"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7"}
		for _, s := range subjects {
			_, err := svc.Claim(ctx, s, "go")
			So(err, ShouldBeNil)
		}
		for _, e := range endorsers {
			_, err := svc.Claim(ctx, e, "go")
			So(err, ShouldBeNil)
			_, err = svc.Faucet(ctx, e, 100_000)
			So(err, ShouldBeNil)
		}

		Convey("When many goroutines endorse concurrently", func() {
			perEndorser := 20
			var wg sync.WaitGroup
			for i, e := range endorsers {
				wg.Add(1)
				go func(i int, endorser string) {
					defer wg.Done()
					for j := 0; j < perEndorser; j++ {
						subject := subjects[(i+j)%len(subjects)]
						reqID := fmt.Sprintf("%s-%d", endorser, j)
						_, _, _ = svc.Endorse(ctx, endorser, subject, "go", 100, reqID)
					}
				}(i, e)
			}
			wg.Wait()

			Convey("Then every endorsement is recorded exactly once", func() {
				total := uint64(0)
				for _, s := range subjects {
					total += svc.TotalEndorsements(s, "go")
				}
				So(total, ShouldEqual, uint64(len(endorsers)*perEndorser))
			})

			Convey("And aggregate stake matches the active endorsements", func() {
				escrowWant := uint64(0)
				for _, s := range subjects {
					active := uint64(0)
					totalCount := svc.TotalEndorsements(s, "go")
					for idx := uint64(0); idx < totalCount; idx++ {
						ep, err := svc.EndorsementAt(s, "go", idx)
						So(err, ShouldBeNil)
						if ep.Active {
							active += ep.Stake
						}
					}
					So(svc.AggregateStake(s, "go"), ShouldEqual, active)
					escrowWant += active
				}
				So(svc.EscrowBalance(ctx), ShouldEqual, escrowWant)
			})

			Convey("And replayed request IDs do not double-record", func() {
				before := svc.TotalEndorsements(subjects[0], "go")
				_, duplicate, err := svc.Endorse(ctx, endorsers[0], subjects[0], "go", 100, endorsers[0]+"-0")
				So(err, ShouldBeNil)
				So(duplicate, ShouldBeTrue)
				So(svc.TotalEndorsements(subjects[0], "go"), ShouldEqual, before)
			})

			Convey("And the standings board converges to ledger credibility", func() {
				time.Sleep(time.Second)

				entries, err := svc.TopN(ctx, "go", 50)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, len(subjects)+len(endorsers))
				for i := 1; i < len(entries); i++ {
					So(entries[i-1].Credibility, ShouldBeGreaterThanOrEqualTo, entries[i].Credibility)
				}
				for _, entry := range entries {
					So(entry.Credibility, ShouldEqual, svc.Credibility(entry.Subject, "go"))
				}
			})
		})

		Convey("When goroutines mix endorsements and slashes", func() {
			for i := 0; i < 10; i++ {
				_, _, err := svc.Endorse(ctx, endorsers[i%len(endorsers)], "s0", "go", 100, "")
				So(err, ShouldBeNil)
			}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				for i := 0; i < 5; i++ {
					_, _ = svc.Slash(ctx, "authority", "s0", "go", uint64(i))
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					_, _, _ = svc.Endorse(ctx, endorsers[i%len(endorsers)], "s1", "go", 100, "")
				}
			}()
			wg.Wait()

			Convey("Then aggregates still track only active stake", func() {
				for _, s := range []string{"s0", "s1"} {
					active := uint64(0)
					totalCount := svc.TotalEndorsements(s, "go")
					for idx := uint64(0); idx < totalCount; idx++ {
						ep, err := svc.EndorsementAt(s, "go", idx)
						So(err, ShouldBeNil)
						if ep.Active {
							active += ep.Stake
						}
					}
					So(svc.AggregateStake(s, "go"), ShouldEqual, active)
				}
				So(svc.ActiveEndorsements("s0", "go"), ShouldEqual, 5)
			})
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that starts and stops repeatedly", t, func() {
		dir := t.TempDir()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(
			service.WithDataDir(dir),
			service.WithMinEndorserCredibility(1),
			service.WithSnapshotInterval(time.Hour),
		)

		Convey("When cycling start, stop, start", func() {
			So(svc.Start(ctx), ShouldBeNil)
			_, err := svc.Claim(ctx, "alice", "go")
			So(err, ShouldBeNil)
			svc.Stop()

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)

			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the second run resumes from the archive", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)

				profile, ok := svc.Profile("alice", "go")
				So(ok, ShouldBeTrue)
				So(profile.Claimed, ShouldBeTrue)
			})

			Convey("And starting an already started service is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})
	})
}
