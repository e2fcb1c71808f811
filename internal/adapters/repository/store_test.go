package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vouch/internal/adapters/repository"
	"github.com/okian/vouch/internal/domain/ledger"
	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func sampleSnapshot() ledger.Snapshot {
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return ledger.Snapshot{
		Authority: "root",
		Paused:    true,
		Profiles: []ledger.ProfileRecord{
			{
				Account: "alice",
				Skill:   "go",
				Profile: model.SkillProfile{
					Claimed:              true,
					Credibility:          4,
					EndorsementsReceived: 2,
					LastUpdated:          ts,
				},
			},
			{
				Account: "bob",
				Skill:   "go",
				Profile: model.SkillProfile{
					Claimed:     true,
					Credibility: 100,
					LastUpdated: ts,
				},
			},
		},
		Sequences: []ledger.SequenceRecord{
			{
				Subject: "alice",
				Skill:   "go",
				Endorsements: []model.Endorsement{
					{Endorser: "bob", Stake: 300, Active: false, Timestamp: ts},
					{Endorser: "bob", Stake: 200, Active: true, Timestamp: ts},
				},
			},
		},
		Standings: []ledger.StandingRecord{
			{Account: "bob", Skill: "go", Standing: 2},
		},
	}
}

func TestOpen(t *testing.T) {
	Convey("Given an archive path", t, func() {
		Convey("When the path is empty", func() {
			store, err := repository.Open("  ")

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
				So(store, ShouldBeNil)
			})
		})

		Convey("When the path is valid", func() {
			path := filepath.Join(t.TempDir(), "vouch.db")
			store, err := repository.Open(path)

			Convey("Then the database file is created", func() {
				So(err, ShouldBeNil)
				So(store, ShouldNotBeNil)

				_, statErr := os.Stat(path)
				So(statErr, ShouldBeNil)
				So(store.Close(), ShouldBeNil)
			})
		})
	})
}

func TestStateArchive(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open archive", t, func() {
		path := filepath.Join(t.TempDir(), "vouch.db")
		store, err := repository.Open(path)
		So(err, ShouldBeNil)

		Convey("When no snapshot was ever saved", func() {
			_, err := store.LoadState(ctx)

			Convey("Then loading reports the missing state", func() {
				So(errors.Is(err, repository.ErrNoState), ShouldBeTrue)
			})

			So(store.Close(), ShouldBeNil)
		})

		Convey("When a snapshot is saved and loaded back", func() {
			snap := sampleSnapshot()
			So(store.SaveState(ctx, snap), ShouldBeNil)

			loaded, err := store.LoadState(ctx)

			Convey("Then the snapshot round-trips exactly", func() {
				So(err, ShouldBeNil)
				So(loaded, ShouldResemble, snap)
			})

			So(store.Close(), ShouldBeNil)
		})

		Convey("When a snapshot is overwritten", func() {
			So(store.SaveState(ctx, sampleSnapshot()), ShouldBeNil)

			next := sampleSnapshot()
			next.Paused = false
			next.Authority = "admin2"
			So(store.SaveState(ctx, next), ShouldBeNil)

			loaded, err := store.LoadState(ctx)

			Convey("Then only the latest snapshot survives", func() {
				So(err, ShouldBeNil)
				So(loaded.Authority, ShouldEqual, "admin2")
				So(loaded.Paused, ShouldBeFalse)
			})

			So(store.Close(), ShouldBeNil)
		})

		Convey("When the archive is reopened", func() {
			snap := sampleSnapshot()
			So(store.SaveState(ctx, snap), ShouldBeNil)
			So(store.Close(), ShouldBeNil)

			reopened, err := repository.Open(path)
			So(err, ShouldBeNil)
			loaded, err := reopened.LoadState(ctx)

			Convey("Then the snapshot survives the restart", func() {
				So(err, ShouldBeNil)
				So(loaded, ShouldResemble, snap)
			})

			So(reopened.Close(), ShouldBeNil)
		})
	})
}

func TestNoticeJournal(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open archive", t, func() {
		path := filepath.Join(t.TempDir(), "vouch.db")
		store, err := repository.Open(path)
		So(err, ShouldBeNil)

		Convey("When notices are appended", func() {
			for i := 1; i <= 5; i++ {
				n := model.Notice{
					ID:      fmt.Sprintf("n%d", i),
					Kind:    model.NoticeSkillEndorsed,
					Subject: "alice",
					Skill:   "go",
					Stake:   uint64(i * 100),
					TS:      time.Date(2025, 6, 1, 9, i, 0, 0, time.UTC),
				}
				So(store.AppendNotice(ctx, n), ShouldBeNil)
			}

			Convey("Then Recent returns the newest first", func() {
				recent, err := store.Recent(ctx, 3)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 3)
				So(recent[0].ID, ShouldEqual, "n5")
				So(recent[1].ID, ShouldEqual, "n4")
				So(recent[2].ID, ShouldEqual, "n3")
			})

			Convey("And asking for more than exists returns everything", func() {
				recent, err := store.Recent(ctx, 100)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 5)
				So(recent[4].ID, ShouldEqual, "n1")
			})

			Convey("And non-positive limits are rejected", func() {
				_, err := store.Recent(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("And the journal survives a reopen", func() {
				So(store.Close(), ShouldBeNil)

				reopened, err := repository.Open(path)
				So(err, ShouldBeNil)
				defer func() { So(reopened.Close(), ShouldBeNil) }()

				recent, err := reopened.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 5)
				So(recent[0].ID, ShouldEqual, "n5")

				// New appends continue the sequence after the restart.
				So(reopened.AppendNotice(ctx, model.Notice{ID: "n6"}), ShouldBeNil)
				recent, err = reopened.Recent(ctx, 2)
				So(err, ShouldBeNil)
				So(recent[0].ID, ShouldEqual, "n6")
				So(recent[1].ID, ShouldEqual, "n5")
			})
		})

		Convey("When the journal is empty", func() {
			recent, err := store.Recent(ctx, 10)

			Convey("Then Recent returns an empty slice", func() {
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 0)
			})
		})

		Reset(func() {
			_ = store.Close()
		})
	})
}
