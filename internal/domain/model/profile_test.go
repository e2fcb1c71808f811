package model_test

import (
	"testing"
	"time"

	model "github.com/okian/vouch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSkillProfile(t *testing.T) {
	convey.Convey("Given a SkillProfile struct", t, func() {
		convey.Convey("When creating a claimed profile", func() {
			now := time.Now()
			profile := model.SkillProfile{
				Claimed:              true,
				Credibility:          1,
				EndorsementsReceived: 0,
				LastUpdated:          now,
			}

			convey.Convey("Then it should have the correct values", func() {
				convey.So(profile.Claimed, convey.ShouldBeTrue)
				convey.So(profile.Credibility, convey.ShouldEqual, 1)
				convey.So(profile.EndorsementsReceived, convey.ShouldEqual, 0)
				convey.So(profile.LastUpdated, convey.ShouldEqual, now)
			})
		})

		convey.Convey("When creating a profile with zero values", func() {
			profile := model.SkillProfile{}

			convey.Convey("Then it should represent an unclaimed skill", func() {
				convey.So(profile.Claimed, convey.ShouldBeFalse)
				convey.So(profile.Credibility, convey.ShouldEqual, 0)
				convey.So(profile.EndorsementsReceived, convey.ShouldEqual, 0)
				convey.So(profile.LastUpdated, convey.ShouldEqual, time.Time{})
			})
		})

		convey.Convey("When a profile has accrued credibility", func() {
			profile := model.SkillProfile{
				Claimed:              true,
				Credibility:          42,
				EndorsementsReceived: 17,
				LastUpdated:          time.Now(),
			}

			convey.Convey("Then received endorsements and credibility are independent counters", func() {
				convey.So(profile.Credibility, convey.ShouldEqual, 42)
				convey.So(profile.EndorsementsReceived, convey.ShouldEqual, 17)
			})
		})
	})
}

func TestEndorsement(t *testing.T) {
	convey.Convey("Given an Endorsement struct", t, func() {
		convey.Convey("When creating an active endorsement", func() {
			now := time.Now()
			e := model.Endorsement{
				Endorser:  "carol",
				Stake:     500,
				Active:    true,
				Timestamp: now,
			}

			convey.Convey("Then it should have the correct values", func() {
				convey.So(e.Endorser, convey.ShouldEqual, "carol")
				convey.So(e.Stake, convey.ShouldEqual, 500)
				convey.So(e.Active, convey.ShouldBeTrue)
				convey.So(e.Timestamp, convey.ShouldEqual, now)
			})
		})

		convey.Convey("When an endorsement has been slashed", func() {
			e := model.Endorsement{
				Endorser:  "carol",
				Stake:     500,
				Active:    false,
				Timestamp: time.Now(),
			}

			convey.Convey("Then the record keeps its stake for audit", func() {
				convey.So(e.Active, convey.ShouldBeFalse)
				convey.So(e.Stake, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When creating endorsements with unusual identifiers", func() {
			endorsements := []model.Endorsement{
				{Endorser: "npub1q3sle0kvfsehgsuexttt3ugjd8xdklxfwwkh559wxckmzddywnws6cd26p", Stake: 100, Active: true},
				{Endorser: "acct_with_underscore", Stake: 200, Active: true},
				{Endorser: "ACCT-UPPERCASE", Stake: 300, Active: true},
			}

			convey.Convey("Then identifiers pass through untouched", func() {
				for _, e := range endorsements {
					convey.So(e.Endorser, convey.ShouldNotBeEmpty)
					convey.So(e.Stake, convey.ShouldBeGreaterThan, 0)
				}
			})
		})
	})
}
