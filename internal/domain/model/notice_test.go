package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/vouch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNotice(t *testing.T) {
	convey.Convey("Given a Notice struct", t, func() {
		convey.Convey("When creating an endorsement notice", func() {
			now := time.Now()
			n := model.Notice{
				ID:          "notice-123",
				Kind:        model.NoticeSkillEndorsed,
				Subject:     "alice",
				Skill:       "go",
				Endorser:    "bob",
				Stake:       500,
				Gain:        3,
				Credibility: 4,
				TS:          now,
			}

			convey.Convey("Then it should carry the change details", func() {
				convey.So(n.Kind, convey.ShouldEqual, model.NoticeSkillEndorsed)
				convey.So(n.Subject, convey.ShouldEqual, "alice")
				convey.So(n.Skill, convey.ShouldEqual, "go")
				convey.So(n.Endorser, convey.ShouldEqual, "bob")
				convey.So(n.Stake, convey.ShouldEqual, 500)
				convey.So(n.Gain, convey.ShouldEqual, 3)
				convey.So(n.Credibility, convey.ShouldEqual, 4)
				convey.So(n.TS, convey.ShouldEqual, now)
			})
		})

		convey.Convey("When creating a slash notice", func() {
			n := model.Notice{
				ID:        "notice-456",
				Kind:      model.NoticeEndorsementSlashed,
				Subject:   "alice",
				Skill:     "go",
				Endorser:  "bob",
				Authority: "root",
				Index:     2,
				Stake:     500,
				TS:        time.Now(),
			}

			convey.Convey("Then it should name the slashed endorsement", func() {
				convey.So(n.Kind, convey.ShouldEqual, model.NoticeEndorsementSlashed)
				convey.So(n.Index, convey.ShouldEqual, 2)
				convey.So(n.Authority, convey.ShouldEqual, "root")
			})
		})

		convey.Convey("When creating a pause notice", func() {
			n := model.Notice{
				ID:     "notice-789",
				Kind:   model.NoticePauseChanged,
				Paused: true,
				TS:     time.Now(),
			}

			convey.Convey("Then subject fields stay empty", func() {
				convey.So(n.Paused, convey.ShouldBeTrue)
				convey.So(n.Subject, convey.ShouldBeEmpty)
				convey.So(n.Skill, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When round-tripping a notice through JSON", func() {
			orig := model.Notice{
				ID:          "notice-json",
				Kind:        model.NoticeSkillEndorsed,
				Subject:     "alice",
				Skill:       "go",
				Endorser:    "bob",
				Stake:       500,
				Gain:        1,
				Credibility: 2,
				TS:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			}

			raw, err := json.Marshal(orig)
			convey.So(err, convey.ShouldBeNil)

			var decoded model.Notice
			err = json.Unmarshal(raw, &decoded)

			convey.Convey("Then the journal representation is lossless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(decoded, convey.ShouldResemble, orig)
			})
		})
	})
}

func TestNoticeKinds(t *testing.T) {
	convey.Convey("Given the notice kind constants", t, func() {
		kinds := []model.NoticeKind{
			model.NoticeSkillClaimed,
			model.NoticeSkillEndorsed,
			model.NoticeEndorsementSlashed,
			model.NoticeAuthorityChanged,
			model.NoticePauseChanged,
		}

		convey.Convey("Then each kind should be distinct and non-empty", func() {
			seen := make(map[model.NoticeKind]bool)
			for _, k := range kinds {
				convey.So(string(k), convey.ShouldNotBeEmpty)
				convey.So(seen[k], convey.ShouldBeFalse)
				seen[k] = true
			}
		})
	})
}
