package dispatch

import (
	"context"

	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/pkg/logger"
	"github.com/okian/vouch/pkg/metrics"
)

// LogSink writes every notice to the structured log.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink that logs notices.
func NewLogSink() *LogSink {
	return &LogSink{log: logger.Get().Named("notices")}
}

// Name identifies the sink in logs and metrics.
func (s *LogSink) Name() string { return "log" }

// Handle logs the notice with its kind-specific fields.
func (s *LogSink) Handle(ctx context.Context, n Notice) error {
	fields := []logger.Field{
		logger.String("notice_id", n.ID),
		logger.String("kind", string(n.Kind)),
	}
	if n.Subject != "" {
		fields = append(fields, logger.String("subject", n.Subject))
	}
	if n.Skill != "" {
		fields = append(fields, logger.String("skill", n.Skill))
	}
	if n.Endorser != "" {
		fields = append(fields, logger.String("endorser", n.Endorser))
	}
	if n.Authority != "" {
		fields = append(fields, logger.String("authority", n.Authority))
	}

	switch n.Kind {
	case model.NoticeSkillEndorsed:
		fields = append(fields,
			logger.Uint64("stake", n.Stake),
			logger.Uint64("gain", n.Gain),
			logger.Uint64("credibility", n.Credibility),
		)
	case model.NoticeEndorsementSlashed:
		fields = append(fields,
			logger.Uint64("index", n.Index),
			logger.Uint64("stake", n.Stake),
			logger.Uint64("credibility", n.Credibility),
		)
	case model.NoticePauseChanged:
		fields = append(fields, logger.Bool("paused", n.Paused))
	}

	s.log.Info(ctx, "ledger notice", fields...)
	return nil
}

// MetricsSink translates notices into counters and gauges.
type MetricsSink struct{}

// NewMetricsSink creates a sink that records notice metrics.
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

// Name identifies the sink in logs and metrics.
func (s *MetricsSink) Name() string { return "metrics" }

// Handle records the counters matching the notice kind.
func (s *MetricsSink) Handle(_ context.Context, n Notice) error {
	switch n.Kind {
	case model.NoticeSkillClaimed:
		metrics.RecordClaim()
	case model.NoticeSkillEndorsed:
		metrics.RecordEndorsement()
		metrics.RecordCredibilityGain(n.Gain)
		metrics.RecordStakeCollected(n.Stake)
	case model.NoticeEndorsementSlashed:
		metrics.RecordSlash()
		metrics.RecordStakeForfeited(n.Stake)
	case model.NoticePauseChanged:
		metrics.UpdatePaused(n.Paused)
	}
	return nil
}

// Journal persists notices for audit.
type Journal interface {
	AppendNotice(ctx context.Context, n model.Notice) error
}

// JournalSink appends every notice to a durable journal.
type JournalSink struct {
	journal Journal
}

// NewJournalSink creates a sink backed by the given journal.
func NewJournalSink(j Journal) *JournalSink {
	return &JournalSink{journal: j}
}

// Name identifies the sink in logs and metrics.
func (s *JournalSink) Name() string { return "journal" }

// Handle appends the notice to the journal.
func (s *JournalSink) Handle(ctx context.Context, n Notice) error {
	return s.journal.AppendNotice(ctx, n)
}
