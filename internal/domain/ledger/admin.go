package ledger

import (
	"context"

	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/pkg/logger"
)

// SetAuthority hands governance to a new identity. Only the current
// authority may transfer it, and never to an empty identity.
func (l *Ledger) SetAuthority(ctx context.Context, caller, next string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.authority {
		return ErrNotAuthorized
	}
	if next == "" {
		return ErrInvalidSubject
	}

	prev := l.authority
	l.authority = next

	l.publish(ctx, model.Notice{
		Kind:      model.NoticeAuthorityChanged,
		Authority: next,
		TS:        l.clk.Now(),
	})

	l.log.Info(ctx, "authority transferred",
		logger.String("previous", prev),
		logger.String("authority", next),
	)
	return nil
}

// SetPaused toggles the gate on new claims and endorsements. Slashing
// and queries keep working while paused. Setting the current state
// again is a no-op.
func (l *Ledger) SetPaused(ctx context.Context, caller string, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.authority {
		return ErrNotAuthorized
	}
	if l.paused == paused {
		return nil
	}

	l.paused = paused

	l.publish(ctx, model.Notice{
		Kind:   model.NoticePauseChanged,
		Paused: paused,
		TS:     l.clk.Now(),
	})

	l.log.Info(ctx, "pause state changed", logger.Bool("paused", paused))
	return nil
}
