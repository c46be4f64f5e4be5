package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/observability"
	"github.com/Yashkalwar/autonomous-P1/internal/tools"
)

// OutboxFlusher periodically retries emails that fell back to the local
// outbox when SMTP was unreachable.
type OutboxFlusher struct {
	gmail    *tools.GmailAgent
	logger   *observability.Logger
	interval time.Duration
}

func NewOutboxFlusher(gmail *tools.GmailAgent, logger *observability.Logger, interval time.Duration) *OutboxFlusher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OutboxFlusher{gmail: gmail, logger: logger, interval: interval}
}

// Start blocks until the context is cancelled, attempting a flush on
// every tick. Run it in its own goroutine.
func (f *OutboxFlusher) Start(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.flush(ctx)
		}
	}
}

func (f *OutboxFlusher) flush(ctx context.Context) {
	if f.gmail.PendingOutbox() == 0 {
		return
	}
	sent, failed := f.gmail.FlushOutbox(ctx)
	if sent > 0 || failed > 0 {
		f.logger.LogDegraded("", fmt.Sprintf("outbox flush: %d sent, %d still queued", sent, failed))
	}
}
