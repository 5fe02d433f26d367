package outreach

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gconnect/leadgen-cli/internal/model"
)

// Sender delivers a rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// Engine walks a lead batch and sends one outreach email per pending
// lead, pacing sends to stay under provider rate limits.
type Engine struct {
	sender    Sender
	templater Templater
	limiter   *rate.Limiter
}

// NewEngine builds a send engine. delay is the minimum gap between
// consecutive sends; zero disables pacing.
func NewEngine(sender Sender, templater Templater, delay time.Duration) *Engine {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Engine{
		sender:    sender,
		templater: templater,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// BatchResult summarizes one SendBatch pass.
type BatchResult struct {
	Sent    int
	Failed  int
	NoEmail int
	Skipped int
}

// SendBatch sends outreach to every lead still in the pending state,
// updating each lead's status in place. Leads in any other state are
// skipped, so a re-run never double-sends. A send failure marks that
// lead and moves on; only context cancellation aborts the batch.
func (e *Engine) SendBatch(ctx context.Context, leads []model.Lead) (BatchResult, error) {
	var res BatchResult
	for i := range leads {
		lead := &leads[i]

		if lead.Status != model.StatusPending {
			res.Skipped++
			continue
		}
		if !lead.HasEmail() {
			lead.Status = model.StatusNoEmail
			res.NoEmail++
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return res, err
		}

		msg := e.templater.Build(*lead)
		if err := e.sender.Send(ctx, lead.Email, msg); err != nil {
			lead.Status = model.StatusEmailFailed
			res.Failed++
			zap.L().Warn("send failed",
				zap.String("email", lead.Email),
				zap.String("name", lead.Name),
				zap.Error(err))
			continue
		}

		lead.Status = model.StatusSentSuccess
		res.Sent++
		zap.L().Info("sent",
			zap.String("email", lead.Email),
			zap.String("tier", string(lead.Tier)))
	}
	return res, nil
}
