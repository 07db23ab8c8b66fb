package notify

import "context"

// Gated consults a runtime flag before delivering. It backs the
// user-facing "periodic notification enabled" toggle without restarting
// the daemon, and wraps only the per-transaction feed channel; health and
// settlement alerts bypass it.
type Gated struct {
	next    Notifier
	enabled func(ctx context.Context) (bool, error)
}

func NewGated(next Notifier, enabled func(ctx context.Context) (bool, error)) *Gated {
	return &Gated{next: next, enabled: enabled}
}

func (g *Gated) Send(ctx context.Context, title, body string) error {
	on, err := g.enabled(ctx)
	if err != nil {
		// Fail open: a broken flag read should not silence alerts.
		return g.next.Send(ctx, title, body)
	}
	if !on {
		return nil
	}
	return g.next.Send(ctx, title, body)
}
