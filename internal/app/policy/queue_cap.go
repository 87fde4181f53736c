package policy

import (
	"context"
)

// QueueCap rejects additions once the target queue reaches its
// configured maximum length.
type QueueCap struct {
	view QueueView
	max  int
}

func NewQueueCap(view QueueView, max int) *QueueCap {
	return &QueueCap{view: view, max: max}
}

func (p *QueueCap) Name() string {
	return "queue_cap"
}

func (p *QueueCap) Check(_ context.Context, req Request) Result {
	if p.max > 0 && p.view.QueueSize(req.Queue) >= p.max {
		return Reject(CodeQueueFull)
	}
	return Accept()
}
