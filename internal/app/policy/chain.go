package policy

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// Chain evaluates policies in registration order and stops at the first
// rejection.
type Chain struct {
	policies []Policy
}

func NewChain(policies ...Policy) *Chain {
	return &Chain{policies: policies}
}

func (c *Chain) Append(p Policy) {
	c.policies = append(c.policies, p)
}

func (c *Chain) Check(ctx context.Context, req Request) Result {
	for _, p := range c.policies {
		if res := p.Check(ctx, req); res.Rejected {
			zlog.Info().Msgf("policy: rejected by %s: track_id=%s peer=%s code=%s",
				p.Name(), req.Track.ID, req.Peer, res.Code)
			return res
		}
	}
	return Accept()
}
