package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/bragi/internal/domain/track"
)

// Chain runs admission filters in the order they were added.
type Chain struct {
	filters []Filter
}

// NewChain creates an empty chain. An empty chain admits everything.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends f to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute checks t against every filter that applies to origin and stops
// at the first rejection, which carries the rejecting filter's name.
func (c *Chain) Execute(ctx context.Context, t track.Track, origin Origin) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(origin) {
			continue
		}
		if res := f.Check(ctx, t); !res.Accepted {
			res.Filter = f.Name()
			zlog.Debug().Msgf("rejected: filter=%s code=%s path=%s", res.Filter, res.Code, t.Path)
			return res
		}
	}
	return Accept()
}

// Names returns the filter names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return names
}
