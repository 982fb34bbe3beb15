package filter

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Spec enables and configures one registered filter.
type Spec struct {
	Enabled  bool
	Settings map[string]any
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Build creates a chain of every enabled filter, ordered by name.
func Build(specs map[string]Spec, deps Deps) (*Chain, error) {
	chain := NewChain()

	names := lo.Keys(specs)
	slices.Sort(names)
	for _, name := range names {
		spec := specs[name]
		if !spec.Enabled {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter %q", name)
		}
		f := factory(deps)
		if err := f.ValidateConfig(spec.Settings); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("Enabled filter %s", name)
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the request.
// Filters are only applied if they declare they apply to the request's origin.
func (c *Chain) Execute(ctx context.Context, req Request, m song.Metadata) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(req.Origin) {
			continue
		}

		result := f.Check(ctx, req, m)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
