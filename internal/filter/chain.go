// Package filter decides which signals reach the executor. A Chain is the
// logical AND of its filters, evaluated in order and stopping at the first
// rejection.
package filter

import (
	"context"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Filter names in their fixed evaluation order.
const (
	NameMultiTimeframe = "multi_timeframe"
	NameCorrelation    = "correlation"
	NameModel          = "model_score"
)

// Filter is an admission predicate. Implementations that cannot obtain the
// data they need must return false.
type Filter interface {
	Name() string
	Evaluate(ctx context.Context, sig domain.Signal) bool
}

// Chain is an ordered conjunction of filters. An empty chain admits every
// signal.
type Chain struct {
	filters []Filter
}

// NewChain returns a chain evaluating filters in the given order.
func NewChain(filters ...Filter) *Chain {
	cp := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			cp = append(cp, f)
		}
	}
	return &Chain{filters: cp}
}

// Admit reports whether every filter accepts sig. On rejection it also
// returns the name of the filter that rejected.
func (c *Chain) Admit(ctx context.Context, sig domain.Signal) (bool, string) {
	for _, f := range c.filters {
		if !f.Evaluate(ctx, sig) {
			return false, f.Name()
		}
	}
	return true, ""
}

// Names lists the filters in evaluation order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return names
}

// Len returns the number of filters.
func (c *Chain) Len() int { return len(c.filters) }

// Set holds one implementation per filter kind.
type Set struct {
	MultiTimeframe Filter
	Correlation    Filter
	Model          Filter
}

// Build assembles the chain for flags. Disabled filters are left out
// entirely. An enabled filter with no implementation rejects everything.
func Build(flags domain.StrategyFlags, set Set) *Chain {
	var filters []Filter
	add := func(enabled bool, f Filter, name string) {
		if !enabled {
			return
		}
		if f == nil {
			f = unavailable(name)
		}
		filters = append(filters, f)
	}
	add(flags.UseMultiTimeframe, set.MultiTimeframe, NameMultiTimeframe)
	add(flags.UseCorrelation, set.Correlation, NameCorrelation)
	add(flags.UseModel, set.Model, NameModel)
	return NewChain(filters...)
}

type unavailable string

func (u unavailable) Name() string                                { return string(u) }
func (u unavailable) Evaluate(context.Context, domain.Signal) bool { return false }

// Func adapts a plain function to a Filter.
type Func struct {
	ID string
	Fn func(ctx context.Context, sig domain.Signal) bool
}

func (f Func) Name() string { return f.ID }

func (f Func) Evaluate(ctx context.Context, sig domain.Signal) bool {
	return f.Fn(ctx, sig)
}
