// Package catalog holds the immutable registry of ping targets. The catalog
// is constructed once at process start and injected wherever target lookups
// are needed; nothing mutates it afterwards.
package catalog

import (
	"fmt"

	"github.com/pingmyweb/pingd/internal/ping"
)

// Catalog is a read-only registry of ping targets grouped by category.
type Catalog struct {
	byCategory map[ping.Category][]ping.PingTarget
	categories []ping.Category
}

// New builds a Catalog from the provided targets, preserving their order
// within each category.
func New(targets []ping.PingTarget) (*Catalog, error) {
	byCategory := make(map[ping.Category][]ping.PingTarget)
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t.Key == "" {
			return nil, fmt.Errorf("target with empty key")
		}
		if _, dup := seen[t.Key]; dup {
			return nil, fmt.Errorf("duplicate target key %q", t.Key)
		}
		seen[t.Key] = struct{}{}
		if t.Endpoint == "" {
			return nil, fmt.Errorf("target %s: endpoint is required", t.Key)
		}
		switch t.Protocol {
		case ping.ProtocolGet, ping.ProtocolPostJSON, ping.ProtocolPostForm:
		case ping.ProtocolXMLRPC:
			if t.XMLRPCMethod == "" {
				return nil, fmt.Errorf("target %s: xmlrpc method is required", t.Key)
			}
		default:
			return nil, fmt.Errorf("target %s: unknown protocol %q", t.Key, t.Protocol)
		}
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}

	var categories []ping.Category
	for _, c := range ping.AllCategories() {
		if len(byCategory[c]) > 0 {
			categories = append(categories, c)
		}
	}
	return &Catalog{byCategory: byCategory, categories: categories}, nil
}

// Categories lists the categories that have at least one target, in fixed
// catalog order.
func (c *Catalog) Categories() []ping.Category {
	out := make([]ping.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Targets returns the targets of a category in registration order. The
// returned slice is a copy; callers may not mutate catalog state.
func (c *Catalog) Targets(category ping.Category) []ping.PingTarget {
	src := c.byCategory[category]
	out := make([]ping.PingTarget, len(src))
	copy(out, src)
	return out
}

// Len reports the total number of registered targets.
func (c *Catalog) Len() int {
	n := 0
	for _, targets := range c.byCategory {
		n += len(targets)
	}
	return n
}

// WithAvailability returns every target annotated with whether the given
// tier may use it. The underlying entries are copied, never mutated.
func (c *Catalog) WithAvailability(tier ping.Tier) map[ping.Category][]ping.AnnotatedTarget {
	out := make(map[ping.Category][]ping.AnnotatedTarget, len(c.byCategory))
	for cat, targets := range c.byCategory {
		annotated := make([]ping.AnnotatedTarget, 0, len(targets))
		for _, t := range targets {
			annotated = append(annotated, ping.AnnotatedTarget{
				PingTarget: t,
				Available:  tier.Covers(t.MinTier),
			})
		}
		out[cat] = annotated
	}
	return out
}
