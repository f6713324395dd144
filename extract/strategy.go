package extract

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/use-agent/drover/models"
)

// Strategy is one extraction kind. Strategies are pure functions over a
// loaded page plus options: they never mutate the page beyond what is
// inherent to reading computed styles, and they are idempotent for the
// same page state. A selector matching nothing yields an empty result,
// not an error.
type Strategy interface {
	Kind() models.ExtractionKind
	Extract(ctx context.Context, page *rod.Page, selector string, options map[string]string) (*models.ExtractionResult, error)
}

// Registry maps extraction kinds to strategies. It is populated explicitly
// at startup; there is no dynamic discovery.
type Registry struct {
	strategies map[models.ExtractionKind]Strategy
}

// NewRegistry creates a registry with the three built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[models.ExtractionKind]Strategy)}
	r.Register(NewHTMLStrategy())
	r.Register(NewCSSStrategy())
	r.Register(NewJSONStrategy())
	return r
}

// Register adds a strategy under its kind, replacing any previous one.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Kind()] = s
}

// Get returns the strategy for kind.
func (r *Registry) Get(kind models.ExtractionKind) (Strategy, error) {
	s, ok := r.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for kind %q", kind)
	}
	return s, nil
}
