// Package extract turns a classified link into a normalized media record.
// One adapter per platform; all failures surface as *domain.ExtractionError
// so the pipeline never has to distinguish causes.
package extract

import (
	"context"

	"linklift/internal/domain"
)

// Adapter resolves a platform link into a MediaRecord.
type Adapter interface {
	Platform() domain.Platform
	Extract(ctx context.Context, link string) (*domain.MediaRecord, error)
}

// Registry is a closed set of adapters keyed by platform, selected once per
// request by the classifier's verdict.
type Registry struct {
	adapters map[domain.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[domain.Platform]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Registry{adapters: m}
}

// For returns the adapter for a platform.
func (r *Registry) For(p domain.Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}
