package ai

import (
	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Registry holds every configured adapter, usable or not.
type Registry struct {
	adapters []ai.PlatformAdapter
}

func NewRegistry(adapters ...ai.PlatformAdapter) *Registry {
	r := &Registry{}
	for _, a := range adapters {
		if a != nil {
			r.adapters = append(r.adapters, a)
		}
	}
	return r
}

// Usable returns the adapters with credentials, in registration order.
func (r *Registry) Usable() []ai.PlatformAdapter {
	var out []ai.PlatformAdapter
	for _, a := range r.adapters {
		if a.Usable() {
			out = append(out, a)
		}
	}
	return out
}

// Platforms lists the usable platforms, for health output.
func (r *Registry) Platforms() []scans.Platform {
	var out []scans.Platform
	for _, a := range r.Usable() {
		out = append(out, a.Platform())
	}
	return out
}
