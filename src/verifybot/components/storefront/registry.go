package storefront

import (
	"fmt"
	"strings"
)

// Registry resolves a platform selector to its verifier. It is populated once
// at startup and read-only afterwards, so concurrent lookups need no locking.
type Registry struct {
	verifiers map[string]Verifier
	order     []string
}

func NewRegistry(verifiers ...Verifier) *Registry {
	r := &Registry{verifiers: make(map[string]Verifier, len(verifiers))}
	for _, v := range verifiers {
		key := strings.ToLower(v.Platform())
		if _, exists := r.verifiers[key]; exists {
			continue
		}
		r.verifiers[key] = v
		r.order = append(r.order, key)
	}
	return r
}

// Resolve matches selectors case-insensitively.
func (r *Registry) Resolve(selector string) (Verifier, error) {
	v, ok := r.verifiers[strings.ToLower(selector)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, selector)
	}
	return v, nil
}

// Platforms returns the registered selectors in registration order.
func (r *Registry) Platforms() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
