package terminal

import (
	"crypto/subtle"

	dErrors "bioentry/pkg/domain-errors"
)

// Registry holds the shared-secret API keys of known terminals. Keys are
// loaded once from configuration at startup; rotation is a restart.
type Registry struct {
	keys map[string]string
}

// NewRegistry builds a Registry from a terminal id to API key map.
func NewRegistry(keys map[string]string) *Registry {
	copied := make(map[string]string, len(keys))
	for id, key := range keys {
		copied[id] = key
	}
	return &Registry{keys: copied}
}

// Authenticate checks a terminal's API key. Unknown terminals and key
// mismatches are indistinguishable to the caller.
func (r *Registry) Authenticate(terminalID, apiKey string) error {
	expected, ok := r.keys[terminalID]
	if !ok || apiKey == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(apiKey)) != 1 {
		return dErrors.New(dErrors.CodeForbidden, "unknown terminal or invalid api key")
	}
	return nil
}

// Known reports whether a terminal id is registered, without checking a key.
func (r *Registry) Known(terminalID string) bool {
	_, ok := r.keys[terminalID]
	return ok
}
