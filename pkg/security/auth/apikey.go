package auth

import (
	"crypto/subtle"
	"errors"
	"sync"

	"mercator-hq/conditional/pkg/config"
)

var (
	// ErrMissingKey means no source carried a key.
	ErrMissingKey = errors.New("missing API key")

	// ErrInvalidKey means the key is not configured.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled means the key is configured but disabled.
	ErrKeyDisabled = errors.New("API key disabled")
)

// Key is one accepted API key.
type Key struct {
	Name    string
	Value   string
	Enabled bool
}

// Validator looks up presented keys.
type Validator struct {
	mu   sync.RWMutex
	keys []*Key
}

// NewValidator creates a validator over the configured keys.
func NewValidator(keys []config.APIKeyConfig) *Validator {
	v := &Validator{}
	v.Replace(keys)
	return v
}

// Replace swaps the key set.
func (v *Validator) Replace(keys []config.APIKeyConfig) {
	set := make([]*Key, 0, len(keys))
	for _, k := range keys {
		set = append(set, &Key{Name: k.Name, Value: k.Key, Enabled: !k.Disabled})
	}
	v.mu.Lock()
	v.keys = set
	v.mu.Unlock()
}

// Validate returns the key matching presented. All keys are compared in
// constant time.
func (v *Validator) Validate(presented string) (*Key, error) {
	if presented == "" {
		return nil, ErrMissingKey
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var match *Key
	for _, k := range v.keys {
		if subtle.ConstantTimeCompare([]byte(k.Value), []byte(presented)) == 1 {
			match = k
		}
	}
	switch {
	case match == nil:
		return nil, ErrInvalidKey
	case !match.Enabled:
		return nil, ErrKeyDisabled
	}
	return match, nil
}

// Len returns the number of configured keys.
func (v *Validator) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keys)
}
