package auth

import (
	"errors"
	"testing"

	"mercator-hq/conditional/pkg/config"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator([]config.APIKeyConfig{
		{Name: "ci", Key: "sk-ci"},
		{Name: "ops", Key: "sk-ops"},
		{Name: "retired", Key: "sk-retired", Disabled: true},
	})

	tests := []struct {
		name      string
		presented string
		wantName  string
		wantErr   error
	}{
		{name: "first key", presented: "sk-ci", wantName: "ci"},
		{name: "second key", presented: "sk-ops", wantName: "ops"},
		{name: "unknown", presented: "sk-nope", wantErr: ErrInvalidKey},
		{name: "prefix of a key", presented: "sk-c", wantErr: ErrInvalidKey},
		{name: "disabled", presented: "sk-retired", wantErr: ErrKeyDisabled},
		{name: "empty", presented: "", wantErr: ErrMissingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := v.Validate(tt.presented)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate(%q) error = %v, want %v", tt.presented, err, tt.wantErr)
			}
			if err == nil && key.Name != tt.wantName {
				t.Errorf("Validate(%q) name = %q, want %q", tt.presented, key.Name, tt.wantName)
			}
		})
	}
}

func TestValidator_Replace(t *testing.T) {
	v := NewValidator([]config.APIKeyConfig{{Name: "old", Key: "sk-old"}})
	v.Replace([]config.APIKeyConfig{{Name: "new", Key: "sk-new"}})

	if v.Len() != 1 {
		t.Errorf("Len() = %d, want 1", v.Len())
	}
	if _, err := v.Validate("sk-old"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("replaced key error = %v, want ErrInvalidKey", err)
	}
	if key, err := v.Validate("sk-new"); err != nil || key.Name != "new" {
		t.Errorf("Validate(sk-new) = %+v, %v", key, err)
	}
}
