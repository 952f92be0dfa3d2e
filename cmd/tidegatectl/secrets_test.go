package main

import (
	"strings"
	"testing"
)

func TestAPIKeyShape(t *testing.T) {
	g := NewSecretGenerator()
	key, err := g.APIKey()
	if err != nil {
		t.Fatalf("APIKey() error: %v", err)
	}
	if !strings.HasPrefix(key, APIKeyPrefix) {
		t.Errorf("key %q missing prefix %q", key, APIKeyPrefix)
	}
	if len(key) != len(APIKeyPrefix)+APIKeySuffixLength {
		t.Errorf("key length = %d, want %d", len(key), len(APIKeyPrefix)+APIKeySuffixLength)
	}
	if !ValidAPIKey(key) {
		t.Errorf("generated key %q fails its own validator", key)
	}
}

func TestPasswordLength(t *testing.T) {
	g := NewSecretGenerator()
	pw, err := g.Password()
	if err != nil {
		t.Fatalf("Password() error: %v", err)
	}
	if len(pw) != PasswordLength {
		t.Errorf("password length = %d, want %d", len(pw), PasswordLength)
	}
	for _, c := range pw {
		if !strings.ContainsRune(alphanumeric, c) {
			t.Errorf("password contains %q outside the alphabet", c)
		}
	}
}

func TestGeneratedValuesNeverRepeat(t *testing.T) {
	g := NewSecretGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		v, err := g.Password()
		if err != nil {
			t.Fatalf("Password() error: %v", err)
		}
		if seen[v] {
			t.Fatalf("duplicate generated value %q", v)
		}
		seen[v] = true
	}
}

func TestValidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"valid", "tgk_" + strings.Repeat("a", 32), true},
		{"valid mixed", "tgk_A1b2C3d4E5f6G7h8I9j0K1l2M3n4O5p6", true},
		{"empty", "", false},
		{"prefix only", "tgk_", false},
		{"short suffix", "tgk_" + strings.Repeat("a", 31), false},
		{"long suffix", "tgk_" + strings.Repeat("a", 33), false},
		{"wrong prefix", "tg_" + strings.Repeat("a", 32), false},
		{"symbols in suffix", "tgk_" + strings.Repeat("a", 31) + "!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAPIKey(tt.key); got != tt.want {
				t.Errorf("ValidAPIKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
