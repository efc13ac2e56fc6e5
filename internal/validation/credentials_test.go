package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@example.com  ", "bob@example.com"},
		{"already@lower.case", "already@lower.case"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeEmail(tt.input))
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "alice@example.com", false},
		{"valid with plus", "alice+tag@example.com", false},
		{"valid subdomain", "a@mail.example.co.uk", false},
		{"empty", "", true},
		{"no at sign", "aliceexample.com", true},
		{"no domain", "alice@", true},
		{"no tld", "alice@example", true},
		{"spaces inside", "ali ce@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@e.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Sup3rSecret", false},
		{"exactly eight chars", "Abcdefg1", false},
		{"empty", "", true},
		{"too short", "Ab1", true},
		{"no uppercase", "abcdefg1", true},
		{"no lowercase", "ABCDEFG1", true},
		{"no digit", "Abcdefgh", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
