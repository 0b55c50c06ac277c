package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(11) 98765-4321", "5511987654321"},
		{"11 3456-7890", "551134567890"},
		{"+55 11 98765-4321", "5511987654321"},
		{"011987654321", "5511987654321"},
		// carrier selection codes are dialing prefixes, not country codes
		{"0 15 (11) 98765-4321", "5511987654321"},
		{"021 11 98765-4321", "5511987654321"},
		{"+351 912 345 678", "351912345678"},
		{"123456789012", ""},
		{"98765-4321", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
	assert.True(t, Valid("11987654321"))
	assert.False(t, Valid("123"))
}
