package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBalanceString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"£20,210.40", "20210.4"},
		{"£1,234,567.89", "1234567.89"},
		{"£500", "500"},
		{"£ 42.50", "42.5"},
		{"Balance: £19,500.00 as of today", "19500"},
		{"£0.00", "0"},
		{"no currency here", "0"},
		{"", "0"},
		{"$100.00", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseBalanceString(tt.input)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
