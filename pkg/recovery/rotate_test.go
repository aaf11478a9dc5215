package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		shift int
		want  string
	}{
		{"forward shift", "This is a quote", 2, "Vjku ku c swqvg"},
		{"preserves case", "Hello World", 1, "Ifmmp Xpsme"},
		{"wraps alphabet", "xyz XYZ", 3, "abc ABC"},
		{"identity", "unchanged", 0, "unchanged"},
		{"full rotation", "unchanged", 26, "unchanged"},
		{"negative shift decodes", "Vjku ku c swqvg", -2, "This is a quote"},
		{"normalizes large shifts", "abc", 27, "bcd"},
		{"leaves non-letters alone", "a1! b2?", 1, "b1! c2?"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rotate(tt.in, tt.shift))
		})
	}
}

func TestRotateRoundTrip(t *testing.T) {
	const text = "Please confirm the flight price and send your best quote."
	for shift := 1; shift <= 25; shift++ {
		assert.Equal(t, text, Rotate(Rotate(text, shift), -shift), "shift %d", shift)
	}
}
