package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountIsZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		zero  bool
	}{
		{"0", true},
		{"-0", true},
		{"", true},
		{"invalid", true},
		{"1", false},
		{"-1", false},
		{" 42 ", false},
		{"340282366920938463463374607431768211457", false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			assert.Equal(t, tc.zero, AmountIsZero(tc.value))
		})
	}
}

func TestSignedAmount(t *testing.T) {
	assert.Equal(t, "-1000000", SignedAmount(1000000, true))
	assert.Equal(t, "1000000", SignedAmount(1000000, false))
	assert.Equal(t, "0", SignedAmount(0, true))
}

func TestNegateAmount(t *testing.T) {
	assert.Equal(t, "-500", NegateAmount("500"))
	assert.Equal(t, "500", NegateAmount("-500"))
	assert.Equal(t, "0", NegateAmount("0"))
	assert.Equal(t, "0", NegateAmount("nope"))
}
