package model

import (
	"math/big"
	"strconv"
	"strings"
)

// ParseAmount parses a signed decimal integer. Malformed input yields ok=false.
func ParseAmount(value string) (*big.Int, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, false
	}
	v := new(big.Int)
	if _, ok := v.SetString(trimmed, 10); !ok {
		return nil, false
	}
	return v, true
}

// AmountIsZero treats empty and malformed amounts as zero.
func AmountIsZero(value string) bool {
	v, ok := ParseAmount(value)
	if !ok {
		return true
	}
	return v.Sign() == 0
}

// SignedAmount formats a native amount as outgoing (negative) or incoming.
func SignedAmount(amount int64, outgoing bool) string {
	if outgoing && amount != 0 {
		return strconv.FormatInt(-amount, 10)
	}
	return strconv.FormatInt(amount, 10)
}

// NegateAmount flips the sign of a decimal amount, mapping malformed input to "0".
func NegateAmount(value string) string {
	v, ok := ParseAmount(value)
	if !ok {
		return "0"
	}
	return v.Neg(v).String()
}
