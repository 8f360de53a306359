package backend

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumberError is returned for integer input that is not a number, does not
// fit in 64 bits, or does not fit in 32 bits.
type NumberError struct {
	Input  string
	Reason string
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("'%s' %s", e.Input, e.Reason)
}

const (
	reasonNaN      = "is not a number"
	reasonRange    = "is out of range"
	reasonOverflow = "is too large (overflow)"
)

// ParseU32 parses decimal, 0x-hex or 0-octal text into a uint32. Digit
// separators and the 0b/0o prefixes are not numbers here.
func ParseU32(s string) (uint32, error) {
	if strings.Contains(s, "_") || hasPrefixFold(s, "0b") || hasPrefixFold(s, "0o") {
		return 0, &NumberError{Input: s, Reason: reasonNaN}
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &NumberError{Input: s, Reason: reasonRange}
		}
		return 0, &NumberError{Input: s, Reason: reasonNaN}
	}
	if n > math.MaxUint32 {
		return 0, &NumberError{Input: s, Reason: reasonOverflow}
	}
	return uint32(n), nil
}

func parseHeightBody(body []byte) (uint32, error) {
	return ParseU32(strings.TrimSpace(string(body)))
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
