package memspace

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseUint parses an operator-supplied integer literal: a 0x or 0X prefix
// selects base 16, anything else parses as decimal. Trailing characters after
// the number are an error, not ignored.
func ParseUint(tok string) (uint32, error) {
	if tok == "" {
		return 0, fmt.Errorf("empty number")
	}
	s, base := tok, 10
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		s, base = tok[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", tok)
	}
	return uint32(v), nil
}
