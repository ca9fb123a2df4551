// Package tools contains small standalone helpers: range parsing, the reel
// calculator, statistics and server information.
package tools

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxRangeSize limits how many numbers a single range string may expand to
const MaxRangeSize = 10000

var rangeToken = regexp.MustCompile(`^(-?\d+)\s*-\s*(-?\d+)$`)

// ParseRange expands a range string like "1-3, 5; 7" into the numbers it
// names. Both "," and ";" separate tokens, empty tokens are skipped and
// ranges given backwards are swapped. A minus sign must touch its digits,
// "+" is not accepted.
func ParseRange(s string) ([]int, error) {
	s = strings.ReplaceAll(s, ";", ",")
	var out []int
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if m := rangeToken.FindStringSubmatch(token); m != nil {
			lo, err1 := strconv.Atoi(m[1])
			hi, err2 := strconv.Atoi(m[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("Invalid range encountered: %s", token)
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			if hi-lo >= MaxRangeSize || len(out)+(hi-lo+1) > MaxRangeSize {
				return nil, fmt.Errorf("range %s is too large", token)
			}
			for n := lo; n <= hi; n++ {
				out = append(out, n)
			}
			continue
		}
		n, ok := parseNumber(token)
		if !ok {
			return nil, fmt.Errorf("Invalid range encountered: %s", token)
		}
		if len(out) >= MaxRangeSize {
			return nil, fmt.Errorf("range %s is too large", s)
		}
		out = append(out, n)
	}
	return out, nil
}

// IsValidRange reports whether ParseRange accepts s
func IsValidRange(s string) bool {
	_, err := ParseRange(s)
	return err == nil
}

// parseNumber accepts plain integers and decimal numbers, which are
// truncated
func parseNumber(s string) (int, bool) {
	if strings.HasPrefix(s, "+") {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || strings.ContainsAny(s, "xXpPnNiI") {
		return 0, false
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
