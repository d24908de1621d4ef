package lastresults

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidNumber = errors.New("invalid result number")

// maxRangeSize bounds a single "a-b" range.
const maxRangeSize = 1000

// ParseNumbers parses result numbers: "1", "1,3,5", "1-5" or mixed
// "1,3-5,7". Spaces separate like commas. Duplicates are dropped and the
// first-seen order is kept.
func ParseNumbers(input string) ([]int, error) {
	input = strings.ReplaceAll(strings.TrimSpace(input), " ", ",")
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidNumber)
	}

	var out []int
	seen := make(map[int]bool)
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			start, end, err := parseRange(lo, hi)
			if err != nil {
				return nil, err
			}
			for n := start; n <= end; n++ {
				add(n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid number", ErrInvalidNumber, part)
		}
		if n < 1 {
			return nil, fmt.Errorf("%w: %d must be positive", ErrInvalidNumber, n)
		}
		add(n)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid numbers found", ErrInvalidNumber)
	}
	return out, nil
}

func parseRange(lo, hi string) (int, int, error) {
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid range start %q", ErrInvalidNumber, lo)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid range end %q", ErrInvalidNumber, hi)
	}
	if start < 1 {
		return 0, 0, fmt.Errorf("%w: range start %d must be positive", ErrInvalidNumber, start)
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: range end %d must be >= start %d", ErrInvalidNumber, end, start)
	}
	if end-start+1 > maxRangeSize {
		return 0, 0, fmt.Errorf("%w: range %d-%d is too large (max %d)", ErrInvalidNumber, start, end, maxRangeSize)
	}
	return start, end, nil
}

// ParseNumberArgs joins args with commas and parses them.
func ParseNumberArgs(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no numbers provided", ErrInvalidNumber)
	}
	return ParseNumbers(strings.Join(args, ","))
}
