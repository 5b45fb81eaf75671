// Package selection parses the free-text answer a user gives when asked which
// of N numbered candidates to certify.
//
// Grammar (whitespace is ignored, keywords are case-insensitive):
//
//	input  = "" | "none" | "all" | token { "," token }
//	token  = int | int "-" int
//
// Ranges are inclusive and order-insensitive: "5-1" selects 1 through 5.
// "all" must be the only token.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selection is the parsed result. All is set for the "all" keyword; otherwise
// the chosen indices are available from Indices.
type Selection struct {
	All     bool
	indices map[int]struct{}
	n       int
}

// Indices returns the selected 1-based indices in ascending order.
func (s Selection) Indices() []int {
	if s.All {
		out := make([]int, s.n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	out := make([]int, 0, len(s.indices))
	for i := range s.indices {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return len(s.Indices()) == 0
}

// ParseError reports an invalid token. N is the catalog size, so the valid
// range is [1, N].
type ParseError struct {
	Token  string
	N      int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid selection %q: %s", e.Token, e.Reason)
	}
	return fmt.Sprintf("invalid selection %q: must be within [1,%d]", e.Token, e.N)
}

// IsParseError reports whether err is a selection parse error.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Parse parses input against a catalog of n candidates.
func Parse(input string, n int) (Selection, error) {
	sel := Selection{indices: make(map[int]struct{}), n: n}

	trimmed := strings.TrimSpace(input)
	switch strings.ToLower(trimmed) {
	case "", "none":
		return sel, nil
	case "all":
		sel.All = true
		return sel, nil
	}

	for _, raw := range strings.Split(trimmed, ",") {
		tok := strings.TrimSpace(raw)
		switch strings.ToLower(tok) {
		case "":
			continue
		case "all":
			return Selection{}, &ParseError{Token: tok, N: n, Reason: `"all" must be the only token`}
		case "none":
			return Selection{}, &ParseError{Token: tok, N: n, Reason: `"none" must be the only token`}
		}

		lo, hi, err := parseToken(tok, n)
		if err != nil {
			return Selection{}, err
		}
		for i := lo; i <= hi; i++ {
			sel.indices[i] = struct{}{}
		}
	}
	return sel, nil
}

func parseToken(tok string, n int) (int, int, error) {
	// A leading '-' would make "-3" look like a range with an empty start.
	if i := strings.Index(tok[1:], "-"); i >= 0 {
		left := strings.TrimSpace(tok[:i+1])
		right := strings.TrimSpace(tok[i+2:])
		a, err := parseIndex(tok, left, n)
		if err != nil {
			return 0, 0, err
		}
		b, err := parseIndex(tok, right, n)
		if err != nil {
			return 0, 0, err
		}
		if a > b {
			a, b = b, a
		}
		return a, b, nil
	}
	v, err := parseIndex(tok, tok, n)
	return v, v, err
}

func parseIndex(tok, s string, n int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Token: tok, N: n, Reason: "not a number or range"}
	}
	if v < 1 || v > n {
		return 0, &ParseError{Token: tok, N: n}
	}
	return v, nil
}
