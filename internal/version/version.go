// Package version orders the heterogeneous version identifiers used by the
// supported release APIs. Each source adapter declares which scheme its
// identifiers follow; identifiers that do not parse under the declared scheme
// are reported as ambiguous and must be excluded from ranking rather than
// guessed oldest or newest.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Scheme identifies how a source's version identifiers are ordered.
type Scheme string

const (
	// SchemeRelease covers dotted, semantic-version-like identifiers such
	// as "4.10.2" or "2.4.2-b713" (Modrinth version numbers, Geyser
	// releases, Minecraft game versions).
	SchemeRelease Scheme = "release"
	// SchemeBuild covers monotonically increasing integer build numbers
	// (Purpur and Paper builds).
	SchemeBuild Scheme = "build"
	// SchemeDate covers fixed-width date channel tags such as "2024.07.16".
	SchemeDate Scheme = "date"
)

// Ordering is the result of comparing two version identifiers.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// ErrAmbiguous marks an identifier that cannot be parsed under its declared
// scheme.
var ErrAmbiguous = errors.New("ambiguous version identifier")

var dateTag = regexp.MustCompile(`^\d{4}[.-]\d{2}[.-]\d{2}$`)

// Compare orders a and b under the given scheme. Either operand failing to
// parse yields ErrAmbiguous; callers must never rank an ambiguous identifier.
func Compare(a, b string, scheme Scheme) (Ordering, error) {
	switch scheme {
	case SchemeBuild:
		an, err := parseBuild(a)
		if err != nil {
			return Equal, err
		}
		bn, err := parseBuild(b)
		if err != nil {
			return Equal, err
		}
		return orderInt(an, bn), nil
	case SchemeDate:
		ad, err := parseDate(a)
		if err != nil {
			return Equal, err
		}
		bd, err := parseDate(b)
		if err != nil {
			return Equal, err
		}
		return orderString(ad, bd), nil
	case SchemeRelease:
		at, err := parseRelease(a)
		if err != nil {
			return Equal, err
		}
		bt, err := parseRelease(b)
		if err != nil {
			return Equal, err
		}
		return compareTokens(at, bt), nil
	default:
		return Equal, fmt.Errorf("%w: unknown scheme %q", ErrAmbiguous, scheme)
	}
}

// Valid reports whether v parses under the scheme.
func Valid(v string, scheme Scheme) error {
	_, err := Compare(v, v, scheme)
	return err
}

// Compatible reports whether the requested game version appears in a
// candidate's advertised compatibility list. An empty list means the source
// already filtered server-side and the candidate is taken as compatible.
func Compatible(gameVersions []string, requested string) bool {
	if len(gameVersions) == 0 {
		return true
	}
	for _, gv := range gameVersions {
		if strings.TrimSpace(gv) == requested {
			return true
		}
	}
	return false
}

func parseBuild(v string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a build number", ErrAmbiguous, v)
	}
	return n, nil
}

func parseDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !dateTag.MatchString(v) {
		return "", fmt.Errorf("%w: %q is not a date tag", ErrAmbiguous, v)
	}
	// Normalize separators so "2024-07-16" and "2024.07.16" collate together.
	return strings.ReplaceAll(v, "-", "."), nil
}

type token struct {
	num   int64
	text  string
	isNum bool
}

func parseRelease(v string) ([]token, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrAmbiguous)
	}
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '+' || r == '_'
	})
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %q has no comparable parts", ErrAmbiguous, v)
	}
	tokens := make([]token, 0, len(parts))
	sawNumeric := false
	for _, p := range parts {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			tokens = append(tokens, token{num: n, isNum: true})
			sawNumeric = true
			continue
		}
		tokens = append(tokens, token{text: strings.ToLower(p)})
	}
	if !sawNumeric {
		return nil, fmt.Errorf("%w: %q contains no numeric component", ErrAmbiguous, v)
	}
	return tokens, nil
}

// compareTokens walks both token lists pairwise. Numeric tokens outrank
// textual ones at the same position, so "1.2.0" > "1.2.0-rc1" while
// "1.2.0.1" > "1.2.0".
func compareTokens(a, b []token) Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		at, bt := a[i], b[i]
		switch {
		case at.isNum && bt.isNum:
			if ord := orderInt(at.num, bt.num); ord != Equal {
				return ord
			}
		case !at.isNum && !bt.isNum:
			if ord := orderString(at.text, bt.text); ord != Equal {
				return ord
			}
		case at.isNum:
			return Greater
		default:
			return Less
		}
	}
	if len(a) == len(b) {
		return Equal
	}
	longer, ord := a, Greater
	if len(b) > len(a) {
		longer, ord = b, Less
	}
	// A trailing textual token marks a prerelease, which ranks below the
	// shorter identifier; a trailing numeric token ranks above it.
	if !longer[n].isNum {
		return -ord
	}
	return ord
}

func orderInt(a, b int64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func orderString(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}
