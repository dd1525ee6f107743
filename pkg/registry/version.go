package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionRegex = regexp.MustCompile(`^\d+(\.\d+)*$`)

// Version is a published package version: dotted integers of any arity,
// ordered component-wise with missing components ranking below zero-padded
// ones (1.2 < 1.2.0).
type Version struct {
	parts []int
	orig  string
}

// ParseVersion parses a dotted-integer version string.
func ParseVersion(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if !versionRegex.MatchString(trimmed) {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}

	fields := strings.Split(trimmed, ".")
	parts := make([]int, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", raw, err)
		}
		parts[i] = n
	}

	return Version{parts: parts, orig: trimmed}, nil
}

// MustParseVersion parses a version and panics on failure. For tests and
// constants only.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as written.
func (v Version) String() string {
	return v.orig
}

// IsZero reports whether the version is the zero value (not parsed).
func (v Version) IsZero() bool {
	return v.parts == nil
}

// Compare orders two versions: -1 if v < o, 0 if equal, 1 if v > o.
func (v Version) Compare(o Version) int {
	for i := 0; i < len(v.parts) && i < len(o.parts); i++ {
		switch {
		case v.parts[i] < o.parts[i]:
			return -1
		case v.parts[i] > o.parts[i]:
			return 1
		}
	}
	switch {
	case len(v.parts) < len(o.parts):
		return -1
	case len(v.parts) > len(o.parts):
		return 1
	}
	return 0
}

// Equal reports component-wise equality (1.2.3 and 1.2.3.0 are distinct).
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

type constraintOp int

const (
	opExact constraintOp = iota
	opWildcard
	opAtLeast
	opBelow
)

type constraintClause struct {
	op      constraintOp
	version Version
}

func (c constraintClause) matches(v Version) bool {
	switch c.op {
	case opExact:
		return v.Equal(c.version)
	case opWildcard:
		return hasPrefix(v, c.version)
	case opAtLeast:
		return v.Compare(c.version) >= 0
	case opBelow:
		return v.Compare(c.version) < 0
	default:
		return false
	}
}

// hasPrefix reports whether v starts with the prefix components, padding v
// with zeros so 1.2 matches 1.2.*.
func hasPrefix(v Version, prefix Version) bool {
	for i, want := range prefix.parts {
		got := 0
		if i < len(v.parts) {
			got = v.parts[i]
		}
		if got != want {
			return false
		}
	}
	return true
}

// Constraint restricts acceptable versions. The grammar is a conjunction of
// clauses joined with "&&"; each clause is an exact version, a prefix
// wildcard "1.2.*", or a bound ">=A" / "<B". A nil Constraint matches every
// version.
type Constraint struct {
	clauses []constraintClause
	orig    string
}

// ParseConstraint parses a constraint expression. Empty input yields a nil
// Constraint, which matches everything.
func ParseConstraint(raw string) (*Constraint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	terms := strings.Split(trimmed, "&&")
	clauses := make([]constraintClause, 0, len(terms))
	for _, term := range terms {
		clause, err := parseClause(term)
		if err != nil {
			return nil, fmt.Errorf("invalid constraint %q: %w", raw, err)
		}
		clauses = append(clauses, clause)
	}

	return &Constraint{clauses: clauses, orig: trimmed}, nil
}

func parseClause(term string) (constraintClause, error) {
	term = strings.TrimSpace(term)
	switch {
	case term == "":
		return constraintClause{}, fmt.Errorf("empty clause")

	case strings.HasPrefix(term, ">="):
		v, err := ParseVersion(term[len(">="):])
		if err != nil {
			return constraintClause{}, err
		}
		return constraintClause{op: opAtLeast, version: v}, nil

	case strings.HasPrefix(term, "<"):
		v, err := ParseVersion(term[len("<"):])
		if err != nil {
			return constraintClause{}, err
		}
		return constraintClause{op: opBelow, version: v}, nil

	case strings.HasSuffix(term, ".*"):
		v, err := ParseVersion(strings.TrimSuffix(term, ".*"))
		if err != nil {
			return constraintClause{}, err
		}
		return constraintClause{op: opWildcard, version: v}, nil

	default:
		v, err := ParseVersion(term)
		if err != nil {
			return constraintClause{}, err
		}
		return constraintClause{op: opExact, version: v}, nil
	}
}

// Matches reports whether the version satisfies every clause.
func (c *Constraint) Matches(v Version) bool {
	if c == nil {
		return true
	}
	for _, clause := range c.clauses {
		if !clause.matches(v) {
			return false
		}
	}
	return true
}

// String returns the constraint as written; a nil Constraint renders as "*".
func (c *Constraint) String() string {
	if c == nil {
		return "*"
	}
	return c.orig
}

// LatestSatisfying returns the highest version matching the constraint.
func LatestSatisfying(versions []Version, c *Constraint) (Version, bool) {
	var best Version
	found := false
	for _, v := range versions {
		if !c.Matches(v) {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}
