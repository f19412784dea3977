// Package predicate turns sanitized command output into a verdict.
package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
)

// Predicate tests a single output value.
// Test returns a PredicateError when the value cannot be tested at all.
type Predicate interface {
	Test(value string) (bool, error)
	String() string
}

type equals struct{ want string }

// Equals matches when the value is exactly want.
func Equals(want string) Predicate {
	return equals{want: want}
}

func (p equals) Test(value string) (bool, error) {
	return value == p.want, nil
}

func (p equals) String() string {
	return fmt.Sprintf("equals %q", p.want)
}

// Op is an integer comparison operator.
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpGt Op = "gt"
	OpGe Op = "ge"
	OpLt Op = "lt"
	OpLe Op = "le"
)

var opSymbols = map[Op]string{
	OpEq: "==", OpNe: "!=", OpGt: ">", OpGe: ">=", OpLt: "<", OpLe: "<=",
}

// ParseOp parses an operator name such as "gt" or a symbol such as ">".
func ParseOp(s string) (Op, error) {
	for op, sym := range opSymbols {
		if s == string(op) || s == sym {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

type numeric struct {
	op Op
	n  int64
}

// NumericGreaterThan parses the value as an integer and matches when it is
// greater than n.
func NumericGreaterThan(n int64) Predicate {
	return numeric{op: OpGt, n: n}
}

// NumericCompare parses the value as an integer and compares it with n.
func NumericCompare(op Op, n int64) Predicate {
	return numeric{op: op, n: n}
}

func (p numeric) Test(value string) (bool, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, &PredicateError{Predicate: p.String(), Value: value, Err: err}
	}
	switch p.op {
	case OpEq:
		return v == p.n, nil
	case OpNe:
		return v != p.n, nil
	case OpGt:
		return v > p.n, nil
	case OpGe:
		return v >= p.n, nil
	case OpLt:
		return v < p.n, nil
	case OpLe:
		return v <= p.n, nil
	}
	return false, &PredicateError{Predicate: p.String(), Value: value, Err: fmt.Errorf("unknown operator %q", p.op)}
}

func (p numeric) String() string {
	sym, ok := opSymbols[p.op]
	if !ok {
		sym = string(p.op)
	}
	return fmt.Sprintf("integer %s %d", sym, p.n)
}

type matches struct{ re *regexp.Regexp }

// Matches compiles pattern and matches values the expression finds a match in.
func Matches(pattern string) (Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return matches{re: re}, nil
}

func (p matches) Test(value string) (bool, error) {
	return p.re.MatchString(value), nil
}

func (p matches) String() string {
	return fmt.Sprintf("matches %q", p.re.String())
}

type version struct {
	raw string
	c   *semver.Constraints
}

// Version matches when the value, read as a semantic version (a leading "v"
// and missing minor/patch parts are accepted), satisfies constraint, e.g.
// ">= 1.20, < 2".
func Version(constraint string) (Predicate, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint: %w", err)
	}
	return version{raw: constraint, c: c}, nil
}

func (p version) Test(value string) (bool, error) {
	v, err := semver.NewVersion(value)
	if err != nil {
		return false, &PredicateError{Predicate: p.String(), Value: value, Err: err}
	}
	return p.c.Check(v), nil
}

func (p version) String() string {
	return "version " + p.raw
}

var errNoJSONField = errors.New("field not found")

type jsonField struct {
	path  string
	inner Predicate
}

// JSONField reads the value as JSON, extracts path (gjson syntax, e.g.
// "status.state" or "items.#") and applies inner to the extracted value.
func JSONField(path string, inner Predicate) Predicate {
	return jsonField{path: path, inner: inner}
}

func (p jsonField) Test(value string) (bool, error) {
	if !gjson.Valid(value) {
		return false, &PredicateError{Predicate: p.String(), Value: value, Err: errors.New("invalid JSON")}
	}
	res := gjson.Get(value, p.path)
	if !res.Exists() {
		return false, &PredicateError{Predicate: p.String(), Value: value, Err: fmt.Errorf("%w: %s", errNoJSONField, p.path)}
	}
	return p.inner.Test(res.String())
}

func (p jsonField) String() string {
	return fmt.Sprintf("json %s %s", p.path, p.inner)
}

type not struct{ inner Predicate }

// Not inverts p. Errors from p are passed through unchanged.
func Not(p Predicate) Predicate {
	return not{inner: p}
}

func (p not) Test(value string) (bool, error) {
	ok, err := p.inner.Test(value)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (p not) String() string {
	return "not " + p.inner.String()
}

// trimValue normalises a target line before testing.
func trimValue(s string) string {
	return strings.TrimSpace(s)
}
