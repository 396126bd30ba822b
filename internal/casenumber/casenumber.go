// Package casenumber issues human-readable incident case numbers of the form
// EDN-yyyy-mm-nnnn from an atomic per-month counter.
package casenumber

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "EDN"

// MaxLength is the longest case number the incidents table stores.
const MaxLength = 20

// Sequence hands out the next serial for a period. Implementations must be atomic:
// concurrent callers never receive the same serial for one period.
type Sequence interface {
	NextSerial(ctx context.Context, period string) (int, error)
}

// Generator formats case numbers. Periods are computed in loc, so an incident
// created just after midnight local time lands in the local month.
type Generator struct {
	prefix string
	loc    *time.Location
}

func NewGenerator(prefix string, loc *time.Location) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{prefix: prefix, loc: loc}
}

// Prefix returns the configured prefix.
func (g *Generator) Prefix() string {
	return g.prefix
}

// Next draws a serial from seq for now's month and returns the formatted number.
// The serial is only consumed if seq's enclosing transaction commits.
func (g *Generator) Next(ctx context.Context, seq Sequence, now time.Time) (string, error) {
	local := now.In(g.loc)
	serial, err := seq.NextSerial(ctx, Period(local))
	if err != nil {
		return "", fmt.Errorf("failed to draw case number serial: %w", err)
	}

	number := Format(g.prefix, local.Year(), local.Month(), serial)
	if len(number) > MaxLength {
		return "", fmt.Errorf("case number %s exceeds %d characters", number, MaxLength)
	}
	return number, nil
}

// Period is the counter key for t: yyyy-mm in t's location.
func Period(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// Format renders prefix-yyyy-mm-nnnn. Serials past 9999 widen.
func Format(prefix string, year int, month time.Month, serial int) string {
	return fmt.Sprintf("%s-%04d-%02d-%04d", prefix, year, int(month), serial)
}

// Number is a parsed case number.
type Number struct {
	Prefix string
	Year   int
	Month  time.Month
	Serial int
}

func (n Number) String() string {
	return Format(n.Prefix, n.Year, n.Month, n.Serial)
}

var numberPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)-(\d{4})-(\d{2})-(\d{4,})$`)

// Parse splits a case number into its parts.
func Parse(s string) (Number, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return Number{}, fmt.Errorf("invalid case number %q", s)
	}

	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	serial, err := strconv.Atoi(m[4])
	if err != nil {
		return Number{}, fmt.Errorf("invalid case number serial %q: %w", m[4], err)
	}
	if month < 1 || month > 12 {
		return Number{}, fmt.Errorf("invalid case number month %q", m[3])
	}
	if serial < 1 {
		return Number{}, fmt.Errorf("invalid case number serial %q", m[4])
	}

	return Number{Prefix: m[1], Year: year, Month: time.Month(month), Serial: serial}, nil
}

// IsCaseNumber reports whether s is a well-formed case number.
func IsCaseNumber(s string) bool {
	_, err := Parse(s)
	return err == nil
}
