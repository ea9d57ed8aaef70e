package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/fieldsync/internal/record"
	"github.com/roach88/fieldsync/internal/store"
)

// AssertionContext provides what state assertions read from.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", entry.Seq, describe(entry))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(trace []TraceEntry, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertProfileField:
		return assertProfileField(actx, a)
	case AssertRecord:
		return assertRecord(actx, a)
	case AssertRecordCount:
		return assertRecordCount(actx, a)
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertProfileField(actx *AssertionContext, a Assertion) error {
	got, err := actx.Store.Field(actx.Ctx, a.Profile, a.Key)
	if err != nil {
		return fmt.Errorf("read profile %s field %s: %w", a.Profile, a.Key, err)
	}
	if got != *a.Value {
		return &AssertionError{
			Type:     AssertProfileField,
			Expected: fmt.Sprintf("profile %s %s = %q", a.Profile, a.Key, *a.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

// assertRecord requires exactly one matching record and checks Expect with
// subset semantics.
func assertRecord(actx *AssertionContext, a Assertion) error {
	recs, err := actx.Store.Query(actx.Ctx, a.Record, a.Where)
	if err != nil {
		return fmt.Errorf("query %s: %w", a.Record, err)
	}
	if len(recs) != 1 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("exactly one %s where %s", a.Record, formatFields(a.Where)),
			Actual:   fmt.Sprintf("%d records", len(recs)),
		}
	}

	rec := recs[0]
	for _, k := range a.Expect.Keys() {
		actual, ok := rec[k]
		if !ok {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("field %q to exist", k),
				Actual:   fmt.Sprintf("fields: %s", strings.Join(rec.Keys(), ", ")),
			}
		}
		if actual != a.Expect[k] {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s %s = %q", a.Record, k, a.Expect[k]),
				Actual:   fmt.Sprintf("%q", actual),
			}
		}
	}
	return nil
}

func assertRecordCount(actx *AssertionContext, a Assertion) error {
	recs, err := actx.Store.Query(actx.Ctx, a.Record, a.Where)
	if err != nil {
		return fmt.Errorf("query %s: %w", a.Record, err)
	}
	if len(recs) != *a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s records where %s", *a.Count, a.Record, formatFields(a.Where)),
			Actual:   fmt.Sprintf("%d records", len(recs)),
		}
	}
	return nil
}

// assertTraceContains checks that at least one engine write matches.
func assertTraceContains(trace []TraceEntry, a Assertion) error {
	for _, entry := range trace {
		if matches(entry, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeSelector(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks the number of matching engine writes.
func assertTraceCount(trace []TraceEntry, a Assertion) error {
	count := 0
	for _, entry := range trace {
		if matches(entry, a) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *a.Count, describeSelector(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that set_field keys first appear in the given
// order. Intervening writes are allowed.
func assertTraceOrder(trace []TraceEntry, a Assertion) error {
	positions := make(map[string]int)
	for i, entry := range trace {
		if entry.Op != OpSetField {
			continue
		}
		if a.Profile != "" && entry.Profile != a.Profile {
			continue
		}
		if _, seen := positions[entry.Key]; !seen {
			positions[entry.Key] = i + 1
		}
	}

	for _, key := range a.Keys {
		if positions[key] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all keys written: %v", a.Keys),
				Actual:   fmt.Sprintf("missing key: %s", key),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Keys); i++ {
		prev, curr := a.Keys[i-1], a.Keys[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("keys in order: %v", a.Keys),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// matches applies the assertion's selectors to one trace entry. Unset
// selectors match anything; Fields is a subset match.
func matches(entry TraceEntry, a Assertion) bool {
	if a.Op != "" && entry.Op != a.Op {
		return false
	}
	if a.Record != "" && entry.Type != string(a.Record) {
		return false
	}
	if a.Profile != "" && entry.Profile != a.Profile {
		return false
	}
	if a.Key != "" && entry.Key != a.Key {
		return false
	}
	if a.Value != nil && (entry.Value == nil || *entry.Value != *a.Value) {
		return false
	}
	for k, v := range a.Fields {
		actual, ok := entry.Fields[k]
		if !ok || actual != v {
			return false
		}
	}
	return true
}

func describe(e TraceEntry) string {
	switch e.Op {
	case OpSetField:
		v := ""
		if e.Value != nil {
			v = *e.Value
		}
		return fmt.Sprintf("set_field profile=%s %s=%q (%s)", e.Profile, e.Key, v, e.Origin)
	default:
		return fmt.Sprintf("upsert %s %s (%s)", e.Type, formatFields(e.Fields), e.Origin)
	}
}

func describeSelector(a Assertion) string {
	parts := []string{}
	if a.Op != "" {
		parts = append(parts, a.Op)
	}
	if a.Record != "" {
		parts = append(parts, "type="+string(a.Record))
	}
	if a.Profile != "" {
		parts = append(parts, "profile="+a.Profile)
	}
	if a.Key != "" {
		parts = append(parts, "key="+a.Key)
	}
	if a.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%q", *a.Value))
	}
	if len(a.Fields) > 0 {
		parts = append(parts, "fields "+formatFields(a.Fields))
	}
	if len(parts) == 0 {
		return "any write"
	}
	return strings.Join(parts, " ")
}

// formatFields renders fields in sorted key order.
func formatFields(f record.Fields) string {
	if len(f) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, f[k]))
	}
	return strings.Join(parts, " AND ")
}
