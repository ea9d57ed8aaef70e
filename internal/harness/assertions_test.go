package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/record"
)

func sampleTrace() []TraceEntry {
	return []TraceEntry{
		{Seq: 1, Op: OpUpsert, Origin: "harness-1", Type: "Address",
			Fields: record.Fields{"contact_id": "1", "city": "Portland", "is_billing": "1"}},
		{Seq: 2, Op: OpSetField, Origin: "harness-2", Profile: "7", Key: "shipping_city", Value: strPtr("Portland")},
		{Seq: 3, Op: OpSetField, Origin: "harness-2", Profile: "7", Key: "billing_city", Value: strPtr("")},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Op: OpUpsert, Record: record.TypeAddress,
		Fields: record.Fields{"city": "Portland"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Op: OpSetField, Key: "billing_city", Value: strPtr("")}))

	err := assertTraceContains(trace, Assertion{Op: OpUpsert, Record: record.TypePhone})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "[1] upsert Address")
}

func TestAssertTraceContains_ValueSelectorNeedsSetField(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{Op: OpUpsert, Value: strPtr("Portland")})
	assert.Error(t, err)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Count: intPtr(3)}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: OpSetField, Profile: "7", Count: intPtr(2)}))

	err := assertTraceCount(trace, Assertion{Op: OpUpsert, Count: intPtr(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Keys: []string{"shipping_city", "billing_city"}}))

	err := assertTraceOrder(trace, Assertion{Keys: []string{"billing_city", "shipping_city"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Keys: []string{"shipping_city", "billing_state"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing key: billing_state")
}

func TestEvaluateAssertions_PrefixesIndex(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Count: intPtr(3)},
		{Type: AssertTraceCount, Op: OpUpsert, Count: intPtr(0)},
	}, nil)

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "assertions[1]:")
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatFields(nil))
	assert.Equal(t, "a=1 AND b=2", formatFields(record.Fields{"b": "2", "a": "1"}))
}
