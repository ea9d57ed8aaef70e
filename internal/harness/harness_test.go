package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/record"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int { return &n }

func TestRun_ScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_SetupWritesAreNotTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup_untraced",
		Description: "Setup writes do not reach the trace",
		Setup: []Step{
			{Link: &LinkStep{Profile: "7"}},
			{SetField: &SetFieldStep{Profile: "7", Key: "billing_city", Value: "Portland"}},
		},
		Flow: []Step{
			{SetField: &SetFieldStep{Profile: "7", Key: "billing_postcode", Value: "97201"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Op: OpUpsert, Count: intPtr(1)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 1)
	entry := result.Trace[0]
	assert.Equal(t, int64(1), entry.Seq)
	assert.Equal(t, "harness-2", entry.Origin)
	assert.Equal(t, "1", entry.Fields[record.FieldID])
	assert.Equal(t, "97201", entry.Fields[record.FieldPostalCode])
}

func TestRun_UnlinkedProfileIssuesNoWrites(t *testing.T) {
	scenario := &Scenario{
		Name:        "unlinked",
		Description: "No link, no sync",
		Flow: []Step{
			{SetField: &SetFieldStep{Profile: "9", Key: "billing_city", Value: "Portland"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Count: intPtr(0)},
			{Type: AssertProfileField, Profile: "9", Key: "billing_city", Value: strPtr("Portland")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace)
}

func TestRun_LinkToMissingContactFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "link_existing",
		Description: "Linking to a missing contact fails the step",
		Flow: []Step{
			{Link: &LinkStep{Profile: "7", Contact: "404"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Count: intPtr(0)},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow step 0")
}

func TestRun_FailingAssertionMarksResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "Assertion that cannot hold",
		Setup: []Step{
			{Link: &LinkStep{Profile: "7"}},
		},
		Flow: []Step{
			{SetField: &SetFieldStep{Profile: "7", Key: "billing_city", Value: "Portland"}},
		},
		Assertions: []Assertion{
			{Type: AssertProfileField, Profile: "7", Key: "billing_city", Value: strPtr("Salem")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `"Salem"`)
}

func TestRun_UnknownStateIssuesNoUpsert(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknown_state",
		Description: "An abbreviation outside the country's list is not written",
		Setup: []Step{
			{Link: &LinkStep{Profile: "7"}},
			{SetField: &SetFieldStep{Profile: "7", Key: "billing_country", Value: "US"}},
		},
		Flow: []Step{
			{SetField: &SetFieldStep{Profile: "7", Key: "billing_state", Value: "ZZ"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Op: OpUpsert, Count: intPtr(0)},
			{Type: AssertRecord, Record: record.TypeAddress, Where: record.Fields{"contact_id": "1"},
				Expect: record.Fields{"state_province_id": "", "country_id": "1228"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
