package harness

import "github.com/roach88/fieldsync/internal/record"

// Trace operations.
const (
	OpUpsert   = "upsert"
	OpSetField = "set_field"
)

// TraceEntry is one write issued by the engine.
type TraceEntry struct {
	Seq     int64         `json:"seq"`
	Op      string        `json:"op"`
	Origin  string        `json:"origin"`
	Type    string        `json:"type,omitempty"`
	Profile string        `json:"profile,omitempty"`
	Key     string        `json:"key,omitempty"`
	Value   *string       `json:"value,omitempty"`
	Fields  record.Fields `json:"fields,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds the engine's writes in issue order.
	Trace []TraceEntry `json:"trace"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
