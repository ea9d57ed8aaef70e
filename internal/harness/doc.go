// Package harness runs field-sync scenarios against the real engine.
//
// Each scenario gets a fresh SQLite store in a temporary directory, seeded
// with the default reference data. The engine is attached to the store the
// way the CLI attaches it, with origin tokens drawn from a sequential
// generator so traces are reproducible.
//
// # Scenario Format
//
//	name: billing_city_create
//	description: "A billing city creates the billing address"
//	setup:
//	  - link: { profile: "7" }
//	flow:
//	  - set_field: { profile: "7", key: billing_city, value: Portland }
//	  - upsert:
//	      type: Address
//	      fields: { id: "1", postal_code: "97201" }
//	  - delete: { type: Address, id: "1" }
//	assertions:
//	  - type: profile_field
//	    profile: "7"
//	    key: billing_postcode
//	    value: "97201"
//	  - type: record
//	    record: Address
//	    where: { contact_id: "1" }
//	    expect: { city: Portland, is_billing: "1" }
//
// Setup and flow steps are written to the store directly, as a user of the
// profile or contact system would. Only the writes the engine issues in
// response are recorded in the trace.
//
// # Assertion Types
//
//   - profile_field: a profile field holds a value
//   - record: exactly one record matches where and holds expect
//   - record_count: the number of records matching where
//   - trace_contains: an engine write matching op, type, profile, key, value and fields
//   - trace_count: the number of engine writes matching the same selectors
//   - trace_order: set_field keys first appear in the given order
//
// # Golden Files
//
// RunWithGolden compares the trace with testdata/golden/{name}.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
