// Package record defines the data model shared by both systems of record.
//
// The profile side is a flat key/value map per profile identity. The contact
// side is a set of typed records (contacts, addresses, phones) addressed by
// id. Both sides exchange payloads as Fields, a string map mirroring the wire
// shape of the contact system's API: every value is a string, flags are "0"
// or "1", and the literal "null" marks an explicitly cleared value.
//
// Change notifications travel with a context.Context. The sync engine uses
// that context to carry the origin of a write (see package guard), so
// listeners must pass the ctx they receive to any write they issue.
package record
