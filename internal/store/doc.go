// Package store provides SQLite-backed implementations of the collaborators
// the sync engine talks to.
//
// One database holds both systems of record:
//   - Profile side: flat key/value fields per profile identity
//   - Contact side: contacts with typed address and phone records
//   - Identity links between profile and contact identities
//   - Country and state reference tables
//
// # Notifications
//
// Profile field writes notify FieldListeners after the row is written.
// Contact record writes notify ChangeListeners before the write reaches the
// database, with the record as it will be committed; deletes notify while
// the row still exists so a listener can read it. Listeners run
// synchronously on the caller's goroutine with the caller's context.
//
// No transaction is held while listeners run. The connection pool is
// limited to one connection, so a listener that writes back into the store
// would otherwise deadlock.
//
// # Contact store behaviour
//
// The contact side models the quirks of the system it stands in for:
//   - The first address or phone of a contact is promoted to primary.
//   - Setting is_primary or is_billing on a record clears it on the
//     contact's other records of the same type.
//   - country_id accepts an id or an ISO code.
//   - state_province_id accepts an id or the exact state name within the
//     record's country, and is rejected otherwise.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
