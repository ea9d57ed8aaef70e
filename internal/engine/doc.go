// Package engine keeps profile fields and contact records in step.
//
// Two listeners do the work:
//
//   - OnFieldChanged reacts to a profile field write and upserts the matching
//     address or phone record on the contact side.
//   - OnRecordChanged reacts to a contact-side pre-commit notification and
//     writes the record's values back into the profile's flat fields.
//
// Attach subscribes both listeners to their stores.
//
// RECURSION:
//
// Every write the engine issues runs inside guard.Guard.Do, which stamps the
// context with an origin for the issuing direction. Stores pass that context
// to their listeners, and each listener ignores notifications stamped by the
// other direction. A sync never re-enters itself through its own writes.
//
// IDENTITY CACHE:
//
// Profile-to-contact sync resolves the linked contact and its primary
// address, billing address and primary phone once per profile and keeps the
// result in an identity.Cache. Creates populate the cache with the new
// record's id so later writes of the same field update the record instead of
// creating another one. Contact-side changes evict the profile's entry.
//
// ERROR HANDLING:
//
// Entry points never return errors. An unlinked identity aborts silently.
// Collaborator failures are logged as a SyncError and the triggering write
// is left to complete.
package engine
