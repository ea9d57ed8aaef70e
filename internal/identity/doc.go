// Package identity resolves a profile identity to its contact identity and
// memoizes the ids of the contact's primary address, billing address and
// primary phone.
//
// Entries are keyed by profile identity. Resolution happens once per entry,
// so a burst of field updates for the same profile costs one round of
// queries. All access to an entry goes through Cache.Do, which holds a
// per-profile lock for the duration of the callback; two concurrent syncs
// for the same profile cannot both decide to create the same record.
//
// Entries live in a Backend. MemoryBackend keeps them for the process
// lifetime; RedisBackend shares them between processes and expires them
// after a TTL. The per-profile lock is process-local in both cases.
package identity
