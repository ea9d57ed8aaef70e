// Package fields translates between flat profile field keys and structured
// contact record attributes.
//
// Flat keys follow the convention {role}_{attribute}, where role is billing
// or shipping. The shipping role corresponds to the contact's primary
// address and the billing role to its billing address. The naming is
// asymmetric on purpose; it is the convention of the profile system.
//
// Value translation is where the two systems disagree:
//
//   - country: the profile side stores an ISO code, the contact side a
//     country identifier. The contact store accepts ISO codes on write, so
//     only the read direction needs a lookup.
//   - state: the profile side stores an abbreviation, the contact side a
//     state identifier. The contact store only accepts exact state names on
//     write, so the write direction resolves the abbreviation to a full name
//     using the country recorded for the same role.
package fields
