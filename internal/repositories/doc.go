// Package repositories implements SQLite persistence for the local backend.
//
// Key Implementations:
//   - [TargetRepository] : catalog rows linking image, descriptor and video
//   - [AdminRepository] : privilege markers keyed by user id
//   - [ProfileRepository] : user-owned profile data
//   - [AccountRepository] : identity accounts verified by the local JWT gateway
//
// Deletes by user id are filter-match operations: zero matching rows is a successful no-op.
// Target rows get a human-readable sequence number from [NextSequence] independent of their UUIDs.
package repositories
