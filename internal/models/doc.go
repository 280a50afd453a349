// Package models defines domain entities shared by the ingestion pipeline and the account-deletion workflow.
//
//   - [TargetRecord] : catalog row linking an image artifact, its descriptor and a video reference
//   - [AdminEntry] : privilege marker, existence is the only signal
//   - [ProfileRecord] : user-owned domain data, lifecycle tied to the identity account
//   - [Account] : identity account, only stored locally by the sqlite backend
//   - [Identity] : caller resolved from a bearer credential
//
// The Table* constants name the domain tables that are filtered by user id during cascading deletion.
package models
