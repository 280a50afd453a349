// Package tasks orchestrates the two privileged workflows of the service as explicit state machines.
//
// # Target Ingestion
//
// [TargetIngestor.Ingest] runs one request through
//
//	validating -> uploading_image -> compiling -> uploading_descriptor -> recording -> done
//
// [TargetIngestor.IngestFromURL] replaces the image upload with fetching_image and records the supplied URL.
// Every stage runs at most once. A failing stage returns a [StageError] naming it; artifacts already
// stored stay in place, are listed in [StageError.Orphans] and are logged at warn level.
//
// Storage layout is a persisted contract shared with clients: images at <image_prefix>/<id>.<ext> and
// descriptors at <descriptor_prefix>/<id>.mind, both in the configured bucket.
//
// [TargetIngestor.BulkIngest] feeds manifest entries through a rate-limited worker pool and reports
// progress over a non-blocking [ProgressUpdate] channel.
//
// # Cascading Deletion
//
// [CascadingDeleter.Run] runs
//
//	checking_self -> checking_admin -> deleting_domain -> deleting_identity -> done
//
// Self-deletion and non-admin callers fail before any mutation. Domain deletes visit
// [models.DomainTables] in order and never abort the run; an identity failure degrades the
// result to [StatusDomainOnly] instead of returning an error.
package tasks
