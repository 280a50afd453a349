// Package services defines the capability interfaces the ingestion and deletion workflows depend on,
// and implements each of them for the managed platform and for the local sqlite/filesystem backend.
//
// # Capabilities
//
//   - [IdentityGateway] : resolves a bearer credential to a caller, deletes identity accounts
//   - [AdminRegistry] : answers whether an identity is privileged
//   - [ArtifactStore] : content-path blob store with deterministic public URLs
//   - [DescriptorCompiler] : turns a reference image into a tracking descriptor
//   - [Catalog] : target rows and user-filtered domain deletes
//
// # Backends
//
// [NewPlatformBackend] wires every capability to a [platform.Client]. [NewLocalBackend] uses the
// repositories package, a directory on disk, and HS256 tokens verified with the configured secret.
// Descriptor compilers are chosen independently through the [Compilers] registry.
//
// # Error Handling
//
// Implementations wrap sentinel errors from the shared package:
//   - [shared.ErrUnauthenticated] : missing, malformed or rejected credential
//   - [shared.ErrAdminCheckFailed] : the privilege lookup itself failed
//   - [shared.ErrCompilationFailed] : the compiler produced no descriptor
//   - [shared.ErrInternal] : any other infrastructure failure
package services
