// Package server exposes target ingestion and admin user deletion over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally. Its method filter runs inside the
// middleware stack, so CORS preflight requests are answered before a method mismatch is rejected.
//
// # Routes
//
//   - POST /generate-mind: multipart (file, videoUrl) or JSON ({imageUrl, videoUrl}) ingestion
//   - POST /admin-delete-user: cascading deletion of {user_id} by an admin caller
//   - GET /health: liveness
//   - GET /artifacts/...: objects written by the filesystem artifact store
//
// # Errors
//
// Every failure is a JSON body {"error": ..., "detail": ...}. [StatusFor] is the single mapping
// from sentinel errors to status codes. Internal stage failures name the failing stage in error and
// carry the underlying message in detail.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
