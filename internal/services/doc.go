// Package services defines the shared error taxonomy and context plumbing
// used by pipeline stages and external service clients.
//
// Stage code wraps failures with one of the sentinel markers so the workflow
// manager can classify them without knowing stage internals. Validation
// errors surface synchronously to callers; everything else is recorded on the
// owning queue row and observed through status queries.
package services
