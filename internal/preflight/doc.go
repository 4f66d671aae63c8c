// Package preflight provides readiness checks for external services
// and filesystem paths the pipeline depends on.
//
// These checks run in two contexts:
//   - Before a daemon starts processing, to surface missing binaries or
//     unreachable APIs early instead of failing mid-pipeline.
//   - The CLI status command uses individual check functions
//     (CheckTextGen, CheckDirectoryAccess) to display service health.
package preflight
