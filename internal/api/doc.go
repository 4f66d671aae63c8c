// Package api bundles the operations exposed to external callers: ingesting
// source videos, querying pipeline status, searching the catalog for lesson
// candidates, and triggering single-segment re-renders. The daemon HTTP
// server and the CLI both sit on top of this package, so both surfaces stay
// consistent.
package api
