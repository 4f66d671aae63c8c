// Package discovery queries an external video catalog for lesson source
// candidates, filters out non-educational material, and ranks survivors with
// a composite quality score.
package discovery
