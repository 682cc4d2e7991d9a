// Package build provides the canonical gallery build pipeline.
//
// A run initialises the destination, derives thumbnails for new or changed
// assets, renders the page of every directory that needs it and, when asked,
// collects artifacts whose source assets are gone. All execution paths (CLI,
// watch mode, scheduled rebuilds, tests) route through BuildService.
//
// Work is strictly sequential. The build cache entry of an asset is updated
// only after its thumbnail has been written, so an interrupted run loses at
// most the work since the last cache flush.
package build
