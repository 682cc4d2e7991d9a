// Package daemon keeps a gallery up to date without manual runs: Watch
// rebuilds after asset or template changes and Schedule rebuilds on an
// interval. Both route through a Runner, which never lets two builds of
// the same gallery overlap.
package daemon
