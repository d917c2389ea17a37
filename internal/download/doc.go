// Package download fetches resolved model artifacts with a bounded worker
// pool. Each fetch is idempotent: files already present at the destination
// are skipped, downloads stream to a temporary .partial file that is
// renamed into place on success and removed on failure, so an interrupted
// run never leaves a truncated artifact behind.
package download
