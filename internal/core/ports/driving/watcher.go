package driving

import "context"

// Watcher is the driving port for the filesystem watcher: started
// once at process boot, it debounces filesystem events and hands resulting
// batches to the ingest pipeline.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
	// Reconcile runs a full startup sweep (or an on-demand one) comparing
	// every configured source's current file listing against the store.
	Reconcile(ctx context.Context) error
}
