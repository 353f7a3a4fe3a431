package driven

import "context"

// DatasetWatcher notifies when a dataset file changes on disk.
type DatasetWatcher interface {
	// Watch emits one value per change to the file at path.
	// The channel is closed when ctx is cancelled or the watcher fails.
	Watch(ctx context.Context, path string) (<-chan struct{}, error)
}
