package importing

import (
	"context"
)

// Watcher defines the interface for the inbox file system watcher.
type Watcher interface {
	Start(ctx context.Context, watchPath string) error
	Stop()
	Running() bool
}
