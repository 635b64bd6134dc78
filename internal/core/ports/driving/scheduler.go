package driving

import "context"

// Scheduler runs background tasks such as periodic connector syncs and
// catalog refreshes.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error
}
