// sink.go defines the Sink interface for notice destinations.

package hoptoad

import "context"

// Sink is the destination for notices.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write delivers a notice. A returned error means the notice was not
	// delivered; callers report it, they never retry.
	Write(ctx context.Context, notice *Notice) error

	// Flush ensures any buffered notices are delivered.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}
