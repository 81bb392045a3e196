// recover.go provides the Recover helper for standalone panic recovery.
// Use this in HTTP handlers, goroutines, or other code without an adapter.

package hoptoad

import (
	"context"
	"fmt"
)

// PanicClass is the error class of notices built from non-error panic values.
const PanicClass = "panic"

// Recover captures a panic, records it to the collector, and returns the recovered value.
// Recover does NOT re-panic after recording.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer hoptoad.Recover(ctx, collector)
//	    // code that might panic
//	}
func Recover(ctx context.Context, collector Collector) any {
	r := recover()
	if r == nil {
		return nil
	}
	RecordPanic(ctx, collector, r)
	return r
}

// RecordPanic records a recovered value. Call it from a deferred function
// that already called recover(); the backtrace is the panicking stack.
// Recording errors are dropped so the caller's flow is unchanged.
func RecordPanic(ctx context.Context, collector Collector, recovered any) {
	if collector == nil || recovered == nil {
		return
	}

	n := collector.NewNotice()
	if err, ok := recovered.(error); ok {
		n.SetError(err)
	} else {
		n.SetErrorClass(PanicClass)
		n.SetErrorMessage(fmt.Sprintf("%v", recovered))
	}
	attachContext(ctx, n)

	_ = collector.Record(ctx, n)
}
