// Package resource implements the Controller for client-wide limits.
//
// The Controller governs three resource types:
//
//   - Memory: result buffers and cached partition maps (blocking or try)
//   - Concurrency: in-flight partition calls across all requests
//   - IO: outbound frame bandwidth (token bucket)
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Partition      │  Bandwidth Limiter      │
//	│  (semaphore)    │  Calls (sem)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireCall    │  AcquireIO              │
//	│  TryAcquire     │  ReleaseCall    │                         │
//	│  ReleaseMemory  │  InFlight       │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     256 << 20,
//	    MaxInFlight:          32,
//	    BandwidthBytesPerSec: 100 << 20,
//	})
//
//	if err := rc.AcquireCall(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseCall()
//
//	if err := rc.AcquireIO(ctx, len(frame)); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
