// Package resource implements the Controller that bounds shared resources of
// index task execution and cleanup.
//
//   - Workers: concurrently running task operations (weighted semaphore)
//   - Memory: bytes reserved by running operations (weighted semaphore)
//   - IO: commit write throughput (token bucket)
//   - Deletes: blob deletions by recovery and garbage collection (token bucket)
//
// Typical use wraps one unit of work:
//
//	rc := resource.NewController(resource.Config{MaxWorkers: 4})
//	err := rc.Run(ctx, estimate, func(ctx context.Context) error {
//	    return op.Execute(ctx, tc)
//	})
//
// All methods are safe for concurrent use, and all methods of a nil
// *Controller are no-ops.
package resource
