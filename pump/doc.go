// Package pump implements the per-partition receive loops of a processor
// and the manager that tracks them.
//
// A Pump binds one partition receiver to the user's event handlers: it
// delivers batches strictly in order, forwards user checkpoints to the
// store, rides out transient receive failures with jittered backoff, and
// reports a close reason exactly once when it terminates. The Manager owns
// every live pump, enforces the one-pump-per-partition invariant, and is
// the single choke point for releasing receivers on shutdown.
package pump
