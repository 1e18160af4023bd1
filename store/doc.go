// Package store provides CheckpointStore implementations.
//
//   - Memory: process-local store for tests and single-node development
//   - JetStream: durable store on a NATS JetStream KeyValue bucket, using
//     KV revisions as the optimistic-concurrency etags
//
// Both satisfy the same contract: claims echo the etag they last observed,
// stale claims are silently omitted from the result, and a claim without an
// etag succeeds only if the row does not exist yet.
package store
