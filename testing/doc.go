// Package testing provides test utilities for the sluice library.
//
// It follows Go's convention of a dedicated testing-support package
// (similar to net/http/httptest) and offers:
//
//   - StartEmbeddedNATS: in-process NATS server with JetStream for
//     exercising the JetStream checkpoint store without Docker
//   - CreateJetStreamKV: convenience KV bucket creation
//   - NewTestLogger: types.Logger writing through testing.T
//   - FakeConsumer: scriptable in-memory ConsumerClient for processor and
//     pump tests
package testing
