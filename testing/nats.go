package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// startupDeadline bounds how long a test waits for the embedded server to
// accept connections.
const startupDeadline = 10 * time.Second

// StartEmbeddedNATS runs a NATS server with JetStream inside the test
// process and returns a client connected to it.
//
// The server never binds a TCP port: the client talks to it over the
// in-process transport, so parallel tests cannot collide on ports and
// nothing leaks past the test even if cleanup is interrupted. JetStream
// state lives in the test's temp dir and disappears with it.
//
// Shutdown is registered via t.Cleanup, so callers just use the connection:
//
//	func TestJetStreamStore(t *testing.T) {
//	    _, nc := sluicetest.StartEmbeddedNATS(t)
//	    js, err := jetstream.New(nc)
//	    ...
//	}
//
// Parameters:
//   - t: Testing context for failure reporting and cleanup
//
// Returns:
//   - *server.Server: the embedded server, for tests that need to stop it
//   - *nats.Conn: connected client, closed automatically on test completion
func StartEmbeddedNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		ServerName: "sluice-embedded",
		DontListen: true, // in-process transport only
		JetStream:  true,
		StoreDir:   t.TempDir(),
		NoLog:      true,
		NoSigs:     true,
	})
	require.NoError(t, err, "embedded NATS server")

	go ns.Start()
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	require.True(t, ns.ReadyForConnections(startupDeadline),
		"embedded NATS server not ready within %s", startupDeadline)

	nc, err := nats.Connect("", nats.InProcessServer(ns))
	require.NoError(t, err, "connect to embedded NATS server")
	t.Cleanup(nc.Close)

	return ns, nc
}

// CreateJetStreamKV creates a memory-backed JetStream KV bucket for tests.
//
// Parameters:
//   - t: Testing context
//   - nc: NATS connection (from StartEmbeddedNATS)
//   - bucketName: Name of the KV bucket to create
//
// Returns:
//   - jetstream.KeyValue: The created KV bucket interface
func CreateJetStreamKV(t *testing.T, nc *nats.Conn, bucketName string) jetstream.KeyValue {
	t.Helper()

	js, err := jetstream.New(nc)
	require.NoError(t, err, "JetStream context")

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:  bucketName,
		Storage: jetstream.MemoryStorage,
	})
	require.NoError(t, err, "create KV bucket %s", bucketName)

	return kv
}
