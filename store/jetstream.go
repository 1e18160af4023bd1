package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/driftlock/sluice/internal/kvutil"
	"github.com/driftlock/sluice/internal/logging"
	"github.com/driftlock/sluice/types"
)

// Default JetStream store settings.
const (
	// DefaultBucket is the default KV bucket name for coordination records.
	DefaultBucket = "sluice-coordination"

	// defaultBootstrapRetries bounds bucket create/open attempts.
	defaultBootstrapRetries = 5
)

// JetStream implements CheckpointStore on a NATS JetStream KeyValue bucket.
//
// Each record is one KV entry: ownership rows under "ownership.*" keys and
// checkpoints under "checkpoint.*" keys, JSON-encoded. The KV revision
// number doubles as the record's etag, which maps the store contract
// directly onto JetStream primitives:
//
//   - claim without etag  -> kv.Create (fails if the key exists)
//   - claim with etag     -> kv.Update with the parsed revision (CAS)
//   - lost race           -> key-exists / wrong-last-sequence error,
//     silently dropped from the result set
//
// The bucket is shared by every instance of the fleet; creation races
// during bootstrap are absorbed by retrying.
type JetStream struct {
	kv     jetstream.KeyValue
	clock  clockwork.Clock
	logger types.Logger
}

var _ types.CheckpointStore = (*JetStream)(nil)

// JetStreamConfig configures the JetStream-backed store.
type JetStreamConfig struct {
	// Bucket is the KV bucket name (default: DefaultBucket).
	Bucket string `yaml:"bucket"`

	// Replicas is the bucket replication factor (default: 1).
	Replicas int `yaml:"replicas"`
}

// JetStreamOption configures a JetStream store.
type JetStreamOption func(*JetStream)

// WithJetStreamClock sets the clock used to stamp LastModifiedTime.
func WithJetStreamClock(clock clockwork.Clock) JetStreamOption {
	return func(s *JetStream) {
		s.clock = clock
	}
}

// WithJetStreamLogger sets the logger.
func WithJetStreamLogger(logger types.Logger) JetStreamOption {
	return func(s *JetStream) {
		s.logger = logger
	}
}

// NewJetStream creates a JetStream-backed checkpoint store, creating or
// opening its KV bucket.
//
// Parameters:
//   - ctx: Context for the bucket bootstrap
//   - js: JetStream context
//   - cfg: Store configuration (zero value for defaults)
//   - opts: Optional configuration (clock, logger)
//
// Returns:
//   - *JetStream: initialized store
//   - error: bucket creation/open failure
//
// Example:
//
//	js, _ := jetstream.New(natsConn)
//	cps, err := store.NewJetStream(ctx, js, store.JetStreamConfig{})
func NewJetStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig, opts ...JetStreamOption) (*JetStream, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = 1
	}

	kv, err := kvutil.EnsureBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		History:  1, // Keep only latest value
		Replicas: cfg.Replicas,
	}, defaultBootstrapRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure coordination bucket: %w", err)
	}

	s := &JetStream{
		kv:     kv,
		clock:  clockwork.NewRealClock(),
		logger: logging.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// ListOwnership returns all ownership records under the composite prefix.
func (s *JetStream) ListOwnership(ctx context.Context, fullyQualifiedNamespace, eventHubName, consumerGroup string) ([]types.Ownership, error) {
	prefix := recordKey("ownership", fullyQualifiedNamespace, eventHubName, consumerGroup, "")

	result := []types.Ownership{}
	err := s.forEachEntry(ctx, prefix, func(entry jetstream.KeyValueEntry) error {
		var o types.Ownership
		if err := json.Unmarshal(entry.Value(), &o); err != nil {
			return fmt.Errorf("failed to unmarshal ownership %s: %w", entry.Key(), err)
		}
		o.ETag = strconv.FormatUint(entry.Revision(), 10)
		result = append(result, o)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ClaimOwnership attempts each requested claim, returning the subset that
// succeeded with fresh etags and timestamps.
func (s *JetStream) ClaimOwnership(ctx context.Context, requested []types.Ownership) ([]types.Ownership, error) {
	claimed := []types.Ownership{}

	for _, req := range requested {
		if req.FullyQualifiedNamespace == "" || req.EventHubName == "" ||
			req.ConsumerGroup == "" || req.PartitionID == "" {
			return nil, types.ErrOwnershipIncomplete
		}

		rec := req
		rec.LastModifiedTime = s.clock.Now().UTC()

		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ownership: %w", err)
		}

		key := recordKey("ownership", rec.FullyQualifiedNamespace, rec.EventHubName, rec.ConsumerGroup, rec.PartitionID)

		var rev uint64
		if req.ETag == "" {
			rev, err = s.kv.Create(ctx, key, data)
		} else {
			var prev uint64
			prev, err = strconv.ParseUint(req.ETag, 10, 64)
			if err != nil {
				// Foreign etag format: treat as stale rather than failing
				// the whole batch.
				s.logger.Warn("skipping claim with unparsable etag",
					"partition_id", rec.PartitionID,
					"etag", req.ETag,
				)

				continue
			}
			rev, err = s.kv.Update(ctx, key, data, prev)
		}

		if err != nil {
			if isClaimConflict(err) {
				s.logger.Debug("lost ownership claim race",
					"partition_id", rec.PartitionID,
					"owner_id", rec.OwnerID,
				)

				continue
			}

			return nil, fmt.Errorf("failed to claim partition %s: %w", rec.PartitionID, err)
		}

		rec.ETag = strconv.FormatUint(rev, 10)
		claimed = append(claimed, rec)
	}

	return claimed, nil
}

// ListCheckpoints returns all checkpoints under the composite prefix.
func (s *JetStream) ListCheckpoints(ctx context.Context, fullyQualifiedNamespace, eventHubName, consumerGroup string) ([]types.Checkpoint, error) {
	prefix := recordKey("checkpoint", fullyQualifiedNamespace, eventHubName, consumerGroup, "")

	result := []types.Checkpoint{}
	err := s.forEachEntry(ctx, prefix, func(entry jetstream.KeyValueEntry) error {
		var c types.Checkpoint
		if err := json.Unmarshal(entry.Value(), &c); err != nil {
			return fmt.Errorf("failed to unmarshal checkpoint %s: %w", entry.Key(), err)
		}
		result = append(result, c)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateCheckpoint upserts a checkpoint record. Last write wins; per-partition
// ordering is the calling pump's responsibility.
func (s *JetStream) UpdateCheckpoint(ctx context.Context, checkpoint types.Checkpoint) error {
	if checkpoint.FullyQualifiedNamespace == "" || checkpoint.EventHubName == "" ||
		checkpoint.ConsumerGroup == "" || checkpoint.PartitionID == "" {
		return types.ErrCheckpointIncomplete
	}

	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	key := recordKey("checkpoint", checkpoint.FullyQualifiedNamespace, checkpoint.EventHubName, checkpoint.ConsumerGroup, checkpoint.PartitionID)
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to put checkpoint %s: %w", key, err)
	}

	return nil
}

// forEachEntry invokes fn for every KV entry whose key starts with prefix.
func (s *JetStream) forEachEntry(ctx context.Context, prefix string, fn func(entry jetstream.KeyValueEntry) error) error {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	for key := range lister.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue // deleted between list and get
			}

			return fmt.Errorf("failed to get %s: %w", key, err)
		}

		if err := fn(entry); err != nil {
			return err
		}
	}

	return nil
}

// recordKey builds the KV key for a record. The partition id may be empty to
// form a listing prefix.
func recordKey(kind, namespace, hub, group, partitionID string) string {
	parts := []string{kind, sanitizeKeyComponent(namespace), sanitizeKeyComponent(hub), sanitizeKeyComponent(group)}
	if partitionID == "" {
		return strings.Join(parts, ".") + "."
	}
	parts = append(parts, sanitizeKeyComponent(partitionID))

	return strings.Join(parts, ".")
}

// sanitizeKeyComponent replaces characters that are invalid or structural in
// KV keys with underscores.
//
// KV keys use "." as a hierarchy separator and reject whitespace, wildcards,
// and path separators, while namespaces are host names full of dots.
func sanitizeKeyComponent(component string) string {
	var result strings.Builder
	result.Grow(len(component))

	for _, r := range component {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_':
			result.WriteRune(r)
		default:
			result.WriteRune('_')
		}
	}

	return result.String()
}

// isClaimConflict reports whether err is the KV signal for a lost claim
// race: the key already exists (create) or the revision moved on (update).
func isClaimConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return true
	}

	// Server message fallback for older error shapes.
	return err != nil && strings.Contains(err.Error(), "wrong last sequence")
}
