// Package sluice provides a distributed partition-ownership coordinator and
// consumer pump supervisor for event-streaming services.
//
// A fleet of cooperating Processor instances, each identified by a unique
// owner id and bound to one consumer group on one event hub, collectively
// consumes every partition of that hub exactly once per group. Instances
// never communicate directly: a shared checkpoint store doubles as the
// coordination substrate, with optimistic-concurrency etags arbitrating
// ownership claims.
//
// # Quick Start
//
//	cfg := sluice.Config{ConsumerGroup: "$Default"}
//
//	proc, err := sluice.NewProcessor(&cfg, client, checkpointStore, sluice.EventHandlers{
//	    ProcessEvents: func(ctx context.Context, events []*sluice.Event, pc *sluice.PartitionContext) error {
//	        for _, ev := range events {
//	            handle(ev)
//	        }
//	        return pc.UpdateCheckpoint(ctx, events[len(events)-1])
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := proc.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Stop(context.Background())
//
// # Key Features
//
//   - Cooperative Load Balancing: the fleet converges to an even partition
//     distribution with no central coordinator and no inter-node traffic
//   - Pluggable Stores: any backend satisfying the CheckpointStore laws
//     works; JetStream KV and in-memory implementations ship in store/
//   - Pluggable Policies: fair, greedy, and sticky balancers in strategy/,
//     or bring your own LoadBalancer
//   - At-Least-Once Delivery: user-driven checkpointing decides redelivery
//     on takeover; design handlers to be idempotent
//   - Crash Recovery: ownership records that stop refreshing expire after
//     an inactivity limit and are reclaimed by the survivors
//
// # Architecture
//
// Each Processor runs one coordination loop plus one pump per owned
// partition. A pump delivers event batches to the user handlers serially
// and forwards checkpoints to the store. On graceful stop, ownership
// records are abandoned in place (owner id blanked, etag chain preserved)
// so peers take over immediately.
//
// See NewProcessor and the option functions for further wiring examples.
package sluice
