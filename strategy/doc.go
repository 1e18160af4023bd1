// Package strategy provides load balancing policies for distributing
// event hub partitions across cooperating processor instances.
//
// Available policies:
//   - Fair: converges to an even distribution, claiming at most one
//     partition per round (recommended default)
//   - Greedy: claims every available partition in one round; faster
//     convergence, more churn during cold start
//   - Sticky: consistent-hash affinity; minimizes partition movement when
//     instances join or leave the fleet
//
// All policies are pure decision functions over an ownership snapshot: they
// never touch the store, and losing any suggested claim to a concurrent peer
// is an expected, harmless outcome.
package strategy
