package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnershipIsAbandoned(t *testing.T) {
	o := Ownership{
		FullyQualifiedNamespace: "ns.servicebus.windows.net",
		EventHubName:            "hub",
		ConsumerGroup:           "$Default",
		PartitionID:             "0",
		OwnerID:                 "proc-a",
	}
	require.False(t, o.IsAbandoned())

	o.OwnerID = ""
	require.True(t, o.IsAbandoned())
}

func TestOwnershipKey(t *testing.T) {
	o := Ownership{
		FullyQualifiedNamespace: "ns.servicebus.windows.net",
		EventHubName:            "hub",
		ConsumerGroup:           "$Default",
		PartitionID:             "3",
	}
	require.Equal(t, "ns.servicebus.windows.net/hub/$Default/3", o.Key())

	c := Checkpoint{
		FullyQualifiedNamespace: "ns.servicebus.windows.net",
		EventHubName:            "hub",
		ConsumerGroup:           "$Default",
		PartitionID:             "3",
	}
	require.Equal(t, o.Key(), c.Key())
}
