package store

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// SnowflakeIDs generates time-ordered numeric ids that stay unique across rapid
// successive creates on the same node.
type SnowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs creates a generator for the given node (0-1023).
func NewSnowflakeIDs(nodeID int64) (*SnowflakeIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeIDs{node: node}, nil
}

// NextID returns a new identifier.
func (g *SnowflakeIDs) NextID() int64 {
	return g.node.Generate().Int64()
}
