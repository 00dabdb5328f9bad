package utilities

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDSource hands out snowflake IDs for one node. A source whose node could
// not be initialized falls back to KSUID strings so callers always get a
// unique value.
type IDSource struct {
	node *snowflake.Node
}

// NewIDSource returns a source for nodeID (0..1023).
func NewIDSource(nodeID int64) *IDSource {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDSource{}
	}
	return &IDSource{node: node}
}

// Next returns the next ID as a string.
func (s *IDSource) Next() string {
	if s == nil || s.node == nil {
		return NewKSUID()
	}
	return s.node.Generate().String()
}
