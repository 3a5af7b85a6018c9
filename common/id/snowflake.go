package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init sets the node used by New. Replicas sharing a log sink should use
// distinct node ids (0-1023) so relay ids never collide.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New returns a time-ordered id for one relayed message. The poll and
// webhook paths both tag their logs with it. Without Init, node 0 is used.
func New() int64 {
	mu.Lock()
	defer mu.Unlock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	return node.Generate().Int64()
}
