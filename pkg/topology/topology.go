package topology

import (
	"fmt"
	"net"
	"sort"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/pgmesh/pgmesh/pkg/config"
)

// Node is the immutable descriptor of one physical database endpoint.
// It is built once from config at startup and never mutated afterwards.
type Node struct {
	Host   string
	Port   int
	DB     string
	Usr    string
	Passwd string

	Role config.NodeRole

	/* set iff Role == RoleWorker */
	ShardID int
}

func (n *Node) Address() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

func (n *Node) String() string {
	if n.Role == config.RoleWorker {
		return fmt.Sprintf("%s/%s shard %d", n.Address(), n.Role, n.ShardID)
	}
	return fmt.Sprintf("%s/%s", n.Address(), n.Role)
}

// Cluster is the validated static topology: exactly one coordinator,
// zero or more workers keyed by shard id, zero or more read replicas.
type Cluster struct {
	Coordinator *Node
	Workers     map[int]*Node
	Replicas    []*Node
}

// ClusterFromConfig validates the configured node list and builds the
// cluster topology from it.
//
// Validation rules:
//   - exactly one coordinator node;
//   - worker nodes carry unique, non-negative shard ids;
//   - every node names a host, a database and a user.
//
// Parameters:
//   - cfg: The loaded mesh config.
//
// Returns:
//   - *Cluster: The validated topology.
//   - error: A config error if the node list is inconsistent.
func ClusterFromConfig(cfg *config.Mesh) (*Cluster, error) {
	cl := &Cluster{
		Workers: map[int]*Node{},
	}

	for _, ncfg := range cfg.Nodes {
		if ncfg.Host == "" || ncfg.DB == "" || ncfg.Usr == "" {
			return nil, xerrors.Errorf("node %q: host, db and usr are required", ncfg.Host)
		}

		node := &Node{
			Host:   ncfg.Host,
			Port:   ncfg.Port,
			DB:     ncfg.DB,
			Usr:    ncfg.Usr,
			Passwd: ncfg.Passwd,
			Role:   ncfg.Role,
		}
		if node.Port == 0 {
			node.Port = 5432
		}

		switch ncfg.Role {
		case config.RoleCoordinator:
			if cl.Coordinator != nil {
				return nil, xerrors.Errorf("duplicate coordinator node %q", ncfg.Host)
			}
			cl.Coordinator = node
		case config.RoleWorker:
			if ncfg.ShardID < 0 {
				return nil, xerrors.Errorf("worker node %q: negative shard id %d", ncfg.Host, ncfg.ShardID)
			}
			if _, ok := cl.Workers[ncfg.ShardID]; ok {
				return nil, xerrors.Errorf("duplicate worker shard id %d", ncfg.ShardID)
			}
			node.ShardID = ncfg.ShardID
			cl.Workers[ncfg.ShardID] = node
		case config.RoleReplica:
			cl.Replicas = append(cl.Replicas, node)
		default:
			return nil, xerrors.Errorf("node %q: unknown role %q", ncfg.Host, ncfg.Role)
		}
	}

	if cl.Coordinator == nil {
		return nil, xerrors.Errorf("no coordinator node configured")
	}

	return cl, nil
}

// ShardIDs returns the configured worker shard ids in ascending order.
func (c *Cluster) ShardIDs() []int {
	ids := make([]int, 0, len(c.Workers))
	for id := range c.Workers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *Cluster) AllNodes() []*Node {
	ret := []*Node{c.Coordinator}
	for _, id := range c.ShardIDs() {
		ret = append(ret, c.Workers[id])
	}
	ret = append(ret, c.Replicas...)
	return ret
}
