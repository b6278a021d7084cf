package skeleton

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownNode is returned by a Scene for a node it does not hold.
var ErrUnknownNode = errors.New("unknown scene node")

// NodeID is an opaque reference to a scene node.
type NodeID int

// Node is a named scene node.
type Node struct {
	ID   NodeID
	Name string
}

// Scene is the host capability the solver needs: enumerate named nodes,
// read a node's parent and live world rotation, and write local transforms.
type Scene interface {
	Nodes() []Node
	Parent(id NodeID) (NodeID, bool)
	WorldRotation(id NodeID) (quat.Number, error)
	SetLocalRotation(id NodeID, q quat.Number) error
	SetLocalTranslation(id NodeID, t r3.Vec) error
}

// Parts maps driven joints to scene nodes. It is built once per loaded rig
// and only read afterwards.
type Parts struct {
	nodes     map[Joint]NodeID
	unmatched []string
}

// ScanParts resolves every named scene node with an exact joint-name match.
// The names of nodes that match no joint are logged through logf and kept
// for inspection; they are not an error.
func ScanParts(scene Scene, logf func(format string, v ...interface{})) *Parts {
	p := &Parts{nodes: make(map[Joint]NodeID)}
	for _, n := range scene.Nodes() {
		j := Joint(n.Name)
		if !Known(j) {
			p.unmatched = append(p.unmatched, n.Name)
			if logf != nil {
				logf("[Skeleton] ignoring unmatched node %q", n.Name)
			}
			continue
		}
		p.nodes[j] = n.ID
	}
	return p
}

// Lookup returns the scene node for j.
func (p *Parts) Lookup(j Joint) (NodeID, bool) {
	if p == nil {
		return 0, false
	}
	id, ok := p.nodes[j]
	return id, ok
}

// Len returns the number of resolved joints.
func (p *Parts) Len() int {
	if p == nil {
		return 0
	}
	return len(p.nodes)
}

// Unmatched returns the scene node names that were not mapped.
func (p *Parts) Unmatched() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.unmatched...)
}

// Missing returns the driven joints with no scene node, sorted by name.
func (p *Parts) Missing() []Joint {
	var out []Joint
	for _, j := range AllJoints() {
		if _, ok := p.Lookup(j); !ok {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
