package skeleton

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// NoParent marks a top-level node.
const NoParent NodeID = -1

type graphNode struct {
	name        string
	parent      NodeID
	rotation    quat.Number
	translation r3.Vec
}

// Graph is an in-memory Scene. World rotations are composed on read from the
// chain of local rotations, so a parent written earlier in a pass is visible
// to its children immediately.
type Graph struct {
	mu     sync.RWMutex
	nodes  []graphNode
	byName map[string]NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]NodeID)}
}

// AddNode appends a node under parent (or NoParent) with an identity local
// transform. Names must be unique.
func (g *Graph) AddNode(name string, parent NodeID) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.byName[name]; dup {
		return 0, fmt.Errorf("duplicate node name %q", name)
	}
	if parent != NoParent && (parent < 0 || int(parent) >= len(g.nodes)) {
		return 0, fmt.Errorf("node %q: %w (parent %d)", name, ErrUnknownNode, parent)
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, graphNode{
		name:     name,
		parent:   parent,
		rotation: quat.Number{Real: 1},
	})
	g.byName[name] = id
	return id, nil
}

// Find returns the node with the exact name.
func (g *Graph) Find(name string) (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.byName[name]
	return id, ok
}

// Nodes implements Scene.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = Node{ID: NodeID(i), Name: n.name}
	}
	return out
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Parent implements Scene.
func (g *Graph) Parent(id NodeID) (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) || g.nodes[id].parent == NoParent {
		return NoParent, false
	}
	return g.nodes[id].parent, true
}

// WorldRotation implements Scene.
func (g *Graph) WorldRotation(id NodeID) (quat.Number, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return quat.Number{}, fmt.Errorf("world rotation of %d: %w", id, ErrUnknownNode)
	}
	world := g.nodes[id].rotation
	for p := g.nodes[id].parent; p != NoParent; p = g.nodes[p].parent {
		world = quat.Mul(g.nodes[p].rotation, world)
	}
	return world, nil
}

// LocalRotation returns the node's local rotation.
func (g *Graph) LocalRotation(id NodeID) (quat.Number, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return quat.Number{}, ErrUnknownNode
	}
	return g.nodes[id].rotation, nil
}

// LocalTranslation returns the node's local translation.
func (g *Graph) LocalTranslation(id NodeID) (r3.Vec, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return r3.Vec{}, ErrUnknownNode
	}
	return g.nodes[id].translation, nil
}

// SetLocalRotation implements Scene.
func (g *Graph) SetLocalRotation(id NodeID, q quat.Number) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.valid(id) {
		return ErrUnknownNode
	}
	g.nodes[id].rotation = q
	return nil
}

// SetLocalTranslation implements Scene.
func (g *Graph) SetLocalTranslation(id NodeID, t r3.Vec) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.valid(id) {
		return ErrUnknownNode
	}
	g.nodes[id].translation = t
	return nil
}

// Pose is the local transform of one node.
type Pose struct {
	Name        string      `json:"name"`
	Parent      string      `json:"parent,omitempty"`
	Rotation    quat.Number `json:"rotation"`
	Translation r3.Vec      `json:"translation"`
}

// Snapshot returns every node's local transform in insertion order.
func (g *Graph) Snapshot() []Pose {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Pose, len(g.nodes))
	for i, n := range g.nodes {
		p := Pose{Name: n.name, Rotation: n.rotation, Translation: n.translation}
		if n.parent != NoParent {
			p.Parent = g.nodes[n.parent].name
		}
		out[i] = p
	}
	return out
}
