package skeleton

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RigNode describes one node of a rig file. Parents must precede children.
type RigNode struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// RigDescription is the on-disk rig hierarchy.
type RigDescription struct {
	Nodes []RigNode `json:"nodes"`
}

const maxRigFileSize = 1 * 1024 * 1024 // 1MB

// Build creates a Graph from the description.
func (d RigDescription) Build() (*Graph, error) {
	g := NewGraph()
	for i, n := range d.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("rig node %d has no name", i)
		}
		parent := NoParent
		if n.Parent != "" {
			p, ok := g.Find(n.Parent)
			if !ok {
				return nil, fmt.Errorf("rig node %q: parent %q not declared before it", n.Name, n.Parent)
			}
			parent = p
		}
		if _, err := g.AddNode(n.Name, parent); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// LoadRig reads a JSON rig description. Callers validate the path first.
func LoadRig(path string) (*Graph, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("rig file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rig file: %w", err)
	}
	if info.Size() > maxRigFileSize {
		return nil, fmt.Errorf("rig file too large: %d bytes (max %d)", info.Size(), maxRigFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rig file: %w", err)
	}
	var desc RigDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse rig JSON: %w", err)
	}
	return desc.Build()
}

// DefaultHumanoidDescription is the hierarchy of the bundled avatar: spine
// and head under Root, arms ending in a palm with five fingers, and legs.
// The top-level "Armature" node is not driven.
func DefaultHumanoidDescription() RigDescription {
	var nodes []RigNode
	add := func(name string, parent Joint) {
		nodes = append(nodes, RigNode{Name: name, Parent: string(parent)})
	}

	add("Armature", "")
	add(string(Root), "Armature")
	add(string(Neck), Root)
	add(string(Mouth), Neck)
	for _, s := range []Side{Left, Right} {
		add(string(Sided(Eye, s)), Neck)
	}

	for _, s := range []Side{Left, Right} {
		add(string(Sided(UpperArm, s)), Root)
		add(string(Sided(LowerArm, s)), Sided(UpperArm, s))
		add(string(Sided(Forearm, s)), Sided(LowerArm, s))
		add(string(Sided(Palm, s)), Sided(Forearm, s))

		add(string(Sided(ThumbMcp, s)), Sided(Palm, s))
		add(string(Sided(ThumbIp, s)), Sided(ThumbMcp, s))
		for _, f := range [][3]string{
			{IndexMcp, IndexPip, IndexDip},
			{MiddleMcp, MiddlePip, MiddleDip},
			{RingMcp, RingPip, RingDip},
			{PinkyMcp, PinkyPip, PinkyDip},
		} {
			add(string(Sided(f[0], s)), Sided(Palm, s))
			add(string(Sided(f[1], s)), Sided(f[0], s))
			add(string(Sided(f[2], s)), Sided(f[1], s))
		}

		add(string(Sided(UpperLeg, s)), Root)
		add(string(Sided(LowerLeg, s)), Sided(UpperLeg, s))
	}
	return RigDescription{Nodes: nodes}
}

// DefaultHumanoid builds the bundled avatar's scene graph.
func DefaultHumanoid() *Graph {
	g, err := DefaultHumanoidDescription().Build()
	if err != nil {
		// The description is static; a failure is a programming error.
		panic(err)
	}
	return g
}
