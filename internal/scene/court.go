// Package scene loads court layouts: a tree of named boxes that stands in
// for a modelled 3D scene and feeds the game's entity registry.
package scene

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"pong-arena/internal/game"
)

//go:embed default_court.toml
var defaultCourt []byte

// Court is a loaded layout.
type Court struct {
	Name  string
	roots []*Node
	index map[string]*Node
}

type layoutFile struct {
	Name  string     `toml:"name"`
	Nodes []nodeSpec `toml:"node"`
}

type nodeSpec struct {
	Name     string     `toml:"name"`
	Position [3]float64 `toml:"position"`
	Size     [3]float64 `toml:"size"`
	Children []nodeSpec `toml:"child"`
}

// Default returns the built-in classic court.
func Default() *Court {
	c, err := Parse(defaultCourt)
	if err != nil {
		panic("scene: built-in court: " + err.Error())
	}
	return c
}

// LoadFile reads a TOML layout from disk.
func LoadFile(path string) (*Court, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read court layout: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("court layout %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a TOML layout. Unknown keys, unnamed or duplicate nodes and
// negative sizes are errors.
func Parse(data []byte) (*Court, error) {
	var file layoutFile
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if len(file.Nodes) == 0 {
		return nil, errors.New("layout has no nodes")
	}

	c := &Court{Name: file.Name, index: make(map[string]*Node)}
	for _, spec := range file.Nodes {
		n, err := c.build(spec, nil)
		if err != nil {
			return nil, err
		}
		c.roots = append(c.roots, n)
	}
	return c, nil
}

func (c *Court) build(spec nodeSpec, parent *Node) (*Node, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, errors.New("node without a name")
	}
	if _, dup := c.index[name]; dup {
		return nil, fmt.Errorf("duplicate node %q", name)
	}
	for _, s := range spec.Size {
		if s < 0 {
			return nil, fmt.Errorf("node %q: negative size %v", name, spec.Size)
		}
	}

	n := &Node{
		name:   name,
		local:  spec.Position,
		size:   spec.Size,
		parent: parent,
	}
	c.index[name] = n

	for _, cs := range spec.Children {
		child, err := c.build(cs, n)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

// Lookup finds a node anywhere in the tree.
func (c *Court) Lookup(name string) (game.SceneNode, bool) {
	n, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return n, true
}

// Node returns the concrete node for name.
func (c *Court) Node(name string) (*Node, bool) {
	n, ok := c.index[name]
	return n, ok
}

// Roots returns the top-level nodes in file order.
func (c *Court) Roots() []*Node {
	return c.roots
}

// Len returns the number of nodes.
func (c *Court) Len() int {
	return len(c.index)
}
