// Package scene turns a JSON scene description into the render pipeline:
// geometry, lights, surfaces, media and the pixel filter.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/log"
)

var logger = log.New("scene")

var (
	ErrSyntax   = errors.New("scene: malformed description")
	ErrProperty = errors.New("scene: invalid property")
)

// Description is a parsed scene file. Nodes are addressed by name; the
// top-level fields name the nodes that make up the scene.
type Description struct {
	Name         string           `json:"name,omitempty"`
	Summary      string           `json:"description,omitempty"`
	Nodes        map[string]*Node `json:"nodes"`
	Shapes       []string         `json:"shapes"`
	Environment  string           `json:"environment,omitempty"`
	LightSampler string           `json:"light_sampler,omitempty"`
	Filter       string           `json:"filter,omitempty"`
	CameraMedium string           `json:"camera_medium,omitempty"`
	Integrator   IntegratorConfig `json:"integrator"`

	// BaseDir resolves relative file paths; Load sets it to the file's directory
	BaseDir string `json:"-"`
}

// IntegratorConfig overrides the path termination defaults when non-zero
type IntegratorConfig struct {
	MaxDepth                  int `json:"max_depth,omitempty"`
	RussianRouletteMinBounces int `json:"rr_min_bounces,omitempty"`
}

// Node is one named scene object: its kind, the implementation that builds
// it and the implementation's properties
type Node struct {
	Name       string
	Kind       Kind
	Impl       string
	Properties map[string]json.RawMessage
}

// UnmarshalJSON splits the kind and impl keys from the properties
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["kind"]; ok {
		var kind string
		if err := json.Unmarshal(v, &kind); err != nil {
			return fmt.Errorf("kind: %w", err)
		}
		parsed, err := ParseKind(kind)
		if err != nil {
			return err
		}
		n.Kind = parsed
		delete(raw, "kind")
	}
	v, ok := raw["impl"]
	if !ok {
		return errors.New("node has no impl")
	}
	if err := json.Unmarshal(v, &n.Impl); err != nil {
		return fmt.Errorf("impl: %w", err)
	}
	delete(raw, "impl")
	n.Properties = raw
	return nil
}

// Parse decodes a description
func Parse(r io.Reader, baseDir string) (*Description, error) {
	var desc Description
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	for name, node := range desc.Nodes {
		if node == nil {
			return nil, fmt.Errorf("%w: node %q is null", ErrSyntax, name)
		}
		if node.Kind == KindInvalid {
			return nil, fmt.Errorf("%w: node %q has no kind", ErrSyntax, name)
		}
		node.Name = name
	}
	desc.BaseDir = baseDir
	return &desc, nil
}

// Load reads and parses a scene file
func Load(path string) (*Description, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	defer file.Close()

	desc, err := Parse(file, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if desc.Name == "" {
		desc.Name = filepath.Base(path)
	}
	return desc, nil
}

// NodeNames returns the node names in sorted order
func (d *Description) NodeNames() []string {
	names := make([]string, 0, len(d.Nodes))
	for name := range d.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) propertyError(key string, err error) error {
	return fmt.Errorf("%w: %s %q: %q: %v", ErrProperty, n.Kind, n.Name, key, err)
}

// Has reports whether the property is set
func (n *Node) Has(key string) bool {
	_, ok := n.Properties[key]
	return ok
}

func (n *Node) decode(key string, v interface{}) (bool, error) {
	raw, ok := n.Properties[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, n.propertyError(key, err)
	}
	return true, nil
}

// Float returns a number property, or def when unset
func (n *Node) Float(key string, def float64) (float64, error) {
	v := def
	_, err := n.decode(key, &v)
	return v, err
}

// Int returns an integer property, or def when unset
func (n *Node) Int(key string, def int) (int, error) {
	v := def
	_, err := n.decode(key, &v)
	return v, err
}

// Bool returns a boolean property, or def when unset
func (n *Node) Bool(key string, def bool) (bool, error) {
	v := def
	_, err := n.decode(key, &v)
	return v, err
}

// String returns a string property, or def when unset
func (n *Node) String(key string, def string) (string, error) {
	v := def
	_, err := n.decode(key, &v)
	return v, err
}

// Floats returns a list of numbers, nil when unset
func (n *Node) Floats(key string) ([]float64, error) {
	var v []float64
	_, err := n.decode(key, &v)
	return v, err
}

// Vec3 returns a three-component property. A single number is splatted to
// all three components.
func (n *Node) Vec3(key string, def core.Vec3) (core.Vec3, error) {
	raw, ok := n.Properties[key]
	if !ok {
		return def, nil
	}
	var scalar float64
	if json.Unmarshal(raw, &scalar) == nil {
		return core.Splat(scalar), nil
	}
	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, n.propertyError(key, err)
	}
	if len(v) != 3 {
		return def, n.propertyError(key, fmt.Errorf("want 3 components, got %d", len(v)))
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}

// Vec2 returns a two-component property
func (n *Node) Vec2(key string, def core.Vec2) (core.Vec2, error) {
	v, err := n.Floats(key)
	if err != nil || v == nil {
		return def, err
	}
	if len(v) != 2 {
		return def, n.propertyError(key, fmt.Errorf("want 2 components, got %d", len(v)))
	}
	return core.NewVec2(v[0], v[1]), nil
}

// properties reads several properties and keeps the first error, so factories
// can read everything and check once
type properties struct {
	node *Node
	err  error
}

func (p *properties) keep(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *properties) number(key string, def float64) float64 {
	v, err := p.node.Float(key, def)
	p.keep(err)
	return v
}

func (p *properties) integer(key string, def int) int {
	v, err := p.node.Int(key, def)
	p.keep(err)
	return v
}

func (p *properties) flag(key string, def bool) bool {
	v, err := p.node.Bool(key, def)
	p.keep(err)
	return v
}

func (p *properties) text(key, def string) string {
	v, err := p.node.String(key, def)
	p.keep(err)
	return v
}

func (p *properties) numbers(key string) []float64 {
	v, err := p.node.Floats(key)
	p.keep(err)
	return v
}

func (p *properties) vec3(key string, def core.Vec3) core.Vec3 {
	v, err := p.node.Vec3(key, def)
	p.keep(err)
	return v
}

func (p *properties) vec2(key string, def core.Vec2) core.Vec2 {
	v, err := p.node.Vec2(key, def)
	p.keep(err)
	return v
}
