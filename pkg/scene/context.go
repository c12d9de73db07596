package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/df07/go-light-transport/pkg/filter"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/lights"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/transform"
	"github.com/df07/go-light-transport/pkg/workpool"
)

var (
	ErrUnknownNode = errors.New("scene: reference to an undefined node")
	ErrKind        = errors.New("scene: node has the wrong kind")
	ErrCycle       = errors.New("scene: node references itself")
	ErrFactory     = errors.New("scene: factory returned an unexpected value")
)

// Context resolves node references while a pipeline is built. Each node is
// built once; later references share the result.
type Context struct {
	desc *Description
	pool *workpool.Pool

	surfaces *material.Table
	lights   *lights.Registry
	media    *medium.Table

	built    map[*Node]interface{}
	building map[*Node]bool
}

func newContext(desc *Description, pool *workpool.Pool) *Context {
	return &Context{
		desc:     desc,
		pool:     pool,
		surfaces: material.NewTable(),
		lights:   lights.NewRegistry(),
		media:    medium.NewTable(),
		built:    map[*Node]interface{}{},
		building: map[*Node]bool{},
	}
}

// Pool returns the pool scene work runs on
func (c *Context) Pool() *workpool.Pool {
	return c.pool
}

// Path resolves a file name relative to the scene file
func (c *Context) Path(name string) string {
	if filepath.IsAbs(name) || c.desc.BaseDir == "" {
		return name
	}
	return filepath.Join(c.desc.BaseDir, name)
}

// named builds the top-level node called name
func (c *Context) named(kind Kind, name string) (interface{}, error) {
	node, ok := c.desc.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownNode, kind, name)
	}
	return c.build(kind, node)
}

// reference builds the node a property refers to, either by name or as an
// inline object. ok is false when the property is unset.
func (c *Context) reference(kind Kind, owner *Node, key string) (value interface{}, ok bool, err error) {
	raw, ok := owner.Properties[key]
	if !ok {
		return nil, false, nil
	}
	value, err = c.resolve(kind, owner, key, raw)
	return value, true, err
}

// references builds every node a list property refers to
func (c *Context) references(kind Kind, owner *Node, key string) ([]interface{}, error) {
	raw, ok := owner.Properties[key]
	if !ok {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, owner.propertyError(key, err)
	}
	values := make([]interface{}, len(items))
	for i, item := range items {
		value, err := c.resolve(kind, owner, fmt.Sprintf("%s[%d]", key, i), item)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func (c *Context) resolve(kind Kind, owner *Node, key string, raw json.RawMessage) (interface{}, error) {
	var name string
	if json.Unmarshal(raw, &name) == nil {
		value, err := c.named(kind, name)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %q: %w", owner.Kind, owner.Name, key, err)
		}
		return value, nil
	}

	inline := &Node{}
	if err := json.Unmarshal(raw, inline); err != nil {
		return nil, owner.propertyError(key, err)
	}
	inline.Name = owner.Name + "." + key
	if inline.Kind == KindInvalid {
		inline.Kind = kind
	}
	return c.build(kind, inline)
}

func (c *Context) build(kind Kind, node *Node) (interface{}, error) {
	if node.Kind != kind {
		return nil, fmt.Errorf("%w: %q is a %s, expected a %s", ErrKind, node.Name, node.Kind, kind)
	}
	if value, ok := c.built[node]; ok {
		return value, nil
	}
	if c.building[node] {
		return nil, fmt.Errorf("%w: %s %q", ErrCycle, kind, node.Name)
	}
	c.building[node] = true
	defer delete(c.building, node)

	factory, err := lookup(kind, node.Impl)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", node.Name, err)
	}
	value, err := factory(c, node)
	if err != nil {
		return nil, err
	}
	if value, err = c.register(kind, node, value); err != nil {
		return nil, err
	}
	c.built[node] = value
	return value, nil
}

// register adds tagged values to their tables and replaces them by their tag
func (c *Context) register(kind Kind, node *Node, value interface{}) (interface{}, error) {
	bad := func() (interface{}, error) {
		return nil, fmt.Errorf("%w: %s %q (%s) built %T", ErrFactory, kind, node.Name, node.Impl, value)
	}
	switch kind {
	case KindSurface:
		bsdf, ok := value.(material.BSDF)
		if !ok {
			return bad()
		}
		return c.surfaces.Add(bsdf), nil
	case KindLight:
		light, ok := value.(lights.DiffuseArea)
		if !ok {
			return bad()
		}
		tag, err := c.lights.AddDiffuseArea(light)
		if err != nil {
			return nil, fmt.Errorf("scene: light %q: %w", node.Name, err)
		}
		return tag, nil
	case KindMedium:
		var info medium.Info
		switch m := value.(type) {
		case medium.Vacuum:
			info = c.media.AddVacuum(m)
		case medium.Homogeneous:
			var err error
			if info, err = c.media.AddHomogeneous(m); err != nil {
				return nil, fmt.Errorf("scene: medium %q: %w", node.Name, err)
			}
		default:
			return bad()
		}
		return int(info.Tag), nil
	case KindTransform:
		if _, ok := value.(transform.Transform); !ok {
			return bad()
		}
	case KindShape:
		if _, ok := value.(*geometry.Shape); !ok {
			return bad()
		}
	case KindEnvironment:
		switch value.(type) {
		case lights.Environment, *workpool.Future[lights.Environment]:
		default:
			return bad()
		}
	case KindFilter:
		if _, ok := value.(filter.Filter); !ok {
			return bad()
		}
	case KindLightSampler:
		if _, ok := value.(lights.SamplerOptions); !ok {
			return bad()
		}
	}
	return value, nil
}

// Transform builds the transform a property refers to, nil when unset
func (c *Context) Transform(owner *Node, key string) (transform.Transform, error) {
	value, ok, err := c.reference(KindTransform, owner, key)
	if err != nil || !ok {
		return nil, err
	}
	return value.(transform.Transform), nil
}

// tag builds a surface, light or medium reference, geometry.NoTag when unset
func (c *Context) tag(kind Kind, owner *Node, key string) (int, error) {
	value, ok, err := c.reference(kind, owner, key)
	if err != nil || !ok {
		return geometry.NoTag, err
	}
	return value.(int), nil
}

// Shape builds a shape reference
func (c *Context) Shape(owner *Node, key string) (*geometry.Shape, error) {
	value, ok, err := c.reference(KindShape, owner, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, owner.propertyError(key, errors.New("missing"))
	}
	return value.(*geometry.Shape), nil
}

// Shapes builds a list of shape references
func (c *Context) Shapes(owner *Node, key string) ([]*geometry.Shape, error) {
	values, err := c.references(KindShape, owner, key)
	if err != nil {
		return nil, err
	}
	shapes := make([]*geometry.Shape, len(values))
	for i, v := range values {
		shapes[i] = v.(*geometry.Shape)
	}
	return shapes, nil
}

// Transforms builds a list of transform references
func (c *Context) Transforms(owner *Node, key string) ([]transform.Transform, error) {
	values, err := c.references(KindTransform, owner, key)
	if err != nil {
		return nil, err
	}
	transforms := make([]transform.Transform, len(values))
	for i, v := range values {
		transforms[i] = v.(transform.Transform)
	}
	return transforms, nil
}
