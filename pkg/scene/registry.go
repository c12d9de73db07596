package scene

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownImpl = errors.New("scene: unknown implementation")

// Kind is the role a node plays in the scene
type Kind int

const (
	KindInvalid Kind = iota
	KindTransform
	KindSurface
	KindLight
	KindMedium
	KindEnvironment
	KindShape
	KindFilter
	KindLightSampler
)

var kindNames = map[Kind]string{
	KindTransform:    "transform",
	KindSurface:      "surface",
	KindLight:        "light",
	KindMedium:       "medium",
	KindEnvironment:  "environment",
	KindShape:        "shape",
	KindFilter:       "filter",
	KindLightSampler: "light_sampler",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name from a scene file to its Kind
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", name)
}

// Factory builds the value of a node. What it returns depends on the kind:
//
//	transform      transform.Transform
//	surface        material.BSDF
//	light          lights.DiffuseArea
//	medium         medium.Vacuum or medium.Homogeneous
//	environment    lights.Environment or *workpool.Future[lights.Environment]
//	shape          *geometry.Shape
//	filter         filter.Filter
//	light_sampler  lights.SamplerOptions
type Factory func(ctx *Context, node *Node) (interface{}, error)

var factories = map[Kind]map[string]Factory{}

// Register makes an implementation available to scene files. It is meant to
// be called from init functions and panics on duplicates.
func Register(kind Kind, impl string, factory Factory) {
	if kindNames[kind] == "" {
		panic(fmt.Sprintf("scene: register %q: invalid kind %d", impl, int(kind)))
	}
	if factories[kind] == nil {
		factories[kind] = map[string]Factory{}
	}
	if _, ok := factories[kind][impl]; ok {
		panic(fmt.Sprintf("scene: %s implementation %q registered twice", kind, impl))
	}
	factories[kind][impl] = factory
}

func lookup(kind Kind, impl string) (Factory, error) {
	factory, ok := factories[kind][impl]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownImpl, kind, impl)
	}
	return factory, nil
}

// Implementations lists the registered implementation names of a kind
func Implementations(kind Kind) []string {
	names := make([]string, 0, len(factories[kind]))
	for name := range factories[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
