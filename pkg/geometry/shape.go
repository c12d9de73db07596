package geometry

import "github.com/df07/go-light-transport/pkg/transform"

// Shape is a node of the scene's shape tree: either a mesh leaf or a group of
// child shapes. A shape's transform applies on top of its ancestors', and its
// surface, light and medium references are inherited by children that leave
// theirs unset.
type Shape struct {
	Name      string
	Mesh      *Mesh
	Children  []*Shape
	Transform transform.Transform

	Surface int
	Light   int
	Medium  int
}

// NewMeshShape creates a leaf shape with no references set
func NewMeshShape(name string, mesh *Mesh) *Shape {
	return &Shape{Name: name, Mesh: mesh, Surface: NoTag, Light: NoTag, Medium: NoTag}
}

// NewGroup creates a group shape with no references set
func NewGroup(name string, children ...*Shape) *Shape {
	return &Shape{Name: name, Children: children, Surface: NoTag, Light: NoTag, Medium: NoTag}
}

// WithTransform sets the shape's transform and returns the shape
func (s *Shape) WithTransform(t transform.Transform) *Shape {
	s.Transform = t
	return s
}

// WithSurface sets the surface reference and returns the shape
func (s *Shape) WithSurface(tag int) *Shape {
	s.Surface = tag
	return s
}

// WithLight sets the light reference and returns the shape
func (s *Shape) WithLight(tag int) *Shape {
	s.Light = tag
	return s
}

// WithMedium sets the medium reference and returns the shape
func (s *Shape) WithMedium(tag int) *Shape {
	s.Medium = tag
	return s
}

// IsGroup reports whether the shape has children instead of a mesh
func (s *Shape) IsGroup() bool {
	return s.Mesh == nil
}

type inherited struct {
	surface, light, medium int
}

func (in inherited) override(s *Shape) inherited {
	if s.Surface != NoTag {
		in.surface = s.Surface
	}
	if s.Light != NoTag {
		in.light = s.Light
	}
	if s.Medium != NoTag {
		in.medium = s.Medium
	}
	return in
}
