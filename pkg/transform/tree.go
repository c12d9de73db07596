package transform

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// NodeID addresses a node inside a Tree
type NodeID int32

// NoNode marks an absent node, e.g. the parent of the root or the node of an
// instance that has no transform at all
const NoNode NodeID = -1

// NoInstance is the instance index of interior nodes
const NoInstance = -1

type node struct {
	transform Transform // nil for the root and for untransformed leaves
	parent    NodeID
	children  []NodeID
	instance  int

	// static is true iff every transform on the path from the root is static
	static bool
	// dynamicBelow is true if this node or any descendant is dynamic
	dynamicBelow bool

	matrix    mgl64.Mat4
	cacheTime float64
}

// Tree is an arena of transform nodes built once by a Builder. Static nodes
// keep their build-time matrix forever; dynamic nodes cache the last world
// matrix they were evaluated at.
type Tree struct {
	nodes       []node
	initialTime float64

	// guards the cached matrix of dynamic nodes
	mu sync.Mutex
}

// Node is a read-only view of a tree node
type Node struct {
	tree *Tree
	id   NodeID
}

// Node returns the view of node id. It panics if id is out of range.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("transform: node %d out of range [0, %d)", id, len(t.nodes)))
	}
	return Node{tree: t, id: id}
}

// Len returns the number of nodes including the root
func (t *Tree) Len() int {
	return len(t.nodes)
}

// InitialTime returns the time the builder evaluated transforms at
func (t *Tree) InitialTime() float64 {
	return t.initialTime
}

// IsStatic reports whether nothing in the tree can move
func (t *Tree) IsStatic() bool {
	return !t.nodes[0].dynamicBelow
}

// DynamicCount returns the number of nodes that Update recomputes
func (t *Tree) DynamicCount() int {
	count := 0
	for i := range t.nodes {
		if !t.nodes[i].static {
			count++
		}
	}
	return count
}

// Update recomputes the matrix of every dynamic node at time, root to leaves.
// Subtrees without dynamic nodes are skipped.
func (t *Tree) Update(time float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.update(0, mgl64.Ident4(), time)
}

func (t *Tree) update(id NodeID, parent mgl64.Mat4, time float64) {
	n := &t.nodes[id]
	if !n.dynamicBelow {
		return
	}
	m := n.matrix
	if !n.static {
		m = parent
		if n.transform != nil {
			m = parent.Mul4(n.transform.Matrix(time))
		}
		n.matrix, n.cacheTime = m, time
	}
	for _, child := range n.children {
		t.update(child, m, time)
	}
}

// matrix returns the world matrix of id at time
func (t *Tree) matrix(id NodeID, time float64) mgl64.Mat4 {
	if t.nodes[id].static {
		return t.nodes[id].matrix
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recompute(id, time)
}

// recompute walks towards the root until it finds a node whose matrix is
// valid at time. Callers must hold mu.
func (t *Tree) recompute(id NodeID, time float64) mgl64.Mat4 {
	n := &t.nodes[id]
	if n.static || n.cacheTime == time {
		return n.matrix
	}
	parent := mgl64.Ident4()
	if n.parent != NoNode {
		parent = t.recompute(n.parent, time)
	}
	m := parent
	if n.transform != nil {
		m = parent.Mul4(n.transform.Matrix(time))
	}
	n.matrix, n.cacheTime = m, time
	return m
}

// ID returns the node index
func (n Node) ID() NodeID { return n.id }

// Parent returns the parent index, NoNode for the root
func (n Node) Parent() NodeID { return n.tree.nodes[n.id].parent }

// Children returns the child indices. Callers must not modify it.
func (n Node) Children() []NodeID { return n.tree.nodes[n.id].children }

// Instance returns the instance attached to a leaf, or NoInstance
func (n Node) Instance() int { return n.tree.nodes[n.id].instance }

// IsStatic reports whether the node's matrix never changes
func (n Node) IsStatic() bool { return n.tree.nodes[n.id].static }

// Transform returns the node's own transform, nil if it has none
func (n Node) Transform() Transform { return n.tree.nodes[n.id].transform }

// Matrix returns the node's world matrix at time. Static nodes return their
// build-time matrix regardless of time.
func (n Node) Matrix(time float64) mgl64.Mat4 {
	return n.tree.matrix(n.id, time)
}

// InstancedTransform is the per-instance handle handed out by Builder.Leaf
type InstancedTransform struct {
	tree     *Tree
	node     NodeID
	instance int
}

// Node returns the leaf node, NoNode if the instance is untransformed
func (it InstancedTransform) Node() NodeID { return it.node }

// InstanceID returns the instance index the leaf was registered for
func (it InstancedTransform) InstanceID() int { return it.instance }

// IsStatic reports whether the instance matrix never changes
func (it InstancedTransform) IsStatic() bool {
	return it.node == NoNode || it.tree.nodes[it.node].static
}

// Matrix returns the instance-to-world matrix at time
func (it InstancedTransform) Matrix(time float64) mgl64.Mat4 {
	if it.node == NoNode {
		return mgl64.Ident4()
	}
	return it.tree.matrix(it.node, time)
}

type childKey struct {
	parent    NodeID
	transform Transform
}

// Builder mirrors a depth-first traversal of the scene graph: Push entering a
// transformed node, Pop leaving it, Leaf for every renderable instance.
type Builder struct {
	tree *Tree

	nodeStack   []NodeID
	matrixStack []mgl64.Mat4
	// whether the matching nodeStack entry pushed onto matrixStack
	pushed []bool

	children map[childKey]NodeID
	leaves   int
}

// NewBuilder starts a tree whose transforms are evaluated at initialTime
func NewBuilder(initialTime float64) *Builder {
	tree := &Tree{initialTime: initialTime}
	tree.nodes = append(tree.nodes, node{
		parent:    NoNode,
		instance:  NoInstance,
		static:    true,
		matrix:    mgl64.Ident4(),
		cacheTime: initialTime,
	})
	return &Builder{
		tree:        tree,
		nodeStack:   []NodeID{0},
		matrixStack: []mgl64.Mat4{mgl64.Ident4()},
		pushed:      []bool{false},
		children:    make(map[childKey]NodeID),
	}
}

func (b *Builder) mustBeOpen() {
	if b.tree == nil {
		panic("transform: builder used after Build")
	}
}

func (b *Builder) addNode(t Transform, instance int) NodeID {
	current := b.nodeStack[len(b.nodeStack)-1]
	parent := &b.tree.nodes[current]
	static := parent.static && (t == nil || t.IsStatic())

	m := b.matrixStack[len(b.matrixStack)-1]
	if t != nil && !t.IsIdentity() {
		m = m.Mul4(t.Matrix(b.tree.initialTime))
	}

	id := NodeID(len(b.tree.nodes))
	b.tree.nodes = append(b.tree.nodes, node{
		transform: t,
		parent:    current,
		instance:  instance,
		static:    static,
		matrix:    m,
		cacheTime: b.tree.initialTime,
	})
	b.tree.nodes[current].children = append(b.tree.nodes[current].children, id)

	if !static {
		for n := id; n != NoNode && !b.tree.nodes[n].dynamicBelow; n = b.tree.nodes[n].parent {
			b.tree.nodes[n].dynamicBelow = true
		}
	}
	return id
}

// Push enters a scene node carrying transform t and returns the accumulated
// matrix at the initial time. Pushing the same transform twice from the same
// parent reuses the node created the first time.
func (b *Builder) Push(t Transform) mgl64.Mat4 {
	b.mustBeOpen()
	current := b.nodeStack[len(b.nodeStack)-1]
	key := childKey{parent: current, transform: t}
	id, ok := b.children[key]
	if !ok || t == nil {
		id = b.addNode(t, NoInstance)
		if t != nil {
			b.children[key] = id
		}
	}

	b.nodeStack = append(b.nodeStack, id)
	push := t != nil && !t.IsIdentity()
	b.pushed = append(b.pushed, push)
	if push {
		b.matrixStack = append(b.matrixStack, b.tree.nodes[id].matrix)
	}
	return b.matrixStack[len(b.matrixStack)-1]
}

// Pop leaves the node entered by the matching Push. Popping the root panics.
func (b *Builder) Pop() {
	b.mustBeOpen()
	if len(b.nodeStack) == 1 {
		panic("transform: Pop without matching Push")
	}
	last := len(b.nodeStack) - 1
	if b.pushed[last] {
		b.matrixStack = b.matrixStack[:len(b.matrixStack)-1]
	}
	b.nodeStack = b.nodeStack[:last]
	b.pushed = b.pushed[:last]
}

// Leaf registers an instance under the current node with its own transform t
// (nil if it has none). It returns the instance handle and its world matrix
// at the initial time. An instance with no transform anywhere on its path gets
// a handle without a node and the identity matrix.
func (b *Builder) Leaf(t Transform, instance int) (InstancedTransform, mgl64.Mat4) {
	b.mustBeOpen()
	b.leaves++
	transformed := len(b.matrixStack) > 1 || b.dynamicOnPath(t)
	if (t == nil || t.IsIdentity()) && !transformed {
		return InstancedTransform{tree: b.tree, node: NoNode, instance: instance}, mgl64.Ident4()
	}
	id := b.addNode(t, instance)
	return InstancedTransform{tree: b.tree, node: id, instance: instance}, b.tree.nodes[id].matrix
}

// dynamicOnPath reports whether the leaf would sit below or on a dynamic transform
func (b *Builder) dynamicOnPath(t Transform) bool {
	if t != nil && !t.IsStatic() {
		return true
	}
	return !b.tree.nodes[b.nodeStack[len(b.nodeStack)-1]].static
}

// Depth returns the number of open Push calls
func (b *Builder) Depth() int {
	return len(b.nodeStack) - 1
}

// Build finalizes the tree. The builder must not be used afterwards and every
// Push must have been popped.
func (b *Builder) Build() *Tree {
	b.mustBeOpen()
	if len(b.nodeStack) != 1 {
		panic(fmt.Sprintf("transform: Build with %d unpopped node(s)", len(b.nodeStack)-1))
	}
	tree := b.tree
	b.tree = nil
	logger.Debugf("built transform tree: %d nodes, %d dynamic, %d leaves", len(tree.nodes), tree.DynamicCount(), b.leaves)
	return tree
}
