package typechecker

import "sourcestep/interpreter-go/pkg/ast"

// VertexID addresses a vertex in Graph.Vertices.
type VertexID int

// ScopeID addresses a scope in Graph.Scopes.
type ScopeID int

const (
	NoVertex VertexID = -1
	NoScope  ScopeID  = -1
)

type EdgeLabel string

const (
	EdgeNext       EdgeLabel = "next"
	EdgeConsequent EdgeLabel = "consequent"
	EdgeAlternate  EdgeLabel = "alternate"
)

type Edge struct {
	Label EdgeLabel
	To    VertexID
}

// Symbol is a declared name with its static type and the node that
// established that type.
type Symbol struct {
	Name      string
	DefinedAt ast.Span
	Type      Type
	Proof     ast.Node
}

// Vertex is one statement in the control-flow graph. Vertices own their
// outgoing edges.
type Vertex struct {
	ID     VertexID
	Node   ast.Node
	Scope  ScopeID
	Usages []*Symbol
	Edges  []Edge
}

// Successor returns the target of the edge with the given label.
func (v *Vertex) Successor(label EdgeLabel) (VertexID, bool) {
	for _, e := range v.Edges {
		if e.Label == label {
			return e.To, true
		}
	}
	return NoVertex, false
}

// Scope is a program or function body.
type Scope struct {
	ID       ScopeID
	Name     string
	Parent   ScopeID
	Node     ast.Node
	Type     Type
	Symbols  map[string]*Symbol
	Entry    VertexID
	Vertices []VertexID
	Exits    []VertexID
}

// Graph is the arena holding every vertex and scope of one analysis run.
type Graph struct {
	Vertices []*Vertex
	Scopes   []*Scope

	byNode map[ast.Node]VertexID
}

func newGraph() *Graph {
	return &Graph{byNode: make(map[ast.Node]VertexID)}
}

func (g *Graph) Vertex(id VertexID) *Vertex {
	if id < 0 || int(id) >= len(g.Vertices) {
		return nil
	}
	return g.Vertices[id]
}

func (g *Graph) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(g.Scopes) {
		return nil
	}
	return g.Scopes[id]
}

// Root returns the program scope.
func (g *Graph) Root() *Scope {
	return g.Scope(0)
}

// VertexOf returns the vertex built for a statement node.
func (g *Graph) VertexOf(node ast.Node) (*Vertex, bool) {
	id, ok := g.byNode[node]
	if !ok {
		return nil, false
	}
	return g.Vertices[id], true
}

// ScopeOf returns the scope created for a program or function node.
func (g *Graph) ScopeOf(node ast.Node) (*Scope, bool) {
	for _, s := range g.Scopes {
		if s.Node == node {
			return s, true
		}
	}
	return nil, false
}

// Lookup resolves name from scope outward.
func (g *Graph) Lookup(scope ScopeID, name string) (*Symbol, ScopeID, bool) {
	for id := scope; id != NoScope; {
		s := g.Scope(id)
		if s == nil {
			break
		}
		if sym, ok := s.Symbols[name]; ok {
			return sym, id, true
		}
		id = s.Parent
	}
	return nil, NoScope, false
}

func (g *Graph) addScope(name string, parent ScopeID, node ast.Node, typ Type) *Scope {
	s := &Scope{
		ID:      ScopeID(len(g.Scopes)),
		Name:    name,
		Parent:  parent,
		Node:    node,
		Type:    typ,
		Symbols: make(map[string]*Symbol),
		Entry:   NoVertex,
	}
	g.Scopes = append(g.Scopes, s)
	return s
}

func (g *Graph) addVertex(scope ScopeID, node ast.Node) *Vertex {
	v := &Vertex{ID: VertexID(len(g.Vertices)), Node: node, Scope: scope}
	g.Vertices = append(g.Vertices, v)
	g.byNode[node] = v.ID
	s := g.Scopes[scope]
	s.Vertices = append(s.Vertices, v.ID)
	if s.Entry == NoVertex {
		s.Entry = v.ID
	}
	return v
}

func (g *Graph) connect(from VertexID, label EdgeLabel, to VertexID) {
	v := g.Vertices[from]
	v.Edges = append(v.Edges, Edge{Label: label, To: to})
}
