package ast

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out identity tags. Tags are unique per generator.
type IDGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewIDGenerator returns a generator producing tags such as "n1", "n2".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "n"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns a fresh identity tag.
func (g *IDGenerator) Next() string {
	return g.prefix + strconv.FormatInt(g.next.Add(1), 10)
}

// AssignIDs tags every reachable node that does not have an identity yet,
// in pre-order. It returns the number of nodes tagged.
func AssignIDs(root Node, gen *IDGenerator) int {
	count := 0
	Walk(root, func(n Node) bool {
		if tagNode(n, gen.Next) {
			count++
		}
		return true
	})
	return count
}

// Tag assigns id to an untagged node. Already tagged nodes keep their tag.
func Tag(node Node, id string) bool {
	return tagNode(node, func() string { return id })
}

func tagNode(node Node, next func() string) bool {
	if node == nil || node.NodeID() != "" {
		return false
	}
	setter, ok := node.(interface{ setID(string) bool })
	if !ok {
		return false
	}
	return setter.setID(next())
}

// NewCallSiteTag returns a fresh call-site tag.
func NewCallSiteTag() string {
	return uuid.NewString()
}

// WithCallSite returns a shallow copy of call carrying the call-site tag.
// The original node is left untouched.
func WithCallSite(call *CallExpression, tag string) *CallExpression {
	cp := *call
	cp.CallSite = tag
	return &cp
}

func callSiteOf(node Node) string {
	if call, ok := node.(*CallExpression); ok {
		return call.CallSite
	}
	return ""
}

// NodesEqual reports whether a and b denote the same node. Tagged nodes are
// compared by identity tag (and call-site tag when both have one); untagged
// nodes fall back to reference identity.
func NodesEqual(a, b Node) bool {
	if isNilNode(a) || isNilNode(b) {
		return isNilNode(a) && isNilNode(b)
	}
	idA, idB := a.NodeID(), b.NodeID()
	if idA != "" && idB != "" {
		if idA != idB {
			return false
		}
		siteA, siteB := callSiteOf(a), callSiteOf(b)
		if siteA != "" && siteB != "" {
			return siteA == siteB
		}
		return true
	}
	return a == b
}
