package ast

import "sync/atomic"

// nextWalkID is the process-wide atomic counter spec.md §4.4/§9 requires:
// every Walk call gets a fresh id, and a node already stamped with that id
// is not re-descended into, so a single traversal never revisits a subtree
// reachable by two different paths (e.g. a Desugar target also reachable
// as a plain child, or a generic-instantiation MapExpr back-reference).
var nextWalkID uint32

func newWalkID() uint32 {
	return atomic.AddUint32(&nextWalkID, 1)
}

// Decision is returned by a Walker's pre_fn/post_fn to steer traversal.
type Decision int

const (
	// KeepDecision leaves the previously-chosen decision for this node in
	// effect (used by post_fn, which cannot itself skip children that were
	// already visited by the time it runs).
	KeepDecision Decision = iota
	WalkChildren
	SkipChildren
	StopNow
)

// VisitFunc is called once per node, before (pre) or after (post) its
// children are visited. A nil VisitFunc behaves as "always WalkChildren".
type VisitFunc func(n Node) Decision

// isModifier reports whether n is one of the handful of node kinds that
// spec.md §9 exempts from the walk_id skip rule: modifier-carrying nodes
// (class/interface/struct/enum/extend member lists) always re-run their
// member visitors even if another path already stamped this walk_id,
// because member resolution can attach new attributes between visits.
func isModifier(n Node) bool {
	switch n.(type) {
	case *ClassDecl, *InterfaceDecl, *StructDecl, *EnumDecl, *ExtendDecl:
		return true
	default:
		return false
	}
}

// Walker drives a single identity-tagged traversal of an AST. Construct one
// per traversal (it owns the fresh walk_id) and call Walk on each root.
type Walker struct {
	id     uint32
	preFn  VisitFunc
	postFn VisitFunc
}

// NewWalker allocates a fresh walk_id and returns a Walker that invokes preFn
// before descending into a node's children and postFn after. Either may be
// nil.
func NewWalker(preFn, postFn VisitFunc) *Walker {
	return &Walker{id: newWalkID(), preFn: preFn, postFn: postFn}
}

// Walk visits n and, per the pre_fn decision, its children. It returns false
// if the traversal was stopped early (StopNow), so callers can propagate the
// stop up through recursive calls over sibling lists.
func (w *Walker) Walk(n Node) bool {
	if n == nil {
		return true
	}
	if h, ok := headerOf(n); ok {
		if h.WalkID == w.id && !isModifier(n) {
			return true
		}
		h.WalkID = w.id
	}

	decision := WalkChildren
	if w.preFn != nil {
		decision = w.preFn(n)
	}
	if decision == StopNow {
		return false
	}
	if decision != SkipChildren {
		for _, c := range n.Children() {
			if c == nil {
				continue
			}
			if !w.Walk(c) {
				return false
			}
		}
	}
	if w.postFn != nil {
		if w.postFn(n) == StopNow {
			return false
		}
	}
	return true
}

// headerOf extracts the embedded *Header from a node via the methods every
// node type promotes from Header, letting the walker stamp WalkID without a
// type switch over every concrete node kind.
func headerOf(n Node) (*Header, bool) {
	if hp, ok := n.(interface{ header() *Header }); ok {
		return hp.header(), true
	}
	return nil, false
}
