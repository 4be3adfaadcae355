// Package box implements the Box Marker and Auto-boxer (spec.md §4.8, C8):
// once the checker has resolved every expression's static type, this pass
// walks the tree again to decide which value-to-interface conversions need
// a heap-boxed wrapper (because the conversion crosses a type that is only
// related by an ExtendDecl, not direct nominal inheritance) and rewrites
// the AST in place with explicit box/unbox markers.
//
// Grounded on
// _examples/original_source/src/Sema/ExtendBoxMarker.{h,cpp}: the per-node
// handler dispatch (VarDecl/AssignExpr/CallExpr/IfExpr/WhileExpr/
// ReturnExpr/ArrayLit/TryExpr/MatchExpr/ArrayExpr/TupleLit) and the
// MustUnboxDownCast / NeedAutoBox helpers, which this package reproduces
// as Go functions operating on internal/types canonical types rather than
// the original's Ty pointer-plus-mutex global.
package box

import (
	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/types"
)

// Marker runs the box-marking walk over one package's declarations.
type Marker struct {
	tm *types.Manager
	// resolvedType resolves an ast.Node's checker-assigned type to the
	// canonical *types.Type, bridging ast.TypeHandle (opaque `any`) to the
	// concrete type this package needs to reason about subtyping.
	resolvedType func(ast.Node) *types.Type
	// isStaticMember reports whether typeName's memberName member was
	// declared `static`, so Mark can reject auto-boxing a static member
	// access rather than silently routing it through a boxed receiver
	// (DESIGN.md's "auto-box of inherited static members" decision).
	isStaticMember func(typeName, memberName string) bool
	bag            *diagnostics.Bag
	marked         map[ast.Node]bool
}

// NewMarker returns a Marker that consults tm for subtype/extension
// queries, using resolvedType to read back the checker's per-node result
// and isStaticMember to decide the static-member-box rejection. bag
// receives the rejection diagnostic; it may be nil in tests that don't
// exercise that path.
func NewMarker(tm *types.Manager, resolvedType func(ast.Node) *types.Type, isStaticMember func(string, string) bool, bag *diagnostics.Bag) *Marker {
	return &Marker{tm: tm, resolvedType: resolvedType, isStaticMember: isStaticMember, bag: bag, marked: make(map[ast.Node]bool)}
}

// MustUnboxDownCast reports whether converting from selector to pattern
// must go through an unboxing downcast: an interface-to-class narrowing
// always might be unboxing a value that was boxed to satisfy an
// extension-introduced interface conformance, even when the static classes
// involved have no declared extend relation to each other directly (the
// runtime instance may be a *subclass* that does).
func MustUnboxDownCast(selector, pattern *types.Type) bool {
	return selector.Kind == types.KindInterface && pattern.Kind == types.KindClass
}

// NeedAutoBox reports whether converting child to interface requires
// allocating a box: true when child's (or, not upcast, interface's)
// conformance to interface was established via RecordUsedExtend rather
// than declared nominal inheritance (a direct subclass/sub-interface
// relationship needs no box — the vtable layout is already compatible).
func (m *Marker) NeedAutoBox(child, iface *types.Type, isUpcast bool) bool {
	if child == nil || iface == nil {
		return false
	}
	if !isUpcast {
		return MustUnboxDownCast(iface, child)
	}
	if child.Kind == types.KindPrimitive || child.Kind == types.KindStruct {
		// Value types always box when treated as an interface, regardless
		// of whether the conformance came from a declared `<:` or extend.
		return m.tm.IsSubtype(child, iface)
	}
	return m.tm.HasExtensionRelation(child.Name, iface.Name)
}

// BoxPoint records one rewrite site the marker found: n needs to be
// wrapped (Upcast) or unwrapped (Downcast) relative to Target.
type BoxPoint struct {
	Node   ast.Node
	Target *types.Type
	Upcast bool
}

// Mark walks root, recording a BoxPoint at every VarDecl/AssignExpr/
// CallExpr-argument/IfExpr-condition/WhileExpr-condition/ReturnExpr/
// ArrayLit-element/ArrayExpr-init/TupleLit-element whose resolved type needs
// boxing to match its context's expected type, and at every MatchExpr
// TypePattern case that narrows the selector through a box, mirroring
// ExtendBoxMarker's per-kind dispatch. The MatchExpr selector is compared
// only against its own resolved type, and TryExpr catch patterns are
// checked without a selector, so neither records a BoxPoint. Every
// recorded upcast/downcast also gets its additive AST rewrite installed via
// SetDesugar (BoxT(expr) / $tmp.$value), so a later CHIR-lowering pass sees
// the boxed form without re-deriving it.
func (m *Marker) Mark(root ast.Node) []BoxPoint {
	var points []BoxPoint
	w := ast.NewWalker(func(n ast.Node) ast.Decision {
		switch v := n.(type) {
		case *ast.VarDecl:
			if v.Value != nil {
				expected := m.resolvedType(v)
				m.checkConversion(v.Value, expected, &points)
			}
		case *ast.AssignExpr:
			expected := m.resolvedType(v.Target)
			m.checkConversion(v.Value, expected, &points)
		case *ast.CallExpr:
			calleeTy := m.resolvedType(v.Callee)
			for i, a := range v.Args {
				var expected *types.Type
				if calleeTy != nil && calleeTy.Kind == types.KindFunc && i < len(calleeTy.Params) {
					expected = calleeTy.Params[i]
				}
				m.checkConversion(a.Value, expected, &points)
			}
		case *ast.IfExpr:
			m.checkCondition(v.Cond, &points)
		case *ast.WhileExpr:
			m.checkCondition(v.Cond, &points)
		case *ast.ReturnExpr:
			if v.Value != nil {
				expected := m.resolvedType(v)
				m.checkConversion(v.Value, expected, &points)
			}
		case *ast.ArrayLit:
			expected := m.resolvedType(v)
			var elemExpected *types.Type
			if expected != nil && expected.Kind == types.KindArray {
				elemExpected = expected.Elem
			}
			for _, e := range v.Elems {
				m.checkConversion(e, elemExpected, &points)
			}
		case *ast.TupleLit:
			expected := m.resolvedType(v)
			for i, e := range v.Elems {
				var elemExpected *types.Type
				if expected != nil && expected.Kind == types.KindTuple && i < len(expected.Elems) {
					elemExpected = expected.Elems[i]
				}
				m.checkConversion(e, elemExpected, &points)
			}
		case *ast.ArrayExpr:
			if v.Init != nil {
				var elemExpected *types.Type
				if expected := m.resolvedType(v); expected != nil && expected.Kind == types.KindArray {
					elemExpected = expected.Elem
				}
				m.checkConversion(v.Init, elemExpected, &points)
			}
		case *ast.MatchExpr:
			selTy := m.resolvedType(v.Selector)
			m.checkConversion(v.Selector, selTy, &points)
			for _, c := range v.Cases {
				m.checkPattern(c.Pattern, v.Selector, &points)
			}
		case *ast.TryExpr:
			for _, c := range v.Catches {
				m.checkPattern(c.Pattern, nil, &points)
			}
		case *ast.MemberAccess:
			m.checkStaticBox(v)
		}
		return ast.WalkChildren
	}, nil)
	w.Walk(root)
	return points
}

// checkConversion compares e's resolved type against expected (the
// context's required type: a VarDecl's declared type, an AssignExpr's
// target type, a call argument's parameter type, ...) and records an
// upcast BoxPoint plus its BoxT(e) rewrite when boxing is required.
// Nodes the checker never annotated, or contexts with no distinct expected
// type, are left alone.
func (m *Marker) checkConversion(e ast.Expression, expected *types.Type, points *[]BoxPoint) {
	if e == nil || expected == nil {
		return
	}
	actual := m.resolvedType(e)
	if actual == nil || actual == expected {
		return
	}
	if expected.Kind != types.KindInterface {
		return
	}
	if !m.NeedAutoBox(actual, expected, true) {
		return
	}
	*points = append(*points, BoxPoint{Node: e, Target: expected, Upcast: true})
	applyDesugar(e, RewriteUpcast(e, actual))
}

func (m *Marker) checkCondition(e ast.Expression, points *[]BoxPoint) {
	m.checkConversion(e, m.tm.Primitive("Bool"), points)
}

// checkPattern handles IsExpr/TypePattern narrowing, the case
// ExtendBoxMarker.h's MustUnboxDownCast doc comment specifically calls out:
// an interface selector narrowed to a class pattern always needs the
// both-boxed-and-unboxed runtime check, since the underlying instance may
// be a subclass related to the interface only via extension.
func (m *Marker) checkPattern(p ast.Pattern, selector ast.Expression, points *[]BoxPoint) {
	tp, ok := p.(*ast.TypePattern)
	if !ok || selector == nil {
		return
	}
	selTy := m.resolvedType(selector)
	patTy := m.resolvedType(tp)
	if selTy == nil || patTy == nil {
		return
	}
	if MustUnboxDownCast(selTy, patTy) || m.NeedAutoBox(patTy, selTy, false) {
		*points = append(*points, BoxPoint{Node: tp, Target: selTy, Upcast: false})
		applyDesugar(tp, RewriteDowncast(selector))
	}
}

// checkStaticBox implements the "auto-box of inherited static members"
// Open Question decision (DESIGN.md): a static member reached through a
// receiver whose static type is an interface is rejected with a
// diagnostic rather than silently boxed, since a boxed instance has no
// receiver a static call could dispatch through.
func (m *Marker) checkStaticBox(ma *ast.MemberAccess) {
	if m.isStaticMember == nil || ma.Target == nil || ma.Member == nil {
		return
	}
	targetTy := m.resolvedType(ma.Target)
	if targetTy == nil || targetTy.Kind != types.KindInterface {
		return
	}
	if !m.isStaticMember(targetTy.Name, ma.Member.Name) {
		return
	}
	if m.bag != nil {
		m.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrS005ViolatedConstraint, ma.Member.Range(),
			"cannot auto-box a static member access through interface '"+targetTy.Name+"'"))
	}
}

// applyDesugar installs replacement as n's Desugar, honouring the "set
// once" additive-desugar invariant: a node already carrying a desugar
// (e.g. from an earlier checker pass) is left untouched rather than
// overwritten.
func applyDesugar(n ast.Node, replacement ast.Node) {
	type desugarer interface {
		GetDesugar() ast.Node
		SetDesugar(ast.Node)
	}
	d, ok := n.(desugarer)
	if !ok || d.GetDesugar() != nil {
		return
	}
	d.SetDesugar(replacement)
}

// identifier builds a bare compiler-synthesized name reference, reusing
// KindPackage as the placeholder node kind the checker itself uses for
// synthetic identifiers (ast.Identifier carries no kind of its own).
func identifier(name string) *ast.Identifier {
	return &ast.Identifier{Header: ast.Header{NodeKind: ast.KindPackage}, Name: name}
}

// RewriteUpcast replaces e with a call to the synthesized Box_<Name>
// constructor (BoxT(expr)), per §4.8's upcast rewrite; the caller installs
// the result via applyDesugar so the original node remains reachable.
func RewriteUpcast(e ast.Expression, wrapped *types.Type) ast.Expression {
	rng := e.Range()
	return &ast.CallExpr{
		Header: ast.Header{NodeKind: ast.KindCallExpr, Begin: rng.Begin, End: rng.End},
		Callee: &ast.RefExpr{
			Header: ast.Header{NodeKind: ast.KindRefExpr, Begin: rng.Begin, End: rng.End},
			Name:   identifier("Box_" + wrapped.Name),
		},
		Args: []*ast.FuncArg{{
			Header: ast.Header{NodeKind: ast.KindFuncArg, Begin: rng.Begin, End: rng.End},
			Value:  e,
		}},
	}
}

// RewriteDowncast replaces e with `$tmp.$value` (a MemberAccess reading the
// synthesized wrapper's stored field), per §4.8's downcast rewrite.
func RewriteDowncast(e ast.Expression) ast.Expression {
	rng := e.Range()
	return &ast.MemberAccess{
		Header: ast.Header{NodeKind: ast.KindMemberAccess, Begin: rng.Begin, End: rng.End},
		Target: e,
		Member: identifier("$value"),
	}
}

// SynthesizeBoxedClass builds the compiler-generated wrapper class
// ("Box_<Name>") spec.md §4.8 requires for boxing a value type: a single
// `$value` field, a primary constructor that stores its argument and calls
// `super(...)` to register the wrapped interface conformance, and one
// forwarding thunk per member of iface (named in members) that reads
// `$value` and re-dispatches the call.
func SynthesizeBoxedClass(wrapped *types.Type, iface *types.Type, members []string) *ast.ClassDecl {
	valueField := &ast.VarDecl{
		Header: ast.Header{NodeKind: ast.KindVarDecl, Attrs: ast.AttrCompilerAdd},
		Name:   identifier("$value"),
	}

	ctorParam := &ast.FuncParam{
		Header: ast.Header{NodeKind: ast.KindFuncParam},
		Name:   identifier("value"),
	}
	superCall := &ast.CallExpr{
		Header: ast.Header{NodeKind: ast.KindCallExpr},
		Callee: &ast.RefExpr{Header: ast.Header{NodeKind: ast.KindRefExpr}, Name: identifier("super")},
	}
	storeValue := &ast.AssignExpr{
		Header: ast.Header{NodeKind: ast.KindAssignExpr},
		Target: &ast.MemberAccess{
			Header: ast.Header{NodeKind: ast.KindMemberAccess},
			Target: &ast.RefExpr{Header: ast.Header{NodeKind: ast.KindRefExpr}, Name: identifier("this")},
			Member: identifier("$value"),
		},
		Value: &ast.RefExpr{Header: ast.Header{NodeKind: ast.KindRefExpr}, Name: identifier("value")},
	}
	ctor := &ast.PrimaryCtorDecl{
		Header: ast.Header{NodeKind: ast.KindPrimaryCtorDecl, Attrs: ast.AttrCompilerAdd},
		Params: &ast.FuncParamList{Header: ast.Header{NodeKind: ast.KindFuncParamList}, Params: []*ast.FuncParam{ctorParam}},
		Body:   &ast.FuncBody{Header: ast.Header{NodeKind: ast.KindFuncBody}, Stmts: []ast.Node{superCall, storeValue}},
	}

	membersOut := make([]ast.Declaration, 0, len(members)+1)
	membersOut = append(membersOut, valueField)
	for _, name := range members {
		membersOut = append(membersOut, forwardingThunk(name))
	}

	return &ast.ClassDecl{
		Header: ast.Header{NodeKind: ast.KindClassDecl, Attrs: ast.AttrCompilerAdd},
		Name:   identifier("Box_" + wrapped.Name),
		Interfaces: []ast.TypeAnnotation{&ast.RefType{
			Header: ast.Header{NodeKind: ast.KindRefType},
			Name:   identifier(iface.Name),
		}},
		PrimaryCtor: ctor,
		Members:     membersOut,
	}
}

// forwardingThunk builds `func <name>() { return $value.<name>() }`: the
// boxed wrapper's re-dispatch of one interface member onto the stored
// value.
func forwardingThunk(name string) *ast.FuncDecl {
	call := &ast.CallExpr{
		Header: ast.Header{NodeKind: ast.KindCallExpr},
		Callee: &ast.MemberAccess{
			Header: ast.Header{NodeKind: ast.KindMemberAccess},
			Target: &ast.RefExpr{Header: ast.Header{NodeKind: ast.KindRefExpr}, Name: identifier("$value")},
			Member: identifier(name),
		},
	}
	ret := &ast.ReturnExpr{Header: ast.Header{NodeKind: ast.KindReturnExpr}, Value: call}
	return &ast.FuncDecl{
		Header: ast.Header{NodeKind: ast.KindFuncDecl, Attrs: ast.AttrCompilerAdd | ast.AttrPublic},
		Name:   identifier(name),
		Body:   &ast.FuncBody{Header: ast.Header{NodeKind: ast.KindFuncBody}, Stmts: []ast.Node{ret}},
	}
}
