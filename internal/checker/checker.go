package checker

import (
	"strconv"

	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/box"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/generics"
	"github.com/jade-lang/jadec/internal/inline"
	"github.com/jade-lang/jadec/internal/token"
	"github.com/jade-lang/jadec/internal/types"
)

// Checker drives C6 over one Package: scoped resolution, inference against
// the canonical Type Manager, and the desugaring rewrites spec.md §4.6
// names explicitly (let-pattern to MatchExpr, optional-chain, string
// interpolation, trailing closure, enum-pattern resolution, compound
// assignment), plus expected-type propagation, overload resolution, and
// generic-argument inference (spec.md §4.6's inference section).
type Checker struct {
	tm  *types.Manager
	bag *diagnostics.Bag

	// types maps a declared class/interface/struct/enum/alias name to its
	// canonical, uninstantiated Type, populated by predeclare's first pass.
	types map[string]*types.Type
	// funcDecls maps a top-level function name to its declaration node, so
	// a resolved call site can reach back to the AST for C7 instantiation.
	// Overloaded names keep only the most recently predeclared FuncDecl;
	// generic-call instantiation below only needs one concrete decl to
	// clone per name, not a disambiguated overload set.
	funcDecls map[string]*ast.FuncDecl
	// staticMembers[typeName][memberName] records whether a class/struct/
	// interface member was declared `static`, for the box marker's
	// static-member-box rejection.
	staticMembers map[string]map[string]bool

	generics     *generics.Manager
	instantiated map[ast.Declaration]bool

	root *Scope
	pkg  *ast.Package
}

// New returns a Checker that resolves against tm and reports errors to bag.
func New(tm *types.Manager, bag *diagnostics.Bag) *Checker {
	return &Checker{
		tm:            tm,
		bag:           bag,
		types:         make(map[string]*types.Type),
		funcDecls:     make(map[string]*ast.FuncDecl),
		staticMembers: make(map[string]map[string]bool),
		generics:      generics.NewManager(tm),
		instantiated:  make(map[ast.Declaration]bool),
	}
}

// CheckPackage runs every top-level declaration of pkg.Files through
// resolution, inference, and desugaring, file by file, after predeclare has
// registered every top-level name, so that names visible to later-declared
// top-level bindings are resolved against a fully populated package scope
// regardless of source order. Instantiated and source-imported decls are
// not checked here.
func (c *Checker) CheckPackage(pkg *ast.Package) {
	c.pkg = pkg
	root := NewScope(nil)
	c.root = root

	c.predeclareMembers(pkg)
	c.predeclare(pkg, root)

	for _, f := range pkg.Files {
		for _, d := range f.Decls {
			c.checkDecl(d, root)
		}
	}
	c.runSubPasses(pkg)
}

// resolvedTypeOf reads back a node's checker-assigned type through the
// promoted ResolvedType() method every concrete *ast.XxxNode gets from its
// embedded Header, type-asserting the opaque ast.TypeHandle back to a
// concrete *types.Type. This is the bridge box.NewMarker and
// internal/generics need between ast's untyped Ty slot and this package's
// canonical types.
func resolvedTypeOf(n ast.Node) *types.Type {
	type typed interface{ ResolvedType() ast.TypeHandle }
	t, ok := n.(typed)
	if !ok {
		return nil
	}
	ty, _ := t.ResolvedType().(*types.Type)
	return ty
}

// setTy records ty as n's resolved type, honouring the "set once" additive
// invariant (SetResolvedType panics on a second call): a node the checker
// revisits (e.g. while re-entering a generic instantiation's clone) is left
// with its first-assigned type rather than panicking.
func setTy(n ast.Node, ty *types.Type) {
	if ty == nil {
		return
	}
	type settable interface {
		ResolvedType() ast.TypeHandle
		SetResolvedType(ast.TypeHandle)
	}
	s, ok := n.(settable)
	if !ok || s.ResolvedType() != nil {
		return
	}
	s.SetResolvedType(ty)
}

// isStaticMember reports whether typeName declares memberName as static,
// consulting the registry predeclareMembers built.
func (c *Checker) isStaticMember(typeName, memberName string) bool {
	if mm, ok := c.staticMembers[typeName]; ok {
		return mm[memberName]
	}
	return false
}

// newMarker builds a box.Marker wired to this checker's live type
// information, shared by both sub-pass call sites (the package-wide
// pre-instantiation pass and the per-instantiation post-instantiation
// pass the Open Question decision on two-pass option boxing requires).
func (c *Checker) newMarker() *box.Marker {
	return box.NewMarker(c.tm, resolvedTypeOf, c.isStaticMember, c.bag)
}

// runSubPasses triggers C8 (box marking) and C9 (inline eligibility) over
// every function body in pkg, once resolution, inference, and desugaring
// above have finished. This is the pre-instantiation box-marking pass;
// instantiateGenericCall below re-runs a fresh Marker over each
// monomorphised clone as the post-instantiation pass, per DESIGN.md's
// two-pass option-box decision.
func (c *Checker) runSubPasses(pkg *ast.Package) {
	marker := c.newMarker()
	for _, f := range pkg.Files {
		for _, d := range f.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Body == nil {
				continue
			}
			marker.Mark(fd.Body)
			info := inline.DeclInfo{
				Exported:      fd.Attrs.Has(ast.AttrPublic),
				OuterExported: fd.OuterDecl == nil,
				Frozen:        true,
				IsGeneric:     fd.Attrs.Has(ast.AttrGeneric),
			}
			if inline.Eligible(fd, info) {
				fd.IsInline = true
			}
		}
	}
}

// predeclare registers every top-level declaration across three passes:
// first every type name (so hierarchy/signature resolution below can
// reference any declared type regardless of source order), then the
// nominal hierarchy and ExtendDecl conformances, then every function's
// signature merged into its name's overload set.
func (c *Checker) predeclare(pkg *ast.Package, root *Scope) {
	for _, f := range pkg.Files {
		for _, d := range f.Decls {
			c.predeclareTypeName(d, root)
		}
	}
	for _, f := range pkg.Files {
		for _, d := range f.Decls {
			c.predeclareHierarchy(d)
		}
	}
	for _, f := range pkg.Files {
		for _, d := range f.Decls {
			c.predeclareFunc(d, root)
		}
	}
}

func (c *Checker) predeclareTypeName(d ast.Declaration, root *Scope) {
	name := declName(d)
	if name == "" {
		return
	}
	if !isTypeDecl(d) {
		root.Define(Symbol{Name: name, DeclName: name})
		return
	}
	var kind types.Kind
	switch d.(type) {
	case *ast.ClassDecl:
		kind = types.KindClass
	case *ast.InterfaceDecl:
		kind = types.KindInterface
	case *ast.StructDecl:
		kind = types.KindStruct
	case *ast.EnumDecl:
		kind = types.KindEnum
	case *ast.TypeAliasDecl:
		kind = types.KindClass
	}
	t := c.tm.Nominal(kind, name)
	c.types[name] = t
	root.Define(Symbol{Name: name, DeclName: name, IsType: true, Ty: t})
}

func (c *Checker) predeclareHierarchy(d ast.Declaration) {
	switch v := d.(type) {
	case *ast.ClassDecl:
		var supers []string
		if v.SuperClass != nil {
			if n := typeRefName(v.SuperClass); n != "" {
				supers = append(supers, n)
			}
		}
		for _, i := range v.Interfaces {
			if n := typeRefName(i); n != "" {
				supers = append(supers, n)
			}
		}
		c.tm.DeclareHierarchy(v.Name.Name, supers)
	case *ast.InterfaceDecl:
		var supers []string
		for _, s := range v.Supers {
			if n := typeRefName(s); n != "" {
				supers = append(supers, n)
			}
		}
		c.tm.DeclareHierarchy(v.Name.Name, supers)
	case *ast.ExtendDecl:
		target := typeRefName(v.Target)
		if target == "" {
			return
		}
		for _, i := range v.Interfaces {
			if iface := typeRefName(i); iface != "" {
				c.tm.RecordUsedExtend(target, iface)
			}
		}
	}
}

func (c *Checker) predeclareFunc(d ast.Declaration, root *Scope) {
	fd, ok := d.(*ast.FuncDecl)
	if !ok {
		return
	}
	sig := c.buildFuncSig(fd, root)
	setTy(fd, sig)
	root.AddOverload(fd.Name.Name, sig)
	c.funcDecls[fd.Name.Name] = fd
}

// predeclareMembers scans every class/struct/interface's member list and
// records which members are declared `static`, for the box marker's
// static-member-box rejection.
func (c *Checker) predeclareMembers(pkg *ast.Package) {
	for _, f := range pkg.Files {
		for _, d := range f.Decls {
			switch v := d.(type) {
			case *ast.ClassDecl:
				c.recordMembers(v.Name.Name, v.Members)
			case *ast.StructDecl:
				c.recordMembers(v.Name.Name, v.Members)
			case *ast.InterfaceDecl:
				c.recordMembers(v.Name.Name, v.Members)
			}
		}
	}
}

func (c *Checker) recordMembers(typeName string, members []ast.Declaration) {
	if c.staticMembers[typeName] == nil {
		c.staticMembers[typeName] = make(map[string]bool)
	}
	for _, m := range members {
		switch v := m.(type) {
		case *ast.FuncDecl:
			c.staticMembers[typeName][v.Name.Name] = v.Attrs.Has(ast.AttrStatic)
		case *ast.VarDecl:
			if v.Name != nil {
				c.staticMembers[typeName][v.Name.Name] = v.Attrs.Has(ast.AttrStatic)
			}
		case *ast.PropDecl:
			c.staticMembers[typeName][v.Name.Name] = v.Attrs.Has(ast.AttrStatic)
		}
	}
}

func declName(d ast.Declaration) string {
	switch v := d.(type) {
	case *ast.FuncDecl:
		return v.Name.Name
	case *ast.ClassDecl:
		return v.Name.Name
	case *ast.InterfaceDecl:
		return v.Name.Name
	case *ast.StructDecl:
		return v.Name.Name
	case *ast.EnumDecl:
		return v.Name.Name
	case *ast.TypeAliasDecl:
		return v.Name.Name
	case *ast.VarDecl:
		if v.Name != nil {
			return v.Name.Name
		}
	}
	return ""
}

func isTypeDecl(d ast.Declaration) bool {
	switch d.(type) {
	case *ast.ClassDecl, *ast.InterfaceDecl, *ast.StructDecl, *ast.EnumDecl, *ast.TypeAliasDecl:
		return true
	default:
		return false
	}
}

// typeRefName extracts the bare declared name a TypeAnnotation refers to,
// for hierarchy/extend registration (which only needs the name, not a
// fully resolved *types.Type).
func typeRefName(ta ast.TypeAnnotation) string {
	switch v := ta.(type) {
	case *ast.RefType:
		return v.Name.Name
	case *ast.QualifiedType:
		return v.Name.Name
	case *ast.ParenType:
		return typeRefName(v.Inner)
	case *ast.ThisType:
		return "This"
	}
	return ""
}

// resolveType converts a type annotation into its canonical *types.Type,
// resolving named references against scope first (so a function's own
// generic parameters shadow package-level declarations) and falling back
// to an opaque nominal class for any name predeclare never saw (an
// external/stdlib reference this package's scope doesn't carry).
func (c *Checker) resolveType(ta ast.TypeAnnotation, scope *Scope) *types.Type {
	if ta == nil {
		return nil
	}
	switch v := ta.(type) {
	case *ast.PrimitiveType:
		return c.tm.Primitive(v.Name)
	case *ast.ThisType:
		return c.tm.This()
	case *ast.ParenType:
		return c.resolveType(v.Inner, scope)
	case *ast.OptionType:
		return c.tm.Option(c.resolveType(v.Elem, scope))
	case *ast.TupleType:
		elems := make([]*types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = c.resolveType(e, scope)
		}
		return c.tm.Tuple(elems)
	case *ast.FuncType:
		params := make([]*types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = c.resolveType(p, scope)
		}
		result := c.resolveType(v.Result, scope)
		if result == nil {
			result = c.tm.Primitive("Unit")
		}
		return c.tm.Func(params, result, false)
	case *ast.VArrayType:
		return c.tm.VArray(c.resolveType(v.Elem, scope), constIntValue(v.Size))
	case *ast.RefType:
		return c.resolveNamed(v.Name.Name, v.TypeArgs, scope)
	case *ast.QualifiedType:
		return c.resolveNamed(v.Name.Name, v.TypeArgs, scope)
	case *ast.ConstantType, *ast.InvalidType:
		return nil
	}
	return nil
}

func (c *Checker) resolveNamed(name string, args []ast.TypeAnnotation, scope *Scope) *types.Type {
	if scope != nil {
		if sym, ok := scope.Lookup(name); ok && sym.IsType && sym.Ty != nil {
			return sym.Ty
		}
	}
	base, ok := c.types[name]
	if !ok {
		base = c.tm.Nominal(types.KindClass, name)
		c.types[name] = base
	}
	if len(args) == 0 {
		return base
	}
	targs := make([]*types.Type, len(args))
	for i, a := range args {
		targs[i] = c.resolveType(a, scope)
	}
	return c.tm.Instantiate(base, targs)
}

func constIntValue(e ast.Expression) int64 {
	lit, ok := e.(*ast.LitConstExpr)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(lit.Text, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// buildFuncSig resolves fd's parameter/return type annotations into a
// canonical Func type, opening a nested scope that binds fd's own generic
// parameters (if any) to fresh GenericParam types first, so references to
// `T` inside the signature resolve to the unbound type variable rather than
// an external/opaque nominal class named "T".
func (c *Checker) buildFuncSig(fd *ast.FuncDecl, scope *Scope) *types.Type {
	local := c.genericScope(fd.Generic, scope)
	var params []*types.Type
	if fd.Params != nil {
		for _, p := range fd.Params.Params {
			params = append(params, c.resolveType(p.TypeAnnotation, local))
		}
	}
	result := c.resolveType(fd.ReturnType, local)
	if result == nil {
		result = c.tm.Primitive("Unit")
	}
	return c.tm.Func(params, result, fd.HasVarargs)
}

// genericScope returns scope unchanged if g is nil, otherwise a child
// scope with g's parameters bound to fresh GenericParam types.
func (c *Checker) genericScope(g *ast.Generic, scope *Scope) *Scope {
	if g == nil {
		return scope
	}
	local := NewScope(scope)
	for _, p := range g.Params {
		local.Define(Symbol{Name: p.Name.Name, DeclName: p.Name.Name, IsType: true, Ty: c.tm.GenericParam(p.Name.Name)})
	}
	return local
}

// checkDecl resolves d's own name references and recurses into any nested
// bodies, opening a fresh child scope per nested block.
func (c *Checker) checkDecl(d ast.Declaration, scope *Scope) {
	switch v := d.(type) {
	case *ast.FuncDecl:
		fnScope := c.genericScope(v.Generic, scope)
		if fnScope == scope {
			fnScope = NewScope(scope)
		}
		var retTy *types.Type
		if sym, ok := scope.Lookup(v.Name.Name); ok && len(sym.Overloads) > 0 {
			retTy = sym.Overloads[len(sym.Overloads)-1].Result
		} else {
			retTy = c.resolveType(v.ReturnType, fnScope)
		}
		if retTy == nil {
			retTy = c.tm.Primitive("Unit")
		}
		if v.Params != nil {
			for _, p := range v.Params.Params {
				pt := c.resolveType(p.TypeAnnotation, fnScope)
				setTy(p, pt)
				fnScope.Define(Symbol{Name: p.Name.Name, DeclName: p.Name.Name, Ty: pt})
			}
		}
		if v.Body != nil {
			c.checkBody(v.Body, fnScope, retTy)
		}
	case *ast.VarDecl:
		var expectedTy *types.Type
		if v.TypeAnnotation != nil {
			expectedTy = c.resolveType(v.TypeAnnotation, scope)
		}
		var valueTy *types.Type
		if v.Value != nil {
			valueTy = c.checkExpr(v.Value, scope, expectedTy)
		}
		finalTy := expectedTy
		if finalTy == nil {
			finalTy = valueTy
		}
		setTy(v, finalTy)
		if v.Name != nil {
			scope.Define(Symbol{Name: v.Name.Name, DeclName: v.Name.Name, Ty: finalTy, IsConst: v.IsConst})
		}
	case *ast.ClassDecl:
		inner := NewScope(scope)
		inner.Define(Symbol{Name: "this", DeclName: "this", Ty: c.resolveNamed(v.Name.Name, nil, scope)})
		for _, m := range v.Members {
			c.checkDecl(m, inner)
		}
	case *ast.StructDecl:
		inner := NewScope(scope)
		inner.Define(Symbol{Name: "this", DeclName: "this", Ty: c.resolveNamed(v.Name.Name, nil, scope)})
		for _, m := range v.Members {
			c.checkDecl(m, inner)
		}
	case *ast.InterfaceDecl:
		inner := NewScope(scope)
		for _, m := range v.Members {
			c.checkDecl(m, inner)
		}
	case *ast.ExtendDecl:
		inner := NewScope(scope)
		for _, m := range v.Members {
			c.checkDecl(m, inner)
		}
	case *ast.PropDecl:
		ty := c.resolveType(v.TypeAnnotation, scope)
		setTy(v, ty)
	}
}

func (c *Checker) checkBody(b *ast.FuncBody, scope *Scope, expectedReturn *types.Type) {
	for _, stmt := range b.Stmts {
		switch v := stmt.(type) {
		case *ast.ReturnExpr:
			if v.Value != nil {
				c.checkExpr(v.Value, scope, expectedReturn)
			}
			setTy(v, expectedReturn)
		case ast.Declaration:
			c.checkDecl(v, scope)
		case ast.Expression:
			c.checkExpr(v, scope, nil)
		}
	}
}

// checkExpr resolves names, propagates expected to the positions that need
// it (array/tuple elements, assignment values, branch conditions, return
// values; call arguments are checked without an expected type), applies the
// checker's required desugarings, and records the resolved type on
// Header.Ty wherever one is computed. Each desugar
// call is additive per spec.md §3/§4.4: it sets Header.Desugar on the
// original node rather than replacing it in its parent's slot, so a
// pre-existing back-reference to the original node remains valid.
func (c *Checker) checkExpr(e ast.Expression, scope *Scope, expected *types.Type) *types.Type {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *ast.RefExpr:
		sym, ok := scope.Lookup(v.Name.Name)
		if !ok {
			c.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrS001UnresolvedName, v.Range(),
				"undefined name '"+v.Name.Name+"'"))
			return nil
		}
		var t *types.Type
		switch {
		case sym.Ty != nil:
			t = sym.Ty
		case len(sym.Overloads) == 1:
			t = sym.Overloads[0]
		}
		setTy(v, t)
		return t
	case *ast.LitConstExpr:
		t := c.literalType(v)
		setTy(v, t)
		return t
	case *ast.LetPatternDestructor:
		c.checkExpr(v.Value, scope, nil)
		desugarLetPattern(v)
		return nil
	case *ast.OptionalChainExpr:
		c.checkExpr(v.Target, scope, nil)
		desugarOptionalChain(v)
		return nil
	case *ast.StrInterpolationExpr:
		for _, p := range v.Parts {
			c.checkExpr(p, scope, nil)
		}
		desugarInterpolation(v)
		t := c.tm.Primitive("String")
		setTy(v, t)
		return t
	case *ast.TrailingClosureExpr:
		c.checkExpr(v.Callee, scope, nil)
		desugarTrailingClosure(v)
		return nil
	case *ast.AssignExpr:
		targetTy := c.checkExpr(v.Target, scope, nil)
		c.checkExpr(v.Value, scope, targetTy)
		desugarCompoundAssign(v)
		setTy(v, targetTy)
		return targetTy
	case *ast.IfExpr:
		if v.LetPattern != nil {
			desugarIfLet(v)
		}
		c.checkExpr(v.Cond, scope, c.tm.Primitive("Bool"))
		return nil
	case *ast.WhileExpr:
		c.checkExpr(v.Cond, scope, c.tm.Primitive("Bool"))
		return nil
	case *ast.MatchExpr:
		c.checkExpr(v.Selector, scope, nil)
		for _, cs := range v.Cases {
			c.resolveEnumPattern(cs.Pattern, scope)
		}
		return nil
	case *ast.BinaryExpr:
		lt := c.checkExpr(v.Left, scope, nil)
		rt := c.checkExpr(v.Right, scope, nil)
		t := c.binaryResultType(v.Op, lt, rt)
		setTy(v, t)
		return t
	case *ast.UnaryExpr:
		t := c.checkExpr(v.Operand, scope, nil)
		setTy(v, t)
		return t
	case *ast.ParenExpr:
		t := c.checkExpr(v.Inner, scope, expected)
		setTy(v, t)
		return t
	case *ast.CallExpr:
		t := c.checkCall(v, scope, expected)
		setTy(v, t)
		return t
	case *ast.MemberAccess:
		c.checkExpr(v.Target, scope, nil)
		return nil
	case *ast.ArrayLit:
		var expectedElem *types.Type
		if expected != nil && expected.Kind == types.KindArray {
			expectedElem = expected.Elem
		}
		var elemTy *types.Type
		for _, el := range v.Elems {
			et := c.checkExpr(el, scope, expectedElem)
			if elemTy == nil {
				elemTy = et
			}
		}
		var t *types.Type
		switch {
		case elemTy != nil:
			t = c.tm.Array(elemTy)
		case expected != nil:
			t = expected
		}
		setTy(v, t)
		return t
	case *ast.TupleLit:
		elems := make([]*types.Type, len(v.Elems))
		allKnown := true
		for i, el := range v.Elems {
			var expectedElem *types.Type
			if expected != nil && expected.Kind == types.KindTuple && i < len(expected.Elems) {
				expectedElem = expected.Elems[i]
			}
			elems[i] = c.checkExpr(el, scope, expectedElem)
			if elems[i] == nil {
				allKnown = false
			}
		}
		var t *types.Type
		if allKnown {
			t = c.tm.Tuple(elems)
		}
		setTy(v, t)
		return t
	case *ast.ReturnExpr:
		if v.Value != nil {
			c.checkExpr(v.Value, scope, expected)
		}
		setTy(v, expected)
		return expected
	}
	return nil
}

// literalType maps a LitConstExpr's subkind to its primitive Type.
func (c *Checker) literalType(lit *ast.LitConstExpr) *types.Type {
	switch lit.Kind_ {
	case ast.LitInt:
		return c.tm.Primitive("Int64")
	case ast.LitFloat:
		return c.tm.Primitive("Float64")
	case ast.LitString:
		return c.tm.Primitive("String")
	case ast.LitBool:
		return c.tm.Primitive("Bool")
	case ast.LitRune:
		return c.tm.Primitive("Rune")
	case ast.LitByteString:
		return c.tm.Array(c.tm.Primitive("Int64"))
	default:
		return c.tm.Primitive("Unit")
	}
}

// binaryResultType computes a BinaryExpr's static type: comparison and
// logical operators always yield Bool, every other operator yields the left
// operand's type, or the right operand's when the left is unresolved; the
// two operand types are not unified.
func (c *Checker) binaryResultType(op token.Kind, lt, rt *types.Type) *types.Type {
	switch op {
	case token.EQ, token.NOT_EQ, token.LT, token.GT, token.LTE, token.GTE, token.AND, token.OR:
		return c.tm.Primitive("Bool")
	}
	if lt != nil {
		return lt
	}
	return rt
}

// resolveEnumPattern implements the enum-pattern-resolution desugar: a bare
// VarOrEnumPattern resolves to an EnumPattern if its name is a nullary enum
// constructor in scope, otherwise a fresh binding (VarPattern).
func (c *Checker) resolveEnumPattern(p ast.Pattern, scope *Scope) {
	voe, ok := p.(*ast.VarOrEnumPattern)
	if !ok {
		return
	}
	if sym, found := scope.Lookup(voe.Name.Name); found && sym.IsType {
		voe.Resolved = &ast.EnumPattern{
			Header:      ast.Header{NodeKind: ast.KindEnumPattern, Begin: voe.Begin, End: voe.End},
			Constructor: voe.Name,
		}
		return
	}
	voe.Resolved = &ast.VarPattern{
		Header: ast.Header{NodeKind: ast.KindVarPattern, Begin: voe.Begin, End: voe.End},
		Name:   voe.Name,
	}
}

// ---- C6 §4.6 call checking: overload resolution + generic inference ----

// checkCall resolves v's callee and arguments, performing overload
// resolution (arity + per-param subtype filtering, then
// strictly-more-specific dominance to break ties) and, for a generic
// callee, structural generic-argument inference against the argument
// types. A successful generic match that leaves some declared parameter
// unbound reports ErrS003UnableToInferGeneric; a tie among equally-specific
// candidates reports ErrS004AmbiguousOverload.
func (c *Checker) checkCall(v *ast.CallExpr, scope *Scope, expected *types.Type) *types.Type {
	ref, isRef := v.Callee.(*ast.RefExpr)
	if !isRef {
		c.checkExpr(v.Callee, scope, nil)
		for _, a := range v.Args {
			c.checkExpr(a.Value, scope, nil)
		}
		return nil
	}
	sym, ok := scope.Lookup(ref.Name.Name)
	if !ok {
		c.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrS001UnresolvedName, ref.Range(),
			"undefined name '"+ref.Name.Name+"'"))
		return nil
	}
	overloads := sym.Overloads
	if len(overloads) == 0 && sym.Ty != nil && sym.Ty.Kind == types.KindFunc {
		overloads = []*types.Type{sym.Ty}
	}
	if len(overloads) == 0 {
		setTy(ref, sym.Ty)
		for _, a := range v.Args {
			c.checkExpr(a.Value, scope, nil)
		}
		return nil
	}

	argTypes := make([]*types.Type, len(v.Args))
	for i, a := range v.Args {
		argTypes[i] = c.checkExpr(a.Value, scope, nil)
	}

	sig, subst, status := c.selectOverload(overloads, argTypes)
	switch status {
	case overloadAmbiguous:
		c.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrS004AmbiguousOverload, v.Range(),
			"ambiguous call to '"+ref.Name.Name+"'"))
		return nil
	case overloadNone:
		return nil
	}
	setTy(ref, sig)

	if len(subst) > 0 {
		for _, name := range genericParamNames(sig) {
			if _, bound := subst[name]; !bound {
				c.bag.Add(diagnostics.NewErrorRange(diagnostics.ErrS003UnableToInferGeneric, v.Range(),
					"unable to infer generic argument '"+name+"' for call to '"+ref.Name.Name+"'"))
				return nil
			}
		}
	}

	result := sig.Result
	if len(subst) > 0 {
		result = c.tm.Substitute(sig.Result, subst)
		for i, a := range v.Args {
			_ = i
			_ = a
		}
		if fd, ok := c.funcDecls[ref.Name.Name]; ok && fd.Attrs.Has(ast.AttrGeneric) {
			c.instantiateGenericCall(fd, subst)
		}
	}
	return result
}

type overloadStatus int

const (
	overloadOK overloadStatus = iota
	overloadNone
	overloadAmbiguous
)

// selectOverload filters candidates by arity and per-parameter
// assignability (structurally, via unify, so a generic candidate's
// unresolved parameters never reject a call outright), then picks the
// strictly-more-specific survivor. Ties or zero survivors are reported by
// the caller.
func (c *Checker) selectOverload(candidates []*types.Type, argTypes []*types.Type) (*types.Type, map[string]*types.Type, overloadStatus) {
	type candidate struct {
		sig   *types.Type
		subst map[string]*types.Type
	}
	var viable []candidate
	for _, sig := range candidates {
		if !sig.Variadic && len(sig.Params) != len(argTypes) {
			continue
		}
		if sig.Variadic && len(argTypes) < len(sig.Params) {
			continue
		}
		subst := make(map[string]*types.Type)
		ok := true
		for i, param := range sig.Params {
			if i >= len(argTypes) {
				break
			}
			arg := argTypes[i]
			if arg == nil {
				continue
			}
			if !unify(param, arg, subst) {
				ok = false
				break
			}
			resolved := c.tm.Substitute(param, subst)
			if resolved.Kind != types.KindGenericParam && !c.tm.IsSubtype(arg, resolved) {
				ok = false
				break
			}
		}
		if ok {
			viable = append(viable, candidate{sig: sig, subst: subst})
		}
	}
	switch len(viable) {
	case 0:
		return nil, nil, overloadNone
	case 1:
		return viable[0].sig, viable[0].subst, overloadOK
	}
	best := 0
	for i := 1; i < len(viable); i++ {
		if c.moreSpecific(viable[i].sig, viable[best].sig) {
			best = i
		}
	}
	for i := range viable {
		if i == best {
			continue
		}
		if !c.moreSpecific(viable[best].sig, viable[i].sig) {
			return nil, nil, overloadAmbiguous
		}
	}
	return viable[best].sig, viable[best].subst, overloadOK
}

// moreSpecific reports whether a dominates b: every parameter of a is a
// subtype-or-equal of b's corresponding parameter, with at least one
// strictly-more-specific (strict subtype, not equal) difference.
func (c *Checker) moreSpecific(a, b *types.Type) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	strictlyBetter := false
	for i := range a.Params {
		pa, pb := a.Params[i], b.Params[i]
		if pa == pb {
			continue
		}
		if !c.tm.IsSubtype(pa, pb) {
			return false
		}
		strictlyBetter = true
	}
	return strictlyBetter
}

// unify structurally matches param (possibly containing GenericParam
// leaves) against the concrete arg type, binding every GenericParam it
// encounters into subst. Returns false only on an outright shape mismatch
// (e.g. an Array parameter against a non-Array argument).
func unify(param, arg *types.Type, subst map[string]*types.Type) bool {
	if param == nil || arg == nil {
		return true
	}
	if param.Kind == types.KindGenericParam {
		if existing, ok := subst[param.Name]; ok {
			return existing == arg
		}
		subst[param.Name] = arg
		return true
	}
	switch param.Kind {
	case types.KindArray:
		if arg.Kind != types.KindArray {
			return false
		}
		return unify(param.Elem, arg.Elem, subst)
	case types.KindOption:
		if arg.Kind != types.KindOption {
			return false
		}
		return unify(param.Elem, arg.Elem, subst)
	case types.KindVArray:
		if arg.Kind != types.KindVArray {
			return false
		}
		return unify(param.Elem, arg.Elem, subst)
	case types.KindTuple:
		if arg.Kind != types.KindTuple || len(param.Elems) != len(arg.Elems) {
			return false
		}
		for i := range param.Elems {
			if !unify(param.Elems[i], arg.Elems[i], subst) {
				return false
			}
		}
		return true
	case types.KindFunc:
		if arg.Kind != types.KindFunc || len(param.Params) != len(arg.Params) {
			return false
		}
		for i := range param.Params {
			if !unify(param.Params[i], arg.Params[i], subst) {
				return false
			}
		}
		return unify(param.Result, arg.Result, subst)
	default:
		if len(param.Args) != 0 && arg.Base == param.Base && len(arg.Args) == len(param.Args) {
			for i := range param.Args {
				if !unify(param.Args[i], arg.Args[i], subst) {
					return false
				}
			}
		}
		return true
	}
}

// genericParamNames collects, in first-seen order, every distinct
// GenericParam name reachable from sig's parameter types.
func genericParamNames(sig *types.Type) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(*types.Type)
	walk = func(t *types.Type) {
		if t == nil {
			return
		}
		switch t.Kind {
		case types.KindGenericParam:
			if !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t.Name)
			}
		case types.KindArray, types.KindOption, types.KindVArray:
			walk(t.Elem)
		case types.KindTuple:
			for _, e := range t.Elems {
				walk(e)
			}
		case types.KindFunc:
			for _, p := range t.Params {
				walk(p)
			}
			walk(t.Result)
		default:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	for _, p := range sig.Params {
		walk(p)
	}
	return out
}

// instantiateGenericCall drives C7 from a resolved generic call site: it
// builds the instantiation key from fd's declared generic parameters and
// the inferred substitution, asks the Generic Instantiator for the
// monomorphised clone (idempotent per key), and runs the post-instantiation
// box-marking pass over the clone's body.
func (c *Checker) instantiateGenericCall(fd *ast.FuncDecl, subst map[string]*types.Type) {
	if fd.Generic == nil {
		return
	}
	args := make([]*types.Type, len(fd.Generic.Params))
	for i, p := range fd.Generic.Params {
		a, ok := subst[p.Name.Name]
		if !ok {
			return
		}
		args[i] = a
	}
	key := generics.Key{DeclName: fd.Name.Name, Args: args}
	inst := c.generics.Instantiate(fd, key)
	out, ok := inst.(*ast.FuncDecl)
	if !ok || c.instantiated[out] {
		return
	}
	c.instantiated[out] = true
	if c.pkg != nil {
		c.pkg.InstantiatedDecls = append(c.pkg.InstantiatedDecls, out)
	}
	if out.Body != nil {
		c.newMarker().Mark(out.Body)
	}
	c.recordInstantiatedExtends(out)
}

// recordInstantiatedExtends runs the InstantiatedExtendRecorder over a
// freshly monomorphised declaration: for each member access whose
// receiver has a concrete (post-substitution) named type, the first of that
// type's supertypes with an ExtendDecl relation gets that relation
// re-recorded, per spec.md §4.7 step 5. The accessed member itself is not
// consulted.
func (c *Checker) recordInstantiatedExtends(d ast.Declaration) {
	recorder := generics.NewInstantiatedExtendRecorder(c.tm,
		func(*ast.RefExpr) (string, bool, string, string) { return "", false, "", "" },
		func(m *ast.MemberAccess) (string, bool, string, string) {
			targetTy := resolvedTypeOf(m.Target)
			if targetTy == nil || targetTy.Name == "" {
				return "", false, "", ""
			}
			for _, sup := range c.tm.GetAllSuperTys(targetTy.Name) {
				if c.tm.HasExtensionRelation(targetTy.Name, sup) {
					return "", true, targetTy.Name, sup
				}
			}
			return "", false, "", ""
		})
	recorder.Record(d)
}
