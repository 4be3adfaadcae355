package box

import (
	"testing"

	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/types"
)

// resolvedTypes is a tiny fixture resolver standing in for the checker's
// real Header.Ty: box_test drives the marker against hand-built AST
// fragments, so each test registers exactly the node->type associations the
// checker would have produced by the time C8 runs.
type resolvedTypes map[ast.Node]*types.Type

func (r resolvedTypes) lookup(n ast.Node) *types.Type { return r[n] }

func TestNeedAutoBox_ExtensionConformanceRequiresBox(t *testing.T) {
	tm := types.NewManager()
	m := NewMarker(tm, nil, nil, nil)

	point := tm.Nominal(types.KindClass, "Point")
	stringer := tm.Nominal(types.KindInterface, "Stringer")
	tm.RecordUsedExtend("Point", "Stringer")

	if !m.NeedAutoBox(point, stringer, true) {
		t.Error("a class related to an interface only via ExtendDecl must need a box")
	}
}

func TestNeedAutoBox_DirectInheritanceNeedsNoBox(t *testing.T) {
	tm := types.NewManager()
	m := NewMarker(tm, nil, nil, nil)

	circle := tm.Nominal(types.KindClass, "Circle")
	shape := tm.Nominal(types.KindInterface, "Shape")
	tm.DeclareHierarchy("Circle", []string{"Shape"})

	if m.NeedAutoBox(circle, shape, true) {
		t.Error("direct nominal inheritance must not need a box")
	}
}

func TestNeedAutoBox_PrimitiveAlwaysBoxesWhenSubtype(t *testing.T) {
	tm := types.NewManager()
	m := NewMarker(tm, nil, nil, nil)

	i64 := tm.Primitive("Int64")
	stringer := tm.Nominal(types.KindInterface, "Stringer")
	tm.RecordBuiltinExtend("Int64", "Stringer")

	if !m.NeedAutoBox(i64, stringer, true) {
		t.Error("a primitive satisfying an interface must always box, declared or not")
	}
}

func TestMark_VarDeclUpcastRecordsBoxPointAndDesugar(t *testing.T) {
	tm := types.NewManager()

	point := tm.Nominal(types.KindClass, "Point")
	stringer := tm.Nominal(types.KindInterface, "Stringer")
	tm.RecordUsedExtend("Point", "Stringer")

	value := &ast.RefExpr{
		Header: ast.Header{NodeKind: ast.KindRefExpr},
		Name:   &ast.Identifier{Name: "p"},
	}
	decl := &ast.VarDecl{
		Header: ast.Header{NodeKind: ast.KindVarDecl},
		Name:   &ast.Identifier{Name: "s"},
		Value:  value,
	}

	resolved := resolvedTypes{decl: stringer, value: point}
	m := NewMarker(tm, resolved.lookup, nil, nil)

	points := m.Mark(decl)

	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1", len(points))
	}
	if !points[0].Upcast {
		t.Error("VarDecl conversion to an interface must be recorded as an upcast")
	}
	if points[0].Target != stringer {
		t.Errorf("BoxPoint.Target = %v, want the declared interface type", points[0].Target)
	}

	call, ok := value.GetDesugar().(*ast.CallExpr)
	if !ok {
		t.Fatalf("value.GetDesugar() = %T, want *ast.CallExpr (the BoxT(expr) rewrite)", value.GetDesugar())
	}
	ref, ok := call.Callee.(*ast.RefExpr)
	if !ok || ref.Name.Name != "Box_Point" {
		t.Errorf("upcast rewrite callee = %#v, want a reference to Box_Point", call.Callee)
	}
}

func TestMark_NoBoxPointWhenTypesAlreadyMatch(t *testing.T) {
	tm := types.NewManager()
	stringer := tm.Nominal(types.KindInterface, "Stringer")

	value := &ast.RefExpr{Header: ast.Header{NodeKind: ast.KindRefExpr}, Name: &ast.Identifier{Name: "s"}}
	decl := &ast.VarDecl{Header: ast.Header{NodeKind: ast.KindVarDecl}, Name: &ast.Identifier{Name: "s2"}, Value: value}

	resolved := resolvedTypes{decl: stringer, value: stringer}
	m := NewMarker(tm, resolved.lookup, nil, nil)

	points := m.Mark(decl)
	if len(points) != 0 {
		t.Errorf("points = %v, want none when actual == expected", points)
	}
}

func TestCheckStaticBox_RejectsStaticMemberThroughInterface(t *testing.T) {
	tm := types.NewManager()
	stringer := tm.Nominal(types.KindInterface, "Stringer")

	target := &ast.RefExpr{Header: ast.Header{NodeKind: ast.KindRefExpr}, Name: &ast.Identifier{Name: "s"}}
	ma := &ast.MemberAccess{
		Header: ast.Header{NodeKind: ast.KindMemberAccess},
		Target: target,
		Member: &ast.Identifier{Name: "Default"},
	}

	resolved := resolvedTypes{target: stringer}
	isStatic := func(typeName, memberName string) bool {
		return typeName == "Stringer" && memberName == "Default"
	}
	bag := diagnostics.NewBag()
	m := NewMarker(tm, resolved.lookup, isStatic, bag)

	m.Mark(ma)

	if !bag.HasErrors() {
		t.Fatal("expected a diagnostic rejecting the static member access through an interface")
	}
	if bag.Errors()[0].Code != diagnostics.ErrS005ViolatedConstraint {
		t.Errorf("error code = %q, want %q", bag.Errors()[0].Code, diagnostics.ErrS005ViolatedConstraint)
	}
}

func TestSynthesizeBoxedClass_HasValueFieldCtorAndThunks(t *testing.T) {
	wrapped := &types.Type{Kind: types.KindClass, Name: "Point"}
	iface := &types.Type{Kind: types.KindInterface, Name: "Stringer"}

	decl := SynthesizeBoxedClass(wrapped, iface, []string{"toString"})

	if decl.Name.Name != "Box_Point" {
		t.Errorf("Name = %q, want Box_Point", decl.Name.Name)
	}
	if decl.PrimaryCtor == nil {
		t.Fatal("expected a primary constructor")
	}
	if len(decl.PrimaryCtor.Body.Stmts) < 2 {
		t.Fatal("expected the ctor body to contain a super() call and a $value store")
	}
	superCall, ok := decl.PrimaryCtor.Body.Stmts[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("ctor stmt 0 = %T, want *ast.CallExpr (super(...))", decl.PrimaryCtor.Body.Stmts[0])
	}
	ref, ok := superCall.Callee.(*ast.RefExpr)
	if !ok || ref.Name.Name != "super" {
		t.Errorf("ctor stmt 0 callee = %#v, want a reference to super", superCall.Callee)
	}

	if len(decl.Interfaces) != 1 {
		t.Fatalf("Interfaces = %v, want exactly one (the wrapped interface)", decl.Interfaces)
	}

	foundValueField := false
	foundThunk := false
	for _, mem := range decl.Members {
		switch v := mem.(type) {
		case *ast.VarDecl:
			if v.Name.Name == "$value" {
				foundValueField = true
			}
		case *ast.FuncDecl:
			if v.Name.Name == "toString" {
				foundThunk = true
			}
		}
	}
	if !foundValueField {
		t.Error("expected a $value field among the synthesized class's members")
	}
	if !foundThunk {
		t.Error("expected a toString forwarding thunk among the synthesized class's members")
	}
}
