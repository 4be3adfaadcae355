package generics

import (
	"testing"

	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/token"
	"github.com/jade-lang/jadec/internal/types"
)

func genericIdentity(tm *types.Manager) *ast.FuncDecl {
	tParam := &ast.GenericParamDecl{Name: &ast.Identifier{Name: "T"}}
	param := &ast.FuncParam{
		Name: &ast.Identifier{Name: "x"},
	}
	fd := &ast.FuncDecl{
		Name:    &ast.Identifier{Name: "identity"},
		Generic: &ast.Generic{Params: []*ast.GenericParamDecl{tParam}},
		Params:  &ast.FuncParamList{Params: []*ast.FuncParam{param}},
	}
	fd.Attrs.Set(ast.AttrGeneric)
	fd.SetResolvedType(tm.Func([]*types.Type{tm.GenericParam("T")}, tm.GenericParam("T"), false))
	param.SetResolvedType(tm.GenericParam("T"))
	return fd
}

func TestInstantiate_SubstitutesGenericParam(t *testing.T) {
	tm := types.NewManager()
	m := NewManager(tm)
	fd := genericIdentity(tm)

	key := Key{DeclName: "identity", Args: []*types.Type{tm.Primitive("Int64")}}
	got := m.Instantiate(fd, key)

	clone, ok := got.(*ast.FuncDecl)
	if !ok {
		t.Fatalf("Instantiate returned %T, want *ast.FuncDecl", got)
	}
	if clone == fd {
		t.Fatal("Instantiate returned the original declaration, not a clone")
	}
	if clone.Name.Name == fd.Name.Name {
		t.Errorf("clone.Name.Name = %q, want a mangled name distinct from %q", clone.Name.Name, fd.Name.Name)
	}
	if clone.Generic != nil {
		t.Error("clone.Generic should be cleared after instantiation")
	}
	if clone.Attrs.Has(ast.AttrGeneric) {
		t.Error("clone should no longer carry AttrGeneric")
	}

	paramTy, ok := clone.Params.Params[0].ResolvedType().(*types.Type)
	if !ok || paramTy == nil {
		t.Fatal("clone's param has no resolved type")
	}
	if paramTy.Kind != types.KindPrimitive || paramTy.Name != "Int64" {
		t.Errorf("clone's param type = %+v, want primitive Int64", paramTy)
	}

	// The original template must be untouched by substitution.
	origTy, _ := fd.Params.Params[0].ResolvedType().(*types.Type)
	if origTy == nil || origTy.Kind != types.KindGenericParam {
		t.Errorf("original template's param type was mutated: %+v", origTy)
	}
}

func TestInstantiate_MemoizesIdenticalArgs(t *testing.T) {
	tm := types.NewManager()
	m := NewManager(tm)
	fd := genericIdentity(tm)

	key := Key{DeclName: "identity", Args: []*types.Type{tm.Primitive("Int64")}}
	first := m.Instantiate(fd, key)
	second := m.Instantiate(fd, key)

	if first != second {
		t.Error("Instantiate with the same key should return the cached clone, not a fresh one")
	}
}

func TestInstantiate_DistinctArgsProduceDistinctClones(t *testing.T) {
	tm := types.NewManager()
	m := NewManager(tm)
	fd := genericIdentity(tm)

	intKey := Key{DeclName: "identity", Args: []*types.Type{tm.Primitive("Int64")}}
	strKey := Key{DeclName: "identity", Args: []*types.Type{tm.Primitive("String")}}

	intClone := m.Instantiate(fd, intKey).(*ast.FuncDecl)
	strClone := m.Instantiate(fd, strKey).(*ast.FuncDecl)

	if intClone == strClone {
		t.Fatal("distinct type arguments must not share a cached clone")
	}
	if intClone.Name.Name == strClone.Name.Name {
		t.Errorf("mangled names collided: %q", intClone.Name.Name)
	}
}

func TestDeepClone_PreservesTypePointerIdentity(t *testing.T) {
	tm := types.NewManager()
	intTy := tm.Primitive("Int64")
	lit := &ast.LitConstExpr{Kind_: ast.LitInt, Token: token.Token{}}
	lit.SetResolvedType(intTy)

	cloned := deepClone(lit).(*ast.LitConstExpr)
	if cloned == lit {
		t.Fatal("deepClone returned the same pointer, not a copy")
	}
	clonedTy, _ := cloned.ResolvedType().(*types.Type)
	if clonedTy != intTy {
		t.Error("deepClone must preserve *types.Type pointer identity (hash-consed by the Type Manager)")
	}
}
