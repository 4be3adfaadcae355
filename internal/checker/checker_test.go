package checker

import (
	"testing"

	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/lexer"
	"github.com/jade-lang/jadec/internal/parser"
	"github.com/jade-lang/jadec/internal/token"
	"github.com/jade-lang/jadec/internal/types"
)

// --- pure-function unit tests for the generic-inference helpers ---

func TestUnify_BindsGenericParamToArg(t *testing.T) {
	tm := types.NewManager()
	tParam := tm.GenericParam("T")
	arg := tm.Primitive("Int64")
	subst := make(map[string]*types.Type)

	if !unify(tParam, arg, subst) {
		t.Fatal("unify should always succeed binding a bare generic param")
	}
	if subst["T"] != arg {
		t.Errorf("subst[T] = %v, want %v", subst["T"], arg)
	}
}

func TestUnify_RejectsShapeMismatch(t *testing.T) {
	tm := types.NewManager()
	arrParam := tm.Array(tm.GenericParam("T"))
	nonArray := tm.Primitive("Int64")
	subst := make(map[string]*types.Type)

	if unify(arrParam, nonArray, subst) {
		t.Error("unify should reject an Array parameter against a non-Array argument")
	}
}

func TestUnify_ConsistentRepeatedGenericParam(t *testing.T) {
	tm := types.NewManager()
	tParam := tm.GenericParam("T")
	tupleParam := tm.Tuple([]*types.Type{tParam, tParam})
	i64 := tm.Primitive("Int64")
	str := tm.Primitive("String")

	okArg := tm.Tuple([]*types.Type{i64, i64})
	subst := make(map[string]*types.Type)
	if !unify(tupleParam, okArg, subst) {
		t.Fatal("unify should succeed when both tuple elements agree on T")
	}

	badArg := tm.Tuple([]*types.Type{i64, str})
	subst2 := make(map[string]*types.Type)
	if unify(tupleParam, badArg, subst2) {
		t.Error("unify should reject two occurrences of T binding to different concrete types")
	}
}

func TestGenericParamNames_CollectsInFirstSeenOrder(t *testing.T) {
	tm := types.NewManager()
	u := tm.GenericParam("U")
	tp := tm.GenericParam("T")
	sig := tm.Func([]*types.Type{u, tm.Array(tp), u}, tp, false)

	names := genericParamNames(sig)
	if len(names) != 2 || names[0] != "U" || names[1] != "T" {
		t.Errorf("genericParamNames = %v, want [U T]", names)
	}
}

func TestGenericParamNames_NoneForConcreteSig(t *testing.T) {
	tm := types.NewManager()
	sig := tm.Func([]*types.Type{tm.Primitive("Int64")}, tm.Primitive("Bool"), false)
	if names := genericParamNames(sig); len(names) != 0 {
		t.Errorf("genericParamNames = %v, want none", names)
	}
}

func TestMoreSpecific_StrictSubtypeDominates(t *testing.T) {
	tm := types.NewManager()
	c := New(tm, diagnostics.NewBag())

	base := tm.Nominal(types.KindClass, "Base")
	derived := tm.Nominal(types.KindClass, "Derived")
	tm.DeclareHierarchy("Derived", []string{"Base"})

	specific := tm.Func([]*types.Type{derived}, tm.Primitive("Int64"), false)
	general := tm.Func([]*types.Type{base}, tm.Primitive("Int64"), false)

	if !c.moreSpecific(specific, general) {
		t.Error("a Derived parameter should dominate a Base parameter")
	}
	if c.moreSpecific(general, specific) {
		t.Error("a Base parameter should not dominate a Derived parameter")
	}
}

func TestMoreSpecific_IdenticalSignaturesNeitherDominates(t *testing.T) {
	tm := types.NewManager()
	c := New(tm, diagnostics.NewBag())

	sigA := tm.Func([]*types.Type{tm.Primitive("Int64")}, tm.Primitive("Int64"), false)
	sigB := tm.Func([]*types.Type{tm.Primitive("Int64")}, tm.Primitive("Int64"), false)

	if c.moreSpecific(sigA, sigB) || c.moreSpecific(sigB, sigA) {
		t.Error("identical signatures must not dominate each other (the ambiguous case)")
	}
}

// --- integration tests driving real source text through the checker ---

func checkSource(t *testing.T, src string) (*ast.Package, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	var toks []token.Token
	lx := lexer.New(0, src, bag)
	for {
		tk := lx.Next()
		toks = append(toks, tk)
		if tk.Kind == token.EOF {
			break
		}
	}
	feed := &tokenFeed{toks: toks}
	prs := parser.New(feed, bag, 0, "main.jd")
	file := prs.ParseFile()
	pkg := &ast.Package{Files: []*ast.File{file}}

	tm := types.NewManager()
	c := New(tm, bag)
	c.CheckPackage(pkg)
	return pkg, bag
}

// tokenFeed replays an already-lexed token slice, mirroring
// internal/pipeline's own adapter of the same name.
type tokenFeed struct {
	toks []token.Token
	pos  int
}

func (f *tokenFeed) Next() token.Token {
	if f.pos >= len(f.toks) {
		return token.Token{Kind: token.EOF}
	}
	tk := f.toks[f.pos]
	f.pos++
	return tk
}

func (f *tokenFeed) LookAhead(k int, skipNewlines bool) []token.Token {
	var out []token.Token
	i := f.pos
	for len(out) < k {
		if i >= len(f.toks) {
			out = append(out, token.Token{Kind: token.EOF})
			continue
		}
		tk := f.toks[i]
		i++
		if skipNewlines && tk.Kind == token.NEWLINE {
			continue
		}
		out = append(out, tk)
	}
	return out
}

func TestCheckPackage_SetsFuncDeclResolvedType(t *testing.T) {
	pkg, bag := checkSource(t, `
func add(a: Int64, b: Int64): Int64 {
    return a + b
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	fd, ok := pkg.Files[0].Decls[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("Decls[0] = %T, want *ast.FuncDecl", pkg.Files[0].Decls[0])
	}
	ty, ok := fd.ResolvedType().(*types.Type)
	if !ok || ty == nil {
		t.Fatal("add's FuncDecl.Ty was never set")
	}
	if ty.Kind != types.KindFunc {
		t.Errorf("resolved type kind = %v, want KindFunc", ty.Kind)
	}
}

func TestCheckPackage_UnresolvedNameProducesDiagnostic(t *testing.T) {
	_, bag := checkSource(t, `
func useUndefined(): Int64 {
    return undefinedName
}
`)
	found := false
	for _, e := range bag.Errors() {
		if e.Code == diagnostics.ErrS001UnresolvedName {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want one with code %s", bag.Errors(), diagnostics.ErrS001UnresolvedName)
	}
}

func TestCheckPackage_AmbiguousOverloadProducesDiagnostic(t *testing.T) {
	_, bag := checkSource(t, `
func pick(a: Int64, b: Int64): Int64 { return a }
func pick(a: Int64, b: Int64): Int64 { return b }

func callAmbiguous(): Int64 {
    return pick(1, 2)
}
`)
	found := false
	for _, e := range bag.Errors() {
		if e.Code == diagnostics.ErrS004AmbiguousOverload {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want one with code %s", bag.Errors(), diagnostics.ErrS004AmbiguousOverload)
	}
}
