package irbuilder

import (
	"testing"

	"github.com/jade-lang/jadec/internal/chir"
	"github.com/jade-lang/jadec/internal/pipeline"
)

// checkedPackage drives real source text through the lexer, parser, and
// checker stages and returns the resulting PipelineContext, whose Package
// field holds the checked ast.Package, mirroring
// how pkg/frontend.CompilePackage assembles one before handing it to this
// package's Builder — irbuilder is exercised against the real C6 output it
// will see in the pipeline, not a hand-built AST literal.
func checkedPackage(t *testing.T, src string) *pipeline.PipelineContext {
	t.Helper()
	ctx := pipeline.NewPipelineContext(src)
	ctx.FilePath = "main.jd"
	stages := pipeline.New(&pipeline.LexerProcessor{}, &pipeline.ParserProcessor{}, &pipeline.CheckerProcessor{})
	return stages.Run(ctx)
}

func TestLowerPackage_ProducesValueFuncForEachFunction(t *testing.T) {
	ctx := checkedPackage(t, `
func square(x: Int64): Int64 {
    return x * x
}
`)
	if ctx.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Bag.Errors())
	}

	b := New()
	b.LowerPackage(ctx.Package)

	if _, ok := b.funcIDs["square"]; !ok {
		t.Fatal("square was never interned into funcIDs")
	}
	if len(b.values) == 0 {
		t.Fatal("expected at least one Value-pool entry")
	}
	foundFunc := false
	for _, v := range b.values {
		if v.Kind == chir.ValueFunc {
			foundFunc = true
		}
	}
	if !foundFunc {
		t.Error("no ValueFunc entry in the Value pool")
	}
	if len(b.exprs) == 0 {
		t.Error("expected at least one Expr-pool entry for square's body")
	}
}

func TestBuild_RoundTripsThroughSerializeDeserialize(t *testing.T) {
	ctx := checkedPackage(t, `
func add(a: Int64, b: Int64): Int64 {
    return a + b
}
`)
	if ctx.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Bag.Errors())
	}

	b := New()
	b.LowerPackage(ctx.Package)
	mod, err := b.Build("checked", "main", []string{"main.jd"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if mod == nil {
		t.Fatal("Build returned a nil module with no error")
	}
	if mod.Phase != "checked" {
		t.Errorf("Phase = %q, want %q", mod.Phase, "checked")
	}
	if len(mod.SourceFileNames) != 1 || mod.SourceFileNames[0] != "main.jd" {
		t.Errorf("SourceFileNames = %v, want [main.jd]", mod.SourceFileNames)
	}
	// Pool.Len counts the unused id-0 slot.
	if mod.Values.Len()-1 != len(b.values) {
		t.Errorf("Values.Len()-1 = %d, want %d", mod.Values.Len()-1, len(b.values))
	}
	if mod.Expressions.Len()-1 != len(b.exprs) {
		t.Errorf("Expressions.Len()-1 = %d, want %d", mod.Expressions.Len()-1, len(b.exprs))
	}
}

func TestLowerPackage_NoMainLeavesGlobalInitUnset(t *testing.T) {
	ctx := checkedPackage(t, `
func helper(): Int64 {
    return 1
}
`)
	if ctx.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Bag.Errors())
	}
	b := New()
	b.LowerPackage(ctx.Package)
	raw := b.Module("checked", "main", []string{"main.jd"})
	if raw.GlobalInitFuncID != 0 {
		t.Errorf("GlobalInitFuncID = %d, want 0 (no main declared)", raw.GlobalInitFuncID)
	}
}

func TestTypeID_MemoizesByPointerIdentity(t *testing.T) {
	ctx := checkedPackage(t, `
func twice(x: Int64): Int64 {
    return x + x
}
`)
	if ctx.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Bag.Errors())
	}
	b := New()
	b.LowerPackage(ctx.Package)

	// Int64 is interned once by the Type Manager (hash-consing), so every
	// site that resolves to it in this package should share exactly one
	// Types-pool entry rather than one per occurrence: the memo map and the
	// pool slice grow in lockstep.
	if len(b.typeIDs) == 0 {
		t.Fatal("expected at least one interned type")
	}
	if len(b.types) != len(b.typeIDs) {
		t.Errorf("len(b.types) = %d, want %d (one Types-pool entry per distinct *types.Type)", len(b.types), len(b.typeIDs))
	}
}
