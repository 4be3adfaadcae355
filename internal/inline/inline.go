// Package inline implements the Inline Analyzer (spec.md §4.9, C9): it
// flags FuncDecls eligible for cross-module inlining, following a
// disqualifier checklist plus a bounded walk over the body counting
// countable nodes.
//
// Grounded on
// _examples/original_source/src/Sema/CheckFuncInline.cpp (MAX_NODE_NUMBER,
// CanExportForInline, IsInlineFunction's disqualifier chain, and
// CountNodeNumber's walk, which this reimplements over internal/ast's
// Walker instead of the original's VisitAction switch).
package inline

import "github.com/jade-lang/jadec/internal/ast"

// MaxNodeNumber is the eligibility ceiling on countable expression nodes in
// a candidate's body (spec.md §4.9's MAX_NODE_NUMBER).
const MaxNodeNumber = 32

// DeclInfo carries the subset of a FuncDecl's resolved attributes the
// disqualifier checks need; the checker populates one per FuncDecl it
// considers and passes it alongside the AST node, since ast.FuncDecl itself
// does not carry checker-only state like "is this the frozen annotation".
type DeclInfo struct {
	Exported      bool
	OuterExported bool // true if the decl has no outer decl
	IsConstructor bool
	IsEnumCtor    bool
	Frozen        bool
	IsConst       bool
	IsOpen        bool
	IsIntrinsic   bool
	IsForeignOrC  bool
	IsAbstractAccessor bool
	IsMainEntry   bool
	IsTestEntry   bool
	IsGeneric     bool
	IsMacroFunc   bool
}

// canExport mirrors CanExportForInline: both the decl and (if nested) its
// owning function must be exported.
func canExport(info DeclInfo) bool {
	return info.Exported && info.OuterExported
}

// Eligible runs every disqualifying check CheckFuncInline.cpp's
// IsInlineFunction applies before attempting the body walk.
func Eligible(fd *ast.FuncDecl, info DeclInfo) bool {
	if info.IsGeneric || info.IsMacroFunc {
		return false
	}
	if !canExport(info) {
		return false
	}
	if info.IsEnumCtor || info.IsConstructor {
		return false
	}
	if !info.Frozen && !info.IsConst {
		return false
	}
	if info.IsOpen || info.IsIntrinsic || info.IsForeignOrC {
		return false
	}
	if info.IsAbstractAccessor {
		return false
	}
	if info.IsMainEntry || info.IsTestEntry {
		return false
	}
	return countBody(fd) <= MaxNodeNumber
}

// TypeClassifier is a node predicate shaped for an internal-type check
// (whether a node's checker-resolved type names a non-exported, non-generic
// declaration). Nothing in this package takes or calls one: Eligible and
// countBody apply no internal-type check.
type TypeClassifier func(n ast.Node) bool

// countBody walks fd's body counting the "countable" node kinds
// CountNodeNumber recognises, stopping early (returning a count above
// MaxNodeNumber) the moment a disqualifying shape is found: a nested
// non-default-param FuncDecl, a LambdaExpr, or more than MaxNodeNumber
// countable nodes.
func countBody(fd *ast.FuncDecl) int {
	if fd.Body == nil {
		return 0
	}
	count := 0
	disqualified := false
	w := ast.NewWalker(func(n ast.Node) ast.Decision {
		if disqualified {
			return ast.StopNow
		}
		switch v := n.(type) {
		case *ast.LambdaExpr:
			disqualified = true
			return ast.StopNow
		case *ast.FuncParam:
			if v.Default != nil {
				return ast.SkipChildren
			}
		case *ast.FuncDecl:
			if v != fd {
				disqualified = true
				return ast.StopNow
			}
		}
		if count >= MaxNodeNumber {
			disqualified = true
			return ast.StopNow
		}
		if isCountable(n) {
			count++
		}
		return ast.WalkChildren
	}, nil)
	w.Walk(fd.Body)
	if disqualified {
		return MaxNodeNumber + 1
	}
	return count
}

// isCountable mirrors CountNodeNumber's switch: every node counts except
// FuncBody blocks (transparent) themselves.
func isCountable(n ast.Node) bool {
	switch n.(type) {
	case *ast.FuncBody:
		return false
	default:
		return true
	}
}
