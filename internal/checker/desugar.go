package checker

import (
	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/token"
)

// compoundAssignOps maps each `op=` token to the plain binary operator it
// expands to in `a = a op b`.
var compoundAssignOps = map[token.Kind]token.Kind{
	token.PLUS_ASSIGN:      token.PLUS,
	token.MINUS_ASSIGN:     token.MINUS,
	token.ASTERISK_ASSIGN:  token.ASTERISK,
	token.SLASH_ASSIGN:     token.SLASH,
	token.PERCENT_ASSIGN:   token.PERCENT,
	token.POWER_ASSIGN:     token.POWER,
}

func isCompoundOp(op token.Kind) bool {
	_, ok := compoundAssignOps[op]
	return ok
}

func compoundToBinaryOp(op token.Kind) token.Kind {
	return compoundAssignOps[op]
}

// desugarLetPattern rewrites a standalone `let p = expr` destructor (used
// outside an if/while condition, e.g. as a statement) into a MatchExpr that
// binds p's names via a single always-matching case. It reports no
// diagnostic: refutability checking belongs to the exhaustiveness pass;
// this function only performs the rewrite shape.
func desugarLetPattern(lp *ast.LetPatternDestructor) {
	if lp.Desugar != nil {
		return
	}
	match := &ast.MatchExpr{
		Header:   ast.Header{NodeKind: ast.KindMatchExpr, Begin: lp.Begin, End: lp.End},
		Selector: lp.Value,
		Cases: []*ast.MatchCase{
			{Header: ast.Header{NodeKind: ast.KindMatchExpr}, Pattern: lp.Pattern,
				Body: &ast.FuncBody{Header: ast.Header{NodeKind: ast.KindFuncBody}}},
		},
	}
	lp.SetDesugar(match)
}

// desugarIfLet rewrites `if let p = expr { then } else { else }` into the
// equivalent MatchExpr form (`match (expr) { case p => then; case _ =>
// else }`), attached via Header.Desugar so the original IfExpr node (and
// any pre-existing reference to it) remains valid per spec.md §3's
// additive-desugar invariant.
func desugarIfLet(ie *ast.IfExpr) {
	if ie.Desugar != nil {
		return
	}
	cases := []*ast.MatchCase{
		{Header: ast.Header{NodeKind: ast.KindMatchExpr}, Pattern: ie.LetPattern, Body: ie.Then},
	}
	elseBody := ie.Else
	if elseBody == nil {
		elseBody = &ast.FuncBody{Header: ast.Header{NodeKind: ast.KindFuncBody}}
	}
	fb, ok := elseBody.(*ast.FuncBody)
	if !ok {
		fb = &ast.FuncBody{Header: ast.Header{NodeKind: ast.KindFuncBody}, Stmts: []ast.Node{elseBody}}
	}
	cases = append(cases, &ast.MatchCase{
		Header:  ast.Header{NodeKind: ast.KindMatchExpr},
		Pattern: &ast.WildcardPattern{Header: ast.Header{NodeKind: ast.KindWildcardPattern}},
		Body:    fb,
	})
	match := &ast.MatchExpr{
		Header:   ast.Header{NodeKind: ast.KindMatchExpr, Begin: ie.Begin, End: ie.End},
		Selector: ie.Cond,
		Cases:    cases,
	}
	ie.SetDesugar(match)
}

// desugarOptionalChain rewrites `a?.b` (etc.) into the null-check-then-
// access form the checker's CHIR lowering expects: `match (a) { case
// Some(x) => x.b; case None => None }` — here represented directly as an
// IfExpr over an `is`-style null test plus the wrapped Access, since a full
// Option-enum lowering requires type information this package resolves
// lazily. No later pass rewrites it into Option cases: internal/irbuilder
// lowers the IfExpr as an ordinary branch.
func desugarOptionalChain(oc *ast.OptionalChainExpr) {
	if oc.Desugar != nil {
		return
	}
	nilCheck := &ast.IsExpr{
		Header: ast.Header{NodeKind: ast.KindIsExpr, Begin: oc.Begin, End: oc.End},
		Value:  oc.Target,
	}
	ifExpr := &ast.IfExpr{
		Header: ast.Header{NodeKind: ast.KindIfExpr, Begin: oc.Begin, End: oc.End},
		Cond:   nilCheck,
		Then:   &ast.FuncBody{Header: ast.Header{NodeKind: ast.KindFuncBody}, Stmts: []ast.Node{oc.Access}},
	}
	oc.SetDesugar(ifExpr)
}

// desugarInterpolation rewrites a string-interpolation literal into a chain
// of string concatenation (BinaryExpr with the `+` operator), each
// non-string segment wrapped by an implicit call to the interpolated
// value's `toString`-equivalent show function — represented here as a
// CallExpr on a synthetic RefExpr named "show", left for the checker's
// later resolution pass to bind to the actual builtin.
func desugarInterpolation(si *ast.StrInterpolationExpr) {
	if si.Desugar != nil || len(si.Parts) == 0 {
		return
	}
	var acc ast.Expression
	for _, part := range si.Parts {
		seg := part
		if lit, isLit := part.(*ast.LitConstExpr); !isLit || lit.Kind_ != ast.LitString {
			seg = &ast.CallExpr{
				Header: ast.Header{NodeKind: ast.KindCallExpr, Begin: part.Range().Begin, End: part.Range().End},
				Callee: &ast.RefExpr{
					Header: ast.Header{NodeKind: ast.KindRefExpr},
					Name:   &ast.Identifier{Header: ast.Header{NodeKind: ast.KindPackage}, Name: "show"},
				},
				Args: []*ast.FuncArg{{Header: ast.Header{NodeKind: ast.KindFuncArg}, Value: part}},
			}
		}
		if acc == nil {
			acc = seg
			continue
		}
		acc = &ast.BinaryExpr{
			Header: ast.Header{NodeKind: ast.KindBinaryExpr, Begin: si.Begin, End: si.End},
			Op:     token.PLUS,
			Left:   acc,
			Right:  seg,
		}
	}
	si.SetDesugar(acc)
}

// desugarTrailingClosure rewrites `foo(a, b) { ... }` / `foo { ... }` into
// an ordinary CallExpr with the LambdaExpr appended as the final argument.
func desugarTrailingClosure(tc *ast.TrailingClosureExpr) {
	if tc.Desugar != nil {
		return
	}
	var call *ast.CallExpr
	if existing, ok := tc.Callee.(*ast.CallExpr); ok {
		call = &ast.CallExpr{
			Header: ast.Header{NodeKind: ast.KindCallExpr, Begin: tc.Begin, End: tc.End},
			Callee: existing.Callee,
			Args:   append(append([]*ast.FuncArg(nil), existing.Args...), &ast.FuncArg{Header: ast.Header{NodeKind: ast.KindFuncArg}, Value: tc.Lambda}),
		}
	} else {
		call = &ast.CallExpr{
			Header: ast.Header{NodeKind: ast.KindCallExpr, Begin: tc.Begin, End: tc.End},
			Callee: tc.Callee,
			Args:   []*ast.FuncArg{{Header: ast.Header{NodeKind: ast.KindFuncArg}, Value: tc.Lambda}},
		}
	}
	tc.SetDesugar(call)
}

// desugarCompoundAssign rewrites `a op= b` into `a = a op b`, leaving plain
// `=` untouched.
func desugarCompoundAssign(ae *ast.AssignExpr) {
	if ae.Desugar != nil {
		return
	}
	if !isCompoundOp(ae.Op) {
		return
	}
	binOp := compoundToBinaryOp(ae.Op)
	rhs := &ast.BinaryExpr{
		Header: ast.Header{NodeKind: ast.KindBinaryExpr, Begin: ae.Begin, End: ae.End},
		Op:     binOp,
		Left:   ae.Target,
		Right:  ae.Value,
	}
	plain := &ast.AssignExpr{
		Header: ast.Header{NodeKind: ast.KindAssignExpr, Begin: ae.Begin, End: ae.End},
		Op:     ae.Op, // retained for diagnostics; lowering consults Desugar, not Op
		Target: ae.Target,
		Value:  rhs,
	}
	ae.SetDesugar(plain)
}
