package ast

import "github.com/jade-lang/jadec/internal/token"

// childrenOrDesugar implements spec.md §4.4's "if desugar is set, walk it
// instead of the non-desugared children" rule, and testable property 2.
func childrenOrDesugar(h *Header, direct []Node) []Node {
	if h.Desugar != nil {
		return []Node{h.Desugar}
	}
	return direct
}

// exprNodes widens a slice of expressions to the []Node childrenOrDesugar
// takes.
func exprNodes(es []Expression) []Node {
	out := make([]Node, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// RefExpr is a bare name reference resolved during checking.
type RefExpr struct {
	Header
	Name *Identifier
}

func (e *RefExpr) TokenLiteral() string { return e.Name.Name }
func (e *RefExpr) exprNode()            {}
func (e *RefExpr) Children() []Node     { return childrenOrDesugar(&e.Header, []Node{e.Name}) }

// MemberAccess is `expr.member`.
type MemberAccess struct {
	Header
	Target Expression
	Member *Identifier
}

func (e *MemberAccess) TokenLiteral() string { return "." }
func (e *MemberAccess) exprNode()            {}
func (e *MemberAccess) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Target, e.Member})
}

// FuncArg is one (possibly named) call argument.
type FuncArg struct {
	Header
	Name  *Identifier // nil for positional args
	Value Expression
}

func (e *FuncArg) TokenLiteral() string { return "arg" }
func (e *FuncArg) exprNode()            {}
func (e *FuncArg) Children() []Node     { return childrenOrDesugar(&e.Header, []Node{e.Value}) }

// CallExpr is `callee(args...)`.
type CallExpr struct {
	Header
	Callee Expression
	Args   []*FuncArg
}

func (e *CallExpr) TokenLiteral() string { return "()" }
func (e *CallExpr) exprNode()            {}
func (e *CallExpr) Children() []Node {
	direct := []Node{e.Callee}
	for _, a := range e.Args {
		direct = append(direct, a)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// LitKind distinguishes the literal-constant subkinds.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitBool
	LitRune
	LitByteString
	LitUnit
)

// LitConstExpr is an integer/float/string/bool/rune/unit literal.
type LitConstExpr struct {
	Header
	Kind_   LitKind
	Token   token.Token
	Text    string
}

func (e *LitConstExpr) TokenLiteral() string { return e.Text }
func (e *LitConstExpr) exprNode()            {}
func (e *LitConstExpr) Children() []Node     { return nil }

// StrInterpolationExpr is `"a ${expr} b"`, desugared by the checker into
// calls into the runtime string builder.
type StrInterpolationExpr struct {
	Header
	Parts []Expression // literal segments as LitConstExpr, interpolated as any Expression
}

func (e *StrInterpolationExpr) TokenLiteral() string { return "interp" }
func (e *StrInterpolationExpr) exprNode()            {}
func (e *StrInterpolationExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, exprNodes(e.Parts))
}

// UnaryExpr is `-x`, `!x`, etc.
type UnaryExpr struct {
	Header
	Op      token.Kind
	Operand Expression
}

func (e *UnaryExpr) TokenLiteral() string { return e.Op.String() }
func (e *UnaryExpr) exprNode()            {}
func (e *UnaryExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Operand})
}

// BinaryExpr is `a op b` for every precedence level in spec.md §4.3.
type BinaryExpr struct {
	Header
	Op    token.Kind
	Left  Expression
	Right Expression
}

func (e *BinaryExpr) TokenLiteral() string { return e.Op.String() }
func (e *BinaryExpr) exprNode()            {}
func (e *BinaryExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Left, e.Right})
}

// AssignExpr is `a = b` or a compound `a op= b` (compound forms are
// desugared by the checker per spec.md §4.6).
type AssignExpr struct {
	Header
	Op     token.Kind
	Target Expression
	Value  Expression
}

func (e *AssignExpr) TokenLiteral() string { return e.Op.String() }
func (e *AssignExpr) exprNode()            {}
func (e *AssignExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Target, e.Value})
}

// IncOrDecExpr is `x++` / `x--`.
type IncOrDecExpr struct {
	Header
	Op      token.Kind
	Operand Expression
	Prefix  bool
}

func (e *IncOrDecExpr) TokenLiteral() string { return e.Op.String() }
func (e *IncOrDecExpr) exprNode()            {}
func (e *IncOrDecExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Operand})
}

// RangeExpr is `a..b` / `a..=b`.
type RangeExpr struct {
	Header
	Start     Expression
	End       Expression
	Inclusive bool
}

func (e *RangeExpr) TokenLiteral() string { return ".." }
func (e *RangeExpr) exprNode()            {}
func (e *RangeExpr) Children() []Node {
	var direct []Node
	if e.Start != nil {
		direct = append(direct, e.Start)
	}
	if e.End != nil {
		direct = append(direct, e.End)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// SubscriptExpr is `a[i]` or `a[range]`.
type SubscriptExpr struct {
	Header
	Target Expression
	Index  Expression
}

func (e *SubscriptExpr) TokenLiteral() string { return "[]" }
func (e *SubscriptExpr) exprNode()            {}
func (e *SubscriptExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Target, e.Index})
}

// ParenExpr is `(expr)`.
type ParenExpr struct {
	Header
	Inner Expression
}

func (e *ParenExpr) TokenLiteral() string { return "()" }
func (e *ParenExpr) exprNode()            {}
func (e *ParenExpr) Children() []Node     { return childrenOrDesugar(&e.Header, []Node{e.Inner}) }

// TupleLit is `(a, b, c)`.
type TupleLit struct {
	Header
	Elems []Expression
}

func (e *TupleLit) TokenLiteral() string { return "(,)" }
func (e *TupleLit) exprNode()            {}
func (e *TupleLit) Children() []Node     { return childrenOrDesugar(&e.Header, exprNodes(e.Elems)) }

// ArrayLit is `[a, b, c]`.
type ArrayLit struct {
	Header
	Elems []Expression
}

func (e *ArrayLit) TokenLiteral() string { return "[]" }
func (e *ArrayLit) exprNode()            {}
func (e *ArrayLit) Children() []Node     { return childrenOrDesugar(&e.Header, exprNodes(e.Elems)) }

// ArrayExpr is `Array<T>(size, init)`.
type ArrayExpr struct {
	Header
	ElemType TypeAnnotation
	Size     Expression
	Init     Expression
}

func (e *ArrayExpr) TokenLiteral() string { return "Array" }
func (e *ArrayExpr) exprNode()            {}
func (e *ArrayExpr) Children() []Node {
	var direct []Node
	if e.ElemType != nil {
		direct = append(direct, e.ElemType)
	}
	if e.Size != nil {
		direct = append(direct, e.Size)
	}
	if e.Init != nil {
		direct = append(direct, e.Init)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// TypeConvExpr is `T(expr)` explicit conversion.
type TypeConvExpr struct {
	Header
	Target TypeAnnotation
	Value  Expression
}

func (e *TypeConvExpr) TokenLiteral() string { return "conv" }
func (e *TypeConvExpr) exprNode()            {}
func (e *TypeConvExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Target, e.Value})
}

// LambdaExpr is `{ params => body }`.
type LambdaExpr struct {
	Header
	Params *FuncParamList
	Body   *FuncBody
}

func (e *LambdaExpr) TokenLiteral() string { return "lambda" }
func (e *LambdaExpr) exprNode()            {}
func (e *LambdaExpr) Children() []Node {
	direct := []Node{}
	if e.Params != nil {
		direct = append(direct, e.Params)
	}
	if e.Body != nil {
		direct = append(direct, e.Body)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// TrailingClosureExpr is `foo { ... }`, desugared to a final call argument
// during checking (spec.md §4.6).
type TrailingClosureExpr struct {
	Header
	Callee Expression
	Lambda *LambdaExpr
}

func (e *TrailingClosureExpr) TokenLiteral() string { return "foo{}" }
func (e *TrailingClosureExpr) exprNode()            {}
func (e *TrailingClosureExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Callee, e.Lambda})
}

// IfExpr is `if cond { ... } else { ... }`.
type IfExpr struct {
	Header
	LetPattern Pattern // non-nil for `if let p = expr`, desugared to MatchExpr
	Cond       Expression
	Then       *FuncBody
	Else       Node // *FuncBody or *IfExpr
}

func (e *IfExpr) TokenLiteral() string { return "if" }
func (e *IfExpr) exprNode()            {}
func (e *IfExpr) Children() []Node {
	var direct []Node
	if e.LetPattern != nil {
		direct = append(direct, e.LetPattern)
	}
	direct = append(direct, e.Cond, e.Then)
	if e.Else != nil {
		direct = append(direct, e.Else)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// MatchCase is one `case pattern => body` arm.
type MatchCase struct {
	Header
	Pattern Pattern
	Guard   Expression
	Body    *FuncBody
}

func (c *MatchCase) TokenLiteral() string { return "case" }
func (c *MatchCase) exprNode()            {}
func (c *MatchCase) Children() []Node {
	direct := []Node{c.Pattern}
	if c.Guard != nil {
		direct = append(direct, c.Guard)
	}
	direct = append(direct, c.Body)
	return direct
}

// MatchExpr is `match (x) { case ... }`.
type MatchExpr struct {
	Header
	Selector Expression
	Cases    []*MatchCase
}

func (e *MatchExpr) TokenLiteral() string { return "match" }
func (e *MatchExpr) exprNode()            {}
func (e *MatchExpr) Children() []Node {
	direct := []Node{e.Selector}
	for _, c := range e.Cases {
		direct = append(direct, c)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// TryExpr is `try { ... } catch (p) { ... } finally { ... }`.
type TryCatch struct {
	Header
	Pattern Pattern
	Body    *FuncBody
}

func (c *TryCatch) TokenLiteral() string { return "catch" }
func (c *TryCatch) exprNode()            {}
func (c *TryCatch) Children() []Node     { return []Node{c.Pattern, c.Body} }

type TryExpr struct {
	Header
	Resources []Node // VarDecl resources opened by try-with-resources
	Body      *FuncBody
	Catches   []*TryCatch
	Finally   *FuncBody
}

func (e *TryExpr) TokenLiteral() string { return "try" }
func (e *TryExpr) exprNode()            {}
func (e *TryExpr) Children() []Node {
	var direct []Node
	direct = append(direct, e.Resources...)
	direct = append(direct, e.Body)
	for _, c := range e.Catches {
		direct = append(direct, c)
	}
	if e.Finally != nil {
		direct = append(direct, e.Finally)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// ThrowExpr is `throw expr`.
type ThrowExpr struct {
	Header
	Value Expression
}

func (e *ThrowExpr) TokenLiteral() string { return "throw" }
func (e *ThrowExpr) exprNode()            {}
func (e *ThrowExpr) Children() []Node     { return childrenOrDesugar(&e.Header, []Node{e.Value}) }

// ReturnExpr is `return expr`.
type ReturnExpr struct {
	Header
	Value Expression
}

func (e *ReturnExpr) TokenLiteral() string { return "return" }
func (e *ReturnExpr) exprNode()            {}
func (e *ReturnExpr) Children() []Node {
	if e.Value == nil {
		return childrenOrDesugar(&e.Header, nil)
	}
	return childrenOrDesugar(&e.Header, []Node{e.Value})
}

// JumpExpr is `break`/`continue`, optionally labelled.
type JumpExpr struct {
	Header
	Op    token.Kind
	Label *Identifier
}

func (e *JumpExpr) TokenLiteral() string { return e.Op.String() }
func (e *JumpExpr) exprNode()            {}
func (e *JumpExpr) Children() []Node {
	if e.Label != nil {
		return []Node{e.Label}
	}
	return nil
}

// ForInExpr is `for x in iterable { ... }`.
type ForInExpr struct {
	Header
	Pattern  Pattern
	Iterable Expression
	Body     *FuncBody
}

func (e *ForInExpr) TokenLiteral() string { return "for-in" }
func (e *ForInExpr) exprNode()            {}
func (e *ForInExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Pattern, e.Iterable, e.Body})
}

// WhileExpr is `while cond { ... }` (or `while let p = expr { ... }`).
type WhileExpr struct {
	Header
	LetPattern Pattern
	Cond       Expression
	Body       *FuncBody
}

func (e *WhileExpr) TokenLiteral() string { return "while" }
func (e *WhileExpr) exprNode()            {}
func (e *WhileExpr) Children() []Node {
	var direct []Node
	if e.LetPattern != nil {
		direct = append(direct, e.LetPattern)
	}
	direct = append(direct, e.Cond, e.Body)
	return childrenOrDesugar(&e.Header, direct)
}

// DoWhileExpr is `do { ... } while cond`.
type DoWhileExpr struct {
	Header
	Body *FuncBody
	Cond Expression
}

func (e *DoWhileExpr) TokenLiteral() string { return "do-while" }
func (e *DoWhileExpr) exprNode()            {}
func (e *DoWhileExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Body, e.Cond})
}

// SpawnExpr is `spawn { ... }`.
type SpawnExpr struct {
	Header
	Body Expression
}

func (e *SpawnExpr) TokenLiteral() string { return "spawn" }
func (e *SpawnExpr) exprNode()            {}
func (e *SpawnExpr) Children() []Node     { return childrenOrDesugar(&e.Header, []Node{e.Body}) }

// SynchronizedExpr is `synchronized(lock) { ... }`.
type SynchronizedExpr struct {
	Header
	Lock Expression
	Body *FuncBody
}

func (e *SynchronizedExpr) TokenLiteral() string { return "synchronized" }
func (e *SynchronizedExpr) exprNode()            {}
func (e *SynchronizedExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Lock, e.Body})
}

// IsExpr is `expr is T`.
type IsExpr struct {
	Header
	Value  Expression
	Target TypeAnnotation
}

func (e *IsExpr) TokenLiteral() string { return "is" }
func (e *IsExpr) exprNode()            {}
func (e *IsExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Value, e.Target})
}

// AsExpr is `expr as T`.
type AsExpr struct {
	Header
	Value  Expression
	Target TypeAnnotation
}

func (e *AsExpr) TokenLiteral() string { return "as" }
func (e *AsExpr) exprNode()            {}
func (e *AsExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Value, e.Target})
}

// OptionalExpr is a single trailing `?` (does not introduce an operator;
// carried for option-unwrap sites distinct from OptionalChainExpr).
type OptionalExpr struct {
	Header
	Value Expression
}

func (e *OptionalExpr) TokenLiteral() string { return "?" }
func (e *OptionalExpr) exprNode()            {}
func (e *OptionalExpr) Children() []Node     { return childrenOrDesugar(&e.Header, []Node{e.Value}) }

// OptionalChainExpr wraps `a?.b`, `a?[i]`, `a?(x)`, `a?{...}` (spec.md §4.3,
// §4.6 desugar target).
type OptionalChainExpr struct {
	Header
	Target Expression
	Access Expression // the MemberAccess/SubscriptExpr/CallExpr being wrapped
}

func (e *OptionalChainExpr) TokenLiteral() string { return "?." }
func (e *OptionalChainExpr) exprNode()            {}
func (e *OptionalChainExpr) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Target, e.Access})
}

// LetPatternDestructor is `let p = expr` used as a condition (if/while).
type LetPatternDestructor struct {
	Header
	Pattern Pattern
	Value   Expression
}

func (e *LetPatternDestructor) TokenLiteral() string { return "let" }
func (e *LetPatternDestructor) exprNode()            {}
func (e *LetPatternDestructor) Children() []Node {
	return childrenOrDesugar(&e.Header, []Node{e.Pattern, e.Value})
}

// QuoteExpr is `quote { tokens... }` — macro metaprogramming quotation.
type QuoteExpr struct {
	Header
	Tokens []token.Token
	Interpolated []Expression
}

func (e *QuoteExpr) TokenLiteral() string { return "quote" }
func (e *QuoteExpr) exprNode()            {}
func (e *QuoteExpr) Children() []Node     { return childrenOrDesugar(&e.Header, exprNodes(e.Interpolated)) }

// MacroExpandExpr is an expression-position macro invocation.
type MacroExpandExpr struct {
	Header
	MacroName  *Identifier
	Args       []Expression
	Invocation InvocationTokens
	Expanded   Expression
}

func (e *MacroExpandExpr) TokenLiteral() string { return e.MacroName.Name }
func (e *MacroExpandExpr) exprNode()            {}
func (e *MacroExpandExpr) Children() []Node {
	if e.Expanded != nil {
		return []Node{e.Expanded}
	}
	direct := []Node{e.MacroName}
	for _, a := range e.Args {
		direct = append(direct, a)
	}
	return direct
}

// IfAvailableExpr is a conditional-compilation guard on an API's presence.
type IfAvailableExpr struct {
	Header
	APIName *Identifier
	Then    *FuncBody
	Else    *FuncBody
}

func (e *IfAvailableExpr) TokenLiteral() string { return "ifAvailable" }
func (e *IfAvailableExpr) exprNode()            {}
func (e *IfAvailableExpr) Children() []Node {
	direct := []Node{e.APIName, e.Then}
	if e.Else != nil {
		direct = append(direct, e.Else)
	}
	return childrenOrDesugar(&e.Header, direct)
}

// InvalidExpr marks an unrecoverable parse position; carries IS_BROKEN.
type InvalidExpr struct {
	Header
	Text string
}

func (e *InvalidExpr) TokenLiteral() string { return e.Text }
func (e *InvalidExpr) exprNode()            {}
func (e *InvalidExpr) Children() []Node     { return nil }

// WildcardExpr is `_` used as a discard in expression position.
type WildcardExpr struct {
	Header
}

func (e *WildcardExpr) TokenLiteral() string { return "_" }
func (e *WildcardExpr) exprNode()            {}
func (e *WildcardExpr) Children() []Node     { return nil }

// PrimitiveTypeExpr names a primitive type used as a value (e.g. `Int64.max`).
type PrimitiveTypeExpr struct {
	Header
	Name string
}

func (e *PrimitiveTypeExpr) TokenLiteral() string { return e.Name }
func (e *PrimitiveTypeExpr) exprNode()            {}
func (e *PrimitiveTypeExpr) Children() []Node     { return nil }
