// Package ast implements C4: the closed sum-type node hierarchy over
// Declaration, Expression, Type-annotation, Pattern, File, Package
// (spec.md §3), plus the identity-tagged walker (spec.md §4.4, §9).
//
// The node-kind split and per-node GetToken/TokenLiteral idiom are grounded
// on _examples/funvibe-funxy/internal/ast/ast_core.go. Where that teacher
// uses a hand-written Visitor interface with one method per node type, this
// package instead enumerates children via a per-node Children method (the
// same "children enumeration is fixed per kind" idiom spec.md §4.4 asks
// for) — a Visitor interface big enough for ~90 node kinds would be pure
// boilerplate; go/ast.Walk's children-enumeration shape, exercised
// elsewhere in the retrieved pack's Go-AST-rewriting tools, is the better
// fit and is what the walker in walker.go uses.
package ast

import "github.com/jade-lang/jadec/internal/token"

// Kind tags every node (spec.md §3 "closed sum").
type Kind int

const (
	KindInvalid Kind = iota

	// Declarations
	KindPackage
	KindFile
	KindImportSpec
	KindPackageSpec
	KindVarDecl
	KindVarWithPatternDecl
	KindFuncDecl
	KindFuncParam
	KindFuncParamList
	KindFuncBody
	KindClassDecl
	KindInterfaceDecl
	KindStructDecl
	KindEnumDecl
	KindExtendDecl
	KindTypeAliasDecl
	KindPropDecl
	KindMacroDecl
	KindMainDecl
	KindPrimaryCtorDecl
	KindMacroExpandDecl
	KindGenericParamDecl
	KindGenericConstraint
	KindGeneric
	KindBuiltInDecl

	// Expressions
	KindRefExpr
	KindMemberAccess
	KindCallExpr
	KindLitConstExpr
	KindStrInterpolationExpr
	KindUnaryExpr
	KindBinaryExpr
	KindAssignExpr
	KindIncOrDecExpr
	KindRangeExpr
	KindSubscriptExpr
	KindParenExpr
	KindTupleLit
	KindArrayLit
	KindArrayExpr
	KindTypeConvExpr
	KindLambdaExpr
	KindTrailingClosureExpr
	KindIfExpr
	KindMatchExpr
	KindTryExpr
	KindThrowExpr
	KindReturnExpr
	KindJumpExpr
	KindForInExpr
	KindWhileExpr
	KindDoWhileExpr
	KindSpawnExpr
	KindSynchronizedExpr
	KindIsExpr
	KindAsExpr
	KindOptionalExpr
	KindOptionalChainExpr
	KindLetPatternDestructor
	KindQuoteExpr
	KindMacroExpandExpr
	KindIfAvailableExpr
	KindFuncArg
	KindInvalidExpr
	KindWildcardExpr
	KindPrimitiveTypeExpr

	// Patterns
	KindConstPattern
	KindWildcardPattern
	KindVarPattern
	KindTuplePattern
	KindTypePattern
	KindEnumPattern
	KindExceptTypePattern
	KindVarOrEnumPattern

	// Type annotations
	KindRefType
	KindParenType
	KindFuncType
	KindTupleType
	KindThisType
	KindPrimitiveType
	KindOptionType
	KindVArrayType
	KindQualifiedType
	KindConstantType
	KindInvalidType
)

// Attr is the bitset of node attributes (spec.md §3).
type Attr uint32

const (
	AttrPublic Attr = 1 << iota
	AttrPrivate
	AttrStatic
	AttrOpen
	AttrAbstract
	AttrConstructor
	AttrGeneric
	AttrImported
	AttrCompilerAdd
	AttrInClasslike
	AttrNeedAutoBox
	AttrHasBroken
	AttrIsBroken
	AttrIsAnnotation
	AttrIncreCompile
	AttrNoReflectInfo
)

func (a *Attr) Set(flag Attr)      { *a |= flag }
func (a *Attr) Clear(flag Attr)    { *a &^= flag }
func (a Attr) Has(flag Attr) bool  { return a&flag != 0 }

// TypeHandle is the Type Manager's opaque canonical-type pointer, as seen
// from the ast package (the concrete type lives in internal/types; ast
// cannot import it without a cycle, so it is threaded through as `any` and
// type-asserted by consumers — mirroring how the teacher's AST carries an
// untyped `Ty` slot filled in during checking).
type TypeHandle = any

// CommentGroup is a contiguous run of comment tokens (spec.md §4.3).
type CommentGroup struct {
	Comments []token.Token
}

// Header is the common state shared by every node (spec.md §3): position,
// attributes, optional resolved type, optional desugar replacement,
// optional map_expr back-pointer (post generic-instantiation rearrangement),
// and optional comment groups.
type Header struct {
	NodeKind  Kind
	Begin     token.Position
	End       token.Position
	Attrs     Attr
	Ty        TypeHandle
	Desugar   Node // additive: original retained, traversal prefers Desugar
	MapExpr   Node
	OuterDecl Node // non-owning back-reference to the enclosing declaration

	Leading  *CommentGroup
	Trailing *CommentGroup
	Inner    *CommentGroup

	// WalkID records the last walk_id (spec.md §4.4, §9) that visited this
	// node, so a re-entrant traversal sharing that id skips its subtree.
	WalkID uint32
}

// header returns h itself, letting the walker reach the embedded Header of
// any concrete node type through the promoted method without a type switch.
func (h *Header) header() *Header { return h }

func (h *Header) Kind() Kind            { return h.NodeKind }
func (h *Header) Range() token.Range    { return token.Range{Begin: h.Begin, End: h.End} }
func (h *Header) Attributes() *Attr     { return &h.Attrs }
func (h *Header) GetDesugar() Node      { return h.Desugar }
func (h *Header) SetDesugar(n Node)     { h.Desugar = n }
func (h *Header) ResolvedType() TypeHandle { return h.Ty }

// SetResolvedType fills Ty. Per spec.md §3 invariant, once set it must
// never change; desugar produces new nodes with their own Ty instead.
func (h *Header) SetResolvedType(t TypeHandle) {
	if h.Ty != nil {
		panic("ast: Ty already set; desugar instead of mutating")
	}
	h.Ty = t
}

// Node is the base interface for every AST node (spec.md §3).
type Node interface {
	Kind() Kind
	Range() token.Range
	TokenLiteral() string
	// Children returns this node's children in the fixed per-kind order
	// spec.md §4.4 requires, honouring the "walk the desugar instead" rule
	// for expressions.
	Children() []Node
}

// Declaration is a Node representing one of the Declaration variants.
type Declaration interface {
	Node
	declNode()
}

// Expression is a Node representing one of the Expression variants.
type Expression interface {
	Node
	exprNode()
}

// Pattern is a Node representing one of the Pattern variants.
type Pattern interface {
	Node
	patternNode()
}

// TypeAnnotation is a Node representing one of the Type-annotation variants.
type TypeAnnotation interface {
	Node
	typeAnnotNode()
}
