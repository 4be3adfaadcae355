// Package parser implements C3: a Pratt expression parser plus recursive-
// descent declaration/statement parsing over the token stream C2 produces,
// building the C4 AST directly (spec.md §4.3).
//
// Grounded on _examples/funvibe-funxy/internal/parser's own split (one file
// per expression category, a precedence table driving infix dispatch) and
// its Parser struct shape (current/peek token, diagnostics bag threaded
// through); the concrete grammar productions are new, since the teacher
// parses an entirely different surface syntax. The parser opens no
// diagnostics.Bag transactions and never backtracks: expressions take no
// `<...>` type-argument list, so `a<b,c>(d)` is never read as a generic
// call (`a < b` parses as a comparison), and `a[1..2]` parses as a
// subscript whose index is a range expression.
package parser

import (
	"github.com/jade-lang/jadec/internal/ast"
	"github.com/jade-lang/jadec/internal/diagnostics"
	"github.com/jade-lang/jadec/internal/token"
)

// tokenSource is the minimal lexer surface the parser depends on, letting
// tests feed a canned token list without a real Lexer.
type tokenSource interface {
	Next() token.Token
	LookAhead(k int, skipNewlines bool) []token.Token
}

// precedence levels, low to high (spec.md §4.3's operator table).
const (
	precNone = iota
	precAssign
	precRange
	precOr
	precAnd
	precEquality
	precRelational
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrec = map[token.Kind]int{
	token.OR: precOr, token.AND: precAnd, token.NULL_COALESCE: precOr,
	token.EQ: precEquality, token.NOT_EQ: precEquality,
	token.LT: precRelational, token.GT: precRelational, token.LTE: precRelational, token.GTE: precRelational,
	token.IS: precRelational, token.AS: precRelational,
	token.PIPE: precBitOr, token.CARET: precBitXor, token.AMPERSAND: precBitAnd,
	token.LSHIFT: precShift, token.RSHIFT: precShift,
	token.PLUS: precAdditive, token.MINUS: precAdditive,
	token.ASTERISK: precMultiplicative, token.SLASH: precMultiplicative, token.PERCENT: precMultiplicative,
	token.POWER: precMultiplicative,
	token.DOT_DOT: precRange, token.DOT_DOT_EQ: precRange,
}

var rightAssoc = map[token.Kind]bool{token.POWER: true}

var assignOps = map[token.Kind]bool{
	token.ASSIGN: true, token.PLUS_ASSIGN: true, token.MINUS_ASSIGN: true,
	token.ASTERISK_ASSIGN: true, token.SLASH_ASSIGN: true, token.PERCENT_ASSIGN: true,
	token.POWER_ASSIGN: true,
}

// Parser turns a token stream into an *ast.File.
type Parser struct {
	lex    tokenSource
	bag    *diagnostics.Bag
	fileID int
	path   string

	cur  token.Token
	peek token.Token

	// allowTrailingClosure is false while parsing an if/while/for condition,
	// so that condition's own trailing `{` is not mistaken for a trailing
	// closure argument to the last call in the condition.
	allowTrailingClosure bool
}

// New constructs a Parser reading from lex, reporting to bag.
func New(lex tokenSource, bag *diagnostics.Bag, fileID int, path string) *Parser {
	p := &Parser{lex: lex, bag: bag, fileID: fileID, path: path, allowTrailingClosure: true}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
	for p.peek.Kind == token.NEWLINE {
		p.peek = p.lex.Next()
	}
}

func (p *Parser) at(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) atPeek(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k token.Kind, hint string) token.Token {
	if !p.at(k) {
		p.bag.Add(diagnostics.NewError(diagnostics.ErrP004UnexpectedToken, p.cur, hint))
	}
	t := p.cur
	p.advance()
	return t
}

func (p *Parser) rangeFrom(begin token.Position) token.Range {
	return token.Range{Begin: begin, End: p.cur.Begin}
}

func header(kind ast.Kind, begin, end token.Position) ast.Header {
	return ast.Header{NodeKind: kind, Begin: begin, End: end}
}

// ParseFile parses one complete source file.
func (p *Parser) ParseFile() *ast.File {
	begin := p.cur.Begin
	f := &ast.File{Path: p.path}
	if p.at(token.PACKAGE) {
		f.Package = p.parsePackageSpec()
	}
	for p.at(token.IMPORT) {
		f.Imports = append(f.Imports, p.parseImportSpec())
	}
	for !p.at(token.EOF) {
		d := p.parseDecl()
		if d != nil {
			f.Decls = append(f.Decls, d)
		}
	}
	f.Header = header(ast.KindFile, begin, p.cur.End)
	return f
}

func (p *Parser) parseIdent() *ast.Identifier {
	t := p.cur
	name := t.Lexeme
	if !p.at(token.IDENT) {
		p.bag.Add(diagnostics.NewError(diagnostics.ErrP004UnexpectedToken, p.cur, "expected identifier"))
	} else {
		p.advance()
	}
	return &ast.Identifier{Header: header(ast.KindInvalid, t.Begin, t.End), Token: t, Name: name}
}

func (p *Parser) parsePackageSpec() *ast.PackageSpec {
	begin := p.cur.Begin
	p.advance() // 'package'
	name := p.parseIdent()
	spec := &ast.PackageSpec{Name: name}
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			if p.at(token.ASTERISK) {
				spec.ExportAll = true
				p.advance()
			} else {
				spec.Exports = append(spec.Exports, &ast.ExportSpec{Symbol: p.parseIdent()})
			}
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN, "expected ')' closing package export list")
	}
	spec.Header = header(ast.KindPackageSpec, begin, p.cur.Begin)
	return spec
}

func (p *Parser) parseImportSpec() *ast.ImportSpec {
	begin := p.cur.Begin
	p.advance() // 'import'
	path := p.cur.Literal
	if p.at(token.STRING) {
		p.advance()
	} else {
		path = p.parseIdent().Name
	}
	spec := &ast.ImportSpec{Path: path}
	if p.at(token.AS) {
		p.advance()
		spec.Alias = p.parseIdent()
	}
	spec.Header = header(ast.KindImportSpec, begin, p.cur.Begin)
	return spec
}

// parseDecl dispatches on the current token to one top-level declaration
// production. Recovery: an unrecognized leading token is reported and
// skipped, so one malformed declaration does not abort the whole file
// (spec.md §4.3's error-recovery requirement).
func (p *Parser) parseDecl() ast.Declaration {
	switch p.cur.Kind {
	case token.FUNC:
		return p.parseFuncDecl()
	case token.VAR, token.LET, token.CONST:
		return p.parseVarDecl()
	case token.CLASS:
		return p.parseClassDecl()
	case token.STRUCT:
		return p.parseStructDecl()
	case token.INTERFACE:
		return p.parseInterfaceDecl()
	case token.ENUM:
		return p.parseEnumDecl()
	case token.EXTEND:
		return p.parseExtendDecl()
	case token.MAIN:
		return p.parseMainDecl()
	case token.MACRO:
		return p.parseMacroDecl()
	case token.PUBLIC, token.PRIVATE, token.PROTECTED, token.STATIC, token.OPEN, token.ABSTRACT, token.OVERRIDE:
		attrs, _ := p.parseModifiers()
		d := p.parseDecl()
		applyAttrs(d, attrs)
		return d
	case token.AT:
		p.parseAnnotation()
		return p.parseDecl()
	default:
		begin := p.cur.Begin
		p.bag.Add(diagnostics.NewError(diagnostics.ErrP004UnexpectedToken, p.cur, "expected a declaration"))
		p.advance()
		return &ast.BuiltInDecl{Header: header(ast.KindBuiltInDecl, begin, p.cur.Begin), Name: "<invalid>"}
	}
}

func applyAttrs(d ast.Declaration, attrs ast.Attr) {
	type attrHolder interface{ Attributes() *ast.Attr }
	if h, ok := d.(attrHolder); ok {
		*h.Attributes() |= attrs
	}
}

func (p *Parser) parseModifiers() (ast.Attr, bool) {
	var attrs ast.Attr
	for {
		switch p.cur.Kind {
		case token.PUBLIC:
			attrs.Set(ast.AttrPublic)
		case token.PRIVATE:
			attrs.Set(ast.AttrPrivate)
		case token.STATIC:
			attrs.Set(ast.AttrStatic)
		case token.OPEN:
			attrs.Set(ast.AttrOpen)
		case token.ABSTRACT:
			attrs.Set(ast.AttrAbstract)
		case token.PROTECTED:
			attrs.Set(ast.AttrPrivate)
		case token.OVERRIDE:
			// no dedicated Attr bit; consumed so it doesn't loop parseDecl.
		default:
			return attrs, true
		}
		p.advance()
	}
}

// parseAnnotation consumes `@Name(...)` without yet modeling annotation
// declarations as a first-class node; spec.md's annotation-target copying
// (§4.13 step 4) operates on the checker's decl table, not raw syntax.
func (p *Parser) parseAnnotation() {
	p.advance() // '@'
	p.parseIdent()
	if p.at(token.LPAREN) {
		depth := 0
		for {
			if p.at(token.LPAREN) {
				depth++
			} else if p.at(token.RPAREN) {
				depth--
			}
			p.advance()
			if depth == 0 || p.at(token.EOF) {
				break
			}
		}
	}
}

func (p *Parser) parseGeneric() *ast.Generic {
	if !p.at(token.LT) {
		return nil
	}
	begin := p.cur.Begin
	p.advance()
	g := &ast.Generic{}
	for !p.at(token.GT) && !p.at(token.EOF) {
		name := p.parseIdent()
		g.Params = append(g.Params, &ast.GenericParamDecl{Name: name, Header: header(ast.KindGenericParamDecl, name.Begin, name.End)})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.GT, "expected '>' closing generic parameter list")
	if p.at(token.WHERE) {
		p.advance()
		for {
			pb := p.cur.Begin
			param := p.parseIdent()
			p.expect(token.COLON_MINUS, "expected ':-' in where-clause")
			bound := p.parseTypeAnnotation()
			g.Constraints = append(g.Constraints, &ast.GenericConstraint{
				Header: header(ast.KindGenericConstraint, pb, p.cur.Begin), Param: param, Bound: bound,
			})
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	g.Header = header(ast.KindGeneric, begin, p.cur.Begin)
	return g
}

func (p *Parser) parseFuncParamList() *ast.FuncParamList {
	begin := p.cur.Begin
	p.expect(token.LPAREN, "expected '(' starting parameter list")
	l := &ast.FuncParamList{}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		pb := p.cur.Begin
		variadic := false
		if p.at(token.ELLIPSIS) {
			variadic = true
			p.advance()
		}
		name := p.parseIdent()
		var ta ast.TypeAnnotation
		if p.at(token.COLON) {
			p.advance()
			ta = p.parseTypeAnnotation()
		}
		var def ast.Expression
		if p.at(token.ASSIGN) {
			p.advance()
			def = p.parseExpr(precAssign)
		}
		l.Params = append(l.Params, &ast.FuncParam{
			Header: header(ast.KindFuncParam, pb, p.cur.Begin), Name: name,
			TypeAnnotation: ta, Default: def, IsVariadic: variadic,
		})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN, "expected ')' closing parameter list")
	l.Header = header(ast.KindFuncParamList, begin, p.cur.Begin)
	return l
}

func (p *Parser) parseFuncBody() *ast.FuncBody {
	begin := p.cur.Begin
	p.expect(token.LBRACE, "expected '{' starting a function body")
	b := &ast.FuncBody{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	p.expect(token.RBRACE, "expected '}' closing a function body")
	b.Header = header(ast.KindFuncBody, begin, p.cur.Begin)
	return b
}

// parseStmt parses one statement-position node: either a local declaration
// or an expression (spec.md's FuncBody holds a mixed Node list).
func (p *Parser) parseStmt() ast.Node {
	switch p.cur.Kind {
	case token.VAR, token.LET, token.CONST:
		return p.parseVarDecl()
	case token.FUNC:
		return p.parseFuncDecl()
	default:
		return p.parseExpr(precAssign)
	}
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	begin := p.cur.Begin
	p.advance() // 'func'
	name := p.parseIdent()
	gen := p.parseGeneric()
	params := p.parseFuncParamList()
	var ret ast.TypeAnnotation
	if p.at(token.ARROW) || p.at(token.COLON) {
		p.advance()
		ret = p.parseTypeAnnotation()
	}
	var body *ast.FuncBody
	if p.at(token.LBRACE) {
		body = p.parseFuncBody()
	}
	return &ast.FuncDecl{
		Header: header(ast.KindFuncDecl, begin, p.cur.Begin),
		Name:   name, Generic: gen, Params: params, ReturnType: ret, Body: body,
	}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	begin := p.cur.Begin
	isConst := p.at(token.CONST)
	p.advance() // var/let/const
	name := p.parseIdent()
	var ta ast.TypeAnnotation
	if p.at(token.COLON) {
		p.advance()
		ta = p.parseTypeAnnotation()
	}
	var val ast.Expression
	if p.at(token.ASSIGN) || p.at(token.COLON_MINUS) {
		p.advance()
		val = p.parseExpr(precAssign)
	}
	return &ast.VarDecl{
		Header: header(ast.KindVarDecl, begin, p.cur.Begin),
		Name:   name, TypeAnnotation: ta, Value: val, IsConst: isConst,
	}
}

func (p *Parser) parseMembers() []ast.Declaration {
	p.expect(token.LBRACE, "expected '{' starting a body")
	var out []ast.Declaration
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		out = append(out, p.parseDecl())
	}
	p.expect(token.RBRACE, "expected '}' closing a body")
	return out
}

func (p *Parser) parseClassDecl() *ast.ClassDecl {
	begin := p.cur.Begin
	p.advance() // 'class'
	name := p.parseIdent()
	gen := p.parseGeneric()
	d := &ast.ClassDecl{Name: name, Generic: gen}
	if p.at(token.COLON_MINUS) {
		p.advance()
		d.SuperClass = p.parseTypeAnnotation()
		for p.at(token.AMPERSAND) {
			p.advance()
			d.Interfaces = append(d.Interfaces, p.parseTypeAnnotation())
		}
	}
	d.Members = p.parseMembers()
	d.Header = header(ast.KindClassDecl, begin, p.cur.Begin)
	return d
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	begin := p.cur.Begin
	p.advance() // 'struct'
	name := p.parseIdent()
	gen := p.parseGeneric()
	d := &ast.StructDecl{Name: name, Generic: gen, Members: p.parseMembers()}
	d.Header = header(ast.KindStructDecl, begin, p.cur.Begin)
	return d
}

func (p *Parser) parseInterfaceDecl() *ast.InterfaceDecl {
	begin := p.cur.Begin
	p.advance() // 'interface'
	name := p.parseIdent()
	gen := p.parseGeneric()
	d := &ast.InterfaceDecl{Name: name, Generic: gen}
	if p.at(token.COLON_MINUS) {
		p.advance()
		d.Supers = append(d.Supers, p.parseTypeAnnotation())
		for p.at(token.AMPERSAND) {
			p.advance()
			d.Supers = append(d.Supers, p.parseTypeAnnotation())
		}
	}
	d.Members = p.parseMembers()
	d.Header = header(ast.KindInterfaceDecl, begin, p.cur.Begin)
	return d
}

func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	begin := p.cur.Begin
	p.advance() // 'enum'
	name := p.parseIdent()
	gen := p.parseGeneric()
	d := &ast.EnumDecl{Name: name, Generic: gen}
	p.expect(token.LBRACE, "expected '{' starting an enum body")
	for p.at(token.PIPE) || p.at(token.IDENT) {
		if p.at(token.PIPE) {
			p.advance()
		}
		cname := p.parseIdent()
		ctor := &ast.EnumConstructor{Name: cname}
		if p.at(token.LPAREN) {
			p.advance()
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				ctor.Params = append(ctor.Params, p.parseTypeAnnotation())
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN, "expected ')' closing an enum constructor's payload")
		}
		ctor.Header = header(ast.KindEnumDecl, cname.Begin, p.cur.Begin)
		d.Constructors = append(d.Constructors, ctor)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		d.Members = append(d.Members, p.parseDecl())
	}
	p.expect(token.RBRACE, "expected '}' closing an enum body")
	d.Header = header(ast.KindEnumDecl, begin, p.cur.Begin)
	return d
}

func (p *Parser) parseExtendDecl() *ast.ExtendDecl {
	begin := p.cur.Begin
	p.advance() // 'extend'
	gen := p.parseGeneric()
	target := p.parseTypeAnnotation()
	d := &ast.ExtendDecl{Generic: gen, Target: target}
	if p.at(token.COLON_MINUS) {
		p.advance()
		d.Interfaces = append(d.Interfaces, p.parseTypeAnnotation())
		for p.at(token.AMPERSAND) {
			p.advance()
			d.Interfaces = append(d.Interfaces, p.parseTypeAnnotation())
		}
	}
	d.Members = p.parseMembers()
	d.Header = header(ast.KindExtendDecl, begin, p.cur.Begin)
	return d
}

func (p *Parser) parseMainDecl() *ast.MainDecl {
	begin := p.cur.Begin
	p.advance() // 'main'
	params := p.parseFuncParamList()
	body := p.parseFuncBody()
	return &ast.MainDecl{Header: header(ast.KindMainDecl, begin, p.cur.Begin), Params: params, Body: body}
}

func (p *Parser) parseMacroDecl() *ast.MacroDecl {
	begin := p.cur.Begin
	p.advance() // 'macro'
	name := p.parseIdent()
	body := p.parseFuncBody()
	return &ast.MacroDecl{Header: header(ast.KindMacroDecl, begin, p.cur.Begin), Name: name, Body: body}
}

// --- type annotations ---

func (p *Parser) parseTypeAnnotation() ast.TypeAnnotation {
	begin := p.cur.Begin
	var base ast.TypeAnnotation
	switch p.cur.Kind {
	case token.THIS:
		p.advance()
		base = &ast.ThisType{Header: header(ast.KindThisType, begin, p.cur.Begin)}
	case token.LPAREN:
		base = p.parseParenOrTupleOrFuncType()
	case token.IDENT:
		base = p.parseRefOrQualifiedType()
	default:
		p.bag.Add(diagnostics.NewError(diagnostics.ErrP004UnexpectedToken, p.cur, "expected a type"))
		p.advance()
		base = &ast.InvalidType{Header: header(ast.KindInvalidType, begin, p.cur.Begin), Text: "<invalid>"}
	}
	for p.at(token.QUESTION) {
		p.advance()
		base = &ast.OptionType{Header: header(ast.KindOptionType, begin, p.cur.Begin), Elem: base}
	}
	return base
}

func (p *Parser) parseRefOrQualifiedType() ast.TypeAnnotation {
	begin := p.cur.Begin
	name := p.parseIdent()
	if p.at(token.DOT) {
		p.advance()
		member := p.parseIdent()
		args := p.parseOptionalTypeArgs()
		return &ast.QualifiedType{Header: header(ast.KindQualifiedType, begin, p.cur.Begin), Qualifier: name, Name: member, TypeArgs: args}
	}
	args := p.parseOptionalTypeArgs()
	return &ast.RefType{Header: header(ast.KindRefType, begin, p.cur.Begin), Name: name, TypeArgs: args}
}

func (p *Parser) parseOptionalTypeArgs() []ast.TypeAnnotation {
	if !p.at(token.LT) {
		return nil
	}
	p.advance()
	var args []ast.TypeAnnotation
	for !p.at(token.GT) && !p.at(token.EOF) {
		args = append(args, p.parseTypeAnnotation())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.GT, "expected '>' closing a type argument list")
	return args
}

func (p *Parser) parseParenOrTupleOrFuncType() ast.TypeAnnotation {
	begin := p.cur.Begin
	p.advance() // '('
	var elems []ast.TypeAnnotation
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		elems = append(elems, p.parseTypeAnnotation())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN, "expected ')' closing a type group")
	if p.at(token.ARROW) {
		p.advance()
		result := p.parseTypeAnnotation()
		return &ast.FuncType{Header: header(ast.KindFuncType, begin, p.cur.Begin), Params: elems, Result: result}
	}
	if len(elems) == 1 {
		return &ast.ParenType{Header: header(ast.KindParenType, begin, p.cur.Begin), Inner: elems[0]}
	}
	return &ast.TupleType{Header: header(ast.KindTupleType, begin, p.cur.Begin), Elems: elems}
}

// --- expressions: Pratt parser ---

func (p *Parser) parseExpr(minPrec int) ast.Expression {
	left := p.parseUnary()
	for {
		op := p.cur.Kind
		if assignOps[op] && minPrec <= precAssign {
			begin := left.Range().Begin
			p.advance()
			right := p.parseExpr(precAssign)
			left = &ast.AssignExpr{Header: header(ast.KindAssignExpr, begin, p.cur.Begin), Op: op, Target: left, Value: right}
			continue
		}
		prec, ok := binPrec[op]
		if !ok || prec < minPrec {
			return left
		}
		begin := left.Range().Begin
		p.advance()
		if op == token.IS {
			target := p.parseTypeAnnotation()
			left = &ast.IsExpr{Header: header(ast.KindIsExpr, begin, p.cur.Begin), Value: left, Target: target}
			continue
		}
		if op == token.AS {
			target := p.parseTypeAnnotation()
			left = &ast.AsExpr{Header: header(ast.KindAsExpr, begin, p.cur.Begin), Value: left, Target: target}
			continue
		}
		if op == token.DOT_DOT || op == token.DOT_DOT_EQ {
			right := p.parseExpr(prec + 1)
			left = &ast.RangeExpr{Header: header(ast.KindRangeExpr, begin, p.cur.Begin), Start: left, End: right, Inclusive: op == token.DOT_DOT_EQ}
			continue
		}
		nextMin := prec + 1
		if rightAssoc[op] {
			nextMin = prec
		}
		right := p.parseExpr(nextMin)
		left = &ast.BinaryExpr{Header: header(ast.KindBinaryExpr, begin, p.cur.Begin), Op: op, Left: left, Right: right}
	}
}

var unaryOps = map[token.Kind]bool{token.MINUS: true, token.BANG: true, token.TILDE: true, token.AMPERSAND: true}

func (p *Parser) parseUnary() ast.Expression {
	begin := p.cur.Begin
	if unaryOps[p.cur.Kind] {
		op := p.cur.Kind
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Header: header(ast.KindUnaryExpr, begin, p.cur.Begin), Op: op, Operand: operand}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix handles call/member/subscript/optional-chain/trailing-closure chains,
// left to right, at precPostfix.
func (p *Parser) parsePostfix(e ast.Expression) ast.Expression {
	for {
		begin := e.Range().Begin
		switch p.cur.Kind {
		case token.DOT:
			p.advance()
			member := p.parseIdent()
			e = &ast.MemberAccess{Header: header(ast.KindMemberAccess, begin, p.cur.Begin), Target: e, Member: member}
		case token.OPTIONAL_CHAIN:
			p.advance()
			member := p.parseIdent()
			access := ast.Expression(&ast.MemberAccess{Header: header(ast.KindMemberAccess, begin, p.cur.Begin), Target: e, Member: member})
			e = &ast.OptionalChainExpr{Header: header(ast.KindOptionalChainExpr, begin, p.cur.Begin), Target: e, Access: access}
		case token.OPTIONAL_INDEX:
			p.advance()
			idx := p.parseExpr(precAssign)
			p.expect(token.RBRACKET, "expected ']' closing an optional subscript")
			access := ast.Expression(&ast.SubscriptExpr{Header: header(ast.KindSubscriptExpr, begin, p.cur.Begin), Target: e, Index: idx})
			e = &ast.OptionalChainExpr{Header: header(ast.KindOptionalChainExpr, begin, p.cur.Begin), Target: e, Access: access}
		case token.OPTIONAL_CALL:
			access := p.parseCallArgs(e)
			e = &ast.OptionalChainExpr{Header: header(ast.KindOptionalChainExpr, begin, p.cur.Begin), Target: e, Access: access}
		case token.LPAREN:
			e = p.parseCallArgs(e)
		case token.LBRACKET:
			p.advance()
			idx := p.parseExpr(precAssign)
			p.expect(token.RBRACKET, "expected ']' closing a subscript")
			e = &ast.SubscriptExpr{Header: header(ast.KindSubscriptExpr, begin, p.cur.Begin), Target: e, Index: idx}
		case token.PLUS_ASSIGN, token.MINUS_ASSIGN:
			return e // handled by compound-assign in parseExpr
		case token.LBRACE:
			if !p.allowTrailingClosure {
				return e
			}
			lambda := p.parseLambda()
			e = &ast.TrailingClosureExpr{Header: header(ast.KindTrailingClosureExpr, begin, p.cur.Begin), Callee: e, Lambda: lambda}
		default:
			return e
		}
	}
}

func (p *Parser) parseCallArgs(callee ast.Expression) ast.Expression {
	begin := callee.Range().Begin
	p.advance() // '('
	var args []*ast.FuncArg
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		ab := p.cur.Begin
		var name *ast.Identifier
		if p.at(token.IDENT) && p.atPeek(token.COLON) {
			name = p.parseIdent()
			p.advance() // ':'
		}
		val := p.parseExpr(precAssign)
		args = append(args, &ast.FuncArg{Header: header(ast.KindFuncArg, ab, p.cur.Begin), Name: name, Value: val})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN, "expected ')' closing a call's argument list")
	return &ast.CallExpr{Header: header(ast.KindCallExpr, begin, p.cur.Begin), Callee: callee, Args: args}
}

func (p *Parser) parseLambda() *ast.LambdaExpr {
	begin := p.cur.Begin
	p.expect(token.LBRACE, "expected '{' starting a lambda")
	var params *ast.FuncParamList
	// A lambda's parameter list is distinguished from its body by a trailing
	// `=>` lookahead: `{ x, y => ... }`. The lookahead only peeks (via the
	// lexer's own LookAhead buffer, never Next()), so no rewind is needed:
	// parsing the params for real afterwards replays exactly what was peeked.
	if (p.at(token.IDENT) || p.at(token.RBRACE)) && p.scanForArrow() {
		pl := &ast.FuncParamList{}
		for !p.at(token.ARROW) && !p.at(token.EOF) {
			pb := p.cur.Begin
			name := p.parseIdent()
			pl.Params = append(pl.Params, &ast.FuncParam{Header: header(ast.KindFuncParam, pb, p.cur.Begin), Name: name})
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.ARROW, "expected '=>' after lambda parameters")
		params = pl
	}
	b := &ast.FuncBody{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	p.expect(token.RBRACE, "expected '}' closing a lambda")
	b.Header = header(ast.KindFuncBody, begin, p.cur.Begin)
	return &ast.LambdaExpr{Header: header(ast.KindLambdaExpr, begin, p.cur.Begin), Params: params, Body: b}
}

// scanForArrow looks for a top-level `=>` before the matching `}` using only
// the lexer's non-consuming LookAhead, so p.cur/p.peek (and the underlying
// lexer's position) are left exactly as they were.
func (p *Parser) scanForArrow() bool {
	depth := 0
	step := func(k token.Kind) (done, isArrow bool) {
		switch k {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			if depth == 0 {
				return true, false
			}
			depth--
		case token.ARROW:
			if depth == 0 {
				return true, true
			}
		case token.EOF:
			return true, false
		}
		return false, false
	}
	if done, isArrow := step(p.cur.Kind); done {
		return isArrow
	}
	if done, isArrow := step(p.peek.Kind); done {
		return isArrow
	}
	for n := 1; ; n++ {
		la := p.lex.LookAhead(n, true)
		if done, isArrow := step(la[n-1].Kind); done {
			return isArrow
		}
	}
}

// allowTrailingClosure is disabled while parsing a control-flow condition
// (`if cond { ... }`) so the opening brace of the `then` block is not
// mistaken for a trailing closure argument.
func (p *Parser) withNoTrailingClosure(fn func() ast.Expression) ast.Expression {
	save := p.allowTrailingClosure
	p.allowTrailingClosure = false
	e := fn()
	p.allowTrailingClosure = save
	return e
}

func (p *Parser) parsePrimary() ast.Expression {
	begin := p.cur.Begin
	switch p.cur.Kind {
	case token.INT:
		t := p.cur
		p.advance()
		return &ast.LitConstExpr{Header: header(ast.KindLitConstExpr, begin, p.cur.Begin), Kind_: ast.LitInt, Token: t, Text: t.Literal}
	case token.FLOAT:
		t := p.cur
		p.advance()
		return &ast.LitConstExpr{Header: header(ast.KindLitConstExpr, begin, p.cur.Begin), Kind_: ast.LitFloat, Token: t, Text: t.Literal}
	case token.STRING:
		t := p.cur
		p.advance()
		return &ast.LitConstExpr{Header: header(ast.KindLitConstExpr, begin, p.cur.Begin), Kind_: ast.LitString, Token: t, Text: t.Literal}
	case token.TRUE, token.FALSE:
		t := p.cur
		p.advance()
		return &ast.LitConstExpr{Header: header(ast.KindLitConstExpr, begin, p.cur.Begin), Kind_: ast.LitBool, Token: t, Text: t.Literal}
	case token.RUNE:
		t := p.cur
		p.advance()
		return &ast.LitConstExpr{Header: header(ast.KindLitConstExpr, begin, p.cur.Begin), Kind_: ast.LitRune, Token: t, Text: t.Literal}
	case token.WILDCARD:
		p.advance()
		return &ast.WildcardExpr{Header: header(ast.KindWildcardExpr, begin, p.cur.Begin)}
	case token.THIS:
		t := p.cur
		p.advance()
		return &ast.RefExpr{Header: header(ast.KindRefExpr, begin, p.cur.Begin), Name: &ast.Identifier{Token: t, Name: "this"}}
	case token.IDENT:
		name := p.parseIdent()
		return &ast.RefExpr{Header: header(ast.KindRefExpr, begin, p.cur.Begin), Name: name}
	case token.LPAREN:
		return p.parseParenOrTuple()
	case token.LBRACKET:
		return p.parseArrayLit()
	case token.LBRACE:
		return p.parseLambda()
	case token.IF:
		return p.parseIf()
	case token.MATCH:
		return p.parseMatch()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseForIn()
	case token.RETURN:
		p.advance()
		var v ast.Expression
		if !p.at(token.RBRACE) && !p.at(token.NEWLINE) && !p.at(token.EOF) {
			v = p.parseExpr(precAssign)
		}
		return &ast.ReturnExpr{Header: header(ast.KindReturnExpr, begin, p.cur.Begin), Value: v}
	case token.BREAK, token.CONTINUE:
		op := p.cur.Kind
		p.advance()
		return &ast.JumpExpr{Header: header(ast.KindJumpExpr, begin, p.cur.Begin), Op: op}
	case token.THROW:
		p.advance()
		v := p.parseExpr(precAssign)
		return &ast.ThrowExpr{Header: header(ast.KindThrowExpr, begin, p.cur.Begin), Value: v}
	case token.TRY:
		return p.parseTry()
	case token.SPAWN:
		p.advance()
		body := p.parseExpr(precAssign)
		return &ast.SpawnExpr{Header: header(ast.KindSpawnExpr, begin, p.cur.Begin), Body: body}
	case token.SYNCHRONIZED:
		p.advance()
		p.expect(token.LPAREN, "expected '(' after synchronized")
		lock := p.parseExpr(precAssign)
		p.expect(token.RPAREN, "expected ')' closing synchronized's lock expression")
		body := p.parseFuncBody()
		return &ast.SynchronizedExpr{Header: header(ast.KindSynchronizedExpr, begin, p.cur.Begin), Lock: lock, Body: body}
	case token.LET:
		p.advance()
		pat := p.parsePattern()
		p.expect(token.ASSIGN, "expected '=' in a let-pattern condition")
		val := p.parseExpr(precAssign)
		return &ast.LetPatternDestructor{Header: header(ast.KindLetPatternDestructor, begin, p.cur.Begin), Pattern: pat, Value: val}
	case token.QUOTE:
		return p.parseQuote()
	default:
		p.bag.Add(diagnostics.NewError(diagnostics.ErrP004UnexpectedToken, p.cur, "expected an expression"))
		p.advance()
		return &ast.InvalidExpr{Header: header(ast.KindInvalidExpr, begin, p.cur.Begin), Text: "<invalid>"}
	}
}

// parseParenOrTuple disambiguates `(expr)` from `(a, b, c)` without a
// diagnostics transaction: it parses the first expression, and a comma
// after it forces the tuple reading.
func (p *Parser) parseParenOrTuple() ast.Expression {
	begin := p.cur.Begin
	p.advance() // '('
	if p.at(token.RPAREN) {
		p.advance()
		return &ast.TupleLit{Header: header(ast.KindTupleLit, begin, p.cur.Begin)}
	}
	first := p.parseExpr(precAssign)
	if p.at(token.COMMA) {
		elems := []ast.Expression{first}
		for p.at(token.COMMA) {
			p.advance()
			if p.at(token.RPAREN) {
				break
			}
			elems = append(elems, p.parseExpr(precAssign))
		}
		p.expect(token.RPAREN, "expected ')' closing a tuple literal")
		return &ast.TupleLit{Header: header(ast.KindTupleLit, begin, p.cur.Begin), Elems: elems}
	}
	p.expect(token.RPAREN, "expected ')' closing a parenthesized expression")
	return &ast.ParenExpr{Header: header(ast.KindParenExpr, begin, p.cur.Begin), Inner: first}
}

func (p *Parser) parseArrayLit() ast.Expression {
	begin := p.cur.Begin
	p.advance() // '['
	var elems []ast.Expression
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		elems = append(elems, p.parseExpr(precAssign))
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACKET, "expected ']' closing an array literal")
	return &ast.ArrayLit{Header: header(ast.KindArrayLit, begin, p.cur.Begin), Elems: elems}
}

func (p *Parser) parseIf() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'if'
	var letPattern ast.Pattern
	if p.at(token.LET) {
		p.advance()
		letPattern = p.parsePattern()
		p.expect(token.ASSIGN, "expected '=' in an if-let condition")
	}
	cond := p.withNoTrailingClosure(func() ast.Expression { return p.parseExpr(precAssign) })
	then := p.parseFuncBody()
	var els ast.Node
	if p.at(token.ELSE) {
		p.advance()
		if p.at(token.IF) {
			els = p.parseIf()
		} else {
			els = p.parseFuncBody()
		}
	}
	return &ast.IfExpr{Header: header(ast.KindIfExpr, begin, p.cur.Begin), LetPattern: letPattern, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseMatch() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'match'
	p.expect(token.LPAREN, "expected '(' after match")
	sel := p.parseExpr(precAssign)
	p.expect(token.RPAREN, "expected ')' closing match's selector")
	p.expect(token.LBRACE, "expected '{' starting a match body")
	m := &ast.MatchExpr{Selector: sel}
	for p.at(token.CASE) {
		cb := p.cur.Begin
		p.advance()
		pat := p.parsePattern()
		var guard ast.Expression
		if p.at(token.WHERE) {
			p.advance()
			guard = p.parseExpr(precAssign)
		}
		p.expect(token.ARROW, "expected '=>' in a match case")
		body := &ast.FuncBody{}
		bb := p.cur.Begin
		for !p.at(token.CASE) && !p.at(token.RBRACE) && !p.at(token.EOF) {
			body.Stmts = append(body.Stmts, p.parseStmt())
		}
		body.Header = header(ast.KindFuncBody, bb, p.cur.Begin)
		m.Cases = append(m.Cases, &ast.MatchCase{Header: header(ast.KindFuncBody, cb, p.cur.Begin), Pattern: pat, Guard: guard, Body: body})
	}
	p.expect(token.RBRACE, "expected '}' closing a match body")
	m.Header = header(ast.KindMatchExpr, begin, p.cur.Begin)
	return m
}

func (p *Parser) parseWhile() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'while'
	var letPattern ast.Pattern
	if p.at(token.LET) {
		p.advance()
		letPattern = p.parsePattern()
		p.expect(token.ASSIGN, "expected '=' in a while-let condition")
	}
	cond := p.withNoTrailingClosure(func() ast.Expression { return p.parseExpr(precAssign) })
	body := p.parseFuncBody()
	return &ast.WhileExpr{Header: header(ast.KindWhileExpr, begin, p.cur.Begin), LetPattern: letPattern, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'do'
	body := p.parseFuncBody()
	p.expect(token.WHILE, "expected 'while' closing a do-while loop")
	cond := p.parseExpr(precAssign)
	return &ast.DoWhileExpr{Header: header(ast.KindDoWhileExpr, begin, p.cur.Begin), Body: body, Cond: cond}
}

func (p *Parser) parseForIn() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'for'
	pat := p.parsePattern()
	p.expect(token.IN, "expected 'in' in a for-loop")
	iter := p.withNoTrailingClosure(func() ast.Expression { return p.parseExpr(precAssign) })
	body := p.parseFuncBody()
	return &ast.ForInExpr{Header: header(ast.KindForInExpr, begin, p.cur.Begin), Pattern: pat, Iterable: iter, Body: body}
}

func (p *Parser) parseTry() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'try'
	body := p.parseFuncBody()
	t := &ast.TryExpr{Body: body}
	for p.at(token.CATCH) {
		cb := p.cur.Begin
		p.advance()
		p.expect(token.LPAREN, "expected '(' after catch")
		pat := p.parsePattern()
		p.expect(token.RPAREN, "expected ')' closing catch's pattern")
		cbody := p.parseFuncBody()
		t.Catches = append(t.Catches, &ast.TryCatch{Header: header(ast.KindFuncBody, cb, p.cur.Begin), Pattern: pat, Body: cbody})
	}
	if p.at(token.FINALLY) {
		p.advance()
		t.Finally = p.parseFuncBody()
	}
	t.Header = header(ast.KindTryExpr, begin, p.cur.Begin)
	return t
}

func (p *Parser) parseQuote() ast.Expression {
	begin := p.cur.Begin
	p.advance() // 'quote'
	p.expect(token.LBRACE, "expected '{' starting a quote block")
	var toks []token.Token
	depth := 1
	for depth > 0 && !p.at(token.EOF) {
		if p.at(token.LBRACE) {
			depth++
		} else if p.at(token.RBRACE) {
			depth--
			if depth == 0 {
				break
			}
		}
		toks = append(toks, p.cur)
		p.advance()
	}
	p.expect(token.RBRACE, "expected '}' closing a quote block")
	return &ast.QuoteExpr{Header: header(ast.KindQuoteExpr, begin, p.cur.Begin), Tokens: toks}
}

// --- patterns ---

func (p *Parser) parsePattern() ast.Pattern {
	begin := p.cur.Begin
	switch p.cur.Kind {
	case token.WILDCARD:
		p.advance()
		return &ast.WildcardPattern{Header: header(ast.KindWildcardPattern, begin, p.cur.Begin)}
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE, token.RUNE:
		v := p.parsePrimary()
		return &ast.ConstPattern{Header: header(ast.KindConstPattern, begin, p.cur.Begin), Value: v}
	case token.LPAREN:
		p.advance()
		var elems []ast.Pattern
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			elems = append(elems, p.parsePattern())
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN, "expected ')' closing a tuple pattern")
		return &ast.TuplePattern{Header: header(ast.KindTuplePattern, begin, p.cur.Begin), Elems: elems}
	case token.IDENT:
		name := p.parseIdent()
		if p.at(token.LPAREN) {
			p.advance()
			var payload []ast.Pattern
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				payload = append(payload, p.parsePattern())
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN, "expected ')' closing an enum pattern's payload")
			return &ast.EnumPattern{Header: header(ast.KindEnumPattern, begin, p.cur.Begin), Constructor: name, Payload: payload}
		}
		if p.at(token.COLON) {
			p.advance()
			ta := p.parseTypeAnnotation()
			return &ast.TypePattern{Header: header(ast.KindTypePattern, begin, p.cur.Begin), Binding: name, Target: ta}
		}
		return &ast.VarOrEnumPattern{Header: header(ast.KindVarOrEnumPattern, begin, p.cur.Begin), Name: name}
	default:
		p.bag.Add(diagnostics.NewError(diagnostics.ErrP004UnexpectedToken, p.cur, "expected a pattern"))
		p.advance()
		return &ast.WildcardPattern{Header: header(ast.KindWildcardPattern, begin, p.cur.Begin)}
	}
}
