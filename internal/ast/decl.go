package ast

import "github.com/jade-lang/jadec/internal/token"

// Identifier is a bare name reference, shared by declarations and patterns.
type Identifier struct {
	Header
	Token token.Token
	Name  string
}

func (i *Identifier) TokenLiteral() string { return i.Name }
func (i *Identifier) Children() []Node     { return nil }

// Package is the root node owning every file of one compilation unit
// (spec.md §3 "Package").
type Package struct {
	Header
	Name                   string
	Files                  []*File
	InstantiatedDecls      []Declaration // from C7
	SourceImportedDecls    []Declaration
}

func (p *Package) TokenLiteral() string { return p.Name }
func (p *Package) declNode()            {}
func (p *Package) Children() []Node {
	var out []Node
	for _, d := range p.InstantiatedDecls {
		out = append(out, d)
	}
	for _, f := range p.Files {
		out = append(out, f)
	}
	for _, d := range p.SourceImportedDecls {
		out = append(out, d)
	}
	return out
}

// File is the root node of one parsed source file (spec.md §3 "File").
type File struct {
	Header
	Path    string
	Package *PackageSpec
	Imports []*ImportSpec
	Decls   []Declaration
}

func (f *File) TokenLiteral() string { return f.Path }
func (f *File) declNode()            {}
func (f *File) Children() []Node {
	var out []Node
	if f.Package != nil {
		out = append(out, f.Package)
	}
	for _, im := range f.Imports {
		out = append(out, im)
	}
	for _, d := range f.Decls {
		out = append(out, d)
	}
	return out
}

// ExportSpec is one entry of a package declaration's export list.
type ExportSpec struct {
	Token       token.Token
	Symbol      *Identifier
	ModuleName  *Identifier
	Symbols     []*Identifier
	ReexportAll bool
}

func (e *ExportSpec) IsReexport() bool { return e.ModuleName != nil }

// PackageSpec is the `package name (...)` declaration atop a file.
type PackageSpec struct {
	Header
	Name      *Identifier
	Exports   []*ExportSpec
	ExportAll bool
}

func (p *PackageSpec) TokenLiteral() string { return "package" }
func (p *PackageSpec) declNode()            {}
func (p *PackageSpec) Children() []Node {
	if p.Name != nil {
		return []Node{p.Name}
	}
	return nil
}

// ImportSpec is one `import "path" [as alias]` declaration.
type ImportSpec struct {
	Header
	Path      string
	Alias     *Identifier
	Symbols   []*Identifier
	Exclude   []*Identifier
	ImportAll bool
}

func (i *ImportSpec) TokenLiteral() string { return i.Path }
func (i *ImportSpec) declNode()            {}
func (i *ImportSpec) Children() []Node {
	var out []Node
	if i.Alias != nil {
		out = append(out, i.Alias)
	}
	for _, s := range i.Symbols {
		out = append(out, s)
	}
	return out
}

// VarDecl is a `var`/`let`/`const` binding with a simple name.
type VarDecl struct {
	Header
	Name           *Identifier
	TypeAnnotation TypeAnnotation
	Value          Expression
	IsConst        bool
}

func (v *VarDecl) TokenLiteral() string { return v.Name.Name }
func (v *VarDecl) declNode()            {}
func (v *VarDecl) Children() []Node {
	var out []Node
	if v.Desugar != nil {
		return []Node{v.Desugar}
	}
	out = append(out, v.Name)
	if v.TypeAnnotation != nil {
		out = append(out, v.TypeAnnotation)
	}
	if v.Value != nil {
		out = append(out, v.Value)
	}
	return out
}

// VarWithPatternDecl is a destructuring binding: `(a, b) :- pair`.
type VarWithPatternDecl struct {
	Header
	Pattern Pattern
	Value   Expression
	IsConst bool
}

func (v *VarWithPatternDecl) TokenLiteral() string { return "(pattern)" }
func (v *VarWithPatternDecl) declNode()            {}
func (v *VarWithPatternDecl) Children() []Node {
	out := []Node{v.Pattern}
	if v.Value != nil {
		out = append(out, v.Value)
	}
	return out
}

// FuncParam is one function parameter, optionally with a default value.
type FuncParam struct {
	Header
	Name           *Identifier
	TypeAnnotation TypeAnnotation
	Default        Expression
	IsVariadic     bool
}

func (p *FuncParam) TokenLiteral() string { return p.Name.Name }
func (p *FuncParam) declNode()            {}
func (p *FuncParam) Children() []Node {
	var out []Node
	out = append(out, p.Name)
	if p.TypeAnnotation != nil {
		out = append(out, p.TypeAnnotation)
	}
	if p.Default != nil {
		out = append(out, p.Default)
	}
	return out
}

// FuncParamList groups a function's parameters.
type FuncParamList struct {
	Header
	Params []*FuncParam
}

func (l *FuncParamList) TokenLiteral() string { return "(" }
func (l *FuncParamList) declNode()            {}
func (l *FuncParamList) Children() []Node {
	out := make([]Node, 0, len(l.Params))
	for _, p := range l.Params {
		out = append(out, p)
	}
	return out
}

// FuncBody is the braced body of a function-like declaration.
type FuncBody struct {
	Header
	Stmts []Node // Declaration or Expression
}

func (b *FuncBody) TokenLiteral() string { return "{" }
func (b *FuncBody) declNode()            {}
func (b *FuncBody) Children() []Node     { return b.Stmts }

// FuncDecl covers top-level functions, methods, and operators.
type FuncDecl struct {
	Header
	Name        *Identifier
	Generic     *Generic
	Params      *FuncParamList
	ReturnType  TypeAnnotation
	Body        *FuncBody
	IsInline    bool // set by C9
	IsExtern    bool // `is_c`
	HasVarargs  bool
}

func (f *FuncDecl) TokenLiteral() string { return f.Name.Name }
func (f *FuncDecl) declNode()            {}
func (f *FuncDecl) Children() []Node {
	var out []Node
	out = append(out, f.Name)
	if f.Generic != nil {
		out = append(out, f.Generic)
	}
	if f.Params != nil {
		out = append(out, f.Params)
	}
	if f.ReturnType != nil {
		out = append(out, f.ReturnType)
	}
	if f.Body != nil {
		out = append(out, f.Body)
	}
	return out
}

// ClassDecl, InterfaceDecl, StructDecl, EnumDecl share the "classlike" shape.
type ClassDecl struct {
	Header
	Name       *Identifier
	Generic    *Generic
	SuperClass TypeAnnotation
	Interfaces []TypeAnnotation
	Members    []Declaration
	PrimaryCtor *PrimaryCtorDecl
}

func (c *ClassDecl) TokenLiteral() string { return c.Name.Name }
func (c *ClassDecl) declNode()            {}
func (c *ClassDecl) Children() []Node {
	var out []Node
	out = append(out, c.Name)
	if c.Generic != nil {
		out = append(out, c.Generic)
	}
	if c.SuperClass != nil {
		out = append(out, c.SuperClass)
	}
	for _, i := range c.Interfaces {
		out = append(out, i)
	}
	if c.PrimaryCtor != nil {
		out = append(out, c.PrimaryCtor)
	}
	for _, m := range c.Members {
		out = append(out, m)
	}
	return out
}

type InterfaceDecl struct {
	Header
	Name       *Identifier
	Generic    *Generic
	Supers     []TypeAnnotation
	Members    []Declaration
}

func (d *InterfaceDecl) TokenLiteral() string { return d.Name.Name }
func (d *InterfaceDecl) declNode()            {}
func (d *InterfaceDecl) Children() []Node {
	var out []Node
	out = append(out, d.Name)
	if d.Generic != nil {
		out = append(out, d.Generic)
	}
	for _, s := range d.Supers {
		out = append(out, s)
	}
	for _, m := range d.Members {
		out = append(out, m)
	}
	return out
}

type StructDecl struct {
	Header
	Name    *Identifier
	Generic *Generic
	Members []Declaration
	PrimaryCtor *PrimaryCtorDecl
}

func (d *StructDecl) TokenLiteral() string { return d.Name.Name }
func (d *StructDecl) declNode()            {}
func (d *StructDecl) Children() []Node {
	var out []Node
	out = append(out, d.Name)
	if d.Generic != nil {
		out = append(out, d.Generic)
	}
	if d.PrimaryCtor != nil {
		out = append(out, d.PrimaryCtor)
	}
	for _, m := range d.Members {
		out = append(out, m)
	}
	return out
}

// EnumConstructor is one `Case(T1, T2)` arm of an enum.
type EnumConstructor struct {
	Header
	Name   *Identifier
	Params []TypeAnnotation
}

func (e *EnumConstructor) TokenLiteral() string { return e.Name.Name }
func (e *EnumConstructor) declNode()            {}
func (e *EnumConstructor) Children() []Node {
	out := []Node{e.Name}
	for _, p := range e.Params {
		out = append(out, p)
	}
	return out
}

type EnumDecl struct {
	Header
	Name         *Identifier
	Generic      *Generic
	Constructors []*EnumConstructor
	Members      []Declaration
}

func (d *EnumDecl) TokenLiteral() string { return d.Name.Name }
func (d *EnumDecl) declNode()            {}
func (d *EnumDecl) Children() []Node {
	var out []Node
	out = append(out, d.Name)
	if d.Generic != nil {
		out = append(out, d.Generic)
	}
	for _, c := range d.Constructors {
		out = append(out, c)
	}
	for _, m := range d.Members {
		out = append(out, m)
	}
	return out
}

// ExtendDecl is `extend T <: I1, I2 { ... }` — the trait-like addition
// mechanism driving C7/C8's extension resolution and boxing.
type ExtendDecl struct {
	Header
	Generic    *Generic
	Target     TypeAnnotation
	Interfaces []TypeAnnotation
	Members    []Declaration
}

func (e *ExtendDecl) TokenLiteral() string { return "extend" }
func (e *ExtendDecl) declNode()            {}
func (e *ExtendDecl) Children() []Node {
	var out []Node
	if e.Generic != nil {
		out = append(out, e.Generic)
	}
	out = append(out, e.Target)
	for _, i := range e.Interfaces {
		out = append(out, i)
	}
	for _, m := range e.Members {
		out = append(out, m)
	}
	return out
}

type TypeAliasDecl struct {
	Header
	Name    *Identifier
	Generic *Generic
	Target  TypeAnnotation
}

func (d *TypeAliasDecl) TokenLiteral() string { return d.Name.Name }
func (d *TypeAliasDecl) declNode()            {}
func (d *TypeAliasDecl) Children() []Node {
	out := []Node{d.Name}
	if d.Generic != nil {
		out = append(out, d.Generic)
	}
	out = append(out, d.Target)
	return out
}

// PropDecl is a property with getter/setter bodies.
type PropDecl struct {
	Header
	Name           *Identifier
	TypeAnnotation TypeAnnotation
	Getter         *FuncBody
	Setter         *FuncBody
}

func (d *PropDecl) TokenLiteral() string { return d.Name.Name }
func (d *PropDecl) declNode()            {}
func (d *PropDecl) Children() []Node {
	var out []Node
	out = append(out, d.Name)
	if d.TypeAnnotation != nil {
		out = append(out, d.TypeAnnotation)
	}
	if d.Getter != nil {
		out = append(out, d.Getter)
	}
	if d.Setter != nil {
		out = append(out, d.Setter)
	}
	return out
}

// MacroDecl defines a macro; MacroExpandDecl/MacroExpandExpr invoke one.
type MacroDecl struct {
	Header
	Name *Identifier
	Body *FuncBody
}

func (d *MacroDecl) TokenLiteral() string { return d.Name.Name }
func (d *MacroDecl) declNode()            {}
func (d *MacroDecl) Children() []Node {
	out := []Node{d.Name}
	if d.Body != nil {
		out = append(out, d.Body)
	}
	return out
}

type MainDecl struct {
	Header
	Params *FuncParamList
	Body   *FuncBody
}

func (d *MainDecl) TokenLiteral() string { return "main" }
func (d *MainDecl) declNode()            {}
func (d *MainDecl) Children() []Node {
	var out []Node
	if d.Params != nil {
		out = append(out, d.Params)
	}
	if d.Body != nil {
		out = append(out, d.Body)
	}
	return out
}

type PrimaryCtorDecl struct {
	Header
	Params *FuncParamList
	Body   *FuncBody
}

func (d *PrimaryCtorDecl) TokenLiteral() string { return "init" }
func (d *PrimaryCtorDecl) declNode()            {}
func (d *PrimaryCtorDecl) Children() []Node {
	var out []Node
	if d.Params != nil {
		out = append(out, d.Params)
	}
	if d.Body != nil {
		out = append(out, d.Body)
	}
	return out
}

// InvocationTokens is the macro-invocation external contract (spec.md §9):
// NewTokens/NewTokensStr after a successful expansion; original args
// remain when expansion fails.
type InvocationTokens struct {
	OriginalArgs []token.Token
	NewTokens    []token.Token
	NewTokensStr string
	Succeeded    bool
}

// MacroExpandDecl is a top-level macro invocation that expands to one or
// more declarations.
type MacroExpandDecl struct {
	Header
	MacroName *Identifier
	Args      []Expression
	Invocation InvocationTokens
	Expanded  []Declaration // populated on successful expansion
}

func (d *MacroExpandDecl) TokenLiteral() string { return d.MacroName.Name }
func (d *MacroExpandDecl) declNode()            {}
func (d *MacroExpandDecl) Children() []Node {
	if len(d.Expanded) > 0 {
		out := make([]Node, len(d.Expanded))
		for i, e := range d.Expanded {
			out[i] = e
		}
		return out
	}
	out := []Node{d.MacroName}
	for _, a := range d.Args {
		out = append(out, a)
	}
	return out
}

// GenericParamDecl is one `T` of `<T, U>`.
type GenericParamDecl struct {
	Header
	Name *Identifier
}

func (d *GenericParamDecl) TokenLiteral() string { return d.Name.Name }
func (d *GenericParamDecl) declNode()            {}
func (d *GenericParamDecl) Children() []Node     { return []Node{d.Name} }

// GenericConstraint is one `where T <: Bound` clause.
type GenericConstraint struct {
	Header
	Param *Identifier
	Bound TypeAnnotation
}

func (d *GenericConstraint) TokenLiteral() string { return "where" }
func (d *GenericConstraint) declNode()            {}
func (d *GenericConstraint) Children() []Node     { return []Node{d.Param, d.Bound} }

// Generic bundles a declaration's type parameters and constraints.
type Generic struct {
	Header
	Params      []*GenericParamDecl
	Constraints []*GenericConstraint
}

func (g *Generic) TokenLiteral() string { return "<>" }
func (g *Generic) declNode()            {}
func (g *Generic) Children() []Node {
	var out []Node
	for _, p := range g.Params {
		out = append(out, p)
	}
	for _, c := range g.Constraints {
		out = append(out, c)
	}
	return out
}

// BuiltInDecl is a compiler-synthesized declaration with no source text
// (e.g. a boxed base class, a default-parameter synthetic).
type BuiltInDecl struct {
	Header
	Name string
	Kind_ Kind // the real kind this synthetic decl mimics, for diagnostics
	Body  []Declaration
}

func (d *BuiltInDecl) TokenLiteral() string { return d.Name }
func (d *BuiltInDecl) declNode()            {}
func (d *BuiltInDecl) Children() []Node {
	out := make([]Node, len(d.Body))
	for i, b := range d.Body {
		out[i] = b
	}
	return out
}
