package ast

// RefType is a named type reference, possibly generic: `Foo<Bar>`.
type RefType struct {
	Header
	Name     *Identifier
	TypeArgs []TypeAnnotation
}

func (t *RefType) TokenLiteral() string { return t.Name.Name }
func (t *RefType) typeAnnotNode()       {}
func (t *RefType) Children() []Node {
	direct := []Node{t.Name}
	for _, a := range t.TypeArgs {
		direct = append(direct, a)
	}
	return direct
}

// QualifiedType is `pkg.Foo<Bar>`.
type QualifiedType struct {
	Header
	Qualifier *Identifier
	Name      *Identifier
	TypeArgs  []TypeAnnotation
}

func (t *QualifiedType) TokenLiteral() string { return t.Qualifier.Name + "." + t.Name.Name }
func (t *QualifiedType) typeAnnotNode()       {}
func (t *QualifiedType) Children() []Node {
	direct := []Node{t.Qualifier, t.Name}
	for _, a := range t.TypeArgs {
		direct = append(direct, a)
	}
	return direct
}

// ParenType is `(T)`.
type ParenType struct {
	Header
	Inner TypeAnnotation
}

func (t *ParenType) TokenLiteral() string { return "()" }
func (t *ParenType) typeAnnotNode()       {}
func (t *ParenType) Children() []Node     { return []Node{t.Inner} }

// FuncType is `(A, B) -> C`.
type FuncType struct {
	Header
	Params []TypeAnnotation
	Result TypeAnnotation
}

func (t *FuncType) TokenLiteral() string { return "->" }
func (t *FuncType) typeAnnotNode()       {}
func (t *FuncType) Children() []Node {
	direct := make([]Node, 0, len(t.Params)+1)
	for _, p := range t.Params {
		direct = append(direct, p)
	}
	direct = append(direct, t.Result)
	return direct
}

// TupleType is `(A, B, C)`.
type TupleType struct {
	Header
	Elems []TypeAnnotation
}

func (t *TupleType) TokenLiteral() string { return "(,)" }
func (t *TupleType) typeAnnotNode()       {}
func (t *TupleType) Children() []Node {
	direct := make([]Node, len(t.Elems))
	for i, e := range t.Elems {
		direct[i] = e
	}
	return direct
}

// ThisType is `This`, the implicit self-type in class/interface bodies.
type ThisType struct {
	Header
}

func (t *ThisType) TokenLiteral() string { return "This" }
func (t *ThisType) typeAnnotNode()       {}
func (t *ThisType) Children() []Node     { return nil }

// PrimitiveType names one of the built-in scalar types (Int64, Float64,
// Bool, Rune, Unit, Nothing, ...).
type PrimitiveType struct {
	Header
	Name string
}

func (t *PrimitiveType) TokenLiteral() string { return t.Name }
func (t *PrimitiveType) typeAnnotNode()       {}
func (t *PrimitiveType) Children() []Node     { return nil }

// OptionType is `T?`, sugar for the Option<T> enum.
type OptionType struct {
	Header
	Elem TypeAnnotation
}

func (t *OptionType) TokenLiteral() string { return "?" }
func (t *OptionType) typeAnnotNode()       {}
func (t *OptionType) Children() []Node     { return []Node{t.Elem} }

// VArrayType is `VArray<T, $N>`, a fixed-size value array.
type VArrayType struct {
	Header
	Elem TypeAnnotation
	Size Expression
}

func (t *VArrayType) TokenLiteral() string { return "VArray" }
func (t *VArrayType) typeAnnotNode()       {}
func (t *VArrayType) Children() []Node     { return []Node{t.Elem, t.Size} }

// ConstantType is a type-level constant expression used as a generic
// argument (e.g. the `$N` in VArray<T, $N>).
type ConstantType struct {
	Header
	Value Expression
}

func (t *ConstantType) TokenLiteral() string { return "$const" }
func (t *ConstantType) typeAnnotNode()       {}
func (t *ConstantType) Children() []Node     { return []Node{t.Value} }

// InvalidType marks an unrecoverable parse position in type-annotation
// position; carries IS_BROKEN.
type InvalidType struct {
	Header
	Text string
}

func (t *InvalidType) TokenLiteral() string { return t.Text }
func (t *InvalidType) typeAnnotNode()       {}
func (t *InvalidType) Children() []Node     { return nil }
