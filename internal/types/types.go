// Package types implements the Type Manager (spec.md §4.5, C5): every
// distinct type shape is hash-consed to a single canonical *Type, so type
// equality during checking is pointer equality rather than structural
// comparison, and the subtype relation (including extension-introduced
// interface conformance) is queried against that canonical table.
//
// The substitution/kind machinery here is grounded on
// _examples/funvibe-funxy/internal/typesystem/types.go (the Type interface
// shape and Apply/FreeTypeVariables walk), generalized from the teacher's
// Hindley-Milner type-variable model to the closed, hash-consed nominal
// model spec.md §4.5 specifies: the teacher never interns types (each Apply
// allocates a fresh struct), so GetAllSuperTys/extension lookups here are
// new, grounded on
// _examples/funvibe-funxy/internal/symbols/symbol_table_ext.go and
// symbol_table_traits.go (the per-trait implementation registry idiom).
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes the shapes of canonical type.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindClass
	KindInterface
	KindStruct
	KindEnum
	KindFunc
	KindTuple
	KindArray
	KindVArray
	KindOption
	KindGenericParam
	KindThis
	KindNothing
)

// Type is the canonical, hash-consed representation of one Jade type.
// Two Types describe the same shape iff they are the same pointer: every
// Type is only ever produced by Manager.intern.
type Type struct {
	Kind Kind
	Name string // declaration name for Class/Interface/Struct/Enum/GenericParam/Primitive

	// Generic instantiation: Base is the uninstantiated generic declaration's
	// canonical type, Args the type arguments it was instantiated with (nil
	// for a non-generic type or the generic declaration itself).
	Base *Type
	Args []*Type

	// Func
	Params   []*Type
	Result   *Type
	Variadic bool

	// Tuple
	Elems []*Type

	// Array/VArray/Option
	Elem *Type
	Size int64 // VArray only

	key string // canonical structural key, computed once at intern time
}

func (t *Type) String() string {
	switch t.Kind {
	case KindFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		variadic := ""
		if t.Variadic {
			variadic = "..."
		}
		return fmt.Sprintf("(%s%s) -> %s", strings.Join(parts, ", "), variadic, t.Result.String())
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		return "Array<" + t.Elem.String() + ">"
	case KindVArray:
		return fmt.Sprintf("VArray<%s, $%d>", t.Elem.String(), t.Size)
	case KindOption:
		return t.Elem.String() + "?"
	case KindThis:
		return "This"
	case KindNothing:
		return "Nothing"
	default:
		if len(t.Args) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return t.Name + "<" + strings.Join(parts, ", ") + ">"
	}
}

// extendKey identifies one `extend Target <: Interface` declaration the
// Manager has recorded.
type extendKey struct {
	target    string
	interfac string
}

// Manager is the Type Manager: it hash-conses canonical types and tracks
// the nominal hierarchy (direct superclass/declared interfaces) and the
// extension-introduced conformances registered via RecordUsedExtend.
type Manager struct {
	pool map[string]*Type

	// Nominal declaration hierarchy: type name -> direct supertypes
	// (superclass first, then declared interfaces, in declaration order).
	directSupers map[string][]string

	// extensions records, per (target, interface) pair, that an ExtendDecl
	// established target <: interface. GetRealExtendedTy and
	// HasExtensionRelation consult this.
	extensions map[extendKey]bool

	// builtinExtends maps a primitive/struct name to the interfaces the
	// standard library extends it with (spec.md's "built-in auto-box
	// sources"), e.g. Int64 <: ToString via a compiler-provided extend.
	builtinExtends map[string][]string
}

// NewManager returns an empty Type Manager.
func NewManager() *Manager {
	return &Manager{
		pool:           make(map[string]*Type),
		directSupers:   make(map[string][]string),
		extensions:     make(map[extendKey]bool),
		builtinExtends: make(map[string][]string),
	}
}

func (m *Manager) intern(key string, build func() *Type) *Type {
	if t, ok := m.pool[key]; ok {
		return t
	}
	t := build()
	t.key = key
	m.pool[key] = t
	return t
}

// Primitive returns the canonical Type for a built-in scalar (Int64, Bool,
// Rune, Unit, ...).
func (m *Manager) Primitive(name string) *Type {
	key := "prim:" + name
	return m.intern(key, func() *Type { return &Type{Kind: KindPrimitive, Name: name} })
}

// Nothing returns the canonical bottom type (the type of `throw`/`return`
// expressions, a subtype of everything).
func (m *Manager) Nothing() *Type {
	return m.intern("nothing", func() *Type { return &Type{Kind: KindNothing, Name: "Nothing"} })
}

// This returns the canonical placeholder for the implicit self-type.
func (m *Manager) This() *Type {
	return m.intern("this", func() *Type { return &Type{Kind: KindThis, Name: "This"} })
}

// GenericParam returns the canonical Type standing in for an unbound
// generic parameter (e.g. the `T` in `class Box<T>` before instantiation).
func (m *Manager) GenericParam(name string) *Type {
	key := "genparam:" + name
	return m.intern(key, func() *Type { return &Type{Kind: KindGenericParam, Name: name} })
}

// Nominal returns the canonical Type for a declared class/interface/struct/
// enum by name, uninstantiated (Args nil). DeclareHierarchy must be called
// separately to register its supertypes.
func (m *Manager) Nominal(kind Kind, name string) *Type {
	key := fmt.Sprintf("nom:%d:%s", kind, name)
	return m.intern(key, func() *Type { return &Type{Kind: kind, Name: name} })
}

// Instantiate returns the canonical Type for base<args...>, hash-consing on
// (base, args) so repeated instantiation with the same arguments yields the
// identical pointer (required for C7's instantiation-key canonicalization).
func (m *Manager) Instantiate(base *Type, args []*Type) *Type {
	if len(args) == 0 {
		return base
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.key
	}
	key := fmt.Sprintf("inst:%s<%s>", base.key, strings.Join(parts, ","))
	return m.intern(key, func() *Type {
		return &Type{Kind: base.Kind, Name: base.Name, Base: base, Args: append([]*Type(nil), args...)}
	})
}

// Func returns the canonical Type for a function signature.
func (m *Manager) Func(params []*Type, result *Type, variadic bool) *Type {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.key
	}
	v := ""
	if variadic {
		v = "..."
	}
	key := fmt.Sprintf("func:(%s%s)->%s", strings.Join(parts, ","), v, result.key)
	return m.intern(key, func() *Type {
		return &Type{Kind: KindFunc, Params: append([]*Type(nil), params...), Result: result, Variadic: variadic}
	})
}

// Tuple returns the canonical Type for `(elems...)`.
func (m *Manager) Tuple(elems []*Type) *Type {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.key
	}
	key := "tuple:(" + strings.Join(parts, ",") + ")"
	return m.intern(key, func() *Type { return &Type{Kind: KindTuple, Elems: append([]*Type(nil), elems...)} })
}

// Array returns the canonical Type for `Array<elem>`.
func (m *Manager) Array(elem *Type) *Type {
	key := "array:" + elem.key
	return m.intern(key, func() *Type { return &Type{Kind: KindArray, Elem: elem} })
}

// VArray returns the canonical Type for `VArray<elem, $size>`.
func (m *Manager) VArray(elem *Type, size int64) *Type {
	key := fmt.Sprintf("varray:%s,%d", elem.key, size)
	return m.intern(key, func() *Type { return &Type{Kind: KindVArray, Elem: elem, Size: size} })
}

// Option returns the canonical Type for `elem?`.
func (m *Manager) Option(elem *Type) *Type {
	key := "option:" + elem.key
	return m.intern(key, func() *Type { return &Type{Kind: KindOption, Elem: elem} })
}

// Substitute walks t's shape replacing every GenericParam type named in
// subst with its bound argument, hash-consing the result through the same
// constructors a fresh Instantiate/Array/Func call would use. It is the
// Type Manager side of C7's monomorphisation step (spec.md §4.7 step 3):
// the Generic Instantiator clones the declaration's AST, and this method
// is what re-derives every already-resolved expression type for the clone
// without re-running full inference.
func (m *Manager) Substitute(t *Type, subst map[string]*Type) *Type {
	if t == nil || len(subst) == 0 {
		return t
	}
	switch t.Kind {
	case KindGenericParam:
		if s, ok := subst[t.Name]; ok {
			return s
		}
		return t
	case KindArray:
		return m.Array(m.Substitute(t.Elem, subst))
	case KindOption:
		return m.Option(m.Substitute(t.Elem, subst))
	case KindVArray:
		return m.VArray(m.Substitute(t.Elem, subst), t.Size)
	case KindTuple:
		elems := make([]*Type, len(t.Elems))
		changed := false
		for i, e := range t.Elems {
			elems[i] = m.Substitute(e, subst)
			changed = changed || elems[i] != e
		}
		if !changed {
			return t
		}
		return m.Tuple(elems)
	case KindFunc:
		params := make([]*Type, len(t.Params))
		changed := false
		for i, p := range t.Params {
			params[i] = m.Substitute(p, subst)
			changed = changed || params[i] != p
		}
		result := m.Substitute(t.Result, subst)
		changed = changed || result != t.Result
		if !changed {
			return t
		}
		return m.Func(params, result, t.Variadic)
	default:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]*Type, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = m.Substitute(a, subst)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		base := t.Base
		if base == nil {
			base = m.Nominal(t.Kind, t.Name)
		}
		return m.Instantiate(base, args)
	}
}

// DeclareHierarchy records name's direct supertypes (superclass, then
// declared interfaces) in declaration order, for GetAllSuperTys.
func (m *Manager) DeclareHierarchy(name string, directSupers []string) {
	m.directSupers[name] = directSupers
}

// RecordUsedExtend registers that an ExtendDecl on target establishes
// target <: iface. Per spec.md's open-question decision (see DESIGN.md),
// this is also the single path through which auto-box eligibility for
// extension-introduced conformance is later queried by internal/box.
func (m *Manager) RecordUsedExtend(target, iface string) {
	m.extensions[extendKey{target: target, interfac: iface}] = true
}

// RecordBuiltinExtend registers a compiler-synthesized extension of a
// primitive or struct type onto an interface (e.g. `Int64` onto
// `ToString`), distinct from user ExtendDecls so GetBuiltinTyExtends can
// report them separately.
func (m *Manager) RecordBuiltinExtend(target, iface string) {
	m.builtinExtends[target] = append(m.builtinExtends[target], iface)
	m.RecordUsedExtend(target, iface)
}

// GetBuiltinTyExtends returns the interfaces the standard library extends
// target with.
func (m *Manager) GetBuiltinTyExtends(target string) []string {
	return append([]string(nil), m.builtinExtends[target]...)
}

// HasExtensionRelation reports whether target <: iface was established by
// an ExtendDecl (as opposed to direct declared inheritance).
func (m *Manager) HasExtensionRelation(target, iface string) bool {
	return m.extensions[extendKey{target: target, interfac: iface}]
}

// GetRealExtendedTy returns target if it (directly or via an extension)
// conforms to iface, or nil otherwise — the lookup the Box Marker uses to
// decide whether a receiver needs boxing for a given static interface type.
func (m *Manager) GetRealExtendedTy(target, iface string) *Type {
	if !m.IsSubtype(m.Nominal(KindClass, target), m.Nominal(KindInterface, iface)) {
		return nil
	}
	return m.Nominal(KindClass, target)
}

// GetAllSuperTys returns every supertype name reachable from name by
// following directSupers and extension conformances, in breadth-first
// discovery order, without duplicates. The supertypes found from one type
// are visited in name order; declaration order is not kept.
func (m *Manager) GetAllSuperTys(name string) []string {
	seen := map[string]bool{name: true}
	var order []string
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		var next []string
		next = append(next, m.directSupers[cur]...)
		for k := range m.extensions {
			if k.target == cur {
				next = append(next, k.interfac)
			}
		}
		sort.Strings(next)
		for _, s := range next {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
				queue = append(queue, s)
			}
		}
	}
	return order
}

// IsSubtype reports whether sub <: super, considering nominal inheritance,
// extension-introduced conformance, Nothing as bottom, structural subtyping
// for Array/Option/Tuple/Func covariance/contravariance, and identity.
func (m *Manager) IsSubtype(sub, super *Type) bool {
	if sub == super {
		return true
	}
	if sub.Kind == KindNothing {
		return true
	}
	switch {
	case sub.Kind == KindOption && super.Kind == KindOption:
		return m.IsSubtype(sub.Elem, super.Elem)
	case sub.Kind == KindArray && super.Kind == KindArray:
		return m.IsSubtype(sub.Elem, super.Elem)
	case sub.Kind == KindTuple && super.Kind == KindTuple:
		if len(sub.Elems) != len(super.Elems) {
			return false
		}
		for i := range sub.Elems {
			if !m.IsSubtype(sub.Elems[i], super.Elems[i]) {
				return false
			}
		}
		return true
	case sub.Kind == KindFunc && super.Kind == KindFunc:
		if len(sub.Params) != len(super.Params) {
			return false
		}
		for i := range sub.Params {
			// Contravariant in parameters.
			if !m.IsSubtype(super.Params[i], sub.Params[i]) {
				return false
			}
		}
		return m.IsSubtype(sub.Result, super.Result)
	}
	if sub.Name == "" || super.Name == "" {
		return false
	}
	for _, name := range m.GetAllSuperTys(sub.Name) {
		if name == super.Name {
			return true
		}
	}
	return false
}
