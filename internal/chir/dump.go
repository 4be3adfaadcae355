package chir

import (
	"fmt"
	"io"
)

// typeKindNames, valueKindNames, exprKindNames, customKindNames give the
// disassembler human-readable tags; Kind is reused (iota-per-pool) across
// the four pools, so a name table is looked up per pool rather than once
// globally.
var typeKindNames = [...]string{
	TypePrimitive: "primitive", TypeTuple: "tuple", TypeFunc: "func",
	TypeRef: "ref", TypeClosure: "closure", TypeArray: "array",
	TypeVArray: "varray", TypeCustom: "custom", TypeGenericParam: "generic-param",
	TypeCPointer: "cpointer", TypeCString: "cstring",
}

var valueKindNames = [...]string{
	ValueLiteral: "literal", ValueParameter: "parameter", ValueLocalVar: "local-var",
	ValueGlobalVar: "global-var", ValueFunc: "func", ValueBlock: "block",
	ValueBlockGroup: "block-group", ValueImportedFunc: "imported-func",
	ValueImportedVar: "imported-var",
}

var exprKindNames = [...]string{
	ExprUnary: "unary", ExprBinary: "binary", ExprConstant: "constant",
	ExprLoad: "load", ExprStore: "store", ExprFieldRef: "field-ref",
	ExprElementRef: "element-ref", ExprAllocate: "allocate", ExprApply: "apply",
	ExprInvoke: "invoke", ExprCast: "cast", ExprBox: "box", ExprUnbox: "unbox",
	ExprBranch: "branch", ExprLoop: "loop", ExprForInRange: "for-in-range",
	ExprForInIter: "for-in-iter", ExprForInClosedRange: "for-in-closed-range",
	ExprRaise: "raise", ExprThrow: "throw", ExprSpawn: "spawn", ExprSync: "sync",
	ExprIntrinsic: "intrinsic", ExprLambda: "lambda",
}

var customKindNames = [...]string{
	CustomClass: "class", CustomStruct: "struct", CustomEnum: "enum",
}

func kindName(names []string, k Kind) string {
	if int(k) >= 0 && int(k) < len(names) && names[k] != "" {
		return names[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Dump writes a human-readable disassembly of m to w: a header line followed
// by one line per populated pool entry, id-ordered within each of the four
// pools. The format is this package's own choice (spec.md leaves chir-dis's
// text output unspecified beyond "human-readable"); it is meant to be read
// by a developer debugging a compile, not parsed back.
func Dump(w io.Writer, m *Module) error {
	if _, err := fmt.Fprintf(w, "; chir module, phase=%q, global-init=#%d, files=%d\n",
		m.Phase, m.GlobalInitFuncID, len(m.SourceFileNames)); err != nil {
		return err
	}
	for i, name := range m.SourceFileNames {
		if _, err := fmt.Fprintf(w, ";   file[%d] = %s\n", i, name); err != nil {
			return err
		}
	}

	sections := []struct {
		title string
		pool  *Pool
		names []string
	}{
		{"types", m.Types, typeKindNames[:]},
		{"values", m.Values, valueKindNames[:]},
		{"expressions", m.Expressions, exprKindNames[:]},
		{"custom-type-defs", m.CustomTypeDefs, customKindNames[:]},
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "\n; %s (%d)\n", s.title, s.pool.Len()-1); err != nil {
			return err
		}
		for id := 1; id < s.pool.Len(); id++ {
			kind, _ := s.pool.Kind(id)
			payload, _ := s.pool.Payload(id)
			if _, err := fmt.Fprintf(w, "  #%-4d %-16s %d bytes\n", id, kindName(s.names, kind), len(payload)); err != nil {
				return err
			}
		}
	}
	return nil
}
