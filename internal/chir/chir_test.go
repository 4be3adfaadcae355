package chir

import (
	"bytes"
	"testing"
)

func fixtureRaw() RawModule {
	return RawModule{
		Phase:            "CHIR",
		GlobalInitFuncID: 2,
		SourceFileNames:  []string{"a.jd", "b.jd"},
		Types: []RawEntry{
			{Kind: TypePrimitive, Payload: []byte("Int64")},
			{Kind: TypeFunc, Payload: []byte{1, 0, 0, 0}},
		},
		Values: []RawEntry{
			{Kind: ValueFunc, Payload: []byte("main")},
		},
		Expressions: []RawEntry{
			{Kind: ExprConstant, Payload: []byte{42}},
			{Kind: ExprApply, Payload: []byte{1, 1}},
		},
		CustomTypeDefs: []RawEntry{
			{Kind: CustomClass, Payload: []byte("Point")},
		},
	}
}

func shellBuilders() PoolBuilders {
	build := func(k Kind, payload []byte) any { return RawEntry{Kind: k, Payload: payload} }
	return PoolBuilders{
		BuildType: build, BuildValue: build, BuildExpr: build, BuildCustomTypeDef: build,
	}
}

// Round-trip law (spec.md's §8 scenario S6, this package's invariant 6):
// Deserialize(Serialize(m)) reproduces m's pool contents id-for-id.
func TestSerializeDeserializeRoundTrip(t *testing.T) {
	raw := fixtureRaw()
	var buf bytes.Buffer
	if err := Serialize(&buf, raw); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	module, err := Deserialize(&buf, int64(buf.Len()), shellBuilders())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if module.Phase != raw.Phase {
		t.Errorf("Phase = %q, want %q", module.Phase, raw.Phase)
	}
	if module.GlobalInitFuncID != raw.GlobalInitFuncID {
		t.Errorf("GlobalInitFuncID = %d, want %d", module.GlobalInitFuncID, raw.GlobalInitFuncID)
	}
	if len(module.SourceFileNames) != len(raw.SourceFileNames) {
		t.Fatalf("SourceFileNames len = %d, want %d", len(module.SourceFileNames), len(raw.SourceFileNames))
	}
	for i, name := range raw.SourceFileNames {
		if module.SourceFileNames[i] != name {
			t.Errorf("SourceFileNames[%d] = %q, want %q", i, module.SourceFileNames[i], name)
		}
	}

	checkPool(t, "types", module.Types, raw.Types)
	checkPool(t, "values", module.Values, raw.Values)
	checkPool(t, "expressions", module.Expressions, raw.Expressions)
	checkPool(t, "custom-type-defs", module.CustomTypeDefs, raw.CustomTypeDefs)
}

func checkPool(t *testing.T, name string, got *Pool, want []RawEntry) {
	t.Helper()
	if got.Len()-1 != len(want) {
		t.Fatalf("%s pool len = %d, want %d", name, got.Len()-1, len(want))
	}
	for i, w := range want {
		id := i + 1
		live, ok := got.Get(id)
		if !ok {
			t.Fatalf("%s pool: id %d missing", name, id)
		}
		re, ok := live.(RawEntry)
		if !ok {
			t.Fatalf("%s pool: id %d built as %T, want RawEntry", name, id, live)
		}
		if re.Kind != w.Kind {
			t.Errorf("%s pool id %d: Kind = %v, want %v", name, id, re.Kind, w.Kind)
		}
		if !bytes.Equal(re.Payload, w.Payload) {
			t.Errorf("%s pool id %d: Payload = %v, want %v", name, id, re.Payload, w.Payload)
		}
	}
}

// Invariant: a container at or above MaxContainerSize is refused before any
// pool is read.
func TestDeserializeRejectsOversizedContainer(t *testing.T) {
	var buf bytes.Buffer
	if err := Serialize(&buf, fixtureRaw()); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	_, err := Deserialize(&buf, MaxContainerSize, shellBuilders())
	if err == nil {
		t.Fatal("expected an error for a container at the size ceiling")
	}
}

func TestDumpListsEveryPoolEntry(t *testing.T) {
	raw := fixtureRaw()
	var encoded bytes.Buffer
	if err := Serialize(&encoded, raw); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	module, err := Deserialize(&encoded, int64(encoded.Len()), shellBuilders())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	var out bytes.Buffer
	if err := Dump(&out, module); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	text := out.String()
	for _, want := range []string{"primitive", "func", "constant", "apply", "class", "a.jd", "b.jd"} {
		if !bytes.Contains([]byte(text), []byte(want)) {
			t.Errorf("Dump output missing %q:\n%s", want, text)
		}
	}
}
