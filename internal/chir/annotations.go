package chir

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// annotationsToProto/annotationsFromProto encode the per-value/expression
// Annotations tagged-union-of-optionals (spec.md §4.12) as a protobuf
// structpb.Struct, reusing the wire-safe dynamic-value type the teacher's
// gRPC stack already depends on rather than hand-rolling a bespoke
// bit-packed annotation encoding.
func annotationsToProto(a Annotations) ([]byte, error) {
	fields := map[string]any{
		"bounds_check_needed": a.BoundsCheckNeeded,
		"cast_check_needed":   a.CastCheckNeeded,
		"debug_location":      a.DebugLocation,
		"link_type":           a.LinkType,
		"skip_check_kind":     a.SkipCheckKind,
		"never_overflow":      a.NeverOverflow,
		"warning_location":    a.WarningLocation,
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func annotationsFromProto(buf []byte) (Annotations, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(buf, &s); err != nil {
		return Annotations{}, err
	}
	fields := s.AsMap()
	get := func(k string) string {
		if v, ok := fields[k].(string); ok {
			return v
		}
		return ""
	}
	getBool := func(k string) bool {
		v, _ := fields[k].(bool)
		return v
	}
	return Annotations{
		BoundsCheckNeeded: getBool("bounds_check_needed"),
		CastCheckNeeded:   getBool("cast_check_needed"),
		DebugLocation:     get("debug_location"),
		LinkType:          get("link_type"),
		SkipCheckKind:     get("skip_check_kind"),
		NeverOverflow:     getBool("never_overflow"),
		WarningLocation:   get("warning_location"),
	}, nil
}
