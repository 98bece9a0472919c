package oracle

import (
	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

// methodKey and fieldKey flatten graph.MethodRef/FieldRef into a
// comparable map key.
type methodKey struct{ holder, name, sig string }
type fieldKey struct{ holder, name string }

// Static is a fixed, map-backed Oracle for tests and embedding hosts
// small enough not to need a live class-loader bridge. It holds no
// mutable state after construction, so it needs no lock despite being
// shared read-only across the worker pool (spec.md §5).
type Static struct {
	Types     map[string]stamp.TypeRef
	Methods   map[methodKey]graph.MethodRef
	Fields    map[fieldKey]graph.FieldRef
	Constants map[string]interface{}
	Codes     map[methodKey]MethodCode
	Profiles  map[methodKey]Profile
	Hubs      map[string]int64

	Abstract  map[string]bool
	Array     map[string]bool
	Interface map[string]bool
}

// NewStatic returns an empty Static oracle ready for its maps to be
// populated by the caller (tests construct one directly via literal
// composition instead, since every field is exported).
func NewStatic() *Static {
	return &Static{
		Types:     map[string]stamp.TypeRef{},
		Methods:   map[methodKey]graph.MethodRef{},
		Fields:    map[fieldKey]graph.FieldRef{},
		Constants: map[string]interface{}{},
		Codes:     map[methodKey]MethodCode{},
		Profiles:  map[methodKey]Profile{},
		Hubs:      map[string]int64{},
		Abstract:  map[string]bool{},
		Array:     map[string]bool{},
		Interface: map[string]bool{},
	}
}

func (s *Static) LookupType(class string) (stamp.TypeRef, bool) {
	t, ok := s.Types[class]
	return t, ok
}

func (s *Static) LookupMethod(ref graph.MethodRef) (graph.MethodRef, bool) {
	m, ok := s.Methods[methodKey{ref.Holder, ref.Name, ref.Sig}]
	return m, ok
}

func (s *Static) LookupField(ref graph.FieldRef) (graph.FieldRef, bool) {
	f, ok := s.Fields[fieldKey{ref.Holder, ref.Name}]
	return f, ok
}

func (s *Static) LookupConstant(key string) (interface{}, bool) {
	v, ok := s.Constants[key]
	return v, ok
}

func (s *Static) AssignableFrom(a, b stamp.TypeRef) bool {
	if a == nil {
		return false
	}
	return a.AssignableFrom(b)
}

func (s *Static) LeastCommonAncestor(a, b stamp.TypeRef) stamp.TypeRef {
	if a == nil {
		return nil
	}
	return a.LeastCommonAncestor(b)
}

func (s *Static) IsAbstract(t stamp.TypeRef) bool {
	if t == nil {
		return false
	}
	return s.Abstract[t.Name()]
}

func (s *Static) IsArray(t stamp.TypeRef) bool {
	if t == nil {
		return false
	}
	return s.Array[t.Name()]
}

func (s *Static) IsInterface(t stamp.TypeRef) bool {
	if t == nil {
		return false
	}
	return t.IsInterface() || s.Interface[t.Name()]
}

func (s *Static) MethodCode(m graph.MethodRef) (MethodCode, bool) {
	c, ok := s.Codes[methodKey{m.Holder, m.Name, m.Sig}]
	return c, ok
}

func (s *Static) Profile(m graph.MethodRef) (Profile, bool) {
	p, ok := s.Profiles[methodKey{m.Holder, m.Name, m.Sig}]
	return p, ok
}

func (s *Static) ObjectHub(t stamp.TypeRef) int64 {
	if t == nil {
		return 0
	}
	return s.Hubs[t.Name()]
}
