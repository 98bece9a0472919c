package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

func TestProfileMonomorphicReportsSingleObservedType(t *testing.T) {
	p := Profile{TypeProfile: map[int]TypeHistogram{
		3: {"Dog": 40},
		7: {"Dog": 20, "Cat": 5},
	}}

	t1, ok := p.Monomorphic(3)
	assert.True(t, ok)
	assert.Equal(t, "Dog", t1)

	_, ok = p.Monomorphic(7)
	assert.False(t, ok)

	_, ok = p.Monomorphic(99)
	assert.False(t, ok)
}

func TestStaticOracleRoundTripsRegisteredEntries(t *testing.T) {
	s := NewStatic()
	m := graph.MethodRef{Holder: "Dog", Name: "bark", Sig: "()V"}
	s.Methods[methodKey{"Dog", "bark", "()V"}] = m
	s.Hubs["Dog"] = 42
	s.Abstract["Animal"] = true

	got, ok := s.LookupMethod(m)
	assert.True(t, ok)
	assert.Equal(t, m, got)

	assert.Equal(t, int64(42), s.ObjectHub(dogType{}))
	assert.True(t, s.IsAbstract(animalType{}))
	assert.False(t, s.IsAbstract(dogType{}))
}

type dogType struct{}

func (dogType) Name() string      { return "Dog" }
func (dogType) IsInterface() bool { return false }
func (dogType) IsConcrete() bool  { return true }
func (dogType) AssignableFrom(other stamp.TypeRef) bool {
	return other != nil && other.Name() == "Dog"
}
func (t dogType) LeastCommonAncestor(other stamp.TypeRef) stamp.TypeRef {
	if other != nil && other.Name() == "Dog" {
		return t
	}
	return animalType{}
}

type animalType struct{}

func (animalType) Name() string      { return "Animal" }
func (animalType) IsInterface() bool { return false }
func (animalType) IsConcrete() bool  { return false }
func (a animalType) AssignableFrom(other stamp.TypeRef) bool { return other != nil }
func (a animalType) LeastCommonAncestor(stamp.TypeRef) stamp.TypeRef { return a }
