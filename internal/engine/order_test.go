package engine

import (
	"strings"
	"testing"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

func prop(name string, upstream ...string) domain.Property {
	p := domain.Property{Name: name, Type: domain.ValueTypeString}
	if len(upstream) > 0 {
		p.Arguments = []domain.ArgumentBinding{{Name: "text", Properties: upstream}}
	}
	return p
}

func names(props []*domain.Property) string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Name
	}
	return strings.Join(out, ",")
}

func TestOrderPropertiesKeepsDeclarationOrderForTies(t *testing.T) {
	entity := &domain.Entity{Name: "users", Properties: []domain.Property{
		prop("email", "first", "last"),
		prop("first"),
		prop("slug", "email"),
		prop("last"),
		prop("age"),
	}}
	ordered, err := OrderProperties(entity)
	if err != nil {
		t.Fatalf("OrderProperties: %v", err)
	}
	if got, want := names(ordered), "first,last,email,slug,age"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestOrderPropertiesDetectsCycle(t *testing.T) {
	entity := &domain.Entity{Name: "t", Properties: []domain.Property{
		prop("a", "c"),
		prop("b", "a"),
		prop("c", "b"),
		prop("d"),
	}}
	_, err := OrderProperties(entity)
	if !errors.Is(err, errors.ErrDependencyCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	for _, n := range []string{"a", "b", "c"} {
		if !strings.Contains(err.Error(), n) {
			t.Fatalf("error %q does not name %s", err, n)
		}
	}
}

func TestOrderPropertiesSelfReference(t *testing.T) {
	entity := &domain.Entity{Name: "t", Properties: []domain.Property{prop("a", "a")}}
	if _, err := OrderProperties(entity); !errors.Is(err, errors.ErrDependencyCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestOrderPropertiesUnknownUpstream(t *testing.T) {
	entity := &domain.Entity{Name: "t", Properties: []domain.Property{prop("a", "ghost")}}
	if _, err := OrderProperties(entity); !errors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOrderPropertiesDuplicateName(t *testing.T) {
	entity := &domain.Entity{Name: "t", Properties: []domain.Property{prop("a"), prop("a")}}
	if _, err := OrderProperties(entity); !errors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
