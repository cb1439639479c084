package validation

import (
	"testing"

	"github.com/mmrzaf/rowgen/internal/domain"
)

func TestIdentifierRules(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want bool
	}{
		{"users", true},
		{"_staging", true},
		{"order_items2", true},
		{"A", true},
		{"", false},
		{"2users", false},
		{"order-items", false},
		{"first name", false},
		{"x;drop", false},
		{`a"b`, false},
		{"public.users", false},
		// reserved in DDL, case-insensitive
		{"order", false},
		{"USER", false},
		{"Returning", false},
		{"null", false},
	} {
		if got := IsValidIdentifier(tt.in); got != tt.want {
			t.Fatalf("IsValidIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTableModes(t *testing.T) {
	for mode, want := range map[string]bool{
		domain.TableModeCreate:   true,
		domain.TableModeTruncate: true,
		domain.TableModeAppend:   true,
		"":                       false,
		"upsert":                 false,
	} {
		if IsValidMode(mode) != want {
			t.Fatalf("IsValidMode(%q) != %v", mode, want)
		}
	}
}

func TestValueTypesAndCompatibility(t *testing.T) {
	all := []domain.ValueType{
		domain.ValueTypeInt, domain.ValueTypeBigInt, domain.ValueTypeFloat, domain.ValueTypeDouble,
		domain.ValueTypeString, domain.ValueTypeText, domain.ValueTypeBool,
		domain.ValueTypeTimestamp, domain.ValueTypeDate, domain.ValueTypeUUID,
	}
	for _, vt := range all {
		if !IsValidValueType(vt) {
			t.Fatalf("expected %q valid", vt)
		}
	}
	if IsValidValueType("varchar") {
		t.Fatal("varchar is not a scenario type")
	}

	compatible := [][2]domain.ValueType{
		{domain.ValueTypeBigInt, domain.ValueTypeInt},
		{domain.ValueTypeUUID, domain.ValueTypeString},
		{domain.ValueTypeText, domain.ValueTypeUUID},
		{domain.ValueTypeDate, domain.ValueTypeTimestamp},
	}
	for _, pair := range compatible {
		if !pair[0].Compatible(pair[1]) {
			t.Fatalf("%s should feed %s", pair[0], pair[1])
		}
	}
	if domain.ValueTypeInt.Compatible(domain.ValueTypeString) {
		t.Fatal("int must not feed string arguments")
	}
}
