package domain_test

import (
	"encoding/json"
	"testing"

	"go.trai.ch/depot/internal/core/domain"
)

func TestInternedString(t *testing.T) {
	is1 := domain.NewInternedString("zlib")
	is2 := domain.NewInternedString("zlib")

	if is1 != is2 {
		t.Errorf("Expected interned values to compare equal, got %v and %v", is1, is2)
	}
	if is1.String() != "zlib" {
		t.Errorf("Expected String() to return %q, got %q", "zlib", is1.String())
	}
}

func TestInternedString_Zero(t *testing.T) {
	var zero domain.InternedString
	if zero.String() != "" {
		t.Errorf("Expected zero value to render empty, got %q", zero.String())
	}
	if !zero.IsZero() {
		t.Error("Expected zero value to report IsZero")
	}
	if domain.NewInternedString("x").IsZero() {
		t.Error("Expected non-empty value to not report IsZero")
	}
}

func TestInternedStringJSON(t *testing.T) {
	type node struct {
		Name domain.InternedString `json:"name"`
	}

	data, err := json.Marshal(node{Name: domain.NewInternedString("cmake")})
	if err != nil {
		t.Fatalf("Failed to marshal struct: %v", err)
	}
	if string(data) != `{"name":"cmake"}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var decoded node
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal struct: %v", err)
	}
	if decoded.Name.String() != "cmake" {
		t.Errorf("Expected %q, got %q", "cmake", decoded.Name.String())
	}
}
