package model

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var u struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":1,"b":"abc-9","c":null}`), &u); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if u.A != "1" || u.B != "abc-9" || u.C != "" {
		t.Fatalf("unexpected ids: %+v", u)
	}
	if n, ok := u.A.Int(); !ok || n != 1 {
		t.Fatalf("expected numeric id 1, got %d %v", n, ok)
	}
	if _, ok := u.B.Int(); ok {
		t.Fatal("expected non-numeric id")
	}

	var bad ID
	if err := json.Unmarshal([]byte(`{}`), &bad); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestProfilePatchApply(t *testing.T) {
	u := &User{ID: "1", Username: "admin", FullName: "Old Name", Email: "old@example.com"}
	name := "New Name"
	p := ProfilePatch{FullName: &name}
	if p.Empty() {
		t.Fatal("patch with full name should not be empty")
	}
	p.Apply(u)
	if u.FullName != "New Name" || u.Email != "old@example.com" {
		t.Fatalf("unexpected user after patch: %+v", u)
	}
	if u.DisplayName() != "New Name" {
		t.Fatalf("expected display name to use full name")
	}
}

func TestTrendOf(t *testing.T) {
	if TrendOf(1.5) != TrendUp || TrendOf(-0.1) != TrendDown || TrendOf(0) != TrendNeutral {
		t.Fatal("unexpected trend mapping")
	}
}
