package jsonx

import "testing"

func TestCanonicalDeterministic(t *testing.T) {
	type payload struct {
		B string `json:"b"`
		A int    `json:"a"`
	}

	first, err := Canonical(payload{B: "x", A: 1})
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	second, err := Canonical(payload{B: "x", A: 1})
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("canonical bytes differ: %s vs %s", first, second)
	}
}
