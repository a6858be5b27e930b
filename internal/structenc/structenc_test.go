package structenc

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next,omitempty"`
}

func TestMarshalPlainValue(t *testing.T) {
	data, err := Marshal(map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["a"] != 1 || decoded["b"] != 2 {
		t.Errorf("round trip lost data: %v", decoded)
	}
}

func TestMarshalTimeValues(t *testing.T) {
	v := map[string]time.Time{"first_seen": time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	if _, err := Marshal(v); err != nil {
		t.Fatalf("time values must marshal: %v", err)
	}
}

func TestCycleDetected(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b", Next: a}
	a.Next = b

	_, err := Marshal(a)
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestSelfReferentialSlice(t *testing.T) {
	s := make([]any, 1)
	s[0] = s

	_, err := Marshal(s)
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestSharedSubtreeIsNotACycle(t *testing.T) {
	shared := &node{Name: "shared"}
	v := []*node{{Name: "a", Next: shared}, {Name: "b", Next: shared}}

	if _, err := Marshal(v); err != nil {
		t.Errorf("diamond sharing is acyclic and must marshal: %v", err)
	}
}

func TestDepthCeiling(t *testing.T) {
	head := &node{Name: "leaf"}
	for i := 0; i < 250; i++ {
		head = &node{Name: "n", Next: head}
	}

	_, err := Marshal(head)
	if !errors.Is(err, ErrMaxDepth) {
		t.Errorf("expected ErrMaxDepth for a 250-level chain, got %v", err)
	}
}

func TestDepthCeilingConfigurable(t *testing.T) {
	head := &node{Name: "leaf"}
	for i := 0; i < 250; i++ {
		head = &node{Name: "n", Next: head}
	}

	if _, err := MarshalDepth(head, 2000); err != nil {
		t.Errorf("a raised ceiling must admit the same chain: %v", err)
	}
}

func TestShallowChainWithinCeiling(t *testing.T) {
	head := &node{Name: "leaf"}
	for i := 0; i < 50; i++ {
		head = &node{Name: "n", Next: head}
	}

	if _, err := Marshal(head); err != nil {
		t.Errorf("a 50-level chain is within the default ceiling: %v", err)
	}
}
