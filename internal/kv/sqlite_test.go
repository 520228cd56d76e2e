package kv

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Absent key
	_, ok, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() ok = true for absent key")
	}

	// Set then get
	if err := s.Set(ctx, "capture:abc", `{"id":"abc"}`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v, ok, err := s.Get(ctx, "capture:abc")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok || v != `{"id":"abc"}` {
		t.Errorf("Get() = (%q, %v), want (%q, true)", v, ok, `{"id":"abc"}`)
	}

	// Overwrite
	if err := s.Set(ctx, "capture:abc", `{"id":"abc","status":"approved"}`); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}
	v, _, _ = s.Get(ctx, "capture:abc")
	if v != `{"id":"abc","status":"approved"}` {
		t.Errorf("Get() after overwrite = %q", v)
	}

	// Delete, then delete again (not an error)
	if err := s.Del(ctx, "capture:abc"); err != nil {
		t.Fatalf("Del() error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "capture:abc"); ok {
		t.Error("Get() ok = true after Del()")
	}
	if err := s.Del(ctx, "capture:abc"); err != nil {
		t.Errorf("Del() of absent key error: %v", err)
	}
}

func TestZSetOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, m := range []string{"a", "b", "c", "d"} {
		if err := s.ZAdd(ctx, "captures:pending", m, int64(100+i)); err != nil {
			t.Fatalf("ZAdd() error: %v", err)
		}
	}

	n, err := s.ZCard(ctx, "captures:pending")
	if err != nil {
		t.Fatalf("ZCard() error: %v", err)
	}
	if n != 4 {
		t.Errorf("ZCard() = %d, want 4", n)
	}

	// Full range, descending by score
	members, err := s.ZRevRange(ctx, "captures:pending", 0, -1)
	if err != nil {
		t.Fatalf("ZRevRange() error: %v", err)
	}
	want := []string{"d", "c", "b", "a"}
	if len(members) != len(want) {
		t.Fatalf("ZRevRange() len = %d, want %d", len(members), len(want))
	}
	for i := range want {
		if members[i] != want[i] {
			t.Errorf("ZRevRange()[%d] = %q, want %q", i, members[i], want[i])
		}
	}

	// Paged range
	members, _ = s.ZRevRange(ctx, "captures:pending", 1, 2)
	if len(members) != 2 || members[0] != "c" || members[1] != "b" {
		t.Errorf("ZRevRange(1,2) = %v, want [c b]", members)
	}

	// Out-of-range start
	members, _ = s.ZRevRange(ctx, "captures:pending", 10, 20)
	if len(members) != 0 {
		t.Errorf("ZRevRange(10,20) = %v, want empty", members)
	}

	// Score update re-ranks
	if err := s.ZAdd(ctx, "captures:pending", "a", 999); err != nil {
		t.Fatalf("ZAdd() update error: %v", err)
	}
	if n, _ := s.ZCard(ctx, "captures:pending"); n != 4 {
		t.Errorf("ZCard() after score update = %d, want 4", n)
	}
	members, _ = s.ZRevRange(ctx, "captures:pending", 0, 0)
	if len(members) != 1 || members[0] != "a" {
		t.Errorf("ZRevRange(0,0) after update = %v, want [a]", members)
	}

	// Remove, then remove again (not an error)
	if err := s.ZRem(ctx, "captures:pending", "a"); err != nil {
		t.Fatalf("ZRem() error: %v", err)
	}
	if n, _ := s.ZCard(ctx, "captures:pending"); n != 3 {
		t.Errorf("ZCard() after ZRem = %d, want 3", n)
	}
	if err := s.ZRem(ctx, "captures:pending", "a"); err != nil {
		t.Errorf("ZRem() of absent member error: %v", err)
	}
}

func TestZSetsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.ZAdd(ctx, "captures:pending", "x", 1)
	_ = s.ZAdd(ctx, "captures:approved", "y", 2)

	if n, _ := s.ZCard(ctx, "captures:pending"); n != 1 {
		t.Errorf("pending ZCard = %d, want 1", n)
	}
	if n, _ := s.ZCard(ctx, "captures:approved"); n != 1 {
		t.Errorf("approved ZCard = %d, want 1", n)
	}

	members, _ := s.ZRevRange(ctx, "captures:approved", 0, -1)
	if len(members) != 1 || members[0] != "y" {
		t.Errorf("approved members = %v, want [y]", members)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	_ = s1.Set(context.Background(), "k", "v")
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer s2.Close()

	v, ok, err := s2.Get(context.Background(), "k")
	if err != nil || !ok || v != "v" {
		t.Errorf("Get() after reopen = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}
}
