package store

import (
	"strings"
	"testing"
)

func TestBreadcrumb(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	src, _ := s.CreateFolder("alice", p.ID, "", "src")
	internal, _ := s.CreateFolder("alice", p.ID, src.ID, "internal")
	f, _ := s.CreateFile("alice", p.ID, internal.ID, "util.go", "")

	trail, err := s.Breadcrumb("alice", p.ID, f.ID)
	if err != nil {
		t.Fatalf("Breadcrumb: %v", err)
	}
	if got := PathString(trail); got != "src/internal/util.go" {
		t.Errorf("PathString = %q, want %q", got, "src/internal/util.go")
	}
	if trail[0].ID != src.ID || trail[2].ID != f.ID {
		t.Errorf("trail order wrong: %+v", trail)
	}
}

func TestBreadcrumbRootNode(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")
	f, _ := s.CreateFile("alice", p.ID, "", "main.go", "")

	trail, err := s.Breadcrumb("alice", p.ID, f.ID)
	if err != nil {
		t.Fatalf("Breadcrumb: %v", err)
	}
	if len(trail) != 1 || trail[0].Name != "main.go" {
		t.Errorf("trail = %+v, want just the file", trail)
	}
}

func TestBreadcrumbDetectsCycle(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	a, _ := s.CreateFolder("alice", p.ID, "", "a")
	b, _ := s.CreateFolder("alice", p.ID, a.ID, "b")

	// Corrupt the tree: a's parent becomes its own child.
	if _, err := s.db.Exec(`UPDATE nodes SET parent_id = ? WHERE id = ?`, b.ID, a.ID); err != nil {
		t.Fatalf("corrupt parent link: %v", err)
	}

	_, err := s.Breadcrumb("alice", p.ID, b.ID)
	if err == nil {
		t.Fatal("Breadcrumb on a cyclic tree must fail")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("err = %v, want cycle report", err)
	}
}
