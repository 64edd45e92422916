package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "plume.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustProject(t *testing.T, s *Store, owner string) *Project {
	t.Helper()
	p, err := s.CreateProject(owner, "demo")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestProjectLifecycle(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	got, err := s.Project("alice", p.ID)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if got.Name != "demo" || got.OwnerID != "alice" {
		t.Errorf("Project = %+v", got)
	}

	list, err := s.Projects("alice")
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(Projects) = %d, want 1", len(list))
	}

	if err := s.DeleteProject("alice", p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := s.Project("alice", p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Project after delete: err = %v, want ErrNotFound", err)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")
	f, err := s.CreateFile("alice", p.ID, "", "main.go", "package main")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if _, err := s.Project("mallory", p.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Project as mallory: err = %v, want ErrNotOwner", err)
	}
	if _, err := s.Content("mallory", p.ID, f.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Content as mallory: err = %v, want ErrNotOwner", err)
	}
	if err := s.Delete("mallory", p.ID, f.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Delete as mallory: err = %v, want ErrNotOwner", err)
	}
	if _, err := s.List("mallory", p.ID, ""); !errors.Is(err, ErrNotOwner) {
		t.Errorf("List as mallory: err = %v, want ErrNotOwner", err)
	}
}

func TestSiblingNameUniqueness(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	if _, err := s.CreateFile("alice", p.ID, "", "notes", ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := s.CreateFile("alice", p.ID, "", "notes", ""); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate file: err = %v, want ErrNameTaken", err)
	}
	// A folder may share a file's name; uniqueness is per type.
	dir, err := s.CreateFolder("alice", p.ID, "", "notes")
	if err != nil {
		t.Fatalf("CreateFolder with file's name: %v", err)
	}
	if _, err := s.CreateFolder("alice", p.ID, "", "notes"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate folder: err = %v, want ErrNameTaken", err)
	}
	// Same name is fine under a different parent.
	if _, err := s.CreateFile("alice", p.ID, dir.ID, "notes", ""); err != nil {
		t.Errorf("CreateFile under folder: %v", err)
	}
}

func TestCreateFileInvalidInputs(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")
	f, _ := s.CreateFile("alice", p.ID, "", "plain.txt", "")

	if _, err := s.CreateFile("alice", p.ID, "", "  ", ""); err == nil {
		t.Error("blank name should be rejected")
	}
	if _, err := s.CreateFile("alice", p.ID, "", "a/b", ""); err == nil {
		t.Error("name with separator should be rejected")
	}
	if _, err := s.CreateFile("alice", p.ID, "no-such-parent", "x", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing parent: err = %v, want ErrNotFound", err)
	}
	if _, err := s.CreateFile("alice", p.ID, f.ID, "x", ""); err == nil {
		t.Error("file as parent should be rejected")
	}
}

func TestListFoldersFirstThenAlphabetical(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	for _, name := range []string{"zeta.go", "alpha.go"} {
		if _, err := s.CreateFile("alice", p.ID, "", name, ""); err != nil {
			t.Fatalf("CreateFile %s: %v", name, err)
		}
	}
	for _, name := range []string{"vendor", "cmd"} {
		if _, err := s.CreateFolder("alice", p.ID, "", name); err != nil {
			t.Fatalf("CreateFolder %s: %v", name, err)
		}
	}

	nodes, err := s.List("alice", p.ID, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	want := []string{"cmd", "vendor", "alpha.go", "zeta.go"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List = %v, want %v", names, want)
		}
	}
}

func TestContentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")
	f, err := s.CreateFile("alice", p.ID, "", "main.go", "package main")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	body, err := s.Content("alice", p.ID, f.ID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if body != "package main" {
		t.Errorf("Content = %q, want initial body", body)
	}

	if err := s.SetContent("alice", p.ID, f.ID, "package main\n\nfunc main() {}"); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	body, _ = s.Content("alice", p.ID, f.ID)
	if body != "package main\n\nfunc main() {}" {
		t.Errorf("Content after save = %q", body)
	}

	dir, _ := s.CreateFolder("alice", p.ID, "", "pkg")
	if _, err := s.Content("alice", p.ID, dir.ID); err == nil {
		t.Error("Content on a folder should fail")
	}
	if err := s.SetContent("alice", p.ID, dir.ID, "x"); err == nil {
		t.Error("SetContent on a folder should fail")
	}
}

func TestSetContentTouchesNode(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")
	f, err := s.CreateFile("alice", p.ID, "", "main.go", "package main")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.SetContent("alice", p.ID, f.ID, "package main\n"); err != nil {
		t.Fatalf("SetContent: %v", err)
	}

	n, err := s.Node("alice", p.ID, f.ID)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if !n.UpdatedAt.After(f.UpdatedAt) {
		t.Errorf("node UpdatedAt = %v, want later than %v", n.UpdatedAt, f.UpdatedAt)
	}
}

func TestRename(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")
	a, _ := s.CreateFile("alice", p.ID, "", "a.go", "")
	s.CreateFile("alice", p.ID, "", "b.go", "")

	got, err := s.Rename("alice", p.ID, a.ID, "c.go")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got.Name != "c.go" {
		t.Errorf("Name = %q, want %q", got.Name, "c.go")
	}

	if _, err := s.Rename("alice", p.ID, a.ID, "b.go"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("rename onto sibling: err = %v, want ErrNameTaken", err)
	}
	// Renaming to its own current name is a no-op, not a conflict.
	if _, err := s.Rename("alice", p.ID, a.ID, "c.go"); err != nil {
		t.Errorf("rename to same name: %v", err)
	}
}

func TestDeleteFolderRecursive(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	top, _ := s.CreateFolder("alice", p.ID, "", "src")
	sub, _ := s.CreateFolder("alice", p.ID, top.ID, "internal")
	f1, _ := s.CreateFile("alice", p.ID, top.ID, "main.go", "package main")
	f2, _ := s.CreateFile("alice", p.ID, sub.ID, "util.go", "package internal")
	keep, _ := s.CreateFile("alice", p.ID, "", "README.md", "hi")

	if err := s.Delete("alice", p.ID, top.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, id := range []string{top.ID, sub.ID, f1.ID, f2.ID} {
		if _, err := s.Node("alice", p.ID, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("node %s survived recursive delete (err = %v)", id, err)
		}
	}
	var blobs int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM contents`).Scan(&blobs); err != nil {
		t.Fatalf("count contents: %v", err)
	}
	if blobs != 1 {
		t.Errorf("content blobs = %d, want only the kept file's", blobs)
	}
	if _, err := s.Content("alice", p.ID, keep.ID); err != nil {
		t.Errorf("kept file unreadable: %v", err)
	}
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	p := mustProject(t, s, "alice")

	dir, _ := s.CreateFolder("alice", p.ID, "", "server")
	s.CreateFile("alice", p.ID, "", "server.go", "")
	s.CreateFile("alice", p.ID, dir.ID, "Server_test.go", "")
	s.CreateFile("alice", p.ID, "", "client.go", "")

	nodes, err := s.Search("alice", p.ID, "SERVER")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("Search = %d results, want 2 (folders excluded)", len(nodes))
	}
	if nodes[0].Name != "server.go" || nodes[1].Name != "Server_test.go" {
		t.Errorf("Search order = %q, %q", nodes[0].Name, nodes[1].Name)
	}

	if nodes, _ := s.Search("alice", p.ID, "  "); nodes != nil {
		t.Error("blank query should return nothing")
	}
	if nodes, _ := s.Search("alice", p.ID, "100%"); nodes != nil {
		t.Error("LIKE metacharacters must not match everything")
	}
}
