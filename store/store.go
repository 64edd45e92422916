// Package store is the SQLite-backed project and file store. Projects
// belong to an owner; files and folders form a tree via parent links.
// Every caller-facing operation checks project ownership first, so a
// leaked project id is not enough to read or mutate its files.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound means the project or node does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrNameTaken means a sibling of the same type already has the name.
	ErrNameTaken = errors.New("store: name taken")
	// ErrNotOwner means the caller does not own the project.
	ErrNotOwner = errors.New("store: not owner")
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	parent_id  TEXT REFERENCES nodes(id),
	name       TEXT NOT NULL,
	is_folder  INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS contents (
	node_id    TEXT PRIMARY KEY REFERENCES nodes(id),
	body       TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(project_id, parent_id);
`

// Project is an owned workspace.
type Project struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Node is a file or folder in a project tree. ParentID is empty for
// roots.
type Node struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	ParentID  string    `json:"parentId,omitempty"`
	Name      string    `json:"name"`
	IsFolder  bool      `json:"isFolder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store handles SQLite operations for projects and files.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProject creates a project for ownerID.
func (s *Store) CreateProject(ownerID, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("store: empty project name")
	}
	now := time.Now().UTC()
	p := &Project{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (id, owner_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Project returns a project after checking ownership.
func (s *Store) Project(ownerID, projectID string) (*Project, error) {
	var p Project
	err := s.db.QueryRow(
		`SELECT id, owner_id, name, created_at, updated_at FROM projects WHERE id = ?`,
		projectID,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if p.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return &p, nil
}

// Projects lists an owner's projects, newest first.
func (s *Store) Projects(ownerID string) ([]Project, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, name, created_at, updated_at FROM projects
		 WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and everything under it.
func (s *Store) DeleteProject(ownerID, projectID string) error {
	if _, err := s.Project(ownerID, projectID); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM contents WHERE node_id IN (SELECT id FROM nodes WHERE project_id = ?)`,
		projectID,
	); err != nil {
		return fmt.Errorf("delete contents: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM nodes WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project row: %w", err)
	}
	return tx.Commit()
}

// CreateFile creates a file under parentID (empty for the project
// root) with the given initial content.
func (s *Store) CreateFile(ownerID, projectID, parentID, name, content string) (*Node, error) {
	n, err := s.createNode(ownerID, projectID, parentID, name, false)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(
		`INSERT INTO contents (node_id, body, updated_at) VALUES (?, ?, ?)`,
		n.ID, content, time.Now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("create file content: %w", err)
	}
	return n, nil
}

// CreateFolder creates a folder under parentID (empty for the project
// root).
func (s *Store) CreateFolder(ownerID, projectID, parentID, name string) (*Node, error) {
	return s.createNode(ownerID, projectID, parentID, name, true)
}

func (s *Store) createNode(ownerID, projectID, parentID, name string, isFolder bool) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return nil, fmt.Errorf("store: invalid name %q", name)
	}
	if _, err := s.Project(ownerID, projectID); err != nil {
		return nil, err
	}
	if parentID != "" {
		parent, err := s.node(projectID, parentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder {
			return nil, fmt.Errorf("store: parent %s is not a folder", parentID)
		}
	}
	taken, err := s.siblingNameTaken(projectID, parentID, name, isFolder, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNameTaken
	}

	now := time.Now().UTC()
	n := &Node{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ParentID:  parentID,
		Name:      name,
		IsFolder:  isFolder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.Exec(
		`INSERT INTO nodes (id, project_id, parent_id, name, is_folder, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.ProjectID, nullable(n.ParentID), n.Name, n.IsFolder, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}
	return n, nil
}

// Names are unique among siblings of the same type. A file and a
// folder may share a name; excludeID skips the node being renamed.
func (s *Store) siblingNameTaken(projectID, parentID, name string, isFolder bool, excludeID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM nodes
		 WHERE project_id = ? AND COALESCE(parent_id, '') = ? AND name = ? AND is_folder = ? AND id != ?`,
		projectID, parentID, name, isFolder, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sibling name: %w", err)
	}
	return count > 0, nil
}

func (s *Store) node(projectID, nodeID string) (*Node, error) {
	var n Node
	var parent sql.NullString
	err := s.db.QueryRow(
		`SELECT id, project_id, parent_id, name, is_folder, created_at, updated_at
		 FROM nodes WHERE id = ? AND project_id = ?`,
		nodeID, projectID,
	).Scan(&n.ID, &n.ProjectID, &parent, &n.Name, &n.IsFolder, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load node: %w", err)
	}
	n.ParentID = parent.String
	return &n, nil
}

// Node returns one file or folder after checking ownership.
func (s *Store) Node(ownerID, projectID, nodeID string) (*Node, error) {
	if _, err := s.Project(ownerID, projectID); err != nil {
		return nil, err
	}
	return s.node(projectID, nodeID)
}

// List returns the children of parentID (empty for the project root),
// folders first, then alphabetical within each group.
func (s *Store) List(ownerID, projectID, parentID string) ([]Node, error) {
	if _, err := s.Project(ownerID, projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, project_id, parent_id, name, is_folder, created_at, updated_at
		 FROM nodes WHERE project_id = ? AND COALESCE(parent_id, '') = ?
		 ORDER BY is_folder DESC, name COLLATE NOCASE ASC`,
		projectID, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// Search returns files whose name contains query, case-insensitive,
// alphabetical. Folders are excluded; quick-open targets files.
func (s *Store) Search(ownerID, projectID, query string) ([]Node, error) {
	if _, err := s.Project(ownerID, projectID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.Query(
		`SELECT id, project_id, parent_id, name, is_folder, created_at, updated_at
		 FROM nodes WHERE project_id = ? AND is_folder = 0 AND name LIKE ? ESCAPE '\'
		 ORDER BY name COLLATE NOCASE ASC`,
		projectID, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// Rename changes a node's name, keeping sibling uniqueness.
func (s *Store) Rename(ownerID, projectID, nodeID, newName string) (*Node, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" || strings.ContainsAny(newName, "/\x00") {
		return nil, fmt.Errorf("store: invalid name %q", newName)
	}
	n, err := s.Node(ownerID, projectID, nodeID)
	if err != nil {
		return nil, err
	}
	taken, err := s.siblingNameTaken(projectID, n.ParentID, newName, n.IsFolder, n.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNameTaken
	}

	now := time.Now().UTC()
	if _, err := s.db.Exec(
		`UPDATE nodes SET name = ?, updated_at = ? WHERE id = ?`,
		newName, now, n.ID,
	); err != nil {
		return nil, fmt.Errorf("rename node: %w", err)
	}
	n.Name = newName
	n.UpdatedAt = now
	return n, nil
}

// Delete removes a node. Folders are deleted recursively, content
// blobs included.
func (s *Store) Delete(ownerID, projectID, nodeID string) error {
	n, err := s.Node(ownerID, projectID, nodeID)
	if err != nil {
		return err
	}

	ids := []string{n.ID}
	if n.IsFolder {
		ids, err = s.subtreeIDs(projectID, n.ID)
		if err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM contents WHERE node_id = ?`, id); err != nil {
			return fmt.Errorf("delete content %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete node %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// subtreeIDs collects rootID and all descendants, children before
// parents so deletes do not trip the parent reference.
func (s *Store) subtreeIDs(projectID, rootID string) ([]string, error) {
	var order []string
	frontier := []string{rootID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)

		rows, err := s.db.Query(
			`SELECT id FROM nodes WHERE project_id = ? AND parent_id = ?`,
			projectID, id,
		)
		if err != nil {
			return nil, fmt.Errorf("walk subtree: %w", err)
		}
		for rows.Next() {
			var child string
			if err := rows.Scan(&child); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan subtree: %w", err)
			}
			frontier = append(frontier, child)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	// Reverse so leaves come first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Content returns a file's body.
func (s *Store) Content(ownerID, projectID, nodeID string) (string, error) {
	n, err := s.Node(ownerID, projectID, nodeID)
	if err != nil {
		return "", err
	}
	if n.IsFolder {
		return "", fmt.Errorf("store: %s is a folder", nodeID)
	}
	var body string
	err = s.db.QueryRow(`SELECT body FROM contents WHERE node_id = ?`, n.ID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load content: %w", err)
	}
	return body, nil
}

// SetContent replaces a file's body.
func (s *Store) SetContent(ownerID, projectID, nodeID, body string) error {
	n, err := s.Node(ownerID, projectID, nodeID)
	if err != nil {
		return err
	}
	if n.IsFolder {
		return fmt.Errorf("store: %s is a folder", nodeID)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT INTO contents (node_id, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		n.ID, body, now,
	)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	if _, err := tx.Exec(`UPDATE nodes SET updated_at = ? WHERE id = ?`, now, n.ID); err != nil {
		return fmt.Errorf("touch node: %w", err)
	}
	return tx.Commit()
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	var nodes []Node
	for rows.Next() {
		var n Node
		var parent sql.NullString
		if err := rows.Scan(&n.ID, &n.ProjectID, &parent, &n.Name, &n.IsFolder, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.ParentID = parent.String
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
