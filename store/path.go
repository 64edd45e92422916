package store

import "fmt"

// Breadcrumb returns the path from the project root to nodeID,
// inclusive. The walk is iterative, following parent links upward, and
// keeps a visited set so a corrupted parent cycle surfaces as an error
// instead of a hang.
func (s *Store) Breadcrumb(ownerID, projectID, nodeID string) ([]Node, error) {
	n, err := s.Node(ownerID, projectID, nodeID)
	if err != nil {
		return nil, err
	}

	var trail []Node
	visited := map[string]struct{}{}
	for {
		if _, ok := visited[n.ID]; ok {
			return nil, fmt.Errorf("store: parent cycle at node %s", n.ID)
		}
		visited[n.ID] = struct{}{}
		trail = append(trail, *n)
		if n.ParentID == "" {
			break
		}
		n, err = s.node(projectID, n.ParentID)
		if err != nil {
			return nil, fmt.Errorf("walk breadcrumb: %w", err)
		}
	}

	// The walk goes leaf to root; callers want root to leaf.
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail, nil
}

// PathString renders a breadcrumb as "folder/sub/file.go".
func PathString(trail []Node) string {
	path := ""
	for i, n := range trail {
		if i > 0 {
			path += "/"
		}
		path += n.Name
	}
	return path
}
