package storage

import "fmt"

// SessionResourcePaths generates the resource URIs available for a
// session, based on what the session currently holds.
func SessionResourcePaths(s *Session) []string {
	paths := []string{
		fmt.Sprintf("session://%s/report", s.ID),
	}

	if s.Critique != nil {
		paths = append(paths,
			fmt.Sprintf("session://%s/critique", s.ID),
			fmt.Sprintf("session://%s/findings", s.ID),
		)
	}

	if len(s.Marks) > 0 {
		paths = append(paths, fmt.Sprintf("session://%s/marks", s.ID))
	}

	return paths
}
