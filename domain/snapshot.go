package domain

import (
	"fmt"
)

// FileChangeStatus classifies a single file-level change within a tree snapshot.
type FileChangeStatus string

const (
	FileAdded    FileChangeStatus = "added"
	FileModified FileChangeStatus = "modified"
	FileDeleted  FileChangeStatus = "deleted"
)

// FileChange is one file-level entry of a tree snapshot diff. Path is relative
// to the repository root, using forward slashes.
type FileChange struct {
	Path   string           `json:"path"`
	Status FileChangeStatus `json:"status"`
}

// TreeSnapshot is a point-in-time description of a remote working tree,
// produced by the agent-tracking service and consumed exactly once when
// replaying the remote work onto a local checkout. ArchiveUrl points at a
// tar.gz payload containing the added and modified files.
type TreeSnapshot struct {
	TreeHash   string       `json:"treeHash"`
	BaseCommit string       `json:"baseCommit"`
	ArchiveUrl string       `json:"archiveUrl,omitempty"`
	Changes    []FileChange `json:"changes"`
}

// Validate checks that the snapshot carries enough information to be applied.
func (s TreeSnapshot) Validate() error {
	if s.TreeHash == "" {
		return fmt.Errorf("tree snapshot is missing a tree hash")
	}
	if s.BaseCommit == "" {
		return fmt.Errorf("tree snapshot is missing a base commit")
	}
	for _, change := range s.Changes {
		if change.Path == "" {
			return fmt.Errorf("tree snapshot contains a change with an empty path")
		}
		switch change.Status {
		case FileAdded, FileModified, FileDeleted:
		default:
			return fmt.Errorf("tree snapshot contains an unknown change status %q for %s", change.Status, change.Path)
		}
	}
	return nil
}

// DeletedPaths returns the paths the snapshot marks as deleted, in order.
func (s TreeSnapshot) DeletedPaths() []string {
	var paths []string
	for _, change := range s.Changes {
		if change.Status == FileDeleted {
			paths = append(paths, change.Path)
		}
	}
	return paths
}
