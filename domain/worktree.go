package domain

import (
	"time"
)

// WorktreeInfo describes one managed git worktree. A worktree maps 1:1 to a
// checked-out branch. BaseBranch and CreatedAt are application-level metadata:
// git does not record them, so they are only populated at creation time and
// left zero when re-listing existing worktrees.
type WorktreeInfo struct {
	WorktreePath string    `json:"worktreePath"`
	WorktreeName string    `json:"worktreeName"`
	BranchName   string    `json:"branchName"`
	BaseBranch   string    `json:"baseBranch,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}
