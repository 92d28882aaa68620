package search

import (
	"github.com/poiesic/docindex/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(userID, query string)
	AfterFragmentScan(scanned int)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)             {}
func (n *noopMonitor) AfterFragmentScan(_ int)       {}
func (n *noopMonitor) Finish(_ []*core.SearchResult) {}
