package query

import "github.com/ternarybob/reperio/internal/models"

// State is the caller-controlled query over a result snapshot. PageIndex is
// 1-based. PageSize comes from the viewing context, never from the data.
type State struct {
	Filters   *models.SearchFilters
	SortField string
	SortDir   Direction
	PageIndex int
	PageSize  int
}

// NewState creates a query state on page 1 with the given page size and no
// filter or sort.
func NewState(pageSize int) State {
	return State{
		SortDir:   Ascending,
		PageIndex: 1,
		PageSize:  pageSize,
	}
}

// SetFilters replaces the filter set. Changing filters resets the page
// index to 1.
func (s *State) SetFilters(filters *models.SearchFilters) {
	s.Filters = filters
	s.PageIndex = 1
}

// SetSort replaces the sort field and direction. Changing sort keeps the
// current page index.
func (s *State) SetSort(field string, dir Direction) {
	s.SortField = field
	s.SortDir = dir
}

// SetPage moves to a 1-based page index. Out-of-range pages are allowed
// and simply yield an empty page when queried.
func (s *State) SetPage(pageIndex int) {
	s.PageIndex = pageIndex
}

// SetPageSize recomputes the page size from the viewing context
func (s *State) SetPageSize(pageSize int) {
	s.PageSize = pageSize
}
