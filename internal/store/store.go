// Package store holds the requirements of the open project in memory and
// groups them into the board's status columns. The board re-reads it after
// every reload; it is never edited in place by a drag.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/h0rv/reqboard/internal/domain"
)

var (
	// ErrNoProject indicates no project has been set in the store.
	ErrNoProject = errors.New("no project set")
	// ErrRequirementNotFound indicates the requested requirement does not exist.
	ErrRequirementNotFound = errors.New("requirement not found")
	// ErrNoColumns indicates a board without status columns.
	ErrNoColumns = errors.New("no status columns configured")
)

// Store manages the requirements of one project.
type Store struct {
	projectID string

	// Board columns in display order
	columns []domain.Status

	// Requirement storage, in server order
	reqs  map[string]domain.Requirement
	order []string

	// Column mapping: status -> []ID. An empty status counts as collected;
	// requirements whose status is not a board column are kept in unplaced.
	grouped  map[domain.Status][]string
	unplaced []string
}

// New creates an empty store for the given board columns. Duplicate and
// empty statuses are dropped.
func New(columns []domain.Status) (*Store, error) {
	seen := make(map[domain.Status]bool, len(columns))
	cols := make([]domain.Status, 0, len(columns))
	for _, c := range columns {
		c = domain.Status(strings.TrimSpace(string(c)))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}

	return &Store{
		columns: cols,
		reqs:    make(map[string]domain.Requirement),
		grouped: make(map[domain.Status][]string),
	}, nil
}

// SetProject sets the current project id.
func (s *Store) SetProject(projectID string) {
	s.projectID = projectID
}

// Project returns the current project id, or ErrNoProject.
func (s *Store) Project() (string, error) {
	if s.projectID == "" {
		return "", ErrNoProject
	}
	return s.projectID, nil
}

// Replace swaps the stored requirements for a freshly fetched list. Later
// duplicates of an id win; the first occurrence keeps its position.
func (s *Store) Replace(reqs []domain.Requirement) {
	s.reqs = make(map[string]domain.Requirement, len(reqs))
	s.order = s.order[:0]
	for _, r := range reqs {
		if r.ID == "" {
			continue
		}
		if _, exists := s.reqs[r.ID]; !exists {
			s.order = append(s.order, r.ID)
		}
		s.reqs[r.ID] = r
	}
	s.rebuildColumns()
}

// Get retrieves a requirement by id.
func (s *Store) Get(id string) (domain.Requirement, error) {
	r, ok := s.reqs[id]
	if !ok {
		return domain.Requirement{}, fmt.Errorf("%w: %s", ErrRequirementNotFound, id)
	}
	return r, nil
}

// All returns every requirement in server order.
func (s *Store) All() []domain.Requirement {
	out := make([]domain.Requirement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.reqs[id])
	}
	return out
}

// Len returns the number of stored requirements.
func (s *Store) Len() int {
	return len(s.order)
}

// Columns returns the board columns in display order.
func (s *Store) Columns() []domain.Status {
	out := make([]domain.Status, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnIDs returns the requirement ids shown in one column.
func (s *Store) ColumnIDs(status domain.Status) []string {
	ids := s.grouped[status]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Unplaced returns the ids of requirements whose status has no column on
// this board, e.g. in_progress on the default four-column board.
func (s *Store) Unplaced() []string {
	out := make([]string, len(s.unplaced))
	copy(out, s.unplaced)
	return out
}

// Filter returns the ids in one column whose title, id, category or priority
// contains query, case-insensitively. An empty query matches everything.
func (s *Store) Filter(status domain.Status, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.ColumnIDs(status)
	}

	var out []string
	for _, id := range s.grouped[status] {
		if matches(s.reqs[id], query) {
			out = append(out, id)
		}
	}
	return out
}

func matches(r domain.Requirement, query string) bool {
	for _, field := range []string{r.ID, r.Title, r.Category, r.Priority} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// rebuildColumns reconstructs the column mapping from the stored
// requirements, preserving server order inside each column.
func (s *Store) rebuildColumns() {
	s.grouped = make(map[domain.Status][]string, len(s.columns))
	s.unplaced = nil

	onBoard := make(map[domain.Status]bool, len(s.columns))
	for _, c := range s.columns {
		onBoard[c] = true
	}

	for _, id := range s.order {
		status := s.reqs[id].Status
		if status == "" {
			status = domain.StatusCollected
		}
		if !onBoard[status] {
			s.unplaced = append(s.unplaced, id)
			continue
		}
		s.grouped[status] = append(s.grouped[status], id)
	}
}

// Clear drops every requirement, preserving project and columns.
func (s *Store) Clear() {
	s.reqs = make(map[string]domain.Requirement)
	s.order = nil
	s.rebuildColumns()
}
