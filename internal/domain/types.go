// Package domain defines the normalized types shared by the board, the gateway
// and the notification layer. They are independent of the web service's JSON
// shapes and of the terminal rendering.
package domain

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyCardID indicates a transition without a card identifier.
	ErrEmptyCardID = errors.New("empty card id")
	// ErrEmptyStatus indicates a transition without a target status.
	ErrEmptyStatus = errors.New("empty target status")
)

// Status is a requirement status token as the web service stores it.
type Status string

// Requirement statuses known to the web service.
const (
	StatusCollected  Status = "collected"
	StatusAnalyzing  Status = "analyzing"
	StatusConfirmed  Status = "confirmed"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// AllStatuses lists every status the web service uses, in workflow order.
var AllStatuses = []Status{
	StatusCollected,
	StatusAnalyzing,
	StatusConfirmed,
	StatusRejected,
	StatusInProgress,
	StatusCompleted,
}

// DefaultBoardStatuses are the columns of the web service's kanban page.
var DefaultBoardStatuses = []Status{
	StatusCollected,
	StatusAnalyzing,
	StatusConfirmed,
	StatusRejected,
}

// Label returns a human readable column title, e.g. "In Progress" for
// "in_progress".
func (s Status) Label() string {
	words := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

// Requirement is one requirement as listed by the web service.
type Requirement struct {
	ID                 string  // Server identifier, rendered as the card ID
	Title              string  // Requirement title
	Description        string  // Composed description text
	RequirementType    string  // Free-form type
	Scenario           string  // Usage scenario
	Problem            string  // Problem being solved
	Goal               string  // Expected goal
	ExpectedSolution   string  // Proposed solution
	AcceptanceCriteria string  // Acceptance criteria
	Source             string  // Where the requirement came from
	Category           string  // functional, non_functional, ...
	Priority           string  // low, medium, high, critical
	Status             Status  // Current status (column)
	EstimatedROI       float64 // Estimated return on investment
}

// TransitionRequest is the payload of one status change. It is built at drop
// time and never stored.
type TransitionRequest struct {
	CardID       string
	TargetStatus Status
}

// Validate checks that the request names a card and a target status. The
// status enumeration itself belongs to the server; the board only ever
// offers statuses it was configured with.
func (r TransitionRequest) Validate() error {
	if strings.TrimSpace(r.CardID) == "" {
		return ErrEmptyCardID
	}
	if strings.TrimSpace(string(r.TargetStatus)) == "" {
		return ErrEmptyStatus
	}
	return nil
}

// TransitionResult is the server's answer to a status change. A response
// without a boolean success field decodes to Success == false.
type TransitionResult struct {
	Success bool
	Error   string // Optional server-side error text
}

// Outcome pairs a transition request with either a result or a failure.
type Outcome struct {
	Request TransitionRequest
	Result  TransitionResult
	Err     error
}

// Accepted reports whether the server confirmed the transition.
func (o Outcome) Accepted() bool {
	return o.Err == nil && o.Result.Success
}

// Level selects the visual category of a notification.
type Level int

// Notification levels. LevelInfo is the zero value.
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "info"
}
