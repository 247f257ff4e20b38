package enums

import "fmt"

// IssueStatus tracks a post-delivery order issue.
type IssueStatus string

const (
	IssueStatusRaised   IssueStatus = "raised"
	IssueStatusResolved IssueStatus = "resolved"
	IssueStatusRejected IssueStatus = "rejected"
)

var validIssueStatuses = []IssueStatus{
	IssueStatusRaised,
	IssueStatusResolved,
	IssueStatusRejected,
}

// String implements fmt.Stringer.
func (s IssueStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known IssueStatus.
func (s IssueStatus) IsValid() bool {
	for _, candidate := range validIssueStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseIssueStatus converts raw input into an IssueStatus.
func ParseIssueStatus(value string) (IssueStatus, error) {
	for _, candidate := range validIssueStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue status %q", value)
}
