// Package school holds the organizational entities and their Postgres store:
// persons, branches, classes, tasks, submissions, and monthly documents.
package school

import (
	"fmt"
	"strings"
	"time"
)

// Role classifies a registered person.
type Role string

const (
	RoleStudent Role = "student"
	RoleCurator Role = "curator"
	RoleParent  Role = "parent"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleCurator:
		return RoleCurator, nil
	case RoleParent:
		return RoleParent, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Person is the permanent record created at registration completion.
// Role and affiliations are immutable after creation.
type Person struct {
	ID        int64
	Identity  string
	FullName  string
	Role      Role
	BranchID  *int64
	ClassID   *int64
	ChildID   *int64
	CreatedAt time.Time
}

// Branch is read-only reference data.
type Branch struct {
	ID   int64
	Name string
}

// Class belongs to exactly one branch.
type Class struct {
	ID       int64
	BranchID int64
	Name     string
}

// Task is read-only reference data students submit against.
type Task struct {
	ID          int64
	Title       string
	Description string
}

// Submission records one accepted video for a (student, task, day) key.
// FilePath is relative to the media root.
type Submission struct {
	ID          int64
	StudentID   int64
	TaskID      int64
	FilePath    string
	SubmittedAt time.Time
}

// MonthlyDocument is a curator-uploaded reading material, grouped by month.
type MonthlyDocument struct {
	ID         int64
	MonthLabel string
	FilePath   string
	UploaderID int64
	UploadedAt time.Time
}

// CreatePersonParams carries the fields for a new person row.
type CreatePersonParams struct {
	Identity string
	FullName string
	Role     Role
	BranchID *int64
	ClassID  *int64
	ChildID  *int64
}

// CreateSubmissionParams carries the fields for a new submission row.
type CreateSubmissionParams struct {
	StudentID   int64
	TaskID      int64
	FilePath    string
	SubmittedAt time.Time
}

// CreateMonthlyDocumentParams carries the fields for a new document row.
type CreateMonthlyDocumentParams struct {
	MonthLabel string
	FilePath   string
	UploaderID int64
	UploadedAt time.Time
}
