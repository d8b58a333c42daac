// Package roster manages students, training groups and their members.
package roster

import (
	"context"
	"time"
)

// Student is an academy member.
type Student struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Level         string    `json:"level"`
	GuardianPhone string    `json:"guardian_phone,omitempty"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	Active        bool      `json:"active"`
	AccountID     *string   `json:"account_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Member is a student enrolled in a group, in enrolment order.
type Member struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
}

// Group is a training group with an encoded weekly schedule.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CoachID   *string   `json:"coach_id,omitempty"`
	CoachName string    `json:"coach_name,omitempty"`
	Schedule  string    `json:"schedule"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentFilter narrows ListStudents.
type StudentFilter struct {
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository is the persistence the roster service needs.
type Repository interface {
	CreateStudent(ctx context.Context, s Student) (Student, error)
	UpdateStudent(ctx context.Context, s Student) error
	GetStudent(ctx context.Context, id string) (*Student, error)
	ListStudents(ctx context.Context, f StudentFilter) ([]Student, error)

	CreateGroup(ctx context.Context, g Group) (Group, error)
	UpdateGroup(ctx context.Context, g Group) error
	DeleteGroup(ctx context.Context, id string) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	// ListGroups returns groups with members. An empty coachID lists all groups.
	ListGroups(ctx context.Context, coachID string) ([]Group, error)
	AddMember(ctx context.Context, groupID, studentID string) error
	RemoveMember(ctx context.Context, groupID, studentID string) error
}
