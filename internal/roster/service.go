package roster

import (
	"context"
	"log"
	"strings"

	"academy/internal/apperr"
	"academy/internal/cloudinary"
	"academy/internal/events"
	"academy/internal/schedule"
)

// ImageUploader stores student photos.
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Service validates roster changes and announces group changes on the bus.
type Service struct {
	repo   Repository
	bus    events.Bus
	images ImageUploader
}

// NewService creates a service. images may be nil when uploads are not configured.
func NewService(repo Repository, bus events.Bus, images ImageUploader) *Service {
	return &Service{repo: repo, bus: bus, images: images}
}

// StudentInput is the create/update payload for a student.
type StudentInput struct {
	FullName      string  `json:"full_name" binding:"required"`
	Level         string  `json:"level"`
	GuardianPhone string  `json:"guardian_phone" binding:"omitempty,e164"`
	Active        *bool   `json:"active"`
	AccountID     *string `json:"account_id" binding:"omitempty,uuid"`
}

// CreateStudent adds a student; new students are active unless stated otherwise.
func (s *Service) CreateStudent(ctx context.Context, in StudentInput) (Student, error) {
	st := Student{
		FullName:      strings.TrimSpace(in.FullName),
		Level:         strings.TrimSpace(in.Level),
		GuardianPhone: in.GuardianPhone,
		Active:        true,
		AccountID:     in.AccountID,
	}
	if in.Active != nil {
		st.Active = *in.Active
	}
	if st.FullName == "" {
		return Student{}, apperr.Invalid("full_name must not be empty")
	}
	return s.repo.CreateStudent(ctx, st)
}

// UpdateStudent replaces a student's editable fields.
func (s *Service) UpdateStudent(ctx context.Context, id string, in StudentInput) (Student, error) {
	st, err := s.Student(ctx, id)
	if err != nil {
		return Student{}, err
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return Student{}, apperr.Invalid("full_name must not be empty")
	}
	st.FullName = name
	st.Level = strings.TrimSpace(in.Level)
	st.GuardianPhone = in.GuardianPhone
	st.AccountID = in.AccountID
	if in.Active != nil {
		st.Active = *in.Active
	}
	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, err
	}
	// Deactivation removes the student from live rosters.
	s.emit(ctx, map[string]string{"student_id": id})
	return st, nil
}

// Student returns one student or NOT_FOUND.
func (s *Service) Student(ctx context.Context, id string) (Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, apperr.NotFound("student not found")
	}
	return *st, nil
}

// Students lists students.
func (s *Service) Students(ctx context.Context, f StudentFilter) ([]Student, error) {
	list, err := s.repo.ListStudents(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Student{}
	}
	return list, nil
}

// SetPhoto uploads a photo and stores its public URL on the student.
func (s *Service) SetPhoto(ctx context.Context, id string, data []byte, filename string) (Student, error) {
	if s.images == nil {
		return Student{}, apperr.New(apperr.CodeUnavailable, "image storage not configured")
	}
	st, err := s.Student(ctx, id)
	if err != nil {
		return Student{}, err
	}
	res, err := s.images.UploadImage(ctx, data, filename)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.CodeUnavailable, "photo upload failed", err)
	}
	st.PhotoURL = res.SecureURL
	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// GroupInput is the create/update payload for a group.
type GroupInput struct {
	Name     string  `json:"name" binding:"required"`
	CoachID  *string `json:"coach_id" binding:"omitempty,uuid"`
	Schedule string  `json:"schedule" binding:"schedule"`
}

// CreateGroup validates the schedule strictly and stores it canonically.
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (Group, error) {
	g, err := groupFromInput(in)
	if err != nil {
		return Group{}, err
	}
	g, err = s.repo.CreateGroup(ctx, g)
	if err != nil {
		return Group{}, err
	}
	s.groupChanged(ctx, g.ID)
	return g, nil
}

// UpdateGroup replaces name, coach and schedule.
func (s *Service) UpdateGroup(ctx context.Context, id string, in GroupInput) (Group, error) {
	existing, err := s.Group(ctx, id)
	if err != nil {
		return Group{}, err
	}
	g, err := groupFromInput(in)
	if err != nil {
		return Group{}, err
	}
	g.ID, g.CreatedAt, g.Members = existing.ID, existing.CreatedAt, existing.Members
	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return Group{}, err
	}
	s.groupChanged(ctx, id)
	return g, nil
}

// DeleteGroup removes a group.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	if _, err := s.Group(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.groupChanged(ctx, id)
	return nil
}

// Group returns one group or NOT_FOUND.
func (s *Service) Group(ctx context.Context, id string) (Group, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if g == nil {
		return Group{}, apperr.NotFound("group not found")
	}
	return *g, nil
}

// Groups lists groups with members; coachID narrows to one coach.
func (s *Service) Groups(ctx context.Context, coachID string) ([]Group, error) {
	list, err := s.repo.ListGroups(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Group{}
	}
	return list, nil
}

// GroupsOn lists groups with at least one session on day. An empty day lists
// every group.
func (s *Service) GroupsOn(ctx context.Context, coachID, day string) ([]Group, error) {
	list, err := s.Groups(ctx, coachID)
	if err != nil || day == "" {
		return list, err
	}
	if !schedule.KnownDay(day) {
		return nil, apperr.Invalid("unknown day " + day)
	}
	out := make([]Group, 0, len(list))
	for _, g := range list {
		if len(schedule.Parse(g.Schedule).OnDay(day)) > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

// AddMember enrols an active student in a group.
func (s *Service) AddMember(ctx context.Context, groupID, studentID string) error {
	if _, err := s.Group(ctx, groupID); err != nil {
		return err
	}
	st, err := s.Student(ctx, studentID)
	if err != nil {
		return err
	}
	if !st.Active {
		return apperr.Invalid("student is not active")
	}
	if err := s.repo.AddMember(ctx, groupID, studentID); err != nil {
		return err
	}
	s.groupChanged(ctx, groupID)
	return nil
}

// RemoveMember drops an enrolment.
func (s *Service) RemoveMember(ctx context.Context, groupID, studentID string) error {
	if err := s.repo.RemoveMember(ctx, groupID, studentID); err != nil {
		return err
	}
	s.groupChanged(ctx, groupID)
	return nil
}

func (s *Service) groupChanged(ctx context.Context, groupID string) {
	s.emit(ctx, map[string]string{"group_id": groupID})
}

func (s *Service) emit(ctx context.Context, payload map[string]string) {
	if err := events.Emit(ctx, s.bus, events.GroupChanged, payload); err != nil {
		log.Printf("event publish failed: %v", err)
	}
}

func groupFromInput(in GroupInput) (Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Group{}, apperr.Invalid("name must not be empty")
	}
	if err := schedule.Validate(in.Schedule); err != nil {
		return Group{}, apperr.Wrap(apperr.CodeInvalidArgument, "invalid schedule", err)
	}
	return Group{Name: name, CoachID: in.CoachID, Schedule: schedule.Parse(in.Schedule).String()}, nil
}
