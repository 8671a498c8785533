package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits for TaskItem.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 500
)

// TaskStatus is the workflow state of a task. The numeric values are part of
// the wire format.
type TaskStatus int

const (
	TaskStatusNew        TaskStatus = 0
	TaskStatusInProgress TaskStatus = 1
	TaskStatusDone       TaskStatus = 2
)

// IsValid reports whether s is one of the defined statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

func (s TaskStatus) String() string {
	switch s {
	case TaskStatusNew:
		return "New"
	case TaskStatusInProgress:
		return "InProgress"
	case TaskStatusDone:
		return "Done"
	}
	return fmt.Sprintf("TaskStatus(%d)", int(s))
}

// TaskItem is a unit of work owned by a single user.
//
// ID is assigned by the store when the task is first committed. Version is the
// optimistic concurrency token; it changes on every committed update and is
// never exposed to clients.
type TaskItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	OwnerID     *string    `json:"owner_id,omitempty"`
	Version     int64      `json:"-"`
}

// NewTaskItem creates an unowned task. The caller must assign an owner before
// the task is committed.
func NewTaskItem(title string, description *string, status TaskStatus) (*TaskItem, error) {
	task := &TaskItem{
		Title:       title,
		Description: cloneString(description),
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the task's fields and returns a *ValidationErrors listing
// every violated rule, or nil.
func (t *TaskItem) Validate() error {
	return ValidateTaskFields(t.Title, t.Description, t.Status)
}

// ValidateTaskFields applies the task field rules without constructing a task.
func ValidateTaskFields(title string, description *string, status TaskStatus) error {
	verr := &ValidationErrors{}

	if strings.TrimSpace(title) == "" {
		verr.Add("title is required")
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		verr.Add(fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}

	if description != nil && utf8.RuneCountInString(*description) > MaxDescriptionLength {
		verr.Add(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}

	if !status.IsValid() {
		verr.Add("status must be one of 0 (New), 1 (InProgress), 2 (Done)")
	}

	return verr.ErrOrNil()
}

// AssignOwner sets the task's owner. Ownership is immutable once assigned.
func (t *TaskItem) AssignOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrEmptyOwnerID
	}
	if t.OwnerID != nil {
		if *t.OwnerID == ownerID {
			return nil
		}
		return ErrOwnerAlreadyAssigned
	}
	t.OwnerID = &ownerID
	return nil
}

// IsOwnedBy reports whether the task belongs to ownerID.
func (t *TaskItem) IsOwnedBy(ownerID string) bool {
	return t.OwnerID != nil && *t.OwnerID == ownerID
}

// ApplyUpdate replaces the mutable fields after validating them. Owner and
// creation time are left untouched. On error t is unchanged.
func (t *TaskItem) ApplyUpdate(title string, description *string, status TaskStatus) error {
	if err := ValidateTaskFields(title, description, status); err != nil {
		return err
	}
	t.Title = title
	t.Description = cloneString(description)
	t.Status = status
	return nil
}

// Clone returns a deep copy of t.
func (t *TaskItem) Clone() *TaskItem {
	if t == nil {
		return nil
	}
	c := *t
	c.Description = cloneString(t.Description)
	c.OwnerID = cloneString(t.OwnerID)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
