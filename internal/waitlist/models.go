package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a waitlist entry
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusProcessing Status = "PROCESSING"
	StatusAllocated  Status = "ALLOCATED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid checks if the waitlist status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusProcessing, StatusAllocated, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusAllocated || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusWaiting:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusAllocated, StatusWaiting},
		StatusAllocated:  {}, // Terminal state
		StatusCancelled:  {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Entry represents a student's pending claim on a course, ordered by
// composite score. At most one non-terminal entry exists per
// (course, student) pair.
type Entry struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseID      uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index:idx_waitlist_course_status"`
	StudentID     uuid.UUID `json:"student_id" gorm:"type:uuid;not null;index"`
	AppliedAt     time.Time `json:"applied_at" gorm:"not null"`
	PreferredSeat *string   `json:"preferred_seat,omitempty" gorm:"type:varchar(8)"`

	GPAScore       float64 `json:"gpa_score" gorm:"not null;default:0"`
	InterestScore  float64 `json:"interest_score" gorm:"not null;default:0"`
	TimeScore      float64 `json:"time_score" gorm:"not null;default:0"`
	YearScore      float64 `json:"year_score" gorm:"not null;default:0"`
	PrereqScore    float64 `json:"prereq_score" gorm:"not null;default:0"`
	CompositeScore float64 `json:"composite_score" gorm:"not null;default:0;index"`

	Status    Status    `json:"status" gorm:"type:varchar(20);not null;index:idx_waitlist_course_status"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default table name
func (Entry) TableName() string {
	return "waitlist_entries"
}

// Redis key helpers. The ZSET mirror keeps size and top-N queries off the
// database; ordering authority stays with Postgres.

// QueueKey returns the Redis key for a course's waitlist queue
func QueueKey(courseID uuid.UUID) string {
	return "coursely:waitlist:queue:" + courseID.String()
}

// LockKey returns the Redis key used to serialize allocation per course
func LockKey(courseID uuid.UUID) string {
	return "coursely:waitlist:lock:" + courseID.String()
}
