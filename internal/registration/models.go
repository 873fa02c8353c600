package registration

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus represents the lifecycle state of an enrollment
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "PENDING"
	EnrollmentEnrolled EnrollmentStatus = "ENROLLED"
	EnrollmentDropped  EnrollmentStatus = "DROPPED"
	EnrollmentRejected EnrollmentStatus = "REJECTED"
)

// IsValid checks if the enrollment status is valid
func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentPending, EnrollmentEnrolled, EnrollmentDropped, EnrollmentRejected:
		return true
	default:
		return false
	}
}

// Registration event types recorded in the audit log and mirrored to the
// stream.
const (
	EventApplied             = "APPLIED"
	EventSeatBooked          = "SEAT_BOOKED"
	EventSeatReleased        = "SEAT_RELEASED"
	EventDropped             = "DROPPED"
	EventAutoAllocated       = "AUTO_ALLOCATED"
	EventBookingStatusChange = "BOOKING_STATUS_CHANGED"
)

// JSONMap is a map that serializes to a jsonb column
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("failed to scan JSONMap: unsupported type")
		}
	}
	return json.Unmarshal(bytes, m)
}

// GormDataType returns the gorm data type
func (JSONMap) GormDataType() string {
	return "jsonb"
}

// SeatBooking represents a student's hold on one physical seat. At most
// one active booking exists per seat and per (course, student); released
// bookings are kept with IsActive false for the audit trail.
type SeatBooking struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseID   uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;index:idx_seat_bookings_course_seat"`
	StudentID  uuid.UUID  `json:"student_id" gorm:"type:uuid;not null;index"`
	SeatNumber string     `json:"seat_number" gorm:"type:varchar(8);not null;index:idx_seat_bookings_course_seat"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true;index:idx_seat_bookings_course_seat"`
	BookedAt   time.Time  `json:"booked_at" gorm:"not null"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default table name
func (SeatBooking) TableName() string {
	return "seat_bookings"
}

// Enrollment tracks a student's overall standing in a course across
// waitlisting, seat booking, and dropping. One row per (course, student);
// SeatNumber and EnrolledAt are set while enrolled, DroppedAt after a
// drop, so status reads need no join against the bookings table.
type Enrollment struct {
	ID         uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseID   uuid.UUID        `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_course_student"`
	StudentID  uuid.UUID        `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_course_student"`
	Status     EnrollmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	SeatNumber *string          `json:"seat_number,omitempty" gorm:"type:varchar(8)"`
	EnrolledAt *time.Time       `json:"enrolled_at,omitempty"`
	DroppedAt  *time.Time       `json:"dropped_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default table name
func (Enrollment) TableName() string {
	return "enrollments"
}

// RegistrationEvent is the append-only audit record of everything that
// happened to a course's registration state. Events are written in the
// same transaction as the change they describe.
type RegistrationEvent struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseID  uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;index:idx_registration_events_course"`
	StudentID *uuid.UUID `json:"student_id,omitempty" gorm:"type:uuid;index"`
	EventType string     `json:"event_type" gorm:"type:varchar(40);not null"`
	Metadata  JSONMap    `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime;index:idx_registration_events_course"`
}

// TableName overrides the default table name
func (RegistrationEvent) TableName() string {
	return "registration_events"
}
