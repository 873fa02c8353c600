package students

import (
	"time"

	"coursely/internal/courses"

	"github.com/google/uuid"
)

// Student represents a registered student. The registration core reads
// students; profile mutation belongs to the admin surface.
type Student struct {
	ID               uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID       string             `json:"external_id" gorm:"type:varchar(40);not null;uniqueIndex"`
	RollNumber       string             `json:"roll_number" gorm:"type:varchar(40)"`
	Email            string             `json:"email" gorm:"type:varchar(255);not null"`
	Name             string             `json:"name" gorm:"type:varchar(255);not null"`
	GPA              float64            `json:"gpa" gorm:"not null;default:0"`
	YearOfStudy      int                `json:"year_of_study" gorm:"not null;default:1"`
	Branch           string             `json:"branch" gorm:"type:varchar(100)"`
	Interests        courses.StringList `json:"interests" gorm:"type:jsonb"`
	CompletedCourses courses.StringList `json:"completed_courses" gorm:"type:jsonb"`
	CreatedAt        time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

// HasCompleted reports whether the student finished the given course
// (by external course id).
func (s *Student) HasCompleted(courseExternalID string) bool {
	for _, completed := range s.CompletedCourses {
		if completed == courseExternalID {
			return true
		}
	}
	return false
}
