package courses

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StringList represents a JSON string array stored in a jsonb column
type StringList []string

// Value implements the driver.Valuer interface for database storage
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for database retrieval
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}

// GormDataType tells GORM how to handle this type
func (StringList) GormDataType() string {
	return "jsonb"
}

// Difficulty classifies a course's level
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// PreferredYears returns the years of study a difficulty level targets
func (d Difficulty) PreferredYears() []int {
	switch d {
	case DifficultyBeginner:
		return []int{1, 2}
	case DifficultyIntermediate:
		return []int{2, 3}
	case DifficultyAdvanced:
		return []int{3, 4}
	default:
		return nil
	}
}

// BookingStatus represents where a course sits in its registration lifecycle
type BookingStatus string

const (
	StatusClosed       BookingStatus = "CLOSED"
	StatusOpen         BookingStatus = "OPEN"
	StatusWaitlistOnly BookingStatus = "WAITLIST_ONLY"
	StatusStarted      BookingStatus = "STARTED"
	StatusCompleted    BookingStatus = "COMPLETED"
)

// IsValid checks if the booking status is a known state
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusClosed, StatusOpen, StatusWaitlistOnly, StatusStarted, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	validTransitions := map[BookingStatus][]BookingStatus{
		StatusClosed:       {StatusOpen, StatusWaitlistOnly},
		StatusOpen:         {StatusWaitlistOnly, StatusStarted},
		StatusWaitlistOnly: {StatusStarted},
		StatusStarted:      {StatusCompleted},
		StatusCompleted:    {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowsDirectBooking reports whether bookSeat may claim a seat in this state.
// CLOSED admits early registration and STARTED admits late registration; only
// WAITLIST_ONLY redirects to the queue and COMPLETED rejects outright.
func (s BookingStatus) AllowsDirectBooking() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusStarted:
		return true
	default:
		return false
	}
}

// Course represents a course in the catalog
type Course struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID        string     `json:"external_id" gorm:"type:varchar(40);not null;uniqueIndex"`
	Name              string     `json:"name" gorm:"type:varchar(255);not null"`
	Category          string     `json:"category" gorm:"type:varchar(100)"`
	Difficulty        Difficulty `json:"difficulty" gorm:"type:varchar(20);not null"`
	MinGPARecommended float64    `json:"min_gpa_recommended" gorm:"not null;default:0"`
	Prerequisites     StringList `json:"prerequisites" gorm:"type:jsonb"`
	Keywords          StringList `json:"keywords" gorm:"type:jsonb"`
	ScheduleDays      StringList `json:"schedule_days" gorm:"type:jsonb"`
	StartTime         string     `json:"start_time" gorm:"type:varchar(8)"`
	EndTime           string     `json:"end_time" gorm:"type:varchar(8)"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	SeatConfig *SeatConfig `json:"seat_config,omitempty" gorm:"foreignKey:CourseID"`
}

// SeatConfig is the capacity and lifecycle envelope of a course's room
type SeatConfig struct {
	ID              uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseID        uuid.UUID     `json:"course_id" gorm:"type:uuid;not null;uniqueIndex"`
	Rows            int           `json:"rows" gorm:"not null"`
	SeatsPerRow     int           `json:"seats_per_row" gorm:"not null"`
	TotalSeats      int           `json:"total_seats" gorm:"not null"`
	BookingStatus   BookingStatus `json:"booking_status" gorm:"type:varchar(20);not null;default:'CLOSED'"`
	BookingOpensAt  *time.Time    `json:"booking_opens_at,omitempty"`
	BookingClosesAt *time.Time    `json:"booking_closes_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

var seatNumberPattern = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// ParseSeatNumber splits a seat label like "A1" into its row letter and
// 1-based column. The label is case-insensitive.
func ParseSeatNumber(seatNumber string) (row string, column int, err error) {
	matches := seatNumberPattern.FindStringSubmatch(strings.TrimSpace(seatNumber))
	if matches == nil {
		return "", 0, fmt.Errorf("invalid seat number format: %q", seatNumber)
	}

	row = strings.ToUpper(matches[1])
	column, err = strconv.Atoi(matches[2])
	if err != nil || column < 1 {
		return "", 0, fmt.Errorf("invalid seat column in %q", seatNumber)
	}

	return row, column, nil
}

// RowLabel returns the letter for a 0-based row index (A, B, ... Z)
func RowLabel(rowIndex int) string {
	return string(rune('A' + rowIndex))
}

// ContainsSeat reports whether the given seat label addresses a real
// position within this configuration.
func (sc *SeatConfig) ContainsSeat(seatNumber string) bool {
	row, column, err := ParseSeatNumber(seatNumber)
	if err != nil {
		return false
	}
	if len(row) != 1 {
		// Seeded rooms never exceed 26 rows, so multi-letter rows are
		// always out of range.
		return false
	}

	rowIndex := int(row[0] - 'A')
	return rowIndex >= 0 && rowIndex < sc.Rows && column >= 1 && column <= sc.SeatsPerRow
}

// EnumerateSeats returns all seat labels in canonical order: row A..{rows},
// column 1..{seatsPerRow}. The first free seat in this order is what direct
// apply and the vacancy filler pick when no preference is given.
func (sc *SeatConfig) EnumerateSeats() []string {
	seats := make([]string, 0, sc.Rows*sc.SeatsPerRow)
	for r := 0; r < sc.Rows; r++ {
		for c := 1; c <= sc.SeatsPerRow; c++ {
			seats = append(seats, RowLabel(r)+strconv.Itoa(c))
		}
	}
	return seats
}
