package classroom

import (
	"time"

	"coursely/internal/courses"
)

// SeatState is one position in the projected classroom view
type SeatState struct {
	SeatNumber  string  `json:"seatNumber"`
	Row         string  `json:"row"`
	Column      int     `json:"column"`
	IsOccupied  bool    `json:"isOccupied"`
	StudentID   *string `json:"studentId,omitempty"`
	StudentName *string `json:"studentName,omitempty"`
}

// ClassroomState is the full projected view of one course's room. Seats
// are enumerated in canonical order: row A..{rows}, column 1..{seatsPerRow}.
type ClassroomState struct {
	CourseID       string                `json:"courseId"`
	CourseName     string                `json:"courseName"`
	TotalSeats     int                   `json:"totalSeats"`
	AvailableSeats int                   `json:"availableSeats"`
	OccupiedSeats  int                   `json:"occupiedSeats"`
	BookingStatus  courses.BookingStatus `json:"bookingStatus"`
	LastUpdated    time.Time             `json:"lastUpdated"`
	Seats          []SeatState           `json:"seats"`
}

// Clone returns a deep copy so callers can hand the state out without
// racing the projector's in-place updates.
func (s *ClassroomState) Clone() *ClassroomState {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Seats = make([]SeatState, len(s.Seats))
	copy(copied.Seats, s.Seats)
	return &copied
}

// seatIndex returns the slice position of a seat label, or -1
func (s *ClassroomState) seatIndex(seatNumber string) int {
	for i := range s.Seats {
		if s.Seats[i].SeatNumber == seatNumber {
			return i
		}
	}
	return -1
}

// CacheKey returns the Redis key holding a course's projected state
func CacheKey(courseExternalID string) string {
	return "coursely:classroom:" + courseExternalID
}
