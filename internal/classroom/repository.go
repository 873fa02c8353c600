package classroom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursely/internal/courses"

	"gorm.io/gorm"
)

// Repository reads the data a snapshot needs in one consistent view
type Repository interface {
	Snapshot(ctx context.Context, courseExternalID string) (*ClassroomState, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new classroom repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// occupantRow joins an active booking with the student holding it
type occupantRow struct {
	SeatNumber        string
	StudentExternalID string
	StudentName       string
}

func (r *repository) Snapshot(ctx context.Context, courseExternalID string) (*ClassroomState, error) {
	var state *ClassroomState

	// Repeatable-read transaction so the config and the bookings belong
	// to the same snapshot.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var header struct {
			CourseID      string
			Name          string
			Rows          int
			SeatsPerRow   int
			TotalSeats    int
			BookingStatus courses.BookingStatus
		}
		err := tx.Table("courses c").
			Select("c.id AS course_id, c.name, sc.rows, sc.seats_per_row, sc.total_seats, sc.booking_status").
			Joins("JOIN seat_configs sc ON sc.course_id = c.id").
			Where("c.external_id = ?", courseExternalID).
			Scan(&header).Error
		if err != nil {
			return fmt.Errorf("failed to read classroom header: %w", err)
		}
		if header.CourseID == "" {
			return courses.ErrCourseNotFound
		}

		var occupants []occupantRow
		err = tx.Table("seat_bookings sb").
			Select("sb.seat_number, s.external_id AS student_external_id, s.name AS student_name").
			Joins("JOIN students s ON s.id = sb.student_id").
			Where("sb.course_id = ? AND sb.is_active = true", header.CourseID).
			Scan(&occupants).Error
		if err != nil {
			return fmt.Errorf("failed to read seat occupants: %w", err)
		}

		occupied := make(map[string]occupantRow, len(occupants))
		for _, row := range occupants {
			occupied[row.SeatNumber] = row
		}

		config := courses.SeatConfig{Rows: header.Rows, SeatsPerRow: header.SeatsPerRow}
		seats := make([]SeatState, 0, header.TotalSeats)
		for _, seatNumber := range config.EnumerateSeats() {
			seat := SeatState{SeatNumber: seatNumber}
			seat.Row, seat.Column, _ = courses.ParseSeatNumber(seatNumber)
			if occ, ok := occupied[seatNumber]; ok {
				seat.IsOccupied = true
				studentID, studentName := occ.StudentExternalID, occ.StudentName
				seat.StudentID = &studentID
				seat.StudentName = &studentName
			}
			seats = append(seats, seat)
		}

		state = &ClassroomState{
			CourseID:       courseExternalID,
			CourseName:     header.Name,
			TotalSeats:     header.TotalSeats,
			AvailableSeats: header.TotalSeats - len(occupants),
			OccupiedSeats:  len(occupants),
			BookingStatus:  header.BookingStatus,
			LastUpdated:    time.Now(),
			Seats:          seats,
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, courses.ErrCourseNotFound) {
			return nil, courses.ErrCourseNotFound
		}
		return nil, err
	}
	return state, nil
}
