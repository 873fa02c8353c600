package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrCourseNotFound is returned when a course lookup misses
var ErrCourseNotFound = errors.New("course not found")

// CourseSummary is a catalog listing row with live seat counts
type CourseSummary struct {
	ExternalID    string        `json:"external_id"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	Difficulty    Difficulty    `json:"difficulty"`
	TotalSeats    int           `json:"total_seats"`
	BookedSeats   int           `json:"booked_seats"`
	BookingStatus BookingStatus `json:"booking_status"`
}

// Repository interface defines the contract for course catalog data access
type Repository interface {
	Create(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*Course, error)
	GetByExternalID(ctx context.Context, externalID string) (*Course, error)
	GetSeatConfig(ctx context.Context, courseID uuid.UUID) (*SeatConfig, error)
	List(ctx context.Context) ([]CourseSummary, error)
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new course repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, course *Course) error {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	if course.SeatConfig != nil {
		if course.SeatConfig.ID == uuid.Nil {
			course.SeatConfig.ID = uuid.New()
		}
		course.SeatConfig.CourseID = course.ID
		course.SeatConfig.TotalSeats = course.SeatConfig.Rows * course.SeatConfig.SeatsPerRow
	}

	if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Course, error) {
	var course Course
	err := r.db.WithContext(ctx).
		Preload("SeatConfig").
		Where("id = ?", id).
		First(&course).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &course, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID string) (*Course, error) {
	var course Course
	err := r.db.WithContext(ctx).
		Preload("SeatConfig").
		Where("external_id = ?", externalID).
		First(&course).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &course, nil
}

func (r *repository) GetSeatConfig(ctx context.Context, courseID uuid.UUID) (*SeatConfig, error) {
	var config SeatConfig
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		First(&config).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get seat config: %w", err)
	}

	return &config, nil
}

func (r *repository) List(ctx context.Context) ([]CourseSummary, error) {
	var summaries []CourseSummary
	err := r.db.WithContext(ctx).
		Table("courses c").
		Select(`c.external_id, c.name, c.category, c.difficulty,
			sc.total_seats, sc.booking_status,
			(SELECT COUNT(*) FROM seat_bookings sb
			 WHERE sb.course_id = c.id AND sb.is_active = true) AS booked_seats`).
		Joins("JOIN seat_configs sc ON sc.course_id = c.id").
		Order("c.external_id ASC").
		Scan(&summaries).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return summaries, nil
}
