package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursely/internal/courses"
	"coursely/internal/waitlist"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// BookSeatParams carries everything the transactional seat claim needs.
// AppliedEvent, when set, is appended inside the same transaction ahead
// of the booking event, so a failed claim leaves no audit trail.
type BookSeatParams struct {
	Course       *courses.Course
	StudentID    uuid.UUID
	SeatNumber   string
	EventType    string
	Metadata     JSONMap
	AppliedEvent *RegistrationEvent
}

// StatusTransition is the outcome of a booking-status change
type StatusTransition struct {
	Changed bool
	From    courses.BookingStatus
	To      courses.BookingStatus
}

// Repository interface defines the contract for registration data
// operations. The mutating methods run inside transactions that lock the
// course's seat_configs row, so concurrent claims on the same course
// serialize at the database.
type Repository interface {
	// BookSeat atomically claims a seat: verifies the booking status and
	// seat availability under a row lock, inserts the booking, upserts
	// the enrollment to ENROLLED, settles any WAITING waitlist entry,
	// and appends the audit event.
	BookSeat(ctx context.Context, params BookSeatParams) (*SeatBooking, error)

	// ReleaseSeat atomically deactivates the student's active booking,
	// marks the enrollment DROPPED, and appends the audit event.
	ReleaseSeat(ctx context.Context, course *courses.Course, studentID uuid.UUID, metadata JSONMap) (*SeatBooking, error)

	// TransitionBookingStatus moves the course's booking status under a
	// row lock. A request for the current status is a no-op with
	// Changed=false; an illegal transition is ErrStateViolation.
	TransitionBookingStatus(ctx context.Context, course *courses.Course, to courses.BookingStatus, openedAt *time.Time) (*StatusTransition, error)

	// Booking reads
	GetActiveBooking(ctx context.Context, courseID, studentID uuid.UUID) (*SeatBooking, error)
	GetActiveBookingBySeat(ctx context.Context, courseID uuid.UUID, seatNumber string) (*SeatBooking, error)
	ListActiveBookings(ctx context.Context, courseID uuid.UUID) ([]SeatBooking, error)
	CountActiveBookings(ctx context.Context, courseID uuid.UUID) (int, error)
	OccupiedSeatNumbers(ctx context.Context, courseID uuid.UUID) (map[string]uuid.UUID, error)

	// Enrollment reads
	GetEnrollment(ctx context.Context, courseID, studentID uuid.UUID) (*Enrollment, error)
	ListEnrollmentsForStudent(ctx context.Context, studentID uuid.UUID, status EnrollmentStatus) ([]Enrollment, error)

	// Audit log
	AppendEvent(ctx context.Context, event *RegistrationEvent) error
	ListEvents(ctx context.Context, courseID uuid.UUID, limit int) ([]RegistrationEvent, error)

	// Per-course allocation lock, backed by Redis SETNX. Serializes the
	// vacancy filler across processes; in-transaction row locks still
	// protect correctness when Redis is absent.
	AcquireCourseLock(ctx context.Context, courseID uuid.UUID) (bool, error)
	ReleaseCourseLock(ctx context.Context, courseID uuid.UUID) error
}

// repository implements the Repository interface
type repository struct {
	db      *gorm.DB
	redis   *redis.Client
	lockTTL time.Duration
}

// NewRepository creates a new registration repository. The Redis client
// is optional; without it AcquireCourseLock always succeeds.
func NewRepository(db *gorm.DB, redisClient *redis.Client, lockTTL time.Duration) Repository {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &repository{db: db, redis: redisClient, lockTTL: lockTTL}
}

// lockedSeatConfig reads the course's seat_configs row FOR UPDATE,
// serializing every mutating operation on the same course.
func lockedSeatConfig(tx *gorm.DB, courseID uuid.UUID) (*courses.SeatConfig, error) {
	var config courses.SeatConfig
	err := tx.Table("seat_configs").
		Where("course_id = ?", courseID).
		Set("gorm:query_option", "FOR UPDATE").
		First(&config).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: seat config for course %s", ErrNotFound, courseID)
		}
		return nil, fmt.Errorf("failed to lock seat config: %w", err)
	}
	return &config, nil
}

func (r *repository) BookSeat(ctx context.Context, params BookSeatParams) (*SeatBooking, error) {
	course := params.Course
	booking := &SeatBooking{
		ID:         uuid.New(),
		CourseID:   course.ID,
		StudentID:  params.StudentID,
		SeatNumber: params.SeatNumber,
		IsActive:   true,
		BookedAt:   time.Now(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		config, err := lockedSeatConfig(tx, course.ID)
		if err != nil {
			return err
		}

		switch {
		case config.BookingStatus.AllowsDirectBooking():
		case params.EventType == EventAutoAllocated && config.BookingStatus != courses.StatusCompleted:
			// Waitlist promotion stays possible in WAITLIST_ONLY
		default:
			return fmt.Errorf("%w: booking status is %s", ErrStateViolation, config.BookingStatus)
		}
		if !config.ContainsSeat(params.SeatNumber) {
			return fmt.Errorf("%w: seat %s does not exist in this classroom", ErrInputInvalid, params.SeatNumber)
		}

		// Seat must be free
		var seatTaken int64
		err = tx.Model(&SeatBooking{}).
			Where("course_id = ? AND seat_number = ? AND is_active = true", course.ID, params.SeatNumber).
			Count(&seatTaken).Error
		if err != nil {
			return fmt.Errorf("failed to check seat availability: %w", err)
		}
		if seatTaken > 0 {
			return fmt.Errorf("%w: seat %s is already booked", ErrConflict, params.SeatNumber)
		}

		// Student must not already hold a seat in this course
		var studentHolds int64
		err = tx.Model(&SeatBooking{}).
			Where("course_id = ? AND student_id = ? AND is_active = true", course.ID, params.StudentID).
			Count(&studentHolds).Error
		if err != nil {
			return fmt.Errorf("failed to check existing booking: %w", err)
		}
		if studentHolds > 0 {
			return fmt.Errorf("%w: student already holds a seat in this course", ErrConflict)
		}

		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create seat booking: %w", err)
		}

		err = upsertEnrollment(tx, course.ID, params.StudentID, EnrollmentEnrolled, map[string]interface{}{
			"seat_number": params.SeatNumber,
			"enrolled_at": booking.BookedAt,
			"dropped_at":  nil,
		})
		if err != nil {
			return err
		}

		// A student booking directly while still WAITING settles their
		// queue entry in the same transaction.
		err = tx.Model(&waitlist.Entry{}).
			Where("course_id = ? AND student_id = ? AND status = ?",
				course.ID, params.StudentID, waitlist.StatusWaiting).
			Updates(map[string]interface{}{
				"status":     waitlist.StatusAllocated,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to settle waitlist entry: %w", err)
		}

		if params.AppliedEvent != nil {
			if err := appendEventTx(tx, params.AppliedEvent); err != nil {
				return err
			}
		}
		return appendEventTx(tx, &RegistrationEvent{
			CourseID:  course.ID,
			StudentID: &params.StudentID,
			EventType: params.EventType,
			Metadata:  params.Metadata,
		})
	})

	if err != nil {
		return nil, err
	}

	r.mirrorRemove(ctx, course.ID, params.StudentID)
	return booking, nil
}

func (r *repository) ReleaseSeat(ctx context.Context, course *courses.Course, studentID uuid.UUID, metadata JSONMap) (*SeatBooking, error) {
	var released SeatBooking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockedSeatConfig(tx, course.ID); err != nil {
			return err
		}

		err := tx.Where("course_id = ? AND student_id = ? AND is_active = true", course.ID, studentID).
			First(&released).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEnrolled
			}
			return fmt.Errorf("failed to find active booking: %w", err)
		}

		now := time.Now()
		err = tx.Model(&SeatBooking{}).
			Where("id = ?", released.ID).
			Updates(map[string]interface{}{
				"is_active":   false,
				"released_at": now,
				"updated_at":  now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to release seat booking: %w", err)
		}
		released.IsActive = false
		released.ReleasedAt = &now

		err = upsertEnrollment(tx, course.ID, studentID, EnrollmentDropped, map[string]interface{}{
			"seat_number": nil,
			"dropped_at":  now,
		})
		if err != nil {
			return err
		}

		if metadata == nil {
			metadata = JSONMap{}
		}
		metadata["seatNumber"] = released.SeatNumber

		return appendEventTx(tx, &RegistrationEvent{
			CourseID:  course.ID,
			StudentID: &studentID,
			EventType: EventSeatReleased,
			Metadata:  metadata,
		})
	})

	if err != nil {
		return nil, err
	}
	return &released, nil
}

func (r *repository) TransitionBookingStatus(ctx context.Context, course *courses.Course, to courses.BookingStatus, openedAt *time.Time) (*StatusTransition, error) {
	transition := &StatusTransition{To: to}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		config, err := lockedSeatConfig(tx, course.ID)
		if err != nil {
			return err
		}
		transition.From = config.BookingStatus

		if config.BookingStatus == to {
			// Idempotent: already there, nothing to do
			return nil
		}
		if !config.BookingStatus.CanTransitionTo(to) {
			return fmt.Errorf("%w: cannot transition %s -> %s",
				ErrStateViolation, config.BookingStatus, to)
		}

		updates := map[string]interface{}{
			"booking_status": to,
			"updated_at":     time.Now(),
		}
		if openedAt != nil {
			updates["booking_opens_at"] = *openedAt
		}
		if to == courses.StatusWaitlistOnly {
			updates["booking_closes_at"] = time.Now()
		}

		err = tx.Model(&courses.SeatConfig{}).
			Where("id = ?", config.ID).
			Updates(updates).Error
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}

		transition.Changed = true
		return appendEventTx(tx, &RegistrationEvent{
			CourseID:  course.ID,
			EventType: EventBookingStatusChange,
			Metadata:  JSONMap{"from": string(config.BookingStatus), "to": string(to)},
		})
	})

	if err != nil {
		return nil, err
	}
	return transition, nil
}

func (r *repository) GetActiveBooking(ctx context.Context, courseID, studentID uuid.UUID) (*SeatBooking, error) {
	var booking SeatBooking
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ? AND is_active = true", courseID, studentID).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) GetActiveBookingBySeat(ctx context.Context, courseID uuid.UUID, seatNumber string) (*SeatBooking, error) {
	var booking SeatBooking
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND seat_number = ? AND is_active = true", courseID, seatNumber).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get seat booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) ListActiveBookings(ctx context.Context, courseID uuid.UUID) ([]SeatBooking, error) {
	var bookings []SeatBooking
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND is_active = true", courseID).
		Order("seat_number ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active bookings: %w", err)
	}
	return bookings, nil
}

func (r *repository) CountActiveBookings(ctx context.Context, courseID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SeatBooking{}).
		Where("course_id = ? AND is_active = true", courseID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return int(count), nil
}

func (r *repository) OccupiedSeatNumbers(ctx context.Context, courseID uuid.UUID) (map[string]uuid.UUID, error) {
	bookings, err := r.ListActiveBookings(ctx, courseID)
	if err != nil {
		return nil, err
	}

	occupied := make(map[string]uuid.UUID, len(bookings))
	for _, booking := range bookings {
		occupied[booking.SeatNumber] = booking.StudentID
	}
	return occupied, nil
}

func (r *repository) GetEnrollment(ctx context.Context, courseID, studentID uuid.UUID) (*Enrollment, error) {
	var enrollment Enrollment
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

func (r *repository) ListEnrollmentsForStudent(ctx context.Context, studentID uuid.UUID, status EnrollmentStatus) ([]Enrollment, error) {
	var enrollments []Enrollment
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("updated_at DESC").Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func (r *repository) AppendEvent(ctx context.Context, event *RegistrationEvent) error {
	return appendEventTx(r.db.WithContext(ctx), event)
}

func (r *repository) ListEvents(ctx context.Context, courseID uuid.UUID, limit int) ([]RegistrationEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var events []RegistrationEvent
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list registration events: %w", err)
	}
	return events, nil
}

func (r *repository) AcquireCourseLock(ctx context.Context, courseID uuid.UUID) (bool, error) {
	if r.redis == nil {
		return true, nil
	}

	acquired, err := r.redis.SetNX(ctx, waitlist.LockKey(courseID), "locked", r.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire course lock: %w", err)
	}
	return acquired, nil
}

func (r *repository) ReleaseCourseLock(ctx context.Context, courseID uuid.UUID) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, waitlist.LockKey(courseID)).Err()
}

// mirrorRemove drops the student from the course's waitlist ZSET after a
// direct booking settled their WAITING entry inside the transaction.
func (r *repository) mirrorRemove(ctx context.Context, courseID, studentID uuid.UUID) {
	if r.redis == nil {
		return
	}
	r.redis.ZRem(ctx, waitlist.QueueKey(courseID), studentID.String())
}

// upsertEnrollment keeps the one (course, student) enrollment row in
// step with the booking state. fields carries the seat and timestamp
// columns; a nil value clears the column.
func upsertEnrollment(tx *gorm.DB, courseID, studentID uuid.UUID, status EnrollmentStatus, fields map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	for column, value := range fields {
		updates[column] = value
	}

	result := tx.Model(&Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update enrollment: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	enrollment := &Enrollment{
		ID:        uuid.New(),
		CourseID:  courseID,
		StudentID: studentID,
		Status:    status,
	}
	if seat, ok := fields["seat_number"].(string); ok {
		enrollment.SeatNumber = &seat
	}
	if at, ok := fields["enrolled_at"].(time.Time); ok {
		enrollment.EnrolledAt = &at
	}
	if at, ok := fields["dropped_at"].(time.Time); ok {
		enrollment.DroppedAt = &at
	}
	if err := tx.Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func appendEventTx(tx *gorm.DB, event *RegistrationEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to append registration event: %w", err)
	}
	return nil
}
