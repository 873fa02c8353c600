package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coursely/internal/courses"
	"coursely/internal/scoring"
	"coursely/internal/students"
	"coursely/pkg/logger"

	"github.com/google/uuid"
)

// popRetryLimit bounds the compare-and-swap loop in PopTop. Losing the
// race this many times in a row means another filler is making progress.
const popRetryLimit = 3

// Service interface defines the contract for waitlist operations
type Service interface {
	// Enqueue recomputes the student's score and upserts a WAITING entry,
	// returning it together with its 1-indexed position.
	Enqueue(ctx context.Context, student *students.Student, course *courses.Course, preferredSeat *string, appliedAt time.Time) (*Entry, int, error)

	// Cancel transitions WAITING -> CANCELLED. Idempotent; reports whether
	// a change occurred.
	Cancel(ctx context.Context, courseID, studentID uuid.UUID) (bool, error)

	// PeekTop returns up to n WAITING entries in priority order.
	PeekTop(ctx context.Context, courseID uuid.UUID, n int) ([]Entry, error)

	// PopTop atomically claims the highest-priority WAITING entry by
	// moving it to PROCESSING. Returns nil when the queue is empty.
	PopTop(ctx context.Context, courseID uuid.UUID) (*Entry, error)

	// MarkAllocated transitions PROCESSING -> ALLOCATED.
	MarkAllocated(ctx context.Context, entryID uuid.UUID) error

	// RevertToWaiting transitions PROCESSING -> WAITING after a failed
	// downstream booking.
	RevertToWaiting(ctx context.Context, entryID uuid.UUID) error

	// Size returns the number of WAITING entries for a course.
	Size(ctx context.Context, courseID uuid.UUID) (int, error)

	// Position returns the entry's current 1-indexed rank.
	Position(ctx context.Context, entry *Entry) (int, error)

	// ActiveEntry returns the student's non-terminal entry for a course,
	// or ErrEntryNotFound.
	ActiveEntry(ctx context.Context, courseID, studentID uuid.UUID) (*Entry, error)

	// EntriesForStudent lists the student's WAITING entries across courses.
	EntriesForStudent(ctx context.Context, studentID uuid.UUID) ([]Entry, error)

	// StatusCounts returns the per-status entry counts for a course.
	StatusCounts(ctx context.Context, courseID uuid.UUID) (map[Status]int, error)
}

// service implements the Service interface
type service struct {
	repo   Repository
	engine *scoring.Engine
}

// NewService creates a new waitlist service
func NewService(repo Repository, engine *scoring.Engine) Service {
	return &service{repo: repo, engine: engine}
}

func (s *service) Enqueue(ctx context.Context, student *students.Student, course *courses.Course, preferredSeat *string, appliedAt time.Time) (*Entry, int, error) {
	scores := s.engine.Compute(student, course, appliedAt)

	entry := &Entry{
		CourseID:       course.ID,
		StudentID:      student.ID,
		AppliedAt:      appliedAt,
		PreferredSeat:  preferredSeat,
		GPAScore:       scores.GPA,
		InterestScore:  scores.Interest,
		TimeScore:      scores.Time,
		YearScore:      scores.Year,
		PrereqScore:    scores.Prerequisite,
		CompositeScore: scores.Composite,
		Status:         StatusWaiting,
	}

	if err := s.repo.UpsertWaiting(ctx, entry); err != nil {
		return nil, 0, fmt.Errorf("failed to enqueue waitlist entry: %w", err)
	}

	position, err := s.repo.Position(ctx, entry)
	if err != nil {
		return nil, 0, err
	}

	logger.GetDefault().Info("student waitlisted",
		slog.String("course_id", course.ExternalID),
		slog.String("student_id", student.ExternalID),
		slog.Float64("score", entry.CompositeScore),
		slog.Int("position", position),
	)

	return entry, position, nil
}

func (s *service) Cancel(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	entry, err := s.repo.GetActive(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return false, nil
		}
		return false, err
	}

	if entry.Status != StatusWaiting {
		return false, nil
	}

	return s.repo.CompareAndSwapStatus(ctx, entry.ID, StatusWaiting, StatusCancelled)
}

func (s *service) PeekTop(ctx context.Context, courseID uuid.UUID, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	return s.repo.ListWaiting(ctx, courseID, n)
}

func (s *service) PopTop(ctx context.Context, courseID uuid.UUID) (*Entry, error) {
	for attempt := 0; attempt < popRetryLimit; attempt++ {
		top, err := s.repo.TopWaiting(ctx, courseID)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				return nil, nil
			}
			return nil, err
		}

		swapped, err := s.repo.CompareAndSwapStatus(ctx, top.ID, StatusWaiting, StatusProcessing)
		if err != nil {
			return nil, err
		}
		if swapped {
			top.Status = StatusProcessing
			return top, nil
		}
		// Lost the race for this entry; re-read the head and try again.
	}

	return nil, fmt.Errorf("waitlist pop contention exceeded %d attempts", popRetryLimit)
}

func (s *service) MarkAllocated(ctx context.Context, entryID uuid.UUID) error {
	swapped, err := s.repo.CompareAndSwapStatus(ctx, entryID, StatusProcessing, StatusAllocated)
	if err != nil {
		return err
	}
	if !swapped {
		return fmt.Errorf("waitlist entry %s is not in PROCESSING", entryID)
	}
	return nil
}

func (s *service) RevertToWaiting(ctx context.Context, entryID uuid.UUID) error {
	swapped, err := s.repo.CompareAndSwapStatus(ctx, entryID, StatusProcessing, StatusWaiting)
	if err != nil {
		return err
	}
	if !swapped {
		return fmt.Errorf("waitlist entry %s is not in PROCESSING", entryID)
	}
	return nil
}

func (s *service) Size(ctx context.Context, courseID uuid.UUID) (int, error) {
	return s.repo.CountWaiting(ctx, courseID)
}

func (s *service) Position(ctx context.Context, entry *Entry) (int, error) {
	return s.repo.Position(ctx, entry)
}

func (s *service) ActiveEntry(ctx context.Context, courseID, studentID uuid.UUID) (*Entry, error) {
	return s.repo.GetActive(ctx, courseID, studentID)
}

func (s *service) EntriesForStudent(ctx context.Context, studentID uuid.UUID) ([]Entry, error) {
	return s.repo.ListWaitingForStudent(ctx, studentID)
}

func (s *service) StatusCounts(ctx context.Context, courseID uuid.UUID) (map[Status]int, error) {
	return s.repo.StatusCounts(ctx, courseID)
}
