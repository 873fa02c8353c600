package registration

import (
	"context"
	"fmt"
	"log/slog"

	"coursely/internal/courses"
	"coursely/pkg/logger"

	"github.com/google/uuid"
)

// filledRecord is one successful waitlist promotion
type filledRecord struct {
	StudentExternalID string
	SeatNumber        string
}

// fillVacancies drains the course's waitlist into free seats. Each
// iteration holds the per-course lock for exactly one attempted fill and
// either enrols one student or terminates; failures revert the claimed
// entry and stop, leaving further progress to the next trigger.
func (s *service) fillVacancies(ctx context.Context, course *courses.Course) ([]filledRecord, error) {
	var filled []filledRecord

	for {
		promoted, done, err := s.fillOne(ctx, course)
		if promoted != nil {
			filled = append(filled, *promoted)
		}
		if err != nil || done {
			if len(filled) > 0 {
				s.publishWaitlistUpdated(ctx, course)
			}
			return filled, err
		}
	}
}

// fillOne performs a single locked fill attempt. done is true when the
// loop should stop without error (no seats or no candidates).
func (s *service) fillOne(ctx context.Context, course *courses.Course) (*filledRecord, bool, error) {
	acquired, err := s.repo.AcquireCourseLock(ctx, course.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !acquired {
		// Another filler holds the course; it will make the progress
		return nil, true, nil
	}
	defer func() {
		if err := s.repo.ReleaseCourseLock(ctx, course.ID); err != nil {
			logger.GetDefault().WarnContext(ctx, "failed to release course lock",
				slog.String("course_id", course.ExternalID),
				slog.String("error", err.Error()),
			)
		}
	}()

	occupied, err := s.repo.OccupiedSeatNumbers(ctx, course.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(occupied) >= course.SeatConfig.TotalSeats {
		return nil, true, nil
	}

	entry, err := s.queue.PopTop(ctx, course.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if entry == nil {
		return nil, true, nil
	}

	seat := s.chooseFillSeat(course, occupied, entry.PreferredSeat)
	if seat == "" {
		s.revert(ctx, course, entry.ID)
		return nil, true, nil
	}

	student, err := s.studentsRepo.GetByID(ctx, entry.StudentID)
	if err != nil {
		s.revert(ctx, course, entry.ID)
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result, err := s.claimSeat(ctx, student, course, seat, EventAutoAllocated, JSONMap{"fromWaitlist": true}, nil)
	if err != nil {
		// Conflict or storage trouble: put the entry back and let the
		// next trigger continue the drain
		s.revert(ctx, course, entry.ID)
		return nil, true, nil
	}

	if err := s.queue.MarkAllocated(ctx, entry.ID); err != nil {
		logger.GetDefault().WarnContext(ctx, "failed to settle promoted waitlist entry",
			slog.String("course_id", course.ExternalID),
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	logger.GetDefault().LogAutoEnrolled(ctx, course.ExternalID, student.ExternalID, *result.SeatNumber)
	return &filledRecord{
		StudentExternalID: student.ExternalID,
		SeatNumber:        *result.SeatNumber,
	}, false, nil
}

// chooseFillSeat honours a still-free preferred seat, else takes the
// first free seat in canonical order.
func (s *service) chooseFillSeat(course *courses.Course, occupied map[string]uuid.UUID, preferred *string) string {
	if preferred != nil && course.SeatConfig.ContainsSeat(*preferred) {
		if _, taken := occupied[*preferred]; !taken {
			return *preferred
		}
	}

	for _, seat := range course.SeatConfig.EnumerateSeats() {
		if _, taken := occupied[seat]; !taken {
			return seat
		}
	}
	return ""
}

func (s *service) revert(ctx context.Context, course *courses.Course, entryID uuid.UUID) {
	if err := s.queue.RevertToWaiting(ctx, entryID); err != nil {
		logger.GetDefault().WarnContext(ctx, "failed to revert waitlist entry",
			slog.String("course_id", course.ExternalID),
			slog.String("entry_id", entryID.String()),
			slog.String("error", err.Error()),
		)
	}
}
