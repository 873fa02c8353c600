package registration

import (
	"context"
	"log/slog"

	"coursely/internal/courses"
	"coursely/internal/realtime"
	"coursely/internal/students"

	"coursely/pkg/logger"
)

// Publishing helpers. Every publish happens after the originating
// transaction has committed; nothing here is called from inside a
// transaction closure.

func (s *service) publishCourse(ctx context.Context, courseExternalID string, env realtime.Envelope) {
	env.CourseID = courseExternalID
	s.bus.Publish(realtime.CourseTopic(courseExternalID), env)
}

func (s *service) publishPersonal(ctx context.Context, studentExternalID, eventType, courseExternalID string, payload map[string]interface{}) {
	s.bus.Publish(realtime.StudentTopic(studentExternalID), realtime.Envelope{
		Type:      eventType,
		CourseID:  courseExternalID,
		StudentID: studentExternalID,
		Payload:   payload,
	})
}

func (s *service) publishSeatBooked(ctx context.Context, student *students.Student, course *courses.Course, booking *SeatBooking, eventType string) {
	busType := realtime.EventSeatBooked
	if eventType == EventAutoAllocated {
		busType = realtime.EventAutoEnrolled
	}

	payload := map[string]interface{}{
		"seatNumber":  booking.SeatNumber,
		"studentName": student.Name,
	}

	s.publishCourse(ctx, course.ExternalID, realtime.Envelope{
		Type:      busType,
		StudentID: student.ExternalID,
		Payload:   payload,
	})
	s.publishPersonal(ctx, student.ExternalID, busType, course.ExternalID, payload)
}

func (s *service) publishSeatReleased(ctx context.Context, student *students.Student, course *courses.Course, released *SeatBooking) {
	payload := map[string]interface{}{"seatNumber": released.SeatNumber}

	s.publishCourse(ctx, course.ExternalID, realtime.Envelope{
		Type:      realtime.EventSeatReleased,
		StudentID: student.ExternalID,
		Payload:   payload,
	})
	s.publishPersonal(ctx, student.ExternalID, realtime.EventSeatReleased, course.ExternalID, payload)
}

func (s *service) publishStatusChanged(ctx context.Context, course *courses.Course, transition *StatusTransition) {
	logger.GetDefault().LogBookingStatusChanged(ctx, course.ExternalID, string(transition.From), string(transition.To))
	s.publishCourse(ctx, course.ExternalID, realtime.Envelope{
		Type: realtime.EventBookingStatusChanged,
		Payload: map[string]interface{}{
			"from": string(transition.From),
			"to":   string(transition.To),
		},
	})
}

// publishWaitlistUpdated carries the current size and the top entries so
// live views can render the queue without a follow-up request.
func (s *service) publishWaitlistUpdated(ctx context.Context, course *courses.Course) {
	size, err := s.queue.Size(ctx, course.ID)
	if err != nil {
		return
	}

	top, err := s.queue.PeekTop(ctx, course.ID, 5)
	if err != nil {
		return
	}

	entries := make([]map[string]interface{}, 0, len(top))
	for i, entry := range top {
		studentExternalID := entry.StudentID.String()
		if student, err := s.studentsRepo.GetByID(ctx, entry.StudentID); err == nil {
			studentExternalID = student.ExternalID
		}
		entries = append(entries, map[string]interface{}{
			"studentId": studentExternalID,
			"position":  i + 1,
			"score":     entry.CompositeScore,
		})
	}

	s.publishCourse(ctx, course.ExternalID, realtime.Envelope{
		Type: realtime.EventWaitlistUpdated,
		Payload: map[string]interface{}{
			"totalWaitlisted": size,
			"top":             entries,
		},
	})
}

// Logging helpers in the shared logger's domain-method style.

func logSeatBooked(ctx context.Context, courseID, studentID, seatNumber string) {
	logger.GetDefault().LogSeatBooked(ctx, courseID, studentID, seatNumber)
}

func logSeatReleased(ctx context.Context, courseID, studentID, seatNumber string) {
	logger.GetDefault().LogSeatReleased(ctx, courseID, studentID, seatNumber)
}

func logFillStopped(ctx context.Context, courseID string, err error) {
	logger.GetDefault().WarnContext(ctx, "vacancy fill stopped",
		slog.String("course_id", courseID),
		slog.String("error", err.Error()),
	)
}

func logEventAppendFailed(ctx context.Context, courseID, eventType string, err error) {
	logger.GetDefault().ErrorContext(ctx, "failed to append registration event",
		slog.String("course_id", courseID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
