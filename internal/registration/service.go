package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursely/internal/classroom"
	"coursely/internal/courses"
	"coursely/internal/realtime"
	"coursely/internal/scoring"
	"coursely/internal/students"
	"coursely/internal/waitlist"
)

// AllocationResult statuses returned to callers.
const (
	ResultEnrolled   = "ENROLLED"
	ResultWaitlisted = "WAITLISTED"
	ResultDropped    = "DROPPED"
	ResultRejected   = "REJECTED"
	ResultPending    = "PENDING"
)

// AllocationResult is the outcome of apply, bookSeat, and drop
type AllocationResult struct {
	StudentID        string   `json:"studentId"`
	CourseID         string   `json:"courseId"`
	Success          bool     `json:"success"`
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	WaitlistPosition *int     `json:"waitlistPosition,omitempty"`
	Score            *float64 `json:"score,omitempty"`
	SeatNumber       *string  `json:"seatNumber,omitempty"`
	VacancyFilledBy  *string  `json:"vacancyFilledBy,omitempty"`
}

// ApplyRequest is the input to Apply
type ApplyRequest struct {
	StudentID     string
	CourseID      string
	PreferredSeat *string
	AutoRegister  bool
}

// EnrolledCourse is one entry in a student's enrolled list
type EnrolledCourse struct {
	CourseID   string    `json:"courseId"`
	CourseName string    `json:"courseName"`
	SeatNumber string    `json:"seatNumber"`
	BookedAt   time.Time `json:"bookedAt"`
}

// WaitlistedCourse is one entry in a student's waitlisted list
type WaitlistedCourse struct {
	CourseID      string    `json:"courseId"`
	CourseName    string    `json:"courseName"`
	Position      int       `json:"position"`
	Score         float64   `json:"score"`
	AppliedAt     time.Time `json:"appliedAt"`
	PreferredSeat *string   `json:"preferredSeat,omitempty"`

	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// StudentStatus aggregates a student's standing across all courses
type StudentStatus struct {
	StudentID  string             `json:"studentId"`
	Name       string             `json:"name"`
	Enrolled   []EnrolledCourse   `json:"enrolled"`
	Waitlisted []WaitlistedCourse `json:"waitlisted"`
}

// WaitlistEntryView is one row of a course's waitlist listing
type WaitlistEntryView struct {
	StudentID     string    `json:"studentId"`
	Position      int       `json:"position"`
	Score         float64   `json:"score"`
	AppliedAt     time.Time `json:"appliedAt"`
	PreferredSeat *string   `json:"preferredSeat,omitempty"`

	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// WaitlistView is the response of the waitlist listing endpoint
type WaitlistView struct {
	CourseID        string              `json:"courseId"`
	TotalWaitlisted int                 `json:"totalWaitlisted"`
	StatusCounts    map[string]int      `json:"statusCounts"`
	Entries         []WaitlistEntryView `json:"entries"`
}

// Service interface defines the allocation orchestrator contract
type Service interface {
	Apply(ctx context.Context, req ApplyRequest) (*AllocationResult, error)
	BookSeat(ctx context.Context, studentID, courseID, seatNumber string) (*AllocationResult, error)
	Drop(ctx context.Context, studentID, courseID string) (*AllocationResult, error)

	OpenBooking(ctx context.Context, courseID string) error
	CloseBooking(ctx context.Context, courseID string) error
	SetBookingStatus(ctx context.Context, courseID string, to courses.BookingStatus) error
	FillVacancies(ctx context.Context, courseID string) (int, error)

	GetClassroomState(ctx context.Context, courseID string) (*classroom.ClassroomState, error)
	GetStudentStatus(ctx context.Context, studentID string) (*StudentStatus, error)
	GetWaitlist(ctx context.Context, courseID string, limit int) (*WaitlistView, error)
	ListCourses(ctx context.Context) ([]courses.CourseSummary, error)
	ListEvents(ctx context.Context, courseID string, limit int) ([]RegistrationEvent, error)
}

// service implements the Service interface
type service struct {
	repo         Repository
	coursesRepo  courses.Repository
	studentsRepo students.Repository
	queue        waitlist.Service
	engine       *scoring.Engine
	projector    classroom.Projector
	bus          *realtime.Bus
}

// NewService creates the allocation orchestrator
func NewService(
	repo Repository,
	coursesRepo courses.Repository,
	studentsRepo students.Repository,
	queue waitlist.Service,
	engine *scoring.Engine,
	projector classroom.Projector,
	bus *realtime.Bus,
) Service {
	return &service{
		repo:         repo,
		coursesRepo:  coursesRepo,
		studentsRepo: studentsRepo,
		queue:        queue,
		engine:       engine,
		projector:    projector,
		bus:          bus,
	}
}

func (s *service) loadPair(ctx context.Context, studentID, courseID string) (*students.Student, *courses.Course, error) {
	student, err := s.studentsRepo.GetByExternalID(ctx, studentID)
	if err != nil {
		if errors.Is(err, students.ErrStudentNotFound) {
			return nil, nil, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	course, err := s.coursesRepo.GetByExternalID(ctx, courseID)
	if err != nil {
		if errors.Is(err, courses.ErrCourseNotFound) {
			return nil, nil, fmt.Errorf("%w: course %s", ErrNotFound, courseID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if course.SeatConfig == nil {
		return nil, nil, fmt.Errorf("%w: seat config for course %s", ErrNotFound, courseID)
	}

	return student, course, nil
}

func (s *service) Apply(ctx context.Context, req ApplyRequest) (*AllocationResult, error) {
	student, course, err := s.loadPair(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}

	if req.PreferredSeat != nil {
		if _, _, err := courses.ParseSeatNumber(*req.PreferredSeat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInputInvalid, err)
		}
	}

	if _, err := s.repo.GetActiveBooking(ctx, course.ID, student.ID); err == nil {
		return nil, fmt.Errorf("%w: student already enrolled in this course", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	status := course.SeatConfig.BookingStatus
	if status == courses.StatusCompleted {
		return nil, fmt.Errorf("%w: course is completed", ErrCourseCompleted)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown booking status %s", ErrStateViolation, status)
	}

	// The APPLIED audit record travels with the allocation attempt and is
	// only written once the booking or enqueue actually succeeds.
	applied := &appliedIntent{req: req, appliedAt: time.Now()}

	// Explicit auto-register delegates the decision to the allocator:
	// the student is queued even when seats are free right now.
	if req.AutoRegister {
		return s.enqueue(ctx, student, course, req.PreferredSeat, applied.appliedAt, applied)
	}

	if status == courses.StatusOpen {
		available, err := s.availableSeats(ctx, course)
		if err != nil {
			return nil, err
		}
		if available > 0 {
			return s.directBook(ctx, student, course, req.PreferredSeat, applied)
		}
	}

	// CLOSED, WAITLIST_ONLY, STARTED, and a full OPEN course all queue
	return s.enqueue(ctx, student, course, req.PreferredSeat, applied.appliedAt, applied)
}

// directBook claims the preferred seat when free, otherwise the first
// available seat in canonical order. A claim lost to a concurrent
// booking falls back to the waitlist rather than failing the apply.
func (s *service) directBook(ctx context.Context, student *students.Student, course *courses.Course, preferredSeat *string, applied *appliedIntent) (*AllocationResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		seat, err := s.pickSeat(ctx, course, preferredSeat)
		if err != nil {
			return nil, err
		}
		if seat == "" {
			return s.enqueue(ctx, student, course, preferredSeat, applied.appliedAt, applied)
		}

		result, err := s.claimSeat(ctx, student, course, seat, EventSeatBooked, nil, applied)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
	}

	return s.enqueue(ctx, student, course, preferredSeat, applied.appliedAt, applied)
}

// pickSeat returns the preferred seat when valid and free, else the
// first free seat in canonical order, else "".
func (s *service) pickSeat(ctx context.Context, course *courses.Course, preferredSeat *string) (string, error) {
	occupied, err := s.repo.OccupiedSeatNumbers(ctx, course.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if preferredSeat != nil && course.SeatConfig.ContainsSeat(*preferredSeat) {
		if _, taken := occupied[normalizeSeat(*preferredSeat)]; !taken {
			return normalizeSeat(*preferredSeat), nil
		}
	}

	for _, seat := range course.SeatConfig.EnumerateSeats() {
		if _, taken := occupied[seat]; !taken {
			return seat, nil
		}
	}
	return "", nil
}

// claimSeat runs the transactional booking and publishes its events.
// When the claim fulfils an apply, the APPLIED audit record commits in
// the same transaction, ahead of the booking event.
func (s *service) claimSeat(ctx context.Context, student *students.Student, course *courses.Course, seatNumber, eventType string, metadata JSONMap, applied *appliedIntent) (*AllocationResult, error) {
	if metadata == nil {
		metadata = JSONMap{}
	}
	metadata["seatNumber"] = seatNumber

	params := BookSeatParams{
		Course:     course,
		StudentID:  student.ID,
		SeatNumber: seatNumber,
		EventType:  eventType,
		Metadata:   metadata,
	}
	if applied != nil {
		params.AppliedEvent = appliedEventRecord(student, course, applied.req)
	}

	booking, err := s.repo.BookSeat(ctx, params)
	if err != nil {
		return nil, err
	}

	if applied != nil {
		s.publishApplied(ctx, student, course, applied.appliedAt)
	}
	s.publishSeatBooked(ctx, student, course, booking, eventType)
	logSeatBooked(ctx, course.ExternalID, student.ExternalID, seatNumber)

	seat := booking.SeatNumber
	return &AllocationResult{
		StudentID:  student.ExternalID,
		CourseID:   course.ExternalID,
		Success:    true,
		Status:     ResultEnrolled,
		Message:    "seat booked",
		SeatNumber: &seat,
	}, nil
}

// enqueue scores the student and places them on the waitlist
func (s *service) enqueue(ctx context.Context, student *students.Student, course *courses.Course, preferredSeat *string, appliedAt time.Time, applied *appliedIntent) (*AllocationResult, error) {
	var preferred *string
	if preferredSeat != nil {
		normalized := normalizeSeat(*preferredSeat)
		preferred = &normalized
	}

	entry, position, err := s.queue.Enqueue(ctx, student, course, preferred, appliedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if applied != nil {
		s.appendAndPublishApplied(ctx, student, course, applied.req, applied.appliedAt)
	}
	s.publishWaitlistUpdated(ctx, course)
	s.publishPersonal(ctx, student.ExternalID, realtime.EventWaitlistUpdated, course.ExternalID, map[string]interface{}{
		"position": position,
		"score":    entry.CompositeScore,
	})

	score := entry.CompositeScore
	return &AllocationResult{
		StudentID:        student.ExternalID,
		CourseID:         course.ExternalID,
		Success:          true,
		Status:           ResultWaitlisted,
		Message:          "added to waitlist",
		WaitlistPosition: &position,
		Score:            &score,
	}, nil
}

func (s *service) BookSeat(ctx context.Context, studentID, courseID, seatNumber string) (*AllocationResult, error) {
	student, course, err := s.loadPair(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	if _, _, err := courses.ParseSeatNumber(seatNumber); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputInvalid, err)
	}
	seat := normalizeSeat(seatNumber)

	switch course.SeatConfig.BookingStatus {
	case courses.StatusCompleted:
		return nil, fmt.Errorf("%w: course is completed", ErrCourseCompleted)
	case courses.StatusWaitlistOnly:
		// Direct booking is closed; the explicit choice becomes a
		// seat preference on the queue.
		return s.enqueue(ctx, student, course, &seat, time.Now(), nil)
	}

	return s.claimSeat(ctx, student, course, seat, EventSeatBooked, nil, nil)
}

func (s *service) Drop(ctx context.Context, studentID, courseID string) (*AllocationResult, error) {
	student, course, err := s.loadPair(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	released, err := s.repo.ReleaseSeat(ctx, course, student.ID, JSONMap{"reason": "student drop"})
	if err != nil {
		if errors.Is(err, ErrNotEnrolled) {
			// A purely waitlisted student dropping cancels their entry
			changed, cancelErr := s.queue.Cancel(ctx, course.ID, student.ID)
			if cancelErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, cancelErr)
			}
			if !changed {
				return nil, ErrNotEnrolled
			}

			s.appendDropEvent(ctx, course, student)
			s.publishWaitlistUpdated(ctx, course)
			return &AllocationResult{
				StudentID: student.ExternalID,
				CourseID:  course.ExternalID,
				Success:   true,
				Status:    ResultDropped,
				Message:   "waitlist entry cancelled",
			}, nil
		}
		return nil, err
	}

	s.appendDropEvent(ctx, course, student)
	s.publishSeatReleased(ctx, student, course, released)
	logSeatReleased(ctx, course.ExternalID, student.ExternalID, released.SeatNumber)

	result := &AllocationResult{
		StudentID:  student.ExternalID,
		CourseID:   course.ExternalID,
		Success:    true,
		Status:     ResultDropped,
		Message:    "enrollment dropped",
		SeatNumber: &released.SeatNumber,
	}

	// The fill outcome never fails the drop
	filled, fillErr := s.fillVacancies(ctx, course)
	if fillErr != nil {
		logFillStopped(ctx, course.ExternalID, fillErr)
	}
	if len(filled) > 0 {
		result.VacancyFilledBy = &filled[0].StudentExternalID
	}

	return result, nil
}

func (s *service) OpenBooking(ctx context.Context, courseID string) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}

	now := time.Now()
	transition, err := s.repo.TransitionBookingStatus(ctx, course, courses.StatusOpen, &now)
	if err != nil {
		return err
	}
	if !transition.Changed {
		return nil
	}

	s.engine.SetBookingOpenTime(course.ExternalID, now)
	s.publishStatusChanged(ctx, course, transition)

	if _, err := s.fillVacancies(ctx, course); err != nil {
		logFillStopped(ctx, course.ExternalID, err)
	}
	return nil
}

func (s *service) CloseBooking(ctx context.Context, courseID string) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}

	transition, err := s.repo.TransitionBookingStatus(ctx, course, courses.StatusWaitlistOnly, nil)
	if err != nil {
		return err
	}
	if transition.Changed {
		s.publishStatusChanged(ctx, course, transition)
	}
	return nil
}

// SetBookingStatus drives the admin transitions (start, complete, and
// the direct CLOSED -> WAITLIST_ONLY hold).
func (s *service) SetBookingStatus(ctx context.Context, courseID string, to courses.BookingStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown booking status %q", ErrInputInvalid, to)
	}

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}

	transition, err := s.repo.TransitionBookingStatus(ctx, course, to, nil)
	if err != nil {
		return err
	}
	if transition.Changed {
		s.publishStatusChanged(ctx, course, transition)
	}
	return nil
}

func (s *service) FillVacancies(ctx context.Context, courseID string) (int, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}

	filled, err := s.fillVacancies(ctx, course)
	return len(filled), err
}

func (s *service) GetClassroomState(ctx context.Context, courseID string) (*classroom.ClassroomState, error) {
	state, err := s.projector.GetState(ctx, courseID)
	if err != nil {
		if errors.Is(err, courses.ErrCourseNotFound) {
			return nil, fmt.Errorf("%w: course %s", ErrNotFound, courseID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return state, nil
}

func (s *service) GetStudentStatus(ctx context.Context, studentID string) (*StudentStatus, error) {
	student, err := s.studentsRepo.GetByExternalID(ctx, studentID)
	if err != nil {
		if errors.Is(err, students.ErrStudentNotFound) {
			return nil, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	status := &StudentStatus{
		StudentID:  student.ExternalID,
		Name:       student.Name,
		Enrolled:   []EnrolledCourse{},
		Waitlisted: []WaitlistedCourse{},
	}

	enrollments, err := s.repo.ListEnrollmentsForStudent(ctx, student.ID, EnrollmentEnrolled)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for _, enrollment := range enrollments {
		if enrollment.SeatNumber == nil || enrollment.EnrolledAt == nil {
			continue
		}
		course, err := s.coursesRepo.GetByID(ctx, enrollment.CourseID)
		if err != nil {
			continue
		}
		status.Enrolled = append(status.Enrolled, EnrolledCourse{
			CourseID:   course.ExternalID,
			CourseName: course.Name,
			SeatNumber: *enrollment.SeatNumber,
			BookedAt:   *enrollment.EnrolledAt,
		})
	}

	entries, err := s.queue.EntriesForStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for i := range entries {
		entry := entries[i]
		course, err := s.coursesRepo.GetByID(ctx, entry.CourseID)
		if err != nil {
			continue
		}
		position, err := s.queue.Position(ctx, &entry)
		if err != nil {
			continue
		}
		status.Waitlisted = append(status.Waitlisted, WaitlistedCourse{
			CourseID:      course.ExternalID,
			CourseName:    course.Name,
			Position:      position,
			Score:         entry.CompositeScore,
			AppliedAt:     entry.AppliedAt,
			PreferredSeat: entry.PreferredSeat,
			Breakdown:     scoreBreakdown(&entry),
		})
	}

	return status, nil
}

func (s *service) GetWaitlist(ctx context.Context, courseID string, limit int) (*WaitlistView, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	entries, err := s.queue.PeekTop(ctx, course.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	total, err := s.queue.Size(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	counts, err := s.queue.StatusCounts(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	view := &WaitlistView{
		CourseID:        course.ExternalID,
		TotalWaitlisted: total,
		StatusCounts:    make(map[string]int, len(counts)),
		Entries:         make([]WaitlistEntryView, 0, len(entries)),
	}
	for status, count := range counts {
		view.StatusCounts[string(status)] = count
	}

	for i, entry := range entries {
		studentExternalID := entry.StudentID.String()
		if student, err := s.studentsRepo.GetByID(ctx, entry.StudentID); err == nil {
			studentExternalID = student.ExternalID
		}
		view.Entries = append(view.Entries, WaitlistEntryView{
			StudentID:     studentExternalID,
			Position:      i + 1,
			Score:         entry.CompositeScore,
			AppliedAt:     entry.AppliedAt,
			PreferredSeat: entry.PreferredSeat,
			Breakdown:     scoreBreakdown(&entry),
		})
	}

	return view, nil
}

func (s *service) ListCourses(ctx context.Context) ([]courses.CourseSummary, error) {
	summaries, err := s.coursesRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return summaries, nil
}

func (s *service) ListEvents(ctx context.Context, courseID string, limit int) ([]RegistrationEvent, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListEvents(ctx, course.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return events, nil
}

func (s *service) getCourse(ctx context.Context, courseID string) (*courses.Course, error) {
	course, err := s.coursesRepo.GetByExternalID(ctx, courseID)
	if err != nil {
		if errors.Is(err, courses.ErrCourseNotFound) {
			return nil, fmt.Errorf("%w: course %s", ErrNotFound, courseID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if course.SeatConfig == nil {
		return nil, fmt.Errorf("%w: seat config for course %s", ErrNotFound, courseID)
	}
	return course, nil
}

func scoreBreakdown(entry *waitlist.Entry) map[string]float64 {
	return map[string]float64{
		"gpa":          entry.GPAScore,
		"interest":     entry.InterestScore,
		"time":         entry.TimeScore,
		"year":         entry.YearScore,
		"prerequisite": entry.PrereqScore,
	}
}

func (s *service) availableSeats(ctx context.Context, course *courses.Course) (int, error) {
	booked, err := s.repo.CountActiveBookings(ctx, course.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return course.SeatConfig.TotalSeats - booked, nil
}

func (s *service) appendDropEvent(ctx context.Context, course *courses.Course, student *students.Student) {
	err := s.repo.AppendEvent(ctx, &RegistrationEvent{
		CourseID:  course.ID,
		StudentID: &student.ID,
		EventType: EventDropped,
	})
	if err != nil {
		logEventAppendFailed(ctx, course.ExternalID, EventDropped, err)
	}
}

// appliedIntent carries the APPLIED audit record alongside an apply
// attempt so it is only recorded on the success path.
type appliedIntent struct {
	req       ApplyRequest
	appliedAt time.Time
}

// appliedEventRecord builds the APPLIED audit event for an apply request
func appliedEventRecord(student *students.Student, course *courses.Course, req ApplyRequest) *RegistrationEvent {
	metadata := JSONMap{"autoRegister": req.AutoRegister}
	if req.PreferredSeat != nil {
		metadata["preferredSeat"] = normalizeSeat(*req.PreferredSeat)
	}

	return &RegistrationEvent{
		CourseID:  course.ID,
		StudentID: &student.ID,
		EventType: EventApplied,
		Metadata:  metadata,
	}
}

func (s *service) publishApplied(ctx context.Context, student *students.Student, course *courses.Course, appliedAt time.Time) {
	s.publishCourse(ctx, course.ExternalID, realtime.Envelope{
		Type:      realtime.EventApplied,
		CourseID:  course.ExternalID,
		StudentID: student.ExternalID,
		Payload:   map[string]interface{}{"appliedAt": appliedAt},
	})
}

func (s *service) appendAndPublishApplied(ctx context.Context, student *students.Student, course *courses.Course, req ApplyRequest, appliedAt time.Time) {
	if err := s.repo.AppendEvent(ctx, appliedEventRecord(student, course, req)); err != nil {
		logEventAppendFailed(ctx, course.ExternalID, EventApplied, err)
		return
	}
	s.publishApplied(ctx, student, course, appliedAt)
}

func normalizeSeat(seatNumber string) string {
	row, column, err := courses.ParseSeatNumber(seatNumber)
	if err != nil {
		return seatNumber
	}
	return fmt.Sprintf("%s%d", row, column)
}
