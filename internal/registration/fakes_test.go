package registration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coursely/internal/classroom"
	"coursely/internal/courses"
	"coursely/internal/scoring"
	"coursely/internal/students"
	"coursely/internal/waitlist"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository mirroring the transactional
// semantics of the real one: status gating, seat uniqueness, one active
// booking per student, and audit events appended with each mutation.
type fakeRepo struct {
	bookings    []*SeatBooking
	enrollments map[string]*Enrollment // courseID/studentID
	events      []*RegistrationEvent

	queue *fakeQueue // settles WAITING entries on direct booking

	lockBusy bool  // simulates a concurrent filler holding the lock
	bookErr  error // forces BookSeat to fail
}

func newFakeRepo(queue *fakeQueue) *fakeRepo {
	return &fakeRepo{
		enrollments: make(map[string]*Enrollment),
		queue:       queue,
	}
}

func enrollmentKey(courseID, studentID uuid.UUID) string {
	return courseID.String() + "/" + studentID.String()
}

func (f *fakeRepo) eventCount(eventType string) int {
	count := 0
	for _, event := range f.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

func (f *fakeRepo) BookSeat(ctx context.Context, params BookSeatParams) (*SeatBooking, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}

	config := params.Course.SeatConfig
	switch {
	case config.BookingStatus.AllowsDirectBooking():
	case params.EventType == EventAutoAllocated && config.BookingStatus != courses.StatusCompleted:
	default:
		return nil, fmt.Errorf("%w: booking status is %s", ErrStateViolation, config.BookingStatus)
	}
	if !config.ContainsSeat(params.SeatNumber) {
		return nil, fmt.Errorf("%w: seat %s does not exist in this classroom", ErrInputInvalid, params.SeatNumber)
	}

	for _, booking := range f.bookings {
		if booking.CourseID != params.Course.ID || !booking.IsActive {
			continue
		}
		if booking.SeatNumber == params.SeatNumber {
			return nil, fmt.Errorf("%w: seat %s is already booked", ErrConflict, params.SeatNumber)
		}
		if booking.StudentID == params.StudentID {
			return nil, fmt.Errorf("%w: student already holds a seat in this course", ErrConflict)
		}
	}

	booking := &SeatBooking{
		ID:         uuid.New(),
		CourseID:   params.Course.ID,
		StudentID:  params.StudentID,
		SeatNumber: params.SeatNumber,
		IsActive:   true,
		BookedAt:   time.Now(),
	}
	f.bookings = append(f.bookings, booking)
	f.upsertEnrollment(params.Course.ID, params.StudentID, func(enrollment *Enrollment) {
		enrollment.Status = EnrollmentEnrolled
		seat := params.SeatNumber
		enrollment.SeatNumber = &seat
		bookedAt := booking.BookedAt
		enrollment.EnrolledAt = &bookedAt
		enrollment.DroppedAt = nil
	})

	if f.queue != nil {
		f.queue.settleWaiting(params.Course.ID, params.StudentID)
	}

	if params.AppliedEvent != nil {
		applied := *params.AppliedEvent
		applied.ID = uuid.New()
		applied.CreatedAt = time.Now()
		f.events = append(f.events, &applied)
	}
	f.events = append(f.events, &RegistrationEvent{
		ID:        uuid.New(),
		CourseID:  params.Course.ID,
		StudentID: &params.StudentID,
		EventType: params.EventType,
		Metadata:  params.Metadata,
		CreatedAt: time.Now(),
	})
	return booking, nil
}

func (f *fakeRepo) upsertEnrollment(courseID, studentID uuid.UUID, apply func(*Enrollment)) {
	key := enrollmentKey(courseID, studentID)
	enrollment, ok := f.enrollments[key]
	if !ok {
		enrollment = &Enrollment{ID: uuid.New(), CourseID: courseID, StudentID: studentID}
		f.enrollments[key] = enrollment
	}
	apply(enrollment)
}

func (f *fakeRepo) ReleaseSeat(ctx context.Context, course *courses.Course, studentID uuid.UUID, metadata JSONMap) (*SeatBooking, error) {
	for _, booking := range f.bookings {
		if booking.CourseID == course.ID && booking.StudentID == studentID && booking.IsActive {
			now := time.Now()
			booking.IsActive = false
			booking.ReleasedAt = &now
			f.upsertEnrollment(course.ID, studentID, func(enrollment *Enrollment) {
				enrollment.Status = EnrollmentDropped
				enrollment.SeatNumber = nil
				enrollment.DroppedAt = &now
			})

			if metadata == nil {
				metadata = JSONMap{}
			}
			metadata["seatNumber"] = booking.SeatNumber
			f.events = append(f.events, &RegistrationEvent{
				ID:        uuid.New(),
				CourseID:  course.ID,
				StudentID: &studentID,
				EventType: EventSeatReleased,
				Metadata:  metadata,
				CreatedAt: now,
			})
			return booking, nil
		}
	}
	return nil, ErrNotEnrolled
}

func (f *fakeRepo) TransitionBookingStatus(ctx context.Context, course *courses.Course, to courses.BookingStatus, openedAt *time.Time) (*StatusTransition, error) {
	config := course.SeatConfig
	transition := &StatusTransition{From: config.BookingStatus, To: to}

	if config.BookingStatus == to {
		return transition, nil
	}
	if !config.BookingStatus.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: cannot transition %s -> %s", ErrStateViolation, config.BookingStatus, to)
	}

	config.BookingStatus = to
	if openedAt != nil {
		config.BookingOpensAt = openedAt
	}
	transition.Changed = true
	f.events = append(f.events, &RegistrationEvent{
		ID:        uuid.New(),
		CourseID:  course.ID,
		EventType: EventBookingStatusChange,
		Metadata:  JSONMap{"from": string(transition.From), "to": string(to)},
		CreatedAt: time.Now(),
	})
	return transition, nil
}

func (f *fakeRepo) GetActiveBooking(ctx context.Context, courseID, studentID uuid.UUID) (*SeatBooking, error) {
	for _, booking := range f.bookings {
		if booking.CourseID == courseID && booking.StudentID == studentID && booking.IsActive {
			return booking, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) GetActiveBookingBySeat(ctx context.Context, courseID uuid.UUID, seatNumber string) (*SeatBooking, error) {
	for _, booking := range f.bookings {
		if booking.CourseID == courseID && booking.SeatNumber == seatNumber && booking.IsActive {
			return booking, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) ListActiveBookings(ctx context.Context, courseID uuid.UUID) ([]SeatBooking, error) {
	var active []SeatBooking
	for _, booking := range f.bookings {
		if booking.CourseID == courseID && booking.IsActive {
			active = append(active, *booking)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].SeatNumber < active[j].SeatNumber })
	return active, nil
}

func (f *fakeRepo) CountActiveBookings(ctx context.Context, courseID uuid.UUID) (int, error) {
	active, _ := f.ListActiveBookings(ctx, courseID)
	return len(active), nil
}

func (f *fakeRepo) OccupiedSeatNumbers(ctx context.Context, courseID uuid.UUID) (map[string]uuid.UUID, error) {
	active, _ := f.ListActiveBookings(ctx, courseID)
	occupied := make(map[string]uuid.UUID, len(active))
	for _, booking := range active {
		occupied[booking.SeatNumber] = booking.StudentID
	}
	return occupied, nil
}

func (f *fakeRepo) GetEnrollment(ctx context.Context, courseID, studentID uuid.UUID) (*Enrollment, error) {
	enrollment, ok := f.enrollments[enrollmentKey(courseID, studentID)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *enrollment
	return &copied, nil
}

func (f *fakeRepo) ListEnrollmentsForStudent(ctx context.Context, studentID uuid.UUID, status EnrollmentStatus) ([]Enrollment, error) {
	var enrollments []Enrollment
	for _, enrollment := range f.enrollments {
		if status != "" && enrollment.Status != status {
			continue
		}
		if enrollment.StudentID != studentID {
			continue
		}
		enrollments = append(enrollments, *enrollment)
	}
	return enrollments, nil
}

func (f *fakeRepo) AppendEvent(ctx context.Context, event *RegistrationEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) ListEvents(ctx context.Context, courseID uuid.UUID, limit int) ([]RegistrationEvent, error) {
	var events []RegistrationEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].CourseID == courseID {
			events = append(events, *f.events[i])
		}
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	return events, nil
}

func (f *fakeRepo) AcquireCourseLock(ctx context.Context, courseID uuid.UUID) (bool, error) {
	return !f.lockBusy, nil
}

func (f *fakeRepo) ReleaseCourseLock(ctx context.Context, courseID uuid.UUID) error {
	return nil
}

// fakeQueue is an in-memory waitlist.Service using a real scoring engine,
// so priority and tie-break order match production behaviour.
type fakeQueue struct {
	engine  *scoring.Engine
	entries []*waitlist.Entry

	enqueueErr error // forces Enqueue to fail
}

func newFakeQueue(engine *scoring.Engine) *fakeQueue {
	return &fakeQueue{engine: engine}
}

func (q *fakeQueue) sortedWaiting(courseID uuid.UUID) []*waitlist.Entry {
	var waiting []*waitlist.Entry
	for _, entry := range q.entries {
		if entry.CourseID == courseID && entry.Status == waitlist.StatusWaiting {
			waiting = append(waiting, entry)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].CompositeScore != waiting[j].CompositeScore {
			return waiting[i].CompositeScore > waiting[j].CompositeScore
		}
		if !waiting[i].AppliedAt.Equal(waiting[j].AppliedAt) {
			return waiting[i].AppliedAt.Before(waiting[j].AppliedAt)
		}
		return waiting[i].ID.String() < waiting[j].ID.String()
	})
	return waiting
}

func (q *fakeQueue) settleWaiting(courseID, studentID uuid.UUID) {
	for _, entry := range q.entries {
		if entry.CourseID == courseID && entry.StudentID == studentID && entry.Status == waitlist.StatusWaiting {
			entry.Status = waitlist.StatusAllocated
		}
	}
}

func (q *fakeQueue) entryByID(id uuid.UUID) *waitlist.Entry {
	for _, entry := range q.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (q *fakeQueue) Enqueue(ctx context.Context, student *students.Student, course *courses.Course, preferredSeat *string, appliedAt time.Time) (*waitlist.Entry, int, error) {
	if q.enqueueErr != nil {
		return nil, 0, q.enqueueErr
	}
	scores := q.engine.Compute(student, course, appliedAt)

	var entry *waitlist.Entry
	for _, existing := range q.entries {
		if existing.CourseID == course.ID && existing.StudentID == student.ID && !existing.Status.IsTerminal() {
			entry = existing
			break
		}
	}
	if entry == nil {
		entry = &waitlist.Entry{
			ID:        uuid.New(),
			CourseID:  course.ID,
			StudentID: student.ID,
			AppliedAt: appliedAt,
		}
		q.entries = append(q.entries, entry)
	}

	entry.PreferredSeat = preferredSeat
	entry.GPAScore = scores.GPA
	entry.InterestScore = scores.Interest
	entry.TimeScore = scores.Time
	entry.YearScore = scores.Year
	entry.PrereqScore = scores.Prerequisite
	entry.CompositeScore = scores.Composite
	entry.Status = waitlist.StatusWaiting

	position, _ := q.Position(ctx, entry)
	copied := *entry
	return &copied, position, nil
}

func (q *fakeQueue) Cancel(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	for _, entry := range q.entries {
		if entry.CourseID == courseID && entry.StudentID == studentID && entry.Status == waitlist.StatusWaiting {
			entry.Status = waitlist.StatusCancelled
			return true, nil
		}
	}
	return false, nil
}

func (q *fakeQueue) PeekTop(ctx context.Context, courseID uuid.UUID, n int) ([]waitlist.Entry, error) {
	if n <= 0 {
		n = 10
	}
	waiting := q.sortedWaiting(courseID)
	if len(waiting) > n {
		waiting = waiting[:n]
	}
	top := make([]waitlist.Entry, 0, len(waiting))
	for _, entry := range waiting {
		top = append(top, *entry)
	}
	return top, nil
}

func (q *fakeQueue) PopTop(ctx context.Context, courseID uuid.UUID) (*waitlist.Entry, error) {
	waiting := q.sortedWaiting(courseID)
	if len(waiting) == 0 {
		return nil, nil
	}
	waiting[0].Status = waitlist.StatusProcessing
	copied := *waiting[0]
	return &copied, nil
}

func (q *fakeQueue) MarkAllocated(ctx context.Context, entryID uuid.UUID) error {
	entry := q.entryByID(entryID)
	if entry == nil || entry.Status != waitlist.StatusProcessing {
		return fmt.Errorf("waitlist entry %s is not in PROCESSING", entryID)
	}
	entry.Status = waitlist.StatusAllocated
	return nil
}

func (q *fakeQueue) RevertToWaiting(ctx context.Context, entryID uuid.UUID) error {
	entry := q.entryByID(entryID)
	if entry == nil || entry.Status != waitlist.StatusProcessing {
		return fmt.Errorf("waitlist entry %s is not in PROCESSING", entryID)
	}
	entry.Status = waitlist.StatusWaiting
	return nil
}

func (q *fakeQueue) Size(ctx context.Context, courseID uuid.UUID) (int, error) {
	return len(q.sortedWaiting(courseID)), nil
}

func (q *fakeQueue) Position(ctx context.Context, entry *waitlist.Entry) (int, error) {
	waiting := q.sortedWaiting(entry.CourseID)
	for i, candidate := range waiting {
		if candidate.ID == entry.ID {
			return i + 1, nil
		}
	}
	return len(waiting) + 1, nil
}

func (q *fakeQueue) ActiveEntry(ctx context.Context, courseID, studentID uuid.UUID) (*waitlist.Entry, error) {
	for _, entry := range q.entries {
		if entry.CourseID == courseID && entry.StudentID == studentID && !entry.Status.IsTerminal() {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, waitlist.ErrEntryNotFound
}

func (q *fakeQueue) EntriesForStudent(ctx context.Context, studentID uuid.UUID) ([]waitlist.Entry, error) {
	var entries []waitlist.Entry
	for _, entry := range q.entries {
		if entry.StudentID == studentID && entry.Status == waitlist.StatusWaiting {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (q *fakeQueue) StatusCounts(ctx context.Context, courseID uuid.UUID) (map[waitlist.Status]int, error) {
	counts := make(map[waitlist.Status]int)
	for _, entry := range q.entries {
		if entry.CourseID == courseID {
			counts[entry.Status]++
		}
	}
	return counts, nil
}

// fakeCourses resolves courses by external id from a fixed catalog
type fakeCourses struct {
	byExternal map[string]*courses.Course
}

func newFakeCourses(catalog ...*courses.Course) *fakeCourses {
	byExternal := make(map[string]*courses.Course, len(catalog))
	for _, course := range catalog {
		byExternal[course.ExternalID] = course
	}
	return &fakeCourses{byExternal: byExternal}
}

func (f *fakeCourses) Create(ctx context.Context, course *courses.Course) error {
	f.byExternal[course.ExternalID] = course
	return nil
}

func (f *fakeCourses) GetByID(ctx context.Context, id uuid.UUID) (*courses.Course, error) {
	for _, course := range f.byExternal {
		if course.ID == id {
			return course, nil
		}
	}
	return nil, courses.ErrCourseNotFound
}

func (f *fakeCourses) GetByExternalID(ctx context.Context, externalID string) (*courses.Course, error) {
	course, ok := f.byExternal[externalID]
	if !ok {
		return nil, courses.ErrCourseNotFound
	}
	return course, nil
}

func (f *fakeCourses) GetSeatConfig(ctx context.Context, courseID uuid.UUID) (*courses.SeatConfig, error) {
	course, err := f.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return course.SeatConfig, nil
}

func (f *fakeCourses) List(ctx context.Context) ([]courses.CourseSummary, error) {
	var summaries []courses.CourseSummary
	for _, course := range f.byExternal {
		summaries = append(summaries, courses.CourseSummary{
			ExternalID:    course.ExternalID,
			Name:          course.Name,
			TotalSeats:    course.SeatConfig.TotalSeats,
			BookingStatus: course.SeatConfig.BookingStatus,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ExternalID < summaries[j].ExternalID })
	return summaries, nil
}

// fakeStudents resolves students from a fixed roster
type fakeStudents struct {
	byExternal map[string]*students.Student
}

func newFakeStudents(roster ...*students.Student) *fakeStudents {
	byExternal := make(map[string]*students.Student, len(roster))
	for _, student := range roster {
		byExternal[student.ExternalID] = student
	}
	return &fakeStudents{byExternal: byExternal}
}

func (f *fakeStudents) Create(ctx context.Context, student *students.Student) error {
	f.byExternal[student.ExternalID] = student
	return nil
}

func (f *fakeStudents) GetByID(ctx context.Context, id uuid.UUID) (*students.Student, error) {
	for _, student := range f.byExternal {
		if student.ID == id {
			return student, nil
		}
	}
	return nil, students.ErrStudentNotFound
}

func (f *fakeStudents) GetByExternalID(ctx context.Context, externalID string) (*students.Student, error) {
	student, ok := f.byExternal[externalID]
	if !ok {
		return nil, students.ErrStudentNotFound
	}
	return student, nil
}

// stubProjector satisfies classroom.Projector without a database
type stubProjector struct {
	state *classroom.ClassroomState
	err   error
}

func (s *stubProjector) GetState(ctx context.Context, courseExternalID string) (*classroom.ClassroomState, error) {
	return s.state, s.err
}

func (s *stubProjector) Refresh(ctx context.Context, courseExternalID string) (*classroom.ClassroomState, error) {
	return s.state, s.err
}

func (s *stubProjector) Run(ctx context.Context) {}
