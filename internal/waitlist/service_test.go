package waitlist

import (
	"context"
	"sort"
	"testing"
	"time"

	"coursely/internal/courses"
	"coursely/internal/scoring"
	"coursely/internal/students"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository keeps entries in memory and applies the same priority
// order the database query uses.
type fakeRepository struct {
	entries map[uuid.UUID]*Entry

	// swapFailures makes the next N CompareAndSwapStatus calls lose the
	// race without changing state.
	swapFailures int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{entries: make(map[uuid.UUID]*Entry)}
}

func (f *fakeRepository) sortedWaiting(courseID uuid.UUID) []Entry {
	var waiting []Entry
	for _, entry := range f.entries {
		if entry.CourseID == courseID && entry.Status == StatusWaiting {
			waiting = append(waiting, *entry)
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

func (f *fakeRepository) UpsertWaiting(ctx context.Context, entry *Entry) error {
	for _, existing := range f.entries {
		if existing.CourseID == entry.CourseID && existing.StudentID == entry.StudentID && !existing.Status.IsTerminal() {
			entry.ID = existing.ID
			entry.AppliedAt = existing.AppliedAt
			break
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Status = StatusWaiting
	stored := *entry
	f.entries[entry.ID] = &stored
	return nil
}

func (f *fakeRepository) GetActive(ctx context.Context, courseID, studentID uuid.UUID) (*Entry, error) {
	for _, entry := range f.entries {
		if entry.CourseID == courseID && entry.StudentID == studentID && !entry.Status.IsTerminal() {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeRepository) ListWaiting(ctx context.Context, courseID uuid.UUID, limit int) ([]Entry, error) {
	waiting := f.sortedWaiting(courseID)
	if limit > 0 && len(waiting) > limit {
		waiting = waiting[:limit]
	}
	return waiting, nil
}

func (f *fakeRepository) ListWaitingForStudent(ctx context.Context, studentID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	for _, entry := range f.entries {
		if entry.StudentID == studentID && entry.Status == StatusWaiting {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (f *fakeRepository) TopWaiting(ctx context.Context, courseID uuid.UUID) (*Entry, error) {
	waiting := f.sortedWaiting(courseID)
	if len(waiting) == 0 {
		return nil, ErrEntryNotFound
	}
	return &waiting[0], nil
}

func (f *fakeRepository) Position(ctx context.Context, entry *Entry) (int, error) {
	for i, candidate := range f.sortedWaiting(entry.CourseID) {
		if candidate.ID == entry.ID {
			return i + 1, nil
		}
	}
	return len(f.sortedWaiting(entry.CourseID)) + 1, nil
}

func (f *fakeRepository) CountWaiting(ctx context.Context, courseID uuid.UUID) (int, error) {
	return len(f.sortedWaiting(courseID)), nil
}

func (f *fakeRepository) StatusCounts(ctx context.Context, courseID uuid.UUID) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, entry := range f.entries {
		if entry.CourseID == courseID {
			counts[entry.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	if f.swapFailures > 0 {
		f.swapFailures--
		return false, nil
	}

	entry, ok := f.entries[id]
	if !ok || entry.Status != from {
		return false, nil
	}
	entry.Status = to
	return true, nil
}

func newTestService(repo Repository) Service {
	engine := scoring.NewEngine(scoring.DefaultWeights(), 168.0)
	return NewService(repo, engine)
}

func testStudent(externalID string, gpa float64) *students.Student {
	return &students.Student{
		ID:         uuid.New(),
		ExternalID: externalID,
		GPA:        gpa,
	}
}

func testCourse() *courses.Course {
	return &courses.Course{
		ID:         uuid.New(),
		ExternalID: "CS101",
		Difficulty: courses.DifficultyBeginner,
		SeatConfig: &courses.SeatConfig{Rows: 2, SeatsPerRow: 2, TotalSeats: 4},
	}
}

func TestEnqueueReturnsScoreAndPosition(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()

	entry, position, err := service.Enqueue(ctx, testStudent("STU1", 3.5), course, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, position)
	assert.Equal(t, StatusWaiting, entry.Status)
	assert.Greater(t, entry.CompositeScore, 0.0)
}

func TestEnqueueOrdersByCompositeScore(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()
	now := time.Now()

	weak := testStudent("STU-WEAK", 2.0)
	strong := testStudent("STU-STRONG", 4.0)

	_, position, err := service.Enqueue(ctx, weak, course, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	// The stronger profile jumps ahead despite applying later
	_, position, err = service.Enqueue(ctx, strong, course, nil, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	top, err := service.PeekTop(ctx, course.ID, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, strong.ID, top[0].StudentID)
	assert.Equal(t, weak.ID, top[1].StudentID)
}

func TestEnqueueTieBreaksByAppliedAt(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()
	now := time.Now()

	// Identical profiles produce identical scores
	first := testStudent("STU5", 3.3)
	second := testStudent("STU6", 3.3)

	_, _, err := service.Enqueue(ctx, first, course, nil, now)
	require.NoError(t, err)
	_, _, err = service.Enqueue(ctx, second, course, nil, now.Add(time.Second))
	require.NoError(t, err)

	top, err := service.PeekTop(ctx, course.ID, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, first.ID, top[0].StudentID, "earlier applicant wins the tie")
	assert.Equal(t, second.ID, top[1].StudentID)
}

func TestEnqueueReapplyKeepsOriginalAppliedAt(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()
	student := testStudent("STU1", 3.0)

	firstAt := time.Now()
	first, _, err := service.Enqueue(ctx, student, course, nil, firstAt)
	require.NoError(t, err)

	second, _, err := service.Enqueue(ctx, student, course, nil, firstAt.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.AppliedAt.Equal(firstAt), "re-applying must not reset the tie-break anchor")

	size, err := service.Size(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "re-applying must not duplicate the entry")
}

func TestCancelIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()
	student := testStudent("STU1", 3.0)

	_, _, err := service.Enqueue(ctx, student, course, nil, time.Now())
	require.NoError(t, err)

	changed, err := service.Cancel(ctx, course.ID, student.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = service.Cancel(ctx, course.ID, student.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second cancel is a no-op")

	changed, err = service.Cancel(ctx, course.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, changed, "cancel of a never-queued student is a no-op")
}

func TestPopTopEmptyQueue(t *testing.T) {
	service := newTestService(newFakeRepository())

	entry, err := service.PopTop(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestPopTopClaimsHighestPriority(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()

	weak := testStudent("STU-WEAK", 2.0)
	strong := testStudent("STU-STRONG", 4.0)
	_, _, err := service.Enqueue(ctx, weak, course, nil, time.Now())
	require.NoError(t, err)
	_, _, err = service.Enqueue(ctx, strong, course, nil, time.Now())
	require.NoError(t, err)

	entry, err := service.PopTop(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, strong.ID, entry.StudentID)
	assert.Equal(t, StatusProcessing, entry.Status)

	size, err := service.Size(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestPopTopRetriesLostRaces(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()

	_, _, err := service.Enqueue(ctx, testStudent("STU1", 3.0), course, nil, time.Now())
	require.NoError(t, err)

	// Two lost races still succeed on the third attempt
	repo.swapFailures = 2
	entry, err := service.PopTop(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, StatusProcessing, entry.Status)
}

func TestPopTopGivesUpAfterRetryLimit(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()

	_, _, err := service.Enqueue(ctx, testStudent("STU1", 3.0), course, nil, time.Now())
	require.NoError(t, err)

	repo.swapFailures = popRetryLimit
	_, err = service.PopTop(ctx, course.ID)
	assert.Error(t, err)
}

func TestMarkAllocatedRequiresProcessing(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()
	student := testStudent("STU1", 3.0)

	entry, _, err := service.Enqueue(ctx, student, course, nil, time.Now())
	require.NoError(t, err)

	// Still WAITING: allocation must fail
	assert.Error(t, service.MarkAllocated(ctx, entry.ID))

	popped, err := service.PopTop(ctx, course.ID)
	require.NoError(t, err)
	require.NoError(t, service.MarkAllocated(ctx, popped.ID))

	stored, err := repo.GetByID(ctx, popped.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAllocated, stored.Status)
}

func TestRevertToWaitingRestoresQueue(t *testing.T) {
	repo := newFakeRepository()
	service := newTestService(repo)
	course := testCourse()
	ctx := context.Background()

	_, _, err := service.Enqueue(ctx, testStudent("STU1", 3.0), course, nil, time.Now())
	require.NoError(t, err)

	popped, err := service.PopTop(ctx, course.ID)
	require.NoError(t, err)

	size, _ := service.Size(ctx, course.ID)
	assert.Equal(t, 0, size)

	require.NoError(t, service.RevertToWaiting(ctx, popped.ID))

	size, _ = service.Size(ctx, course.ID)
	assert.Equal(t, 1, size)

	// Reverting twice fails: the entry is WAITING again
	assert.Error(t, service.RevertToWaiting(ctx, popped.ID))
}

func TestStatusTransitionRules(t *testing.T) {
	assert.True(t, StatusWaiting.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusWaiting.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusAllocated))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusWaiting))

	assert.False(t, StatusWaiting.CanTransitionTo(StatusAllocated))
	assert.False(t, StatusAllocated.CanTransitionTo(StatusWaiting))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusWaiting))

	assert.True(t, StatusAllocated.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
}
