package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrEntryNotFound is returned when a waitlist entry lookup misses
var ErrEntryNotFound = errors.New("waitlist entry not found")

// Repository interface defines the contract for waitlist data operations.
// Ordering authority is the database; Redis mirrors the WAITING set per
// course for cheap size queries and live top-N payloads.
type Repository interface {
	// Entry operations
	UpsertWaiting(ctx context.Context, entry *Entry) error
	GetActive(ctx context.Context, courseID, studentID uuid.UUID) (*Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Ordered reads. Priority order is composite score descending, then
	// applied-at ascending, then entry id.
	ListWaiting(ctx context.Context, courseID uuid.UUID, limit int) ([]Entry, error)
	ListWaitingForStudent(ctx context.Context, studentID uuid.UUID) ([]Entry, error)
	TopWaiting(ctx context.Context, courseID uuid.UUID) (*Entry, error)
	Position(ctx context.Context, entry *Entry) (int, error)
	CountWaiting(ctx context.Context, courseID uuid.UUID) (int, error)
	StatusCounts(ctx context.Context, courseID uuid.UUID) (map[Status]int, error)

	// CompareAndSwapStatus transitions the entry's status only if it still
	// holds the expected value; returns whether the swap happened.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}

const waitlistOrder = "composite_score DESC, applied_at ASC, id ASC"

// repository implements the Repository interface
type repository struct {
	db       *gorm.DB
	redis    *redis.Client
	queueTTL time.Duration
}

// NewRepository creates a new waitlist repository. The Redis client is
// optional; without it the ZSET mirror is skipped.
func NewRepository(db *gorm.DB, redisClient *redis.Client, queueTTL time.Duration) Repository {
	if queueTTL <= 0 {
		queueTTL = 24 * time.Hour
	}
	return &repository{db: db, redis: redisClient, queueTTL: queueTTL}
}

func (r *repository) UpsertWaiting(ctx context.Context, entry *Entry) error {
	existing, err := r.GetActive(ctx, entry.CourseID, entry.StudentID)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return err
	}

	if existing != nil {
		// Keep the original identity and applied-at so the tie-break
		// order is stable across re-applications.
		entry.ID = existing.ID
		entry.AppliedAt = existing.AppliedAt
		entry.Status = StatusWaiting

		err = r.db.WithContext(ctx).
			Model(&Entry{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"preferred_seat":  entry.PreferredSeat,
				"gpa_score":       entry.GPAScore,
				"interest_score":  entry.InterestScore,
				"time_score":      entry.TimeScore,
				"year_score":      entry.YearScore,
				"prereq_score":    entry.PrereqScore,
				"composite_score": entry.CompositeScore,
				"status":          StatusWaiting,
				"updated_at":      time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update waitlist entry: %w", err)
		}
	} else {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.Status = StatusWaiting
		if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create waitlist entry: %w", err)
		}
	}

	r.mirrorAdd(ctx, entry)
	return nil
}

func (r *repository) GetActive(ctx context.Context, courseID, studentID uuid.UUID) (*Entry, error) {
	var entry Entry
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ? AND status IN ?",
			courseID, studentID, []Status{StatusWaiting, StatusProcessing}).
		First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}

	return &entry, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var entry Entry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *repository) ListWaiting(ctx context.Context, courseID uuid.UUID, limit int) ([]Entry, error) {
	var entries []Entry
	query := r.db.WithContext(ctx).
		Where("course_id = ? AND status = ?", courseID, StatusWaiting).
		Order(waitlistOrder)
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *repository) ListWaitingForStudent(ctx context.Context, studentID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, StatusWaiting).
		Order("applied_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list student waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *repository) TopWaiting(ctx context.Context, courseID uuid.UUID) (*Entry, error) {
	var entry Entry
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND status = ?", courseID, StatusWaiting).
		Order(waitlistOrder).
		First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get top waitlist entry: %w", err)
	}

	return &entry, nil
}

// Position counts the WAITING entries strictly ahead of the given entry
// in priority order and returns a 1-indexed rank.
func (r *repository) Position(ctx context.Context, entry *Entry) (int, error) {
	var ahead int64
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("course_id = ? AND status = ?", entry.CourseID, StatusWaiting).
		Where(`composite_score > ?
			OR (composite_score = ? AND applied_at < ?)
			OR (composite_score = ? AND applied_at = ? AND id < ?)`,
			entry.CompositeScore,
			entry.CompositeScore, entry.AppliedAt,
			entry.CompositeScore, entry.AppliedAt, entry.ID).
		Count(&ahead).Error

	if err != nil {
		return 0, fmt.Errorf("failed to compute waitlist position: %w", err)
	}

	return int(ahead) + 1, nil
}

func (r *repository) CountWaiting(ctx context.Context, courseID uuid.UUID) (int, error) {
	// Fast path via the Redis mirror
	if r.redis != nil {
		if size, err := r.redis.ZCard(ctx, QueueKey(courseID)).Result(); err == nil && size > 0 {
			return int(size), nil
		}
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("course_id = ? AND status = ?", courseID, StatusWaiting).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist entries: %w", err)
	}
	return int(count), nil
}

func (r *repository) StatusCounts(ctx context.Context, courseID uuid.UUID) (map[Status]int, error) {
	type statusCount struct {
		Status Status
		Count  int
	}

	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Select("status, COUNT(*) as count").
		Where("course_id = ?", courseID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist status counts: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("invalid waitlist transition %s -> %s", from, to)
	}

	result := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to swap waitlist status: %w", result.Error)
	}

	swapped := result.RowsAffected == 1
	if swapped {
		r.mirrorOnTransition(ctx, id, to)
	}
	return swapped, nil
}

// mirrorAdd reflects a WAITING entry into the course ZSET
func (r *repository) mirrorAdd(ctx context.Context, entry *Entry) {
	if r.redis == nil {
		return
	}
	key := QueueKey(entry.CourseID)
	r.redis.ZAdd(ctx, key, redis.Z{
		Score:  entry.CompositeScore,
		Member: entry.StudentID.String(),
	})
	r.redis.Expire(ctx, key, r.queueTTL)
}

// mirrorOnTransition removes the member when the entry leaves WAITING and
// restores it when a PROCESSING entry reverts.
func (r *repository) mirrorOnTransition(ctx context.Context, id uuid.UUID, to Status) {
	if r.redis == nil {
		return
	}

	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return
	}

	key := QueueKey(entry.CourseID)
	if to == StatusWaiting {
		r.redis.ZAdd(ctx, key, redis.Z{
			Score:  entry.CompositeScore,
			Member: entry.StudentID.String(),
		})
	} else {
		r.redis.ZRem(ctx, key, entry.StudentID.String())
	}
}
