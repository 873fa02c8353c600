package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the partial unique indexes concurrency control
// depends on. GORM's struct tags cannot express the is_active predicate,
// so these run as raw DDL after AutoMigrate.
func MigrateConstraints(db *gorm.DB) error {
	// One active booking per physical seat
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_active_seat_per_course
		ON seat_bookings (course_id, seat_number)
		WHERE is_active = true;
	`).Error
	if err != nil {
		return err
	}

	// One active booking per student per course
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_active_student_per_course
		ON seat_bookings (course_id, student_id)
		WHERE is_active = true;
	`).Error
	if err != nil {
		return err
	}

	// One non-terminal waitlist entry per (course, student)
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_live_waitlist_entry
		ON waitlist_entries (course_id, student_id)
		WHERE status IN ('WAITING', 'PROCESSING');
	`).Error
	if err != nil {
		return err
	}

	// Priority-ordered reads scan this index instead of sorting
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_priority
		ON waitlist_entries (course_id, composite_score DESC, applied_at ASC, id ASC)
		WHERE status = 'WAITING';
	`).Error
	if err != nil {
		return err
	}

	return nil
}
