package database

import (
	"coursely/internal/courses"
	"coursely/internal/registration"
	"coursely/internal/students"
	"coursely/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&students.Student{},
		&courses.Course{},
		&courses.SeatConfig{},
		&waitlist.Entry{},
		&registration.SeatBooking{},
		&registration.Enrollment{},
		&registration.RegistrationEvent{},
	)
	if err != nil {
		return err
	}

	return MigrateConstraints(db)
}
