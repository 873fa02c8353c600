package main

import (
	"context"
	"fmt"
	"log"

	"coursely/internal/courses"
	"coursely/internal/shared/config"
	"coursely/internal/shared/database"
	"coursely/internal/students"
)

type Seeder struct {
	db *database.DB

	coursesRepo  courses.Repository
	studentsRepo students.Repository
}

func main() {
	fmt.Println("🌱 Starting Coursely Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:           db,
		coursesRepo:  courses.NewRepository(db.GetPostgreSQL()),
		studentsRepo: students.NewRepository(db.GetPostgreSQL()),
	}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"registration_events",
		"waitlist_entries",
		"enrollments",
		"seat_bookings",
		"seat_configs",
		"courses",
		"students",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds the demo catalog and student roster
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if err := s.SeedCourses(ctx); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	if err := s.SeedStudents(ctx); err != nil {
		return fmt.Errorf("failed to seed students: %w", err)
	}

	return nil
}

// SeedCourses creates the demo catalog. CS101 is the small contended room
// used in walkthroughs; the others vary capacity, difficulty, and lifecycle
// state so every gating branch is reachable out of the box.
func (s *Seeder) SeedCourses(ctx context.Context) error {
	fmt.Println("  Creating courses...")

	catalog := []*courses.Course{
		{
			ExternalID:        "CS101",
			Name:              "Introduction to Computer Science",
			Category:          "Computer Science",
			Difficulty:        courses.DifficultyBeginner,
			MinGPARecommended: 0,
			Keywords:          courses.StringList{"programming", "algorithms", "python"},
			ScheduleDays:      courses.StringList{"Mon", "Wed"},
			StartTime:         "09:00",
			EndTime:           "10:30",
			SeatConfig: &courses.SeatConfig{
				Rows:          2,
				SeatsPerRow:   2,
				BookingStatus: courses.StatusOpen,
			},
		},
		{
			ExternalID:        "CS301",
			Name:              "Machine Learning",
			Category:          "Computer Science",
			Difficulty:        courses.DifficultyAdvanced,
			MinGPARecommended: 3.0,
			Prerequisites:     courses.StringList{"CS101", "MATH201"},
			Keywords:          courses.StringList{"machine learning", "ai", "statistics"},
			ScheduleDays:      courses.StringList{"Tue", "Thu"},
			StartTime:         "14:00",
			EndTime:           "15:30",
			SeatConfig: &courses.SeatConfig{
				Rows:          3,
				SeatsPerRow:   4,
				BookingStatus: courses.StatusClosed,
			},
		},
		{
			ExternalID:        "MATH201",
			Name:              "Linear Algebra",
			Category:          "Mathematics",
			Difficulty:        courses.DifficultyIntermediate,
			MinGPARecommended: 2.5,
			Keywords:          courses.StringList{"matrices", "vectors", "statistics"},
			ScheduleDays:      courses.StringList{"Mon", "Fri"},
			StartTime:         "11:00",
			EndTime:           "12:30",
			SeatConfig: &courses.SeatConfig{
				Rows:          4,
				SeatsPerRow:   5,
				BookingStatus: courses.StatusOpen,
			},
		},
		{
			ExternalID:        "PHIL110",
			Name:              "Critical Thinking",
			Category:          "Humanities",
			Difficulty:        courses.DifficultyBeginner,
			MinGPARecommended: 0,
			Keywords:          courses.StringList{"logic", "writing", "ethics"},
			ScheduleDays:      courses.StringList{"Wed"},
			StartTime:         "16:00",
			EndTime:           "18:00",
			SeatConfig: &courses.SeatConfig{
				Rows:          2,
				SeatsPerRow:   3,
				BookingStatus: courses.StatusWaitlistOnly,
			},
		},
	}

	for _, course := range catalog {
		if err := s.coursesRepo.Create(ctx, course); err != nil {
			return err
		}
		fmt.Printf("    ✓ %s: %s (%d seats, %s)\n",
			course.ExternalID, course.Name,
			course.SeatConfig.TotalSeats, course.SeatConfig.BookingStatus)
	}

	return nil
}

// SeedStudents creates the demo roster. GPAs, interests, and years are
// spread so the composite scores are distinguishable; STU5 and STU6 share
// identical profiles to exercise applied-at tie-breaking.
func (s *Seeder) SeedStudents(ctx context.Context) error {
	fmt.Println("  Creating students...")

	roster := []*students.Student{
		{
			ExternalID:       "STU1",
			RollNumber:       "2023CS001",
			Email:            "aarav.mehta@university.edu",
			Name:             "Aarav Mehta",
			GPA:              3.8,
			YearOfStudy:      3,
			Branch:           "Computer Science",
			Interests:        courses.StringList{"machine learning", "algorithms"},
			CompletedCourses: courses.StringList{"CS101", "MATH201"},
		},
		{
			ExternalID:  "STU2",
			RollNumber:  "2024CS014",
			Email:       "diya.sharma@university.edu",
			Name:        "Diya Sharma",
			GPA:         3.5,
			YearOfStudy: 1,
			Branch:      "Computer Science",
			Interests:   courses.StringList{"programming", "python"},
		},
		{
			ExternalID:       "STU3",
			RollNumber:       "2022EE007",
			Email:            "kabir.singh@university.edu",
			Name:             "Kabir Singh",
			GPA:              2.7,
			YearOfStudy:      4,
			Branch:           "Electrical Engineering",
			Interests:        courses.StringList{"statistics", "ai"},
			CompletedCourses: courses.StringList{"MATH201"},
		},
		{
			ExternalID:  "STU4",
			RollNumber:  "2024ME021",
			Email:       "ananya.rao@university.edu",
			Name:        "Ananya Rao",
			GPA:         3.2,
			YearOfStudy: 2,
			Branch:      "Mechanical Engineering",
			Interests:   courses.StringList{"logic", "ethics"},
		},
		{
			ExternalID:  "STU5",
			RollNumber:  "2023CS042",
			Email:       "rohan.iyer@university.edu",
			Name:        "Rohan Iyer",
			GPA:         3.3,
			YearOfStudy: 2,
			Branch:      "Computer Science",
			Interests:   courses.StringList{"algorithms", "statistics"},
		},
		{
			ExternalID:  "STU6",
			RollNumber:  "2023CS043",
			Email:       "sara.khan@university.edu",
			Name:        "Sara Khan",
			GPA:         3.3,
			YearOfStudy: 2,
			Branch:      "Computer Science",
			Interests:   courses.StringList{"algorithms", "statistics"},
		},
	}

	for _, student := range roster {
		if err := s.studentsRepo.Create(ctx, student); err != nil {
			return err
		}
		fmt.Printf("    ✓ %s: %s (GPA %.1f, year %d)\n",
			student.ExternalID, student.Name, student.GPA, student.YearOfStudy)
	}

	return nil
}
