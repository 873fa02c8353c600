package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStudentNotFound is returned when a student lookup misses
var ErrStudentNotFound = errors.New("student not found")

// Repository interface defines the contract for student data access
type Repository interface {
	Create(ctx context.Context, student *Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*Student, error)
	GetByExternalID(ctx context.Context, externalID string) (*Student, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new student repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, student *Student) error {
	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Student, error) {
	var student Student
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID string) (*Student, error) {
	var student Student
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}
