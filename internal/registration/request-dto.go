package registration

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"coursely/internal/courses"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("seatnumber", func(fl validator.FieldLevel) bool {
			_, _, err := courses.ParseSeatNumber(fl.Field().String())
			return err == nil
		})
	}
}

// ApplyRequestDTO is the body of POST /apply
type ApplyRequestDTO struct {
	StudentID     string  `json:"studentId" binding:"required"`
	CourseID      string  `json:"courseId" binding:"required"`
	PreferredSeat *string `json:"preferredSeat" binding:"omitempty,seatnumber"`
	AutoRegister  bool    `json:"autoRegister"`
}

// BookSeatRequestDTO is the body of POST /book-seat
type BookSeatRequestDTO struct {
	StudentID  string `json:"studentId" binding:"required"`
	CourseID   string `json:"courseId" binding:"required"`
	SeatNumber string `json:"seatNumber" binding:"required,seatnumber"`
}

// DropRequestDTO is the body of POST /drop
type DropRequestDTO struct {
	StudentID string `json:"studentId" binding:"required"`
	CourseID  string `json:"courseId" binding:"required"`
}

// BookingStatusRequestDTO is the body of POST /course/:courseId/booking-status
type BookingStatusRequestDTO struct {
	Status string `json:"status" binding:"required,oneof=CLOSED OPEN WAITLIST_ONLY STARTED COMPLETED"`
}
