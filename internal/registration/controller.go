package registration

import (
	"errors"
	"net/http"
	"strconv"

	"coursely/internal/courses"
	"coursely/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// statusForError maps service errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrInputInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotEnrolled):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrCourseCompleted):
		return http.StatusGone
	case errors.Is(err, ErrStateViolation):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// failedResult is the stable error envelope for allocation operations
func failedResult(err error) *AllocationResult {
	status := ResultRejected
	if errors.Is(err, ErrUnavailable) {
		status = "FAILED"
	}
	return &AllocationResult{
		Success: false,
		Status:  status,
		Message: err.Error(),
	}
}

// Apply handles POST /api/registration/apply
func (c *Controller) Apply(ctx *gin.Context) {
	var req ApplyRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.Apply(ctx.Request.Context(), ApplyRequest{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		PreferredSeat: req.PreferredSeat,
		AutoRegister:  req.AutoRegister,
	})
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Application failed", failedResult(err), err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Application processed", result, nil)
}

// BookSeat handles POST /api/registration/book-seat
func (c *Controller) BookSeat(ctx *gin.Context) {
	var req BookSeatRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.BookSeat(ctx.Request.Context(), req.StudentID, req.CourseID, req.SeatNumber)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Seat booking failed", failedResult(err), err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat booked", result, nil)
}

// Drop handles POST /api/registration/drop
func (c *Controller) Drop(ctx *gin.Context) {
	var req DropRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.Drop(ctx.Request.Context(), req.StudentID, req.CourseID)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Drop failed", failedResult(err), err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Registration dropped", result, nil)
}

// GetClassroom handles GET /api/registration/classroom/:courseId
func (c *Controller) GetClassroom(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	state, err := c.service.GetClassroomState(ctx.Request.Context(), courseID)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to get classroom state", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Classroom state retrieved", state, nil)
}

// GetStudentStatus handles GET /api/registration/student/:studentId/status
func (c *Controller) GetStudentStatus(ctx *gin.Context) {
	studentID := ctx.Param("studentId")
	if studentID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Student ID is required", nil, "missing student ID")
		return
	}

	status, err := c.service.GetStudentStatus(ctx.Request.Context(), studentID)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to get student status", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Student status retrieved", status, nil)
}

// GetWaitlist handles GET /api/registration/waitlist/:courseId
func (c *Controller) GetWaitlist(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	limit := 10
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid limit", nil, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	view, err := c.service.GetWaitlist(ctx.Request.Context(), courseID, limit)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to get waitlist", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist retrieved", view, nil)
}

// OpenBooking handles POST /api/registration/course/:courseId/open-booking
func (c *Controller) OpenBooking(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	if err := c.service.OpenBooking(ctx.Request.Context(), courseID); err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to open booking", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking opened", gin.H{"success": true}, nil)
}

// CloseBooking handles POST /api/registration/course/:courseId/close-booking
func (c *Controller) CloseBooking(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	if err := c.service.CloseBooking(ctx.Request.Context(), courseID); err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to close booking", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking closed", gin.H{"success": true}, nil)
}

// SetBookingStatus handles POST /api/registration/course/:courseId/booking-status
func (c *Controller) SetBookingStatus(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	var req BookingStatusRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	err := c.service.SetBookingStatus(ctx.Request.Context(), courseID, courses.BookingStatus(req.Status))
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to change booking status", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking status changed", gin.H{"status": req.Status}, nil)
}

// FillVacancies handles POST /api/registration/course/:courseId/fill
func (c *Controller) FillVacancies(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	filled, err := c.service.FillVacancies(ctx.Request.Context(), courseID)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Vacancy fill failed", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Vacancy fill completed", gin.H{"filled": filled}, nil)
}

// ListCourses handles GET /api/registration/courses
func (c *Controller) ListCourses(ctx *gin.Context) {
	summaries, err := c.service.ListCourses(ctx.Request.Context())
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to list courses", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Courses retrieved", summaries, nil)
}

// ListEvents handles GET /api/registration/course/:courseId/events
func (c *Controller) ListEvents(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	if courseID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Course ID is required", nil, "missing course ID")
		return
	}

	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid limit", nil, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := c.service.ListEvents(ctx.Request.Context(), courseID, limit)
	if err != nil {
		response.RespondJSON(ctx, "error", statusForError(err), "Failed to list events", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Events retrieved", events, nil)
}
