package registration

import (
	"github.com/gin-gonic/gin"
)

// SetupRegistrationRoutes configures the allocation endpoints
func SetupRegistrationRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Allocation operations
	rg.POST("/apply", controller.Apply)
	rg.POST("/book-seat", controller.BookSeat)
	rg.POST("/drop", controller.Drop)

	// Views
	rg.GET("/classroom/:courseId", controller.GetClassroom)
	rg.GET("/student/:studentId/status", controller.GetStudentStatus)
	rg.GET("/waitlist/:courseId", controller.GetWaitlist)
	rg.GET("/courses", controller.ListCourses)

	// Course lifecycle and admin operations
	course := rg.Group("/course/:courseId")
	{
		course.POST("/open-booking", controller.OpenBooking)
		course.POST("/close-booking", controller.CloseBooking)
		course.POST("/booking-status", controller.SetBookingStatus)
		course.POST("/fill", controller.FillVacancies)
		course.GET("/events", controller.ListEvents)
	}
}
