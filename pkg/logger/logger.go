package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with domain-level helpers
type Logger struct {
	*slog.Logger
}

// New builds a logger from LOG_LEVEL; text output in debug mode,
// JSON in release mode.
func New() *Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogHTTPRequest logs one completed HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// Registration lifecycle events. These mirror the audit trail so grepping
// the logs follows the same vocabulary as the registration_events table.

func (l *Logger) LogSeatBooked(ctx context.Context, courseID, studentID, seatNumber string) {
	l.Logger.InfoContext(ctx,
		"Seat Booked",
		slog.String("course_id", courseID),
		slog.String("student_id", studentID),
		slog.String("seat_number", seatNumber),
	)
}

func (l *Logger) LogSeatReleased(ctx context.Context, courseID, studentID, seatNumber string) {
	l.Logger.InfoContext(ctx,
		"Seat Released",
		slog.String("course_id", courseID),
		slog.String("student_id", studentID),
		slog.String("seat_number", seatNumber),
	)
}

func (l *Logger) LogAutoEnrolled(ctx context.Context, courseID, studentID, seatNumber string) {
	l.Logger.InfoContext(ctx,
		"Student Auto Enrolled",
		slog.String("course_id", courseID),
		slog.String("student_id", studentID),
		slog.String("seat_number", seatNumber),
	)
}

func (l *Logger) LogBookingStatusChanged(ctx context.Context, courseID, from, to string) {
	l.Logger.InfoContext(ctx,
		"Booking Status Changed",
		slog.String("course_id", courseID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

var defaultLogger = New()

// GetDefault returns the process-wide logger
func GetDefault() *Logger {
	return defaultLogger
}
