package scoring

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"coursely/internal/courses"
	"coursely/internal/students"
	"coursely/pkg/logger"
)

// Weights are the configurable coefficients of the composite score.
// They should sum to 1.0 for normalized scoring.
type Weights struct {
	GPA          float64 `json:"gpa"`
	Interest     float64 `json:"interest"`
	Time         float64 `json:"time"`
	YearFit      float64 `json:"year_fit"`
	Prerequisite float64 `json:"prerequisite"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.GPA + w.Interest + w.Time + w.YearFit + w.Prerequisite
}

// DefaultWeights returns the standard weight configuration
func DefaultWeights() Weights {
	return Weights{GPA: 0.35, Interest: 0.30, Time: 0.20, YearFit: 0.10, Prerequisite: 0.05}
}

// CompetitiveWeights favours academic standing
func CompetitiveWeights() Weights {
	return Weights{GPA: 0.45, Interest: 0.25, Time: 0.15, YearFit: 0.10, Prerequisite: 0.05}
}

// InterestFocusedWeights favours interest overlap
func InterestFocusedWeights() Weights {
	return Weights{GPA: 0.25, Interest: 0.45, Time: 0.15, YearFit: 0.10, Prerequisite: 0.05}
}

// FCFSLeaningWeights favours application recency
func FCFSLeaningWeights() Weights {
	return Weights{GPA: 0.25, Interest: 0.20, Time: 0.40, YearFit: 0.10, Prerequisite: 0.05}
}

// WeightsForPreset maps a config preset name to a weight set
func WeightsForPreset(preset string) Weights {
	switch strings.ToLower(preset) {
	case "competitive":
		return CompetitiveWeights()
	case "interest":
		return InterestFocusedWeights()
	case "fcfs":
		return FCFSLeaningWeights()
	default:
		return DefaultWeights()
	}
}

// Scores holds the component scores and the weighted composite for one
// (student, course, appliedAt) triple. All values are in [0, 1].
type Scores struct {
	GPA          float64 `json:"gpa_score"`
	Interest     float64 `json:"interest_score"`
	Time         float64 `json:"time_score"`
	Year         float64 `json:"year_score"`
	Prerequisite float64 `json:"prereq_score"`
	Composite    float64 `json:"composite_score"`
}

// Engine computes composite priority scores. It is pure given its inputs;
// the only mutable state is the booking-open time per course, which the
// orchestrator sets when booking opens.
type Engine struct {
	weights        Weights
	timeDecayHours float64

	mu        sync.RWMutex
	openTimes map[string]time.Time // course external id -> booking open time
}

// NewEngine creates a scoring engine with the given weights. A weight sum
// off 1.0 by more than 0.01 is logged as a warning but not rejected, so
// experimental presets stay usable.
func NewEngine(weights Weights, timeDecayHours float64) *Engine {
	if total := weights.Sum(); math.Abs(total-1.0) > 0.01 {
		logger.GetDefault().Warn("scoring weights do not sum to 1.0",
			slog.Float64("sum", total))
	}
	if timeDecayHours <= 0 {
		timeDecayHours = 168.0
	}

	return &Engine{
		weights:        weights,
		timeDecayHours: timeDecayHours,
		openTimes:      make(map[string]time.Time),
	}
}

// SetBookingOpenTime records when booking opened for a course, anchoring
// the time-decay component of later score computations.
func (e *Engine) SetBookingOpenTime(courseExternalID string, openedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openTimes[courseExternalID] = openedAt
}

// Compute calculates all component scores and the weighted composite
func (e *Engine) Compute(student *students.Student, course *courses.Course, appliedAt time.Time) Scores {
	s := Scores{
		GPA:          e.gpaScore(student, course),
		Interest:     e.interestScore(student, course),
		Time:         e.timeScore(course, appliedAt),
		Year:         e.yearScore(student, course),
		Prerequisite: e.prerequisiteScore(student, course),
	}

	s.Composite = e.weights.GPA*s.GPA +
		e.weights.Interest*s.Interest +
		e.weights.Time*s.Time +
		e.weights.YearFit*s.Year +
		e.weights.Prerequisite*s.Prerequisite

	return s
}

// gpaScore is zero below the recommended minimum; otherwise the normalized
// GPA plus a small bonus for exceeding the minimum, capped at 1.0.
func (e *Engine) gpaScore(student *students.Student, course *courses.Course) float64 {
	if student.GPA < course.MinGPARecommended {
		return 0
	}

	base := student.GPA / 4.0
	bonus := math.Min(0.10, 0.05*(student.GPA-course.MinGPARecommended))
	return math.Min(1.0, base+bonus)
}

// interestScore is the Jaccard similarity between the student's interests
// (plus branch) and the course keywords, case-insensitive. An empty side
// yields the neutral 0.5.
func (e *Engine) interestScore(student *students.Student, course *courses.Course) float64 {
	interests := lowerSet(append(append([]string{}, student.Interests...), student.Branch))
	keywords := lowerSet(course.Keywords)

	if len(interests) == 0 || len(keywords) == 0 {
		return 0.5
	}

	intersection := 0
	for term := range interests {
		if _, ok := keywords[term]; ok {
			intersection++
		}
	}
	union := len(interests) + len(keywords) - intersection
	if union == 0 {
		return 0.5
	}

	return float64(intersection) / float64(union)
}

// timeScore decays exponentially with hours since booking opened, halving
// every timeDecayHours. Unknown open time counts as "just opened".
func (e *Engine) timeScore(course *courses.Course, appliedAt time.Time) float64 {
	e.mu.RLock()
	openedAt, known := e.openTimes[course.ExternalID]
	e.mu.RUnlock()

	if !known {
		if course.SeatConfig != nil && course.SeatConfig.BookingOpensAt != nil {
			openedAt = *course.SeatConfig.BookingOpensAt
		} else {
			openedAt = appliedAt
		}
	}

	hoursSinceOpen := math.Max(0, appliedAt.Sub(openedAt).Hours())
	decayRate := math.Ln2 / e.timeDecayHours

	score := math.Exp(-decayRate * hoursSinceOpen)
	return math.Min(1.0, math.Max(0.0, score))
}

// yearScore rewards students in the difficulty's preferred years, with a
// half score for adjacent years.
func (e *Engine) yearScore(student *students.Student, course *courses.Course) float64 {
	preferred := course.Difficulty.PreferredYears()
	for _, year := range preferred {
		if student.YearOfStudy == year {
			return 1.0
		}
	}
	for _, year := range preferred {
		if abs(student.YearOfStudy-year) == 1 {
			return 0.5
		}
	}
	return 0.25
}

// prerequisiteScore is the completed fraction of the course's prerequisites
func (e *Engine) prerequisiteScore(student *students.Student, course *courses.Course) float64 {
	if len(course.Prerequisites) == 0 {
		return 1.0
	}

	completed := 0
	for _, prereq := range course.Prerequisites {
		if student.HasCompleted(prereq) {
			completed++
		}
	}

	return float64(completed) / float64(len(course.Prerequisites))
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(strings.ToLower(v))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
