package scoring

import (
	"testing"
	"time"

	"coursely/internal/courses"
	"coursely/internal/students"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultWeights(), 168.0)
}

func TestWeightPresetsSumToOne(t *testing.T) {
	presets := map[string]Weights{
		"default":     DefaultWeights(),
		"competitive": CompetitiveWeights(),
		"interest":    InterestFocusedWeights(),
		"fcfs":        FCFSLeaningWeights(),
	}

	for name, weights := range presets {
		assert.InDelta(t, 1.0, weights.Sum(), 0.001, "preset %s", name)
	}
}

func TestWeightsForPreset(t *testing.T) {
	assert.Equal(t, CompetitiveWeights(), WeightsForPreset("competitive"))
	assert.Equal(t, InterestFocusedWeights(), WeightsForPreset("Interest"))
	assert.Equal(t, FCFSLeaningWeights(), WeightsForPreset("fcfs"))
	assert.Equal(t, DefaultWeights(), WeightsForPreset("default"))
	assert.Equal(t, DefaultWeights(), WeightsForPreset("unknown"))
}

func TestGPAScore(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name     string
		gpa      float64
		minGPA   float64
		expected float64
	}{
		{"below minimum is zero", 2.9, 3.0, 0},
		{"exactly at minimum is positive", 3.0, 3.0, 0.75},
		{"above minimum earns bonus", 3.5, 3.0, 3.5/4.0 + 0.025},
		{"bonus caps at 0.10", 4.0, 0, 1.0},
		{"no minimum", 2.0, 0, 0.5 + 0.10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			student := &students.Student{GPA: tt.gpa}
			course := &courses.Course{MinGPARecommended: tt.minGPA}
			assert.InDelta(t, tt.expected, engine.gpaScore(student, course), 0.0001)
		})
	}
}

func TestInterestScoreJaccard(t *testing.T) {
	engine := newTestEngine()

	student := &students.Student{
		Interests: courses.StringList{"algorithms", "statistics"},
		Branch:    "Computer Science",
	}
	course := &courses.Course{
		Keywords: courses.StringList{"statistics", "matrices"},
	}

	// interests {algorithms, statistics, computer science} vs keywords
	// {statistics, matrices}: intersection 1, union 4
	assert.InDelta(t, 0.25, engine.interestScore(student, course), 0.0001)
}

func TestInterestScoreNeutralWhenEmpty(t *testing.T) {
	engine := newTestEngine()

	noKeywords := &courses.Course{}
	assert.Equal(t, 0.5, engine.interestScore(&students.Student{Interests: courses.StringList{"ai"}, Branch: "CS"}, noKeywords))

	noInterests := &students.Student{}
	withKeywords := &courses.Course{Keywords: courses.StringList{"ai"}}
	assert.Equal(t, 0.5, engine.interestScore(noInterests, withKeywords))
}

func TestInterestScoreCaseInsensitive(t *testing.T) {
	engine := newTestEngine()

	student := &students.Student{Interests: courses.StringList{"Machine Learning"}}
	course := &courses.Course{Keywords: courses.StringList{"machine learning"}}

	assert.InDelta(t, 1.0, engine.interestScore(student, course), 0.0001)
}

func TestTimeScoreDecay(t *testing.T) {
	engine := newTestEngine()
	course := &courses.Course{ExternalID: "CS101"}

	openedAt := time.Now().Add(-200 * time.Hour)
	engine.SetBookingOpenTime("CS101", openedAt)

	// Applying the instant booking opens scores 1.0
	assert.InDelta(t, 1.0, engine.timeScore(course, openedAt), 0.0001)

	// One half-life later scores 0.5
	assert.InDelta(t, 0.5, engine.timeScore(course, openedAt.Add(168*time.Hour)), 0.0001)

	// Two half-lives later scores 0.25
	assert.InDelta(t, 0.25, engine.timeScore(course, openedAt.Add(336*time.Hour)), 0.0001)
}

func TestTimeScoreUnknownOpenTimeCountsAsJustOpened(t *testing.T) {
	engine := newTestEngine()
	course := &courses.Course{ExternalID: "MATH201"}

	assert.InDelta(t, 1.0, engine.timeScore(course, time.Now()), 0.0001)
}

func TestTimeScoreUsesConfiguredOpensAt(t *testing.T) {
	engine := newTestEngine()

	opensAt := time.Now().Add(-168 * time.Hour)
	course := &courses.Course{
		ExternalID: "PHIL110",
		SeatConfig: &courses.SeatConfig{BookingOpensAt: &opensAt},
	}

	assert.InDelta(t, 0.5, engine.timeScore(course, time.Now()), 0.001)
}

func TestYearScore(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name       string
		difficulty courses.Difficulty
		year       int
		expected   float64
	}{
		{"beginner preferred year", courses.DifficultyBeginner, 1, 1.0},
		{"beginner adjacent year", courses.DifficultyBeginner, 3, 0.5},
		{"advanced preferred year", courses.DifficultyAdvanced, 4, 1.0},
		{"advanced adjacent year", courses.DifficultyAdvanced, 2, 0.5},
		{"advanced distant year", courses.DifficultyAdvanced, 1, 0.25},
		{"intermediate preferred year", courses.DifficultyIntermediate, 2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			student := &students.Student{YearOfStudy: tt.year}
			course := &courses.Course{Difficulty: tt.difficulty}
			assert.Equal(t, tt.expected, engine.yearScore(student, course))
		})
	}
}

func TestPrerequisiteScore(t *testing.T) {
	engine := newTestEngine()

	noPrereqs := &courses.Course{}
	assert.Equal(t, 1.0, engine.prerequisiteScore(&students.Student{}, noPrereqs))

	course := &courses.Course{Prerequisites: courses.StringList{"CS101", "MATH201"}}

	half := &students.Student{CompletedCourses: courses.StringList{"CS101"}}
	assert.Equal(t, 0.5, engine.prerequisiteScore(half, course))

	all := &students.Student{CompletedCourses: courses.StringList{"CS101", "MATH201"}}
	assert.Equal(t, 1.0, engine.prerequisiteScore(all, course))

	none := &students.Student{}
	assert.Equal(t, 0.0, engine.prerequisiteScore(none, course))
}

func TestComputeWeightedComposite(t *testing.T) {
	engine := newTestEngine()

	student := &students.Student{
		GPA:              3.5,
		YearOfStudy:      3,
		Branch:           "Computer Science",
		Interests:        courses.StringList{"machine learning"},
		CompletedCourses: courses.StringList{"CS101", "MATH201"},
	}
	course := &courses.Course{
		ExternalID:        "CS301",
		Difficulty:        courses.DifficultyAdvanced,
		MinGPARecommended: 3.0,
		Prerequisites:     courses.StringList{"CS101", "MATH201"},
		Keywords:          courses.StringList{"machine learning", "ai"},
	}

	now := time.Now()
	engine.SetBookingOpenTime("CS301", now)
	scores := engine.Compute(student, course, now)

	weights := DefaultWeights()
	expected := weights.GPA*scores.GPA +
		weights.Interest*scores.Interest +
		weights.Time*scores.Time +
		weights.YearFit*scores.Year +
		weights.Prerequisite*scores.Prerequisite

	require.InDelta(t, expected, scores.Composite, 0.0001)
	assert.Greater(t, scores.Composite, 0.0)
	assert.LessOrEqual(t, scores.Composite, 1.0)
	assert.Equal(t, 1.0, scores.Prerequisite)
	assert.Equal(t, 1.0, scores.Year)
}

func TestHigherGPAWinsAllElseEqual(t *testing.T) {
	engine := newTestEngine()
	course := &courses.Course{ExternalID: "CS101", Difficulty: courses.DifficultyBeginner}

	now := time.Now()
	engine.SetBookingOpenTime("CS101", now)

	strong := engine.Compute(&students.Student{GPA: 3.8, YearOfStudy: 1}, course, now)
	weak := engine.Compute(&students.Student{GPA: 2.5, YearOfStudy: 1}, course, now)

	assert.Greater(t, strong.Composite, weak.Composite)
}
