package courses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeatNumber(t *testing.T) {
	tests := []struct {
		input   string
		row     string
		column  int
		wantErr bool
	}{
		{"A1", "A", 1, false},
		{"b12", "B", 12, false},
		{" C3 ", "C", 3, false},
		{"A0", "", 0, true},
		{"1A", "", 0, true},
		{"", "", 0, true},
		{"A", "", 0, true},
		{"12", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			row, column, err := ParseSeatNumber(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.column, column)
		})
	}
}

func TestSeatConfigContainsSeat(t *testing.T) {
	config := &SeatConfig{Rows: 2, SeatsPerRow: 2}

	assert.True(t, config.ContainsSeat("A1"))
	assert.True(t, config.ContainsSeat("B2"))
	assert.True(t, config.ContainsSeat("b1"))

	assert.False(t, config.ContainsSeat("C1"), "row out of range")
	assert.False(t, config.ContainsSeat("A3"), "column out of range")
	assert.False(t, config.ContainsSeat("AA1"), "multi-letter row")
	assert.False(t, config.ContainsSeat("A0"))
	assert.False(t, config.ContainsSeat("nope"))
}

func TestSeatConfigEnumerateSeats(t *testing.T) {
	config := &SeatConfig{Rows: 2, SeatsPerRow: 2}
	assert.Equal(t, []string{"A1", "A2", "B1", "B2"}, config.EnumerateSeats())

	wide := &SeatConfig{Rows: 1, SeatsPerRow: 3}
	assert.Equal(t, []string{"A1", "A2", "A3"}, wide.EnumerateSeats())
}

func TestBookingStatusIsValid(t *testing.T) {
	for _, status := range []BookingStatus{StatusClosed, StatusOpen, StatusWaitlistOnly, StatusStarted, StatusCompleted} {
		assert.True(t, status.IsValid())
	}
	assert.False(t, BookingStatus("CANCELLED").IsValid())
	assert.False(t, BookingStatus("").IsValid())
}

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{StatusClosed, StatusOpen, true},
		{StatusClosed, StatusWaitlistOnly, true},
		{StatusClosed, StatusStarted, false},
		{StatusOpen, StatusWaitlistOnly, true},
		{StatusOpen, StatusStarted, true},
		{StatusOpen, StatusClosed, false},
		{StatusWaitlistOnly, StatusStarted, true},
		{StatusWaitlistOnly, StatusOpen, false},
		{StatusStarted, StatusCompleted, true},
		{StatusStarted, StatusOpen, false},
		{StatusCompleted, StatusOpen, false},
		{StatusCompleted, StatusStarted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestBookingStatusAllowsDirectBooking(t *testing.T) {
	assert.True(t, StatusOpen.AllowsDirectBooking())
	assert.True(t, StatusClosed.AllowsDirectBooking(), "early registration")
	assert.True(t, StatusStarted.AllowsDirectBooking(), "late registration")
	assert.False(t, StatusWaitlistOnly.AllowsDirectBooking())
	assert.False(t, StatusCompleted.AllowsDirectBooking())
}

func TestDifficultyPreferredYears(t *testing.T) {
	assert.Equal(t, []int{1, 2}, DifficultyBeginner.PreferredYears())
	assert.Equal(t, []int{2, 3}, DifficultyIntermediate.PreferredYears())
	assert.Equal(t, []int{3, 4}, DifficultyAdvanced.PreferredYears())
	assert.Nil(t, Difficulty("weird").PreferredYears())
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "D", RowLabel(3))
	assert.Equal(t, "Z", RowLabel(25))
}
