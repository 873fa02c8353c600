package classroom

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coursely/internal/courses"
	"coursely/internal/realtime"
	"coursely/pkg/cache"
	"coursely/pkg/logger"
)

// Projector keeps a live ClassroomState per course. Reads serve from an
// in-memory projection that the event stream mutates; a miss rebuilds
// from a storage snapshot. When a cache service is supplied the
// projection is also written through to Redis so restarts start warm.
type Projector interface {
	// GetState returns the current projection for a course, building a
	// snapshot on first access.
	GetState(ctx context.Context, courseExternalID string) (*ClassroomState, error)

	// Refresh discards the cached projection and rebuilds from storage
	Refresh(ctx context.Context, courseExternalID string) (*ClassroomState, error)

	// Run consumes the event stream until ctx is cancelled, applying
	// incremental updates to cached projections.
	Run(ctx context.Context)
}

type projector struct {
	repo     Repository
	bus      *realtime.Bus
	cache    cache.Service
	cacheTTL time.Duration

	mu     sync.RWMutex
	states map[string]*ClassroomState
}

// NewProjector creates a classroom projector. The cache service is
// optional.
func NewProjector(repo Repository, bus *realtime.Bus, cacheService cache.Service, cacheTTL time.Duration) Projector {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &projector{
		repo:     repo,
		bus:      bus,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		states:   make(map[string]*ClassroomState),
	}
}

func (p *projector) GetState(ctx context.Context, courseExternalID string) (*ClassroomState, error) {
	p.mu.RLock()
	state, ok := p.states[courseExternalID]
	p.mu.RUnlock()
	if ok {
		return state.Clone(), nil
	}

	return p.Refresh(ctx, courseExternalID)
}

func (p *projector) Refresh(ctx context.Context, courseExternalID string) (*ClassroomState, error) {
	state, err := p.repo.Snapshot(ctx, courseExternalID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.states[courseExternalID] = state
	p.mu.Unlock()

	p.writeThrough(ctx, state)
	return state.Clone(), nil
}

func (p *projector) Run(ctx context.Context) {
	sub := p.bus.SubscribeAll()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			p.apply(ctx, env)
		}
	}
}

// apply mutates the cached projection for the envelope's course. Updates
// are serialized by the single Run loop, so per-course event order is
// preserved. Courses never snapshotted are skipped; their first read
// builds a fresh snapshot anyway.
func (p *projector) apply(ctx context.Context, env realtime.Envelope) {
	if env.CourseID == "" {
		return
	}

	p.mu.Lock()
	state, ok := p.states[env.CourseID]
	if !ok {
		p.mu.Unlock()
		return
	}

	switch env.Type {
	case realtime.EventSeatBooked, realtime.EventAutoEnrolled:
		p.occupySeat(state, env)
	case realtime.EventSeatReleased:
		p.releaseSeat(state, env)
	case realtime.EventBookingStatusChanged:
		if to, ok := env.Payload["to"].(string); ok {
			state.BookingStatus = courses.BookingStatus(to)
		}
	default:
		p.mu.Unlock()
		return
	}

	state.LastUpdated = env.Timestamp
	snapshot := state.Clone()
	p.mu.Unlock()

	p.writeThrough(ctx, snapshot)
}

func (p *projector) occupySeat(state *ClassroomState, env realtime.Envelope) {
	seatNumber, _ := env.Payload["seatNumber"].(string)
	idx := state.seatIndex(seatNumber)
	if idx < 0 {
		return
	}

	seat := &state.Seats[idx]
	if !seat.IsOccupied {
		state.OccupiedSeats++
		state.AvailableSeats--
	}
	seat.IsOccupied = true

	studentID := env.StudentID
	seat.StudentID = &studentID
	if name, ok := env.Payload["studentName"].(string); ok {
		seat.StudentName = &name
	} else {
		seat.StudentName = nil
	}
}

func (p *projector) releaseSeat(state *ClassroomState, env realtime.Envelope) {
	seatNumber, _ := env.Payload["seatNumber"].(string)
	idx := state.seatIndex(seatNumber)
	if idx < 0 {
		return
	}

	seat := &state.Seats[idx]
	if seat.IsOccupied {
		state.OccupiedSeats--
		state.AvailableSeats++
	}
	seat.IsOccupied = false
	seat.StudentID = nil
	seat.StudentName = nil
}

func (p *projector) writeThrough(ctx context.Context, state *ClassroomState) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, CacheKey(state.CourseID), state, p.cacheTTL); err != nil {
		logger.GetDefault().Debug("classroom cache write failed",
			slog.String("course_id", state.CourseID),
			slog.String("error", err.Error()),
		)
	}
}
