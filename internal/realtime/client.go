package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coursely/pkg/logger"

	"github.com/gorilla/websocket"
)

// client is one connected socket. It owns a bounded outbound frame
// queue; bus envelopes and snapshots are funneled through it so writes
// to the connection happen on a single goroutine.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Frame

	mu        sync.Mutex
	studentID string
	courses   map[string]*Subscription
	personal  *Subscription
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:  h,
		conn: conn,
		send: make(chan Frame, h.config.QueueSize),
	}
}

func (c *client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.teardown()

	go c.writePump(ctx, cancel)

	c.enqueue(Frame{Type: FrameConnected})
	c.readPump(ctx, cancel)
}

// enqueue drops the frame when the client's queue is full; the remote
// view re-requests a snapshot after it notices the gap.
func (c *client) enqueue(frame Frame) {
	select {
	case c.send <- frame:
	default:
	}
}

func (c *client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Action {
		case ActionAuthenticate:
			c.authenticate(ctx, cmd.StudentID)
		case ActionSubscribeCourse:
			c.subscribeCourse(ctx, cmd.CourseID)
		case ActionUnsubscribeCourse:
			c.unsubscribeCourse(cmd.CourseID)
		default:
			c.enqueue(Frame{Type: FrameError, Message: "unknown action"})
		}
	}
}

func (c *client) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) authenticate(ctx context.Context, studentID string) {
	if studentID == "" {
		c.enqueue(Frame{Type: FrameError, Message: "studentId is required"})
		return
	}

	c.mu.Lock()
	if c.personal != nil {
		c.personal.Close()
	}
	c.studentID = studentID
	sub := c.hub.bus.Subscribe(StudentTopic(studentID))
	c.personal = sub
	c.mu.Unlock()

	go c.forward(ctx, sub, FramePersonalUpdate)
	c.enqueue(Frame{Type: FrameAuthenticated, StudentID: studentID})
}

func (c *client) subscribeCourse(ctx context.Context, courseID string) {
	if courseID == "" {
		c.enqueue(Frame{Type: FrameError, Message: "courseId is required"})
		return
	}

	c.mu.Lock()
	if c.courses == nil {
		c.courses = make(map[string]*Subscription)
	}
	if _, exists := c.courses[courseID]; exists {
		c.mu.Unlock()
		c.enqueue(Frame{Type: FrameSubscribed, CourseID: courseID})
		return
	}
	sub := c.hub.bus.Subscribe(CourseTopic(courseID))
	c.courses[courseID] = sub
	c.mu.Unlock()

	go c.forward(ctx, sub, FrameCourseUpdate)
	c.enqueue(Frame{Type: FrameSubscribed, CourseID: courseID})

	// Full snapshot so the subscriber starts from known state
	if c.hub.snapshots != nil {
		state, err := c.hub.snapshots.GetState(ctx, courseID)
		if err != nil {
			logger.GetDefault().Debug("snapshot fetch for subscriber failed",
				slog.String("course_id", courseID),
				slog.String("error", err.Error()),
			)
			return
		}
		c.enqueue(Frame{Type: FrameClassroomState, CourseID: courseID, State: state})
	}
}

func (c *client) unsubscribeCourse(courseID string) {
	c.mu.Lock()
	sub, ok := c.courses[courseID]
	if ok {
		delete(c.courses, courseID)
	}
	c.mu.Unlock()

	if ok {
		sub.Close()
		c.enqueue(Frame{Type: FrameUnsubscribed, CourseID: courseID})
	}
}

// forward relays bus envelopes to the client until the subscription is
// closed (by unsubscribe, teardown, or a bus drop).
func (c *client) forward(ctx context.Context, sub *Subscription, frameType string) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			envelope := env
			c.enqueue(Frame{
				Type:      frameType,
				CourseID:  env.CourseID,
				StudentID: env.StudentID,
				Event:     &envelope,
			})
		}
	}
}

func (c *client) teardown() {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.courses)+1)
	for _, sub := range c.courses {
		subs = append(subs, sub)
	}
	if c.personal != nil {
		subs = append(subs, c.personal)
	}
	c.courses = nil
	c.personal = nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	c.conn.Close()
}
