package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SnapshotProvider supplies the full classroom view sent on subscribe
type SnapshotProvider interface {
	GetState(ctx context.Context, courseExternalID string) (interface{}, error)
}

// Outbound frame types on the socket.
const (
	FrameConnected      = "connected"
	FrameAuthenticated  = "authenticated"
	FrameSubscribed     = "subscribed:course"
	FrameUnsubscribed   = "unsubscribed:course"
	FrameCourseUpdate   = "course:update"
	FrameClassroomState = "course:classroomState"
	FramePersonalUpdate = "personal:update"
	FrameError          = "error"
)

// Inbound client commands.
const (
	ActionAuthenticate      = "authenticate"
	ActionSubscribeCourse   = "subscribe:course"
	ActionUnsubscribeCourse = "unsubscribe:course"
)

// Command is one inbound client message
type Command struct {
	Action    string `json:"action"`
	StudentID string `json:"studentId,omitempty"`
	CourseID  string `json:"courseId,omitempty"`
}

// Frame is one outbound server message
type Frame struct {
	Type      string      `json:"type"`
	CourseID  string      `json:"courseId,omitempty"`
	StudentID string      `json:"studentId,omitempty"`
	Event     *Envelope   `json:"event,omitempty"`
	State     interface{} `json:"state,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// HubConfig tunes client connections
type HubConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Hub upgrades HTTP connections and wires each socket to bus topics.
// An unauthenticated client only receives course broadcasts for courses
// it subscribes to; the personal topic requires authentication.
type Hub struct {
	bus       *Bus
	snapshots SnapshotProvider
	config    HubConfig
	upgrader  websocket.Upgrader
}

// NewHub creates a websocket hub backed by the given bus
func NewHub(bus *Bus, snapshots SnapshotProvider, config HubConfig) *Hub {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}

	return &Hub{
		bus:       bus,
		snapshots: snapshots,
		config:    config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins; access
			// control happens at the CORS layer in front of the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /api/registration/ws
func (h *Hub) Serve(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}

	client := newClient(h, conn)
	client.run(ctx.Request.Context())
}
