package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/surrealdb/surrealdb.go"
	"github.com/teamgrid/teamgrid/internal/activity"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/database"
	"github.com/teamgrid/teamgrid/internal/logging"
	"github.com/teamgrid/teamgrid/internal/pubsub"
	"github.com/teamgrid/teamgrid/internal/realtime"
	"github.com/teamgrid/teamgrid/internal/websocket"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	DB  *surrealdb.DB
	Cfg *config.Config

	registry *realtime.ConnectionRegistry
	presence *realtime.RoomPresenceTable
	router   *realtime.FanoutRouter
	bridge   *websocket.Bridge
	tracker  *activity.Tracker
	bus      *pubsub.WatermillBridge

	messages      *database.MessageStore
	notifications *database.NotificationStore
}

// New creates a new Server instance with all collaborators wired.
func New() *Server {
	logging.New() // Initialize the structured logger
	cfg := config.New()

	ctx := context.Background()

	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	messages, err := database.NewMessageStore(ctx, db)
	if err != nil {
		slog.Error("Failed to initialize message store", "error", err)
		os.Exit(1)
	}
	notifications := database.NewNotificationStore(db)

	bus := pubsub.NewWatermillBridge()

	registry := realtime.NewConnectionRegistry()
	presence := realtime.NewRoomPresenceTable()
	router := realtime.NewFanoutRouter(registry, presence, messages, notifications, bus)
	bridge := websocket.NewBridge(router)

	tracker := activity.NewTracker()
	if err := tracker.Start(ctx, bus); err != nil {
		slog.Error("Failed to start activity tracker", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	return &Server{
		E:             e,
		DB:            db,
		Cfg:           cfg,
		registry:      registry,
		presence:      presence,
		router:        router,
		bridge:        bridge,
		tracker:       tracker,
		bus:           bus,
		messages:      messages,
		notifications: notifications,
	}
}
