package server

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	h := NewHandler(s.messages, s.notifications, s.presence, s.registry, s.router, s.tracker)

	s.E.GET("/ws", s.bridge.Handler())

	api := s.E.Group("/api")

	chat := api.Group("/chat")
	chat.GET("/:roomID/messages", h.ListMessages)
	chat.GET("/:roomID/online-users", h.ListOnlineUsers)
	chat.DELETE("/messages/:messageID", h.DeleteMessage)

	api.GET("/notifications/:userID", h.ListUnreadNotifications)
	api.POST("/notifications/mark-read/:userID", h.MarkNotificationsRead)

	api.GET("/health", h.Health)
}
