package api

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	detection := s.router.Group("/detection")
	{
		detection.GET("/status", s.detectionHandler.GetStatus)
		detection.POST("/start", s.detectionHandler.Start)
		detection.POST("/stop", s.detectionHandler.Stop)
		detection.GET("/stream", s.detectionHandler.Stream)
		detection.GET("/ws", s.detectionHandler.WebSocket)
	}

	plant := s.router.Group("/plant")
	{
		plant.POST("/analyze", s.plantHandler.Analyze)
		plant.GET("/latest", s.plantHandler.Latest)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}

	if s.metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	s.setupUI()
}
