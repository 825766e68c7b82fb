package server

import (
	handler "bidwar/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath = "/metrics"
	eventsPath  = "/projects/:project_id/events"
)

// SetupRouter configures all Gin routes for the application. A nil
// gatherer leaves /metrics unmounted.
func SetupRouter(biddingService handler.BiddingServiceInterface, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService)

	projects := router.Group("/projects")
	{
		projects.POST("", biddingHandler.CreateProjectHandler)
		projects.GET("/:project_id", biddingHandler.GetProjectHandler)
		projects.GET("/:project_id/state", biddingHandler.GetStateHandler)
		projects.GET("/:project_id/ranking", biddingHandler.GetRankingHandler)
		projects.GET("/:project_id/events", biddingHandler.StreamEventsHandler)

		projects.POST("/:project_id/bids", biddingHandler.SubmitBidHandler)
		projects.DELETE("/:project_id/bids/:participant_id", biddingHandler.WithdrawBidHandler)
		projects.GET("/:project_id/participants/:participant_id/position", biddingHandler.GetPositionHandler)

		projects.POST("/:project_id/award", biddingHandler.AwardHandler)
		projects.POST("/:project_id/cancel", biddingHandler.CancelHandler)
	}

	if gatherer != nil {
		router.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
