package routes

import (
	"roadassist/internal/handlers"
	"roadassist/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAssistRoutes wires the dispatch core HTTP surface.
func SetupAssistRoutes(r *gin.RouterGroup, assistHandler *handlers.AssistHandler, jwtSecret string) {
	assist := r.Group("/assist")
	assist.Use(middleware.AuthRequired(jwtSecret))
	{
		requests := assist.Group("/requests")
		{
			requests.POST("", assistHandler.CreateRequest)
			requests.GET("", assistHandler.GetRequestHistory)
			requests.GET("/:id", assistHandler.GetRequest)
			requests.POST("/:id/dispatch", assistHandler.DispatchRequest)
			requests.PUT("/:id/cancel", assistHandler.CancelRequest)
		}

		assist.GET("/providers/nearby", assistHandler.GetNearbyProviders)
	}

	// Status advancement is an operator action, never a client one.
	operator := r.Group("/assist/requests")
	operator.Use(middleware.AuthRequired(jwtSecret), middleware.OperatorRequired())
	{
		operator.PUT("/:id/status", assistHandler.AdvanceStatus)
	}
}
