package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-contracts/internal/config"
	"github.com/ignatzorin/freelance-contracts/internal/http/handlers"
	"github.com/ignatzorin/freelance-contracts/internal/http/middleware"
	"github.com/ignatzorin/freelance-contracts/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	contractHandler *handlers.ContractHandler,
	deliverableHandler *handlers.DeliverableHandler,
	cancellationHandler *handlers.CancellationHandler,
	extensionHandler *handlers.ExtensionHandler,
	walletHandler *handlers.WalletHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/contracts", contractHandler.CreateContract)
		protected.GET("/contracts", contractHandler.ListContracts)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.GetContract)
		protected.GET("/contracts/:id/activity", middleware.UUIDValidator("id"), contractHandler.GetActivity)
		protected.GET("/contracts/:id/transactions", middleware.UUIDValidator("id"), contractHandler.GetTransactions)
		protected.POST("/contracts/:id/funding", middleware.UUIDValidator("id"), contractHandler.ConfirmFunding)

		protected.POST("/contracts/:id/deliverables", middleware.UUIDValidator("id"), deliverableHandler.Submit)
		protected.POST("/contracts/:id/deliverables/approve", middleware.UUIDValidator("id"), deliverableHandler.Approve)
		protected.POST("/contracts/:id/deliverables/request-changes", middleware.UUIDValidator("id"), deliverableHandler.RequestChanges)
		protected.GET("/contracts/:id/deliverables/files", middleware.UUIDValidator("id"), deliverableHandler.DownloadFiles)

		protected.POST("/contracts/:id/milestones/:milestoneId/deliverables", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), deliverableHandler.SubmitMilestone)
		protected.POST("/contracts/:id/milestones/:milestoneId/deliverables/approve", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), deliverableHandler.ApproveMilestone)
		protected.POST("/contracts/:id/milestones/:milestoneId/deliverables/request-changes", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), deliverableHandler.RequestMilestoneChanges)

		protected.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), cancellationHandler.Cancel)
		protected.POST("/contracts/:id/cancellation-request", middleware.UUIDValidator("id"), cancellationHandler.CreateRequest)
		protected.POST("/contracts/:id/cancellation-request/accept", middleware.UUIDValidator("id"), cancellationHandler.Accept)
		protected.POST("/contracts/:id/cancellation-request/dispute", middleware.UUIDValidator("id"), cancellationHandler.Dispute)
		protected.POST("/contracts/:id/cancellation-request/reject", middleware.UUIDValidator("id"), cancellationHandler.Reject)
		protected.GET("/contracts/:id/cancellation-requests", middleware.UUIDValidator("id"), cancellationHandler.ListRequests)
		protected.GET("/contracts/:id/dispute", middleware.UUIDValidator("id"), cancellationHandler.GetDispute)

		protected.POST("/contracts/:id/activate", middleware.UUIDValidator("id"), contractHandler.ActivateContract)
		protected.POST("/contracts/:id/end", middleware.UUIDValidator("id"), contractHandler.EndContract)
		protected.POST("/contracts/:id/timesheets", middleware.UUIDValidator("id"), contractHandler.LogTimesheet)

		protected.POST("/contracts/:id/extension", middleware.UUIDValidator("id"), extensionHandler.Request)
		protected.POST("/contracts/:id/extension/respond", middleware.UUIDValidator("id"), extensionHandler.Respond)

		protected.GET("/wallet", walletHandler.GetWallet)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return r
}
