package stubserver

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"guardian/internal/logging"
)

// RouterConfig holds dependencies for the stub router
type RouterConfig struct {
	State  *State
	Logger *slog.Logger
}

// NewRouter creates and configures the Gin router implementing the
// Guardian service contract.
func NewRouter(config RouterConfig) *gin.Engine {
	if config.State == nil {
		config.State = NewState()
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(RequestID())
	router.Use(Recovery(config.Logger))
	router.Use(Logging(config.Logger))

	// Health check (no auth)
	healthHandler := NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// Authentication endpoints
	authHandler := NewAuthHandler(config.State, config.Logger)
	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/refresh", authHandler.Refresh)

	// Protected endpoints
	guardianHandler := NewGuardianHandler(config.State, config.Logger)
	protected := router.Group("/")
	protected.Use(BearerAuth(config.State))
	{
		protected.POST("/auth/logout", authHandler.Logout)

		protected.POST("/location", guardianHandler.SendLocation)
		protected.GET("/location/history", guardianHandler.LocationHistory)
		protected.GET("/location/current", guardianHandler.CurrentLocation)
		protected.DELETE("/location/:id", guardianHandler.DeleteLocation)

		protected.GET("/safe-zones", guardianHandler.ListSafeZones)
		protected.POST("/safe-zones", guardianHandler.CreateSafeZone)
		protected.GET("/safe-zones/check-geofence", guardianHandler.CheckGeofence)
		protected.PUT("/safe-zones/:id", guardianHandler.UpdateSafeZone)
		protected.DELETE("/safe-zones/:id", guardianHandler.DeleteSafeZone)

		protected.GET("/emergency-contacts", guardianHandler.ListContacts)
		protected.POST("/emergency-contacts", guardianHandler.AddContact)
		protected.POST("/emergency-contacts/alert", guardianHandler.TriggerAlert)
		protected.PUT("/emergency-contacts/:id", guardianHandler.UpdateContact)
		protected.DELETE("/emergency-contacts/:id", guardianHandler.DeleteContact)

		protected.POST("/sync/actions", guardianHandler.SyncActions)
	}

	return router
}
