package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/busbooking/internal/service/accounts"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/Domenick1991/busbooking/internal/service/trips"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerDocURL = "/swagger/busbooking.swagger.json"

type SessionStore interface {
	RevocationChecker
	SessionRevoker
}

type Sessions interface {
	SessionParser
	SessionIssuer
}

type RouterConfig struct {
	Trips    trips.TripUseCase
	Bookings booking.BookingUseCase
	Accounts accounts.AccountUseCase
	Sessions Sessions
	Store    SessionStore
	Cookie   CookieConfig

	CORSOrigins []string
	SwaggerDir  string
}

// NewRouter builds the gin engine serving the JSON API, health check and docs.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Logger(), gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader, "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.SwaggerDir != "" {
		router.Static("/swagger", cfg.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocURL))))
	}

	var revocations RevocationChecker
	var revoker SessionRevoker
	if cfg.Store != nil {
		revocations, revoker = cfg.Store, cfg.Store
	}

	v1 := router.Group("/api/v1")
	v1.Use(Authenticate(cfg.Sessions, revocations, cfg.Cookie.Name))

	tripHandler := NewTripHandler(cfg.Trips)
	bookingHandler := NewBookingHandler(cfg.Bookings)

	tripsGroup := v1.Group("/trips")
	tripHandler.Register(tripsGroup)
	bookingHandler.RegisterTripBookings(tripsGroup.Group("", RequireLogin()))

	bookingHandler.Register(v1.Group("/bookings", RequireLogin()))
	NewAuthHandler(cfg.Accounts, cfg.Sessions, revoker, cfg.Cookie).Register(v1.Group("/auth"))
	NewProfileHandler(cfg.Accounts, cfg.Sessions, revoker, cfg.Cookie).Register(v1.Group("/profile", RequireLogin()))
	tripHandler.RegisterAdmin(v1.Group("/admin/trips", RequireAdmin()))

	return router
}
