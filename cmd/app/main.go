package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/busbooking/api"
	"github.com/Domenick1991/busbooking/config"
	tripsapi "github.com/Domenick1991/busbooking/internal/api/trips_service_api"
	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/bootstrap"
	"github.com/Domenick1991/busbooking/internal/cache"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/service/accounts"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/Domenick1991/busbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
)

func main() {
	cfgPath := pflag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	migrate := pflag.Bool("migrate", true, "apply the database schema on startup")
	pflag.Parse()
	if *cfgPath == "" {
		*cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if *migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	sessionTTL := time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.TripsCacheTTL)*time.Second, sessionTTL)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Printf("WARNING: redis unavailable, trips will be read from postgres: %v", err)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	var emitter *kafka.Emitter
	if len(cfg.Kafka.Brokers) > 0 {
		emitter = kafka.NewEmitter(producer.WithRetries(cfg.Worker.MaxPublishRetries), cfg.Kafka.BookingTopic, cfg.Kafka.NotificationsTopic)
	} else {
		log.Printf("WARNING: no kafka brokers configured, events are not published")
	}

	tripRepo := repository.NewTripRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)

	tripService := trips.NewTripService(tripRepo, redisCache, emitter)
	bookingService := booking.NewBookingService(
		bookingRepo,
		booking.WithCache(redisCache),
		booking.WithEmitter(emitter),
	)
	accountService := accounts.NewAccountService(userRepo, emitter, time.Duration(cfg.Auth.ResetTokenTTLMinutes)*time.Minute)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, sessionTTL)

	router := api.NewRouter(api.RouterConfig{
		Trips:       tripService,
		Bookings:    bookingService,
		Accounts:    accountService,
		Sessions:    issuer,
		Store:       redisCache,
		Cookie:      api.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		CORSOrigins: cfg.HTTP.CORSOrigins,
		SwaggerDir:  cfg.HTTP.SwaggerDir,
	})

	registerGRPC := func(srv *grpc.Server) {
		tripsapi.Register(srv, tripsapi.NewServer(tripService))
	}

	if err := bootstrap.Run(ctx, cfg, router, registerGRPC); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
