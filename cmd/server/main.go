package main // Entry point package

import (
	"context"
	"log"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/booking-core/internal/booking"
	"github.com/iliyamo/booking-core/internal/config"
	"github.com/iliyamo/booking-core/internal/database"
	"github.com/iliyamo/booking-core/internal/handler"
	"github.com/iliyamo/booking-core/internal/lock"
	"github.com/iliyamo/booking-core/internal/queue"
	"github.com/iliyamo/booking-core/internal/repository"
	"github.com/iliyamo/booking-core/internal/router"
)

func main() {
	cfg := config.Load() // Load environment config

	// MySQL backs the resource catalog and the booking record store.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	bookingRepo := repository.NewBookingRepo(db)
	resourceRepo := repository.NewResourceRepo(db)

	// The lock store is the single authority for who holds which
	// resource.  Redis is required for multi-instance deployments; the
	// in-memory store is only correct when this process is the sole
	// replica.
	var locks lock.Store
	switch cfg.LockBackend {
	case "redis":
		client := config.NewRedisClient()
		if client == nil {
			log.Fatal("lock backend is redis but redis is unreachable")
		}
		locks = lock.NewRedisStore(client)
	default:
		mem := lock.NewMemoryStore()
		mem.StartReaper(context.Background(), cfg.ReaperInterval)
		locks = mem
	}

	manager := booking.NewManager(locks, bookingRepo, resourceRepo,
		booking.WithHoldTTL(cfg.HoldTTL))
	h := handler.NewBookingHandler(manager, locks, bookingRepo, resourceRepo)

	// Consume booking.confirmed events in the background for the audit log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterBooking(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, lock_backend=%s)", addr, cfg.Env, cfg.LockBackend)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
