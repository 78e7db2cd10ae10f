package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/franpass87/fp-experiences/internal/booking"
	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/config"
	"github.com/franpass87/fp-experiences/internal/database"
	"github.com/franpass87/fp-experiences/internal/handler"
	"github.com/franpass87/fp-experiences/internal/middleware"
	"github.com/franpass87/fp-experiences/internal/payment"
	"github.com/franpass87/fp-experiences/internal/queue"
	"github.com/franpass87/fp-experiences/internal/repository"
	"github.com/franpass87/fp-experiences/internal/router"
	queue_publisher "github.com/franpass87/fp-experiences/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Nil when Redis is unreachable: rate limiting disables itself and the
	// cart lock falls back to the in-process implementation.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, using in-process cart lock and no rate limiting")
	}

	defaultLoc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid BOOKING_TIMEZONE %q: %v", cfg.Timezone, err)
	}

	clk := clock.NewSystem()

	experienceRepo := repository.NewExperienceRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	userRepo := repository.NewUserRepo(db)

	publisher := queue_publisher.New()
	accountant := booking.NewCapacityAccountant(reservationRepo, clk)
	ledger := booking.NewReservationLedger(reservationRepo, experienceRepo, slotRepo, publisher, clk)
	slotService := booking.NewSlotService(slotRepo, experienceRepo, accountant, clk, defaultLoc)
	orders := payment.NewStubOrders()
	guard := booking.NewConcurrencyGuard(slotService, ledger, accountant, experienceRepo, orders, publisher, clk)
	cartLock := booking.NewCartLock(rdb, cfg.CartLockTTL, clk)

	// Background consumer mirroring lifecycle events into the reservation
	// log; reconnects on its own and never takes the server down.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e,
		handler.NewAvailabilityHandler(slotService, clk),
		handler.NewBookingHandler(guard, cartLock),
		handler.NewPaymentHandler(ledger),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)
	router.RegisterAdmin(e,
		handler.NewAuthHandler(cfg, userRepo),
		handler.NewAdminSlotHandler(slotService, experienceRepo),
		handler.NewAdminReservationHandler(ledger, reservationRepo, clk),
		cfg.JWTSecret,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
