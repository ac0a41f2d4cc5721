package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/comer/experience-booking/internal/analytics"
	"github.com/comer/experience-booking/internal/config"
	"github.com/comer/experience-booking/internal/database"
	"github.com/comer/experience-booking/internal/handler"
	"github.com/comer/experience-booking/internal/queue"
	"github.com/comer/experience-booking/internal/repository"
	"github.com/comer/experience-booking/internal/router"
	"github.com/comer/experience-booking/internal/service"
)

func main() {
	// Load a local .env when present; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	var (
		store  service.AvailabilityStore
		ledger service.BookingLedger
	)
	if cfg.DatabaseConfigured() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		defer db.Close()
		avail := repository.NewAvailabilityRepo(db)
		store = avail
		ledger = repository.NewBookingRepo(db, avail)
		log.Info("using mysql storage")
	} else {
		// Without a database everything lives in process memory.  Good
		// enough for local development, not for anything else.
		mem := repository.NewMemoryStore()
		store = mem
		ledger = mem
		log.Warn("DB_HOST not set, using in-memory storage")
	}

	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		publisher = service.NewAMQPPublisher(cfg.AMQPURL, log)

		var sink queue.EventSink
		if cfg.ClickHouseAddr != "" {
			writer, err := analytics.NewEventWriter(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
			if err != nil {
				log.WithError(err).Warn("clickhouse unavailable, consumer will log events to file")
			} else {
				sink = writer
				log.Info("booking events will be written to clickhouse")
			}
		}
		go queue.StartBookingConsumer(cfg.AMQPURL, sink, log)
	} else {
		log.Warn("AMQP_URL not set, booking events will not be published")
	}

	alloc := service.NewAllocationService(store, ledger, publisher, log)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and response caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterPublic(e, handler.NewPublicHandler(alloc), rdb)
	router.RegisterSchedule(e, handler.NewScheduleHandler(alloc), cfg.JWTSecret)
	router.RegisterBooking(e, handler.NewBookingHandler(alloc), cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("starting server")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
