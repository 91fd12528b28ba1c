package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petsync/internal/feeder"
	"petsync/internal/handlers"
	"petsync/internal/logger"
	"petsync/internal/push"
	"petsync/internal/repository"
	"petsync/internal/server"
	"petsync/internal/service"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

func main() {
	// load config.yml first so the log level comes from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log_level"))

	// open DB, retrying with backoff rather than terminating
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	state := feeder.NewState(viper.GetInt("feeder.initial_grams"))
	hub := push.NewHub(log)
	services := service.NewService(repos, state, hub, log, service.Options{
		DefaultDoseGrams: viper.GetInt("feeder.default_dose_grams"),
		StoreTimeout:     viper.GetDuration("store.op_timeout"),
		StrictPush:       viper.GetBool("push.strict"),
	})
	hub.SetSnapshotter(services.Sync)

	limiter := newRateLimiter()
	apiHandler := handlers.NewHandler(services, hub, log, limiter)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetDefault("port", "5000")
	viper.SetDefault("log_level", logger.InfoLevel)
	viper.SetDefault("db.path", "petsync.db")
	viper.SetDefault("store.connect_timeout", 5*time.Second)
	viper.SetDefault("store.op_timeout", 45*time.Second)
	viper.SetDefault("store.reconnect_backoff", 2*time.Second)
	viper.SetDefault("store.reconnect_max_backoff", 30*time.Second)
	viper.SetDefault("feeder.initial_grams", 0)
	viper.SetDefault("feeder.default_dose_grams", 40)
	viper.SetDefault("push.strict", false)
	viper.SetDefault("rate_limit.per_sec", 20)
	viper.SetDefault("rate_limit.burst", 40)
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database, retrying with exponential backoff
// until the store comes up.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	connectTimeout := viper.GetDuration("store.connect_timeout")
	backoff := viper.GetDuration("store.reconnect_backoff")
	maxBackoff := viper.GetDuration("store.reconnect_max_backoff")

	var db *sql.DB
	var err error
	for {
		db, err = repository.InitDB(dbPath, connectTimeout)
		if err == nil {
			return db, nil
		}
		log.Errorw("store unreachable, retrying", "path", dbPath, "backoff", backoff, "err", err)
		time.Sleep(backoff)
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func newRateLimiter() *handlers.IPRateLimiter {
	perSec := viper.GetFloat64("rate_limit.per_sec")
	if perSec <= 0 {
		return nil // limiting disabled
	}
	return handlers.NewIPRateLimiter(rate.Limit(perSec), viper.GetInt("rate_limit.burst"))
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the push hub and other background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
