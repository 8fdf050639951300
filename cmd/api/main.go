package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"carefront.org/internal/auth"
	"carefront.org/internal/httpapi"
	"carefront.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

type config struct {
	addr          string
	dsn           string
	secret        string
	tokenTTL      time.Duration
	lockThreshold int
	lockDuration  time.Duration
}

func loadConfig() config {
	cfg := config{
		addr:          envOr("CAREFRONT_ADDR", ":8080"),
		dsn:           os.Getenv("CAREFRONT_PG_DSN"),
		secret:        os.Getenv("CAREFRONT_AUTH_SECRET"),
		tokenTTL:      envDuration("CAREFRONT_TOKEN_TTL", 24*time.Hour),
		lockThreshold: envInt("CAREFRONT_LOCK_THRESHOLD", 5),
		lockDuration:  envDuration("CAREFRONT_LOCK_DURATION", 2*time.Hour),
	}
	return cfg
}

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := loadConfig()
	if cfg.secret == "" {
		log.Fatal("CAREFRONT_AUTH_SECRET is required")
	}

	var (
		db    *sql.DB
		store auth.Store
	)
	if cfg.dsn != "" {
		var err error
		db, err = sql.Open("pgx", cfg.dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = auth.NewPGStore(db)
	} else {
		log.Print("CAREFRONT_PG_DSN not set, using in-memory store (development only)")
		store = auth.NewMemoryStore()
	}

	svc, err := auth.NewService(store,
		auth.WithSigningSecret(cfg.secret),
		auth.WithTokenTTL(cfg.tokenTTL),
		auth.WithLockThreshold(cfg.lockThreshold),
		auth.WithLockDuration(cfg.lockDuration),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	bootstrapAdmin(svc)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc)

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting carefront-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// bootstrapAdmin registers the initial administrator when the env pair
// is set. A duplicate means it already exists, which is fine.
func bootstrapAdmin(svc *auth.Service) {
	email := os.Getenv("CAREFRONT_ADMIN_EMAIL")
	password := os.Getenv("CAREFRONT_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := svc.Register(ctx, auth.Registration{
		Username:  "admin",
		Email:     email,
		Password:  password,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      auth.RoleAdmin,
	})
	switch {
	case err == nil:
		log.Printf("bootstrap admin %s created", email)
	case errors.Is(err, auth.ErrDuplicateIdentity):
		// already provisioned
	default:
		log.Printf("bootstrap admin: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return def
}
