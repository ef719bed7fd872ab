package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/config"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/db"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/lock"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/ops"
	redisclient "github.com/marinaerokhina/PoliclinicRegistry/internal/redis"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/registry"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("registry-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s listen_port=%d store=%s locks=%s",
		cfg.Env, cfg.ListenPort, cfg.StoreBackend, cfg.LockBackend)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store  registry.Repository
		pgPool *pgxpool.Pool
	)

	switch cfg.StoreBackend {
	case config.StorePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		if err := db.Migrate(cfg.PostgresDSN); err != nil {
			log.Fatalf("migration error: %v", err)
		}

		store = registry.NewPgRepository(pgPool)
	case config.StoreMemory:
		log.Println("using in-memory store, data will not survive a restart")
		store = registry.NewMemRepository()
	}

	var (
		locker lock.SlotLocker
		rdb    *redis.Client
	)

	switch cfg.LockBackend {
	case config.LockRedis:
		rdb, err = redisclient.Connect(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		locker = redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	default:
		locker = lock.NewKeyedMutex()
	}

	booking := registry.NewCoordinator(store, locker)
	disp := server.NewDispatcher(store, booking, registry.DefaultGrid)
	srv := server.New(disp)

	opsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.OpsPort),
		Handler: ops.NewHandler(pgPool, rdb, cfg.Env).Router(),
	}
	go func() {
		log.Printf("ops endpoints on %s", opsSrv.Addr)
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ops server error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(rootCtx, cfg.ListenPort); err != nil {
		log.Fatalf("listener error: %v", err)
	}

	log.Println("shutting down registry-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = opsSrv.Shutdown(shutdownCtx)
	srv.Shutdown()
}
