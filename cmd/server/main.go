package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradebill/internal/backup"
	"tradebill/internal/config"
	"tradebill/internal/httpapi"
	"tradebill/internal/kvstore"
	filekv "tradebill/internal/kvstore/file"
	"tradebill/internal/kvstore/memory"
	pgkv "tradebill/internal/kvstore/postgres"
	rediskv "tradebill/internal/kvstore/redis"
	"tradebill/internal/ledger"
	"tradebill/internal/sequence"
	"tradebill/internal/service"
	"tradebill/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env: %v", err)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, closers := openBackend(ctx, cfg)

	st := storage.New(kv)
	if err := st.EnsureVersion(ctx, cfg.AppVersion); err != nil {
		log.Fatalf("version check failed: %v", err)
	}

	// The recovery slot lives in process memory, matching the transient
	// session scope destructive operations expect.
	session := memory.New()

	seq := sequence.New(st)
	lg := ledger.New(st, seq, nil)
	coordinator := backup.New(st, session, nil)
	svc := service.New(st, lg, seq, coordinator, cfg.BusinessName, nil)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.AdminPassword)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("billing backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openBackend picks the persistence backend by configuration precedence:
// postgres, then redis, then a local data directory, then process memory.
func openBackend(ctx context.Context, cfg config.Config) (kvstore.KV, []func() error) {
	closers := make([]func() error, 0, 1)

	if cfg.DatabaseURL != "" {
		pg, err := pgkv.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with a fallback", err)
		}
		closers = append(closers, pg.Close)
		log.Println("storage: postgres")
		return pg, closers
	}

	if cfg.RedisAddr != "" {
		rd := rediskv.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rd.Ping(ctx); err != nil {
			log.Fatalf("redis unavailable (%v) and REDIS_ADDR is set; refusing to start with a fallback", err)
		}
		closers = append(closers, rd.Close)
		log.Println("storage: redis")
		return rd, closers
	}

	if cfg.DataDir != "" {
		fs, err := filekv.New(cfg.DataDir)
		if err != nil {
			log.Fatalf("data directory %s unusable: %v", cfg.DataDir, err)
		}
		log.Println("storage: file")
		return fs, closers
	}

	log.Println("storage: in-memory (data is lost on restart)")
	return memory.New(), closers
}
