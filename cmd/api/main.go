package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabhub.org/internal/authz"
	"collabhub.org/internal/httpapi"
	"collabhub.org/internal/identity"
	"collabhub.org/internal/membership"
	"collabhub.org/internal/obs"
	"collabhub.org/internal/project"
	"collabhub.org/internal/revoke"
	"collabhub.org/internal/store/pg"
	"collabhub.org/internal/stream"
	"collabhub.org/internal/token"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("COLLABHUB_JWT_SECRET")
	if secret == "" {
		log.Fatal("COLLABHUB_JWT_SECRET is required")
	}
	addr := envOr("COLLABHUB_ADDR", ":8080")

	ctx := context.Background()

	// Persistence: Postgres when a DSN is configured, in-memory otherwise.
	var (
		idStore      identity.Store
		refreshStore token.RefreshStore
		memberStore  membership.Store
		projectStore project.Store
		pgStore      *pg.Store
	)
	if dsn := os.Getenv("COLLABHUB_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer pgStore.Close()
		idStore = pgStore
		refreshStore = pgStore.RefreshTokens()
		memberStore = pgStore.Memberships()
		projectStore = pgStore.Projects()
		log.Println("Using Postgres storage")
	} else {
		idStore = identity.NewInMemory()
		refreshStore = token.NewInMemory()
		memberStore = membership.NewInMemory()
		projectStore = project.NewInMemory()
		log.Println("COLLABHUB_PG_DSN not set, using in-memory storage")
	}

	// Revocation list: shared Redis when configured, in-process otherwise.
	var blacklist revoke.List
	if redisAddr := os.Getenv("COLLABHUB_REDIS_ADDR"); redisAddr != "" {
		rd, err := revoke.Dial(ctx, redisAddr)
		if err != nil {
			log.Fatalf("dial redis: %v", err)
		}
		defer rd.Close()
		blacklist = rd
		log.Println("Using Redis revocation list")
	} else {
		blacklist = revoke.NewMemory()
		log.Println("COLLABHUB_REDIS_ADDR not set, using in-memory revocation list")
	}

	idSvc, err := identity.NewService(idStore)
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}

	tokenOpts := []token.ServiceOption{token.WithPrincipalLoader(idSvc)}
	if issuer := os.Getenv("COLLABHUB_ISSUER"); issuer != "" {
		tokenOpts = append(tokenOpts, token.WithIssuer(issuer))
	}
	if ttl := envDuration("COLLABHUB_ACCESS_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, token.WithAccessTTL(ttl))
	}
	if ttl := envDuration("COLLABHUB_REFRESH_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, token.WithRefreshTTL(ttl))
	}
	tokenSvc, err := token.NewService(refreshStore, secret, tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	memberSvc, err := membership.NewService(memberStore)
	if err != nil {
		log.Fatalf("membership service: %v", err)
	}
	projectSvc, err := project.NewService(projectStore, memberStore)
	if err != nil {
		log.Fatalf("project service: %v", err)
	}
	engine, err := authz.NewEngine(memberStore)
	if err != nil {
		log.Fatalf("authz engine: %v", err)
	}

	ready := httpapi.ReadyProbe{Check: func(ctx context.Context) error {
		if pgStore == nil {
			return nil
		}
		return pgStore.Ping(ctx)
	}}

	api, err := httpapi.New(httpapi.Config{
		Version:   version,
		Ready:     ready,
		Identity:  idSvc,
		Tokens:    tokenSvc,
		Blacklist: blacklist,
		Members:   memberSvc,
		Projects:  projectSvc,
		Authz:     engine,
		Events:    stream.New(),
	})
	if err != nil {
		log.Fatalf("build api: %v", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting collabhub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}
