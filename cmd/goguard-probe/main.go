package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goGuard "github.com/regenecura/goGuard"
	"github.com/regenecura/goGuard/storage"
	"github.com/regenecura/goGuard/token"
)

func main() {
	var (
		baseURL   = flag.String("base-url", "", "API base URL, e.g. https://api.example.com")
		username  = flag.String("username", "", "login username")
		password  = flag.String("password", "", "login password")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "goguard", "storage key prefix")
		watch     = flag.Bool("watch", false, "keep the expiry monitor armed and print audit events until interrupted")
		interval  = flag.Duration("interval", 15*time.Second, "expiry check interval in watch mode")
	)
	flag.Parse()

	if *baseURL == "" || *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "base-url, username, and password are required")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goGuard.DefaultConfig()
	cfg.Session.BaseURL = *baseURL
	cfg.Session.CheckInterval = *interval

	engine, err := goGuard.New().
		WithConfig(cfg).
		WithStorage(storage.NewRedis(client, *prefix)).
		WithAuditSink(goGuard.NewJSONWriterSink(os.Stdout)).
		WithAutoLogoutHook(func(u goGuard.User) {
			fmt.Printf("auto logout: %s\n", u.Username)
		}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	result, err := engine.Session().Login(ctx, goGuard.Credentials{
		Username: *username,
		Password: *password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("logged in as %s (%s)\n", result.User.Username, result.User.Role)

	raw := engine.Session().Token()
	claims, err := token.Decode(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token decode failed: %v\n", err)
		os.Exit(1)
	}
	if claims.ExpiresAt != nil {
		fmt.Printf("token expires at %s (in %s)\n",
			claims.ExpiresAt.Time.Format(time.RFC3339),
			time.Until(claims.ExpiresAt.Time).Round(time.Second),
		)
	} else {
		fmt.Println("token carries no expiry claim")
	}

	if !*watch {
		if err := engine.Session().Logout(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "logout failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("logged out")
		return
	}

	fmt.Printf("monitor armed, checking every %s; Ctrl-C to stop\n", *interval)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	_ = engine.Session().Logout(ctx)
	fmt.Println("logged out")
}
