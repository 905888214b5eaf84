package test

import (
	"context"

	"github.com/redis/go-redis/v9"

	goGuard "github.com/regenecura/goGuard"
	"github.com/regenecura/goGuard/storage"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := goGuard.DefaultConfig()
	cfg.Session.BaseURL = "https://api.example.com"

	engine, _ := goGuard.New().
		WithConfig(cfg).
		WithStorage(storage.NewRedis(rdb, "site")).
		Build()
	_ = engine
}

// ExampleSessionMonitor_Login shows a typical login call and structured error handling.
func ExampleSessionMonitor_Login() {
	var engine *goGuard.Engine
	_, err := engine.Session().Login(context.Background(), goGuard.Credentials{
		Username: "alice",
		Password: "password",
	})
	if err != nil {
		_ = err
	}
}

// ExampleConsentStore_Subscribe shows reacting to consent changes.
func ExampleConsentStore_Subscribe() {
	var engine *goGuard.Engine
	id := engine.Consent().Subscribe(func(p goGuard.Preferences) {
		if p.Performance {
			// start analytics
		}
	})
	engine.Consent().Unsubscribe(id)
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *goGuard.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot
}
