// Command rgddl-server serves the DDL compiler over HTTP.
//
//	rgddl-server [-config rgddl.yaml] [-addr :8080]
//
// RGDDL_JWT_SECRET overrides server.jwt_secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/rgddl/internal/config"
	"github.com/koustreak/rgddl/internal/logger"
	"github.com/koustreak/rgddl/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	addr := flag.String("addr", "", "listen address (default \":8080\")")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rgddl-server: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if secret := os.Getenv("RGDDL_JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		Directory:    cfg.DDL.Directory,
		Strict:       cfg.DDL.Strict,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		JWTSecret:    cfg.Server.JWTSecret,
		Logger:       log,
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		log.ErrorWith("server failed", err, nil)
		stop()
		os.Exit(1)
	}
	log.Info("server stopped")
}
