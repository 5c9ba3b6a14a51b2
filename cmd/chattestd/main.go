package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/chattest/internal/logging"
	"github.com/danmuck/chattest/internal/room"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "cmd/chattestd/config.toml", "path to chattestd config.toml")
	flag.Parse()

	_ = godotenv.Load()
	logging.ConfigureRuntime()
	gin.SetMode(gin.ReleaseMode)

	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chattestd: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := room.NewServiceWithConfig(cfg)
	go runConsole(ctx, svc, os.Stdin, os.Stdout)
	if err := svc.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "chattestd: %v\n", err)
		os.Exit(1)
	}
}
