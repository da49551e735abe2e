package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nosh-kitchen/nosh-backend/internal/dashboard"
	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
)

// Terminal dish watcher: prints the current catalog, then follows live
// updates from the broadcast channel.
func main() {
	apiURL := flag.String("api", "http://localhost:5000", "dish API base URL")
	wsURL := flag.String("ws", "ws://localhost:5000/ws", "dish updates websocket URL")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := dashboard.NewAPIClient(*apiURL)
	client := dashboard.NewClient(api, dashboard.NotifierFunc(func(msg string) {
		fmt.Println("•", msg)
	}))

	if err := client.Refresh(ctx); err != nil {
		logger.Fatalf("failed to fetch dishes: %v", err)
	}
	for _, d := range client.Dishes() {
		state := "unpublished"
		if d.IsPublished {
			state = "published"
		}
		fmt.Printf("%-20s %-40s %s\n", d.DishID, d.DishName, state)
	}

	listener, err := dashboard.Subscribe(ctx, *wsURL)
	if err != nil {
		logger.Fatalf("failed to subscribe: %v", err)
	}
	defer listener.Close()
	fmt.Println("watching for dish updates (Ctrl-C to stop)")

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	if err := client.Run(ctx, listener); err != nil && ctx.Err() == nil {
		logger.Fatalf("watch: %v", err)
	}
}
