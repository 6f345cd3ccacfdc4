package cmd

import (
	"os"
	"os/signal"
	"syscall"
)

// waitForShutdown 阻塞直到收到 SIGINT 或 SIGTERM
func waitForShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return <-quit
}
