package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"microlesson/internal/config"
	"microlesson/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file")
	socketPath := flag.String("socket", "", "Path to the daemon control socket")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
