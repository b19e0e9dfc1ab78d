package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/config"
	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/node"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file (overrides defaults)")
	dataDir := flag.String("data", "", "Data directory (overrides config)")
	listenAddr := flag.String("listen", "", "Client protocol listen address (overrides config)")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	logger, err := logging.NewDefaultLogger(logging.ComponentNode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Error("Failed to load config", zap.Error(err))
			os.Exit(1)
		}
		logger.ComponentInfo(logging.ComponentNode, "Configuration loaded",
			zap.String("path", *configPath))
	}
	if *dataDir != "" {
		cfg.Node.DataDir = *dataDir
	}
	if *listenAddr != "" {
		cfg.Node.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	n, err := node.NewNode(cfg)
	if err != nil {
		logger.Error("Failed to create node", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		logger.Error("Failed to start node", zap.Error(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Println()
	logger.ComponentInfo(logging.ComponentNode, "Shutting down",
		zap.String("signal", sig.String()))

	n.Stop(context.Background())
}
