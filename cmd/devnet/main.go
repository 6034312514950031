package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chainsafe/dapp-e2e/pkg/app"
	"github.com/chainsafe/dapp-e2e/pkg/app/devnet"
	"github.com/chainsafe/dapp-e2e/pkg/config"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (optional)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = devnet.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Devnet failed: %v\n", err)
		os.Exit(1)
	}
}
