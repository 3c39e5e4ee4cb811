// Command croprec opens the crop recommendation window.
package main

import (
	"flag"
	"fmt"
	"log"

	"agroassist/croprec/croprec"
	"agroassist/croprec/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: $XDG_CONFIG_HOME/croprec/config.yaml)")
	flag.Parse()

	cfg, err := croprec.LoadConfig(*configPath)
	if err != nil {
		app.ShowFatalError(fmt.Errorf("failed to load config: %w", err))
		return
	}
	if err := app.Run(cfg, *configPath); err != nil {
		log.Fatalf("croprec: %v", err)
	}
}
