package main

import (
	"log"

	"github.com/m3rciful/calorico/bot/app"
	corecmd "github.com/m3rciful/calorico/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("bot exited: %v", err)
	}
}
