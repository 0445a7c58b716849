package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/avbuild/roomsync/cmd"
)

func main() {
	app := &cli.App{
		Name:   "roomsync-controller",
		Usage:  "synchronises room AV device state with a fusion monitoring system",
		Action: cmd.RoomsyncCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "fusion-host",
				EnvVars:  []string{"FUSION_HOST"},
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "fusion-ssl",
				EnvVars: []string{"FUSION_SSL"},
				Value:   false,
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
				Value:   "migrations",
			},
			&cli.StringFlag{
				Name:     "room-config",
				EnvVars:  []string{"ROOM_CONFIG"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "asset-file",
				EnvVars: []string{"ASSET_FILE"},
				Value:   "data/assets.json",
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
