// entry point to app :)
package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/config"
	"github.com/Numzn/NUMZSCAN-APP/internal/appServer"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment as-is")
	}

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	appServer.NewServer(cfg)
}
