package main

import (
	"fmt"
	"os"
	"time"

	"smatrader/cmd/trader"
	"smatrader/src/database"
	"smatrader/src/utils"

	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	config := database.GetConfig()
	utils.SetupLogger(config.LogLevel, config.LogFormat)
	defer handlePanic()

	t := &trader.Trader{Log: logger.WithField("app", APP_NAME)}
	if err := t.Start(); err != nil {
		logger.WithError(err).Fatal("Trader stopped with error")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
