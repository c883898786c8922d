package main

import (
	"fmt"
	"os"

	"smatrader/cmd/keys"
	"smatrader/cmd/report"
	"smatrader/cmd/signal"
	"smatrader/cmd/trader"
	"smatrader/src/database"
	"smatrader/src/utils"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	config := database.GetConfig()
	utils.SetupLogger(config.LogLevel, config.LogFormat)

	app := cli.NewApp()
	app.Name = "smatrader"
	app.Usage = "SMA crossover trading bot for Binance spot"
	app.Version = Version

	app.Commands = []cli.Command{
		traderCMD,
		reportCMD,
		signalCMD,
		keysCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	traderCMD = cli.Command{
		Name:        "trader",
		Usage:       "run the trading engine and its HTTP control surface",
		Action:      traderAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Restore the saved state, then serve /api/trade/* on PORT until SIGINT/SIGTERM`,
	}
	reportCMD = cli.Command{
		Name:        "report",
		Usage:       "print trade statistics, recent trades and saved state",
		Action:      reportAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Read the trading database and print a summary`,
	}
	signalCMD = cli.Command{
		Name:        "signal",
		Usage:       "evaluate the crossover once on live klines",
		Action:      signalAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch the latest closes and print the SMAs and signal without trading`,
	}
	keysCMD = cli.Command{
		Name:  "keys",
		Usage: "manage encrypted exchange credentials",
		Subcommands: []cli.Command{
			{
				Name:   "genkey",
				Usage:  "print a new EXCHANGE_CREDENTIALS_KEY",
				Action: func(_ *cli.Context) error { return keys.GenKey(os.Stdout) },
			},
			{
				Name:   "encrypt",
				Usage:  "encrypt API key and secret read from stdin",
				Action: func(_ *cli.Context) error { return keys.Encrypt(os.Stdin, os.Stdout) },
			},
			{
				Name:   "verify",
				Usage:  "decrypt BINANCE_*_ENC and print them masked",
				Action: func(_ *cli.Context) error { return keys.Verify(keys.GetConfig(), os.Stdout) },
			},
		},
	}
)

func traderAction(_ *cli.Context) error {

	logrus.Info("Starting trader CMD")

	t := &trader.Trader{Log: logrus.WithField("cmd", "trader")}
	err := t.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func reportAction(_ *cli.Context) error {
	r := &report.Report{Log: logrus.WithField("cmd", "report"), Out: os.Stdout}
	if err := r.Start(); err != nil {
		logrus.WithError(err).Error("Report failed")
		return err
	}
	return nil
}

// signalAction is a dry run of one engine cycle.
func signalAction(_ *cli.Context) error {
	s := &signal.Signal{Log: logrus.WithField("cmd", "signal"), Out: os.Stdout}
	if err := s.Start(); err != nil {
		logrus.WithError(err).Error("Signal evaluation failed")
		return err
	}
	return nil
}
