package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.NewApp()

	app.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	app.Name = "cjwalletd"
	app.Usage = "Coinjoin engine for the on-chain wallets of BTCPay Server stores"
	app.Commands = append(
		app.Commands,
		startCmd,
		historyCmd,
		privacyCmd,
		candidatesCmd,
		unlockCmd,
		settingsCmd,
		labelsCmd,
	)
	app.DefaultCommand = startCmd.Name

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
