package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinjoin-tools/cjwallet/internal/config"
	"github.com/coinjoin-tools/cjwallet/internal/core/application"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// flags
var (
	storeFlag = &cli.StringFlag{
		Name:     "store",
		Usage:    "id of the store",
		Required: true,
	}
	optionalStoreFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "id of the store, all stores with settings if omitted",
	}
	coordinatorFlag = &cli.StringFlag{
		Name:     "coordinator",
		Usage:    "name of the coordinator",
		Required: true,
	}
	objectTypeFlag = &cli.StringFlag{
		Name:  "type",
		Usage: "type of the label store objects",
		Value: domain.CoinjoinType,
	}
	objectIdsFlag = &cli.StringSliceFlag{
		Name:  "id",
		Usage: "id of an object to fetch, all objects of the type if omitted",
	}
	neighboursFlag = &cli.BoolFlag{
		Name:  "neighbours",
		Usage: "include the data of the linked objects",
	}
	settingsValueFlag = &cli.StringFlag{
		Name:     "value",
		Usage:    "JSON object with the settings fields to change",
		Required: true,
	}
)

// commands
var (
	startCmd = &cli.Command{
		Name:   "start",
		Usage:  "Start the coinjoin engine and wait for a shutdown signal",
		Action: startAction,
	}
	historyCmd = &cli.Command{
		Name:   "history",
		Usage:  "List the coinjoins of a store wallet, most recent first",
		Action: historyAction,
		Flags:  []cli.Flag{storeFlag},
	}
	privacyCmd = &cli.Command{
		Name:   "privacy",
		Usage:  "Show the share of the balance of the store wallets that reached the anonymity target",
		Action: privacyAction,
		Flags:  []cli.Flag{optionalStoreFlag},
	}
	candidatesCmd = &cli.Command{
		Name:   "candidates",
		Usage:  "List the coins a store wallet would register in a round of the coordinator",
		Action: candidatesAction,
		Flags:  []cli.Flag{storeFlag, coordinatorFlag},
	}
	unlockCmd = &cli.Command{
		Name:   "unlock",
		Usage:  "Release the utxo locks of the store wallets",
		Action: unlockAction,
		Flags:  []cli.Flag{optionalStoreFlag},
	}
	settingsCmd = &cli.Command{
		Name:  "settings",
		Usage: "Get or update the coinjoin settings of a store",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show the settings of a store, defaults if it has none",
				Action: getSettingsAction,
				Flags:  []cli.Flag{storeFlag},
			},
			{
				Name:   "set",
				Usage:  "Update the settings of a store, disabling every coordinator removes them",
				Action: setSettingsAction,
				Flags:  []cli.Flag{storeFlag, settingsValueFlag},
			},
		},
	}
	labelsCmd = &cli.Command{
		Name:   "labels",
		Usage:  "Dump the label store objects of a store wallet",
		Action: labelsAction,
		Flags:  []cli.Flag{storeFlag, objectTypeFlag, objectIdsFlag, neighboursFlag},
	}
)

func startAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}

	log.Debugf("config: %s", cfg)

	if err := svc.SeedSettings(ctx.Context, cfg.Stores); err != nil {
		cfg.Close()
		return err
	}
	wallets, err := svc.Wallets(ctx.Context)
	if err != nil {
		cfg.Close()
		return err
	}

	log.Infof("starting service with %d store wallets...", len(wallets))
	if err := svc.Start(); err != nil {
		cfg.Close()
		return err
	}

	log.RegisterExitHandler(func() {
		svc.Stop()
		cfg.Close()
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}

func historyAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	w, err := svc.Wallet(ctx.Context, ctx.String(storeFlag.Name))
	if err != nil {
		return err
	}
	res := w.CoinjoinHistory(ctx.Context)
	if res.Failed() {
		return res.Err
	}
	return printJSON(res.Value)
}

func privacyAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	wallets, err := selectWallets(ctx, svc)
	if err != nil {
		return err
	}

	type walletPrivacy struct {
		Store              string  `json:"store"`
		AnonymitySetTarget int     `json:"anonymitySetTarget"`
		Privacy            float64 `json:"privacy"`
		Private            bool    `json:"private"`
	}
	list := make([]walletPrivacy, 0, len(wallets))
	for _, w := range wallets {
		privacy := w.PrivacyPercentage(ctx.Context)
		if privacy.Failed() {
			return fmt.Errorf("failed to compute privacy of %s: %w", w.StoreId(), privacy.Err)
		}
		private := w.IsWalletPrivate(ctx.Context)
		list = append(list, walletPrivacy{
			Store:              w.StoreId(),
			AnonymitySetTarget: w.AnonymitySetTarget(),
			Privacy:            privacy.Value,
			Private:            private.Value,
		})
	}
	return printJSON(list)
}

func candidatesAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	w, err := svc.Wallet(ctx.Context, ctx.String(storeFlag.Name))
	if err != nil {
		return err
	}
	coordinator := ctx.String(coordinatorFlag.Name)
	mixable, err := w.IsMixable(ctx.Context, coordinator)
	if err != nil {
		return err
	}
	if !mixable {
		return fmt.Errorf("store %s doesn't mix with coordinator %s", w.StoreId(), coordinator)
	}

	res := w.CoinCandidates(ctx.Context, coordinator)
	if res.Failed() {
		return res.Err
	}

	type candidate struct {
		Outpoint     string         `json:"outpoint"`
		Amount       btcutil.Amount `json:"amount"`
		AnonymitySet float64        `json:"anonymitySet"`
		Labels       []string       `json:"labels,omitempty"`
	}
	list := make([]candidate, 0, len(res.Value))
	for _, c := range res.Value {
		labels := make([]string, 0, len(c.Labels))
		for _, l := range c.Labels {
			labels = append(labels, domain.NewObjectId(l.Type, l.Id).String())
		}
		list = append(list, candidate{c.Id(), c.Value, c.AnonymitySet, labels})
	}
	return printJSON(list)
}

func unlockAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	wallets, err := selectWallets(ctx, svc)
	if err != nil {
		return err
	}
	for _, w := range wallets {
		if err := w.UnlockUtxos(ctx.Context); err != nil {
			return fmt.Errorf("failed to unlock utxos of %s: %w", w.StoreId(), err)
		}
	}

	fmt.Println("utxos unlocked")
	return nil
}

func getSettingsAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	settings, err := svc.GetSettings(ctx.Context, ctx.String(storeFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(settings)
}

func setSettingsAction(ctx *cli.Context) error {
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	store := ctx.String(storeFlag.Name)
	settings, err := svc.GetSettings(ctx.Context, store)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ctx.String(settingsValueFlag.Name)), &settings); err != nil {
		return fmt.Errorf("invalid settings: %s", err)
	}
	settings.StoreId = store

	if err := svc.UpdateSettings(ctx.Context, settings); err != nil {
		return err
	}
	updated, err := svc.GetSettings(ctx.Context, store)
	if err != nil {
		return err
	}
	return printJSON(updated)
}

func labelsAction(ctx *cli.Context) error {
	cfg, _, err := loadService()
	if err != nil {
		return err
	}
	defer cfg.Close()

	wallet := domain.WalletId{StoreId: ctx.String(storeFlag.Name), CryptoCode: cfg.CryptoCode}
	objects, err := cfg.LabelStore().GetObjects(ctx.Context, wallet, domain.ObjectQuery{
		Type:                 ctx.String(objectTypeFlag.Name),
		Ids:                  ctx.StringSlice(objectIdsFlag.Name),
		IncludeNeighbourData: ctx.Bool(neighboursFlag.Name),
	})
	if err != nil {
		return err
	}
	return printJSON(objects)
}

func loadService() (*config.Config, *application.Service, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		cfg.Close()
		return nil, nil, fmt.Errorf("invalid config: %s", err)
	}
	svc, err := cfg.AppService()
	if err != nil {
		cfg.Close()
		return nil, nil, err
	}
	return cfg, svc, nil
}

func selectWallets(ctx *cli.Context, svc *application.Service) ([]*application.Wallet, error) {
	if store := ctx.String(optionalStoreFlag.Name); len(store) > 0 {
		w, err := svc.Wallet(ctx.Context, store)
		if err != nil {
			return nil, err
		}
		return []*application.Wallet{w}, nil
	}
	return svc.Wallets(ctx.Context)
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Println(string(jsonBytes))
	return nil
}
