package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/coinjoin-tools/cjwallet/internal/core/application"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/coinjoin-tools/cjwallet/internal/core/ports"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/analyzer"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/db"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/greenfield"
	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/nbxplorer"
	timescheduler "github.com/coinjoin-tools/cjwallet/internal/infrastructure/scheduler/gocron"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const configFileName = "cjwallet"

var (
	supportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
	}
	supportedLabelStores = supportedType{
		"local":      {},
		"greenfield": {},
	}
	supportedNetworks = map[string]*chaincfg.Params{
		chaincfg.MainNetParams.Name:       &chaincfg.MainNetParams,
		chaincfg.TestNet3Params.Name:      &chaincfg.TestNet3Params,
		chaincfg.SigNetParams.Name:        &chaincfg.SigNetParams,
		chaincfg.RegressionNetParams.Name: &chaincfg.RegressionNetParams,
	}
)

type Config struct {
	Datadir          string
	DbDir            string
	LogLevel         int
	Network          string
	DbType           string
	LabelStoreType   string
	GreenfieldURL    string
	GreenfieldAPIKey string `json:"-"`
	NBXplorerURL     string
	NBXplorerAuth    string `json:"-"`
	CryptoCode       string
	StatusInterval   time.Duration
	Coordinators     []string
	Stores           []domain.WalletSettings

	network    *chaincfg.Params
	repo       ports.RepoManager
	greenfield *greenfield.Client
	labels     ports.LabelStore
	explorer   *nbxplorer.Client
	locker     ports.UtxoLocker
	analyzer   ports.BlockchainAnalyzer
	scheduler  ports.SchedulerService
	svc        *application.Service
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir          = "DATADIR"
	LogLevel         = "LOG_LEVEL"
	Network          = "NETWORK"
	DbType           = "DB_TYPE"
	LabelStoreType   = "LABEL_STORE_TYPE"
	GreenfieldURL    = "GREENFIELD_URL"
	GreenfieldAPIKey = "GREENFIELD_API_KEY"
	NBXplorerURL     = "NBXPLORER_URL"
	NBXplorerAuth    = "NBXPLORER_AUTH"
	CryptoCode       = "CRYPTO_CODE"
	StatusInterval   = "STATUS_INTERVAL"
	// Coordinators is a comma separated list of the coordinators store
	// settings can enable, any if empty.
	Coordinators     = "COORDINATORS"

	// Stores is read from the config file only.
	Stores = "stores"

	defaultDatadir        = btcutil.AppDataDir("cjwallet", false)
	defaultLogLevel       = 4
	defaultNetwork        = chaincfg.MainNetParams.Name
	defaultDbType         = "badger"
	defaultLabelStoreType = "greenfield"
	defaultNBXplorerURL   = "http://127.0.0.1:32838"
	defaultCryptoCode     = "BTC"
	defaultStatusInterval = 5 * time.Minute
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("CJWALLET")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LabelStoreType, defaultLabelStoreType)
	viper.SetDefault(NBXplorerURL, defaultNBXplorerURL)
	viper.SetDefault(CryptoCode, defaultCryptoCode)
	viper.SetDefault(StatusInterval, defaultStatusInterval)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	stores, err := readStores(viper.GetString(Datadir))
	if err != nil {
		return nil, err
	}

	return &Config{
		Datadir:          viper.GetString(Datadir),
		DbDir:            filepath.Join(viper.GetString(Datadir), "db"),
		LogLevel:         viper.GetInt(LogLevel),
		Network:          viper.GetString(Network),
		DbType:           viper.GetString(DbType),
		LabelStoreType:   viper.GetString(LabelStoreType),
		GreenfieldURL:    viper.GetString(GreenfieldURL),
		GreenfieldAPIKey: viper.GetString(GreenfieldAPIKey),
		NBXplorerURL:     viper.GetString(NBXplorerURL),
		NBXplorerAuth:    viper.GetString(NBXplorerAuth),
		CryptoCode:       strings.ToUpper(strings.TrimSpace(viper.GetString(CryptoCode))),
		StatusInterval:   viper.GetDuration(StatusInterval),
		Coordinators:     parseList(viper.GetString(Coordinators)),
		Stores:           stores,
	}, nil
}

// readStores decodes the per-store settings of the optional cjwallet.yaml
// in the datadir.
func readStores(datadir string) ([]domain.WalletSettings, error) {
	viper.SetConfigName(configFileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(datadir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %s", err)
	}

	stores := make([]domain.WalletSettings, 0)
	if err := viper.UnmarshalKey(Stores, &stores); err != nil {
		return nil, fmt.Errorf("failed to decode store settings: %s", err)
	}
	for i, s := range stores {
		if len(s.StoreId) <= 0 {
			return nil, fmt.Errorf("missing store id for store settings #%d", i)
		}
		if s.AnonScoreTarget <= 0 {
			stores[i].AnonScoreTarget = domain.DefaultAnonymitySetTarget
		}
	}
	return stores, nil
}

func parseList(value string) []string {
	list := make([]string, 0)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); len(v) > 0 {
			list = append(list, v)
		}
	}
	return list
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLabelStores.supports(c.LabelStoreType) {
		return fmt.Errorf(
			"label store type not supported, please select one of: %s", supportedLabelStores,
		)
	}
	network, ok := supportedNetworks[c.Network]
	if !ok {
		names := make(supportedType)
		for name := range supportedNetworks {
			names[name] = struct{}{}
		}
		return fmt.Errorf("network not supported, please select one of: %s", names)
	}
	c.network = network

	if len(c.CryptoCode) <= 0 {
		return fmt.Errorf("missing crypto code")
	}
	if c.StatusInterval < 0 {
		return fmt.Errorf("invalid status interval, must not be negative")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.greenfieldClient(); err != nil {
		return err
	}
	if err := c.labelStore(); err != nil {
		return err
	}
	if err := c.explorerClient(); err != nil {
		return err
	}
	if err := c.lockerService(); err != nil {
		return err
	}
	if err := c.analyzerService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (*application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) LabelStore() ports.LabelStore {
	return c.labels
}

// Close releases the local stores. It must be called once the app service
// is stopped.
func (c *Config) Close() {
	if c.repo != nil {
		c.repo.Close()
	}
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	switch c.DbType {
	case "badger":
		logger := log.New()
		logger.SetLevel(log.Level(c.LogLevel))
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "inmemory":
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) greenfieldClient() error {
	client, err := greenfield.NewClient(c.GreenfieldURL, c.GreenfieldAPIKey)
	if err != nil {
		return err
	}
	c.greenfield = client
	return nil
}

func (c *Config) labelStore() error {
	switch c.LabelStoreType {
	case "local":
		if c.repo == nil {
			return fmt.Errorf("repo manager not set")
		}
		c.labels = c.repo.Labels()
	case "greenfield":
		if c.greenfield == nil {
			return fmt.Errorf("greenfield client not set")
		}
		c.labels = c.greenfield
	default:
		return fmt.Errorf("unknown label store type")
	}
	return nil
}

func (c *Config) explorerClient() error {
	if c.labels == nil {
		return fmt.Errorf("label store not set")
	}

	client, err := nbxplorer.NewClient(
		c.NBXplorerURL, c.NBXplorerAuth, c.CryptoCode, c.network, c.labels,
	)
	if err != nil {
		return err
	}
	c.explorer = client
	return nil
}

func (c *Config) lockerService() error {
	if c.repo == nil {
		return fmt.Errorf("repo manager not set")
	}
	c.locker = c.repo.Locks()
	return nil
}

func (c *Config) analyzerService() error {
	c.analyzer = analyzer.NewAnalyzer()
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	if c.repo == nil {
		return fmt.Errorf("config not validated")
	}

	svc, err := application.NewService(application.Dependencies{
		Ledger:     c.explorer,
		KeyDeriver: c.explorer,
		Labels:     c.labels,
		Payouts:    c.greenfield,
		Stores:     c.greenfield,
		Locker:     c.locker,
		Analyzer:   c.analyzer,
		Settings:   c.repo.Settings(),
		Network:    c.network,
	}, c.scheduler, c.CryptoCode, c.StatusInterval, c.Coordinators)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
