package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the suite configuration
type Config struct {
	DApp     DAppConfig     `mapstructure:"dapp"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Suite    SuiteConfig    `mapstructure:"suite"`
	Devnet   DevnetConfig   `mapstructure:"devnet"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DAppConfig contains the front end under test
type DAppConfig struct {
	BaseURL       string `mapstructure:"base_url" default:"http://localhost:3000" validate:"required,url"`
	NFTContract   string `mapstructure:"nft_contract" default:"0x0000000000000000000000000000000000000000" validate:"omitempty,eth_addr"`
	TokenContract string `mapstructure:"token_contract" validate:"omitempty,eth_addr"`
	Recipient     string `mapstructure:"recipient" default:"0x70997970C51812dc3A010C7d01b50e0d17dc79C8" validate:"required,eth_addr"`
}

// EthereumConfig contains read-only RPC settings used for on-chain assertions
type EthereumConfig struct {
	RPCURL    string        `mapstructure:"rpc_url" default:"https://rpc.sepolia.org" validate:"required,url"`
	ChainID   int64         `mapstructure:"chain_id" default:"11155111" validate:"gt=0"`
	TxTimeout time.Duration `mapstructure:"tx_timeout" default:"60s" validate:"gt=0"`
}

// BrowserConfig contains browser launch settings
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	ExtensionPath     string        `mapstructure:"extension_path"`
	UserDataDir       string        `mapstructure:"user_data_dir"`
	SlowMo            time.Duration `mapstructure:"slow_mo"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" default:"30s" validate:"gt=0"`
	PopupURLPattern   string        `mapstructure:"popup_url_pattern" default:"notification.html"`
}

// WalletConfig contains wallet popup timeouts and the selector override file
type WalletConfig struct {
	PopupTimeout        time.Duration `mapstructure:"popup_timeout" default:"30s" validate:"gt=0"`
	OptionalStepTimeout time.Duration `mapstructure:"optional_step_timeout" default:"5s" validate:"gt=0"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout" default:"10s" validate:"gt=0"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout" default:"15s" validate:"gt=0"`
	SignTimeout         time.Duration `mapstructure:"sign_timeout" default:"15s" validate:"gt=0"`
	RejectTimeout       time.Duration `mapstructure:"reject_timeout" default:"10s" validate:"gt=0"`
	SwitchTimeout       time.Duration `mapstructure:"switch_timeout" default:"10s" validate:"gt=0"`
	ApproveTimeout      time.Duration `mapstructure:"approve_timeout" default:"15s" validate:"gt=0"`
	CloseTimeout        time.Duration `mapstructure:"close_timeout" default:"10s" validate:"gt=0"`
	ConfirmCloseTimeout time.Duration `mapstructure:"confirm_close_timeout" default:"30s" validate:"gt=0"`
	DetailProbeTimeout  time.Duration `mapstructure:"detail_probe_timeout" default:"1500ms" validate:"gt=0"`
	SelectorsFile       string        `mapstructure:"selectors_file"`
}

// SuiteConfig contains scenario-suite run settings
type SuiteConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	ArtifactsDir        string `mapstructure:"artifacts_dir" default:"test-results" validate:"required"`
	ScreenshotOnFailure bool   `mapstructure:"screenshot_on_failure" default:"true"`
	MetricsFile         string `mapstructure:"metrics_file" default:"metrics.prom"`
	ExpectedNetwork     string `mapstructure:"expected_network" default:"sepolia"`
	SendAmount          string `mapstructure:"send_amount" default:"0.001" validate:"numeric"`
}

// DevnetConfig contains the local JSON-RPC stub settings
type DevnetConfig struct {
	Host              string        `mapstructure:"host" default:"0.0.0.0"`
	Port              int           `mapstructure:"port" default:"8545" validate:"gt=0,lt=65536"`
	ChainID           uint64        `mapstructure:"chain_id" default:"31337" validate:"gt=0"`
	PrefundWei        string        `mapstructure:"prefund_wei" default:"10000000000000000000000" validate:"numeric"`
	PrefundedAccounts []string      `mapstructure:"prefunded_accounts" validate:"dive,eth_addr"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" default:"30s"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" default:"info"`
	Format     string `mapstructure:"format" default:"console" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path" default:"stdout"`
}

// envBindings maps config keys to the environment variables the suite has always read.
var envBindings = map[string]string{
	"dapp.base_url":          "DAPP_URL",
	"dapp.nft_contract":      "NFT_CONTRACT",
	"dapp.token_contract":    "TOKEN_CONTRACT",
	"ethereum.rpc_url":       "RPC_URL",
	"ethereum.chain_id":      "CHAIN_ID",
	"browser.headless":       "HEADLESS",
	"browser.extension_path": "METAMASK_EXTENSION_PATH",
	"browser.user_data_dir":  "BROWSER_USER_DATA_DIR",
	"suite.enabled":          "E2E_ENABLED",
	"suite.artifacts_dir":    "E2E_ARTIFACTS_DIR",
	"wallet.selectors_file":  "WALLET_SELECTORS_FILE",
	"logging.level":          "LOG_LEVEL",
	"devnet.port":            "DEVNET_PORT",
}

// Load loads configuration from an optional YAML file and environment variables.
// An empty configPath reads the environment only.
func Load(configPath string) (*Config, error) {
	var config Config
	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validate(config *Config) error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(config)
}

// DevnetAddress returns the listen address of the devnet server
func (c *DevnetConfig) DevnetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
