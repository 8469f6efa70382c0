package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	SIWE     SIWEConfig     `mapstructure:"siwe"`
}

type ChainConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"`
	// WatchInterval is how often the wallet is polled for account or network changes, in seconds.
	WatchInterval int `mapstructure:"watch_interval"`
}

// WalletConfig selects the injected signer. A raw private key wins over a keystore.
type WalletConfig struct {
	PrivateKey      string `mapstructure:"private_key"`
	KeystoreDir     string `mapstructure:"keystore_dir"`
	KeystoreAccount string `mapstructure:"keystore_account"`
	Passphrase      string `mapstructure:"passphrase"`
	AutoConfirm     bool   `mapstructure:"auto_confirm"`
}

// ManifestConfig is the fixed deployment manifest. Tournament addresses are not part
// of it; they arrive with each TournamentSummary.
type ManifestConfig struct {
	Token             string `mapstructure:"token"`
	OrganizerRegistry string `mapstructure:"organizer_registry"`
	OrganizerNFT      string `mapstructure:"organizer_nft"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Driver is one of "gorm", "sql" or "none".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type SIWEConfig struct {
	Domain    string `mapstructure:"domain"`
	URI       string `mapstructure:"uri"`
	Statement string `mapstructure:"statement"`
}

// CHAIN_RPC_URL overrides chain.rpc_url and so on.
var envReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("chain.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("chain.chain_id", 31337)
	v.SetDefault("chain.watch_interval", 5)
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("database.driver", "none")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("siwe.domain", "localhost:8080")
	v.SetDefault("siwe.uri", "http://localhost:8080")
	v.SetDefault("siwe.statement", "Sign in with Ethereum to the app.")
}

func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the deployment manifest; every address must be a hex address.
func (c *Config) Validate() error {
	for name, addr := range map[string]string{
		"manifest.token":              c.Manifest.Token,
		"manifest.organizer_registry": c.Manifest.OrganizerRegistry,
		"manifest.organizer_nft":      c.Manifest.OrganizerNFT,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %s is not a valid address: %q", name, addr)
		}
	}
	switch c.Database.Driver {
	case "gorm", "sql", "none":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	return nil
}
