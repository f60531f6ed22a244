package config

import (
	"time"

	"gowicpbridge/logger"
)

type Configuration struct {
	// Server config
	Server struct {
		Listen    string `yaml:"listen" envconfig:"LISTEN"`
		UseSSL    bool   `yaml:"ssl" envconfig:"SSL"`
		CertFile  string `yaml:"cert_file" envconfig:"CERT_FILE"`
		KeyFile   string `yaml:"key_file" envconfig:"KEY_FILE"`
		RedisPort int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
		RedisHost string `yaml:"redis_host" envconfig:"REDIS_HOST"`
	} `yaml:"server"`
	// ICP bridge canister, reached through its JSON-RPC gateway.
	// When Principal is set the session is established at startup.
	// Timeout applies per request.
	Ledger struct {
		URL       string        `yaml:"url" envconfig:"URL"`
		Principal string        `yaml:"principal" envconfig:"PRINCIPAL"`
		Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"ledger"`
	// Sui-related config
	Sui struct {
		// reads fail over in order; execution only uses the first endpoint
		RPCList        []string      `yaml:"rpc_list" envconfig:"RPC_LIST"`
		Network        string        `yaml:"network" envconfig:"NETWORK"`
		PackageID      string        `yaml:"package_id" envconfig:"PACKAGE_ID"`
		Module         string        `yaml:"module" envconfig:"MODULE"`
		TreasuryCapID  string        `yaml:"treasury_cap_id" envconfig:"TREASURY_CAP_ID"`
		GasBudget      uint64        `yaml:"gas_budget" envconfig:"GAS_BUDGET"`
		TokenType      string        `yaml:"token_type" envconfig:"TOKEN_TYPE"`
		RequestTimeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"sui"`
	Bridge struct {
		// how long a submitted burn stays in flight before moving to history
		BurnSettleDelay time.Duration `yaml:"burn_settle_delay" envconfig:"BURN_SETTLE_DELAY"`
		RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
	} `yaml:"bridge"`
	Logger logger.Config `yaml:"logger"`
}

// environment overlay prefix, e.g. WICP_SUI_PACKAGE_ID or WICP_LOGGER_OUTPUT
const EnvPrefix = "WICP"

const (
	DefaultListen          = ":8080"
	DefaultModule          = "token"
	DefaultTokenType       = "wICP"
	DefaultGasBudget       = 10_000_000
	DefaultTimeout         = 30 * time.Second
	DefaultBurnSettleDelay = 10 * time.Second
	DefaultRefreshInterval = 30 * time.Second
)

// persisted bridge operation statuses and their index sets
var RedisStatusSets = map[string]string{
	"depositing": "bridgeops:depositing", // lock requested from the ledger
	"deposited":  "bridgeops:deposited",  // ledger accepted the lock, mint not done yet
	"minting":    "bridgeops:minting",    // mint transaction being signed/submitted
	"complete":   "bridgeops:complete",   // mint executed on Sui
	"rejected":   "bridgeops:rejected",   // ledger refused the lock
	"burning":    "bridgeops:burning",    // burn transaction being signed/submitted
	"burned":     "bridgeops:burned",     // burn executed on Sui
	"failed":     "bridgeops:failed",     // burn failed, coin untouched

	// the process stopped mid-step, outcome must be checked by an operator
	"interrupted": "bridgeops:interrupted",
}

// key of the burn nonce counter
const RedisBurnNonceKey = "bridge:burnNonce"
