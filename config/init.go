package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"

	"gowicpbridge/errs"
)

var objectIDRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "cannot open config file")
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return errors.Wrapf(err, "cannot decode %s", path)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	return errors.Wrap(envconfig.Process(EnvPrefix, cfg), "cannot read environment")
}

// Load reads the yaml file at path (skipped when path is empty), overlays
// WICP_* environment variables and validates the result. The returned value
// is shared read-only by every component.
func Load(path string) (*Configuration, error) {
	cfg := &Configuration{}
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := readEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate applies defaults and checks the values every flow depends on.
func (c *Configuration) Validate() error {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Ledger.Timeout <= 0 {
		c.Ledger.Timeout = DefaultTimeout
	}
	if c.Sui.Module == "" {
		c.Sui.Module = DefaultModule
	}
	if c.Sui.GasBudget == 0 {
		c.Sui.GasBudget = DefaultGasBudget
	}
	if c.Sui.RequestTimeout <= 0 {
		c.Sui.RequestTimeout = DefaultTimeout
	}
	if c.Bridge.BurnSettleDelay <= 0 {
		c.Bridge.BurnSettleDelay = DefaultBurnSettleDelay
	}
	if c.Bridge.RefreshInterval <= 0 {
		c.Bridge.RefreshInterval = DefaultRefreshInterval
	}

	if strings.TrimSpace(c.Ledger.URL) == "" {
		return errors.Wrap(errs.ConfigMissing, "ledger.url is required")
	}
	if len(c.Sui.RPCList) == 0 {
		return errors.Wrap(errs.ConfigMissing, "sui.rpc_list needs at least one endpoint")
	}
	if !objectIDRe.MatchString(c.Sui.PackageID) {
		return errors.Wrapf(errs.ConfigMissing, "sui.package_id %q is not a 0x-prefixed object id", c.Sui.PackageID)
	}
	if !objectIDRe.MatchString(c.Sui.TreasuryCapID) {
		return errors.Wrapf(errs.ConfigMissing, "sui.treasury_cap_id %q is not a 0x-prefixed object id", c.Sui.TreasuryCapID)
	}
	if c.Sui.TokenType == "" {
		c.Sui.TokenType = DefaultTokenType
	}
	if c.Server.UseSSL && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return errors.Wrap(errs.ConfigMissing, "server.cert_file and server.key_file are required with ssl")
	}
	return nil
}
