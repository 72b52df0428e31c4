// Package config loads pricing runs from YAML files, OPTION_MC_* environment
// variables and command-line flags.
package config

import (
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/option"
	"github.com/contactkeval/option-mc/internal/random"
	"github.com/contactkeval/option-mc/internal/sde"
)

// EnvPrefix prefixes every environment override, e.g. OPTION_MC_PATHS.
const EnvPrefix = "OPTION_MC"

// OptionSpec is the contract section of a config file.
type OptionSpec struct {
	Type        string   `json:"type" mapstructure:"type"` // call | put | +1 | -1
	Strike      float64  `json:"strike" mapstructure:"strike"`
	Expiry      float64  `json:"expiry" mapstructure:"expiry"`
	Rate        float64  `json:"rate" mapstructure:"rate"`
	Volatility  float64  `json:"volatility" mapstructure:"volatility"`
	Elasticity  float64  `json:"elasticity" mapstructure:"elasticity"`
	CostOfCarry *float64 `json:"cost_of_carry,omitempty" mapstructure:"cost_of_carry"`
}

// Run overrides the discretization of one estimation.
type Run struct {
	Steps int `json:"steps" mapstructure:"steps"`
	Paths int `json:"paths" mapstructure:"paths"`
}

type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

type MassiveConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
}

// Config describes one pricing job.
type Config struct {
	Option    OptionSpec    `json:"option" mapstructure:"option"`
	Spot      float64       `json:"spot" mapstructure:"spot"`     // S0; 0 resolves Ticker through market data
	Ticker    string        `json:"ticker" mapstructure:"ticker"` // e.g. "AAPL"
	SpotsFile string        `json:"spots_file,omitempty" mapstructure:"spots_file"`
	Steps     int           `json:"steps" mapstructure:"steps"`
	Paths     int           `json:"paths" mapstructure:"paths"`
	Trials    int           `json:"trials" mapstructure:"trials"` // repetitions of every run
	Runs      []Run         `json:"runs,omitempty" mapstructure:"runs"`
	Workers   int           `json:"workers" mapstructure:"workers"` // 0 = GOMAXPROCS
	Seed      uint64        `json:"seed" mapstructure:"seed"`       // 0 = seed from the clock
	Source    string        `json:"source" mapstructure:"source"`   // gonum | box-muller | inverse-cdf
	Scheme    string        `json:"scheme" mapstructure:"scheme"`   // euler | milstein
	Boundary  string        `json:"boundary" mapstructure:"boundary"`
	Benchmark float64       `json:"benchmark" mapstructure:"benchmark"` // reference price; 0 = closed form when beta is 1
	Verbosity int           `json:"verbosity" mapstructure:"verbosity"` // 0=errors,1=info,2=debug,3=trace
	Server    ServerConfig  `json:"server" mapstructure:"server"`
	Massive   MassiveConfig `json:"massive" mapstructure:"massive"`
}

// Default returns the built-in job: the put of BATCH 1
// (K=65, T=0.25, r=0.08, sigma=0.3, S=60) with 100 steps and 50000 paths.
func Default() *Config {
	return &Config{
		Option: OptionSpec{
			Type:       "put",
			Strike:     65,
			Expiry:     0.25,
			Rate:       0.08,
			Volatility: 0.3,
			Elasticity: 1,
		},
		Spot:      60,
		Steps:     100,
		Paths:     50000,
		Trials:    1,
		Source:    string(random.KindGonum),
		Scheme:    string(sde.SchemeEuler),
		Boundary:  string(sde.BoundaryPermissive),
		Verbosity: 1,
		Server:    ServerConfig{Addr: ":8080"},
		Massive:   MassiveConfig{BaseURL: "https://api.massive.com"},
	}
}

// SetDefaults registers Default() on v. Viper only resolves environment
// overrides for keys it knows about, so every key is registered here.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("option.type", d.Option.Type)
	v.SetDefault("option.strike", d.Option.Strike)
	v.SetDefault("option.expiry", d.Option.Expiry)
	v.SetDefault("option.rate", d.Option.Rate)
	v.SetDefault("option.volatility", d.Option.Volatility)
	v.SetDefault("option.elasticity", d.Option.Elasticity)
	v.SetDefault("spot", d.Spot)
	v.SetDefault("ticker", d.Ticker)
	v.SetDefault("spots_file", d.SpotsFile)
	v.SetDefault("steps", d.Steps)
	v.SetDefault("paths", d.Paths)
	v.SetDefault("trials", d.Trials)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("source", d.Source)
	v.SetDefault("scheme", d.Scheme)
	v.SetDefault("boundary", d.Boundary)
	v.SetDefault("benchmark", d.Benchmark)
	v.SetDefault("verbosity", d.Verbosity)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("massive.api_key", d.Massive.APIKey)
	v.SetDefault("massive.base_url", d.Massive.BaseURL)
}

// Load resolves a Config from v: defaults, then the file at path (if any),
// then OPTION_MC_* variables, then whatever flags the caller bound to v.
// The result is validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	// the option's cost of carry has no default; only set it when given
	if v.IsSet("option.cost_of_carry") {
		b := v.GetFloat64("option.cost_of_carry")
		cfg.Option.CostOfCarry = &b
	}
	if cfg.Massive.APIKey == "" {
		cfg.Massive.APIKey = os.Getenv("MASSIVE_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OptionData converts the contract section into the pricing value object.
func (c *Config) OptionData() (option.Data, error) {
	typ, err := option.ParseType(c.Option.Type)
	if err != nil {
		return option.Data{}, err
	}
	d := option.Data{
		Expiry:     c.Option.Expiry,
		Strike:     c.Option.Strike,
		Volatility: c.Option.Volatility,
		Rate:       c.Option.Rate,
		Elasticity: c.Option.Elasticity,
		Type:       typ,
	}
	if c.Option.CostOfCarry != nil {
		b := *c.Option.CostOfCarry
		d.CostOfCarry = &b
	}
	return d, nil
}

// Plan expands Trials and Runs into the ordered list of estimations to run.
// Without explicit Runs every trial uses Steps and Paths.
func (c *Config) Plan() []Run {
	runs := c.runs()
	trials := c.Trials
	if trials < 1 {
		trials = 1
	}
	plan := make([]Run, 0, trials*len(runs))
	for t := 0; t < trials; t++ {
		plan = append(plan, runs...)
	}
	return plan
}

// Validate reports every problem of the config at once. Each one wraps
// errs.ErrInvalidArgument.
func (c *Config) Validate() error {
	var err error
	if d, perr := c.OptionData(); perr != nil {
		err = multierr.Append(err, perr)
	} else {
		err = multierr.Append(err, d.Validate())
	}

	switch {
	case c.Spot < 0 || math.IsNaN(c.Spot) || math.IsInf(c.Spot, 0):
		err = multierr.Append(err, errs.InvalidArgument("spot must be a positive number, got %v", c.Spot))
	case c.Spot == 0 && c.Ticker == "":
		err = multierr.Append(err, errs.InvalidArgument("either spot or ticker must be set"))
	}

	if c.Trials < 0 {
		err = multierr.Append(err, errs.InvalidArgument("trials must not be negative, got %d", c.Trials))
	}
	if c.Workers < 0 {
		err = multierr.Append(err, errs.InvalidArgument("workers must not be negative, got %d", c.Workers))
	}
	for i, r := range c.runs() {
		if r.Steps < 1 {
			err = multierr.Append(err, errs.InvalidArgument("run %d: steps must be at least 1, got %d", i, r.Steps))
		}
		if r.Paths < 2 {
			err = multierr.Append(err, errs.InvalidArgument("run %d: paths must be at least 2, got %d", i, r.Paths))
		}
	}

	if _, perr := random.ParseKind(c.Source); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, perr := sde.ParseScheme(c.Scheme); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, perr := sde.ParseBoundary(c.Boundary); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.Benchmark < 0 || math.IsNaN(c.Benchmark) {
		err = multierr.Append(err, errs.InvalidArgument("benchmark must not be negative, got %v", c.Benchmark))
	}
	return err
}

// runs is the discretization list of a single trial.
func (c *Config) runs() []Run {
	if len(c.Runs) == 0 {
		return []Run{{Steps: c.Steps, Paths: c.Paths}}
	}
	return c.Runs
}
