// Package config loads the miner's runtime settings from CLI flags and
// an optional TOML file, following the original CLI's "--config
// pre-parsed first, then flags override" pattern, adapted to Go with
// jessevdk/go-flags for the CLI surface and pelletier/go-toml/v2 for the
// file. The exact flag surface is an implementation detail, but the
// config struct and its TOML/flag field tags are ambient wiring the
// rest of the program depends on.
package config

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	toml "github.com/pelletier/go-toml/v2"
)

// File is the optional TOML config file shape: [pool], [account],
// [runtime]. A file value only fills an Options field that the flags
// left at its zero value, so an explicitly given flag always wins (see
// ApplyFileDefaults).
type File struct {
	Pool struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"pool"`
	Account struct {
		User     string `toml:"user"`
		Password string `toml:"password"`
	} `toml:"account"`
	Runtime struct {
		Timeout           float64 `toml:"timeout"`
		NonceStart        uint32  `toml:"nonce_start"`
		BatchNonces       uint32  `toml:"batch_nonces"`
		MaxShares         int     `toml:"max_shares"`
		DurationSeconds   int     `toml:"duration_seconds"`
		StaleSeconds      float64 `toml:"stale_seconds"`
		Mode              string  `toml:"mode"`
		SuggestDifficulty float64 `toml:"suggest_difficulty"`
		MetricsOutPath    string  `toml:"metrics_out_path"`
		PrometheusAddr    string  `toml:"prometheus_addr"`
	} `toml:"runtime"`
}

// LoadFile parses a TOML config file. A missing path is not an error at
// this layer; callers only invoke LoadFile when --config was given.
func LoadFile(path string) (File, error) {
	var f File
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := toml.Unmarshal(b, &f); err != nil {
		return f, err
	}
	return f, nil
}

// Options is the full CLI surface.
// None of these fields carry a go-flags "default" tag: defaults are
// applied once, explicitly, in Parse, after the TOML file and the flags
// have both had a chance to set a field. That keeps the three-way
// precedence (flag > file > hardcoded default) obvious in one place
// instead of depending on exactly when go-flags' own default mechanism
// runs relative to a pre-populated struct.
type Options struct {
	ConfigPath string `long:"config" description:"Path to TOML config file"`

	Host     string  `long:"host" description:"Stratum pool host"`
	Port     int     `long:"port" description:"Stratum pool port"`
	User     string  `long:"user" description:"Stratum username"`
	Password string  `long:"password" description:"Stratum password"`
	Timeout  float64 `long:"timeout" description:"Socket timeout in seconds"`

	NonceStart  uint32 `long:"nonce-start" description:"Baseline start nonce for each scan batch"`
	BatchNonces uint32 `long:"batch-nonces" description:"Nonces scanned per job snapshot"`
	Mode        string `long:"mode" description:"Nonce start mode: baseline or vireon"`

	MaxShares       int     `long:"max-shares" description:"Stop after this many shares found (0 = unbounded)"`
	DurationSeconds int     `long:"duration-seconds" description:"Stop after this many seconds (0 = unbounded)"`
	StaleSeconds    float64 `long:"stale-seconds" description:"Treat a job older than this as stale"`

	SuggestDifficulty float64 `long:"suggest-difficulty" description:"Send mining.suggest_difficulty with this value"`
	NoSuggest         bool    `long:"no-suggest-difficulty" description:"Do not send mining.suggest_difficulty"`

	MetricsOutPath  string  `long:"metrics-out" description:"Write a JSON metrics snapshot to this path periodically"`
	PrometheusAddr  string  `long:"prometheus-addr" description:"Serve Prometheus metrics on this address, e.g. :9090"`
	LogEverySeconds float64 `long:"log-every-seconds" description:"Seconds between metrics snapshots"`

	Handshake bool `long:"handshake" description:"Connect, subscribe and authorize, then exit"`
	Live      bool `long:"live" description:"Run the live mining loop"`
	SelfTest  bool `long:"selftest" description:"Print the double-SHA-256 of 80 zero bytes and exit"`
}

// Parse parses argv into Options: a first IgnoreUnknown pass recovers
// --config so its file can be loaded, a second pass applies the actual
// flags on top, and then hardcoded defaults fill whatever neither the
// file nor a flag set, the same precedence order the original CLI's
// two-pass argparse used.
func Parse(argv []string) (Options, error) {
	var pre Options
	preParser := flags.NewParser(&pre, flags.IgnoreUnknown)
	_, _ = preParser.ParseArgs(argv)

	var fileCfg File
	if pre.ConfigPath != "" {
		f, err := LoadFile(pre.ConfigPath)
		if err != nil {
			return Options{}, err
		}
		fileCfg = f
	}

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(argv); err != nil {
		return opts, err
	}

	ApplyFileDefaults(&opts, fileCfg)
	applyHardcodedDefaults(&opts)
	return opts, nil
}

// applyHardcodedDefaults fills any field still at its zero value after
// flags and file have both been applied.
func applyHardcodedDefaults(opts *Options) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = 3333
	}
	if opts.User == "" {
		opts.User = "worker.1"
	}
	if opts.Password == "" {
		opts.Password = "x"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10
	}
	if opts.BatchNonces == 0 {
		opts.BatchNonces = 200_000
	}
	if opts.Mode == "" {
		opts.Mode = "baseline"
	}
	if opts.StaleSeconds == 0 {
		opts.StaleSeconds = 120
	}
	if opts.LogEverySeconds == 0 {
		opts.LogEverySeconds = 5
	}
}

// ApplyFileDefaults fills opts' fields from f wherever the flag parse
// left them at zero, so a flag the user actually typed always wins.
func ApplyFileDefaults(opts *Options, f File) {
	if f.Pool.Host != "" && opts.Host == "" {
		opts.Host = f.Pool.Host
	}
	if f.Pool.Port != 0 && opts.Port == 0 {
		opts.Port = f.Pool.Port
	}
	if f.Account.User != "" && opts.User == "" {
		opts.User = f.Account.User
	}
	if f.Account.Password != "" && opts.Password == "" {
		opts.Password = f.Account.Password
	}
	if f.Runtime.Timeout != 0 && opts.Timeout == 0 {
		opts.Timeout = f.Runtime.Timeout
	}
	if f.Runtime.NonceStart != 0 && opts.NonceStart == 0 {
		opts.NonceStart = f.Runtime.NonceStart
	}
	if f.Runtime.BatchNonces != 0 && opts.BatchNonces == 0 {
		opts.BatchNonces = f.Runtime.BatchNonces
	}
	if f.Runtime.MaxShares != 0 && opts.MaxShares == 0 {
		opts.MaxShares = f.Runtime.MaxShares
	}
	if f.Runtime.DurationSeconds != 0 && opts.DurationSeconds == 0 {
		opts.DurationSeconds = f.Runtime.DurationSeconds
	}
	if f.Runtime.StaleSeconds != 0 && opts.StaleSeconds == 0 {
		opts.StaleSeconds = f.Runtime.StaleSeconds
	}
	if f.Runtime.Mode != "" && opts.Mode == "" {
		opts.Mode = f.Runtime.Mode
	}
	if f.Runtime.SuggestDifficulty != 0 && opts.SuggestDifficulty == 0 {
		opts.SuggestDifficulty = f.Runtime.SuggestDifficulty
	}
	if f.Runtime.MetricsOutPath != "" && opts.MetricsOutPath == "" {
		opts.MetricsOutPath = f.Runtime.MetricsOutPath
	}
	if f.Runtime.PrometheusAddr != "" && opts.PrometheusAddr == "" {
		opts.PrometheusAddr = f.Runtime.PrometheusAddr
	}
}

// TimeoutDuration returns the socket timeout as a time.Duration.
func (o Options) TimeoutDuration() time.Duration {
	return time.Duration(o.Timeout * float64(time.Second))
}

// StaleDuration returns the stale-job threshold as a time.Duration.
func (o Options) StaleDuration() time.Duration {
	return time.Duration(o.StaleSeconds * float64(time.Second))
}

// RunDuration returns the configured run duration, or 0 for unbounded.
func (o Options) RunDuration() time.Duration {
	if o.DurationSeconds <= 0 {
		return 0
	}
	return time.Duration(o.DurationSeconds) * time.Second
}
