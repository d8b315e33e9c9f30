// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/tubetext/internal/config"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:])
	case "dump":
		return runConfigDump(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  tubetext config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  tubetext config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("tubetext config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// An empty path still validates the env + defaults layers.
	configPath := strings.TrimSpace(file)

	loader := config.NewLoader(configPath, version)
	if _, err := loader.Load(); err != nil {
		if configPath == "" {
			fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		}
		return 1
	}

	if configPath == "" {
		fmt.Println("✓ effective configuration (env + defaults) is valid")
	} else {
		fmt.Printf("✓ %s is valid\n", configPath)
	}
	return 0
}

func runConfigDump(args []string) int {
	fs := flag.NewFlagSet("tubetext config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(os.Stderr, "Error: --effective is required")
		return 2
	}

	loader := config.NewLoader(strings.TrimSpace(file), version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	view := dumpViewFromConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

// dumpView is the operator-facing rendering of the effective configuration:
// durations as strings, secrets redacted.
type dumpView struct {
	Version     string `yaml:"version" json:"version"`
	ListenAddr  string `yaml:"listenAddr" json:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr,omitempty" json:"metricsAddr,omitempty"`
	LogLevel    string `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	CacheDir    string `yaml:"cacheDir" json:"cacheDir"`
	RedisAddr   string `yaml:"redisAddr,omitempty" json:"redisAddr,omitempty"`
	YtdlpPath   string `yaml:"ytdlpPath" json:"ytdlpPath"`
	Workers     int    `yaml:"workers" json:"workers"`

	Transcript dumpDomainView `yaml:"transcript" json:"transcript"`
	Comments   dumpDomainView `yaml:"comments" json:"comments"`

	Proxy struct {
		HTTPURL             string `yaml:"httpURL,omitempty" json:"httpURL,omitempty"`
		HTTPSURL            string `yaml:"httpsURL,omitempty" json:"httpsURL,omitempty"`
		Webshare            bool   `yaml:"webshare" json:"webshare"`
		Decodo              bool   `yaml:"decodo" json:"decodo"`
		AttemptTimeout      string `yaml:"attemptTimeout" json:"attemptTimeout"`
		AttemptsPerProvider int    `yaml:"attemptsPerProvider" json:"attemptsPerProvider"`
		FailureThreshold    int    `yaml:"failureThreshold" json:"failureThreshold"`
		Cooldown            string `yaml:"cooldown" json:"cooldown"`
	} `yaml:"proxy" json:"proxy"`

	Upstream struct {
		RateLimit float64 `yaml:"rateLimit" json:"rateLimit"`
		Burst     int     `yaml:"burst" json:"burst"`
	} `yaml:"upstream" json:"upstream"`

	Telemetry struct {
		Enabled      bool    `yaml:"enabled" json:"enabled"`
		ExporterType string  `yaml:"exporterType,omitempty" json:"exporterType,omitempty"`
		Endpoint     string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
		SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	} `yaml:"telemetry" json:"telemetry"`
}

type dumpDomainView struct {
	Languages    []string `yaml:"defaultLanguages,omitempty" json:"defaultLanguages,omitempty"`
	Limit        int      `yaml:"limit,omitempty" json:"limit,omitempty"`
	MaxFetch     int      `yaml:"maxFetch,omitempty" json:"maxFetch,omitempty"`
	CacheSize    int      `yaml:"cacheSize" json:"cacheSize"`
	CacheTTL     string   `yaml:"cacheTTL" json:"cacheTTL"`
	NegativeTTL  string   `yaml:"negativeTTL" json:"negativeTTL"`
	InflightWait string   `yaml:"inflightWait" json:"inflightWait"`
}

func dumpViewFromConfig(cfg config.AppConfig) dumpView {
	var v dumpView
	v.Version = cfg.Version
	v.ListenAddr = cfg.ListenAddr
	v.MetricsAddr = cfg.MetricsAddr
	v.LogLevel = cfg.LogLevel
	v.CacheDir = cfg.CacheDir
	v.RedisAddr = cfg.RedisAddr
	v.YtdlpPath = cfg.YtdlpPath
	v.Workers = cfg.Workers

	v.Transcript = dumpDomainView{
		Languages:    cfg.Transcript.DefaultLanguages,
		CacheSize:    cfg.Transcript.CacheSize,
		CacheTTL:     cfg.Transcript.CacheTTL.String(),
		NegativeTTL:  cfg.Transcript.NegativeTTL.String(),
		InflightWait: cfg.Transcript.InflightWait.String(),
	}
	v.Comments = dumpDomainView{
		Limit:        cfg.Comments.Limit,
		MaxFetch:     cfg.Comments.MaxFetch,
		CacheSize:    cfg.Comments.CacheSize,
		CacheTTL:     cfg.Comments.CacheTTL.String(),
		NegativeTTL:  cfg.Comments.NegativeTTL.String(),
		InflightWait: cfg.Comments.InflightWait.String(),
	}

	// Proxy URLs may embed credentials; strip them rather than print them.
	if cfg.Proxy.HTTPURL != "" {
		v.Proxy.HTTPURL = maskURL(cfg.Proxy.HTTPURL)
	}
	if cfg.Proxy.HTTPSURL != "" {
		v.Proxy.HTTPSURL = maskURL(cfg.Proxy.HTTPSURL)
	}
	v.Proxy.Webshare = cfg.Proxy.WebshareUser != "" && cfg.Proxy.WebsharePass != ""
	v.Proxy.Decodo = cfg.Proxy.DecodoUser != "" && cfg.Proxy.DecodoPass != ""
	v.Proxy.AttemptTimeout = cfg.Proxy.AttemptTimeout.String()
	v.Proxy.AttemptsPerProvider = cfg.Proxy.AttemptsPerProvider
	v.Proxy.FailureThreshold = cfg.Proxy.FailureThreshold
	v.Proxy.Cooldown = cfg.Proxy.Cooldown.String()

	v.Upstream.RateLimit = cfg.Upstream.RateLimit
	v.Upstream.Burst = cfg.Upstream.Burst

	v.Telemetry.Enabled = cfg.Telemetry.Enabled
	v.Telemetry.ExporterType = cfg.Telemetry.ExporterType
	v.Telemetry.Endpoint = cfg.Telemetry.Endpoint
	v.Telemetry.SamplingRate = cfg.Telemetry.SamplingRate

	return v
}
