package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project directory and its parents.
const FileName = ".sustainable.yaml"

const defaultNpmRegistryURL = "https://registry.npmjs.org"

// Config represents the configuration for the sustainability checks
type Config struct {
	// Npm registry used to look up package metadata
	Registry string `yaml:"registry" json:"registry"`

	// A package is flagged once its own dependency count reaches this value
	Threshold int `yaml:"threshold" json:"threshold"`

	// Literal marker searched for in script documents
	Marker string `yaml:"marker" json:"marker"`

	// Ignore specific packages
	IgnorePackages []string `yaml:"ignorePackages" json:"ignorePackages"`

	// Report dependencies whose lookup failed instead of dropping them
	ReportUnknown bool `yaml:"reportUnknown" json:"reportUnknown"`

	// Also scan the devDependencies block of package.json
	ScanDevDependencies bool `yaml:"scanDevDependencies" json:"scanDevDependencies"`

	// Run the marker scan on every document, not only scripts
	LineScanAllDocuments bool `yaml:"lineScanAllDocuments" json:"lineScanAllDocuments"`

	// Static help resource opened by the "learn more" action
	HelpPath string `yaml:"helpPath" json:"helpPath"`

	// Trace log file, truncated on start (empty disables it)
	LogFile string `yaml:"logFile" json:"logFile"`

	Timeouts struct {
		Lookup time.Duration `yaml:"lookup" json:"lookup"` // per registry call
		Scan   time.Duration `yaml:"scan" json:"scan"`     // per document scan, 0 = none
	} `yaml:"timeouts" json:"timeouts"`

	Retry struct {
		Attempts     int           `yaml:"attempts" json:"attempts"`
		InitialDelay time.Duration `yaml:"initialDelay" json:"initialDelay"`
	} `yaml:"retry" json:"retry"`

	Cache struct {
		Size int `yaml:"size" json:"size"` // 0 disables the lookup cache
	} `yaml:"cache" json:"cache"`

	// Output configuration
	Output struct {
		Format string `yaml:"format" json:"format"` // text, json, sarif
	} `yaml:"output" json:"output"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{
		Registry:             defaultNpmRegistryURL,
		Threshold:            10,
		Marker:               ".getElementById",
		IgnorePackages:       []string{},
		ReportUnknown:        true,
		LineScanAllDocuments: true,
		HelpPath:             filepath.Join("out", "wiki", "index.html"),
		LogFile:              "log.txt",
	}

	config.Timeouts.Lookup = 10 * time.Second
	config.Retry.Attempts = 3
	config.Retry.InitialDelay = 200 * time.Millisecond
	config.Cache.Size = 1024

	// Set default output format
	config.Output.Format = "text"

	return config
}

// LoadConfig loads the configuration from the specified file path
// If no path is provided, it looks for .sustainable.yaml in the current directory
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// If no config path provided, look in current directory
	if configPath == "" {
		configPath = FileName
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, return default config
		if err := config.finish(filepath.Dir(configPath)); err != nil {
			return nil, err
		}
		return config, nil
	}

	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse the YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.finish(filepath.Dir(configPath)); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	// Start from the project directory and work up to the root
	currentDir, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", projectPath, err)
	}
	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			// Found a config file, load it
			return LoadConfig(configPath)
		}

		// Move up to the parent directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached the root directory, no config file found
			break
		}
		currentDir = parentDir
	}

	// No config file found, return default config
	config := DefaultConfig()
	if err := config.finish(projectPath); err != nil {
		return nil, err
	}
	return config, nil
}

// finish applies environment overrides, resolves the help path against base
// and validates the result.
func (c *Config) finish(base string) error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	if c.HelpPath != "" && !filepath.IsAbs(c.HelpPath) {
		abs, err := filepath.Abs(filepath.Join(base, c.HelpPath))
		if err != nil {
			return fmt.Errorf("error resolving help path: %w", err)
		}
		c.HelpPath = abs
	}
	c.Registry = strings.TrimRight(c.Registry, "/")
	return c.Validate()
}

// applyEnv overrides file values with SUSTAINABLE_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("SUSTAINABLE_REGISTRY"); v != "" {
		c.Registry = v
	}
	if v := os.Getenv("SUSTAINABLE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUSTAINABLE_THRESHOLD: %w", err)
		}
		c.Threshold = n
	}
	if v, ok := os.LookupEnv("SUSTAINABLE_LOG_FILE"); ok {
		c.LogFile = v
	}
	return nil
}

// Validate checks the config against the embedded JSON schema.
func (c *Config) Validate() error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(c))
	if err != nil {
		return fmt.Errorf("error validating config: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// IsPackageIgnored checks if a package should be ignored based on the configuration
func (c *Config) IsPackageIgnored(packageName string) bool {
	for _, ignoredPackage := range c.IgnorePackages {
		if ignoredPackage == packageName {
			return true
		}
	}
	return false
}
