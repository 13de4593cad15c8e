// Package config loads and validates the on-disk JSON configuration,
// grounded on the teacher's internal/config/config.go: a go:embed sample
// copied into place on first run, go-playground/validator struct tags, and
// a sync.Once global accessor.
package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"tasksync/internal/facade"
	"tasksync/internal/remotestore"
	"tasksync/internal/syncengine"
)

const (
	ConfigDirName  = "tasksync"
	ConfigFileName = "config.json"
	ConfigDirPerm  = 0755
	ConfigFilePerm = 0644
)

//go:embed config.sample.json
var sampleConfigFS embed.FS

var (
	globalConfig *Config
	configOnce   sync.Once
)

// PersistenceConfig controls the hybrid façade and sync engine.
// SyncInterval and Timeout are duration strings (e.g. "5m", "30s"),
// grounded on tonimelisma-onedrive-go's string-typed duration fields
// validated through time.ParseDuration rather than raw JSON numbers.
type PersistenceConfig struct {
	PrimaryProvider    string `json:"primaryProvider" validate:"required,oneof=local remote"`
	AutoSync           bool   `json:"autoSync"`
	SyncOnWrite        bool   `json:"syncOnWrite"`
	ConflictResolution string `json:"conflictResolution" validate:"required,oneof=manual local-wins remote-wins newest-wins"`
	SyncInterval       string `json:"syncInterval" validate:"required,duration"`
	RetryAttempts      int    `json:"retryAttempts" validate:"gte=0"`
	Timeout            string `json:"timeout" validate:"required,duration"`
}

// LocalConfig locates the file-backed store.
type LocalConfig struct {
	Path string `json:"path" validate:"required"`
}

// RemoteConfig locates and maps the board-based remote store.
type RemoteConfig struct {
	BaseURL       string              `json:"baseUrl" validate:"required,url"`
	BoardID       string              `json:"boardId" validate:"required"`
	ColumnMapping ColumnMappingConfig `json:"columnMapping"`
	CacheTTL      string              `json:"cacheTtl" validate:"omitempty,duration"`
	RatePerSecond float64             `json:"ratePerSecond" validate:"gt=0"`
	Burst         int                 `json:"burst" validate:"gt=0"`
	TokenEnvVar   string              `json:"tokenEnvVar" validate:"required"`
}

// ColumnMappingConfig names the remote column ids for each mapped field.
type ColumnMappingConfig struct {
	Status       string `json:"status" validate:"required"`
	Description  string `json:"description"`
	Details      string `json:"details"`
	Priority     string `json:"priority" validate:"required"`
	TestStrategy string `json:"testStrategy"`
	Dependencies string `json:"dependencies"`
	TaskID       string `json:"taskId"`
}

// Config is the root on-disk document.
type Config struct {
	Persistence    PersistenceConfig `json:"persistence" validate:"required"`
	Local          LocalConfig       `json:"local" validate:"required"`
	Remote         RemoteConfig      `json:"remote" validate:"required"`
	Verbose        bool              `json:"verbose"`
	CanWriteConfig bool              `json:"-"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate runs struct-tag validation over the loaded document.
func (c Config) Validate() error {
	return newValidator().Struct(c)
}

// SyncInterval parses Persistence.SyncInterval, already validated as a
// well-formed duration string.
func (c Config) SyncInterval() time.Duration {
	d, _ := time.ParseDuration(c.Persistence.SyncInterval)
	return d
}

// Timeout parses Persistence.Timeout.
func (c Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.Persistence.Timeout)
	return d
}

// CacheTTL parses Remote.CacheTTL, falling back to the zero value (which
// remotestore treats as its own default) when unset.
func (c Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Remote.CacheTTL)
	return d
}

// FacadeConfig adapts the persistence block to facade.Config.
func (c Config) FacadeConfig() facade.Config {
	provider := facade.ProviderLocal
	if c.Persistence.PrimaryProvider == "remote" {
		provider = facade.ProviderRemote
	}
	return facade.Config{PrimaryProvider: provider, SyncOnWrite: c.Persistence.SyncOnWrite}
}

// Strategy adapts the configured conflict resolution policy to
// syncengine.Strategy.
func (c Config) Strategy() syncengine.Strategy {
	return syncengine.Strategy(c.Persistence.ConflictResolution)
}

// RemoteStoreConfig adapts the remote block to remotestore.Config.
func (c Config) RemoteStoreConfig() remotestore.Config {
	return remotestore.Config{
		BoardID: c.Remote.BoardID,
		ColumnMapping: remotestore.ColumnMapping{
			Status:       c.Remote.ColumnMapping.Status,
			Description:  c.Remote.ColumnMapping.Description,
			Details:      c.Remote.ColumnMapping.Details,
			Priority:     c.Remote.ColumnMapping.Priority,
			TestStrategy: c.Remote.ColumnMapping.TestStrategy,
			Dependencies: c.Remote.ColumnMapping.Dependencies,
			TaskID:       c.Remote.ColumnMapping.TaskID,
		},
		CacheTTL: c.CacheTTL(),
	}
}

// Get returns the process-wide configuration, loading it on first call.
func Get() *Config {
	configOnce.Do(func() {
		cfg, err := loadUserOrSampleConfig()
		if err != nil {
			log.Fatal(err)
		}
		globalConfig = cfg
	})
	return globalConfig
}

func loadUserOrSampleConfig() (*Config, error) {
	cfg, _, err := getConfigFromJSON()
	return cfg, err
}

// Path returns the platform config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, ConfigDirName, ConfigFileName), nil
}

func createConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), ConfigDirPerm)
}

// WriteFile persists raw config bytes at configPath.
func WriteFile(configPath string, data []byte) error {
	return os.WriteFile(configPath, data, ConfigFilePerm)
}

func sampleConfig() []byte {
	data, err := sampleConfigFS.ReadFile("config.sample.json")
	if err != nil {
		log.Fatal(err)
	}
	return data
}

// SampleConfig returns the embedded starter config, for callers (the init
// CLI command) that need to write it out explicitly.
func SampleConfig() []byte {
	return sampleConfig()
}

func createConfigFromSample(configPath string) []byte {
	if err := createConfigDir(configPath); err != nil {
		log.Fatal(err)
	}
	data := sampleConfig()
	if err := WriteFile(configPath, data); err != nil {
		log.Fatal(err)
	}
	return data
}

func getConfigFromJSON() (*Config, []byte, error) {
	configPath, err := Path()
	if err != nil {
		return nil, nil, fmt.Errorf("config path couldn't be retrieved: %w", err)
	}

	var canWriteConfig bool
	noConfigFileFound := false

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		noConfigFileFound = true
		data = createConfigFromSample(configPath)
		canWriteConfig = true
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON in config file %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("missing or invalid field(s) in config file %s: %w", configPath, err)
	}
	if noConfigFileFound {
		cfg.CanWriteConfig = canWriteConfig
	}

	cfg.Local.Path = expandFileURL(expandPath(cfg.Local.Path))

	return &cfg, data, nil
}
