package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/facade"
	"tasksync/internal/syncengine"
)

func validConfig() Config {
	return Config{
		Persistence: PersistenceConfig{
			PrimaryProvider:    "local",
			ConflictResolution: "manual",
			SyncInterval:       "5m",
			RetryAttempts:      5,
			Timeout:            "30s",
		},
		Local: LocalConfig{Path: "/tmp/tasks.json"},
		Remote: RemoteConfig{
			BaseURL: "https://api.example-board.com/v2",
			BoardID: "b1",
			ColumnMapping: ColumnMappingConfig{
				Status:   "status_col",
				Priority: "priority_col",
			},
			RatePerSecond: 0.5,
			Burst:         5,
			TokenEnvVar:   "TASKSYNC_REMOTE_TOKEN",
		},
	}
}

func TestConfigValidationAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfigValidationRejectsMissingPrimaryProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.PrimaryProvider = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidationRejectsUnknownConflictResolution(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.ConflictResolution = "whatever"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidationRejectsMissingBoardID(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.BoardID = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidationRejectsNonPositiveRate(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.RatePerSecond = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigValidationRejectsMalformedDuration(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.SyncInterval = "five minutes"
	assert.Error(t, cfg.Validate())
}

func TestDurationAccessorsParseConfiguredStrings(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.CacheTTL = "45s"

	assert.Equal(t, 5*time.Minute, cfg.SyncInterval())
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 45*time.Second, cfg.CacheTTL())
}

func TestFacadeConfigMapsProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.PrimaryProvider = "remote"
	cfg.Persistence.SyncOnWrite = true

	fc := cfg.FacadeConfig()
	assert.Equal(t, facade.ProviderRemote, fc.PrimaryProvider)
	assert.True(t, fc.SyncOnWrite)
}

func TestStrategyMapsConflictResolution(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.ConflictResolution = "newest-wins"
	assert.Equal(t, syncengine.StrategyNewestWins, cfg.Strategy())
}

func TestRemoteStoreConfigCarriesColumnMapping(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.ColumnMapping.TaskID = "taskid_col"

	rsc := cfg.RemoteStoreConfig()
	assert.Equal(t, "b1", rsc.BoardID)
	assert.Equal(t, "taskid_col", rsc.ColumnMapping.TaskID)
	assert.Equal(t, "status_col", rsc.ColumnMapping.Status)
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal(sampleConfig(), &cfg))
	// the sample ships an empty boardId placeholder for the operator to fill in
	cfg.Remote.BoardID = "placeholder"
	require.NoError(t, cfg.Validate())
}
