package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ZEEBE_ADDRESS", "DB_USER", "DB_PASSWORD", "REDIS_PASSWORD", "ES_PASSWORD", "AWS_REGION"} {
		t.Setenv(key, "")
	}
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
workers:
  extract-signals:
    enabled: true
  locate-nearest:
    enabled: false
    timeout: 5000
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "triage-workers", cfg.App.Name)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, RegistrySourceFile, cfg.Registry.Source)
	assert.Equal(t, "configs/hospitals.json", cfg.Registry.Path)
	assert.False(t, cfg.Registry.CacheEnabled())
	assert.Equal(t, "ALS", cfg.Notifications.SMS.PriorityThreshold)
	assert.Equal(t, "us-east-1", cfg.Notifications.AWS.Region)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "json", cfg.Logging.Format)

	extract := GetWorkerConfig(cfg, "extract-signals")
	assert.True(t, extract.Enabled)
	assert.Equal(t, 5, extract.MaxJobsActive)
	assert.Equal(t, 30000, extract.Timeout)

	locate := GetWorkerConfig(cfg, "locate-nearest")
	assert.False(t, locate.Enabled)
	assert.Equal(t, 5000, locate.Timeout)
	assert.False(t, IsWorkerEnabled(cfg, "locate-nearest"))
	assert.True(t, IsWorkerEnabled(cfg, "notify-dispatch"))
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	clearOverrides(t)
	t.Setenv("TRIAGE_TEST_BROKER", "zeebe:26500")
	t.Setenv("TRIAGE_TEST_REGISTRY", "/etc/triage/hospitals.yaml")
	path := writeConfig(t, `
camunda:
  broker_address: ${TRIAGE_TEST_BROKER}
registry:
  source: file
  path: ${TRIAGE_TEST_REGISTRY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, "/etc/triage/hospitals.yaml", cfg.Registry.Path)
}

func TestLoadFromFile_Vocabulary(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
triage:
  vocabulary:
    chest_pain: ["chest pain", "tight chest"]
    nausea: ["vomiting"]
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"vomiting"}, cfg.Triage.Vocabulary["nausea"])
	assert.Len(t, cfg.Triage.Vocabulary, 2)
}

func TestLoadFromFile_Validation(t *testing.T) {
	clearOverrides(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "registry:\n  source: file\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "unknown source",
			body:    "camunda:\n  broker_address: x\nregistry:\n  source: s3\n",
			wantErr: `registry.source "s3"`,
		},
		{
			name:    "postgres without host",
			body:    "camunda:\n  broker_address: x\nregistry:\n  source: postgres\n",
			wantErr: "database.postgres host",
		},
		{
			name:    "elasticsearch without address",
			body:    "camunda:\n  broker_address: x\nregistry:\n  source: elasticsearch\n",
			wantErr: "database.elasticsearch",
		},
		{
			name:    "cache without redis",
			body:    "camunda:\n  broker_address: x\nregistry:\n  cache_ttl: 60\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "bad threshold",
			body:    "camunda:\n  broker_address: x\nnotifications:\n  sms:\n    priority_threshold: urgent\n",
			wantErr: "priority_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_PostgresSource(t *testing.T) {
	clearOverrides(t)
	t.Setenv("DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
registry:
  source: postgres
  cache_ttl: 300
database:
  postgres:
    host: db
    database: triage
    user: triage
  redis:
    address: redis:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Registry.CacheEnabled())
	assert.Equal(t, "facilities", cfg.Registry.Table)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t,
		"host=db port=5432 user=triage password=s3cret dbname=triage sslmode=disable",
		cfg.Database.Postgres.GetDSN())
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestElasticsearchConfig_GetURL(t *testing.T) {
	assert.Equal(t, "http://a:9200", ElasticsearchConfig{Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Equal(t, "http://u:9200", ElasticsearchConfig{URL: "http://u:9200", Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Equal(t, "", ElasticsearchConfig{}.GetURL())
}
