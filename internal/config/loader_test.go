package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadReadsConfigAndProviders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{
		"digital_twin_name": "factory-twin",
		"hot_storage_size_in_days": 30,
		"cold_storage_size_in_days": 90,
		"archive_storage_size_in_days": 365,
		"mode": "production"
	}`)
	writeFile(t, dir, "config_providers.json", `{
		"L1": "aws", "L2": "aws", "L3_hot": "aws", "L3_cold": "aws",
		"L3_archive": "aws", "L4": "aws", "L5": "aws"
	}`)

	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "factory-twin", cfg.TwinName)
	assert.Equal(t, AWS, cfg.ProviderForLayer(L1))
	assert.NotNil(t, cfg.InterCloudConnections)
}

func TestLoadFailsOnMissingRequiredFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir, nil)
	assert.Error(t, err)
}

func TestLoadFailsOnUnknownProviderValue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{
		"digital_twin_name": "factory-twin",
		"hot_storage_size_in_days": 30,
		"cold_storage_size_in_days": 90,
		"archive_storage_size_in_days": 365,
		"mode": "production"
	}`)
	writeFile(t, dir, "config_providers.json", `{"L1": "ibm"}`)

	_, err := Load(dir, nil)
	assert.Error(t, err)
}

func TestLoadOptimizationDefaultsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	flags, err := LoadOptimization(dir)
	require.NoError(t, err)
	assert.False(t, flags.AnyEnabled())
}

func TestLoadOptimizationReadsFlags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config_optimization.json", `{"data_gravity": true}`)

	flags, err := LoadOptimization(dir)
	require.NoError(t, err)
	assert.True(t, flags.DataGravity)
	assert.True(t, flags.AnyEnabled())
}

func TestLoadPricingReadsTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config_pricing.json", `{
		"aws": {
			"message_price_per_device_month": 0.01,
			"transfer_to_azure_price_per_gb": 0.02,
			"transfer_to_gcp_price_per_gb": 0.02
		},
		"azure": {
			"message_price_per_device_month": 0.015
		}
	}`)

	table, err := LoadPricing(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.01, table.AWS.MessagePricePerDevice)
	assert.Equal(t, 0.02, table.AWS.TransferToAzurePrice)
	assert.Equal(t, 0.015, table.Azure.MessagePricePerDevice)
	assert.Equal(t, float64(0), table.GCP.MessagePricePerDevice)
}

func TestLoadPricingFailsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadPricing(dir)
	assert.Error(t, err)
}
