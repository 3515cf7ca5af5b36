package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/twin2multicloud/deployer/internal/cost/pricing"
	"github.com/twin2multicloud/deployer/internal/logging"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

var validate = validator.New()

// allowedProviders is the closed set config_providers.json values must
// come from.
var allowedProviders = map[Provider]bool{AWS: true, Azure: true, Google: true, None: true}

// Load reads and validates config.json and config_providers.json (both
// required; a missing one is a ConfigurationError) plus the optional
// config_inter_cloud.json, and assembles a TwinConfig. The other
// config_*.json files are not read here; they have their own Load*
// functions.
func Load(projectPath string, log *logging.Logger) (*TwinConfig, error) {
	base := TwinConfig{}

	if err := readRequiredJSON(projectPath, "config.json", &base); err != nil {
		return nil, err
	}

	providers, err := LoadProviders(projectPath)
	if err != nil {
		return nil, err
	}
	base.Providers = providers

	if err := validate.Struct(&base); err != nil {
		return nil, twinerrors.Configuration("config.json", fieldOf(err), err.Error())
	}

	if err := validateProviderValues(providers); err != nil {
		return nil, err
	}

	interCloud, err := LoadInterCloud(projectPath)
	if err != nil {
		return nil, err
	}
	base.InterCloudConnections = interCloud.Connections

	if log != nil {
		log.Info("twin config loaded", "twin", base.TwinName, "mode", base.Mode)
	}

	return &base, nil
}

// LoadProviders reads the required config_providers.json mapping.
func LoadProviders(projectPath string) (map[LayerSlot]Provider, error) {
	var file ProvidersFile
	if err := readRequiredJSON(projectPath, "config_providers.json", &file); err != nil {
		return nil, err
	}
	return map[LayerSlot]Provider(file), nil
}

func validateProviderValues(providers map[LayerSlot]Provider) error {
	for slot, p := range providers {
		if !allowedProviders[p] {
			return twinerrors.Configuration("config_providers.json", string(slot),
				fmt.Sprintf("provider %q is not one of aws, azure, google, none", p))
		}
	}
	return nil
}

// LoadIoTDevices reads the optional config_iot_devices.json file,
// accepting either a bare array or an object with a "devices" key.
func LoadIoTDevices(projectPath string) ([]IoTDevice, error) {
	path := filepath.Join(projectPath, "config_iot_devices.json")
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var asArray []IoTDevice
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, validateDevices(asArray)
	}

	var asObject IoTDevicesFile
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil, twinerrors.Configuration("config_iot_devices.json", "", err.Error())
	}
	return asObject.Devices, validateDevices(asObject.Devices)
}

func validateDevices(devices []IoTDevice) error {
	for i := range devices {
		if err := validate.Struct(&devices[i]); err != nil {
			return twinerrors.Configuration("config_iot_devices.json", "device", err.Error())
		}
	}
	return nil
}

// LoadEvents reads the optional config_events.json file.
func LoadEvents(projectPath string) ([]EventRule, error) {
	path := filepath.Join(projectPath, "config_events.json")
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var rules []EventRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, twinerrors.Configuration("config_events.json", "", err.Error())
	}
	return rules, nil
}

// LoadOptimization reads the optional config_optimization.json file.
// When absent, every flag defaults to false and the caller is expected
// to log a warning via OptimizationFlags.AnyEnabled.
func LoadOptimization(projectPath string) (OptimizationFlags, error) {
	path := filepath.Join(projectPath, "config_optimization.json")
	data, ok, err := readOptional(path)
	if err != nil {
		return OptimizationFlags{}, err
	}
	if !ok {
		return OptimizationFlags{}, nil
	}
	var flags OptimizationFlags
	if err := json.Unmarshal(data, &flags); err != nil {
		return OptimizationFlags{}, twinerrors.Configuration("config_optimization.json", "", err.Error())
	}
	return flags, nil
}

// LoadPricing reads the required config_pricing.json file into a
// pricing.Table: one rate card per cloud, validated later against
// whichever providers a given run actually has present (pricing data
// for a provider the project doesn't use is never required).
func LoadPricing(projectPath string) (pricing.Table, error) {
	var table pricing.Table
	if err := readRequiredJSON(projectPath, "config_pricing.json", &table); err != nil {
		return pricing.Table{}, err
	}
	return table, nil
}

// LoadCredentials reads config_credentials.json, or a per-provider
// file named credentials_<provider>.json as a fallback. Absence of
// both is acceptable: the provider adapter may fall back to
// environment variables or an attached IAM role.
func LoadCredentials(projectPath string, provider Provider) (Credentials, error) {
	combined := filepath.Join(projectPath, "config_credentials.json")
	if data, ok, err := readOptional(combined); err != nil {
		return nil, err
	} else if ok {
		var all map[Provider]Credentials
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, twinerrors.Configuration("config_credentials.json", "", err.Error())
		}
		if creds, ok := all[provider]; ok {
			return creds, nil
		}
	}

	perProvider := filepath.Join(projectPath, "credentials_"+string(provider)+".json")
	data, ok, err := readOptional(perProvider)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Credentials{}, nil
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, twinerrors.Configuration(perProvider, "", err.Error())
	}
	return creds, nil
}

// LoadInterCloud reads the core-owned config_inter_cloud.json
// registry. Absence is normal on a fresh project (no boundaries
// deployed yet).
func LoadInterCloud(projectPath string) (*InterCloudFile, error) {
	path := filepath.Join(projectPath, "config_inter_cloud.json")
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &InterCloudFile{Connections: map[string]InterCloudConn{}}, nil
	}
	var file InterCloudFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, twinerrors.Configuration("config_inter_cloud.json", "", err.Error())
	}
	if file.Connections == nil {
		file.Connections = map[string]InterCloudConn{}
	}
	return &file, nil
}

// SaveInterCloud writes the registry back as pretty-printed UTF-8
// JSON, matching the project's persisted state layout.
func SaveInterCloud(projectPath string, file *InterCloudFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(projectPath, "config_inter_cloud.json")
	return os.WriteFile(path, data, 0o644)
}

func readRequiredJSON(projectPath, name string, out interface{}) error {
	path := filepath.Join(projectPath, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return twinerrors.Configuration(name, "", "required config file is missing or unreadable: "+err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return twinerrors.Configuration(name, "", "invalid JSON: "+err.Error())
	}
	return nil
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, twinerrors.Configuration(filepath.Base(path), "", err.Error())
	}
	return data, true, nil
}

func fieldOf(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return ""
}
