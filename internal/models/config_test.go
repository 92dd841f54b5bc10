package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
catalyst:
  baseURL: https://dnac.example.com
  username: admin
  password: from-file
  insecure: true
  credentialsSecret:
    namespace: netops
    name: catalyst-creds
filter:
  family: Cisco Catalyst 9300 Switch
  olderThanDays: 180
  unusedOnly: true
  golden: "false"
unlock:
  enabled: true
  siteId: "-1"
  deviceFamilyIdentifier: "286315874"
  deviceRole: ALL
polling:
  timeoutSeconds: 600
run:
  limit: 10
server:
  apiKeys: ["k1", "k2"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://dnac.example.com", config.Catalyst.BaseURL)
	assert.Equal(t, "from-file", config.Catalyst.Password)
	assert.True(t, config.Catalyst.Insecure)
	require.NotNil(t, config.Catalyst.CredentialsSecret)
	assert.Equal(t, SecretRef{Namespace: "netops", Name: "catalyst-creds"}, *config.Catalyst.CredentialsSecret)

	assert.Equal(t, "Cisco Catalyst 9300 Switch", config.Filter.Family)
	assert.Equal(t, 180, config.Filter.OlderThanDays)
	assert.True(t, config.Filter.UnusedOnly)
	assert.Equal(t, "false", config.Filter.Golden)

	assert.Equal(t, UnlockScope{SiteID: "-1", DeviceFamilyIdentifier: "286315874", DeviceRole: "ALL"}, config.Unlock.Scope())
	assert.Equal(t, []string{"k1", "k2"}, config.Server.APIKeys)

	// 文件中未出现的字段保留默认值
	assert.Equal(t, 600, config.Polling.TimeoutSeconds)
	assert.Equal(t, 2.5, config.Polling.IntervalSeconds)
	assert.Equal(t, 10, config.Run.Limit)
	assert.Equal(t, 1, config.Run.Concurrency)
	assert.Equal(t, 30, config.Catalyst.Timeout)
	assert.True(t, config.Catalyst.LegacyDelete)
	assert.Equal(t, "8080", config.Server.Port)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "catalyst: [unterminated"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CATALYST_PASSWORD", "from-env")
	t.Setenv("CATALYST_TOKEN", "tok")
	t.Setenv("PORT", "9090")

	config, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Catalyst.Password)
	assert.Equal(t, "tok", config.Catalyst.Token)
	assert.Equal(t, "admin", config.Catalyst.Username)
	assert.Equal(t, "9090", config.Server.Port)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Setenv("SWIM_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("CATALYST_BASE_URL", "dnac.lab")

	config, path, err := Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, path, "absent.yaml")
	require.NotNil(t, config)
	assert.Equal(t, "dnac.lab", config.Catalyst.BaseURL)
	assert.Equal(t, "any", config.Filter.Golden)
}

func TestImageTypes(t *testing.T) {
	tests := []struct {
		raw      string
		expected ImageType
	}{
		{"SYSTEM_SW", ImageTypeBase},
		{"SMU", ImageTypeSMU},
		{"ROMMON", ImageTypeROMMON},
		{"BOOTLOADER", ImageTypeROMMON},
		{"APSP", ImageTypeSMU},
		{"", ImageTypeOther},
		{"LICENSE", ImageTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyImageType(tt.raw))
		})
	}

	typ, err := ParseImageType(" SMU ")
	require.NoError(t, err)
	assert.Equal(t, ImageTypeSMU, typ)

	_, err = ParseImageType("firmware")
	assert.Error(t, err)
}

func TestUnlockScopeMissing(t *testing.T) {
	assert.Empty(t, UnlockScope{SiteID: "-1", DeviceFamilyIdentifier: "1", DeviceRole: "ALL"}.Missing())
	assert.Equal(t, []string{"siteId", "deviceFamilyIdentifier", "deviceRole"}, UnlockScope{}.Missing())
	assert.Equal(t, []string{"deviceRole"}, UnlockScope{SiteID: "-1", DeviceFamilyIdentifier: "1"}.Missing())
}
