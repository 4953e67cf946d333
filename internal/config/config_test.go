package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	// Keep the host environment from leaking into fallbacks.
	suite.T().Setenv(DefaultAPIKeyEnv, "")
	suite.T().Setenv(DefaultETHFromAddrEnv, "")
	suite.T().Setenv(DefaultBTCFromAddrEnv, "")
}

func (suite *ConfigTestSuite) writeFile(name, content string) string {
	path := filepath.Join(suite.tempDir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

const minimalConfig = `
harbor:
  rest:
    base_uri: https://api.harbor.example
    api_path: /api/v1
`

func (suite *ConfigTestSuite) TestParseAppliesDefaults() {
	cfg, err := Parse([]byte(minimalConfig))
	suite.Require().NoError(err)

	suite.Equal("https://api.harbor.example", cfg.Harbor.REST.BaseURI)
	suite.Equal("/api/v1", cfg.Harbor.REST.APIPath)
	suite.Equal(10*time.Second, cfg.Harbor.REST.RequestTimeout)
	suite.Equal(60*time.Second, cfg.Harbor.Polling.Markets)
	suite.Equal(15*time.Second, cfg.Harbor.Polling.Balances)
	suite.Equal(":1958", cfg.Server.Listen)
	suite.Equal("/metrics", cfg.Server.MetricsPath)
	suite.Equal("harbor.orders", cfg.Events.Redis.Channel)
	suite.Empty(cfg.Harbor.APIKey)
}

func (suite *ConfigTestSuite) TestParseOverrides() {
	cfg, err := Parse([]byte(`
version: v1.0.0
log_level: debug
harbor:
  rest:
    base_uri: https://api.harbor.example
    request_timeout: 3s
  xnode:
    base_uri: https://xnode.harbor.example
    api_path: /thorchain
  websocket:
    url: wss://ws.harbor.example
  api_key: file-key
  polling:
    fills: 500ms
  symbols: [" ETH-USD ", BTC-USD]
`))
	suite.Require().NoError(err)

	suite.Equal("debug", cfg.LogLevel)
	suite.Equal(3*time.Second, cfg.Harbor.REST.RequestTimeout)
	suite.Equal(500*time.Millisecond, cfg.Harbor.Polling.Fills)
	suite.Equal("file-key", cfg.Harbor.APIKey)
	suite.Equal([]string{"ETH-USD", "BTC-USD"}, cfg.Harbor.Symbols)
	suite.Equal("wss://ws.harbor.example", cfg.Harbor.Websocket.URL)
}

func (suite *ConfigTestSuite) TestEnvFallback() {
	suite.T().Setenv(DefaultAPIKeyEnv, "env-key")
	suite.T().Setenv(DefaultETHFromAddrEnv, "0x52908400098527886E0F7030069857D2E4169EE7")
	suite.T().Setenv("CUSTOM_BTC", "bc1qexample")

	cfg, err := Parse([]byte(minimalConfig + "  btc_from_addr_env: CUSTOM_BTC\n"))
	suite.Require().NoError(err)

	suite.Equal("env-key", cfg.Harbor.APIKey)
	suite.Equal("0x52908400098527886E0F7030069857D2E4169EE7", cfg.Harbor.FromAddresses.ETH)
	suite.Equal("bc1qexample", cfg.Harbor.FromAddresses.BTC)
}

func (suite *ConfigTestSuite) TestExplicitKeyWinsOverEnv() {
	suite.T().Setenv(DefaultAPIKeyEnv, "env-key")

	cfg, err := Parse([]byte(minimalConfig + "  api_key: file-key\n"))
	suite.Require().NoError(err)
	suite.Equal("file-key", cfg.Harbor.APIKey)
}

func (suite *ConfigTestSuite) TestLoadWithEnvFile() {
	envPath := suite.writeFile(".env", "HARBOR_TEST_KEY=from-dotenv\n")
	cfgPath := suite.writeFile("harbor.yaml", minimalConfig+"  api_key_env: HARBOR_TEST_KEY\n")
	suite.T().Setenv("HARBOR_TEST_KEY", "")
	os.Unsetenv("HARBOR_TEST_KEY")

	cfg, err := Load(cfgPath, envPath, filepath.Join(suite.tempDir, "missing.env"))
	suite.Require().NoError(err)
	suite.Equal("from-dotenv", cfg.Harbor.APIKey)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.tempDir, "nope.yaml"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidationFailures() {
	tests := []struct {
		name string
		yaml string
		code errors.ErrorCode
	}{
		{"missing base uri", "harbor:\n  rest:\n    api_path: /v1\n", errors.ErrCodeInvalidConfiguration},
		{"bad base uri", "harbor:\n  rest:\n    base_uri: not a url\n", errors.ErrCodeInvalidConfiguration},
		{"zero interval", minimalConfig + "  polling:\n    fills: 0s\n", errors.ErrCodeInvalidConfiguration},
		{"bad log level", "log_level: loud\n" + minimalConfig, errors.ErrCodeInvalidConfiguration},
		{"newer config version", "version: 1.99.0\n" + minimalConfig, errors.ErrCodeInvalidVersion},
		{"malformed yaml", "harbor: [", errors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := Parse([]byte(tc.yaml))
			suite.Require().Error(err)
			suite.Equal(tc.code, errors.GetCode(err))
		})
	}
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := Schema()
	suite.Require().NoError(err)
	suite.True(strings.Contains(schema, `"base_uri"`))
	suite.True(strings.Contains(schema, `"api_key_env"`))
	suite.True(strings.Contains(schema, `"polling"`))
}
