package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/providentiaww/trilix-mixpanel-mcp/internal/mixpanel"
)

// DefaultHTTPPort is used by the HTTP/SSE server when nothing overrides it
const DefaultHTTPPort = 3000

// Config is everything the servers need at startup
type Config struct {
	Credentials mixpanel.Credentials
	BaseURL     string        // empty means the regional default
	Timeout     time.Duration // zero means no timeout
	HTTPPort    int
}

// credential sources, in positional-argument order
var credentialEnv = []string{
	"SERVICE_ACCOUNT_USER_NAME",
	"SERVICE_ACCOUNT_PASSWORD",
	"DEFAULT_PROJECT_ID",
	"MIXPANEL_REGION",
}

// Load resolves credentials from the environment, falling back to the
// positional args, and merges the optional settings file
func Load(args []string) (*Config, error) {
	values := make([]string, len(credentialEnv))
	for i, name := range credentialEnv {
		values[i] = strings.TrimSpace(os.Getenv(name))
		if values[i] == "" && i < len(args) {
			values[i] = strings.TrimSpace(args[i])
		}
	}

	var missing []string
	for i, name := range credentialEnv[:3] {
		if values[i] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s (set the environment variables or pass them as arguments: <username> <password> <project_id> [region])", strings.Join(missing, ", "))
	}

	region := values[3]
	if region == "" {
		region = "us"
	}

	cfg := &Config{
		Credentials: mixpanel.Credentials{
			Username:  values[0],
			Password:  values[1],
			ProjectID: values[2],
			Region:    region,
		},
		HTTPPort: DefaultHTTPPort,
	}

	settingsPath := os.Getenv("MIXPANEL_CONFIG_FILE")
	if settingsPath == "" {
		settingsPath = DefaultSettingsFile
	}
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout, err = settings.Timeout(); err != nil {
		return nil, err
	}
	cfg.BaseURL = settings.Mixpanel.BaseURL
	if settings.Server.Port > 0 {
		cfg.HTTPPort = settings.Server.Port
	}

	if url := os.Getenv("MIXPANEL_API_URL"); url != "" {
		cfg.BaseURL = url
	}
	if raw := os.Getenv("MCP_HTTP_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid MCP_HTTP_PORT %q", raw)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// ClientOptions translates the config into Mixpanel client options
func (c *Config) ClientOptions() []mixpanel.Option {
	var opts []mixpanel.Option
	if c.BaseURL != "" {
		opts = append(opts, mixpanel.WithBaseURL(c.BaseURL))
	}
	if c.Timeout > 0 {
		opts = append(opts, mixpanel.WithTimeout(c.Timeout))
	}
	return opts
}
