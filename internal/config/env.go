package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig     = "SURVEYSYNC_CONFIG"
	EnvBackendURL = "SURVEYSYNC_BACKEND_URL"
	EnvServiceKey = "SURVEYSYNC_SERVICE_KEY"
	EnvDBPath     = "SURVEYSYNC_DB_PATH"
)

// EnvOverrides holds values derived from environment variables. The
// service key in particular is usually injected this way so it never
// lands in a config file.
type EnvOverrides struct {
	ConfigPath string
	BackendURL string
	ServiceKey string
	DBPath     string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		BackendURL: os.Getenv(EnvBackendURL),
		ServiceKey: os.Getenv(EnvServiceKey),
		DBPath:     os.Getenv(EnvDBPath),
	}
}
