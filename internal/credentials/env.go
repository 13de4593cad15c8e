package credentials

import (
	"os"

	"github.com/joho/godotenv"
)

// DefaultTokenEnvVar is used when a config document doesn't name one
// explicitly (see internal/config.RemoteConfig.TokenEnvVar).
const DefaultTokenEnvVar = "TASKSYNC_REMOTE_TOKEN"

// LoadDotEnv loads a .env file from the working directory into the
// process environment, for local development. A missing file is not an
// error; godotenv.Load's error is only surfaced for a malformed file.
func LoadDotEnv() error {
	err := godotenv.Load()
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetTokenFromEnv reads the remote token from the named environment
// variable, falling back to DefaultTokenEnvVar when envVar is empty.
func GetTokenFromEnv(envVar string) string {
	if envVar == "" {
		envVar = DefaultTokenEnvVar
	}
	return os.Getenv(envVar)
}
