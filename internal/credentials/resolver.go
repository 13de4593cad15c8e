// Package credentials resolves the remote board's API token from the OS
// keyring, the environment, or the config file, in that priority order.
// Ported in shape from the teacher's per-backend username/password
// resolver and retargeted at a single bearer token.
package credentials

import "fmt"

// Source indicates where a resolved token came from.
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceNone    Source = "none"
)

// Token is a resolved remote API token and where it came from.
type Token struct {
	Value  string
	Source Source
}

// Resolver resolves the remote token using, in priority order, the OS
// keyring, the environment, then the config file.
type Resolver struct{}

// NewResolver creates a new credential resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve looks for the remote token:
//  1. OS keyring (if available)
//  2. Environment variable named envVar (DefaultTokenEnvVar if empty)
//  3. configToken, as read from the config file
func (r *Resolver) Resolve(envVar, configToken string) (*Token, error) {
	if IsAvailable() {
		if value, err := GetToken(); err == nil && value != "" {
			return &Token{Value: value, Source: SourceKeyring}, nil
		}
	}

	if value := GetTokenFromEnv(envVar); value != "" {
		return &Token{Value: value, Source: SourceEnv}, nil
	}

	if configToken != "" {
		return &Token{Value: configToken, Source: SourceConfig}, nil
	}

	return nil, fmt.Errorf("no remote token found (tried: keyring, environment variable %q, config file)", envVarOrDefault(envVar))
}

func envVarOrDefault(envVar string) string {
	if envVar == "" {
		return DefaultTokenEnvVar
	}
	return envVar
}
