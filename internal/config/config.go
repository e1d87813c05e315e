// Package config loads operator-supplied configuration files that sit
// alongside the internal/env registry: env vars hold tunables, this
// package holds the one piece of config too structured for a flat string
// (the credential table auth.StaticTokenAuthenticator needs). It uses
// viper the way the teacher's CLI config layer does, over a YAML document
// instead of the teacher's flag/env-merged Config struct.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hivemind-dev/hivemind/internal/auth"
)

// credentialEntry is one row of the credentials file.
type credentialEntry struct {
	Token    string `mapstructure:"token"`
	TenantID string `mapstructure:"tenant_id"`
	AgentID  string `mapstructure:"agent_id"`
}

// credentialsFile is the top-level shape of the YAML/JSON credentials document.
type credentialsFile struct {
	Credentials []credentialEntry `mapstructure:"credentials"`
}

// LoadCredentials reads path (YAML or JSON, detected by viper from the
// extension) into a token-to-principal table suitable for
// auth.NewStaticTokenAuthenticator. An empty path returns an empty table,
// not an error — the server can still start with no credentials configured,
// it will simply reject every request as unauthenticated.
func LoadCredentials(path string) (map[string]auth.Principal, error) {
	if path == "" {
		return map[string]auth.Principal{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading credentials file %s: %w", path, err)
	}

	var doc credentialsFile
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("parsing credentials file %s: %w", path, err)
	}

	table := make(map[string]auth.Principal, len(doc.Credentials))
	for _, c := range doc.Credentials {
		if c.Token == "" || c.TenantID == "" || c.AgentID == "" {
			return nil, fmt.Errorf("credentials file %s: entry missing token, tenant_id, or agent_id", path)
		}
		table[c.Token] = auth.Principal{TenantID: c.TenantID, AgentID: c.AgentID}
	}
	return table, nil
}
