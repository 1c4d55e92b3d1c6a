// Package sheets loads the sales table from a Google spreadsheet.
package sheets

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
)

// ServiceAccountKey is the structured secret used to authenticate against
// the Sheets and Drive APIs.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`

	raw []byte
}

// ParseServiceAccountKey decodes and validates a service account key.
func ParseServiceAccountKey(data []byte) (*ServiceAccountKey, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.Credential("service account key is empty")
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, errors.CredentialWrap(err, "service account key is not valid JSON")
	}

	if key.Type != "" && key.Type != "service_account" {
		return nil, errors.Credential(fmt.Sprintf("unsupported credential type %q, want service_account", key.Type))
	}

	var missing []string
	if strings.TrimSpace(key.PrivateKey) == "" {
		missing = append(missing, "private_key")
	}
	if strings.TrimSpace(key.ClientEmail) == "" {
		missing = append(missing, "client_email")
	}
	if len(missing) > 0 {
		return nil, errors.Credential("service account key is missing " + strings.Join(missing, ", "))
	}

	key.raw = data
	return &key, nil
}

// LoadServiceAccountKey reads the key from the inline JSON setting, falling
// back to the key file.
func LoadServiceAccountKey(cfg config.SheetsConfig) (*ServiceAccountKey, error) {
	if cfg.CredentialsJSON != "" {
		return ParseServiceAccountKey([]byte(cfg.CredentialsJSON))
	}

	if cfg.CredentialsFile == "" {
		return nil, errors.Credential("no Google Sheets credentials configured")
	}

	data, err := os.ReadFile(cfg.CredentialsFile) // #nosec G304
	if err != nil {
		return nil, errors.CredentialWrap(err, "unable to read service account key file")
	}

	return ParseServiceAccountKey(data)
}
