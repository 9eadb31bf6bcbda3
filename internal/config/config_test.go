package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileJSON(t *testing.T) {
	path := writeConfig(t, "hosts.json", `[
		{"label": "web1", "address": "10.0.0.1", "username": "ops", "password": "secret"},
		{"label": "web2", "address": "10.0.0.2", "username": "ops", "password": "secret", "port": 2222}
	]`)

	hosts, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	assert.Equal(t, "web1", hosts[0].Label)
	assert.Equal(t, "10.0.0.1:22", hosts[0].Addr())
	assert.Equal(t, TransportSSH, hosts[0].Transport)
	assert.Equal(t, "10.0.0.2:2222", hosts[1].Addr())
}

func TestLoadFileLegacyAliases(t *testing.T) {
	// The original inventory format used hostname/ip instead of label/address.
	path := writeConfig(t, "hosts.json", `[
		{"hostname": "sun01", "ip": "192.168.1.10", "username": "ops", "password": "secret"}
	]`)

	hosts, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, hosts, 1)

	assert.Equal(t, "sun01", hosts[0].Label)
	assert.Equal(t, "192.168.1.10", hosts[0].Address)
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "hosts.yaml", `
- label: db1
  address: 10.0.1.1
  username: ops
  password: secret
- label: box
  transport: docker
  address: app-container
`)

	hosts, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	assert.Equal(t, TransportSSH, hosts[0].Transport)
	assert.Equal(t, TransportDocker, hosts[1].Transport)
	assert.Equal(t, "app-container", hosts[1].Address)
}

func TestLoadFileLabelFallsBackToAddress(t *testing.T) {
	path := writeConfig(t, "hosts.json", `[
		{"address": "10.0.0.9", "username": "ops", "password": "secret"}
	]`)

	hosts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", hosts[0].Label)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"empty list", "hosts.json", `[]`},
		{"invalid json", "hosts.json", `{not json`},
		{"missing password", "hosts.json", `[{"label": "a", "address": "10.0.0.1", "username": "ops"}]`},
		{"missing username", "hosts.json", `[{"label": "a", "address": "10.0.0.1", "password": "x"}]`},
		{"missing address", "hosts.json", `[{"label": "a", "username": "ops", "password": "x"}]`},
		{"bad transport", "hosts.yaml", "- label: a\n  address: h\n  username: u\n  password: p\n  transport: carrier-pigeon\n"},
		{"bad port", "hosts.json", `[{"label": "a", "address": "h", "username": "u", "password": "p", "port": 99999}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)
			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLocalTransportNeedsNoCredentials(t *testing.T) {
	path := writeConfig(t, "hosts.yaml", "- transport: local\n")

	hosts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "local", hosts[0].Label)
}
