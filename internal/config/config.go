// Package config loads and validates the host inventory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport values accepted in a host entry.
const (
	TransportSSH    = "ssh"
	TransportLocal  = "local"
	TransportDocker = "docker"
)

// DefaultPort is the SSH port used when a host entry omits one.
const DefaultPort = 22

// Host describes one remote endpoint and its auth material. It is
// constructed once from the inventory file and read-only afterwards.
type Host struct {
	// Label is the display and aggregation key. It must be unique per
	// run; duplicates silently merge in reporting.
	Label string `json:"label" yaml:"label"`

	// Address is the hostname or IP to connect to. For the docker
	// transport it is the container name or ID.
	Address string `json:"address" yaml:"address"`

	// User is the username for authentication.
	User string `json:"username" yaml:"username"`

	// Password is the password for authentication. Password auth only,
	// by requirement; no key or agent fallback.
	Password string `json:"password" yaml:"password"`

	// Port is the SSH port (default 22).
	Port int `json:"port" yaml:"port"`

	// Transport selects how to reach the host: ssh (default), local,
	// or docker.
	Transport string `json:"transport" yaml:"transport"`

	// Hostname and IP are accepted as aliases for Label and Address,
	// matching the original JSON inventory format.
	Hostname string `json:"hostname" yaml:"hostname"`
	IP       string `json:"ip" yaml:"ip"`
}

// Addr returns the dialable "address:port" for the host.
func (h Host) Addr() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// LoadFile reads a host inventory from a JSON or YAML file, chosen by
// extension (.json vs .yaml/.yml).
func LoadFile(path string) ([]Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(data)
	default:
		return loadJSON(data)
	}
}

func loadJSON(data []byte) ([]Host, error) {
	var hosts []Host
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("invalid host config: %w", err)
	}
	return normalize(hosts)
}

func loadYAML(data []byte) ([]Host, error) {
	var hosts []Host
	if err := yaml.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("invalid host config: %w", err)
	}
	return normalize(hosts)
}

// normalize applies aliases and defaults, then validates every entry.
func normalize(hosts []Host) ([]Host, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts found in config")
	}

	for i := range hosts {
		h := &hosts[i]

		if h.Transport == "" {
			h.Transport = TransportSSH
		}
		if h.Label == "" {
			h.Label = h.Hostname
		}
		if h.Address == "" {
			h.Address = h.IP
		}
		if h.Label == "" {
			h.Label = h.Address
		}
		if h.Label == "" && h.Transport == TransportLocal {
			h.Label = "local"
		}
		if h.Port == 0 {
			h.Port = DefaultPort
		}

		if err := h.validate(); err != nil {
			return nil, fmt.Errorf("host %d: %w", i+1, err)
		}
	}

	return hosts, nil
}

func (h *Host) validate() error {
	switch h.Transport {
	case TransportSSH:
		if h.Address == "" {
			return fmt.Errorf("missing address")
		}
		if h.User == "" {
			return fmt.Errorf("%s: missing username", h.Label)
		}
		if h.Password == "" {
			return fmt.Errorf("%s: missing password", h.Label)
		}
	case TransportDocker:
		if h.Address == "" {
			return fmt.Errorf("missing container name")
		}
	case TransportLocal:
		// Nothing to validate.
	default:
		return fmt.Errorf("%s: invalid transport: %s (must be ssh, local, or docker)", h.Label, h.Transport)
	}

	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("%s: invalid port: %d", h.Label, h.Port)
	}

	return nil
}
