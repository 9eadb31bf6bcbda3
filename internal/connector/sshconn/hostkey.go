package sshconn

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// AcceptAllHostKeys returns a host key callback that trusts any host
// identity. This is the accept-and-continue policy of the original tool:
// it protects against nothing and exists only so that the relaxation is an
// explicit, auditable choice at the call site rather than a hidden default.
func AcceptAllHostKeys() ssh.HostKeyCallback {
	return ssh.InsecureIgnoreHostKey()
}

// KnownHosts returns a host key callback that verifies hosts against an
// OpenSSH known_hosts file, failing closed when the file is missing.
func KnownHosts(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("known_hosts file not found at %s", path)
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	return cb, nil
}
