// Package command builds the remote search command line.
package command

import "strings"

// BuildListCommand returns a shell command that prints the names of files
// under pathGlob containing term.
//
//   - grep -F : term is matched literally, never as a regex
//   - grep -i : case-insensitive
//   - grep -l : print only names of files with matches
//   - "--"    : end of options, protects terms starting with '-'
//   - LC_ALL=C: predictable, locale-independent matching
//
// The term is always shell-quoted; pathGlob is intentionally left unquoted
// so the remote shell expands any wildcards. The whole pipeline is wrapped
// in `sh -c` so expansion happens in a POSIX shell regardless of the remote
// user's login shell.
func BuildListCommand(term, pathGlob string) string {
	inner := "LC_ALL=C grep -Fil -- " + Quote(term) + " " + pathGlob
	return "sh -c " + Quote(inner)
}

// Quote minimally quotes an argument for POSIX shells. It leaves common
// safe characters unquoted and uses single-quoting with the standard
// `'\''` escape for embedded single quotes.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			return false
		}
		if r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
