package config

import (
	"os"
	"strings"
)

const (
	escapedTildePlaceholder = "\x00ESCAPED_TILDE\x00"
	escapedHomePlaceholder  = "\x00ESCAPED_HOME\x00"
)

// expandPath expands a leading "~" and any "$HOME" occurrence in path to
// the user's home directory. A backslash-escaped "\~" or "\$HOME" is left
// as a literal, unexpanded "~" or "$HOME".
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	path = strings.ReplaceAll(path, `\~`, escapedTildePlaceholder)
	path = strings.ReplaceAll(path, `\$HOME`, escapedHomePlaceholder)

	home, err := os.UserHomeDir()
	if err == nil {
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = home + path[1:]
		}
		path = strings.ReplaceAll(path, "$HOME", home)
	}

	path = strings.ReplaceAll(path, escapedTildePlaceholder, "~")
	path = strings.ReplaceAll(path, escapedHomePlaceholder, "$HOME")
	return path
}

// expandFileURL applies expandPath to the path component of a file://
// URL, leaving other schemes untouched.
func expandFileURL(raw string) string {
	const scheme = "file://"
	if !strings.HasPrefix(raw, scheme) {
		return raw
	}
	return scheme + expandPath(strings.TrimPrefix(raw, scheme))
}
