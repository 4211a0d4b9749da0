// Package user resolves the local identity used when minting development
// tokens.
package user

import (
	"os"
	"os/user"
	"strings"
)

// Name returns the user id to mint tokens for when none is given.
// It tries, in order:
// 1. KANBAN_USER
// 2. user.Current(), the OS account name
// 3. USER, for restricted environments
// 4. "unknown" so the result is never empty
func Name() string {
	if name := strings.TrimSpace(os.Getenv("KANBAN_USER")); name != "" {
		return name
	}
	if current, err := user.Current(); err == nil && current.Username != "" {
		return current.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
