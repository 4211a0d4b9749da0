package cli

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
)

// ActionFunc is the body of a subcommand that talks to the server
type ActionFunc func(cmd *cobra.Command, client *apiclient.Client, f *OutputFormatter, args []string) error

// Action adapts fn into a cobra RunE, resolving the client and the
// formatter first
func (e *Env) Action(fn ActionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e.Bind(cmd)
		f := e.Formatter()
		client, err := e.Client()
		if err != nil {
			return f.Fail(err)
		}
		return fn(cmd, client, f, args)
	}
}

// ParseID parses a positive integer argument named what
func ParseID(f *OutputFormatter, what, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, f.Usage(fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}

// ParseIndex parses a zero-based position argument
func ParseIndex(f *OutputFormatter, arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, f.Usage(fmt.Sprintf("invalid index %q (must be 0 or greater)", arg))
	}
	return index, nil
}

// AddOutputFlags registers --json and --quiet on cmd, bound to the env.
// Every leaf command carries them so scripts can rely on them.
func (e *Env) AddOutputFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&e.JSON, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVar(&e.Quiet, "quiet", false, "Minimal output (ID only)")
}

// ValidateColorHex validates that a color string is in valid hex format #RRGGBB
func ValidateColorHex(color string) error {
	matched, err := regexp.MatchString(`^#[0-9A-Fa-f]{6}$`, color)
	if err != nil {
		return fmt.Errorf("error validating color: %w", err)
	}
	if !matched {
		return fmt.Errorf("color must be in hex format #RRGGBB (e.g., #FF0000), got: %s", color)
	}
	return nil
}
