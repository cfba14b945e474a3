// Package root contains the root command for the application
package root

import (
	"os"
	"os/user"
	"sync"

	"github.com/spf13/cobra"
)

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "txsort",
		Short: "Sort bank transactions into income and expense categories.",
		Long: `txsort reads bank CSV exports, categorizes what it can with rules and walks
you through the rest in a session that survives restarts. Finalized sessions
are exported to CSV files or a Google spreadsheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// User owns the session every command operates on.
	User string

	// ConfigFile overrides the config.yaml search path.
	ConfigFile string

	initOnce sync.Once
)

// Init registers the persistent flags. It may be called more than once.
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVarP(&User, "user", "u", defaultUser(), "Session owner (TXSORT_USER, defaults to the login name)")
		Cmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "Config file (default is config.yaml in $HOME/.txsort, .txsort or the working directory)")
	})
}

func defaultUser() string {
	if u := os.Getenv("TXSORT_USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
