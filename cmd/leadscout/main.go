// cmd/leadscout/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/valpere/LeadScout/internal/errors"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

type rootOptions struct {
	configPath string
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "leadscout",
		Short: "LeadScout - local business discovery and lead scoring",
		Long: `LeadScout finds businesses of a sector in a region on the maps listing,
completes them with web search results, writes them to files or databases and
rates them as website development leads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (defaults plus LEADSCOUT_* variables when empty)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output and error details")

	root.AddCommand(
		newDiscoverCmd(opts),
		newScoreCmd(opts),
		newPersonaCmd(opts),
		newValidateCmd(opts),
		newTemplateCmd(),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "LeadScout %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		fmt.Fprint(os.Stderr, apperrors.FormatForCLI(err, verbose))
		os.Exit(apperrors.ExitCode(err))
	}
}
