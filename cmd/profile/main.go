package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kapu/roblox-profile-go/internal/config"
	"github.com/kapu/roblox-profile-go/internal/controller"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/lookup"
	"github.com/kapu/roblox-profile-go/internal/render"
	"github.com/kapu/roblox-profile-go/internal/tui"
	"github.com/kapu/roblox-profile-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagBaseURL string
	flagTimeout time.Duration
)

// errLookupFailed is returned after the error text was already printed.
var errLookupFailed = errors.New("lookup failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errLookupFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "profile",
	Short:         "Look up public Roblox profiles",
	Long:          "Looks up a Roblox user by username or numeric id through a running profile server.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "profile server base URL (default: LOOKUP_BASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "request timeout, 0 waits indefinitely (default: LOOKUP_TIMEOUT_SECONDS)")

	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(tuiCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <username|user id>",
	Short: "Look up one profile and print it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal lookup",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func newClient(cmd *cobra.Command, logger *zap.Logger) (*lookup.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	baseURL := cfg.Lookup.BaseURL
	if cmd.Flags().Changed("base-url") {
		baseURL = strings.TrimRight(flagBaseURL, "/")
	}
	timeout := cfg.Lookup.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout = flagTimeout
	}
	return lookup.NewClient(baseURL, timeout, logger), nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd, zap.NewNop())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := controller.LookupOnce(ctx, client, strings.Join(args, " "), zap.NewNop())
	return printState(cmd.OutOrStdout(), cmd.ErrOrStderr(), state)
}

func printState(stdout, stderr io.Writer, state domain.DisplayState) error {
	if state.Kind() == domain.StateError {
		fmt.Fprintln(stderr, render.Text(state))
		return errLookupFailed
	}
	fmt.Fprintln(stdout, render.Text(state))
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs only go to LOG_FILE.
	logger, err := util.NewFileLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := newClient(cmd, logger)
	if err != nil {
		return err
	}
	return tui.Run(client, logger)
}
