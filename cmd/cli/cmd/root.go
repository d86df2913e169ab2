// Package cmd implements the CLI commands for the opsbook tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/config"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/logger"
	"github.com/opsbook/opsbook/internal/session"
)

var (
	debug         bool
	timeout       string
	timeoutCancel context.CancelFunc
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   constants.ProjectName,
	Short: constants.ProjectName,
	Long: fmt.Sprintf(`%s - %s
Author, review and run operational runbooks from the terminal`,
		constants.ProjectName, *constants.GetVersion()),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		startTime := time.Now().UTC()
		cmd.SetContext(context.WithValue(cmd.Context(), constants.StartTimeCtxKey, startTime))
		printHeader(cmd)

		if verbose {
			output.Infof("CLI build: %s", output.Bold(*constants.GetVersion()))
			output.Infof("Verbose output enabled")
		}

		configPath, err := config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		cfg, cfgErr := config.LoadFrom(configPath)

		logLevel := slog.LevelInfo
		if cfgErr == nil {
			logLevel = cfg.GetLogLevel()
		}
		if debug {
			logLevel = slog.LevelDebug
		}
		log := logger.Initialize(constants.CLI, logLevel)

		if err = applyTimeout(cmd); err != nil {
			return err
		}

		if cfgErr != nil {
			if isPublic(cmd) {
				log.Warn("failed to load configuration", "error", cfgErr)
				return nil
			}
			return fmt.Errorf("failed to load configuration from %s: %w", configPath, cfgErr)
		}

		sess, err := session.Open(configPath, log)
		if err != nil {
			return fmt.Errorf("failed to open session: %w", err)
		}

		ctx := logger.WithLogger(cmd.Context(), log)
		ctx = context.WithValue(ctx, constants.ConfigCtxKey, cfg)
		cmd.SetContext(session.WithSession(ctx, sess))

		if verbose {
			output.Infof("Loaded configuration from %s", output.Bold(configPath))
			output.Infof("API endpoint: %s", output.Bold(cfg.APIEndpoint))
		}

		if isPublic(cmd) {
			return nil
		}
		return requireSession(sess, NewOutputWrapper())
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if verbose {
			startTime := getStartTimeFromContext(cmd)
			if !startTime.IsZero() {
				output.Infof("Time elapsed: %s", output.Bold(time.Since(startTime).String()))
			}
		}
		if timeoutCancel != nil {
			timeoutCancel()
		}
	},
}

// Execute runs the root command and handles cleanup of timeout context.
func Execute() {
	err := rootCmd.Execute()
	if timeoutCancel != nil {
		timeoutCancel()
	}

	if err != nil {
		if !errors.Is(err, session.ErrNotAuthenticated) {
			output.Errorf("%v", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "10m", "Timeout for command execution (e.g., 10m, 30s, 1h)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debugging logs")
}

// requireSession is the login gate. It tells the user how to get a session.
func requireSession(sess *session.Session, out OutputInterface) error {
	if err := sess.Require(); err != nil {
		out.Errorf("You are not logged in")
		out.Infof("Log in with %s or create an account with %s",
			out.Bold(constants.ProjectName+" login"), out.Bold(constants.ProjectName+" signup"))
		return err
	}
	return nil
}

func applyTimeout(cmd *cobra.Command) error {
	if timeout == "0" {
		if verbose {
			output.Infof("Timeout disabled")
		}
		return nil
	}

	// NOTICE: this runs after flags are parsed but before the command runs
	timeoutDuration, err := parseTimeout(timeout)
	if err != nil {
		return fmt.Errorf("error parsing timeout: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutDuration)
	timeoutCancel = cancel // Store for cleanup in Execute()
	cmd.SetContext(ctx)

	if verbose {
		output.Infof("Timeout: %s", timeoutDuration)
	}
	return nil
}

// parseTimeout parses timeout string to time.Duration
// defaults to 10 minutes if empty
// Supports formats: "10m", "30s", "1h", "600s" (number of seconds)
func parseTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		timeoutStr = "10m"
	}

	duration, err := time.ParseDuration(timeoutStr)
	if err == nil {
		return duration, nil
	}

	seconds, err := strconv.Atoi(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid timeout format: %s (use duration like '10m' or '30s', or seconds like '600')",
			timeoutStr)
	}

	return time.Duration(seconds) * time.Second, nil
}

func printHeader(cmd *cobra.Command) {
	output.Header(output.Bold("📒 " + constants.ProjectName + " " + cmd.CalledAs()))
}

// getConfigFromContext retrieves the config from the command context
func getConfigFromContext(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(constants.ConfigCtxKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("config not found in context")
	}
	return cfg, nil
}

// getSessionFromContext retrieves the session from the command context
func getSessionFromContext(cmd *cobra.Command) (*session.Session, error) {
	sess := session.FromContext(cmd.Context())
	if sess == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return sess, nil
}

func getStartTimeFromContext(cmd *cobra.Command) time.Time {
	startTime, ok := cmd.Context().Value(constants.StartTimeCtxKey).(time.Time)
	if !ok {
		return time.Time{}
	}
	return startTime
}

// RootCmd returns the root command for use by tools like doc generators.
func RootCmd() *cobra.Command {
	return rootCmd
}
