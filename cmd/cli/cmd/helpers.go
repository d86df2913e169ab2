package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/constants"
	apperrors "github.com/opsbook/opsbook/internal/errors"
	"github.com/opsbook/opsbook/internal/logger"
)

var validate = validator.New()

// publicAnnotation marks commands that run without a session.
const publicAnnotation = "opsbook/public"

func markPublic(cmds ...*cobra.Command) {
	for _, c := range cmds {
		if c.Annotations == nil {
			c.Annotations = map[string]string{}
		}
		c.Annotations[publicAnnotation] = "true"
	}
}

// isPublic reports whether cmd or one of its parents is public. Cobra's
// generated help and completion commands are always public.
func isPublic(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
		if c.Annotations[publicAnnotation] == "true" {
			return true
		}
	}
	return false
}

// newClient builds an API client reading the key from the session on every call.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return nil, err
	}
	sess, err := getSessionFromContext(cmd)
	if err != nil {
		return nil, err
	}
	return client.New(cfg, sess, logger.FromContext(cmd.Context())), nil
}

// executeWithClient runs fn with an API client and prints its error, if any,
// as a single line.
func executeWithClient(cmd *cobra.Command, fn func(ctx context.Context, c client.Interface) error) {
	c, err := newClient(cmd)
	if err != nil {
		output.Errorf("failed to load configuration: %v", err)
		return
	}
	if err = fn(cmd.Context(), c); err != nil {
		reportError(NewOutputWrapper(), err)
	}
}

// reportError prints err and, for rejected credentials, a hint to log in again.
func reportError(out OutputInterface, err error) {
	out.Errorf("%v", err)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		out.Infof("Your session may have expired, run %s", out.Bold(constants.ProjectName+" login"))
	}
}

func formatExitCode(code *int) string {
	if code == nil {
		return "-"
	}
	return strconv.Itoa(*code)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: positions start at 1", s)
	}
	return n - 1, nil
}
