package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/logger"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	Example: fmt.Sprintf(`  - %s signup
  - %s signup --username alice --role sre`, constants.ProjectName, constants.ProjectName),
	Run: runSignup,
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in and store the API key",
	Example: fmt.Sprintf(`  - %s login --username alice`, constants.ProjectName),
	Run:     runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API key",
	Run:   runLogout,
}

var (
	authUsername string
	authPassword string
	signupRole   string
)

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVar(&authUsername, "username", "", "Username (prompted when omitted)")
		c.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	}
	signupCmd.Flags().StringVar(&signupRole, "role", api.RoleDeveloper, "Role (developer or sre)")

	markPublic(signupCmd, loginCmd)
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd)
}

func runSignup(cmd *cobra.Command, _ []string) {
	withAuthService(cmd, func(ctx context.Context, s *AuthService) error {
		return s.Signup(ctx, authUsername, authPassword, signupRole)
	})
}

func runLogin(cmd *cobra.Command, _ []string) {
	withAuthService(cmd, func(ctx context.Context, s *AuthService) error {
		return s.Login(ctx, authUsername, authPassword)
	})
}

func runLogout(cmd *cobra.Command, _ []string) {
	withAuthService(cmd, func(ctx context.Context, s *AuthService) error {
		return s.Logout(ctx)
	})
}

func withAuthService(cmd *cobra.Command, fn func(ctx context.Context, s *AuthService) error) {
	c, err := newClient(cmd)
	if err != nil {
		output.Errorf("failed to load configuration: %v", err)
		return
	}
	sess, err := getSessionFromContext(cmd)
	if err != nil {
		output.Errorf("%v", err)
		return
	}
	out := NewOutputWrapper()
	if err = fn(cmd.Context(), NewAuthService(c, out, sess)); err != nil {
		reportError(out, err)
	}
}

// CredentialStore keeps the API key between runs.
type CredentialStore interface {
	Login(apiKey string) error
	Logout() error
	Authenticated() bool
}

// AuthService handles signup, login and logout.
type AuthService struct {
	client client.Interface
	output OutputInterface
	store  CredentialStore
}

// NewAuthService creates a new AuthService with the provided dependencies.
func NewAuthService(apiClient client.Interface, outputter OutputInterface, store CredentialStore) *AuthService {
	return &AuthService{
		client: apiClient,
		output: outputter,
		store:  store,
	}
}

func (s *AuthService) credentials(username, password string) (string, string, error) {
	if username == "" {
		username = s.output.Prompt("Username")
	}
	if password == "" {
		password = s.output.PromptSecret("Password")
	}
	if username == "" || password == "" {
		return "", "", fmt.Errorf("username and password are required")
	}
	return username, password, nil
}

// Signup registers a new account and stores its API key.
func (s *AuthService) Signup(ctx context.Context, username, password, role string) error {
	username, password, err := s.credentials(username, password)
	if err != nil {
		return err
	}
	req := api.SignupRequest{Username: username, Password: password, Role: role}
	if err = validate.Struct(req); err != nil {
		return fmt.Errorf("invalid signup: role must be %s or %s", api.RoleDeveloper, api.RoleSRE)
	}

	resp, err := s.client.Signup(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}
	if err = s.store.Login(resp.APIKey); err != nil {
		return err
	}

	s.output.Successf("Account %s created and logged in", s.output.Bold(username))
	return nil
}

// Login exchanges username and password for an API key and stores it.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	username, password, err := s.credentials(username, password)
	if err != nil {
		return err
	}

	resp, err := s.client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if err = s.store.Login(resp.APIKey); err != nil {
		return err
	}

	s.output.Successf("Logged in as %s", s.output.Bold(username))
	return nil
}

// Logout tells the backend best-effort and always clears the stored key.
func (s *AuthService) Logout(ctx context.Context) error {
	if !s.store.Authenticated() {
		s.output.Infof("Already logged out")
		return nil
	}
	if err := s.client.Logout(ctx); err != nil {
		logger.FromContext(ctx).Debug("backend logout failed", "error", err)
	}
	if err := s.store.Logout(); err != nil {
		return err
	}

	s.output.Successf("Logged out")
	s.output.Infof("Log in again with %s", s.output.Bold(constants.ProjectName+" login"))
	return nil
}
