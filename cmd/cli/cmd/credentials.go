package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"credential", "creds"},
	Short:   "Manage credentials used by api and ssh blocks",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials",
	Run: func(cmd *cobra.Command, _ []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewCredentialsService(c, NewOutputWrapper()).List(ctx)
		})
	},
}

var credentialsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Store a new credential",
	Long: `Store a new credential. The secret is prompted for without echo.
Use --type api for tokens sent as a header and --type ssh for private keys.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewCredentialsService(c, NewOutputWrapper()).Create(ctx, args[0], credentialType)
		})
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <credential-id>",
	Short: "Delete a credential",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewCredentialsService(c, NewOutputWrapper()).Delete(ctx, args[0], forceDelete)
		})
	},
}

var credentialType string

func init() {
	credentialsCreateCmd.Flags().StringVar(&credentialType, "type", api.CredentialAPI, "Credential type (api or ssh)")
	credentialsDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Delete without confirmation")

	credentialsCmd.AddCommand(credentialsListCmd, credentialsCreateCmd, credentialsDeleteCmd)
	rootCmd.AddCommand(credentialsCmd)
}

// CredentialsService handles credential operations
type CredentialsService struct {
	client client.Interface
	output OutputInterface
}

// NewCredentialsService creates a new CredentialsService with the provided dependencies
func NewCredentialsService(apiClient client.Interface, outputter OutputInterface) *CredentialsService {
	return &CredentialsService{
		client: apiClient,
		output: outputter,
	}
}

// List prints every credential. Secrets are never returned by the backend.
func (s *CredentialsService) List(ctx context.Context) error {
	credentials, err := s.client.ListCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(credentials) == 0 {
		s.output.Infof("No credentials stored")
		return nil
	}

	rows := make([][]string, 0, len(credentials))
	for _, c := range credentials {
		rows = append(rows, []string{c.ID, c.Name, c.Type, orDash(c.CreatedBy), c.CreatedAt.String()})
	}
	s.output.Blank()
	s.output.Table([]string{"ID", "Name", "Type", "Created by", "Created"}, rows)
	s.output.Blank()
	s.output.Successf("Listed %d credential(s)", len(credentials))
	return nil
}

// Create prompts for the secret and stores the credential
func (s *CredentialsService) Create(ctx context.Context, name, credType string) error {
	req := api.CreateCredentialRequest{Name: name, Type: credType, Secret: "placeholder"}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid credential: type must be %s or %s", api.CredentialAPI, api.CredentialSSH)
	}

	req.Secret = s.output.PromptSecret("Secret")
	if req.Secret == "" {
		return fmt.Errorf("secret is required")
	}

	cred, err := s.client.CreateCredential(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	s.output.Successf("Credential %s created", s.output.Bold(cred.Name))
	s.output.KeyValue("ID", cred.ID)
	return nil
}

// Delete removes a credential after confirmation unless force is set
func (s *CredentialsService) Delete(ctx context.Context, id string, force bool) error {
	if !force && !s.output.Confirm(fmt.Sprintf("Delete credential %s?", id)) {
		s.output.Infof("Aborted")
		return nil
	}
	if err := s.client.DeleteCredential(ctx, id); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	s.output.Successf("Credential %s deleted", s.output.Bold(id))
	return nil
}
