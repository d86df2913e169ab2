package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/constants"
)

var environmentsCmd = &cobra.Command{
	Use:     "environments",
	Aliases: []string{"environment", "envs"},
	Short:   "Manage container environments blocks run in",
}

var environmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments",
	Run: func(cmd *cobra.Command, _ []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewEnvironmentsService(c, NewOutputWrapper()).List(ctx)
		})
	},
}

var environmentsShowCmd = &cobra.Command{
	Use:   "show <environment-id>",
	Short: "Show an environment and its Dockerfile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewEnvironmentsService(c, NewOutputWrapper()).Show(ctx, args[0])
		})
	},
}

var environmentsCreateCmd = &cobra.Command{
	Use:     "create <name>",
	Short:   "Create an environment from a Dockerfile",
	Example: fmt.Sprintf(`  - %s environments create python --dockerfile ./Dockerfile --description "Python 3.12"`, constants.ProjectName),
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewEnvironmentsService(c, NewOutputWrapper()).Create(ctx, args[0], envDescription, envDockerfile)
		})
	},
}

var environmentsUpdateCmd = &cobra.Command{
	Use:   "update <environment-id>",
	Short: "Update an environment",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var name, description *string
		if cmd.Flags().Changed("name") {
			name = &envName
		}
		if cmd.Flags().Changed("description") {
			description = &envDescription
		}
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewEnvironmentsService(c, NewOutputWrapper()).Update(ctx, args[0], name, description, envDockerfile)
		})
	},
}

var environmentsDeleteCmd = &cobra.Command{
	Use:   "delete <environment-id>",
	Short: "Delete an environment",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewEnvironmentsService(c, NewOutputWrapper()).Delete(ctx, args[0], forceDelete)
		})
	},
}

var (
	envName        string
	envDescription string
	envDockerfile  string
)

func init() {
	environmentsCreateCmd.Flags().StringVar(&envDescription, "description", "", "Environment description")
	environmentsCreateCmd.Flags().StringVar(&envDockerfile, "dockerfile", "", "Path to the Dockerfile")
	_ = environmentsCreateCmd.MarkFlagRequired("dockerfile")

	environmentsUpdateCmd.Flags().StringVar(&envName, "name", "", "New name")
	environmentsUpdateCmd.Flags().StringVar(&envDescription, "description", "", "New description")
	environmentsUpdateCmd.Flags().StringVar(&envDockerfile, "dockerfile", "", "Path to a new Dockerfile")

	environmentsDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Delete without confirmation")

	environmentsCmd.AddCommand(
		environmentsListCmd,
		environmentsShowCmd,
		environmentsCreateCmd,
		environmentsUpdateCmd,
		environmentsDeleteCmd,
	)
	rootCmd.AddCommand(environmentsCmd)
}

// EnvironmentsService handles environment operations
type EnvironmentsService struct {
	client   client.Interface
	output   OutputInterface
	readFile func(name string) ([]byte, error)
}

// NewEnvironmentsService creates a new EnvironmentsService with the provided dependencies
func NewEnvironmentsService(apiClient client.Interface, outputter OutputInterface) *EnvironmentsService {
	return &EnvironmentsService{
		client:   apiClient,
		output:   outputter,
		readFile: os.ReadFile,
	}
}

// List prints every environment
func (s *EnvironmentsService) List(ctx context.Context) error {
	environments, err := s.client.ListEnvironments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list environments: %w", err)
	}
	if len(environments) == 0 {
		s.output.Infof("No environments yet")
		return nil
	}

	rows := make([][]string, 0, len(environments))
	for _, e := range environments {
		rows = append(rows, []string{e.ID, e.Name, orDash(e.Description), orDash(e.ImageTag), e.CreatedAt.String()})
	}
	s.output.Blank()
	s.output.Table([]string{"ID", "Name", "Description", "Image", "Created"}, rows)
	s.output.Blank()
	s.output.Successf("Listed %d environment(s)", len(environments))
	return nil
}

// Show prints an environment with its Dockerfile
func (s *EnvironmentsService) Show(ctx context.Context, id string) error {
	env, err := s.client.GetEnvironment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get environment: %w", err)
	}
	s.output.Blank()
	s.output.KeyValue("ID", env.ID)
	s.output.KeyValue("Name", s.output.Bold(env.Name))
	s.output.KeyValue("Description", orDash(env.Description))
	s.output.KeyValue("Image", orDash(env.ImageTag))
	s.output.KeyValue("Created by", orDash(env.CreatedBy))
	s.output.KeyValue("Created", env.CreatedAt.String())
	if env.Dockerfile != "" {
		s.output.Blank()
		s.output.Println(s.output.Gray("Dockerfile"))
		s.output.Println(env.Dockerfile)
	}
	return nil
}

func (s *EnvironmentsService) dockerfile(path string) (string, error) {
	data, err := s.readFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read Dockerfile: %w", err)
	}
	return string(data), nil
}

// Create builds an environment from the Dockerfile at path
func (s *EnvironmentsService) Create(ctx context.Context, name, description, path string) error {
	dockerfile, err := s.dockerfile(path)
	if err != nil {
		return err
	}
	req := api.EnvironmentWriteRequest{Name: name, Description: description, Dockerfile: dockerfile}
	if err = validate.Struct(req); err != nil {
		return fmt.Errorf("invalid environment: name and a non-empty Dockerfile are required")
	}

	env, err := s.client.CreateEnvironment(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}
	s.output.Successf("Environment %s created", s.output.Bold(env.Name))
	s.output.KeyValue("ID", env.ID)
	s.output.KeyValue("Image", orDash(env.ImageTag))
	return nil
}

// Update changes the given fields, keeping the current value of the others.
// An empty path keeps the current Dockerfile.
func (s *EnvironmentsService) Update(ctx context.Context, id string, name, description *string, path string) error {
	current, err := s.client.GetEnvironment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get environment: %w", err)
	}

	req := api.EnvironmentWriteRequest{
		Name:        current.Name,
		Description: current.Description,
		Dockerfile:  current.Dockerfile,
	}
	if name != nil {
		req.Name = *name
	}
	if description != nil {
		req.Description = *description
	}
	if path != "" {
		if req.Dockerfile, err = s.dockerfile(path); err != nil {
			return err
		}
	}
	if err = validate.Struct(req); err != nil {
		return fmt.Errorf("invalid environment: name and a non-empty Dockerfile are required")
	}

	env, err := s.client.UpdateEnvironment(ctx, id, req)
	if err != nil {
		return fmt.Errorf("failed to update environment: %w", err)
	}
	s.output.Successf("Environment %s updated", s.output.Bold(env.Name))
	return nil
}

// Delete removes an environment after confirmation unless force is set
func (s *EnvironmentsService) Delete(ctx context.Context, id string, force bool) error {
	if !force && !s.output.Confirm(fmt.Sprintf("Delete environment %s?", id)) {
		s.output.Infof("Aborted")
		return nil
	}
	if err := s.client.DeleteEnvironment(ctx, id); err != nil {
		return fmt.Errorf("failed to delete environment: %w", err)
	}
	s.output.Successf("Environment %s deleted", s.output.Bold(id))
	return nil
}
