package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/logger"
	"github.com/opsbook/opsbook/internal/runbooks"
)

var runbooksExportCmd = &cobra.Command{
	Use:   "export <runbook-id>",
	Short: "Write a runbook to a YAML file",
	Example: fmt.Sprintf(`  - %s runbooks export 1f0c... --file restart-api.yaml
  - %s runbooks export 1f0c... > restart-api.yaml`, constants.ProjectName, constants.ProjectName),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbookFilesService(c, NewOutputWrapper()).Export(ctx, args[0], exportFile)
		})
	},
}

var runbooksApplyCmd = &cobra.Command{
	Use:   "apply <file-or-directory>",
	Short: "Create or update runbooks from YAML files",
	Long: `Create or update runbooks from YAML files.
A file without an id creates a new runbook; a file with an id updates it.
Given a directory, every .yaml and .yml file in it is applied.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbookFilesService(c, NewOutputWrapper()).Apply(ctx, args[0])
		})
	},
}

var exportFile string

func init() {
	runbooksExportCmd.Flags().StringVarP(&exportFile, "file", "o", "", "Output file (default: stdout)")
	runbooksCmd.AddCommand(runbooksExportCmd, runbooksApplyCmd)
}

// RunbookFilesService moves runbooks between the backend and YAML files
type RunbookFilesService struct {
	client client.Interface
	output OutputInterface
}

// NewRunbookFilesService creates a new RunbookFilesService with the provided dependencies
func NewRunbookFilesService(apiClient client.Interface, outputter OutputInterface) *RunbookFilesService {
	return &RunbookFilesService{
		client: apiClient,
		output: outputter,
	}
}

// Export writes the runbook to path, or to the output writer when path is empty
func (s *RunbookFilesService) Export(ctx context.Context, id, path string) error {
	rb, err := s.client.GetRunbook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get runbook: %w", err)
	}
	doc := runbooks.FromRunbook(rb)

	if path == "" {
		data, marshalErr := runbooks.Marshal(doc)
		if marshalErr != nil {
			return marshalErr
		}
		_, err = s.output.Writer().Write(data)
		return err
	}

	if err = runbooks.Write(path, doc); err != nil {
		return err
	}
	s.output.Successf("Runbook %s exported to %s", s.output.Bold(rb.Title), s.output.Bold(path))
	return nil
}

// Apply pushes one file, or every runbook file of a directory. Files are
// applied independently; the error reports how many failed.
func (s *RunbookFilesService) Apply(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		if files, err = runbooks.ListFiles(path); err != nil {
			return err
		}
		if len(files) == 0 {
			s.output.Warningf("No runbook files found in %s", path)
			return nil
		}
	}

	applier := runbooks.NewApplier(s.client, logger.FromContext(ctx))
	failed := 0
	for _, file := range files {
		if applyErr := s.applyFile(ctx, applier, file); applyErr != nil {
			s.output.Errorf("%s: %v", file, applyErr)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to apply", failed, len(files))
	}
	if len(files) > 1 {
		s.output.Successf("Applied %d file(s)", len(files))
	}
	return nil
}

func (s *RunbookFilesService) applyFile(ctx context.Context, applier *runbooks.Applier, file string) error {
	doc, err := runbooks.Load(file)
	if err != nil {
		return err
	}
	res, err := applier.Apply(ctx, doc)
	if err != nil {
		return err
	}

	if res.Created {
		s.output.Successf("Created runbook %s (%s) from %s", s.output.Bold(res.Runbook.Title), res.Runbook.ID, file)
		s.output.Infof("Add %s to the file to update this runbook on the next apply",
			s.output.Bold("id: "+res.Runbook.ID))
		return nil
	}
	s.output.Successf("Updated runbook %s to version %d from %s",
		s.output.Bold(res.Runbook.Title), res.Runbook.Version, file)
	return nil
}
