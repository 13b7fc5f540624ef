package cmd

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/config"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var projectLimit int

//nolint:gochecknoglobals // required by cobra CLI pattern
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Test connectivity and list accessible projects",
	Long: `Verifies the Black Duck credentials by authenticating, resolving the
current user, and listing the first few projects the token can read.

Use this before a report run to confirm BLACKDUCK_URL and
BLACKDUCK_API_TOKEN are set up correctly.`,
	RunE: runProjects,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	projectsCmd.Flags().IntVar(&projectLimit, "limit", 5,
		"Number of projects to list")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	client, cfg, err := injectClient()
	if err != nil {
		return err
	}

	logger.Infof("Connecting to %s (token %s)", cfg.URL, config.MaskToken(cfg.APIToken))

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	logger.Infof("Authenticated as %q", user)

	projects, total, err := client.ListProjects(ctx, projectLimit)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if total == 0 {
		logger.Warn("No projects found (or no read access)")
		return nil
	}

	logger.Infof("Found %d project(s); showing up to %d:", total, projectLimit)
	for _, project := range projects {
		if project.Description != "" {
			logger.Infof("  - %s (%s)", project.Name, project.Description)
		} else {
			logger.Infof("  - %s", project.Name)
		}
	}
	return nil
}
