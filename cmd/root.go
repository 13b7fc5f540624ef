package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/application"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	// Global flags
	configPath string
	verbose    bool
	insecure   bool

	// Run flags
	zipName      string
	reportList   string
	tries        int
	sleepSeconds int
	allOrigins   bool
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "report-enhancer <project> <version>",
	Short: "Generate and enhance Black Duck CSV reports for a project version",
	Long: `Generates CSV reports for a Black Duck project version, downloads them as a
zip bundle, and enriches the security report with data the stock export
leaves out:
- matched file paths per component origin
- remediation guidance per vulnerability
- reference and related links per vulnerability

The enriched copy is added to the bundle as enhanced_<original name>.csv;
all original members are preserved byte-for-byte.

Credentials come from BLACKDUCK_URL and BLACKDUCK_API_TOKEN (environment,
.env file, or a YAML config file).`,
	Args: cobra.ExactArgs(2),
	RunE: runEnhance,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
		logger.SetFormatter(&logger.TextFormatter{
			ForceColors:   true,
			FullTimestamp: true,
		})
		if verbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: auto-detect)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false,
		"Skip TLS certificate verification (BLACKDUCK_TRUST_CERT equivalent)")

	rootCmd.Flags().StringVarP(&zipName, "zip-name", "z", "",
		"Destination zip file (default: <project>-<version>-reports.zip)")
	rootCmd.Flags().StringVarP(&reportList, "reports", "r", "vulnerabilities",
		"Comma-separated report types: "+knownTypeNames())
	rootCmd.Flags().IntVarP(&tries, "tries", "t", 5,
		"Attempts for each remote operation before giving up")
	rootCmd.Flags().IntVarP(&sleepSeconds, "sleep", "s", 30,
		"Seconds to wait between attempts")
	rootCmd.Flags().BoolVar(&allOrigins, "all-origins", false,
		"Union matched files across all origins of a row instead of the first only")
}

func knownTypeNames() string {
	names := make([]string, 0, len(domain.KnownReportTypes))
	for _, t := range domain.KnownReportTypes {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func runEnhance(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	project, version := args[0], args[1]

	types, err := domain.ParseReportTypes(reportList)
	if err != nil {
		return err
	}

	zipPath := zipName
	if zipPath == "" {
		zipPath = sanitizeFileName(project) + "-" + sanitizeFileName(version) + "-reports.zip"
	}

	svc, err := injectEnhanceService()
	if err != nil {
		return err
	}

	summary, err := svc.Run(ctx, application.RunOptions{
		Project:      project,
		Version:      version,
		ZipPath:      zipPath,
		ReportTypes:  types,
		ShowProgress: true,
	})
	if err != nil {
		return err
	}

	return summaryError(summary)
}

// summaryError maps the run outcome to the process exit status: any failed
// report type, or a run that produced nothing, exits non-zero.
func summaryError(summary domain.RunSummary) error {
	if summary.OutputMembers() == 0 {
		return fmt.Errorf("run produced no output members in %s", summary.Archive)
	}

	var failed []string
	for _, outcome := range summary.Outcomes {
		if outcome.Failed() {
			failed = append(failed, outcome.Type.Name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("report type(s) failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// sanitizeFileName keeps derived zip names filesystem-safe.
func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

func gateSleep() time.Duration {
	return time.Duration(sleepSeconds) * time.Second
}
