package application

import (
	"bufio"
	"context"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/infrastructure/archive"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/retry"
)

// EnhanceService orchestrates the full flow: request report generation,
// download the zip bundle, then enrich the security report and write it back
// into the archive as an enhanced_ member.
type EnhanceService struct {
	reports  domain.ReportService
	enricher *RowEnricher
	gate     *retry.Gate
}

// NewEnhanceService creates a new service. The gate wraps the archive
// download; the enricher carries its own gate for per-row lookups.
func NewEnhanceService(reports domain.ReportService, enricher *RowEnricher, gate *retry.Gate) *EnhanceService {
	return &EnhanceService{
		reports:  reports,
		enricher: enricher,
		gate:     gate,
	}
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	Project      string
	Version      string
	ZipPath      string // Destination for the downloaded bundle
	ReportTypes  []domain.ReportType
	ShowProgress bool
}

// Run executes one full report-generation-and-enhancement cycle. Failures of
// a single report type never abort the remaining ones; the returned summary
// carries one outcome per requested type and drives the caller's exit code.
func (s *EnhanceService) Run(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	summary := domain.RunSummary{Archive: opts.ZipPath}

	logger.Infof("Requesting %d report type(s) for %s %s",
		len(opts.ReportTypes), opts.Project, opts.Version)

	reportURL, err := s.reports.CreateReport(ctx, opts.Project, opts.Version, opts.ReportTypes)
	if err != nil {
		return summary, fmt.Errorf("failed to create report: %w", err)
	}

	downloadErr := s.gate.Do(ctx, "report download", func() error {
		return s.reports.DownloadArchive(ctx, reportURL, opts.ZipPath)
	})
	if downloadErr != nil {
		return summary, fmt.Errorf("failed to download report archive: %w", downloadErr)
	}
	logger.Infof("Downloaded report bundle to %s", opts.ZipPath)

	for _, reportType := range opts.ReportTypes {
		summary.Outcomes = append(summary.Outcomes, s.processReportType(ctx, reportType, opts))
	}

	logSummary(summary)
	return summary, nil
}

// processReportType locates the report's CSV member and, for enrichable
// types, writes the enhanced copy. Any error is confined to this type.
func (s *EnhanceService) processReportType(
	ctx context.Context,
	reportType domain.ReportType,
	opts RunOptions,
) domain.ReportOutcome {
	outcome := domain.ReportOutcome{Type: reportType}

	member, err := archive.FindMemberByPrefix(opts.ZipPath, reportType.FilePrefix)
	if err != nil {
		outcome.Reason = fmt.Sprintf("report member missing: %v", err)
		logger.Errorf("Report type %s: %s", reportType, outcome.Reason)
		return outcome
	}
	outcome.Member = member

	if !reportType.Enrichable {
		logger.Debugf("Report type %s does not support enrichment, keeping %s as-is",
			reportType, member)
		return outcome
	}

	if enhanceErr := s.enhanceMember(ctx, opts, member); enhanceErr != nil {
		outcome.Reason = enhanceErr.Error()
		logger.Errorf("Report type %s: enhancement failed: %v", reportType, enhanceErr)
		return outcome
	}

	outcome.Enhanced = true
	logger.Infof("Added %s to %s", archive.EnhancedName(member), opts.ZipPath)
	return outcome
}

// enhanceMember streams the member through the CSV transform into a temp file
// and appends the result to the archive under the enhanced_ name. The member
// is decompressed twice (a counting pass for the progress total, then the
// transform pass) so the report never has to fit in memory.
func (s *EnhanceService) enhanceMember(ctx context.Context, opts RunOptions, member string) error {
	total, err := countMemberRows(opts.ZipPath, member)
	if err != nil {
		return err
	}
	logger.Infof("Enriching %d rows of %s", total, member)

	var progress Progress
	if opts.ShowProgress {
		progress = NewProgressBar(total, "enriching "+member)
	}

	tmp, err := os.CreateTemp("", "enhanced-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	source, err := archive.OpenMember(opts.ZipPath, member)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to extract %q: %w", member, err)
	}

	buffered := bufio.NewWriter(tmp)
	rows, transformErr := TransformCSV(ctx, source, buffered,
		s.enricher.Enrich, TransformOptions{Progress: progress})
	source.Close()
	if transformErr != nil {
		tmp.Close()
		return fmt.Errorf("failed to transform %q: %w", member, transformErr)
	}
	if flushErr := buffered.Flush(); flushErr != nil {
		tmp.Close()
		return fmt.Errorf("failed to write enhanced csv: %w", flushErr)
	}
	if _, seekErr := tmp.Seek(0, 0); seekErr != nil {
		tmp.Close()
		return fmt.Errorf("failed to rewind enhanced csv: %w", seekErr)
	}

	addErr := archive.AddMember(opts.ZipPath, archive.EnhancedName(member), tmp)
	tmp.Close()
	if addErr != nil {
		return addErr
	}

	logger.Debugf("Enhanced %d rows of %s", rows, member)
	return nil
}

// countMemberRows does the pre-pass that gives the progress bar a total.
func countMemberRows(zipPath, member string) (int, error) {
	source, err := archive.OpenMember(zipPath, member)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %q: %w", member, err)
	}
	defer source.Close()

	total, err := CountRows(source)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %q: %w", member, err)
	}
	return total, nil
}

// logSummary prints the user-visible end-of-run report.
func logSummary(summary domain.RunSummary) {
	for _, outcome := range summary.Outcomes {
		switch {
		case outcome.Failed():
			logger.Errorf("  %-18s FAILED: %s", outcome.Type, outcome.Reason)
		case outcome.Enhanced:
			logger.Infof("  %-18s ok (%s + %s)", outcome.Type,
				outcome.Member, archive.EnhancedName(outcome.Member))
		default:
			logger.Infof("  %-18s ok (%s)", outcome.Type, outcome.Member)
		}
	}
	logger.Infof("Run complete: %d output member(s) in %s",
		summary.OutputMembers(), summary.Archive)
}
