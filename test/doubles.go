// Package testdoubles provides test doubles (spies, stubs, dummies) for domain
// interfaces. These are hand-crafted implementations — no mock frameworks.
package testdoubles

import (
	"context"
	"os"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

// ---------------------------------------------------------------------------
// SpyLookupService
// ---------------------------------------------------------------------------

// SpyLookupService implements domain.LookupService as a configurable spy.
// Configure the response fields for the lookups your test exercises, then
// inspect the call-tracking fields to verify behavior.
type SpyLookupService struct {
	// --- MatchedFiles ---
	FilesByOrigin   map[string][]string // origin id -> paths
	MatchedFilesErr error
	// FailuresBeforeSuccess makes the first N MatchedFiles calls return
	// MatchedFilesErr before succeeding; 0 with a non-nil error fails always.
	FailuresBeforeSuccess int
	// spy: origins that were queried, in order
	QueriedOrigins []string

	// --- VulnerabilityDetails ---
	RemediationByID  map[string]domain.Remediation // vulnerability id -> result
	VulnerabilityErr error
	// spy: vulnerability ids that were queried, in order
	QueriedVulnerabilities []string
}

var _ domain.LookupService = (*SpyLookupService)(nil)

func (s *SpyLookupService) MatchedFiles(
	_ context.Context, _ domain.ComponentRef, originID string,
) ([]string, error) {
	s.QueriedOrigins = append(s.QueriedOrigins, originID)

	if s.MatchedFilesErr != nil {
		if s.FailuresBeforeSuccess == 0 || len(s.QueriedOrigins) <= s.FailuresBeforeSuccess {
			return nil, s.MatchedFilesErr
		}
	}
	return s.FilesByOrigin[originID], nil
}

func (s *SpyLookupService) VulnerabilityDetails(
	_ context.Context, ref domain.VulnerabilityRef,
) (domain.Remediation, error) {
	s.QueriedVulnerabilities = append(s.QueriedVulnerabilities, ref.ID)

	if s.VulnerabilityErr != nil {
		return domain.Remediation{}, s.VulnerabilityErr
	}
	return s.RemediationByID[ref.ID], nil
}

// ---------------------------------------------------------------------------
// SpyReportService
// ---------------------------------------------------------------------------

// SpyReportService implements domain.ReportService as a configurable spy.
// DownloadArchive materializes ArchiveBytes at the destination path,
// simulating the bundle the server would deliver.
type SpyReportService struct {
	// --- CreateReport ---
	ReportURL string
	CreateErr error
	// spy: inputs received
	CreatedFor   []string // "project/version"
	CreatedTypes []domain.ReportType

	// --- DownloadArchive ---
	ArchiveBytes []byte
	DownloadErr  error
	// NotReadyAttempts makes the first N download calls fail with
	// DownloadErr before delivering the archive, simulating a report
	// still being generated.
	NotReadyAttempts int
	// spy: number of download attempts
	DownloadCalls int
}

var _ domain.ReportService = (*SpyReportService)(nil)

func (s *SpyReportService) CreateReport(
	_ context.Context, project, version string, types []domain.ReportType,
) (string, error) {
	s.CreatedFor = append(s.CreatedFor, project+"/"+version)
	s.CreatedTypes = append(s.CreatedTypes, types...)

	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	return s.ReportURL, nil
}

func (s *SpyReportService) DownloadArchive(
	_ context.Context, _ string, destPath string,
) error {
	s.DownloadCalls++

	if s.DownloadErr != nil && s.DownloadCalls <= s.NotReadyAttempts {
		return s.DownloadErr
	}
	if s.DownloadErr != nil && s.NotReadyAttempts == 0 {
		return s.DownloadErr
	}
	return os.WriteFile(destPath, s.ArchiveBytes, 0o600)
}
