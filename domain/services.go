package domain

import "context"

// ReportService abstracts the vendor's report-generation lifecycle: create a
// report job for a project version, then download the finished zip bundle.
type ReportService interface {
	// CreateReport starts report generation for the named project version and
	// returns the URL of the report resource to poll.
	CreateReport(ctx context.Context, project, version string, types []ReportType) (string, error)

	// DownloadArchive waits for the report to finish and streams the zip
	// bundle to destPath.
	DownloadArchive(ctx context.Context, reportURL, destPath string) error
}

// LookupService abstracts the per-row entity-detail endpoints used during
// enrichment. Implementations return ErrNotFound for entities that genuinely
// do not exist; any other error is treated as transient.
type LookupService interface {
	// MatchedFiles returns the file paths matched to one component origin
	// within the project version. An empty slice is a valid outcome.
	MatchedFiles(ctx context.Context, ref ComponentRef, originID string) ([]string, error)

	// VulnerabilityDetails returns remediation text and reference links for a
	// vulnerability id.
	VulnerabilityDetails(ctx context.Context, ref VulnerabilityRef) (Remediation, error)
}

// Remediation carries the how-to-fix portion of a vulnerability record.
type Remediation struct {
	Solution   string
	References []ReferenceLink
}

// ProjectLister lists projects the credentials can see; used by the
// connectivity check.
type ProjectLister interface {
	ListProjects(ctx context.Context, limit int) ([]Project, int, error)
}
