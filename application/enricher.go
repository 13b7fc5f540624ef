package application

import (
	"context"
	"errors"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/retry"
)

// originSeparator splits multi-origin values in the origin-id column.
const originSeparator = ";"

// RowEnricher derives the supplementary column values for one report row by
// querying the entity-detail endpoints. Every lookup goes through the retry
// gate and is paced by a shared rate limiter so a large report does not storm
// the server. Rows are independent; the enricher holds no per-row state.
type RowEnricher struct {
	lookups    domain.LookupService
	gate       *retry.Gate
	limiter    *rate.Limiter
	allOrigins bool
}

// EnricherOption configures a RowEnricher.
type EnricherOption func(*RowEnricher)

// WithAllOrigins makes the enricher union matched files across every origin
// listed in a row instead of querying only the first one.
func WithAllOrigins(all bool) EnricherOption {
	return func(e *RowEnricher) { e.allOrigins = all }
}

// WithRateLimiter replaces the default lookup pacing.
func WithRateLimiter(l *rate.Limiter) EnricherOption {
	return func(e *RowEnricher) { e.limiter = l }
}

// NewRowEnricher builds an enricher. By default lookups are paced to 5
// requests per second and only a row's first origin is queried.
func NewRowEnricher(lookups domain.LookupService, gate *retry.Gate, opts ...EnricherOption) *RowEnricher {
	e := &RowEnricher{
		lookups: lookups,
		gate:    gate,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich computes the three supplementary values for a row. Missing
// identifiers, empty lookup results, not-found responses, and exhausted
// retries all degrade to the placeholder/empty values for the affected field
// only; Enrich never fails a row.
func (e *RowEnricher) Enrich(ctx context.Context, row map[string]string) domain.Enrichment {
	remediation := e.lookupRemediation(ctx, vulnerabilityRefFromRow(row))
	return domain.Enrichment{
		FilePaths:  e.lookupFilePaths(ctx, componentRefFromRow(row)),
		HowToFix:   remediation.Solution,
		References: remediation.References,
	}
}

func componentRefFromRow(row map[string]string) domain.ComponentRef {
	ref := domain.ComponentRef{
		ComponentID:        strings.TrimSpace(row[domain.ColumnComponentID]),
		ComponentVersionID: strings.TrimSpace(row[domain.ColumnComponentVersionID]),
	}
	for _, origin := range strings.Split(row[domain.ColumnOriginID], originSeparator) {
		if origin = strings.TrimSpace(origin); origin != "" {
			ref.OriginIDs = append(ref.OriginIDs, origin)
		}
	}
	return ref
}

func vulnerabilityRefFromRow(row map[string]string) domain.VulnerabilityRef {
	return domain.VulnerabilityRef{ID: strings.TrimSpace(row[domain.ColumnVulnerabilityID])}
}

// lookupFilePaths queries matched files for the row's origin(s). A nil result
// renders as the placeholder value downstream.
func (e *RowEnricher) lookupFilePaths(ctx context.Context, ref domain.ComponentRef) []string {
	if !ref.Complete() {
		return nil
	}

	origins := ref.OriginIDs
	if !e.allOrigins {
		origins = origins[:1]
	}

	var paths []string
	for _, origin := range origins {
		if err := e.limiter.Wait(ctx); err != nil {
			return paths
		}
		found, err := retry.Value(ctx, e.gate, "matched-files lookup",
			func() ([]string, error) {
				return e.lookups.MatchedFiles(ctx, ref, origin)
			})
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.Debugf("No matched files recorded for origin %s", origin)
		case err != nil:
			logger.Warnf("Matched-files lookup for origin %s unavailable: %v", origin, err)
		default:
			paths = append(paths, found...)
		}
	}
	return paths
}

// lookupRemediation queries the vulnerability detail endpoint. An empty ref
// or a failed lookup yields empty remediation and no references.
func (e *RowEnricher) lookupRemediation(ctx context.Context, ref domain.VulnerabilityRef) domain.Remediation {
	if ref.ID == "" {
		return domain.Remediation{}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return domain.Remediation{}
	}

	remediation, err := retry.Value(ctx, e.gate, "vulnerability lookup",
		func() (domain.Remediation, error) {
			return e.lookups.VulnerabilityDetails(ctx, ref)
		})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debugf("Vulnerability %s not found", ref.ID)
		return domain.Remediation{}
	case err != nil:
		logger.Warnf("Vulnerability lookup for %s unavailable: %v", ref.ID, err)
		return domain.Remediation{}
	}
	return remediation
}
