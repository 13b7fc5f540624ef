package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/application"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/retry"
	testdoubles "github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/test"
)

var errTransient = errors.New("gateway timeout")

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func testGate(tries int) *retry.Gate {
	return retry.NewGate(tries, time.Second).WithSleepFunc(noSleep)
}

func unlimited() application.EnricherOption {
	return application.WithRateLimiter(rate.NewLimiter(rate.Inf, 1))
}

func securityRow() map[string]string {
	return map[string]string{
		domain.ColumnComponentID:        "comp-1",
		domain.ColumnComponentVersionID: "compver-1",
		domain.ColumnOriginID:           "origin-1",
		domain.ColumnVulnerabilityID:    "CVE-2024-0001",
	}
}

func TestRowEnricher_Enrich(t *testing.T) {
	t.Parallel()

	t.Run("should populate all three fields for a fully referenced row", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{
			FilesByOrigin: map[string][]string{
				"origin-1": {"lib/a.jar", "lib/b.jar"},
			},
			RemediationByID: map[string]domain.Remediation{
				"CVE-2024-0001": {
					Solution: "Upgrade to 2.0.0",
					References: []domain.ReferenceLink{
						{Rel: "nvd", Href: "https://nvd.example.com/CVE-2024-0001"},
					},
				},
			},
		}
		enricher := application.NewRowEnricher(lookups, testGate(3), unlimited())

		// when
		result := enricher.Enrich(context.Background(), securityRow())

		// then
		assert.Equal(t, "lib/a.jar; lib/b.jar", result.FilePathsValue())
		assert.Equal(t, "Upgrade to 2.0.0", result.HowToFix)
		assert.JSONEq(t,
			`[{"rel":"nvd","href":"https://nvd.example.com/CVE-2024-0001"}]`,
			result.ReferencesValue())
	})

	t.Run("should record the placeholder when component identifiers are missing", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{}
		enricher := application.NewRowEnricher(lookups, testGate(3), unlimited())
		row := securityRow()
		row[domain.ColumnComponentID] = ""

		// when
		result := enricher.Enrich(context.Background(), row)

		// then
		assert.Equal(t, domain.NoFilePathsPlaceholder, result.FilePathsValue())
		assert.Empty(t, lookups.QueriedOrigins)
	})

	t.Run("should render the placeholder for an origin with zero matches", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{
			FilesByOrigin: map[string][]string{"origin-1": {}},
		}
		enricher := application.NewRowEnricher(lookups, testGate(3), unlimited())

		// when
		result := enricher.Enrich(context.Background(), securityRow())

		// then
		assert.Equal(t, domain.NoFilePathsPlaceholder, result.FilePathsValue())
		assert.Equal(t, []string{"origin-1"}, lookups.QueriedOrigins)
	})

	t.Run("should yield empty remediation for a row without a vulnerability id", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{}
		enricher := application.NewRowEnricher(lookups, testGate(3), unlimited())
		row := securityRow()
		row[domain.ColumnVulnerabilityID] = ""

		// when
		result := enricher.Enrich(context.Background(), row)

		// then
		assert.Empty(t, result.HowToFix)
		assert.Equal(t, "[]", result.ReferencesValue())
		assert.Empty(t, lookups.QueriedVulnerabilities)
	})

	t.Run("should query only the first origin by default", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{
			FilesByOrigin: map[string][]string{
				"origin-1": {"first.jar"},
				"origin-2": {"second.jar"},
			},
		}
		enricher := application.NewRowEnricher(lookups, testGate(3), unlimited())
		row := securityRow()
		row[domain.ColumnOriginID] = "origin-1; origin-2"

		// when
		result := enricher.Enrich(context.Background(), row)

		// then
		assert.Equal(t, "first.jar", result.FilePathsValue())
		assert.Equal(t, []string{"origin-1"}, lookups.QueriedOrigins)
	})

	t.Run("should union matched files across origins when configured", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{
			FilesByOrigin: map[string][]string{
				"origin-1": {"first.jar"},
				"origin-2": {"second.jar"},
			},
		}
		enricher := application.NewRowEnricher(lookups, testGate(3),
			unlimited(), application.WithAllOrigins(true))
		row := securityRow()
		row[domain.ColumnOriginID] = "origin-1; origin-2"

		// when
		result := enricher.Enrich(context.Background(), row)

		// then
		assert.Equal(t, "first.jar; second.jar", result.FilePathsValue())
		assert.Equal(t, []string{"origin-1", "origin-2"}, lookups.QueriedOrigins)
	})

	t.Run("should degrade to the placeholder after exhausting retries", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{MatchedFilesErr: errTransient}
		enricher := application.NewRowEnricher(lookups, testGate(3), unlimited())

		// when
		result := enricher.Enrich(context.Background(), securityRow())

		// then
		assert.Equal(t, domain.NoFilePathsPlaceholder, result.FilePathsValue())
		assert.Len(t, lookups.QueriedOrigins, 3)
	})

	t.Run("should recover when a transient failure clears before the attempt budget", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{
			FilesByOrigin:         map[string][]string{"origin-1": {"late.jar"}},
			MatchedFilesErr:       errTransient,
			FailuresBeforeSuccess: 2,
		}
		enricher := application.NewRowEnricher(lookups, testGate(5), unlimited())

		// when
		result := enricher.Enrich(context.Background(), securityRow())

		// then
		assert.Equal(t, "late.jar", result.FilePathsValue())
		assert.Len(t, lookups.QueriedOrigins, 3)
	})

	t.Run("should not retry a not-found vulnerability", func(t *testing.T) {
		t.Parallel()

		// given
		lookups := &testdoubles.SpyLookupService{VulnerabilityErr: domain.ErrNotFound}
		enricher := application.NewRowEnricher(lookups, testGate(5), unlimited())

		// when
		result := enricher.Enrich(context.Background(), securityRow())

		// then
		require.Len(t, lookups.QueriedVulnerabilities, 1)
		assert.Empty(t, result.HowToFix)
		assert.Equal(t, "[]", result.ReferencesValue())
	})
}
