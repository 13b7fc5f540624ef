package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

func TestSummaryError(t *testing.T) {
	t.Parallel()

	t.Run("should return nil for a clean run", func(t *testing.T) {
		t.Parallel()

		// given
		summary := domain.RunSummary{Outcomes: []domain.ReportOutcome{
			{Member: "security_20240101.csv", Enhanced: true},
		}}

		// when / then
		require.NoError(t, summaryError(summary))
	})

	t.Run("should fail when the run produced nothing", func(t *testing.T) {
		t.Parallel()

		// given
		summary := domain.RunSummary{Archive: "demo-reports.zip"}

		// when
		err := summaryError(summary)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no output members")
	})

	t.Run("should name the failed report types", func(t *testing.T) {
		t.Parallel()

		// given
		vulnType, typeErr := domain.ReportTypeByName("vulnerabilities")
		require.NoError(t, typeErr)
		summary := domain.RunSummary{Outcomes: []domain.ReportOutcome{
			{Member: "components_20240101.csv"},
			{Type: vulnType, Reason: "member name collision"},
		}}

		// when
		err := summaryError(summary)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vulnerabilities")
	})
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	t.Run("should replace characters unsafe for file names", func(t *testing.T) {
		t.Parallel()

		// given / when
		result := sanitizeFileName(`my app/1.0:beta?`)

		// then
		assert.Equal(t, "my_app_1.0_beta_", result)
	})
}
