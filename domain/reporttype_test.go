package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

func TestParseReportTypes(t *testing.T) {
	t.Parallel()

	t.Run("should resolve a comma-separated list in order", func(t *testing.T) {
		t.Parallel()

		// given
		list := "components, vulnerabilities ,license_terms"

		// when
		types, err := domain.ParseReportTypes(list)

		// then
		require.NoError(t, err)
		require.Len(t, types, 3)
		assert.Equal(t, "components", types[0].Name)
		assert.Equal(t, "vulnerabilities", types[1].Name)
		assert.Equal(t, "license_terms", types[2].Name)
	})

	t.Run("should collapse duplicates", func(t *testing.T) {
		t.Parallel()

		// given / when
		types, err := domain.ParseReportTypes("vulnerabilities,vulnerabilities")

		// then
		require.NoError(t, err)
		assert.Len(t, types, 1)
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		t.Parallel()

		// given / when
		_, err := domain.ParseReportTypes("vulnerabilities,bogus")

		// then
		require.ErrorIs(t, err, domain.ErrUnknownReportType)
		assert.Contains(t, err.Error(), "bogus")
	})

	t.Run("should reject an empty list", func(t *testing.T) {
		t.Parallel()

		// given / when
		_, err := domain.ParseReportTypes(" , ,")

		// then
		require.ErrorIs(t, err, domain.ErrNoReportTypes)
	})

	t.Run("should mark only the security report as enrichable", func(t *testing.T) {
		t.Parallel()

		// given / when
		enrichable := 0
		for _, reportType := range domain.KnownReportTypes {
			if reportType.Enrichable {
				enrichable++
				assert.Equal(t, "vulnerabilities", reportType.Name)
				assert.Equal(t, "security", reportType.FilePrefix)
			}
		}

		// then
		assert.Equal(t, 1, enrichable)
	})
}

func TestEnrichment(t *testing.T) {
	t.Parallel()

	t.Run("should join file paths with a semicolon separator", func(t *testing.T) {
		t.Parallel()

		// given
		enrichment := domain.Enrichment{FilePaths: []string{"a", "b", "c"}}

		// when / then
		assert.Equal(t, "a; b; c", enrichment.FilePathsValue())
	})

	t.Run("should render the placeholder when no paths were found", func(t *testing.T) {
		t.Parallel()

		// given
		enrichment := domain.Enrichment{}

		// when / then
		assert.Equal(t, domain.NoFilePathsPlaceholder, enrichment.FilePathsValue())
	})

	t.Run("should serialize references as a JSON array preserving order", func(t *testing.T) {
		t.Parallel()

		// given
		enrichment := domain.Enrichment{References: []domain.ReferenceLink{
			{Rel: "b-second-alphabetically", Href: "https://example.com/2"},
			{Rel: "a-first-alphabetically", Href: "https://example.com/1"},
		}}

		// when
		value := enrichment.ReferencesValue()

		// then
		assert.Equal(t,
			`[{"rel":"b-second-alphabetically","href":"https://example.com/2"},`+
				`{"rel":"a-first-alphabetically","href":"https://example.com/1"}]`,
			value)
	})

	t.Run("should serialize an empty reference list as empty array", func(t *testing.T) {
		t.Parallel()

		// given / when / then
		assert.Equal(t, "[]", domain.Enrichment{}.ReferencesValue())
	})
}

func TestComponentRef_Complete(t *testing.T) {
	t.Parallel()

	t.Run("should require all three identifiers", func(t *testing.T) {
		t.Parallel()

		full := domain.ComponentRef{
			ComponentID:        "c",
			ComponentVersionID: "cv",
			OriginIDs:          []string{"o"},
		}
		assert.True(t, full.Complete())
		assert.False(t, domain.ComponentRef{}.Complete())
		assert.False(t, domain.ComponentRef{ComponentID: "c", ComponentVersionID: "cv"}.Complete())
	})
}
