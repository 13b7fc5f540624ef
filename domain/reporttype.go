package domain

import (
	"fmt"
	"strings"
)

// ReportType is one category of CSV export the Black Duck server can
// generate. The set is closed: unknown names are rejected at parse time
// instead of being string-compared deep inside the pipeline.
type ReportType struct {
	// Name is the identifier used on the command line.
	Name string
	// Category is the token sent to the report-creation endpoint.
	Category string
	// FilePrefix is the prefix of the CSV member name inside the downloaded
	// archive ({prefix}_{timestamp}.csv).
	FilePrefix string
	// Enrichable marks report types whose rows get the supplementary
	// file-path / remediation / reference columns.
	Enrichable bool
}

func (t ReportType) String() string { return t.Name }

// KnownReportTypes lists every report category this tool can request.
// Only the security report (CLI name "vulnerabilities") supports enrichment.
var KnownReportTypes = []ReportType{
	{Name: "version", Category: "VERSION", FilePrefix: "version"},
	{Name: "code_locations", Category: "CODE_LOCATIONS", FilePrefix: "source"},
	{Name: "components", Category: "COMPONENTS", FilePrefix: "components"},
	{Name: "vulnerabilities", Category: "SECURITY", FilePrefix: "security", Enrichable: true},
	{Name: "upgrade_guidance", Category: "UPGRADE_GUIDANCE", FilePrefix: "upgrade_guidance"},
	{Name: "license_terms", Category: "LICENSE_TERM_FULFILLMENT", FilePrefix: "license_terms"},
	{Name: "cryptography", Category: "CRYPTO_ALGORITHMS", FilePrefix: "cryptography"},
}

// ReportTypeByName resolves a single CLI identifier.
func ReportTypeByName(name string) (ReportType, error) {
	for _, t := range KnownReportTypes {
		if t.Name == name {
			return t, nil
		}
	}
	return ReportType{}, fmt.Errorf("%w: %q", ErrUnknownReportType, name)
}

// ParseReportTypes resolves a comma-separated list of report-type names.
// Whitespace around names is ignored; duplicates are collapsed.
func ParseReportTypes(list string) ([]ReportType, error) {
	var types []ReportType
	seen := make(map[string]bool)
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		t, err := ReportTypeByName(name)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, ErrNoReportTypes
	}
	return types, nil
}
