package domain

import "encoding/json"

// Column names the Black Duck security CSV uses for the identifiers we
// correlate against the REST API.
const (
	ColumnComponentID        = "Component id"
	ColumnComponentVersionID = "Version id"
	ColumnOriginID           = "Channel version origin id"
	ColumnVulnerabilityID    = "Vulnerability id"
)

// EnrichmentColumns are the headers appended to an enriched CSV, in order.
var EnrichmentColumns = []string{
	"File Paths",
	"How to Fix",
	"References and Related Links",
}

// NoFilePathsPlaceholder is stored when a row has no resolvable file paths,
// whether because the identifiers are missing, the origin has zero matches,
// or the lookup failed after all retries.
const NoFilePathsPlaceholder = "No file paths available"

// ComponentRef identifies a component origin within a project version. It is
// extracted from a report row's existing columns and may be partially or
// entirely empty; emptiness is an expected state, not an error.
type ComponentRef struct {
	ComponentID        string
	ComponentVersionID string
	OriginIDs          []string
}

// Complete reports whether the reference carries everything the matched-files
// endpoint needs.
func (r ComponentRef) Complete() bool {
	return r.ComponentID != "" && r.ComponentVersionID != "" && len(r.OriginIDs) > 0
}

// VulnerabilityRef identifies a vulnerability record (CVE or BDSA id).
type VulnerabilityRef struct {
	ID string
}

// ReferenceLink is one related-link entry off a vulnerability record.
type ReferenceLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Enrichment is the per-row lookup result. It is computed fresh for every row
// and discarded after serialization; rows never share state.
type Enrichment struct {
	FilePaths  []string
	HowToFix   string
	References []ReferenceLink
}

// FilePathsValue renders the file-path column: paths joined with "; ", or the
// placeholder when there are none.
func (e Enrichment) FilePathsValue() string {
	if len(e.FilePaths) == 0 {
		return NoFilePathsPlaceholder
	}
	joined := e.FilePaths[0]
	for _, p := range e.FilePaths[1:] {
		joined += "; " + p
	}
	return joined
}

// ReferencesValue renders the references column as a JSON array of
// {"rel","href"} objects in the order the server returned them.
func (e Enrichment) ReferencesValue() string {
	if len(e.References) == 0 {
		return "[]"
	}
	data, err := json.Marshal(e.References)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Project is a Black Duck project as listed by the connectivity check.
type Project struct {
	Name        string
	Description string
	URL         string
}
