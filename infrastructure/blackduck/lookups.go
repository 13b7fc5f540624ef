package blackduck

import (
	"context"
	"fmt"
	"net/url"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

var _ domain.LookupService = (*Client)(nil)

type matchedFilesList struct {
	TotalCount int `json:"totalCount"`
	Items      []struct {
		FilePath struct {
			Path                 string `json:"path"`
			CompositePathContext string `json:"compositePathContext"`
		} `json:"filePath"`
	} `json:"items"`
}

// MatchedFiles returns the file paths matched to one component origin within
// the project version the report was created for. An empty slice means the
// origin genuinely has zero matches; that is distinct from an error.
func (c *Client) MatchedFiles(ctx context.Context, ref domain.ComponentRef, originID string) ([]string, error) {
	c.mu.Lock()
	versionURL := c.versionURL
	c.mu.Unlock()
	if versionURL == "" {
		return nil, fmt.Errorf("project version not resolved yet")
	}

	lookupURL := fmt.Sprintf("%s/components/%s/versions/%s/origins/%s/matched-files",
		versionURL,
		url.PathEscape(ref.ComponentID),
		url.PathEscape(ref.ComponentVersionID),
		url.PathEscape(originID),
	)

	var files matchedFilesList
	if err := c.getJSON(ctx, lookupURL, &files); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files.Items))
	for _, item := range files.Items {
		path := item.FilePath.CompositePathContext
		if path == "" {
			path = item.FilePath.Path
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

type vulnerabilityDetail struct {
	Solution string    `json:"solution"`
	Meta     metaLinks `json:"_meta"`
}

// VulnerabilityDetails returns the remediation text and reference links for a
// vulnerability id, preserving the server's link order.
func (c *Client) VulnerabilityDetails(ctx context.Context, ref domain.VulnerabilityRef) (domain.Remediation, error) {
	detailURL := c.baseURL + "/api/vulnerabilities/" + url.PathEscape(ref.ID)

	var detail vulnerabilityDetail
	if err := c.getJSON(ctx, detailURL, &detail); err != nil {
		return domain.Remediation{}, err
	}

	remediation := domain.Remediation{Solution: detail.Solution}
	for _, link := range detail.Meta.Links {
		remediation.References = append(remediation.References, domain.ReferenceLink{
			Rel:  link.Rel,
			Href: link.Href,
		})
	}
	return remediation, nil
}
