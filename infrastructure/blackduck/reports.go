package blackduck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	logger "github.com/sirupsen/logrus"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

// Compile-time interface checks.
var (
	_ domain.ReportService = (*Client)(nil)
	_ domain.ProjectLister = (*Client)(nil)
)

type metaLinks struct {
	Href  string `json:"href"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

type projectList struct {
	TotalCount int `json:"totalCount"`
	Items      []struct {
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Meta        metaLinks `json:"_meta"`
	} `json:"items"`
}

type versionList struct {
	TotalCount int `json:"totalCount"`
	Items      []struct {
		VersionName string    `json:"versionName"`
		Meta        metaLinks `json:"_meta"`
	} `json:"items"`
}

// resolveVersionURL finds the project-version resource for the given names.
// The result is cached on the client: the matched-files lookups are scoped to
// the same project version the report was generated for.
func (c *Client) resolveVersionURL(ctx context.Context, project, version string) (string, error) {
	c.mu.Lock()
	cached := c.versionURL
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var projects projectList
	listURL := c.apiURL("/api/projects", url.Values{"q": {"name:" + project}})
	if err := c.getJSON(ctx, listURL, &projects); err != nil {
		return "", fmt.Errorf("failed to search project %q: %w", project, err)
	}

	projectURL := ""
	for _, item := range projects.Items {
		if item.Name == project {
			projectURL = item.Meta.Href
			break
		}
	}
	if projectURL == "" {
		return "", fmt.Errorf("%w: project %q", domain.ErrNotFound, project)
	}

	var versions versionList
	versionsURL := projectURL + "/versions?" + url.Values{"q": {"versionName:" + version}}.Encode()
	if err := c.getJSON(ctx, versionsURL, &versions); err != nil {
		return "", fmt.Errorf("failed to search version %q: %w", version, err)
	}

	for _, item := range versions.Items {
		if item.VersionName == version {
			c.mu.Lock()
			c.versionURL = item.Meta.Href
			c.mu.Unlock()
			return item.Meta.Href, nil
		}
	}
	return "", fmt.Errorf("%w: version %q of project %q", domain.ErrNotFound, version, project)
}

// CreateReport starts CSV report generation for the project version and
// returns the report resource URL from the Location header.
func (c *Client) CreateReport(ctx context.Context, project, version string, types []domain.ReportType) (string, error) {
	versionURL, err := c.resolveVersionURL(ctx, project, version)
	if err != nil {
		return "", err
	}

	categories := make([]string, 0, len(types))
	for _, t := range types {
		categories = append(categories, t.Category)
	}

	payload, err := json.Marshal(map[string]any{
		"reportFormat": "CSV",
		"locale":       c.locale,
		"categories":   categories,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode report request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, versionURL+"/reports",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("report creation returned no Location header")
	}
	logger.Debugf("Report job created: %s", location)
	return location, nil
}

type reportStatus struct {
	Status string `json:"status"`
}

// DownloadArchive checks the report status and, once COMPLETED, streams the
// zip bundle to destPath. A report still in progress is reported as an error
// so the caller's retry gate provides the poll interval; the report job
// itself is never restarted.
func (c *Client) DownloadArchive(ctx context.Context, reportURL, destPath string) error {
	var status reportStatus
	if err := c.getJSON(ctx, reportURL, &status); err != nil {
		return err
	}
	switch status.Status {
	case "COMPLETED":
	case "FAILED":
		return fmt.Errorf("report generation failed on the server")
	default:
		return fmt.Errorf("report not ready (status %q)", status.Status)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, reportURL+"/download",
		"application/zip", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", destPath, err)
	}
	if _, copyErr := io.Copy(out, resp.Body); copyErr != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to write %q: %w", destPath, copyErr)
	}
	if closeErr := out.Close(); closeErr != nil {
		return fmt.Errorf("failed to close %q: %w", destPath, closeErr)
	}
	return nil
}

// ListProjects returns up to limit projects visible to the credentials plus
// the server-side total, for the connectivity check.
func (c *Client) ListProjects(ctx context.Context, limit int) ([]domain.Project, int, error) {
	if limit <= 0 {
		limit = 5
	}

	var projects projectList
	listURL := c.apiURL("/api/projects", url.Values{"limit": {fmt.Sprint(limit)}})
	if err := c.getJSON(ctx, listURL, &projects); err != nil {
		return nil, 0, err
	}

	result := make([]domain.Project, 0, len(projects.Items))
	for _, item := range projects.Items {
		result = append(result, domain.Project{
			Name:        item.Name,
			Description: item.Description,
			URL:         item.Meta.Href,
		})
	}
	return result, projects.TotalCount, nil
}

// CurrentUser returns the authenticated user's name.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var user struct {
		UserName string `json:"userName"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/api/current-user", &user); err != nil {
		return "", err
	}
	return user.UserName, nil
}
