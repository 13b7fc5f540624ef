package cmd

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/application"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/config"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/infrastructure/blackduck"
	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/retry"
)

// buildContainer wires config -> client -> enricher -> service via DIG.
// Runtime flags feed the constructors through closures.
func buildContainer() (*dig.Container, error) {
	container := dig.New()

	constructors := []any{
		loadConfig,
		newClient,
		func(client *blackduck.Client) domain.LookupService { return client },
		func(client *blackduck.Client) domain.ReportService { return client },
		newGate,
		newEnricher,
		newService,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return nil, fmt.Errorf("failed to wire dependencies: %w", err)
		}
	}
	return container, nil
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		// A settings file is optional; env vars alone are enough.
		if found, err := config.FindConfigFile(); err == nil {
			path = found
		}
	}
	return config.Load(path)
}

func newClient(cfg *config.Config) *blackduck.Client {
	return blackduck.NewClient(cfg.URL, cfg.APIToken,
		blackduck.WithTimeout(cfg.Timeout),
		blackduck.WithInsecureTLS(insecure || cfg.TrustCert),
		blackduck.WithLocale(cfg.Locale),
	)
}

func newGate() *retry.Gate {
	return retry.NewGate(tries, gateSleep())
}

func newEnricher(lookups domain.LookupService, gate *retry.Gate) *application.RowEnricher {
	return application.NewRowEnricher(lookups, gate,
		application.WithAllOrigins(allOrigins))
}

func newService(reports domain.ReportService, enricher *application.RowEnricher, gate *retry.Gate) *application.EnhanceService {
	return application.NewEnhanceService(reports, enricher, gate)
}

// injectEnhanceService resolves the fully wired pipeline driver.
func injectEnhanceService() (*application.EnhanceService, error) {
	container, err := buildContainer()
	if err != nil {
		return nil, err
	}

	var svc *application.EnhanceService
	if err := container.Invoke(func(s *application.EnhanceService) {
		svc = s
	}); err != nil {
		return nil, fmt.Errorf("failed to build service: %w", dig.RootCause(err))
	}
	return svc, nil
}

// injectClient resolves the bare API client for the connectivity check.
func injectClient() (*blackduck.Client, *config.Config, error) {
	container, err := buildContainer()
	if err != nil {
		return nil, nil, err
	}

	var (
		client *blackduck.Client
		cfg    *config.Config
	)
	if err := container.Invoke(func(c *blackduck.Client, loaded *config.Config) {
		client = c
		cfg = loaded
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to build client: %w", dig.RootCause(err))
	}
	return client, cfg, nil
}
