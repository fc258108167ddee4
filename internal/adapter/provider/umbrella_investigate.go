package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
)

type UmbrellaInvestigateProvider struct {
	client Doer
	cfg    config.UmbrellaConfig
}

func NewUmbrellaInvestigateProvider(client Doer, cfg config.UmbrellaConfig) *UmbrellaInvestigateProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &UmbrellaInvestigateProvider{
		client: client,
		cfg:    cfg,
	}
}

func (p *UmbrellaInvestigateProvider) Name() string {
	return "Umbrella Investigate"
}

type riskScoreResponse struct {
	RiskScore *int `json:"risk_score"`
}

type categorization struct {
	Status             int      `json:"status"`
	SecurityCategories []string `json:"security_categories"`
	ContentCategories  []string `json:"content_categories"`
}

type whoisResponse struct {
	RegistrarName string `json:"registrarName"`
	Created       string `json:"created"`
	Expires       string `json:"expires"`
}

// Investigate combines the risk score, categorization and WHOIS endpoints.
// An unknown domain is reported by the risk score endpoint; a missing WHOIS
// record only leaves the registration fields empty.
func (p *UmbrellaInvestigateProvider) Investigate(ctx context.Context, domainName string) (*domain.DomainReport, error) {
	if err := p.cfg.ValidateInvestigate(); err != nil {
		return nil, err
	}

	notFound := &domain.NotFoundError{Vendor: p.Name(), Resource: "domain", ID: domainName}
	escaped := url.PathEscape(domainName)

	var risk riskScoreResponse
	if err := p.get(ctx, "/domains/risk-score/"+escaped, notFound, &risk); err != nil {
		return nil, fmt.Errorf("failed to get risk score: %w", err)
	}
	if risk.RiskScore == nil {
		return nil, missingField(p.Name(), "risk_score")
	}

	categories := map[string]categorization{}
	if err := p.get(ctx, "/domains/categorization/"+escaped+"?showLabels", notFound, &categories); err != nil {
		return nil, fmt.Errorf("failed to get categorization: %w", err)
	}
	cat, ok := categories[domainName]
	if !ok {
		return nil, missingField(p.Name(), domainName)
	}

	report := &domain.DomainReport{
		Domain:             domainName,
		RiskScore:          *risk.RiskScore,
		Status:             cat.Status,
		SecurityCategories: cat.SecurityCategories,
		ContentCategories:  cat.ContentCategories,
	}

	var whois whoisResponse
	err := p.get(ctx, "/whois/"+escaped, notFound, &whois)
	switch domain.KindOf(err) {
	case "":
		report.Registrar = whois.RegistrarName
		report.Created = whois.Created
		report.Expires = whois.Expires
	case domain.KindNotFound:
	default:
		return nil, fmt.Errorf("failed to get whois: %w", err)
	}

	return report, nil
}

func (p *UmbrellaInvestigateProvider) get(ctx context.Context, path string, notFound *domain.NotFoundError, out any) error {
	endpoint := strings.TrimRight(p.cfg.InvestigateURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.InvestigateKey)
	req.Header.Set("Accept", "application/json")

	return getJSON(p.client, p.Name(), req, notFound, out)
}
