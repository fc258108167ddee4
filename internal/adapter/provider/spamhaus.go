package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
)

const spamhausHistoryLimit = "5"

// SpamhausProvider queries the XBL listing history of the Spamhaus
// Intelligence API.
type SpamhausProvider struct {
	client Doer
	cfg    config.SpamhausConfig
}

func NewSpamhausProvider(client Doer, cfg config.SpamhausConfig) *SpamhausProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &SpamhausProvider{
		client: client,
		cfg:    cfg,
	}
}

func (p *SpamhausProvider) Name() string {
	return "Spamhaus"
}

type spamhausLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Realm    string `json:"realm"`
}

type spamhausLoginResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

type spamhausHistoryResponse struct {
	Results []spamhausListing `json:"results"`
}

type spamhausListing struct {
	IPAddress  string `json:"ipaddress"`
	Dataset    string `json:"dataset"`
	Detection  string `json:"detection"`
	Heuristic  string `json:"heuristic"`
	Country    string `json:"cc"`
	ASN        string `json:"asn"`
	Seen       int64  `json:"seen"`
	ValidUntil int64  `json:"valid_until"`
}

func (p *SpamhausProvider) Lookup(ctx context.Context, ip string) (*domain.IPReputation, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	token, err := p.login(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/byobject/cidr/XBL/listed/history/%s?limit=%s",
		strings.TrimRight(p.cfg.IntelURL, "/"), url.PathEscape(ip), spamhausHistoryLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	notFound := &domain.NotFoundError{Vendor: p.Name(), Resource: "ip", ID: ip}

	var data spamhausHistoryResponse
	if err := getJSON(p.client, p.Name(), req, notFound, &data); err != nil {
		return nil, fmt.Errorf("failed to get listing history: %w", err)
	}
	if len(data.Results) == 0 {
		return nil, notFound
	}

	rep := &domain.IPReputation{IP: ip}
	for _, r := range data.Results {
		listing := domain.IPListing{
			IP:        r.IPAddress,
			Dataset:   r.Dataset,
			Detection: r.Detection,
			Heuristic: r.Heuristic,
			Country:   strings.ToUpper(r.Country),
			ASN:       r.ASN,
			Seen:      time.Unix(r.Seen, 0).UTC(),
		}
		if listing.IP == "" {
			listing.IP = ip
		}
		if r.ValidUntil > 0 {
			listing.ValidUntil = time.Unix(r.ValidUntil, 0).UTC()
		}
		rep.Listings = append(rep.Listings, listing)
	}

	return rep, nil
}

func (p *SpamhausProvider) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(spamhausLogin{
		Username: p.cfg.User,
		Password: p.cfg.Password,
		Realm:    "intel",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.LoginURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var data spamhausLoginResponse
	if err := getJSON(p.client, p.Name(), req, nil, &data); err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}
	if data.Token == "" {
		return "", missingField(p.Name(), "token")
	}
	return data.Token, nil
}
