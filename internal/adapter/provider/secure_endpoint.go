package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
)

// Event types reported as threats: Threat Detected, Threat Quarantined and
// Executed Malware.
var threatEventTypes = []string{"1090519054", "1090519081", "553648147"}

const (
	eventsLimit     = 100
	isolationUnlock = "unlockme"
)

// SecureEndpointProvider is the Cisco Secure Endpoint (AMP for Endpoints) v1 API.
type SecureEndpointProvider struct {
	client Doer
	cfg    config.EndpointConfig
}

func NewSecureEndpointProvider(client Doer, cfg config.EndpointConfig) *SecureEndpointProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &SecureEndpointProvider{
		client: client,
		cfg:    cfg,
	}
}

func (p *SecureEndpointProvider) Name() string {
	return "Secure Endpoint"
}

type ampEventsResponse struct {
	Data []ampEvent `json:"data"`
}

type ampEvent struct {
	ID            int64  `json:"id"`
	EventType     string `json:"event_type"`
	Detection     string `json:"detection"`
	Date          string `json:"date"`
	ConnectorGUID string `json:"connector_guid"`
	Computer      struct {
		Hostname   string `json:"hostname"`
		User       string `json:"user"`
		ExternalIP string `json:"external_ip"`
	} `json:"computer"`
	File struct {
		FileName string `json:"file_name"`
		Identity struct {
			SHA256 string `json:"sha256"`
		} `json:"identity"`
	} `json:"file"`
}

type ampComputersResponse struct {
	Data []ampComputer `json:"data"`
}

type ampComputer struct {
	ConnectorGUID   string `json:"connector_guid"`
	Hostname        string `json:"hostname"`
	User            string `json:"user"`
	ExternalIP      string `json:"external_ip"`
	OperatingSystem string `json:"operating_system"`
}

type ampIsolationResponse struct {
	Data struct {
		Available  bool   `json:"available"`
		Status     string `json:"status"`
		UnlockCode string `json:"unlock_code"`
		Comment    string `json:"comment"`
	} `json:"data"`
	Errors []struct {
		Description string   `json:"description"`
		Details     []string `json:"details"`
	} `json:"errors"`
}

func (p *SecureEndpointProvider) ListEvents(ctx context.Context, since time.Time) ([]domain.EndpointEvent, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("start_date", since.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(eventsLimit))
	for _, t := range threatEventTypes {
		q.Add("event_type[]", t)
	}

	req, err := p.newRequest(ctx, http.MethodGet, "/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var data ampEventsResponse
	if err := getJSON(p.client, p.Name(), req, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]domain.EndpointEvent, 0, len(data.Data))
	for _, e := range data.Data {
		date, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			return nil, &domain.MalformedResponseError{Vendor: p.Name(), Err: fmt.Errorf("event %d: bad date %q: %w", e.ID, e.Date, err)}
		}

		events = append(events, domain.EndpointEvent{
			ID:            strconv.FormatInt(e.ID, 10),
			Type:          e.EventType,
			Detection:     e.Detection,
			Date:          date,
			Hostname:      e.Computer.Hostname,
			User:          e.Computer.User,
			ExternalIP:    e.Computer.ExternalIP,
			ConnectorGUID: e.ConnectorGUID,
			FileName:      e.File.FileName,
			SHA256:        e.File.Identity.SHA256,
			TrajectoryURL: p.trajectoryURL(e.File.Identity.SHA256),
			EventsURL:     p.eventsURL(e.ConnectorGUID, e.File.Identity.SHA256),
		})
	}

	return events, nil
}

func (p *SecureEndpointProvider) FindComputer(ctx context.Context, hostname string) (*domain.Computer, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	hostname = strings.TrimSpace(hostname)
	q := url.Values{}
	q.Set("hostname[]", hostname)

	req, err := p.newRequest(ctx, http.MethodGet, "/computers?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var data ampComputersResponse
	if err := getJSON(p.client, p.Name(), req, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to look up computer: %w", err)
	}

	if len(data.Data) == 0 {
		return nil, &domain.NotFoundError{Vendor: p.Name(), Resource: "computer", ID: hostname}
	}

	c := data.Data[0]
	if c.ConnectorGUID == "" {
		return nil, missingField(p.Name(), "connector_guid")
	}

	return &domain.Computer{
		ConnectorGUID: c.ConnectorGUID,
		Hostname:      c.Hostname,
		User:          c.User,
		ExternalIP:    c.ExternalIP,
		OperatingSys:  c.OperatingSystem,
	}, nil
}

func (p *SecureEndpointProvider) Isolate(ctx context.Context, computer domain.Computer, comment string) (*domain.IsolationResult, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("comment", comment)
	form.Set("unlock_code", isolationUnlock)

	path := "/computers/" + url.PathEscape(computer.ConnectorGUID) + "/isolation"
	req, err := p.newRequest(ctx, http.MethodPut, path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := send(p.client, p.Name(), req)
	if err != nil {
		return nil, fmt.Errorf("failed to isolate %s: %w", computer.Hostname, err)
	}
	defer resp.Body.Close()

	notFound := &domain.NotFoundError{Vendor: p.Name(), Resource: "computer", ID: computer.Hostname}
	if err := checkStatus(p.Name(), resp, notFound); err != nil {
		return nil, fmt.Errorf("failed to isolate %s: %w", computer.Hostname, err)
	}

	var data ampIsolationResponse
	if err := decode(p.Name(), resp.Body, &data); err != nil {
		return nil, err
	}

	// The API can answer 2xx with an empty data object and an error list
	if data.Data.Status == "" {
		for _, e := range data.Errors {
			if len(e.Details) > 0 {
				return nil, &domain.UpstreamError{Vendor: p.Name(), StatusCode: resp.StatusCode, Message: e.Details[0]}
			}
			if e.Description != "" {
				return nil, &domain.UpstreamError{Vendor: p.Name(), StatusCode: resp.StatusCode, Message: e.Description}
			}
		}
		return nil, missingField(p.Name(), "data.status")
	}

	result := &domain.IsolationResult{
		Computer:   computer,
		Status:     domain.IsolationStatus(data.Data.Status),
		Comment:    data.Data.Comment,
		UnlockCode: data.Data.UnlockCode,
	}
	if result.Comment == "" {
		result.Comment = comment
	}
	return result, nil
}

func (p *SecureEndpointProvider) newRequest(ctx context.Context, method, path string, body *strings.Reader) (*http.Request, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + path

	var (
		req *http.Request
		err error
	)
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(p.cfg.ClientID, p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (p *SecureEndpointProvider) trajectoryURL(sha256 string) string {
	if sha256 == "" {
		return ""
	}
	return strings.TrimRight(p.cfg.ConsoleURL, "/") + "/file/trajectory/" + sha256
}

// eventsURL opens the console event log filtered on one computer and file.
func (p *SecureEndpointProvider) eventsURL(connectorGUID, sha256 string) string {
	if connectorGUID == "" {
		return ""
	}

	filter := map[string]any{
		"filters": map[string][]string{
			"ag":   {connectorGUID},
			"time": {"week"},
			"sha":  {sha256},
		},
		"sort_by":    "ts",
		"sort_order": "desc",
	}
	raw, _ := json.Marshal(filter)

	return strings.TrimRight(p.cfg.ConsoleURL, "/") + "/dashboard/events#/events/show/" + url.PathEscape(string(raw))
}
