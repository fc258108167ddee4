package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
)

func umbrellaConfig(serverURL string) config.UmbrellaConfig {
	return config.UmbrellaConfig{
		ClientID:       "client",
		APIKey:         "secret",
		OrgID:          "1234567",
		InvestigateKey: "inv-key",
		AuthURL:        serverURL + "/auth/v2/oauth2/token",
		ReportsURL:     serverURL + "/v2",
		InvestigateURL: serverURL,
		DashboardURL:   "https://dashboard.example.com",
	}
}

func TestUmbrellaReports_ListSecurityEvents(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/organizations/1234567/activity/dns", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "1709553600000", q.Get("from"))
		assert.Equal(t, "now", q.Get("to"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "67", q.Get("categories"))
		w.Write([]byte(`{"data":[{"domain":"evil.example","timestamp":1709640000000,"externalip":"198.51.100.1","internalip":"10.0.0.5","verdict":"blocked","identities":[{"label":"WIN-LAPTOP-07"}],"categories":[{"label":"Malware"}]}]}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	p := NewUmbrellaReportsProvider(server.Client(), umbrellaConfig(server.URL))
	p.now = func() time.Time { return now }

	events, err := p.ListSecurityEvents(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "evil.example", ev.Domain)
	assert.Equal(t, "blocked", ev.Verdict)
	assert.Equal(t, "WIN-LAPTOP-07", ev.Identity)
	assert.Equal(t, []string{"Malware"}, ev.Categories)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), ev.Time)

	// Tokens are not cached
	_, err = p.ListSecurityEvents(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, tokenCalls.Load())
}

func TestUmbrellaReports_ReportURL(t *testing.T) {
	p := NewUmbrellaReportsProvider(nil, umbrellaConfig("http://unused"))

	link := p.reportURL("evil.example")
	prefix := "https://dashboard.example.com/o/1234567/#/reports/activity?encodedFilters="
	require.True(t, strings.HasPrefix(link, prefix))

	encoded, err := url.QueryUnescape(strings.TrimPrefix(link, prefix))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	filter, err := url.PathUnescape(string(raw))
	require.NoError(t, err)
	assert.JSONEq(t, `{"selectedDateRangeIdx":3,"domain":[{"id":"evil.example","label":"evil.example"}]}`, filter)
}

func TestUmbrellaReports_TokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewUmbrellaReportsProvider(server.Client(), umbrellaConfig(server.URL))

	_, err := p.ListSecurityEvents(context.Background(), time.Hour)
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
}

func TestUmbrellaReports_MissingOrg(t *testing.T) {
	cfg := umbrellaConfig("http://unused")
	cfg.OrgID = ""

	p := NewUmbrellaReportsProvider(nil, cfg)

	_, err := p.ListSecurityEvents(context.Background(), time.Hour)
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"UMBRELLA_ORG_ID"}, cfgErr.Missing)
}

func investigateServer(t *testing.T, whoisStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/domains/risk-score/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer inv-key", r.Header.Get("Authorization"))
		if strings.HasSuffix(r.URL.Path, "/unknown.example") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"risk_score": 92}`))
	})
	mux.HandleFunc("/domains/categorization/", func(w http.ResponseWriter, r *http.Request) {
		_, showLabels := r.URL.Query()["showLabels"]
		assert.True(t, showLabels)
		w.Write([]byte(`{"evil.example":{"status":-1,"security_categories":["Malware","Phishing"],"content_categories":[]}}`))
	})
	mux.HandleFunc("/whois/", func(w http.ResponseWriter, r *http.Request) {
		if whoisStatus != http.StatusOK {
			w.WriteHeader(whoisStatus)
			return
		}
		w.Write([]byte(`{"registrarName":"Example Registrar","created":"2024-01-02","expires":"2025-01-02"}`))
	})

	return httptest.NewServer(mux)
}

func TestUmbrellaInvestigate_Investigate(t *testing.T) {
	server := investigateServer(t, http.StatusOK)
	defer server.Close()

	p := NewUmbrellaInvestigateProvider(server.Client(), umbrellaConfig(server.URL))

	report, err := p.Investigate(context.Background(), "evil.example")
	require.NoError(t, err)
	assert.Equal(t, 92, report.RiskScore)
	assert.Equal(t, -1, report.Status)
	assert.Equal(t, []string{"Malware", "Phishing"}, report.SecurityCategories)
	assert.Empty(t, report.ContentCategories)
	assert.Equal(t, "Example Registrar", report.Registrar)
	assert.Equal(t, "2024-01-02", report.Created)
	assert.Equal(t, "2025-01-02", report.Expires)
}

func TestUmbrellaInvestigate_WhoisMissingIsTolerated(t *testing.T) {
	server := investigateServer(t, http.StatusNotFound)
	defer server.Close()

	p := NewUmbrellaInvestigateProvider(server.Client(), umbrellaConfig(server.URL))

	report, err := p.Investigate(context.Background(), "evil.example")
	require.NoError(t, err)
	assert.Empty(t, report.Registrar)
}

func TestUmbrellaInvestigate_UnknownDomain(t *testing.T) {
	server := investigateServer(t, http.StatusOK)
	defer server.Close()

	p := NewUmbrellaInvestigateProvider(server.Client(), umbrellaConfig(server.URL))

	_, err := p.Investigate(context.Background(), "unknown.example")
	var notFound *domain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "domain", notFound.Resource)
	assert.Equal(t, "unknown.example", notFound.ID)
}

func TestUmbrellaInvestigate_MissingKey(t *testing.T) {
	cfg := umbrellaConfig("http://unused")
	cfg.InvestigateKey = ""

	p := NewUmbrellaInvestigateProvider(nil, cfg)

	_, err := p.Investigate(context.Background(), "evil.example")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}
