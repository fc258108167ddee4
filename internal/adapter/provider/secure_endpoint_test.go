package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
)

func endpointConfig(baseURL string) config.EndpointConfig {
	return config.EndpointConfig{
		ClientID:   "client",
		APIKey:     "secret",
		BaseURL:    baseURL,
		ConsoleURL: "https://console.example.com",
	}
}

const ampEventsJSON = `{
  "data": [
    {
      "id": 6455442249407791000,
      "event_type": "Threat Detected",
      "detection": "W32.Zombies.NotAVirus",
      "date": "2024-03-05T14:33:52+00:00",
      "connector_guid": "af73d9d5-ddc5-4c93-9c6d-d5e6b5c5eb01",
      "computer": {"hostname": "WIN-LAPTOP-07", "user": "jdoe@example.com", "external_ip": "203.0.113.10"},
      "file": {"file_name": "invoice.exe", "identity": {"sha256": "abc123"}}
    },
    {
      "id": 2,
      "event_type": "Executed Malware",
      "detection": "Win.Ransomware",
      "date": "2024-03-05T15:00:00Z",
      "connector_guid": "guid-2",
      "computer": {"hostname": "WIN-DESK-01", "external_ip": "203.0.113.11"},
      "file": {"file_name": "a.dll", "identity": {"sha256": "def456"}}
    }
  ]
}`

func TestSecureEndpoint_ListEvents(t *testing.T) {
	since := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/events", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)

		q := r.URL.Query()
		assert.Equal(t, "2024-03-04T14:00:00Z", q.Get("start_date"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, []string{"1090519054", "1090519081", "553648147"}, q["event_type[]"])

		w.Write([]byte(ampEventsJSON))
	}))
	defer server.Close()

	p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL+"/v1"))

	events, err := p.ListEvents(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "Threat Detected", first.Type)
	assert.Equal(t, "WIN-LAPTOP-07", first.Hostname)
	assert.Equal(t, "jdoe@example.com", first.User)
	assert.Equal(t, "invoice.exe", first.FileName)
	assert.Equal(t, "https://console.example.com/file/trajectory/abc123", first.TrajectoryURL)
	assert.True(t, strings.HasPrefix(first.EventsURL, "https://console.example.com/dashboard/events#/events/show/"))
	assert.Contains(t, first.EventsURL, "af73d9d5")
	assert.Equal(t, 2024, first.Date.Year())

	assert.Empty(t, events[1].User)
}

func TestSecureEndpoint_ListEventsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL))

	events, err := p.ListEvents(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSecureEndpoint_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   domain.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, domain.KindAuthentication},
		{"forbidden", http.StatusForbidden, `{}`, domain.KindAuthentication},
		{"bad request", http.StatusBadRequest, `{"errors":[{"details":["start_date is invalid"]}]}`, domain.KindUpstream},
		{"server error", http.StatusInternalServerError, ``, domain.KindUpstream},
		{"garbage", http.StatusOK, `<html>`, domain.KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL))

			_, err := p.ListEvents(context.Background(), time.Now())
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestSecureEndpoint_UpstreamMessageFromDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"details":["start_date is invalid"]}]}`))
	}))
	defer server.Close()

	p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL))

	_, err := p.ListEvents(context.Background(), time.Now())

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.Equal(t, "start_date is invalid", upstream.Message)
}

func TestSecureEndpoint_MissingCredentials(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	p := NewSecureEndpointProvider(server.Client(), config.EndpointConfig{BaseURL: server.URL})

	_, err := p.ListEvents(context.Background(), time.Now())

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"AMP4E_API_KEY", "AMP4E_CLIENT_ID"}, cfgErr.Missing)
	assert.False(t, called, "no request must be sent without credentials")
}

func TestSecureEndpoint_FindComputer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/computers", r.URL.Path)
		switch r.URL.Query().Get("hostname[]") {
		case "WIN-LAPTOP-07":
			w.Write([]byte(`{"data":[{"connector_guid":"guid-1","hostname":"WIN-LAPTOP-07","external_ip":"203.0.113.10","operating_system":"Windows 11"}]}`))
		default:
			w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer server.Close()

	p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL))

	computer, err := p.FindComputer(context.Background(), " WIN-LAPTOP-07 ")
	require.NoError(t, err)
	assert.Equal(t, "guid-1", computer.ConnectorGUID)
	assert.Equal(t, "Windows 11", computer.OperatingSys)

	_, err = p.FindComputer(context.Background(), "GHOST")
	var notFound *domain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "computer", notFound.Resource)
	assert.Equal(t, "GHOST", notFound.ID)
}

func TestSecureEndpoint_Isolate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/computers/guid-1/isolation", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "Locked by responder", r.PostForm.Get("comment"))
		assert.Equal(t, "unlockme", r.PostForm.Get("unlock_code"))

		w.Write([]byte(`{"data":{"available":true,"status":"pending_start","unlock_code":"unlockme","comment":"Locked by responder"}}`))
	}))
	defer server.Close()

	p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL))
	computer := domain.Computer{ConnectorGUID: "guid-1", Hostname: "WIN-LAPTOP-07"}

	result, err := p.Isolate(context.Background(), computer, "Locked by responder")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingStart, result.Status)
	assert.Equal(t, "unlockme", result.UnlockCode)
	assert.Equal(t, computer, result.Computer)
}

func TestSecureEndpoint_IsolateErrorDetails(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"conflict", http.StatusConflict},
		{"ok with empty data", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"data":{},"errors":[{"description":"Conflict","details":["Computer is already isolated"]}]}`))
			}))
			defer server.Close()

			p := NewSecureEndpointProvider(server.Client(), endpointConfig(server.URL))

			_, err := p.Isolate(context.Background(), domain.Computer{ConnectorGUID: "guid-1"}, "c")

			var upstream *domain.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, "Computer is already isolated", upstream.Message)
		})
	}
}
