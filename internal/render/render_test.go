package render

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive-corporation/responder/internal/core/domain"
)

func endpointEvents(n int) []domain.EndpointEvent {
	events := make([]domain.EndpointEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, domain.EndpointEvent{
			ID:            fmt.Sprint(i),
			Type:          "Threat Detected",
			Detection:     "W32.Trojan",
			Date:          time.Date(2024, 3, 5, 14, 33, 0, 0, time.UTC),
			Hostname:      fmt.Sprintf("WIN-%02d", i),
			User:          "jdoe@example.com",
			TrajectoryURL: "https://console.example.com/file/trajectory/abc",
		})
	}
	return events
}

func TestEndpointEvents(t *testing.T) {
	card := EndpointEvents(endpointEvents(2))

	assert.Equal(t, "2 Secure Endpoint events found", card.Title)
	require.Len(t, card.Fields, 2)
	require.Len(t, card.Sections, 2)
	assert.Equal(t, "Threat Detected on WIN-00 (User: jdoe)", card.Fields[0].Value)
	assert.Empty(t, card.Body)

	details := card.Sections[0]
	assert.Equal(t, "Details (#1)", details.Title)
	assert.Contains(t, details.Fields, domain.Field{Label: "Detected at", Value: "2024-03-05 14:33 UTC"})
	require.Len(t, details.Actions, 1)
	assert.Equal(t, "File Trajectory", details.Actions[0].Label)
}

func TestEndpointEvents_Truncated(t *testing.T) {
	card := EndpointEvents(endpointEvents(8))

	assert.Len(t, card.Fields, MaxDetailed)
	assert.Len(t, card.Sections, MaxDetailed)
	assert.Equal(t, "And 3 additional events.", card.Body)
}

func TestEmptyListsRenderNoResults(t *testing.T) {
	cards := []domain.Card{
		EndpointEvents(nil),
		DNSEvents([]domain.DNSEvent{}),
		IPReputation(domain.IPReputation{IP: "192.0.2.1"}),
	}

	for _, card := range cards {
		assert.Equal(t, NoResultsText, card.Body)
		assert.Nil(t, card.Fields)
		assert.Empty(t, card.Sections)
	}
}

func TestDNSEvents(t *testing.T) {
	card := DNSEvents([]domain.DNSEvent{{
		Domain:     "evil.example",
		Time:       time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		ExternalIP: "198.51.100.1",
		Verdict:    "blocked",
		ReportURL:  "https://dashboard.example.com/o/1/#/reports/activity?encodedFilters=x",
	}})

	assert.Equal(t, "1 Umbrella security event found", card.Title)
	require.Len(t, card.Fields, 1)
	assert.Equal(t, "evil.example", card.Fields[0].Value)
	require.Len(t, card.Sections, 1)
	assert.Contains(t, card.Sections[0].Fields, domain.Field{Label: "Action", Value: "blocked"})
	assert.Contains(t, card.Sections[0].Fields, domain.Field{Label: "Categories", Value: "None"})
	assert.Equal(t, "Open Event Log", card.Sections[0].Actions[0].Label)
}

func TestDomainReport(t *testing.T) {
	card := DomainReport(domain.DomainReport{
		Domain:             "evil.example",
		RiskScore:          92,
		Status:             -1,
		SecurityCategories: []string{"Malware", "Phishing"},
	})

	assert.Equal(t, "Umbrella Investigate Data", card.Title)
	assert.Contains(t, card.Fields, domain.Field{Label: "Risk Score", Value: "92 (critical)"})
	assert.Contains(t, card.Fields, domain.Field{Label: "Status", Value: "Malicious"})
	assert.Contains(t, card.Fields, domain.Field{Label: "Security Categories", Value: "Malware, Phishing"})
	assert.Contains(t, card.Fields, domain.Field{Label: "Content Categories", Value: "None"})
	assert.Contains(t, card.Fields, domain.Field{Label: "Registrar", Value: "Unknown"})
}

func TestIPReputation(t *testing.T) {
	seen := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	single := IPReputation(domain.IPReputation{
		IP:       "192.0.2.7",
		Listings: []domain.IPListing{{Detection: "mirai", Heuristic: "Botnet", Country: "NL", Seen: seen}},
	})
	assert.Equal(t, "IP Reputation for 192.0.2.7", single.Title)
	assert.Contains(t, single.Fields, domain.Field{Label: "Last Seen", Value: "2024-03-05 12:00 UTC"})
	assert.Empty(t, single.Sections)

	history := IPReputation(domain.IPReputation{
		IP:       "192.0.2.7",
		Listings: []domain.IPListing{{Detection: "mirai", Seen: seen}, {Detection: "gozi", Seen: seen.Add(-time.Hour)}},
	})
	assert.Len(t, history.Sections, 2)
}

func TestContainmentActions(t *testing.T) {
	card := ContainmentActions("WIN-7")

	assert.Equal(t, "Containment Actions", card.Title)
	require.Len(t, card.Actions, 2)

	assert.Equal(t, "isolate WIN-7", card.Actions[0].Command)
	assert.Nil(t, card.Actions[0].Input)

	assert.Equal(t, "notify WIN-7", card.Actions[1].Command)
	require.NotNil(t, card.Actions[1].Input)
	assert.Equal(t, NotifyInputID, card.Actions[1].Input.ID)
}

func TestIsolation(t *testing.T) {
	computer := domain.Computer{Hostname: "WIN-7"}

	tests := []struct {
		name   string
		result domain.IsolationResult
		body   string
	}{
		{"isolated", domain.IsolationResult{Computer: computer, Status: domain.StatusIsolated}, "Successfully quarantined WIN-7."},
		{"pending", domain.IsolationResult{Computer: computer, Status: domain.StatusPendingStart}, "Successfully processed request to quarantine WIN-7."},
		{
			"notice failed",
			domain.IsolationResult{Computer: computer, Status: domain.StatusIsolated, NotifyError: "SMTP relay is unreachable right now."},
			"Successfully quarantined WIN-7.\nThe notification email could not be sent: SMTP relay is unreachable right now.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.body, Isolation(tt.result).Body)
		})
	}

	notified := Isolation(domain.IsolationResult{Computer: computer, Status: domain.StatusIsolated, NotifiedTo: "jdoe@example.com"})
	assert.Contains(t, notified.Fields, domain.Field{Label: "User notified", Value: "jdoe@example.com"})
}

func TestHelpKeepsOrder(t *testing.T) {
	card := Help([]HelpEntry{{"events", "a"}, {"dns", "b"}, {"help", "c"}})

	require.Len(t, card.Fields, 3)
	assert.Equal(t, "events", card.Fields[0].Label)
	assert.Equal(t, "dns", card.Fields[1].Label)
	assert.Equal(t, "help", card.Fields[2].Label)
}

func TestErrorNamesKind(t *testing.T) {
	err := fmt.Errorf("failed to list events: %w", &domain.UpstreamError{Vendor: "Secure Endpoint", StatusCode: 503})

	card := Error(err)

	assert.Equal(t, []domain.Field{{Label: "Error", Value: "upstream"}}, card.Fields)
	assert.Equal(t, "Secure Endpoint returned an error (status 503).", card.Body)
	assert.Contains(t, card.Text(), "upstream")
}

func TestErrorHidesInternalDetail(t *testing.T) {
	card := Error(fmt.Errorf("dial tcp 10.1.2.3:5432: secret detail"))

	assert.Equal(t, "internal", card.Fields[0].Value)
	assert.NotContains(t, card.Text(), "10.1.2.3")
}

func TestDenied(t *testing.T) {
	card := Denied(domain.Sender{Email: "eve@evil.example"})
	assert.Equal(t, "Access denied", card.Title)
	assert.Contains(t, card.Body, "eve@evil.example")
}
