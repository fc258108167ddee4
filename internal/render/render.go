// Package render turns vendor records and errors into transport-neutral
// cards. Every function is pure.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/hive-corporation/responder/internal/core/domain"
)

const (
	// MaxDetailed is the number of list entries given a detail section.
	MaxDetailed = 5

	NoResultsText = "No results found."

	timeLayout = "2006-01-02 15:04 MST"
)

// Input id of the email field on the containment actions card.
const NotifyInputID = "user_email_addr"

// HelpEntry is one line of the help card.
type HelpEntry struct {
	Name string
	Help string
}

// NoResults is the card for an empty list.
func NoResults(title string) domain.Card {
	return domain.Card{Title: title, Body: NoResultsText}
}

func EndpointEvents(events []domain.EndpointEvent) domain.Card {
	if len(events) == 0 {
		return NoResults("No Secure Endpoint events")
	}

	card := domain.Card{Title: fmt.Sprintf("%d Secure Endpoint %s found", len(events), plural(len(events), "event"))}

	for i, e := range events {
		if i == MaxDetailed {
			card.Body = additional(len(events)-MaxDetailed, "events")
			break
		}
		n := i + 1

		summary := fmt.Sprintf("%s on %s", e.Type, e.Hostname)
		if user := userName(e.User); user != "" {
			summary += fmt.Sprintf(" (User: %s)", user)
		}
		card.Fields = append(card.Fields, domain.Field{Label: fmt.Sprintf("#%d", n), Value: summary})

		section := domain.Section{
			Title: fmt.Sprintf("Details (#%d)", n),
			Fields: []domain.Field{
				{Label: "Computer", Value: e.Hostname},
				{Label: "Detected at", Value: formatTime(e.Date)},
				{Label: "Threat", Value: orNone(e.Detection)},
				{Label: "File Name", Value: orNone(e.FileName)},
				{Label: "Source IP", Value: orNone(e.ExternalIP)},
			},
		}
		if e.TrajectoryURL != "" {
			section.Actions = append(section.Actions, domain.Action{ID: fmt.Sprintf("trajectory-%d", n), Label: "File Trajectory", URL: e.TrajectoryURL})
		}
		if e.EventsURL != "" {
			section.Actions = append(section.Actions, domain.Action{ID: fmt.Sprintf("events-%d", n), Label: "Computer Events", URL: e.EventsURL})
		}
		card.Sections = append(card.Sections, section)
	}

	return card
}

func DNSEvents(events []domain.DNSEvent) domain.Card {
	if len(events) == 0 {
		return NoResults("No Umbrella security events")
	}

	card := domain.Card{Title: fmt.Sprintf("%d Umbrella security %s found", len(events), plural(len(events), "event"))}

	for i, e := range events {
		if i == MaxDetailed {
			card.Body = additional(len(events)-MaxDetailed, "events")
			break
		}
		n := i + 1

		card.Fields = append(card.Fields, domain.Field{Label: fmt.Sprintf("#%d", n), Value: e.Domain})

		section := domain.Section{
			Title: fmt.Sprintf("Details (#%d)", n),
			Fields: []domain.Field{
				{Label: "Detected at", Value: formatTime(e.Time)},
				{Label: "Source IP", Value: orNone(e.ExternalIP)},
				{Label: "Internal IP", Value: orNone(e.InternalIP)},
				{Label: "Identity", Value: orNone(e.Identity)},
				{Label: "Action", Value: orNone(e.Verdict)},
				{Label: "Categories", Value: joinOrNone(e.Categories)},
			},
		}
		if e.ReportURL != "" {
			section.Actions = []domain.Action{{ID: fmt.Sprintf("report-%d", n), Label: "Open Event Log", URL: e.ReportURL}}
		}
		card.Sections = append(card.Sections, section)
	}

	return card
}

func DomainReport(r domain.DomainReport) domain.Card {
	return domain.Card{
		Title: "Umbrella Investigate Data",
		Fields: []domain.Field{
			{Label: "Domain name", Value: r.Domain},
			{Label: "Risk Score", Value: fmt.Sprintf("%d (%s)", r.RiskScore, domain.RiskLevel(r.RiskScore))},
			{Label: "Status", Value: domain.DomainStatusLabel(r.Status)},
			{Label: "Security Categories", Value: joinOrNone(r.SecurityCategories)},
			{Label: "Content Categories", Value: joinOrNone(r.ContentCategories)},
			{Label: "Registrar", Value: orUnknown(r.Registrar)},
			{Label: "Registered Date", Value: orUnknown(r.Created)},
			{Label: "Expiration Date", Value: orUnknown(r.Expires)},
		},
	}
}

// IPReputation shows the latest listing as fields and every listing, up to
// MaxDetailed, as a section.
func IPReputation(r domain.IPReputation) domain.Card {
	title := fmt.Sprintf("IP Reputation for %s", r.IP)
	if len(r.Listings) == 0 {
		return NoResults(title)
	}

	latest := r.Listings[0]
	card := domain.Card{
		Title: title,
		Fields: []domain.Field{
			{Label: "Detected Activity", Value: orNone(latest.Detection)},
			{Label: "Determination", Value: orNone(latest.Heuristic)},
			{Label: "Country", Value: orUnknown(latest.Country)},
			{Label: "Last Seen", Value: formatTime(latest.Seen)},
		},
	}

	if len(r.Listings) < 2 {
		return card
	}

	for i, l := range r.Listings {
		if i == MaxDetailed {
			card.Body = additional(len(r.Listings)-MaxDetailed, "listings")
			break
		}
		fields := []domain.Field{
			{Label: "Dataset", Value: orNone(l.Dataset)},
			{Label: "Detection", Value: orNone(l.Detection)},
			{Label: "Seen", Value: formatTime(l.Seen)},
		}
		if !l.ValidUntil.IsZero() {
			fields = append(fields, domain.Field{Label: "Valid until", Value: formatTime(l.ValidUntil)})
		}
		card.Sections = append(card.Sections, domain.Section{Title: fmt.Sprintf("Listing (#%d)", i+1), Fields: fields})
	}

	return card
}

// ContainmentActions offers the actions that can be taken against hostname.
// Buttons carry the command line dispatched on submit.
func ContainmentActions(hostname string) domain.Card {
	return domain.Card{
		Title:  "Containment Actions",
		Fields: []domain.Field{{Label: "Target system", Value: hostname}},
		Body: strings.Join([]string{
			"Available Options:",
			"- Quarantine: Isolate computer from network",
			"- Notify User: Email user to bring in laptop for inspection",
			"Please select an action below:",
		}, "\n"),
		Actions: []domain.Action{
			{ID: "quarantine", Label: "Quarantine", Command: "isolate " + hostname},
			{
				ID:      "notify",
				Label:   "Notify User",
				Command: "notify " + hostname,
				Input:   &domain.Input{ID: NotifyInputID, Placeholder: "Enter email address"},
			},
		},
	}
}

func Isolation(r domain.IsolationResult) domain.Card {
	host := r.Computer.Hostname

	var body string
	switch r.Status {
	case domain.StatusIsolated:
		body = fmt.Sprintf("Successfully quarantined %s.", host)
	case domain.StatusPendingStart:
		body = fmt.Sprintf("Successfully processed request to quarantine %s.", host)
	default:
		body = fmt.Sprintf("Quarantine of %s returned status %q.", host, r.Status)
	}

	card := domain.Card{
		Title: "Quarantine",
		Fields: []domain.Field{
			{Label: "Computer", Value: host},
			{Label: "Status", Value: string(r.Status)},
		},
		Body: body,
	}
	if r.RequestedBy != "" {
		card.Fields = append(card.Fields, domain.Field{Label: "Requested by", Value: r.RequestedBy})
	}

	switch {
	case r.NotifyError != "":
		card.Body += "\nThe notification email could not be sent: " + r.NotifyError
	case r.NotifiedTo != "":
		card.Fields = append(card.Fields, domain.Field{Label: "User notified", Value: r.NotifiedTo})
	}

	return card
}

func Notification(hostname, email string) domain.Card {
	return domain.Card{
		Title: "Notify User",
		Fields: []domain.Field{
			{Label: "Target system", Value: hostname},
			{Label: "Recipient", Value: email},
		},
		Body: fmt.Sprintf("Message sent to %s!", email),
	}
}

func Help(entries []HelpEntry) domain.Card {
	card := domain.Card{
		Title: "Available commands",
		Body:  "Send a command name followed by its arguments.",
	}
	for _, e := range entries {
		card.Fields = append(card.Fields, domain.Field{Label: e.Name, Value: e.Help})
	}
	return card
}

// Error names the failure kind and a chat-safe message. Internal details of
// err are never shown.
func Error(err error) domain.Card {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindInternal
	}
	return domain.Card{
		Title:  "Command failed",
		Fields: []domain.Field{{Label: "Error", Value: string(kind)}},
		Body:   domain.UserMessage(err),
	}
}

func Denied(sender domain.Sender) domain.Card {
	return domain.Card{
		Title: "Access denied",
		Body:  fmt.Sprintf("Sorry %s, you are not allowed to use this bot.", displayName(sender)),
	}
}

func additional(n int, noun string) string {
	return fmt.Sprintf("And %d additional %s.", n, noun)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.UTC().Format(timeLayout)
}

// userName drops the domain part of an email-style account name.
func userName(user string) string {
	name, _, _ := strings.Cut(user, "@")
	return name
}

func displayName(s domain.Sender) string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.Email != "" {
		return s.Email
	}
	return "stranger"
}

func orNone(v string) string {
	if v == "" {
		return "None"
	}
	return v
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
