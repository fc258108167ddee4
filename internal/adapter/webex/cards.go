package webex

import (
	"fmt"
	"strings"

	"github.com/hive-corporation/responder/internal/core/domain"
)

const (
	adaptiveContentType = "application/vnd.microsoft.card.adaptive"
	adaptiveSchema      = "http://adaptivecards.io/schemas/adaptive-card.json"
	adaptiveVersion     = "1.2"
)

// Keys of the data object attached to submit buttons.
const (
	DataCommand  = "command"
	DataActionID = "action_id"
	DataInputID  = "input_id"
)

// Adaptive card structures, limited to the elements Webex renders.

type Attachment struct {
	ContentType string       `json:"contentType"`
	Content     AdaptiveCard `json:"content"`
}

type AdaptiveCard struct {
	Type    string       `json:"type"`
	Schema  string       `json:"$schema,omitempty"`
	Version string       `json:"version,omitempty"`
	Body    []Element    `json:"body"`
	Actions []CardAction `json:"actions,omitempty"`
}

type Element struct {
	Type        string    `json:"type"`
	Text        string    `json:"text,omitempty"`
	Size        string    `json:"size,omitempty"`
	Weight      string    `json:"weight,omitempty"`
	Wrap        bool      `json:"wrap,omitempty"`
	Style       string    `json:"style,omitempty"`
	Facts       []Fact    `json:"facts,omitempty"`
	Items       []Element `json:"items,omitempty"`
	ID          string    `json:"id,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
}

type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type CardAction struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	URL   string            `json:"url,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
	Card  *AdaptiveCard     `json:"card,omitempty"`
}

// NewAttachment converts a card to the attachment Webex expects.
func NewAttachment(card domain.Card) Attachment {
	return Attachment{
		ContentType: adaptiveContentType,
		Content:     BuildAdaptiveCard(card),
	}
}

func BuildAdaptiveCard(card domain.Card) AdaptiveCard {
	ac := AdaptiveCard{
		Type:    "AdaptiveCard",
		Schema:  adaptiveSchema,
		Version: adaptiveVersion,
	}

	// Header
	ac.Body = append(ac.Body, Element{
		Type:   "TextBlock",
		Text:   card.Title,
		Size:   "Medium",
		Weight: "Bolder",
		Wrap:   true,
	})

	if len(card.Fields) > 0 {
		ac.Body = append(ac.Body, factSet(card.Fields))
	}

	for _, line := range strings.Split(card.Body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ac.Body = append(ac.Body, Element{Type: "TextBlock", Text: line, Wrap: true})
	}

	// One show-card per section
	for _, s := range card.Sections {
		inner := &AdaptiveCard{
			Type: "AdaptiveCard",
			Body: []Element{{
				Type:  "Container",
				Style: "emphasis",
				Items: []Element{factSet(s.Fields)},
			}},
		}
		for _, a := range s.Actions {
			inner.Actions = append(inner.Actions, buildAction(a))
		}
		ac.Actions = append(ac.Actions, CardAction{
			Type:  "Action.ShowCard",
			Title: s.Title,
			Card:  inner,
		})
	}

	for _, a := range card.Actions {
		ac.Actions = append(ac.Actions, buildAction(a))
	}

	return ac
}

func buildAction(a domain.Action) CardAction {
	switch {
	case a.URL != "":
		return CardAction{Type: "Action.OpenUrl", Title: a.Label, URL: a.URL}
	case a.Input != nil:
		// Free text goes in a show-card with its own submit button
		return CardAction{
			Type:  "Action.ShowCard",
			Title: a.Label,
			Card: &AdaptiveCard{
				Type: "AdaptiveCard",
				Body: []Element{{
					Type:        "Input.Text",
					ID:          a.Input.ID,
					Placeholder: a.Input.Placeholder,
				}},
				Actions: []CardAction{{
					Type:  "Action.Submit",
					Title: "Send",
					Data:  submitData(a),
				}},
			},
		}
	default:
		return CardAction{Type: "Action.Submit", Title: a.Label, Data: submitData(a)}
	}
}

func submitData(a domain.Action) map[string]string {
	data := map[string]string{
		DataCommand:  a.Command,
		DataActionID: a.ID,
	}
	if a.Input != nil {
		data[DataInputID] = a.Input.ID
	}
	return data
}

func factSet(fields []domain.Field) Element {
	facts := make([]Fact, 0, len(fields))
	for _, f := range fields {
		facts = append(facts, Fact{Title: f.Label, Value: f.Value})
	}
	return Element{Type: "FactSet", Facts: facts}
}

// Markdown is the fallback text shown by clients that cannot render cards.
func Markdown(card domain.Card) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**", card.Title)
	for _, f := range card.Fields {
		fmt.Fprintf(&sb, "\n- %s: %s", f.Label, f.Value)
	}
	if card.Body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(card.Body)
	}
	return sb.String()
}

// CommandFromSubmission rebuilds the command line carried by a card
// submission: the button's command followed by the typed input, if any.
func CommandFromSubmission(inputs map[string]string) (string, bool) {
	cmd := strings.TrimSpace(inputs[DataCommand])
	if cmd == "" {
		return "", false
	}
	if id := inputs[DataInputID]; id != "" {
		value := strings.TrimSpace(inputs[id])
		if value == "" {
			return "", false
		}
		cmd += " " + value
	}
	return cmd, true
}
