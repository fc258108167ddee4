package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/core/domain"
)

const vendor = "Webex"

// Doer is satisfied by *http.Client and *resilient.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a minimal Webex REST client for a bot account.
type Client struct {
	baseURL string
	token   string
	http    Doer
	logger  hclog.Logger
}

func NewClient(baseURL, token string, httpClient Doer, logger hclog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logger.Named("webex"),
	}
}

type Person struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"displayName"`
	Type        string   `json:"type"` // "person" or "bot"
}

// Email returns the primary address of the person.
func (p Person) Email() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

type Message struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	RoomType    string `json:"roomType"` // "direct" or "group"
	PersonID    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
	Text        string `json:"text"`
	HTML        string `json:"html"`
}

// AttachmentAction is a card submission.
type AttachmentAction struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // "submit"
	MessageID string            `json:"messageId"`
	PersonID  string            `json:"personId"`
	RoomID    string            `json:"roomId"`
	Inputs    map[string]string `json:"inputs"`
}

type Webhook struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	TargetURL string `json:"targetUrl"`
	Resource  string `json:"resource"`
	Event     string `json:"event"`
	Secret    string `json:"secret,omitempty"`
	Status    string `json:"status,omitempty"`
}

type postMessage struct {
	RoomID      string       `json:"roomId"`
	Markdown    string       `json:"markdown"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Me returns the bot's own identity. A rejected token surfaces as
// *domain.AuthenticationError.
func (c *Client) Me(ctx context.Context) (*Person, error) {
	var p Person
	if err := c.do(ctx, http.MethodGet, "/people/me", nil, &p); err != nil {
		return nil, fmt.Errorf("failed to get bot identity: %w", err)
	}
	return &p, nil
}

func (c *Client) GetPerson(ctx context.Context, personID string) (*Person, error) {
	var p Person
	if err := c.do(ctx, http.MethodGet, "/people/"+url.PathEscape(personID), nil, &p); err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &p, nil
}

func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var m Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(messageID), nil, &m); err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

func (c *Client) GetAttachmentAction(ctx context.Context, actionID string) (*AttachmentAction, error) {
	var a AttachmentAction
	if err := c.do(ctx, http.MethodGet, "/attachment/actions/"+url.PathEscape(actionID), nil, &a); err != nil {
		return nil, fmt.Errorf("failed to get attachment action: %w", err)
	}
	return &a, nil
}

// SendCard posts card to a room as an adaptive card with a markdown fallback.
func (c *Client) SendCard(ctx context.Context, roomID string, card domain.Card) error {
	msg := postMessage{
		RoomID:      roomID,
		Markdown:    Markdown(card),
		Attachments: []Attachment{NewAttachment(card)},
	}
	if err := c.do(ctx, http.MethodPost, "/messages", msg, nil); err != nil {
		return fmt.Errorf("failed to send card: %w", err)
	}
	return nil
}

// EnsureWebhooks registers the message and card-submission webhooks for
// targetURL unless they already exist.
func (c *Client) EnsureWebhooks(ctx context.Context, targetURL, secret string) error {
	var list struct {
		Items []Webhook `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/webhooks", nil, &list); err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}

	for _, resource := range []string{"messages", "attachmentActions"} {
		exists := false
		for _, w := range list.Items {
			if w.TargetURL == targetURL && w.Resource == resource && w.Event == "created" {
				exists = true
				break
			}
		}
		if exists {
			c.logger.Debug("webhook already registered", "resource", resource)
			continue
		}

		hook := Webhook{
			Name:      "responder " + resource,
			TargetURL: targetURL,
			Resource:  resource,
			Event:     "created",
			Secret:    secret,
		}
		if err := c.do(ctx, http.MethodPost, "/webhooks", hook, nil); err != nil {
			return fmt.Errorf("failed to register %s webhook: %w", resource, err)
		}
		c.logger.Info("🔗 webhook registered", "resource", resource, "target", targetURL)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.UpstreamError{Vendor: vendor, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &domain.AuthenticationError{Vendor: vendor, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &domain.NotFoundError{Vendor: vendor, Resource: "resource", ID: path}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return &domain.UpstreamError{Vendor: vendor, StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.MalformedResponseError{Vendor: vendor, Err: err}
	}
	return nil
}
