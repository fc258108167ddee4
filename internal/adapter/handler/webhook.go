package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/adapter/webex"
	"github.com/hive-corporation/responder/internal/core/dispatch"
	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/core/ports"
)

const (
	signatureHeader = "X-Spark-Signature"
	maxEventBytes   = 1 << 20
	eventTimeout    = 2 * time.Minute
)

// WebexAPI is the part of *webex.Client the webhook needs.
type WebexAPI interface {
	GetMessage(ctx context.Context, messageID string) (*webex.Message, error)
	GetAttachmentAction(ctx context.Context, actionID string) (*webex.AttachmentAction, error)
	GetPerson(ctx context.Context, personID string) (*webex.Person, error)
	ports.CardSender
}

type Dispatcher interface {
	Dispatch(ctx context.Context, raw string, sender domain.Sender) dispatch.Result
}

// WebhookConfig describes the bot account and how replies are posted.
type WebhookConfig struct {
	BotID      string
	BotName    string
	Secret     string
	DenySilent bool
}

type WebhookHandler struct {
	ctx        context.Context
	webex      WebexAPI
	dispatcher Dispatcher
	sessions   *Sessions
	config     WebhookConfig
	logger     hclog.Logger
}

// Event is the envelope Webex posts to a webhook target.
type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Resource string    `json:"resource"`
	Event    string    `json:"event"`
	Data     EventData `json:"data"`
}

type EventData struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	PersonID    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
	MessageID   string `json:"messageId"`
}

// NewWebhookHandler builds the handler. Event tasks derive from ctx, so
// cancelling it aborts in-flight upstream calls.
func NewWebhookHandler(ctx context.Context, api WebexAPI, dispatcher Dispatcher, sessions *Sessions, cfg WebhookConfig, logger hclog.Logger) *WebhookHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &WebhookHandler{
		ctx:        ctx,
		webex:      api,
		dispatcher: dispatcher,
		sessions:   sessions,
		config:     cfg,
		logger:     logger.Named("webhook"),
	}
}

// ServeHTTP acknowledges the event and processes it in the background.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if h.config.Secret != "" && !validSignature(h.config.Secret, body, r.Header.Get(signatureHeader)) {
		h.logger.Warn("🚫 rejected webhook with bad signature", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("❌ failed to decode webhook", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if event.Data.PersonID != "" && event.Data.PersonID == h.config.BotID {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !h.sessions.Go(event.Data.PersonID, func() { h.process(event) }) {
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	h.logger.Debug("📥 webhook accepted", "resource", event.Resource, "id", event.Data.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *WebhookHandler) process(event Event) {
	ctx, cancel := context.WithTimeout(h.ctx, eventTimeout)
	defer cancel()

	switch event.Resource {
	case "messages":
		h.handleMessage(ctx, event.Data)
	case "attachmentActions":
		h.handleSubmission(ctx, event.Data)
	default:
		h.logger.Debug("ignoring webhook resource", "resource", event.Resource)
	}
}

func (h *WebhookHandler) handleMessage(ctx context.Context, data EventData) {
	msg, err := h.webex.GetMessage(ctx, data.ID)
	if err != nil {
		h.logger.Error("❌ failed to fetch message", "id", data.ID, "error", err)
		return
	}
	if msg.PersonID == h.config.BotID {
		return
	}

	sender := domain.Sender{
		Email:    msg.PersonEmail,
		PersonID: msg.PersonID,
		RoomID:   msg.RoomID,
	}
	if person, err := h.webex.GetPerson(ctx, msg.PersonID); err != nil {
		h.logger.Warn("⚠️ failed to fetch sender, replying by email only", "person", msg.PersonID, "error", err)
	} else {
		sender.DisplayName = person.DisplayName
	}
	text := StripMention(msg.Text, h.config.BotName)
	h.reply(ctx, h.dispatcher.Dispatch(ctx, text, sender), sender)
}

// handleSubmission runs the command carried by a card button as the person
// who pressed it.
func (h *WebhookHandler) handleSubmission(ctx context.Context, data EventData) {
	action, err := h.webex.GetAttachmentAction(ctx, data.ID)
	if err != nil {
		h.logger.Error("❌ failed to fetch card submission", "id", data.ID, "error", err)
		return
	}
	if action.PersonID == h.config.BotID {
		return
	}

	person, err := h.webex.GetPerson(ctx, action.PersonID)
	if err != nil {
		h.logger.Error("❌ failed to fetch submitter", "person", action.PersonID, "error", err)
		return
	}

	command, ok := webex.CommandFromSubmission(action.Inputs)
	if !ok {
		// An empty input still runs the bare command so the user sees its usage.
		command = strings.TrimSpace(action.Inputs[webex.DataCommand])
	}
	if command == "" {
		h.logger.Warn("⚠️ card submission without a command", "id", action.ID)
		return
	}

	sender := domain.Sender{
		Email:       person.Email(),
		DisplayName: person.DisplayName,
		PersonID:    person.ID,
		RoomID:      action.RoomID,
	}
	h.reply(ctx, h.dispatcher.Dispatch(ctx, command, sender), sender)
}

func (h *WebhookHandler) reply(ctx context.Context, result dispatch.Result, sender domain.Sender) {
	if result.Kind == dispatch.ResultDenied && h.config.DenySilent {
		h.logger.Debug("dropping reply to denied sender", "sender", sender.Email, "request_id", result.RequestID)
		return
	}
	if err := h.webex.SendCard(ctx, sender.RoomID, result.Card); err != nil {
		h.logger.Error("❌ failed to send reply", "room", sender.RoomID, "request_id", result.RequestID, "error", err)
	}
}

// StripMention removes the bot's name from the front of a group-room
// message. Webex renders a mention as the display name, or its first word.
func StripMention(text, botName string) string {
	text = strings.TrimSpace(text)
	if botName == "" {
		return text
	}
	candidates := []string{botName}
	if first, _, ok := strings.Cut(botName, " "); ok {
		candidates = append(candidates, first)
	}
	for _, name := range candidates {
		if len(text) >= len(name) && strings.EqualFold(text[:len(name)], name) {
			rest := text[len(name):]
			if rest == "" || rest[0] == ' ' {
				return strings.TrimSpace(rest)
			}
		}
	}
	return text
}

func validSignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
