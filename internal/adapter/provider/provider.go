package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hive-corporation/responder/internal/core/domain"
)

// Doer is satisfied by *http.Client and *resilient.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// errorBody covers the error envelopes of the vendors we talk to.
type errorBody struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Errors           []struct {
		Description string   `json:"description"`
		Details     []string `json:"details"`
	} `json:"errors"`
}

func (b errorBody) text() string {
	for _, e := range b.Errors {
		if len(e.Details) > 0 {
			return strings.Join(e.Details, "; ")
		}
		if e.Description != "" {
			return e.Description
		}
	}
	switch {
	case b.ErrorDescription != "":
		return b.ErrorDescription
	case b.Message != "":
		return b.Message
	default:
		return b.Error
	}
}

// send executes req and maps transport failures to *domain.UpstreamError.
func send(client Doer, vendor string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			return nil, err
		}
		return nil, &domain.UpstreamError{Vendor: vendor, Err: err}
	}
	return resp, nil
}

// checkStatus classifies a non-2xx answer. notFound is returned for 404 when
// the caller knows which resource was requested.
func checkStatus(vendor string, resp *http.Response, notFound *domain.NotFoundError) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.AuthenticationError{Vendor: vendor, StatusCode: resp.StatusCode}
	case http.StatusNotFound:
		if notFound != nil {
			return notFound
		}
	}

	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	return &domain.UpstreamError{
		Vendor:     vendor,
		StatusCode: resp.StatusCode,
		Message:    body.text(),
	}
}

func decode(vendor string, r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return &domain.MalformedResponseError{Vendor: vendor, Err: fmt.Errorf("failed to decode json: %w", err)}
	}
	return nil
}

// getJSON sends req, checks the status and decodes a JSON body into out.
func getJSON(client Doer, vendor string, req *http.Request, notFound *domain.NotFoundError, out any) error {
	resp, err := send(client, vendor, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(vendor, resp, notFound); err != nil {
		return err
	}
	return decode(vendor, resp.Body, out)
}

func missingField(vendor, field string) error {
	return &domain.MalformedResponseError{Vendor: vendor, Err: fmt.Errorf("missing field %q", field)}
}
