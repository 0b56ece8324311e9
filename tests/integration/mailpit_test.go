//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MailpitClient reads delivered notifications through the Mailpit REST API.
type MailpitClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMailpitClient creates a new Mailpit API client.
func NewMailpitClient(host string, port int) *MailpitClient {
	return &MailpitClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// MailpitMessage is a delivered email.
type MailpitMessage struct {
	ID      string           `json:"ID"`
	From    MailpitAddress   `json:"From"`
	To      []MailpitAddress `json:"To"`
	Subject string           `json:"Subject"`
	// Text is only filled for messages fetched one by one.
	Text string `json:"Text"`
}

// MailpitAddress is a mailbox of a message header.
type MailpitAddress struct {
	Address string `json:"Address"`
	Name    string `json:"Name"`
}

// MessagesTo returns the messages addressed to email, newest first, with bodies.
func (c *MailpitClient) MessagesTo(email string) ([]MailpitMessage, error) {
	var found struct {
		Messages []MailpitMessage `json:"messages"`
	}
	if err := c.getJSON("/api/v1/search?query="+url.QueryEscape("to:"+email), &found); err != nil {
		return nil, fmt.Errorf("search messages to %s: %w", email, err)
	}

	result := make([]MailpitMessage, 0, len(found.Messages))
	for _, m := range found.Messages {
		var full MailpitMessage
		if err := c.getJSON("/api/v1/message/"+m.ID, &full); err != nil {
			return nil, fmt.Errorf("get message %s: %w", m.ID, err)
		}
		result = append(result, full)
	}
	return result, nil
}

func (c *MailpitClient) getJSON(path string, v interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
