package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MessageTransport delivers assistant replies to the user's messaging
// channel. The webhook response itself is only an acknowledgement.
type MessageTransport interface {
	Send(ctx context.Context, to, body string) error
}

// LogTransport writes outbound messages to the process log. Used in
// development and tests, where no messaging provider is configured.
type LogTransport struct{}

// NewLogTransport creates the development transport.
func NewLogTransport() *LogTransport {
	return &LogTransport{}
}

func (t *LogTransport) Send(ctx context.Context, to, body string) error {
	log.Printf("outbound message to %s: %s", to, body)
	return nil
}

// RESTTransport sends messages through a provider's REST API using
// account-SID basic auth and form-encoded bodies.
type RESTTransport struct {
	client     *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// NewRESTTransport creates a transport for the given provider account.
func NewRESTTransport(baseURL, accountSID, authToken, from string) *RESTTransport {
	return &RESTTransport{
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
	}
}

func (t *RESTTransport) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send message: provider returned %s", resp.Status)
	}
	return nil
}
