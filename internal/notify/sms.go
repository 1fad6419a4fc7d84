// Package notify delivers one-time codes to users. Delivery is best-effort:
// callers treat a failed or unconfigured send as "not delivered" and fall
// back to demo exposure, never as a request failure.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"eventconnect-server/internal/config"
	"eventconnect-server/internal/util"
)

// Notifier sends a message to a phone number.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioClient sends SMS through the Twilio Messages API.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTwilioClient(cfg config.SMSConfig, logger *zap.Logger) *TwilioClient {
	return &TwilioClient{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       cfg.FromNumber,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Twilio request failed", util.String("to", to), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Twilio API error",
			util.Int("status", resp.StatusCode),
			util.String("detail", string(detail)),
		)
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}

	c.logger.Info("SMS sent", util.String("to", to))
	return nil
}
