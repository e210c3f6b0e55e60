package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type SMSConfig struct {
	BaseURL  string `json:"baseUrl" mapstructure:"base_url"`
	APIKey   string `json:"apiKey" mapstructure:"api_key"`
	SenderID string `json:"senderId" mapstructure:"sender_id"`
	Timeout  time.Duration
}

// SMSSender talks to the SMS gateway's message endpoint.
type SMSSender struct {
	baseURL  string
	apiKey   string
	senderID string

	hc *http.Client
}

func NewSMSSender(cfg *SMSConfig) *SMSSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SMSSender{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,

		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers one text message to phone.
func (s *SMSSender) Send(ctx context.Context, phone, body string) error {
	payload, err := json.Marshal(map[string]string{
		"to":        phone,
		"message":   body,
		"sender_id": s.senderID,
	})
	if err != nil {
		return fmt.Errorf("sms marshal: %w", err)
	}

	_baseURL, _ := url.Parse(s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s%s", _baseURL.String(), "/v1/messages"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sms http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("sms http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway status: %d", resp.StatusCode)
	}

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return fmt.Errorf("sms json.Decode: %w", err)
	}
	if reply.Status != "" && reply.Status != "success" {
		return fmt.Errorf("sms gateway reply: %s, %s", reply.Status, reply.Message)
	}

	return nil
}
