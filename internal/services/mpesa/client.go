package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type ClientConfig struct {
	BaseURL        string `json:"baseUrl" mapstructure:"base_url"`
	ConsumerKey    string `json:"consumerKey" mapstructure:"consumer_key"`
	ConsumerSecret string `json:"consumerSecret" mapstructure:"consumer_secret"`
	Timeout        time.Duration
}

type Client struct {
	// baseURL is the base url of the Daraja gateway.
	baseURL string

	// consumerKey and consumerSecret authenticate the OAuth call.
	consumerKey    string
	consumerSecret string

	// accessToken is used to authenticate gateway calls.
	accessToken string

	// mu guards accessToken.
	mu sync.Mutex

	// toggleTokenRefresher notifies the refresher to renew the token now.
	toggleTokenRefresher chan struct{}

	// hc is the http client.
	hc *http.Client
}

// newClient creates a new Daraja http client.
func newClient(_ context.Context, c *ClientConfig) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:        c.BaseURL,
		consumerKey:    c.ConsumerKey,
		consumerSecret: c.ConsumerSecret,

		// make a buffered channel to avoid blocking.
		toggleTokenRefresher: make(chan struct{}, 1),

		// set http client with timeout.
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// notifyAccessTokenExpired runs an infinite loop renewing the gateway
// access token before its one-hour expiry, with an exponential backOff
// strategy when the gateway is unreachable.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(45 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: toggleTokenRefresher => token refreshed")
		}

		// reconnect with exponential backOff strategy
		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

// setAccessToken set access token to client.
func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

// getAccessToken get access token from client.
func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect performs the OAuth client-credentials call against the gateway.
func (c *Client) connect(ctx context.Context) (string, error) {
	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s%s", _baseURL.String(), "/oauth/v1/generate?grant_type=client_credentials"), nil)
	if err != nil {
		return "", fmt.Errorf("connectMpesa: http.NewReq: %v", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("connectMpesa: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connectMpesa: resp.StatusCode: %d", resp.StatusCode)
	}

	var reply struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("connectMpesa: json.Decode: %v", err)
	}
	if reply.AccessToken == "" {
		return "", errors.New("connectMpesa: empty access token in reply")
	}

	return fmt.Sprintf("Bearer %s", reply.AccessToken), nil
}

// postJSON issues an authenticated POST with jsonBody and decodes the
// reply into out. A 401 kicks the token refresher before reporting the
// failure so the next attempt retries with a fresh token.
func (c *Client) postJSON(ctx context.Context, path string, jsonBody []byte, out any) error {
	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s%s", _baseURL.String(), path), newBodyReader(jsonBody))
	if err != nil {
		return fmt.Errorf("postJSON %s: http.NewReq: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("postJSON %s: http.Do: %w", path, err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		select {
		case c.toggleTokenRefresher <- struct{}{}:
		default:
		}
		return errors.New("postJSON: resp.StatusCode: 401 => Unauthorized")
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("postJSON %s: json.Decode: %w", path, err)
	}

	return nil
}
