// Package outreach calls the external outreach API that sends SMS and runs
// mass campaigns on behalf of a signed-in dashboard user.
package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultUserAgent = "gymguard-dashboard/1.0"

	sendSMSPath   = "/api/messages/send-sms"
	massStartPath = "/api/campaigns/start-mass-outreach"

	// TargetGymHeader lets admins act on another gym's members.
	TargetGymHeader = "X-Target-Gym-ID"
)

var tracer = otel.Tracer("gymguard.internal.outreach")

var (
	// ErrMissingCredential is returned when a call is attempted without a session token.
	ErrMissingCredential = errors.New("outreach: session credential required")
	// ErrNoEligibleMembers is returned when the API found nobody to include in a campaign.
	ErrNoEligibleMembers = errors.New("outreach: no eligible members found")
)

// Config controls how the outreach client behaves.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client posts outreach actions to the outreach API. It never retries:
// a failed action is reported to the user, who decides whether to resend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}
}

// Credential identifies the dashboard user a call is made for.
type Credential struct {
	AccessToken string
	TargetGymID string
}

// SendSMSRequest is the body of a single-member send.
type SendSMSRequest struct {
	MemberID    string `json:"member_id"`
	MessageBody string `json:"message_body"`
}

// SendSMSResponse is returned when the API accepted a single send.
type SendSMSResponse struct {
	Status            string `json:"status"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// StartMassOutreachRequest is the body of a mass campaign start. The gym is
// resolved by the API from the caller's session.
type StartMassOutreachRequest struct {
	MessageBody string `json:"message_body"`
}

// MassOutreachResponse is returned by the mass campaign endpoint.
type MassOutreachResponse struct {
	Status        string `json:"status"`
	CampaignID    string `json:"campaign_id,omitempty"`
	EligibleCount int    `json:"eligible_count"`
}

// SendSMS asks the outreach API to text one member.
func (c *Client) SendSMS(ctx context.Context, cred Credential, req SendSMSRequest) (*SendSMSResponse, error) {
	if strings.TrimSpace(req.MemberID) == "" {
		return nil, errors.New("outreach: member id required")
	}
	if strings.TrimSpace(req.MessageBody) == "" {
		return nil, errors.New("outreach: message body required")
	}
	var out SendSMSResponse
	if err := c.post(ctx, "outreach.send_sms", sendSMSPath, "API send failed", cred, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartMassOutreach asks the outreach API to start a campaign. When the API
// reports nobody eligible, ErrNoEligibleMembers is returned alongside the
// decoded response.
func (c *Client) StartMassOutreach(ctx context.Context, cred Credential, req StartMassOutreachRequest) (*MassOutreachResponse, error) {
	if strings.TrimSpace(req.MessageBody) == "" {
		return nil, errors.New("outreach: message body required")
	}
	var out MassOutreachResponse
	if err := c.post(ctx, "outreach.start_mass", massStartPath, "Campaign start failed", cred, req, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.CampaignID) == "" {
		return &out, ErrNoEligibleMembers
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, spanName, path, fallback string, cred Credential, payload, out any) error {
	if strings.TrimSpace(cred.AccessToken) == "" {
		return ErrMissingCredential
	}
	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.route", path))

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outreach: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("outreach: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if target := strings.TrimSpace(cred.TargetGymID); target != "" {
		req.Header.Set(TargetGymHeader, target)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("outreach: http error: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("outreach: read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, data, fallback)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Message())
		c.logger.Warn("outreach call rejected",
			"path", path,
			"status", resp.StatusCode,
			"detail", apiErr.Detail,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return apiErr
	}

	c.logger.Debug("outreach call accepted",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("outreach: decode response: %w", err)
	}
	return nil
}
