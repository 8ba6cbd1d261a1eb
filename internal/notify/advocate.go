package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// AdvocateClient delivers advocate notifications to an HTTP webhook.
type AdvocateClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

type advocateError struct {
	Message string `json:"message"`
}

func NewAdvocateClient(baseURL, token string, timeout time.Duration, retries int, logger *zap.Logger) *AdvocateClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &AdvocateClient{httpClient: client, logger: logger}
}

func (c *AdvocateClient) ScheduleReview(ctx context.Context, reason string, urgency Urgency, evidence map[string]any) error {
	return c.post(ctx, "/reviews", map[string]any{
		"reason":   reason,
		"urgency":  urgency,
		"evidence": evidence,
	})
}

func (c *AdvocateClient) SendAbuseAlert(ctx context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) error {
	return c.post(ctx, "/abuse-alerts", map[string]any{
		"caregiver_id": caregiverID,
		"flag_type":    flagType,
		"severity":     severity,
		"urgency":      UrgencyFor(severity),
		"description":  description,
		"evidence":     evidence,
	})
}

func (c *AdvocateClient) SendEmergencyAlert(ctx context.Context, reason, location string, urgency Urgency) error {
	body := map[string]any{
		"reason":  reason,
		"urgency": urgency,
	}
	if location != "" {
		body["location"] = location
	}
	return c.post(ctx, "/emergency-alerts", body)
}

func (c *AdvocateClient) post(ctx context.Context, path string, body map[string]any) error {
	var apiErr advocateError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		c.logger.Error("Advocate webhook call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call advocate webhook: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Advocate webhook returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", apiErr.Message),
		)
		return fmt.Errorf("advocate webhook %s: status %d", path, resp.StatusCode())
	}

	c.logger.Info("Advocate notified", zap.String("path", path))
	return nil
}
