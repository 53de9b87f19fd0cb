package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SlackNotifier posts batches to a Slack incoming webhook. Each batch becomes
// one message with an attachment per unit.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     zerolog.Logger
}

type slackAttachment struct {
	Fallback   string       `json:"fallback"`
	Pretext    string       `json:"pretext"`
	Color      string       `json:"color"`
	Title      string       `json:"title,omitempty"`
	Text       string       `json:"text"`
	ThumbURL   string       `json:"thumb_url,omitempty"`
	Fields     []slackField `json:"fields"`
	MarkdownIn []string     `json:"mrkdwn_in,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackPayload is the JSON body of an incoming webhook message.
type SlackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
	Text        string            `json:"text"`
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji"`
	Channel     string            `json:"channel"`
}

func NewSlackNotifier(webhookURL string, logger zerolog.Logger) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

func (s *SlackNotifier) Name() string { return "slack" }

// SendBatch posts the batch as one webhook message. The result is delivered
// on the returned channel once Slack has answered.
func (s *SlackNotifier) SendBatch(ctx context.Context, batch Batch) (<-chan NotificationResult, error) {
	body, err := json.Marshal(BuildSlackPayload(batch))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	resultChan := make(chan NotificationResult, 1)
	notificationID := uuid.New().String()

	go func() {
		defer close(resultChan)

		result := NotificationResult{
			ID:        notificationID,
			Notifier:  s.Name(),
			Timestamp: time.Now(),
		}

		if err := s.post(ctx, body); err != nil {
			result.Error = err
		} else {
			result.Success = true
			s.logger.Info().Str("id", notificationID).Msg("Slack webhook notification sent")
		}

		resultChan <- result
	}()

	return resultChan, nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack webhook: %w", err)
	}
	defer resp.Body.Close()

	content, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(content)) != "ok" {
		return fmt.Errorf("slack webhook rejected message: status %d: %s", resp.StatusCode, content)
	}
	return nil
}

func (s *SlackNotifier) Close() error { return nil }

// BuildSlackPayload converts a batch to the incoming webhook JSON shape.
func BuildSlackPayload(batch Batch) SlackPayload {
	attachments := make([]slackAttachment, 0, len(batch.Units))
	for _, u := range batch.Units {
		fields := make([]slackField, 0, len(u.Fields))
		for _, f := range u.Fields {
			fields = append(fields, slackField{Title: f.Title, Value: f.Value, Short: f.Short})
		}
		attachments = append(attachments, slackAttachment{
			Fallback:   u.Fallback,
			Pretext:    u.Pretext,
			Color:      string(u.Level),
			Title:      u.Title,
			Text:       u.Text,
			ThumbURL:   u.ThumbURL,
			Fields:     fields,
			MarkdownIn: []string{"text"},
		})
	}

	icon := ""
	if batch.IconEmoji != "" {
		icon = ":" + strings.Trim(batch.IconEmoji, ":") + ":"
	}

	return SlackPayload{
		Attachments: attachments,
		Text:        batch.Text,
		Username:    batch.Username,
		IconEmoji:   icon,
		Channel:     batch.Channel,
	}
}
