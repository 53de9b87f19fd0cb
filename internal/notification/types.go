package notification

import (
	"context"
	"time"
)

// Level is the colour/urgency marker of a unit. Slack accepts the named
// levels as attachment colours; hex colours ("#D00000") are passed through.
type Level string

const (
	LevelGood    Level = "good"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

type Field struct {
	Title string
	Value string
	Short bool
}

// Unit is one formatted announcement, rendered as a Slack attachment or a
// Discord embed.
type Unit struct {
	Fallback string
	Pretext  string
	Title    string
	Text     string
	Level    Level
	ThumbURL string
	Fields   []Field
}

// Batch is delivered as a single message.
type Batch struct {
	Units     []Unit
	Text      string
	Username  string
	IconEmoji string
	Channel   string
}

type NotificationResult struct {
	ID        string
	Notifier  string
	Success   bool
	Error     error
	Timestamp time.Time
}

type Notifier interface {
	Name() string
	SendBatch(ctx context.Context, batch Batch) (<-chan NotificationResult, error)
	Close() error
}
