package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Discord has no named colours, these match Slack's "good" and "danger".
const (
	discordColorGood    = 0x2EB886
	discordColorWarning = 0xDAA038
	discordColorDanger  = 0xA30200
)

// Discord rejects messages with more embeds than this.
const maxEmbedsPerMessage = 10

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	logger    zerolog.Logger
}

type NotifierConfig struct {
	Config map[string]string
}

func NewDiscordNotifier(config NotifierConfig, logger zerolog.Logger) (*DiscordNotifier, error) {
	token, exists := config.Config["DISCORD_BOT_TOKEN"]
	if !exists || token == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN not found in config")
	}
	channelID, exists := config.Config["DISCORD_CHANNEL_ID"]
	if !exists || channelID == "" {
		return nil, fmt.Errorf("DISCORD_CHANNEL_ID not found in config")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
		logger:    logger,
	}, nil
}

func (d *DiscordNotifier) Name() string { return "discord" }

// SendBatch sends the batch as one or more channel messages, chunked to the
// embed limit. One result is reported per message.
func (d *DiscordNotifier) SendBatch(ctx context.Context, batch Batch) (<-chan NotificationResult, error) {
	messages := BuildDiscordMessages(batch)
	resultChan := make(chan NotificationResult, len(messages))

	go func() {
		defer close(resultChan)

		for _, msg := range messages {
			result := NotificationResult{
				ID:        uuid.New().String(),
				Notifier:  d.Name(),
				Timestamp: time.Now(),
			}

			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				resultChan <- result
				return
			default:
			}

			_, err := d.session.ChannelMessageSendComplex(d.channelID, msg, discordgo.WithContext(ctx))
			if err != nil {
				result.Error = fmt.Errorf("failed to send Discord message: %w", err)
			} else {
				result.Success = true
				d.logger.Info().Str("id", result.ID).Msg("Discord notification sent successfully")
			}
			resultChan <- result
		}
	}()

	return resultChan, nil
}

func (d *DiscordNotifier) Close() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// BuildDiscordMessages renders a batch as embeds, splitting it when it has
// more units than one message can carry.
func BuildDiscordMessages(batch Batch) []*discordgo.MessageSend {
	content := strings.ReplaceAll(batch.Text, "<!channel>", "@here")

	embeds := make([]*discordgo.MessageEmbed, 0, len(batch.Units))
	for _, u := range batch.Units {
		embeds = append(embeds, discordEmbed(u))
	}

	var messages []*discordgo.MessageSend
	for len(embeds) > 0 {
		n := min(len(embeds), maxEmbedsPerMessage)
		messages = append(messages, &discordgo.MessageSend{Content: content, Embeds: embeds[:n]})
		embeds = embeds[n:]
	}
	return messages
}

func discordEmbed(u Unit) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       u.Title,
		Description: slackToDiscordMarkdown(strings.TrimRight(u.Text, "\n")),
		Color:       discordColor(u.Level),
	}
	if u.Title == "" {
		embed.Title = u.Fallback
	}
	if u.ThumbURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: u.ThumbURL}
	}
	if u.Pretext != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: u.Pretext}
	}
	for _, f := range u.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Title,
			Value:  slackToDiscordMarkdown(f.Value),
			Inline: f.Short,
		})
	}
	return embed
}

func discordColor(level Level) int {
	switch level {
	case LevelGood:
		return discordColorGood
	case LevelWarning:
		return discordColorWarning
	case LevelDanger:
		return discordColorDanger
	}
	if hex := strings.TrimPrefix(string(level), "#"); len(hex) == 6 {
		if v, err := strconv.ParseInt(hex, 16, 32); err == nil {
			return int(v)
		}
	}
	return 0
}

// Slack bolds with single asterisks, Discord with double.
func slackToDiscordMarkdown(s string) string {
	return strings.ReplaceAll(s, "*", "**")
}
