package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"casino/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	ColorSuccess = 0x57F287 // Green
	ColorWarning = 0xFEE75C // Yellow
)

// EmbedSender is the part of *discordgo.Session the notifier needs
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts big wins and achievement unlocks to a channel.
// Delivery is best effort: failures are logged and dropped.
type DiscordNotifier struct {
	sender    EmbedSender
	channelID string
	threshold int64
}

// NewDiscordSession opens a bot session for the notifier
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord session: %w", err)
	}
	return session, nil
}

// NewDiscordNotifier announces wins of at least threshold coins
func NewDiscordNotifier(sender EmbedSender, channelID string, threshold int64) *DiscordNotifier {
	return &DiscordNotifier{
		sender:    sender,
		channelID: channelID,
		threshold: threshold,
	}
}

// Subscribe registers the notifier's handlers on bus
func (n *DiscordNotifier) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeGameSettled, func(ctx context.Context, e events.Event) {
		if settled, ok := e.(events.GameSettledEvent); ok {
			n.NotifySettlement(settled)
		}
	})
	bus.Subscribe(events.EventTypeAchievementUnlocked, func(ctx context.Context, e events.Event) {
		if unlocked, ok := e.(events.AchievementUnlockedEvent); ok {
			n.NotifyAchievement(unlocked)
		}
	})
}

// NotifySettlement announces a settlement whose win reaches the threshold.
// Returns whether a message was attempted.
func (n *DiscordNotifier) NotifySettlement(e events.GameSettledEvent) bool {
	if e.Won < n.threshold || e.Won <= 0 {
		return false
	}
	n.send(BigWinEmbed(e))
	return true
}

// NotifyAchievement announces an unlocked achievement
func (n *DiscordNotifier) NotifyAchievement(e events.AchievementUnlockedEvent) {
	n.send(AchievementEmbed(e))
}

func (n *DiscordNotifier) send(embed *discordgo.MessageEmbed) {
	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"channelID": n.channelID,
			"title":     embed.Title,
		}).Warn("Failed to send Discord notification")
	}
}

// BigWinEmbed renders a settlement for the channel
func BigWinEmbed(e events.GameSettledEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Big win on %s!", gameTitle(string(e.Game))),
		Color:       ColorSuccess,
		Description: fmt.Sprintf("Account #%d won %s coins", e.AccountID, FormatCoins(e.Won)),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Staked",
				Value:  FormatCoins(e.Staked),
				Inline: true,
			},
			{
				Name:   "Net",
				Value:  FormatCoins(e.Net()),
				Inline: true,
			},
			{
				Name:   "New Balance",
				Value:  FormatCoins(e.NewBalance),
				Inline: true,
			},
		},
	}
}

// AchievementEmbed renders an unlocked achievement for the channel
func AchievementEmbed(e events.AchievementUnlockedEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Achievement unlocked",
		Color:       ColorWarning,
		Description: fmt.Sprintf("Account #%d unlocked **%s**", e.AccountID, e.Code),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Reward",
				Value:  FormatCoins(e.Reward),
				Inline: true,
			},
		},
	}
}

func gameTitle(game string) string {
	if game == "" {
		return game
	}
	lower := strings.ToLower(game)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// FormatCoins formats an amount with thousands separators
func FormatCoins(amount int64) string {
	str := fmt.Sprintf("%d", amount)
	sign := ""
	if amount < 0 {
		sign, str = "-", str[1:]
	}

	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}
