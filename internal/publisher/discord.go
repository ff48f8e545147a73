package publisher

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// discordMessageLimit is Discord's hard cap per message.
const discordMessageLimit = 2000

// DiscordPublisher posts the newsletter into a channel, split into chunks
// under the message size limit.
type DiscordPublisher struct {
	token     string
	channelID string

	// newSession is swapped out by tests.
	newSession func(token string) (discordSession, error)
}

type discordSession interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func NewDiscordPublisher(token, channelID string) *DiscordPublisher {
	return &DiscordPublisher{
		token:     token,
		channelID: channelID,
		newSession: func(token string) (discordSession, error) {
			return discordgo.New("Bot " + token)
		},
	}
}

func (p *DiscordPublisher) Publish(_ context.Context, letter *Newsletter) error {

	session, err := p.newSession(p.token)
	if err != nil {
		return fmt.Errorf("discord: failed to create session: %w", err)
	}

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open session: %w", err)
	}
	defer session.Close()

	header := fmt.Sprintf("**%s** (%s - %s)\n\n",
		letter.Title,
		letter.StartDate.Format("2006-01-02"),
		letter.EndDate.Format("2006-01-02"))

	for _, chunk := range splitMessage(header+letter.Body, discordMessageLimit) {
		if _, err := session.ChannelMessageSend(p.channelID, chunk); err != nil {
			return fmt.Errorf("discord: failed to send message: %w", err)
		}
	}

	logrus.Infof("Newsletter posted to Discord channel %s", p.channelID)
	return nil
}

// splitMessage cuts the text at newlines so no chunk exceeds the limit. The
// limit counts runes, which is how Discord counts its cap, and the hard cut
// never lands inside a multi-byte rune.
func splitMessage(text string, limit int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
