package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/config"
	"github.com/tinyland-inc/babelrelay/pkg/relay"
)

// DiscordChannel is the primary transport. Posting identities are channel
// webhooks; inbound events come from the gateway; the admin surface is a
// set of slash commands.
type DiscordChannel struct {
	*BaseChannel
	cfg      config.DiscordConfig
	operator config.OperatorConfig
	admin    Admin
	session  *discordgo.Session
}

func NewDiscordChannel(
	cfg config.DiscordConfig,
	operator config.OperatorConfig,
	b *bus.EventBus,
	admin Admin,
	log zerolog.Logger,
) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	c := &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", b, log),
		cfg:         cfg,
		operator:    operator,
		admin:       admin,
		session:     session,
	}

	session.AddHandler(c.onMessageCreate)
	session.AddHandler(c.onReactionAdd)
	session.AddHandler(c.onInteraction)

	return c, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	if err := c.registerCommands(); err != nil {
		c.session.Close()
		return err
	}
	c.SetRunning(true)
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	return c.session.Close()
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.WebhookID != "" {
		return
	}
	if m.Content == "" {
		return
	}

	c.publish(bus.Event{
		Kind:      bus.KindLive,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Author:    c.author(m.Message),
		Content:   m.Content,
		Reply:     c.replyContext(m.Message),
	})
}

func (c *DiscordChannel) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == s.State.User.ID {
		return
	}
	lang, ok := LangForFlag(r.Emoji.Name)
	if !ok {
		return
	}

	msg, err := s.ChannelMessage(r.ChannelID, r.MessageID)
	if err != nil {
		c.log.Warn().Err(err).Str("message_id", r.MessageID).Msg("fetching reacted message failed")
		return
	}
	if msg.Author == nil || msg.Author.Bot || msg.WebhookID != "" {
		return
	}

	c.publish(bus.Event{
		Kind:       bus.KindReaction,
		ChannelID:  r.ChannelID,
		MessageID:  r.MessageID,
		Author:     c.author(msg),
		Content:    msg.Content,
		Reply:      c.replyContext(msg),
		TargetLang: lang,
	})
}

func (c *DiscordChannel) author(m *discordgo.Message) bus.Author {
	name := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}
	return bus.Author{
		ID:          m.Author.ID,
		DisplayName: name,
		AvatarURL:   m.Author.AvatarURL(""),
		IsRelay:     m.Author.Bot || m.WebhookID != "",
	}
}

// replyContext extracts the replied-to message, fetching it when the
// gateway payload only carries the reference.
func (c *DiscordChannel) replyContext(m *discordgo.Message) *bus.Reply {
	ref := m.ReferencedMessage
	if ref == nil && m.MessageReference != nil && m.MessageReference.MessageID != "" {
		fetched, err := c.session.ChannelMessage(m.MessageReference.ChannelID, m.MessageReference.MessageID)
		if err != nil {
			c.log.Debug().Err(err).Msg("resolving reply reference failed")
			return nil
		}
		ref = fetched
	}
	if ref == nil || ref.Author == nil {
		return nil
	}

	name := ref.Author.Username
	if ref.Member != nil && ref.Member.Nick != "" {
		name = ref.Member.Nick
	}
	return &bus.Reply{AuthorName: name, Content: ref.Content}
}

// ---- relay.Transport ----

func (c *DiscordChannel) PostMessage(ctx context.Context, channelID string, identity relay.PostedIdentity, post relay.Post) (relay.PostedMessage, error) {
	msg, err := c.session.WebhookExecute(identity.ID, identity.Token, true, &discordgo.WebhookParams{
		Content:   post.Text,
		Username:  post.AuthorName,
		AvatarURL: post.AuthorAvatar,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return relay.PostedMessage{}, c.classify(err, fmt.Errorf("posting to %s: %w", channelID, err))
	}
	return relay.PostedMessage{
		ChannelID: channelID,
		MessageID: msg.ID,
		Identity:  identity,
	}, nil
}

func (c *DiscordChannel) DeleteMessage(ctx context.Context, msg relay.PostedMessage) error {
	return c.session.WebhookMessageDelete(msg.Identity.ID, msg.Identity.Token, msg.MessageID, discordgo.WithContext(ctx))
}

func (c *DiscordChannel) ListIdentities(ctx context.Context, channelID string) ([]relay.PostedIdentity, error) {
	hooks, err := c.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.classify(err, fmt.Errorf("listing webhooks for %s: %w", channelID, err))
	}

	out := make([]relay.PostedIdentity, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, relay.PostedIdentity{
			ChannelID: channelID,
			ID:        h.ID,
			Token:     h.Token,
			Name:      h.Name,
		})
	}
	return out, nil
}

func (c *DiscordChannel) CreateIdentity(ctx context.Context, channelID, name string) (relay.PostedIdentity, error) {
	hook, err := c.session.WebhookCreate(channelID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		return relay.PostedIdentity{}, c.classify(err, fmt.Errorf("creating webhook in %s: %w", channelID, err))
	}
	return relay.PostedIdentity{
		ChannelID: channelID,
		ID:        hook.ID,
		Token:     hook.Token,
		Name:      hook.Name,
	}, nil
}

func (c *DiscordChannel) FetchHistory(ctx context.Context, channelID string, limit int) ([]relay.HistoryItem, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.classify(err, fmt.Errorf("fetching history for %s: %w", channelID, err))
	}

	// The API returns newest first; backfill wants oldest first.
	out := make([]relay.HistoryItem, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Author == nil {
			continue
		}
		out = append(out, relay.HistoryItem{
			MessageID: m.ID,
			Author:    c.author(m),
			Content:   m.Content,
			Reply:     c.replyContext(m),
		})
	}
	return out, nil
}

// classify maps missing/forbidden channels onto the engine's
// unresolvable-destination sentinel.
func (c *DiscordChannel) classify(err, wrapped error) error {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return fmt.Errorf("%w: %w", relay.ErrDestinationUnresolvable, err)
		}
	}
	return wrapped
}

// ---- relay.Notifier ----

// NotifyOperator delivers an escalation as a direct message to the
// configured operator.
func (c *DiscordChannel) NotifyOperator(ctx context.Context, text string) error {
	if c.operator.UserID == "" {
		return nil
	}
	dm, err := c.session.UserChannelCreate(c.operator.UserID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening operator DM: %w", err)
	}
	if _, err := c.session.ChannelMessageSend(dm.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending operator DM: %w", err)
	}
	return nil
}
