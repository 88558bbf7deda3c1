package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/config"
	"github.com/tinyland-inc/babelrelay/pkg/relay"
)

// SlackChannel is a second transport behind the same capability surface.
// Slack needs no created identity object: the bot posts with per-message
// username/icon overrides, so CreateIdentity is a local construct.
type SlackChannel struct {
	*BaseChannel
	cfg    config.SlackConfig
	api    *slack.Client
	socket *socketmode.Client
	cancel context.CancelFunc

	userMu    sync.Mutex
	userCache map[string]bus.Author
}

func NewSlackChannel(cfg config.SlackConfig, b *bus.EventBus, log zerolog.Logger) *SlackChannel {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &SlackChannel{
		BaseChannel: NewBaseChannel("slack", b, log),
		cfg:         cfg,
		api:         api,
		socket:      socketmode.New(api),
		userCache:   make(map[string]bus.Author),
	}
}

func (c *SlackChannel) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		if err := c.socket.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			c.log.Error().Err(err).Msg("socket mode connection ended")
		}
	}()
	go c.eventLoop(runCtx)

	c.SetRunning(true)
	return nil
}

func (c *SlackChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *SlackChannel) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			if evt.Request != nil {
				c.socket.Ack(*evt.Request)
			}

			switch inner := apiEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				c.onMessage(ctx, inner)
			case *slackevents.ReactionAddedEvent:
				c.onReaction(ctx, inner)
			}
		}
	}
}

func (c *SlackChannel) onMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.BotID != "" || ev.SubType != "" || ev.Text == "" {
		return
	}

	c.publish(bus.Event{
		Kind:      bus.KindLive,
		ChannelID: ev.Channel,
		MessageID: ev.TimeStamp,
		Author:    c.resolveUser(ctx, ev.User),
		Content:   ev.Text,
		Reply:     c.threadParent(ctx, ev.Channel, ev.ThreadTimeStamp, ev.TimeStamp),
	})
}

func (c *SlackChannel) onReaction(ctx context.Context, ev *slackevents.ReactionAddedEvent) {
	lang, ok := LangForFlag(ev.Reaction)
	if !ok || ev.Item.Type != "message" {
		return
	}

	msg, err := c.fetchMessage(ctx, ev.Item.Channel, ev.Item.Timestamp)
	if err != nil {
		c.log.Warn().Err(err).Str("ts", ev.Item.Timestamp).Msg("fetching reacted message failed")
		return
	}
	if msg.BotID != "" || msg.SubType == "bot_message" || msg.Text == "" {
		return
	}

	c.publish(bus.Event{
		Kind:       bus.KindReaction,
		ChannelID:  ev.Item.Channel,
		MessageID:  ev.Item.Timestamp,
		Author:     c.resolveUser(ctx, msg.User),
		Content:    msg.Text,
		Reply:      c.threadParent(ctx, ev.Item.Channel, msg.ThreadTimestamp, msg.Timestamp),
		TargetLang: lang,
	})
}

func (c *SlackChannel) fetchMessage(ctx context.Context, channelID, ts string) (*slack.Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Latest:    ts,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, fmt.Errorf("message %s not found in %s", ts, channelID)
	}
	return &resp.Messages[0], nil
}

// threadParent returns the thread root as reply context for threaded
// messages.
func (c *SlackChannel) threadParent(ctx context.Context, channelID, threadTS, ts string) *bus.Reply {
	if threadTS == "" || threadTS == ts {
		return nil
	}
	msgs, _, _, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     1,
	})
	if err != nil || len(msgs) == 0 {
		return nil
	}
	parent := msgs[0]
	return &bus.Reply{
		AuthorName: c.resolveUser(ctx, parent.User).DisplayName,
		Content:    parent.Text,
	}
}

func (c *SlackChannel) resolveUser(ctx context.Context, userID string) bus.Author {
	c.userMu.Lock()
	if a, ok := c.userCache[userID]; ok {
		c.userMu.Unlock()
		return a
	}
	c.userMu.Unlock()

	author := bus.Author{ID: userID, DisplayName: userID}
	if user, err := c.api.GetUserInfoContext(ctx, userID); err == nil {
		name := user.Profile.DisplayName
		if name == "" {
			name = user.RealName
		}
		author = bus.Author{
			ID:          userID,
			DisplayName: name,
			AvatarURL:   user.Profile.Image192,
			IsRelay:     user.IsBot,
		}
	}

	c.userMu.Lock()
	c.userCache[userID] = author
	c.userMu.Unlock()
	return author
}

// ---- relay.Transport ----

func (c *SlackChannel) PostMessage(ctx context.Context, channelID string, identity relay.PostedIdentity, post relay.Post) (relay.PostedMessage, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(post.Text, false)}
	if post.AuthorName != "" {
		opts = append(opts, slack.MsgOptionUsername(post.AuthorName))
	}
	if post.AuthorAvatar != "" {
		opts = append(opts, slack.MsgOptionIconURL(post.AuthorAvatar))
	}

	ch, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return relay.PostedMessage{}, c.classify(err, fmt.Errorf("posting to %s: %w", channelID, err))
	}
	return relay.PostedMessage{ChannelID: ch, MessageID: ts, Identity: identity}, nil
}

func (c *SlackChannel) DeleteMessage(ctx context.Context, msg relay.PostedMessage) error {
	_, _, err := c.api.DeleteMessageContext(ctx, msg.ChannelID, msg.MessageID)
	return err
}

func (c *SlackChannel) ListIdentities(ctx context.Context, channelID string) ([]relay.PostedIdentity, error) {
	// Nothing persisted on the platform side; identities are synthesized
	// in CreateIdentity and cached by the broker.
	return nil, nil
}

func (c *SlackChannel) CreateIdentity(ctx context.Context, channelID, name string) (relay.PostedIdentity, error) {
	return relay.PostedIdentity{ChannelID: channelID, ID: "bot", Name: name}, nil
}

func (c *SlackChannel) FetchHistory(ctx context.Context, channelID string, limit int) ([]relay.HistoryItem, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, c.classify(err, fmt.Errorf("fetching history for %s: %w", channelID, err))
	}

	// Newest first from the API; backfill wants oldest first.
	out := make([]relay.HistoryItem, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		m := resp.Messages[i]
		author := c.resolveUser(ctx, m.User)
		if m.BotID != "" || m.SubType == "bot_message" {
			author.IsRelay = true
		}
		out = append(out, relay.HistoryItem{
			MessageID: m.Timestamp,
			Author:    author,
			Content:   m.Text,
		})
	}
	return out, nil
}

func (c *SlackChannel) classify(err, wrapped error) error {
	msg := err.Error()
	if strings.Contains(msg, "channel_not_found") || strings.Contains(msg, "not_in_channel") {
		return fmt.Errorf("%w: %w", relay.ErrDestinationUnresolvable, err)
	}
	return wrapped
}
