package channels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const defaultHistoryLimit = 100

// registerCommands installs the administrative slash commands. When a
// guild id is configured they are registered there (instant propagation);
// otherwise globally.
func (c *DiscordChannel) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "link",
			Description: "Link a channel to a target language",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to link",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "lang",
					Description: "Target language code",
					Required:    true,
				},
			},
		},
		{
			Name:        "unlink",
			Description: "Unlink a channel from translations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to unlink",
					Required:    true,
				},
			},
		},
		{
			Name:        "listlinks",
			Description: "List all linked channels",
		},
		{
			Name:        "translatehistory",
			Description: "Relay past messages from a channel to all linked channels",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Source channel",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "Number of past messages to scan (default 100)",
				},
			},
		},
	}

	appID := c.session.State.User.ID
	for _, cmd := range commands {
		if _, err := c.session.ApplicationCommandCreate(appID, c.cfg.GuildID, cmd); err != nil {
			return fmt.Errorf("registering /%s: %w", cmd.Name, err)
		}
	}
	return nil
}

func (c *DiscordChannel) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case "link":
		c.handleLink(s, i, data)
	case "unlink":
		c.handleUnlink(s, i, data)
	case "listlinks":
		c.handleListLinks(s, i)
	case "translatehistory":
		c.handleTranslateHistory(s, i, data)
	}
}

func (c *DiscordChannel) handleLink(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	channel := data.Options[0].ChannelValue(s)
	lang := data.Options[1].StringValue()

	entry, err := c.admin.Link(channel.ID, lang)
	if err != nil {
		c.respond(s, i, fmt.Sprintf("⚠️ Linking failed: %v", err))
		return
	}
	c.respond(s, i, fmt.Sprintf("✅ Linked <#%s> to `%s`", entry.ChannelID, entry.Lang))
}

func (c *DiscordChannel) handleUnlink(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	channel := data.Options[0].ChannelValue(s)

	existed, err := c.admin.Unlink(channel.ID)
	if err != nil {
		c.respond(s, i, fmt.Sprintf("⚠️ Unlinking failed: %v", err))
		return
	}
	if !existed {
		c.respond(s, i, "⚠️ That channel isn't linked.")
		return
	}
	c.respond(s, i, fmt.Sprintf("❌ Unlinked <#%s>", channel.ID))
}

func (c *DiscordChannel) handleListLinks(s *discordgo.Session, i *discordgo.InteractionCreate) {
	links := c.admin.Links()
	if len(links) == 0 {
		c.respond(s, i, "No linked channels yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🌐 **Linked Channels:**\n")
	for _, l := range links {
		fmt.Fprintf(&sb, "<#%s> → %s\n", l.ChannelID, l.Lang)
	}
	c.respond(s, i, sb.String())
}

func (c *DiscordChannel) handleTranslateHistory(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	channel := data.Options[0].ChannelValue(s)
	limit := defaultHistoryLimit
	for _, opt := range data.Options[1:] {
		if opt.Name == "limit" {
			limit = int(opt.IntValue())
		}
	}

	// Backfill can take a while; defer the response and follow up.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("deferring interaction failed")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		count, err := c.admin.Backfill(ctx, c.Name(), channel.ID, limit)
		var content string
		if err != nil {
			content = fmt.Sprintf("⚠️ History translation failed: %v", err)
		} else {
			content = fmt.Sprintf("✅ Relayed %d messages from <#%s>", count, channel.ID)
		}
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		}); err != nil {
			c.log.Warn().Err(err).Msg("backfill followup failed")
		}
	}()
}

func (c *DiscordChannel) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("interaction response failed")
	}
}
