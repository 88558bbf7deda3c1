package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

// ReplyResolver renders the quote block for a replied-to message. The
// quoted text is translated into the destination language; if that
// translation fails the original text is used instead. That fallback is
// local recovery and is never escalated.
type ReplyResolver struct {
	translator translate.Translator
	log        zerolog.Logger
}

func NewReplyResolver(translator translate.Translator, log zerolog.Logger) *ReplyResolver {
	return &ReplyResolver{
		translator: translator,
		log:        log.With().Str("component", "reply").Logger(),
	}
}

// QuoteBlock returns the formatted quote line plus separator, or the empty
// string when there is no reply context.
func (r *ReplyResolver) QuoteBlock(ctx context.Context, reply *bus.Reply, targetLang string) string {
	if reply == nil {
		return ""
	}

	quoted := reply.Content
	translated, err := r.translator.Translate(ctx, reply.Content, targetLang)
	if err != nil {
		r.log.Warn().Err(err).Str("lang", targetLang).
			Msg("reply quote translation failed, falling back to original text")
	} else {
		quoted = translated
	}

	return fmt.Sprintf("↪ Replying to %s: %s\n\n", reply.AuthorName, quoted)
}
