// Package text produces agent replies for the synchronous text fallback
// channel.
//
// Two providers exist: Backend routes through the same conversation
// backend the voice agent uses; Canned reproduces the fixed local
// response set and serves as the default when no backend is configured.
package text

import (
	"context"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
)

// ReplyProvider produces one agent reply for the current transcript.
// The session controller bounds latency with the context deadline.
type ReplyProvider interface {
	Reply(ctx context.Context, transcript []types.Message, room *types.RoomContext) (string, error)
}

// latestVisitorText returns the content of the most recent visitor
// message, or "".
func latestVisitorText(transcript []types.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Author == types.AuthorVisitor {
			return transcript[i].Content
		}
	}
	return ""
}

// visitorTurns counts visitor messages in the transcript.
func visitorTurns(transcript []types.Message) int {
	n := 0
	for _, m := range transcript {
		if m.Author == types.AuthorVisitor {
			n++
		}
	}
	return n
}
