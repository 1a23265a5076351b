package routes

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kwenta-ph/kwenta/backend/internal/server/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/rag"
)

type chatHistoryMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=8000"`
}

type chatContext struct {
	FocusedNodeID  string   `json:"focused_node_id"`
	VisibleNodeIDs []string `json:"visible_node_ids"`
}

type chatRequest struct {
	Message string               `json:"message" validate:"required,max=2000"`
	Context *chatContext         `json:"context"`
	History []chatHistoryMessage `json:"history" validate:"max=50,dive"`
}

type citation struct {
	ID   string          `json:"id"`
	Name string          `json:"name,omitempty"`
	Type common.NodeType `json:"type,omitempty"`
}

// ChatHandler streams an answer as server-sent events: message_id, then
// sources with the detected intent, then token and citation events while
// the model writes, and a final done event. A model failure mid-stream ends
// the stream with an error event instead of done.
func ChatHandler(c echo.Context) error {
	start := time.Now()
	data := new(chatRequest)
	if err := bind(c, data); err != nil {
		return util.FromError(c, err)
	}

	a := app(c)
	if a.Chat == nil {
		return util.FromError(c, ai.ErrNotConfigured)
	}

	req := rag.Request{Question: strings.TrimSpace(data.Message)}
	if data.Context != nil {
		req.FocusNodeID = data.Context.FocusedNodeID
	}
	for _, m := range data.History {
		req.History = append(req.History, ai.ChatMessage{Role: m.Role, Message: m.Content})
	}

	ctx := c.Request().Context()
	answer, err := a.Chat.Answer(ctx, req)
	if err != nil {
		if a.Metrics != nil {
			a.Metrics.ChatAnswered("", 0, 0, err)
		}
		return util.FromError(c, err)
	}

	messageID, err := gonanoid.New()
	if err != nil {
		messageID = start.Format("20060102150405.000000")
	}

	sse := util.NewSSEWriter(c.Response())
	// After a write error the stream is still drained to its end.
	writeErr := errors.Join(
		sse.Event("message_id", map[string]string{"message_id": messageID}),
		sse.Event("sources", map[string]any{
			"intent":    answer.Intent,
			"entities":  answer.Entities,
			"sources":   answer.Sources,
			"truncated": answer.Truncated,
		}),
	)

	var text strings.Builder
	citations := []citation{}
	seen := make(map[string]bool)
	onContent := func(s string) error {
		text.WriteString(s)
		if writeErr != nil {
			return nil
		}
		return sse.Event("token", map[string]string{"content": s})
	}
	onCitation := func(id string) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		cit := citation{ID: id}
		if n, err := a.Store.GetNode(ctx, id); err == nil {
			cit.Name, cit.Type = n.Label(), n.Type
		}
		citations = append(citations, cit)
		if writeErr != nil {
			return nil
		}
		return sse.Event("citation", cit)
	}

	var streamErr error
	parser := util.StreamCitationParser{}
	for ev := range answer.Stream {
		if ev.Type == "error" || ev.Err != nil {
			if streamErr == nil {
				streamErr = ev.Err
				if streamErr == nil {
					streamErr = errors.New(ev.Content)
				}
			}
			continue
		}
		if err := parser.Consume(ev.Content, onContent, onCitation); err != nil && writeErr == nil {
			writeErr = err
		}
	}
	if err := parser.Flush(onContent); err != nil && writeErr == nil {
		writeErr = err
	}

	if a.Metrics != nil {
		a.Metrics.ChatAnswered(string(answer.Intent), ai.CountTokens(answer.Text()), ai.CountTokens(text.String()), streamErr)
	}
	if streamErr != nil {
		logger.Error("[Server] Chat stream failed", "message_id", messageID, "err", streamErr)
		if writeErr == nil {
			_ = sse.Event("error", util.ErrorDetail{Code: "LLM_ERROR", Message: "The model failed while answering."})
		}
		return nil
	}
	if writeErr != nil {
		logger.Debug("[Server] Chat client disconnected", "message_id", messageID, "err", writeErr)
		return nil
	}

	_ = sse.Event("done", map[string]any{
		"intent":        answer.Intent,
		"graph_context": answer.Graph,
		"sources":       answer.Sources,
		"citations":     citations,
		"query_time_ms": newMeta(c, start).QueryTimeMs,
	})
	return nil
}

func SuggestionsHandler(c echo.Context) error {
	suggestions := rag.Suggestions()
	meta := newMeta(c, time.Now())
	meta.Count = len(suggestions)
	return ok(c, suggestions, meta)
}
