package rag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

// historyWindow is the number of prior messages sent with a question.
const historyWindow = 10

// Request is one chat turn.
type Request struct {
	Question    string           `json:"message" validate:"required,max=2000"`
	History     []ai.ChatMessage `json:"history" validate:"max=50"`
	FocusNodeID string           `json:"focused_node_id"`
}

// Answer carries the assembled context and the streamed reply. Stream is
// closed when the reply is complete.
type Answer struct {
	*Context
	Stream <-chan ai.StreamEvent
}

// Answer assembles the context for req and starts streaming the reply.
func (e *Engine) Answer(ctx context.Context, req Request) (*Answer, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: chat requires a model", ai.ErrNotConfigured)
	}
	c, err := e.AssembleContext(ctx, req.Question, req.FocusNodeID)
	if err != nil {
		return nil, err
	}
	logger.Info("[RAG] Answering question",
		"intent", c.Intent,
		"entities", len(c.Entities),
		"sections", len(c.Sections),
		"truncated", c.Truncated,
	)

	stream, err := e.client.GenerateChatStream(
		ctx,
		BuildMessages(c.Text(), req.Question, req.History),
		ai.WithSystemPrompts(ai.AnalystPrompt),
		ai.WithMaxTokens(2048),
	)
	if err != nil {
		return nil, err
	}
	return &Answer{Context: c, Stream: stream}, nil
}

// BuildMessages appends the question, wrapped in the graph context, to the
// last messages of the history. When the history already ends with the
// user's question the context is prepended to it instead.
func BuildMessages(graphContext, question string, history []ai.ChatMessage) []ai.ChatMessage {
	start := max(0, len(history)-historyWindow)
	msgs := slices.Clone(history[start:])

	if n := len(msgs); n > 0 && msgs[n-1].Role == "user" && strings.TrimSpace(msgs[n-1].Message) == strings.TrimSpace(question) {
		msgs[n-1].Message = fmt.Sprintf(ai.AnswerPrompt, graphContext, question)
		return msgs
	}
	return append(msgs, ai.ChatMessage{Role: "user", Message: fmt.Sprintf(ai.AnswerPrompt, graphContext, question)})
}

var dataSources = []struct {
	url   string
	words []string
}{
	{"https://open.philgeps.gov.ph", nil},
	{"https://coa.gov.ph/reports/annual-audit-reports", []string{"audit", "coa"}},
	{"https://www.ombudsman.gov.ph", []string{"saln", "net worth", "wealth declaration"}},
	{"https://comelec.gov.ph", []string{"campaign", "donation", "soce"}},
	{"https://www.gppb.gov.ph", []string{"blacklist"}},
	{"https://open-congress-api.bettergov.ph", []string{"bill", "congress", "legislat"}},
}

// Sources maps the context to the public data sources it draws on.
// PhilGEPS is always listed.
func Sources(graphContext string) []string {
	lower := strings.ToLower(graphContext)
	var out []string
	for _, s := range dataSources {
		if s.words == nil || containsAny(lower, s.words) {
			out = append(out, s.url)
		}
	}
	return out
}

type Suggestion struct {
	Question    string `json:"question"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

var suggestions = []Suggestion{
	{"Which contractors have the most single-source contracts?", "red_flags", "Find contractors that frequently win without competition"},
	{"Show me the top 5 agencies by procurement concentration", "analytics", "Agencies where a few contractors dominate"},
	{"Which contractors bid together most frequently?", "network", "Identify co-bidding patterns that may indicate collusion"},
	{"What are the biggest contracts awarded this year?", "procurement", "Largest government contracts by value"},
	{"Are there contractors with political family connections?", "red_flags", "Ownership chains linking contractors to politicians"},
	{"Which agencies have the most audit findings?", "accountability", "Agencies with repeated COA observations"},
	{"Show me contractors winning in regions far from their address", "red_flags", "Geographic anomalies in contract awards"},
	{"What is the total procurement value by agency type?", "analytics", "Breakdown of spending across national and local agencies"},
}

// Suggestions returns the suggested starter questions.
func Suggestions() []Suggestion {
	return slices.Clone(suggestions)
}
