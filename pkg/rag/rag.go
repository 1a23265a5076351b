// Package rag answers questions over the knowledge graph. A question is
// classified, its entity names are resolved against the store, the matching
// nodes and their analytics are rendered into a text context trimmed to a
// token budget, and the model's answer is streamed back.
package rag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

type Intent string

const (
	IntentEntityLookup Intent = "entity_lookup"
	IntentRelationship Intent = "relationship_query"
	IntentAnalytical   Intent = "analytical"
	IntentOpenEnded    Intent = "open_ended"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentEntityLookup, IntentRelationship, IntentAnalytical, IntentOpenEnded:
		return true
	}
	return false
}

const (
	DefaultTokenBudget = 6000
	maxEntities        = 5
)

// FlagLister lists red flags grouped per entity. store.FlagStore serves the
// persisted set and detect.LiveFlags computes them on demand.
type FlagLister interface {
	ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error)
}

type Engine struct {
	reader  store.GraphReader
	client  ai.GraphAIClient
	flags   FlagLister
	vectors store.VectorStore
	budget  int
}

// Params configures an Engine. Flags and Vectors are optional: without
// Flags the context carries no red flags, without Vectors entity names are
// matched by text search only.
type Params struct {
	Reader      store.GraphReader
	Client      ai.GraphAIClient
	Flags       FlagLister
	Vectors     store.VectorStore
	TokenBudget int
}

func New(p Params) *Engine {
	if p.TokenBudget <= 0 {
		p.TokenBudget = DefaultTokenBudget
	}
	return &Engine{
		reader:  p.Reader,
		client:  p.Client,
		flags:   p.Flags,
		vectors: p.Vectors,
		budget:  p.TokenBudget,
	}
}

type intentReply struct {
	Intent string `json:"intent" jsonschema:"enum=entity_lookup,enum=relationship_query,enum=analytical,enum=open_ended"`
}

// Classify asks the model for the question's intent. An unusable answer or
// a failed call falls back to KeywordIntent.
func (e *Engine) Classify(ctx context.Context, question string) Intent {
	if e.client == nil {
		return KeywordIntent(question)
	}
	var out intentReply
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"intent",
		"The category of the user question",
		fmt.Sprintf(ai.IntentPrompt, question),
		&out,
		ai.WithMaxTokens(20),
	)
	if err != nil {
		logger.Warn("[RAG] Intent classification failed, using keywords", "err", err)
		return KeywordIntent(question)
	}
	intent := Intent(strings.ToLower(strings.Trim(strings.TrimSpace(out.Intent), `"'`)))
	if !intent.Valid() {
		logger.Debug("[RAG] Model returned unknown intent", "intent", out.Intent)
		return KeywordIntent(question)
	}
	return intent
}

var (
	relationshipWords = []string{"connect", "path", "link", "between", "relationship", "donate", "alliance", "ally"}
	analyticalWords   = []string{
		"top", "most", "highest", "risk", "flag", "hhi", "concentration", "bid", "pattern",
		"campaign", "donation", "saln", "wealth", "blacklist", "phoenix", "subcontract", "circular", "shell",
	}
	lookupPhrases = []string{"who is", "what is", "tell me about", "show me"}
)

// KeywordIntent classifies a question by keywords alone.
func KeywordIntent(question string) Intent {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, relationshipWords):
		return IntentRelationship
	case containsAny(q, analyticalWords):
		return IntentAnalytical
	case containsAny(q, lookupPhrases):
		return IntentEntityLookup
	}
	return IntentOpenEnded
}

type entityReply struct {
	Entities []string `json:"entities" jsonschema:"description=Entity names exactly as written in the question"`
}

// ExtractEntities returns up to five distinct entity names mentioned in the
// question. A failed call yields no names.
func (e *Engine) ExtractEntities(ctx context.Context, question string) []string {
	if e.client == nil {
		return nil
	}
	var out entityReply
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"entities",
		"Entity names mentioned in the user question",
		fmt.Sprintf(ai.EntityPrompt, question),
		&out,
		ai.WithMaxTokens(200),
	)
	if err != nil {
		logger.Warn("[RAG] Entity extraction failed", "err", err)
		return nil
	}

	var names []string
	for _, n := range out.Entities {
		n = strings.TrimSpace(n)
		if n == "" || slices.ContainsFunc(names, func(s string) bool { return strings.EqualFold(s, n) }) {
			continue
		}
		names = append(names, n)
		if len(names) == maxEntities {
			break
		}
	}
	return names
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
