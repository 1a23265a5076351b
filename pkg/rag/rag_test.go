package rag

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/memory"
)

type fakeAI struct {
	ai.Meter
	intent   string
	entities []string
	fail     bool
	reply    []string

	messages []ai.ChatMessage
	system   []string
}

func (f *fakeAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeAI) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	if f.fail {
		return errors.New("model unavailable")
	}
	var reply any
	switch name {
	case "intent":
		reply = map[string]any{"intent": f.intent}
	case "entities":
		reply = map[string]any{"entities": f.entities}
	}
	raw, _ := json.Marshal(reply)
	return json.Unmarshal(raw, out)
}

func (f *fakeAI) GenerateChatStream(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	f.messages = messages
	f.system = ai.ApplyOptions(ai.GenerateOptions{}, opts...).SystemPrompts
	out := make(chan ai.StreamEvent, len(f.reply))
	for _, r := range f.reply {
		out <- ai.StreamEvent{Type: "content", Content: r}
	}
	close(out)
	return out, nil
}

func (f *fakeAI) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{1, 0}, nil
}

func fixture() *memory.Store {
	var f memory.Fixture
	dpwh := f.Node(common.NodeAgency, "DPWH", nil)
	abc := f.Node(common.NodeContractor, "ABC CONSTRUCTION", nil)
	xyz := f.Node(common.NodeContractor, "XYZ BUILDERS", nil)
	f.Contract(dpwh, abc, "C-1", 5_000_000, "2023-01-10", common.Properties{"title": "Road widening"})
	f.Contract(dpwh, abc, "C-2", 3_000_000, "2023-03-10", nil)
	f.Contract(dpwh, xyz, "C-3", 1_000_000, "2023-05-10", nil)

	pol := f.Node(common.NodePolitician, "JUAN DELA CRUZ", common.Properties{"name": "Juan dela Cruz", "position": "Mayor"})
	saln := f.Node(common.NodeSALNRecord, "JUAN DELA CRUZ|2022", common.Properties{"year": 2022, "net_worth": 1_000_000})
	f.Edge(common.EdgeDeclaredWealth, pol, saln, nil)
	return f.Store()
}

func TestKeywordIntent(t *testing.T) {
	cases := map[string]Intent{
		"How is ABC connected to the mayor?":        IntentRelationship,
		"Which agencies have the highest HHI?":      IntentAnalytical,
		"Who is Juan dela Cruz?":                    IntentEntityLookup,
		"Give me something interesting":            IntentOpenEnded,
		"What links DPWH and ABC Construction?":     IntentRelationship,
		"Which contractors are on the blacklist?":   IntentAnalytical,
		"Tell me about the Department of Education": IntentEntityLookup,
	}
	for q, want := range cases {
		if got := KeywordIntent(q); got != want {
			t.Fatalf("KeywordIntent(%q) = %s, want %s", q, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	q := "Who is Juan dela Cruz?"

	e := New(Params{Reader: memory.New(), Client: &fakeAI{intent: "Analytical"}})
	if got := e.Classify(ctx, q); got != IntentAnalytical {
		t.Fatalf("expected the model intent, got %s", got)
	}

	e = New(Params{Reader: memory.New(), Client: &fakeAI{intent: "gossip"}})
	if got := e.Classify(ctx, q); got != IntentEntityLookup {
		t.Fatalf("expected keyword fallback for an unknown intent, got %s", got)
	}

	e = New(Params{Reader: memory.New(), Client: &fakeAI{fail: true}})
	if got := e.Classify(ctx, q); got != IntentEntityLookup {
		t.Fatalf("expected keyword fallback for a failed call, got %s", got)
	}
}

func TestExtractEntities(t *testing.T) {
	e := New(Params{Reader: memory.New(), Client: &fakeAI{
		entities: []string{" DPWH ", "dpwh", "", "A", "B", "C", "D", "E"},
	}})
	got := e.ExtractEntities(context.Background(), "q")
	if !reflect.DeepEqual(got, []string{"DPWH", "A", "B", "C", "D"}) {
		t.Fatalf("unexpected entities %v", got)
	}

	e = New(Params{Reader: memory.New(), Client: &fakeAI{fail: true}})
	if got := e.ExtractEntities(context.Background(), "q"); got != nil {
		t.Fatalf("expected no entities on failure, got %v", got)
	}
}

func TestAssembleContextEntityLookup(t *testing.T) {
	e := New(Params{Reader: fixture(), Client: &fakeAI{
		intent:   "entity_lookup",
		entities: []string{"ABC Construction", "DPWH"},
	}})
	c, err := e.AssembleContext(context.Background(), "Tell me about ABC Construction at DPWH", "")
	if err != nil {
		t.Fatalf("AssembleContext: %v", err)
	}
	text := c.Text()
	for _, want := range []string{
		"Entity: ABC CONSTRUCTION (Type: Contractor)",
		"Contractor Profile: ABC CONSTRUCTION",
		"Total value: PHP 8,000,000.00",
		"Contracts for ABC CONSTRUCTION (2 shown):",
		"Agency Analytics for DPWH:",
		"Contracts between DPWH and ABC CONSTRUCTION (2 contracts, total PHP 8,000,000.00):",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("context is missing %q:\n%s", want, text)
		}
	}
	if _, ok := c.Graph.(analytics.NodeDetailResult); !ok {
		t.Fatalf("expected node detail as graph context, got %T", c.Graph)
	}
	if !reflect.DeepEqual(c.Sources, []string{"https://open.philgeps.gov.ph"}) {
		t.Fatalf("unexpected sources %v", c.Sources)
	}
}

func TestAssembleContextPolitician(t *testing.T) {
	e := New(Params{Reader: fixture(), Client: &fakeAI{
		intent:   "entity_lookup",
		entities: []string{"Juan dela Cruz"},
	}})
	c, err := e.AssembleContext(context.Background(), "Who is Juan dela Cruz?", "")
	if err != nil {
		t.Fatalf("AssembleContext: %v", err)
	}
	if !strings.Contains(c.Text(), "Year 2022: Net worth PHP 1,000,000.00") {
		t.Fatalf("expected the SALN timeline:\n%s", c.Text())
	}
	if !slices.Contains(c.Sources, "https://www.ombudsman.gov.ph") {
		t.Fatalf("expected the ombudsman as a source, got %v", c.Sources)
	}
}

func TestAssembleContextRelationship(t *testing.T) {
	e := New(Params{Reader: fixture(), Client: &fakeAI{
		intent:   "relationship_query",
		entities: []string{"ABC Construction", "XYZ Builders"},
	}})
	c, err := e.AssembleContext(context.Background(), "How is ABC Construction linked to XYZ Builders?", "")
	if err != nil {
		t.Fatalf("AssembleContext: %v", err)
	}
	path, ok := c.Graph.(common.Path)
	if !ok || path.Length != 4 {
		t.Fatalf("expected a 4 hop path, got %+v", c.Graph)
	}
	if !strings.HasPrefix(c.Text(), "Path from ABC CONSTRUCTION to XYZ BUILDERS (4 hops):") {
		t.Fatalf("unexpected context:\n%s", c.Text())
	}

	e = New(Params{Reader: fixture(), Client: &fakeAI{
		intent:   "relationship_query",
		entities: []string{"ABC Construction", "Nobody Inc"},
	}})
	c, err = e.AssembleContext(context.Background(), "How is ABC linked to Nobody Inc?", "")
	if err != nil {
		t.Fatalf("AssembleContext: %v", err)
	}
	if c.Text() != "Could not find entity: Nobody Inc" {
		t.Fatalf("unexpected context %q", c.Text())
	}
}

type staticFlags []common.FlaggedEntity

func (s staticFlags) ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error) {
	return s, nil
}

func TestAssembleContextAnalytical(t *testing.T) {
	flags := staticFlags{{
		EntityID:   "Contractor:ABC CONSTRUCTION",
		EntityName: "ABC CONSTRUCTION",
		EntityType: common.NodeContractor,
		RiskScore:  3,
		Flags:      []common.RedFlag{{Type: "single_bidder", Severity: common.SeverityHigh, Description: "won 3 contracts alone"}},
	}}
	e := New(Params{Reader: fixture(), Flags: flags, Client: &fakeAI{intent: "analytical"}})
	c, err := e.AssembleContext(context.Background(), "Which contractors carry the most risk, and what are the totals?", "Agency:DPWH")
	if err != nil {
		t.Fatalf("AssembleContext: %v", err)
	}
	text := c.Text()
	for _, want := range []string{
		"Highest risk entities (1):",
		"[HIGH] single_bidder: won 3 contracts alone",
		"Graph statistics:",
		"Total contract value: PHP 9,000,000.00",
		"Currently focused entity:\nEntity: DPWH (Type: Agency)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("context is missing %q:\n%s", want, text)
		}
	}
}

func TestAssembleContextTrimsToBudget(t *testing.T) {
	e := New(Params{Reader: fixture(), TokenBudget: 10, Client: &fakeAI{
		intent:   "entity_lookup",
		entities: []string{"ABC Construction"},
	}})
	c, err := e.AssembleContext(context.Background(), "Tell me about ABC Construction", "")
	if err != nil {
		t.Fatalf("AssembleContext: %v", err)
	}
	if !c.Truncated {
		t.Fatalf("expected the context to be truncated")
	}
	if strings.Contains(c.Text(), "Contractor Profile:") {
		t.Fatalf("expected later sections to be dropped:\n%s", c.Text())
	}
}

func TestAnswerStreams(t *testing.T) {
	client := &fakeAI{intent: "entity_lookup", entities: []string{"DPWH"}, reply: []string{"DPWH ", "procured ", "3 contracts."}}
	e := New(Params{Reader: fixture(), Client: client})

	ans, err := e.Answer(context.Background(), Request{Question: "What is DPWH?"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	var b strings.Builder
	for ev := range ans.Stream {
		b.WriteString(ev.Content)
	}
	if b.String() != "DPWH procured 3 contracts." {
		t.Fatalf("unexpected reply %q", b.String())
	}
	if ans.Intent != IntentEntityLookup {
		t.Fatalf("unexpected intent %s", ans.Intent)
	}
	if len(client.system) != 1 || client.system[0] != ai.AnalystPrompt {
		t.Fatalf("expected the analyst system prompt")
	}
	last := client.messages[len(client.messages)-1]
	if last.Role != "user" || !strings.Contains(last.Message, "Entity: DPWH (Type: Agency)") || !strings.HasSuffix(last.Message, "Answer the question using the graph context above.") {
		t.Fatalf("unexpected prompt %q", last.Message)
	}

	if _, err := New(Params{Reader: fixture()}).Answer(context.Background(), Request{Question: "q"}); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without a model, got %v", err)
	}
}

func TestBuildMessages(t *testing.T) {
	var history []ai.ChatMessage
	for range 12 {
		history = append(history, ai.ChatMessage{Role: "assistant", Message: "earlier"})
	}
	history = append(history, ai.ChatMessage{Role: "user", Message: "Who won C-1?"})

	msgs := BuildMessages("ctx", "Who won C-1?", history)
	if len(msgs) != historyWindow {
		t.Fatalf("expected %d messages, got %d", historyWindow, len(msgs))
	}
	if !strings.HasPrefix(msgs[len(msgs)-1].Message, "Graph context:\nctx") {
		t.Fatalf("expected the context in the last user message, got %q", msgs[len(msgs)-1].Message)
	}
	if history[len(history)-1].Message != "Who won C-1?" {
		t.Fatalf("history must not be modified")
	}

	msgs = BuildMessages("ctx", "Next question", history[:2])
	if len(msgs) != 3 || msgs[2].Role != "user" {
		t.Fatalf("expected the question appended, got %+v", msgs)
	}
}

func TestSources(t *testing.T) {
	got := Sources("COA audit findings and SOCE campaign donations, blacklist entries")
	want := []string{
		"https://open.philgeps.gov.ph",
		"https://coa.gov.ph/reports/annual-audit-reports",
		"https://comelec.gov.ph",
		"https://www.gppb.gov.ph",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sources = %v", got)
	}
}

func TestSuggestionsAreCopied(t *testing.T) {
	s := Suggestions()
	if len(s) != 8 {
		t.Fatalf("expected 8 suggestions, got %d", len(s))
	}
	s[0].Question = "changed"
	if Suggestions()[0].Question == "changed" {
		t.Fatalf("Suggestions must return a copy")
	}
}

func TestIndexEmbeddings(t *testing.T) {
	st := fixture()
	n, err := IndexEmbeddings(context.Background(), st, st, &fakeAI{}, 2)
	if err != nil {
		t.Fatalf("IndexEmbeddings: %v", err)
	}
	if n == 0 {
		t.Fatalf("no nodes embedded")
	}

	hits, err := st.SearchSimilar(context.Background(), []float32{1, 0}, common.NodeContract, 10)
	if err != nil {
		t.Fatalf("SearchSimilar: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("contracts are not embedded, got %v", hits)
	}
	hits, _ = st.SearchSimilar(context.Background(), []float32{1, 0}, "", 100)
	if len(hits) != n {
		t.Fatalf("similar hits = %d, want %d", len(hits), n)
	}
}

func TestEmbeddingText(t *testing.T) {
	n := common.Node{ID: "Agency:dpwh", Type: common.NodeAgency, Properties: common.Properties{"name": "DPWH"}}
	if got := embeddingText(n); got != "Agency: DPWH" {
		t.Fatalf("embeddingText = %q", got)
	}
}
