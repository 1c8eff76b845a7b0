package resolver

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kweaver00/askgraph/internal/cache"
	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/task"
)

type fakeGraph struct {
	nodes []model.Node
	edges map[string][]model.Node
	fail  bool
}

func (f *fakeGraph) GetNodeByText(ctx context.Context, text string) (*model.Node, error) {
	if f.fail {
		return nil, fmt.Errorf("connection refused")
	}
	for i, node := range f.nodes {
		if strings.EqualFold(strings.TrimSpace(node.Text), strings.TrimSpace(text)) {
			return &f.nodes[i], nil
		}
	}
	return nil, nil
}

func (f *fakeGraph) SearchNodesByText(ctx context.Context, text string) ([]model.Node, error) {
	if f.fail {
		return nil, fmt.Errorf("connection refused")
	}
	var matches []model.Node
	for _, node := range f.nodes {
		if strings.Contains(strings.ToLower(node.Text), strings.ToLower(strings.TrimSpace(text))) {
			matches = append(matches, node)
		}
	}
	return matches, nil
}

func (f *fakeGraph) GetTargetNodes(ctx context.Context, nodeID string) ([]model.Node, error) {
	if f.fail {
		return nil, fmt.Errorf("connection refused")
	}
	return f.edges[nodeID], nil
}

func (f *fakeGraph) HasOutboundEdges(ctx context.Context, nodeID string) (bool, error) {
	if f.fail {
		return false, fmt.Errorf("connection refused")
	}
	return len(f.edges[nodeID]) > 0, nil
}

type fakeFAQ struct {
	faqs       []model.FAQ
	fail       bool
	exactCalls int
}

func (f *fakeFAQ) GetByQuestion(ctx context.Context, question string) (*model.FAQ, error) {
	f.exactCalls++
	if f.fail {
		return nil, fmt.Errorf("connection refused")
	}
	for i, faq := range f.faqs {
		if strings.EqualFold(strings.TrimSpace(faq.Question), strings.TrimSpace(question)) {
			return &f.faqs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeFAQ) SearchPartial(ctx context.Context, question string) ([]model.FAQ, error) {
	if f.fail {
		return nil, fmt.Errorf("connection refused")
	}
	var matches []model.FAQ
	for _, faq := range f.faqs {
		if strings.Contains(strings.ToLower(faq.Question), strings.ToLower(strings.TrimSpace(question))) {
			matches = append(matches, faq)
		}
	}
	return matches, nil
}

type fakeHistory struct {
	messages   []*model.ChatMessage
	failAppend bool
}

func (f *fakeHistory) ResolveSessionRef(ctx context.Context, userID, ref string) (string, error) {
	if ref == "42" {
		return "sess-42", nil
	}
	return ref, nil
}

func (f *fakeHistory) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	if f.failAppend {
		return fmt.Errorf("history store down")
	}
	f.messages = append(f.messages, msg)
	return nil
}

type fakeEmbedder struct{ fail bool }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("embedding service down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeSearcher struct {
	chunks []model.ScoredChunk
	fail   bool
}

func (f *fakeSearcher) Search(ctx context.Context, embedding []float32, topK int) ([]model.ScoredChunk, error) {
	if f.fail {
		return nil, fmt.Errorf("vector store down")
	}
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

type fakeDispatcher struct {
	dispatched []*task.Message
	fail       bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, msg *task.Message) error {
	if f.fail {
		return fmt.Errorf("broker down")
	}
	f.dispatched = append(f.dispatched, msg)
	return nil
}

type deps struct {
	graph      *fakeGraph
	faqs       *fakeFAQ
	answers    *cache.AnswerCache
	history    *fakeHistory
	embedder   *fakeEmbedder
	searcher   *fakeSearcher
	dispatcher *fakeDispatcher
}

func newDeps() *deps {
	return &deps{
		graph:      &fakeGraph{edges: map[string][]model.Node{}},
		faqs:       &fakeFAQ{},
		answers:    cache.NewAnswerCache(100, time.Minute),
		history:    &fakeHistory{},
		embedder:   &fakeEmbedder{},
		searcher:   &fakeSearcher{},
		dispatcher: &fakeDispatcher{},
	}
}

func (d *deps) resolver() *Resolver {
	return New(d.graph, d.faqs, d.answers, d.history, d.embedder, d.searcher, d.dispatcher, 5)
}

func chunks(n int) []model.ScoredChunk {
	var out []model.ScoredChunk
	for i := 0; i < n; i++ {
		out = append(out, model.ScoredChunk{
			Text:         fmt.Sprintf("chunk %d", i),
			DocumentName: "doc.txt",
			PageNumber:   i + 1,
			Score:        float32(i) * 0.1,
		})
	}
	return out
}

func TestResolveExactGraphMatch(t *testing.T) {
	d := newDeps()
	d.graph.nodes = []model.Node{
		{ID: "n1", Text: "How do I reset my password?"},
		{ID: "n2", Text: "Via the settings page"},
		{ID: "n3", Text: "Contact the admin"},
		{ID: "n4", Text: "Open settings"},
	}
	d.graph.edges["n1"] = []model.Node{{ID: "n2", Text: "Via the settings page"}, {ID: "n3", Text: "Contact the admin"}}
	d.graph.edges["n2"] = []model.Node{{ID: "n4", Text: "Open settings"}}
	// A matching FAQ must lose to the graph tier.
	d.faqs.faqs = []model.FAQ{{ID: "f1", Question: "How do I reset my password?", Answer: "see docs"}}

	res, err := d.resolver().Resolve(context.Background(), &Request{Question: "  how do i RESET my password?  "})
	require.NoError(t, err)
	require.Equal(t, SourceKnowledgeGraph, res.Source)
	require.Len(t, res.Targets, 2)
	require.Equal(t, "Via the settings page", res.Targets[0].Text)
	require.Equal(t, "Contact the admin", res.Targets[1].Text)
	require.True(t, res.Targets[0].IsSource)
	require.False(t, res.Targets[1].IsSource)

	require.Zero(t, d.faqs.exactCalls)
}

func TestResolveFuzzyGraphMatchDeduplicates(t *testing.T) {
	d := newDeps()
	d.graph.nodes = []model.Node{
		{ID: "n1", Text: "billing: invoices overdue"},
		{ID: "n2", Text: "billing: refunds"},
	}
	shared := model.Node{ID: "t1", Text: "Ask accounting"}
	d.graph.edges["n1"] = []model.Node{shared, {ID: "t2", Text: "Check the ledger"}}
	d.graph.edges["n2"] = []model.Node{shared}

	res, err := d.resolver().Resolve(context.Background(), &Request{Question: "billing"})
	require.NoError(t, err)
	require.Equal(t, SourceKnowledgeGraph, res.Source)
	require.Len(t, res.Targets, 2)
	require.Equal(t, "t1", res.Targets[0].ID)
	require.Equal(t, "t2", res.Targets[1].ID)
}

func TestResolveGraphStoreFailureIsHardError(t *testing.T) {
	d := newDeps()
	d.graph.fail = true

	_, err := d.resolver().Resolve(context.Background(), &Request{Question: "anything"})
	require.ErrorIs(t, err, appErr.ErrGraphUnavailable)
	require.Zero(t, d.faqs.exactCalls)
}

func TestResolveFAQExactAndCachePopulation(t *testing.T) {
	d := newDeps()
	d.faqs.faqs = []model.FAQ{{ID: "f1", Question: "What is X?", Answer: "X is a thing", Category: "general"}}
	r := d.resolver()

	res, err := r.Resolve(context.Background(), &Request{Question: "What is X?"})
	require.NoError(t, err)
	require.Equal(t, SourceFAQ, res.Source)
	require.Equal(t, "X is a thing", res.Answer)
	require.Equal(t, "f1", res.FAQID)
	require.Equal(t, 1, d.faqs.exactCalls)

	// Different casing and padding hit the cache entry, not the FAQ store.
	for _, variant := range []string{" what is x? ", "WHAT IS X?"} {
		res, err := r.Resolve(context.Background(), &Request{Question: variant})
		require.NoError(t, err)
		require.Equal(t, SourceCache, res.Source)
		require.Equal(t, "X is a thing", res.Answer)
		require.Equal(t, "f1", res.FAQID)
	}
	require.Equal(t, 1, d.faqs.exactCalls)
}

func TestResolveFAQPartialPicksFirstMatch(t *testing.T) {
	d := newDeps()
	d.faqs.faqs = []model.FAQ{
		{ID: "f2", Question: "How does vacation accrual work?", Answer: "accrues monthly"},
		{ID: "f3", Question: "Can vacation carry over?", Answer: "up to 5 days"},
	}

	res, err := d.resolver().Resolve(context.Background(), &Request{Question: "vacation"})
	require.NoError(t, err)
	require.Equal(t, SourceFAQ, res.Source)
	require.Equal(t, "f2", res.FAQID)
	require.Equal(t, "accrues monthly", res.Answer)
}

func TestResolveFAQFailureDegradesToRAG(t *testing.T) {
	d := newDeps()
	d.faqs.fail = true
	d.searcher.chunks = chunks(3)

	res, err := d.resolver().Resolve(context.Background(), &Request{Question: "anything", ClientID: "c1"})
	require.NoError(t, err)
	require.Equal(t, SourceRAGPending, res.Source)
}

func TestResolveRAGPending(t *testing.T) {
	d := newDeps()
	d.searcher.chunks = chunks(7)

	res, err := d.resolver().Resolve(context.Background(), &Request{
		Question:  "what does the handbook say about overtime",
		SessionID: "sess-1",
		UserID:    "user-1",
		ClientID:  "client-1",
	})
	require.NoError(t, err)
	require.Equal(t, SourceRAGPending, res.Source)
	require.NotEmpty(t, res.TaskID)

	require.Len(t, d.dispatcher.dispatched, 1)
	msg := d.dispatcher.dispatched[0]
	require.Equal(t, res.TaskID, msg.MessageID)
	require.Equal(t, "client-1", msg.ClientID)
	require.Equal(t, "sess-1", msg.SessionID)
	require.Equal(t, "user-1", msg.UserID)
	// Search is capped at top-K.
	require.Len(t, msg.ContextChunks, 5)

	// The pending marker lands in chat history before the async answer.
	require.Len(t, d.history.messages, 1)
	require.Equal(t, string(SourceRAGPending), d.history.messages[0].Source)
}

func TestResolveNotFoundWhenNoChunks(t *testing.T) {
	d := newDeps()

	res, err := d.resolver().Resolve(context.Background(), &Request{
		Question:  "completely unknown topic",
		SessionID: "sess-1",
		UserID:    "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, SourceNotFound, res.Source)
	require.Equal(t, NotFoundMessage, res.Message)
	require.Empty(t, d.dispatcher.dispatched)
	require.Empty(t, d.history.messages)
}

func TestResolveEmbeddingFailureIsNotFound(t *testing.T) {
	d := newDeps()
	d.embedder.fail = true

	res, err := d.resolver().Resolve(context.Background(), &Request{Question: "anything"})
	require.NoError(t, err)
	require.Equal(t, SourceNotFound, res.Source)
}

func TestResolveHistoryFailureIsTolerated(t *testing.T) {
	d := newDeps()
	d.faqs.faqs = []model.FAQ{{ID: "f1", Question: "What is X?", Answer: "X is a thing"}}
	d.history.failAppend = true

	res, err := d.resolver().Resolve(context.Background(), &Request{
		Question: "What is X?", SessionID: "sess-1", UserID: "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, SourceFAQ, res.Source)
}

func TestResolveNumericSessionRefIsTranslated(t *testing.T) {
	d := newDeps()
	d.faqs.faqs = []model.FAQ{{ID: "f1", Question: "What is X?", Answer: "X is a thing"}}

	_, err := d.resolver().Resolve(context.Background(), &Request{
		Question: "What is X?", SessionID: "42", UserID: "user-1",
	})
	require.NoError(t, err)
	require.Len(t, d.history.messages, 1)
	require.Equal(t, "sess-42", d.history.messages[0].SessionID)
}

func TestResolveExactNodeWithoutTargetsFallsThrough(t *testing.T) {
	d := newDeps()
	d.graph.nodes = []model.Node{{ID: "n1", Text: "dead end"}}
	d.faqs.faqs = []model.FAQ{{ID: "f1", Question: "dead end", Answer: "nothing beyond here"}}

	res, err := d.resolver().Resolve(context.Background(), &Request{Question: "dead end"})
	require.NoError(t, err)
	require.Equal(t, SourceFAQ, res.Source)
}
