package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/cache"
	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/task"
)

// GraphStore is the load-bearing knowledge-graph lookup surface. Unlike the
// other tiers, its failures abort resolution instead of degrading.
type GraphStore interface {
	GetNodeByText(ctx context.Context, text string) (*model.Node, error)
	SearchNodesByText(ctx context.Context, text string) ([]model.Node, error)
	GetTargetNodes(ctx context.Context, nodeID string) ([]model.Node, error)
	HasOutboundEdges(ctx context.Context, nodeID string) (bool, error)
}

type FAQStore interface {
	GetByQuestion(ctx context.Context, question string) (*model.FAQ, error)
	SearchPartial(ctx context.Context, question string) ([]model.FAQ, error)
}

// HistoryStore persists resolved answers; failures are logged, never fatal.
type HistoryStore interface {
	ResolveSessionRef(ctx context.Context, userID, ref string) (string, error)
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]model.ScoredChunk, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg *task.Message) error
}

// Source tags where an answer came from, for client display and chat
// history.
type Source string

const (
	SourceKnowledgeGraph Source = "knowledge_graph"
	SourceCache          Source = "cache"
	SourceFAQ            Source = "faq"
	SourceRAGPending     Source = "rag_pending"
	SourceNotFound       Source = "not_found"
)

const NotFoundMessage = "I couldn't find relevant information for your question. Try rephrasing it or upload documents that cover the topic."

// Result is a tagged union: exactly the variant named by Source is set.
type Result struct {
	Source   Source             `json:"source"`
	Question string             `json:"question"`
	Targets  []model.TargetNode `json:"targets,omitempty"`
	Answer   string             `json:"answer,omitempty"`
	FAQID    string             `json:"faq_id,omitempty"`
	Category string             `json:"category,omitempty"`
	TaskID   string             `json:"task_id,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// AnswerText renders the variant for chat-history bookkeeping.
func (r *Result) AnswerText() string {
	switch r.Source {
	case SourceKnowledgeGraph:
		texts := make([]string, 0, len(r.Targets))
		for _, t := range r.Targets {
			texts = append(texts, t.Text)
		}
		return strings.Join(texts, "\n")
	case SourceCache, SourceFAQ:
		return r.Answer
	case SourceRAGPending:
		return "Processing your question, the answer will follow shortly."
	default:
		return r.Message
	}
}

// Request identifies one inbound question. SessionID and UserID are
// optional; ClientID names the live connection awaiting async results.
type Request struct {
	Question  string
	SessionID string
	UserID    string
	ClientID  string
}

// Resolver answers questions by trying sources in strict priority order:
// exact graph match, fuzzy graph match, answer cache, FAQ, RAG fallback.
// It stops at the first tier that produces a usable answer.
type Resolver struct {
	graph      GraphStore
	faqs       FAQStore
	answers    *cache.AnswerCache
	history    HistoryStore
	embedder   Embedder
	vectors    VectorSearcher
	dispatcher Dispatcher
	topK       int
}

func New(graph GraphStore, faqs FAQStore, answers *cache.AnswerCache, history HistoryStore,
	embedder Embedder, vectors VectorSearcher, dispatcher Dispatcher, topK int) *Resolver {
	if topK <= 0 {
		topK = 5
	}
	return &Resolver{
		graph:      graph,
		faqs:       faqs,
		answers:    answers,
		history:    history,
		embedder:   embedder,
		vectors:    vectors,
		dispatcher: dispatcher,
		topK:       topK,
	}
}

func (r *Resolver) Resolve(ctx context.Context, req *Request) (*Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	result, err := r.resolveGraph(ctx, question)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = r.resolveCache(ctx, question)
	}
	if result == nil {
		result = r.resolveFAQ(ctx, question)
	}
	if result == nil {
		result, err = r.resolveRAG(ctx, req, question)
		if err != nil {
			return nil, err
		}
	}
	logger.Debug("question resolved", zap.String("source", string(result.Source)))

	if result.Source != SourceNotFound {
		r.saveHistory(ctx, req, result)
	}
	return result, nil
}

// resolveGraph covers the exact tier and, on miss, the fuzzy substring
// tier. Store failures here are hard errors.
func (r *Resolver) resolveGraph(ctx context.Context, question string) (*Result, error) {
	node, err := r.graph.GetNodeByText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: node lookup: %v", appErr.ErrGraphUnavailable, err)
	}
	if node != nil {
		targets, err := r.targetsOf(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		if len(targets) > 0 {
			return &Result{Source: SourceKnowledgeGraph, Question: question, Targets: targets}, nil
		}
	}

	nodes, err := r.graph.SearchNodesByText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: node search: %v", appErr.ErrGraphUnavailable, err)
	}
	// Union of all matched nodes' targets, de-duplicated by node id in
	// first-seen order.
	var targets []model.TargetNode
	seen := map[string]struct{}{}
	for _, match := range nodes {
		matchTargets, err := r.targetsOf(ctx, match.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range matchTargets {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			targets = append(targets, t)
		}
	}
	if len(targets) > 0 {
		return &Result{Source: SourceKnowledgeGraph, Question: question, Targets: targets}, nil
	}
	return nil, nil
}

func (r *Resolver) targetsOf(ctx context.Context, nodeID string) ([]model.TargetNode, error) {
	nodes, err := r.graph.GetTargetNodes(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: target lookup: %v", appErr.ErrGraphUnavailable, err)
	}
	targets := make([]model.TargetNode, 0, len(nodes))
	for _, node := range nodes {
		isSource, err := r.graph.HasOutboundEdges(ctx, node.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: edge lookup: %v", appErr.ErrGraphUnavailable, err)
		}
		targets = append(targets, model.TargetNode{ID: node.ID, Text: node.Text, IsSource: isSource})
	}
	return targets, nil
}

func (r *Resolver) resolveCache(ctx context.Context, question string) *Result {
	cached, ok := r.answers.Get(question)
	if !ok {
		return nil
	}
	return &Result{
		Source:   SourceCache,
		Question: question,
		Answer:   cached.Answer,
		FAQID:    cached.FAQID,
		Category: cached.Category,
	}
}

// resolveFAQ tries an exact question match, then the first partial match.
// Store failures degrade to a miss; the FAQ tier is not load-bearing.
func (r *Resolver) resolveFAQ(ctx context.Context, question string) *Result {
	logger := logutil.GetLogger(ctx)
	faq, err := r.faqs.GetByQuestion(ctx, question)
	if err != nil {
		logger.Warn("faq exact lookup failed, skipping tier", zap.Error(err))
		return nil
	}
	if faq == nil {
		matches, err := r.faqs.SearchPartial(ctx, question)
		if err != nil {
			logger.Warn("faq partial lookup failed, skipping tier", zap.Error(err))
			return nil
		}
		if len(matches) > 0 {
			faq = &matches[0]
		}
	}
	if faq == nil {
		return nil
	}
	r.answers.Set(question, model.CachedAnswer{
		Answer:   faq.Answer,
		Source:   string(SourceFAQ),
		FAQID:    faq.ID,
		Category: faq.Category,
	})
	return &Result{
		Source:   SourceFAQ,
		Question: question,
		Answer:   faq.Answer,
		FAQID:    faq.ID,
		Category: faq.Category,
	}
}

// resolveRAG embeds the question, searches the vector store and hands the
// completion off to the worker queue. The caller never blocks on the LLM.
func (r *Resolver) resolveRAG(ctx context.Context, req *Request, question string) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		logger.Error("failed to embed question", zap.Error(err))
		return &Result{Source: SourceNotFound, Question: question, Message: NotFoundMessage}, nil
	}
	chunks, err := r.vectors.Search(ctx, embedding, r.topK)
	if err != nil {
		logger.Error("vector search failed", zap.Error(err))
		return &Result{Source: SourceNotFound, Question: question, Message: NotFoundMessage}, nil
	}
	if len(chunks) == 0 {
		return &Result{Source: SourceNotFound, Question: question, Message: NotFoundMessage}, nil
	}

	messageID := uuid.NewString()
	msg := task.NewMessage(question, chunks, req.SessionID, req.UserID, messageID, req.ClientID)
	if err := r.dispatcher.Dispatch(ctx, msg); err != nil {
		return nil, fmt.Errorf("dispatch rag task: %w", err)
	}
	return &Result{Source: SourceRAGPending, Question: question, TaskID: messageID}, nil
}

// saveHistory appends the answer (or the pending marker) to chat history
// best-effort.
func (r *Resolver) saveHistory(ctx context.Context, req *Request, result *Result) {
	if req.SessionID == "" || req.UserID == "" {
		return
	}
	logger := logutil.GetLogger(ctx)
	sessionID, err := r.history.ResolveSessionRef(ctx, req.UserID, req.SessionID)
	if err != nil {
		logger.Warn("failed to resolve session reference", zap.Error(err))
		return
	}
	msg := &model.ChatMessage{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		UserID:    req.UserID,
		Question:  result.Question,
		Answer:    result.AnswerText(),
		Source:    string(result.Source),
		Ctime:     time.Now().UnixMilli(),
	}
	if err := r.history.AppendMessage(ctx, msg); err != nil {
		logger.Warn("failed to persist chat history", zap.Error(err))
	}
}
