package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/repo"
)

// GraphService owns the question/answer knowledge graph: workflows group
// nodes, directed edges connect a question node to its answer nodes.
type GraphService struct {
	graph *repo.GraphRepo
}

func NewGraphService(graph *repo.GraphRepo) *GraphService {
	return &GraphService{graph: graph}
}

func (s *GraphService) CreateWorkflow(ctx context.Context, name, description string) (*model.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: workflow name is required", appErr.ErrInvalid)
	}
	wf := &model.Workflow{
		ID:          newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Ctime:       time.Now().UnixMilli(),
	}
	if err := s.graph.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (s *GraphService) ListWorkflows(ctx context.Context) ([]model.Workflow, error) {
	return s.graph.ListWorkflows(ctx)
}

func (s *GraphService) DeleteWorkflow(ctx context.Context, id string) error {
	return s.graph.DeleteWorkflow(ctx, id)
}

func (s *GraphService) CreateNode(ctx context.Context, workflowID, text string) (*model.Node, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: node text is required", appErr.ErrInvalid)
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow_id is required", appErr.ErrInvalid)
	}
	node := &model.Node{
		ID:         newID(),
		WorkflowID: workflowID,
		Text:       text,
		Ctime:      time.Now().UnixMilli(),
	}
	if err := s.graph.CreateNode(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *GraphService) ListNodes(ctx context.Context, workflowID string) ([]model.Node, error) {
	return s.graph.ListNodes(ctx, workflowID)
}

func (s *GraphService) DeleteNode(ctx context.Context, id string) error {
	return s.graph.DeleteNode(ctx, id)
}

func (s *GraphService) CreateEdge(ctx context.Context, workflowID, sourceNodeID, targetNodeID string) (*model.Edge, error) {
	if sourceNodeID == "" || targetNodeID == "" {
		return nil, fmt.Errorf("%w: source and target node ids are required", appErr.ErrInvalid)
	}
	if sourceNodeID == targetNodeID {
		return nil, fmt.Errorf("%w: an edge cannot point at its own source", appErr.ErrInvalid)
	}
	edge := &model.Edge{
		ID:           newID(),
		WorkflowID:   workflowID,
		SourceNodeID: sourceNodeID,
		TargetNodeID: targetNodeID,
		Ctime:        time.Now().UnixMilli(),
	}
	if err := s.graph.CreateEdge(ctx, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

func (s *GraphService) DeleteEdge(ctx context.Context, id string) error {
	return s.graph.DeleteEdge(ctx, id)
}

// Answers returns the outbound targets of a node, used by clients to
// drill further down the graph after a resolved answer.
func (s *GraphService) Answers(ctx context.Context, nodeID string) ([]model.TargetNode, error) {
	nodes, err := s.graph.GetTargetNodes(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	targets := make([]model.TargetNode, 0, len(nodes))
	for _, node := range nodes {
		isSource, err := s.graph.HasOutboundEdges(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, model.TargetNode{ID: node.ID, Text: node.Text, IsSource: isSource})
	}
	return targets, nil
}
