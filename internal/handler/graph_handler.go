package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kweaver00/askgraph/internal/pkg/errcode"
	"github.com/kweaver00/askgraph/internal/pkg/response"
	"github.com/kweaver00/askgraph/internal/service"
)

type GraphHandler struct {
	graph *service.GraphService
}

func NewGraphHandler(graph *service.GraphService) *GraphHandler {
	return &GraphHandler{graph: graph}
}

type workflowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *GraphHandler) CreateWorkflow(c *gin.Context) {
	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	wf, err := h.graph.CreateWorkflow(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wf)
}

func (h *GraphHandler) ListWorkflows(c *gin.Context) {
	workflows, err := h.graph.ListWorkflows(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, workflows)
}

func (h *GraphHandler) DeleteWorkflow(c *gin.Context) {
	if err := h.graph.DeleteWorkflow(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type nodeRequest struct {
	WorkflowID string `json:"workflow_id"`
	Text       string `json:"text"`
}

func (h *GraphHandler) CreateNode(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	node, err := h.graph.CreateNode(c.Request.Context(), req.WorkflowID, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, node)
}

func (h *GraphHandler) ListNodes(c *gin.Context) {
	nodes, err := h.graph.ListNodes(c.Request.Context(), c.Query("workflow_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nodes)
}

func (h *GraphHandler) DeleteNode(c *gin.Context) {
	if err := h.graph.DeleteNode(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type edgeRequest struct {
	WorkflowID   string `json:"workflow_id"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
}

func (h *GraphHandler) CreateEdge(c *gin.Context) {
	var req edgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	edge, err := h.graph.CreateEdge(c.Request.Context(), req.WorkflowID, req.SourceNodeID, req.TargetNodeID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, edge)
}

func (h *GraphHandler) DeleteEdge(c *gin.Context) {
	if err := h.graph.DeleteEdge(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Answers serves drill-down: the outbound targets of a previously returned
// answer node.
func (h *GraphHandler) Answers(c *gin.Context) {
	targets, err := h.graph.Answers(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, targets)
}
