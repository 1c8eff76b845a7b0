package model

type Workflow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Ctime       int64  `json:"ctime"`
}

type Node struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Text       string `json:"text"`
	Ctime      int64  `json:"ctime"`
}

type Edge struct {
	ID           string `json:"id"`
	WorkflowID   string `json:"workflow_id"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
	Ctime        int64  `json:"ctime"`
}

// TargetNode is a graph answer option. IsSource reports whether the node has
// outbound edges of its own, so the client can offer further drill-down.
type TargetNode struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	IsSource bool   `json:"is_source"`
}
