package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/kweaver00/askgraph/internal/model"
	"github.com/kweaver00/askgraph/internal/pkg/dbutil"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
)

// GraphRepo stores workflows, nodes and edges. Resolver lookups search the
// whole node collection; workflow scoping only matters for CRUD.
type GraphRepo struct {
	db *sql.DB
}

func NewGraphRepo(db *sql.DB) *GraphRepo {
	return &GraphRepo{db: db}
}

func (r *GraphRepo) CreateWorkflow(ctx context.Context, wf *model.Workflow) error {
	data := map[string]interface{}{
		"id":          wf.ID,
		"name":        wf.Name,
		"description": wf.Description,
		"ctime":       wf.Ctime,
	}
	query, args, err := builder.BuildInsert("workflows", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(query), args...)
	return err
}

func (r *GraphRepo) ListWorkflows(ctx context.Context) ([]model.Workflow, error) {
	const query = `SELECT id, name, description, ctime FROM workflows ORDER BY ctime DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.Workflow
	for rows.Next() {
		var wf model.Workflow
		if err := rows.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.Ctime); err != nil {
			return nil, err
		}
		items = append(items, wf)
	}
	return items, rows.Err()
}

func (r *GraphRepo) DeleteWorkflow(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM edges WHERE workflow_id = $1`, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE workflow_id = $1`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	return err
}

func (r *GraphRepo) CreateNode(ctx context.Context, node *model.Node) error {
	data := map[string]interface{}{
		"id":          node.ID,
		"workflow_id": node.WorkflowID,
		"text":        node.Text,
		"ctime":       node.Ctime,
	}
	query, args, err := builder.BuildInsert("nodes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, dbutil.Rebind(query), args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *GraphRepo) DeleteNode(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM edges WHERE source_node_id = $1 OR target_node_id = $1`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	return err
}

func (r *GraphRepo) ListNodes(ctx context.Context, workflowID string) ([]model.Node, error) {
	where := map[string]interface{}{
		"workflow_id": workflowID,
		"_orderby":    "ctime asc",
	}
	query, args, err := builder.BuildSelect("nodes", where, []string{"id", "workflow_id", "text", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, dbutil.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetNodeByText finds the node whose trimmed, lowercased text equals the
// question. nil without error means no match.
func (r *GraphRepo) GetNodeByText(ctx context.Context, text string) (*model.Node, error) {
	const query = `
		SELECT id, workflow_id, text, ctime
		FROM nodes
		WHERE lower(btrim(text)) = lower(btrim($1))
		ORDER BY ctime ASC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, text)
	var node model.Node
	if err := row.Scan(&node.ID, &node.WorkflowID, &node.Text, &node.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

// SearchNodesByText returns nodes containing the question as a
// case-insensitive substring, oldest first so dedup keeps stable order.
func (r *GraphRepo) SearchNodesByText(ctx context.Context, text string) ([]model.Node, error) {
	const query = `
		SELECT id, workflow_id, text, ctime
		FROM nodes
		WHERE text ILIKE '%' || $1 || '%'
		ORDER BY ctime ASC
	`
	rows, err := r.db.QueryContext(ctx, query, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (r *GraphRepo) CreateEdge(ctx context.Context, edge *model.Edge) error {
	data := map[string]interface{}{
		"id":             edge.ID,
		"workflow_id":    edge.WorkflowID,
		"source_node_id": edge.SourceNodeID,
		"target_node_id": edge.TargetNodeID,
		"ctime":          edge.Ctime,
	}
	query, args, err := builder.BuildInsert("edges", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(query), args...)
	return err
}

func (r *GraphRepo) DeleteEdge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM edges WHERE id = $1`, id)
	return err
}

// GetTargetNodes returns the nodes reachable over outbound edges of the
// given node, in edge creation order.
func (r *GraphRepo) GetTargetNodes(ctx context.Context, nodeID string) ([]model.Node, error) {
	const query = `
		SELECT n.id, n.workflow_id, n.text, n.ctime
		FROM edges e
		JOIN nodes n ON n.id = e.target_node_id
		WHERE e.source_node_id = $1
		ORDER BY e.ctime ASC
	`
	rows, err := r.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// HasOutboundEdges reports whether the node is itself a source.
func (r *GraphRepo) HasOutboundEdges(ctx context.Context, nodeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM edges WHERE source_node_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, nodeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanNodes(rows *sql.Rows) ([]model.Node, error) {
	var items []model.Node
	for rows.Next() {
		var node model.Node
		if err := rows.Scan(&node.ID, &node.WorkflowID, &node.Text, &node.Ctime); err != nil {
			return nil, err
		}
		items = append(items, node)
	}
	return items, rows.Err()
}
