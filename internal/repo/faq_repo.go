package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/kweaver00/askgraph/internal/model"
	"github.com/kweaver00/askgraph/internal/pkg/dbutil"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
)

type FAQRepo struct {
	db *sql.DB
}

func NewFAQRepo(db *sql.DB) *FAQRepo {
	return &FAQRepo{db: db}
}

func (r *FAQRepo) Create(ctx context.Context, faq *model.FAQ) error {
	data := map[string]interface{}{
		"id":       faq.ID,
		"question": faq.Question,
		"answer":   faq.Answer,
		"category": faq.Category,
		"ctime":    faq.Ctime,
		"mtime":    faq.Mtime,
	}
	query, args, err := builder.BuildInsert("faqs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(query), args...)
	return err
}

func (r *FAQRepo) Update(ctx context.Context, faq *model.FAQ) error {
	const query = `UPDATE faqs SET question = $1, answer = $2, category = $3, mtime = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, faq.Question, faq.Answer, faq.Category, faq.Mtime, faq.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *FAQRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	return err
}

func (r *FAQRepo) Get(ctx context.Context, id string) (*model.FAQ, error) {
	const query = `SELECT id, question, answer, category, ctime, mtime FROM faqs WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	var faq model.FAQ
	if err := row.Scan(&faq.ID, &faq.Question, &faq.Answer, &faq.Category, &faq.Ctime, &faq.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &faq, nil
}

func (r *FAQRepo) List(ctx context.Context, category string) ([]model.FAQ, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if category != "" {
		where["category"] = category
	}
	query, args, err := builder.BuildSelect("faqs", where, []string{"id", "question", "answer", "category", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, dbutil.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFAQs(rows)
}

// GetByQuestion matches the exact question text, case-insensitively.
// nil without error means no match.
func (r *FAQRepo) GetByQuestion(ctx context.Context, question string) (*model.FAQ, error) {
	const query = `
		SELECT id, question, answer, category, ctime, mtime
		FROM faqs
		WHERE lower(btrim(question)) = lower(btrim($1))
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, question)
	var faq model.FAQ
	if err := row.Scan(&faq.ID, &faq.Question, &faq.Answer, &faq.Category, &faq.Ctime, &faq.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &faq, nil
}

// SearchPartial returns FAQs whose question contains the text as a
// case-insensitive substring, newest first. The caller treats the first
// entry as the best match.
func (r *FAQRepo) SearchPartial(ctx context.Context, question string) ([]model.FAQ, error) {
	const query = `
		SELECT id, question, answer, category, ctime, mtime
		FROM faqs
		WHERE question ILIKE '%' || $1 || '%'
		ORDER BY ctime DESC
	`
	rows, err := r.db.QueryContext(ctx, query, question)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFAQs(rows)
}

func (r *FAQRepo) ListCategories(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT category FROM faqs WHERE category <> '' ORDER BY category`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		items = append(items, category)
	}
	return items, rows.Err()
}

func scanFAQs(rows *sql.Rows) ([]model.FAQ, error) {
	var items []model.FAQ
	for rows.Next() {
		var faq model.FAQ
		if err := rows.Scan(&faq.ID, &faq.Question, &faq.Answer, &faq.Category, &faq.Ctime, &faq.Mtime); err != nil {
			return nil, err
		}
		items = append(items, faq)
	}
	return items, rows.Err()
}
