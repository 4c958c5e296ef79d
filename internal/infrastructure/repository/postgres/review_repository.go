package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/review"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const reviewItemsTable = "review_items"

type reviewItemTableModel struct {
	ID         string     `db:"id"`
	Sport      string     `db:"sport"`
	Kind       string     `db:"kind"`
	Record     string     `db:"record"`
	Candidates string     `db:"candidates"`
	Status     string     `db:"status"`
	ResolvedBy string     `db:"resolved_by"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

func newReviewItemTableModel(item review.Item) (reviewItemTableModel, error) {
	record, err := sonic.Marshal(item.Record)
	if err != nil {
		return reviewItemTableModel{}, fmt.Errorf("encode review record: %w", err)
	}
	candidates, err := sonic.Marshal(item.Candidates)
	if err != nil {
		return reviewItemTableModel{}, fmt.Errorf("encode review candidates: %w", err)
	}
	return reviewItemTableModel{
		ID:         item.ID,
		Sport:      item.Sport,
		Kind:       string(item.Kind),
		Record:     string(record),
		Candidates: string(candidates),
		Status:     string(item.Status),
		ResolvedBy: item.ResolvedBy,
		CreatedAt:  item.CreatedAt.UTC(),
		ResolvedAt: item.ResolvedAt,
	}, nil
}

func (m reviewItemTableModel) toDomain() (review.Item, error) {
	item := review.Item{
		ID:         m.ID,
		Sport:      m.Sport,
		Kind:       sourcerecord.Kind(m.Kind),
		Status:     review.Status(m.Status),
		ResolvedBy: m.ResolvedBy,
		CreatedAt:  m.CreatedAt,
		ResolvedAt: m.ResolvedAt,
	}
	if err := sonic.Unmarshal([]byte(m.Record), &item.Record); err != nil {
		return review.Item{}, fmt.Errorf("decode review record: %w", err)
	}
	if err := sonic.Unmarshal([]byte(m.Candidates), &item.Candidates); err != nil {
		return review.Item{}, fmt.Errorf("decode review candidates: %w", err)
	}
	return item, nil
}

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, item review.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	model, err := newReviewItemTableModel(item)
	if err != nil {
		return err
	}
	query, args, err := qb.InsertModel(reviewItemsTable, model, "")
	if err != nil {
		return fmt.Errorf("build insert review item query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review item %s already exists", item.ID)
		}
		return fmt.Errorf("insert review item %s: %w", item.ID, err)
	}
	return nil
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (review.Item, bool, error) {
	query, args, err := qb.Select("*").From(reviewItemsTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return review.Item{}, false, fmt.Errorf("build select review item query: %w", err)
	}

	var row reviewItemTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return review.Item{}, false, nil
		}
		return review.Item{}, false, fmt.Errorf("select review item %s: %w", id, err)
	}

	item, err := row.toDomain()
	if err != nil {
		return review.Item{}, false, err
	}
	return item, true, nil
}

func (r *ReviewRepository) ListPending(ctx context.Context, limit int) ([]review.Item, error) {
	builder := qb.Select("*").From(reviewItemsTable).
		Where(qb.Eq("status", string(review.StatusPending))).
		OrderBy("created_at", "id")
	if limit > 0 {
		builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select pending review items query: %w", err)
	}

	var rows []reviewItemTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select pending review items: %w", err)
	}

	out := make([]review.Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Resolve flips a pending item in one statement. The status guard in the
// WHERE clause is what keeps two concurrent reviewers from both winning.
func (r *ReviewRepository) Resolve(ctx context.Context, id string, status review.Status, reviewer string, at time.Time) error {
	query, args, err := qb.Update(reviewItemsTable).
		Set("status", string(status)).
		Set("resolved_by", reviewer).
		Set("resolved_at", at.UTC()).
		Where(
			qb.Eq("id", id),
			qb.Eq("status", string(review.StatusPending)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build resolve review item query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("resolve review item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve review item rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, exists, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("review item %s not found", id)
	}
	return fmt.Errorf("%w: item %s", review.ErrNotPending, id)
}

// Reopen returns a resolved item to the queue.
func (r *ReviewRepository) Reopen(ctx context.Context, id string) error {
	query, args, err := qb.Update(reviewItemsTable).
		Set("status", string(review.StatusPending)).
		Set("resolved_by", "").
		SetExpr("resolved_at", "NULL").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build reopen review item query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reopen review item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reopen review item rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("review item %s not found", id)
	}
	return nil
}
