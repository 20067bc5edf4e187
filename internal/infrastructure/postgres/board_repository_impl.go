package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

type BoardRepository struct {
	pool *pgxpool.Pool
}

func NewBoardRepository(pool *pgxpool.Pool) *BoardRepository {
	return &BoardRepository{pool: pool}
}

const boardColumns = `id, user_id, name, data, thumbnail, tags, created_at, updated_at`

func scanBoard(row pgx.Row) (*entity.Board, error) {
	var (
		b   entity.Board
		raw []byte
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &raw, &b.Thumbnail, &b.Tags, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapErr(err)
	}
	// legacy rows may hold partial payloads
	b.Data = boarddoc.DecodeData(raw)
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return &b, nil
}

func (r *BoardRepository) List(ctx context.Context, userID string, f entity.BoardFilter) ([]*entity.Board, error) {
	var (
		sb   strings.Builder
		args = []any{userID}
	)
	sb.WriteString(`SELECT id, user_id, name, thumbnail, tags, created_at, updated_at FROM boards WHERE user_id = $1`)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%", strings.ToLower(q))
		fmt.Fprintf(&sb, ` AND (name ILIKE $%d OR $%d = ANY(SELECT lower(t) FROM unnest(tags) t))`, len(args)-1, len(args))
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		args = append(args, tag)
		fmt.Fprintf(&sb, ` AND $%d = ANY(tags)`, len(args))
	}
	if f.IDs != nil {
		args = append(args, f.IDs)
		fmt.Fprintf(&sb, ` AND id = ANY($%d::uuid[])`, len(args))
	}
	sb.WriteString(` ORDER BY updated_at DESC`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]*entity.Board, 0)
	for rows.Next() {
		var b entity.Board
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Thumbnail, &b.Tags, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if b.Tags == nil {
			b.Tags = []string{}
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *BoardRepository) Get(ctx context.Context, userID, id string) (*entity.Board, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = $1 AND user_id = $2`, id, userID)
	return scanBoard(row)
}

func (r *BoardRepository) Create(ctx context.Context, b *entity.Board) error {
	data, err := json.Marshal(b.Data.Normalize())
	if err != nil {
		return fmt.Errorf("encode board data: %w", err)
	}
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO boards (user_id, name, data, thumbnail, tags)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING `+boardColumns,
		b.UserID, b.Name, data, b.Thumbnail, tags)

	created, err := scanBoard(row)
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

// Update applies p in a single ownership-scoped statement.
func (r *BoardRepository) Update(ctx context.Context, userID, id string, p entity.BoardPatch) (*entity.Board, error) {
	var data []byte
	if p.Data != nil {
		b, err := json.Marshal(p.Data.Normalize())
		if err != nil {
			return nil, fmt.Errorf("encode board data: %w", err)
		}
		data = b
	}
	var tags any
	if p.Tags != nil {
		t := *p.Tags
		if t == nil {
			t = []string{}
		}
		tags = t
	}
	var thumb string
	if p.Thumbnail != nil {
		thumb = *p.Thumbnail
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE boards SET
			name       = COALESCE($3, name),
			data       = COALESCE($4::jsonb, data),
			thumbnail  = CASE WHEN $5::boolean THEN NULLIF($6::text, '') ELSE thumbnail END,
			tags       = COALESCE($7::text[], tags),
			updated_at = clock_timestamp()
		WHERE id = $1 AND user_id = $2
		RETURNING `+boardColumns,
		id, userID, p.Name, data, p.Thumbnail != nil, thumb, tags)
	return scanBoard(row)
}

func (r *BoardRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ repository.BoardRepository = (*BoardRepository)(nil)
