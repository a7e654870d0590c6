package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// orderExpr maps a sort field to its column expression. The field set is
// a closed enum, so interpolating the result into ORDER BY is safe.
func orderExpr(field SortField) string {
	switch field {
	case SortByAverageRating:
		return "o.average_rating"
	case SortByRatingCount:
		return "o.number_of_ratings"
	case SortByCreatedAt:
		return "o.created_at"
	}
	return "o.created_at"
}

// nullsClause places missing values as the weakest regardless of
// direction: last under desc, first under asc.
func nullsClause(dir Direction) string {
	if dir == Desc {
		return "DESC NULLS LAST"
	}
	return "ASC NULLS FIRST"
}

// ListVerified fetches verified NGOs with their denormalized rating
// aggregates and category sets, ordered by the requested natural field
// with id ascending as the tie-break.
func (r *PostgresRepository) ListVerified(ctx context.Context, q Query) ([]Candidate, error) {
	var (
		conditions = []string{"o.verification_status = 'verified'"}
		args       []any
	)

	if len(q.CategoryIDs) > 0 {
		args = append(args, pq.Array(q.CategoryIDs))
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM ong_profiles fp
			JOIN ong_profile_categories fpc ON fpc.profile_id = fp.id
			WHERE fp.ong_id = o.user_id AND fpc.category_id = ANY($%d)
		)`, len(args)))
	}

	if q.SearchTerm != "" {
		args = append(args, "%"+q.SearchTerm+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(u.name ILIKE $%d OR EXISTS (
			SELECT 1 FROM ong_profiles sp
			JOIN ong_profile_categories spc ON spc.profile_id = sp.id
			JOIN categories sc ON sc.id = spc.category_id
			WHERE sp.ong_id = o.user_id AND sc.name ILIKE $%d
		))`, n, n))
	}

	args = append(args, q.Limit)
	limitArg := len(args)
	args = append(args, q.Offset)
	offsetArg := len(args)

	query := fmt.Sprintf(`
		SELECT o.user_id, u.name, p.avatar_url,
		       o.average_rating, o.number_of_ratings, o.created_at,
		       COALESCE(array_agg(c.id ORDER BY c.id) FILTER (WHERE c.id IS NOT NULL), '{}'),
		       COALESCE(array_agg(c.name ORDER BY c.id) FILTER (WHERE c.id IS NOT NULL), '{}')
		FROM ongs o
		JOIN users u ON u.id = o.user_id
		LEFT JOIN ong_profiles p ON p.ong_id = o.user_id
		LEFT JOIN ong_profile_categories pc ON pc.profile_id = p.id
		LEFT JOIN categories c ON c.id = pc.category_id
		WHERE %s
		GROUP BY o.user_id, u.name, p.avatar_url, o.average_rating, o.number_of_ratings, o.created_at
		ORDER BY %s %s, o.user_id ASC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "),
		orderExpr(q.OrderBy), nullsClause(q.Direction),
		limitArg, offsetArg,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verified ongs: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var (
			c             Candidate
			avatarURL     sql.NullString
			averageRating sql.NullFloat64
			categoryIDs   pq.Int64Array
			categoryNames pq.StringArray
		)
		if err := rows.Scan(&c.ID, &c.Name, &avatarURL, &averageRating, &c.RatingCount, &c.CreatedAt, &categoryIDs, &categoryNames); err != nil {
			return nil, fmt.Errorf("failed to scan ong row: %w", err)
		}
		if avatarURL.Valid {
			c.AvatarURL = &avatarURL.String
		}
		if averageRating.Valid {
			c.AverageRating = &averageRating.Float64
		}
		c.Categories = make([]Category, len(categoryIDs))
		for i := range categoryIDs {
			c.Categories[i] = Category{ID: categoryIDs[i], Name: categoryNames[i]}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ong rows: %w", err)
	}
	return candidates, nil
}
