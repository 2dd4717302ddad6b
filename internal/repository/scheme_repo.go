package repository

import (
	"context"

	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
)

type SchemeRepository struct {
	db DBTX
}

func NewSchemeRepository(db DBTX) *SchemeRepository {
	return &SchemeRepository{db: db}
}

// Search matches the raw query against scheme name, description and
// ministry, case-insensitively. extraName, when non-empty, is an additional
// name pattern OR-ed in; the caller decides whether to broaden (see
// services.expandSchemeQuery) so the special case stays out of this path.
func (r *SchemeRepository) Search(
	ctx context.Context,
	query string,
	extraName string,
	limit int,
) ([]models.Scheme, error) {
	sql := `
		SELECT id, name, description, ministry, eligibility_criteria, benefits, link, created_at
		FROM schemes
		WHERE name ILIKE '%' || $1 || '%'
		   OR description ILIKE '%' || $1 || '%'
		   OR ministry ILIKE '%' || $1 || '%'
		   OR ($2 <> '' AND name ILIKE '%' || $2 || '%')
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, sql, query, extraName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schemes := make([]models.Scheme, 0)
	for rows.Next() {
		var scheme models.Scheme
		if err := rows.Scan(
			&scheme.ID,
			&scheme.Name,
			&scheme.Description,
			&scheme.Ministry,
			&scheme.EligibilityCriteria,
			&scheme.Benefits,
			&scheme.Link,
			&scheme.CreatedAt,
		); err != nil {
			return nil, err
		}
		schemes = append(schemes, scheme)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schemes, nil
}
