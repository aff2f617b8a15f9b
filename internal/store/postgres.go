package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPageNotFound is returned when a page id does not exist.
var ErrPageNotFound = errors.New("page not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertPage stores a new page and its flat section rows in one transaction.
func (s *PostgresStore) InsertPage(ctx context.Context, page Page, rows []SectionRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert page: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tags, err := json.Marshal(page.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (id, title, description, category, tags)
		VALUES ($1, $2, $3, $4, $5)
	`, page.ID, page.Title, page.Description, page.Category, tags); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}

	if err := insertSectionRows(ctx, tx, page.ID, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert page: %w", err)
	}
	return nil
}

// UpdatePage replaces a page's metadata and its whole section set. Section
// ids missing from rows are thereby deleted, which is how the save contract
// treats omissions.
func (s *PostgresStore) UpdatePage(ctx context.Context, page Page, rows []SectionRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update page: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tags, err := json.Marshal(page.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE pages
		SET title=$2, description=$3, category=$4, tags=$5, updated_at=NOW()
		WHERE id=$1
	`, page.ID, page.Title, page.Description, page.Category, tags)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrPageNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_sections WHERE page_id=$1`, page.ID); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}
	if err := insertSectionRows(ctx, tx, page.ID, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update page: %w", err)
	}
	return nil
}

func insertSectionRows(ctx context.Context, tx *sql.Tx, pageID string, rows []SectionRow) error {
	const insert = `
		INSERT INTO page_sections (
			page_id, frontend_id, type, title, content_source, parent_id, sort_order,
			background_color, highlight_color, title_text_color,
			border_width, border_style, border_color,
			width, alignment, image_key, filename, is_expanded
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	for _, row := range rows {
		var source any
		if len(row.ContentSource) > 0 {
			source = []byte(row.ContentSource)
		}
		if _, err := tx.ExecContext(ctx, insert,
			pageID, row.FrontendID, row.Type, row.Title, source, row.ParentID, row.SortOrder,
			row.BackgroundColor, row.HighlightColor, row.TitleTextColor,
			row.BorderWidth, row.BorderStyle, row.BorderColor,
			row.Width, row.Alignment, row.ImageKey, row.Filename, row.IsExpanded,
		); err != nil {
			return fmt.Errorf("insert section %s: %w", row.FrontendID, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetPage(ctx context.Context, id string) (Page, error) {
	var page Page
	var tags []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, tags, created_at, updated_at
		FROM pages WHERE id=$1
	`, id).Scan(&page.ID, &page.Title, &page.Description, &page.Category, &tags, &page.CreatedAt, &page.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, ErrPageNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("get page: %w", err)
	}
	if err := json.Unmarshal(tags, &page.Tags); err != nil {
		return Page{}, fmt.Errorf("decode tags: %w", err)
	}
	return page, nil
}

// ListSections returns the flat section rows of a page. Row order is by
// parent then sort order, though consumers rebuild the tree from the
// parent/order fields rather than row sequence.
func (s *PostgresStore) ListSections(ctx context.Context, pageID string) ([]SectionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, frontend_id, type, title, content_source, parent_id, sort_order,
			background_color, highlight_color, title_text_color,
			border_width, border_style, border_color,
			width, alignment, image_key, filename, is_expanded
		FROM page_sections
		WHERE page_id=$1
		ORDER BY parent_id NULLS FIRST, sort_order
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var out []SectionRow
	for rows.Next() {
		var row SectionRow
		var source []byte
		if err := rows.Scan(
			&row.PageID, &row.FrontendID, &row.Type, &row.Title, &source, &row.ParentID, &row.SortOrder,
			&row.BackgroundColor, &row.HighlightColor, &row.TitleTextColor,
			&row.BorderWidth, &row.BorderStyle, &row.BorderColor,
			&row.Width, &row.Alignment, &row.ImageKey, &row.Filename, &row.IsExpanded,
		); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		row.ContentSource = source
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, tags, created_at, updated_at
		FROM pages ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()
	return scanPages(rows)
}

func (s *PostgresStore) DeletePage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// SearchPages is the SQL fallback used when the search index is unreachable:
// a case-insensitive substring match over title and description, optionally
// narrowed to one category.
func (s *PostgresStore) SearchPages(ctx context.Context, text, category string, limit int) ([]Page, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, tags, created_at, updated_at
		FROM pages
		WHERE (title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			AND ($2 = '' OR category = $2)
		ORDER BY updated_at DESC
		LIMIT $3
	`, text, category, limit)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	defer rows.Close()
	return scanPages(rows)
}

func scanPages(rows *sql.Rows) ([]Page, error) {
	var out []Page
	for rows.Next() {
		var page Page
		var tags []byte
		if err := rows.Scan(&page.ID, &page.Title, &page.Description, &page.Category, &tags, &page.CreatedAt, &page.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		if err := json.Unmarshal(tags, &page.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
		out = append(out, page)
	}
	return out, rows.Err()
}
