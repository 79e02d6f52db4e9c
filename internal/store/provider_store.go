package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// ProviderStore persists registered tool providers.
type ProviderStore struct {
	db *DB
}

// NewProviderStore creates a provider store using the given database.
func NewProviderStore(db *DB) *ProviderStore {
	return &ProviderStore{db: db}
}

const providerColumns = `id, user_id, name, url, description, auth_type, credentials, remote_id, is_active, created_at, updated_at`

// ListProviders returns all of a user's providers, newest first.
func (s *ProviderStore) ListProviders(ctx context.Context, userID string) ([]domain.ToolProvider, error) {
	return s.query(ctx,
		`SELECT `+providerColumns+` FROM mcp_servers WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ActiveProviders returns a user's active providers in registration order.
func (s *ProviderStore) ActiveProviders(ctx context.Context, userID string) ([]domain.ToolProvider, error) {
	return s.query(ctx,
		`SELECT `+providerColumns+` FROM mcp_servers WHERE user_id = ? AND is_active = 1 ORDER BY created_at, rowid`, userID)
}

// GetProvider returns a provider by id.
func (s *ProviderStore) GetProvider(ctx context.Context, id string) (*domain.ToolProvider, error) {
	row := s.db.sql.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM mcp_servers WHERE id = ?`, id)
	p, err := scanProvider(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// SaveProvider inserts a new provider.
func (s *ProviderStore) SaveProvider(ctx context.Context, p domain.ToolProvider) error {
	if p.AuthType == "" {
		p.AuthType = domain.AuthNone
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO mcp_servers (`+providerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.URL, p.Description, string(p.AuthType), nullableJSON(p.Credentials),
		p.RemoteID, p.IsActive, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert provider %s: %w", p.ID, err)
	}
	return nil
}

// UpdateProvider rewrites a provider's mutable fields and bumps updated_at.
func (s *ProviderStore) UpdateProvider(ctx context.Context, p domain.ToolProvider) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE mcp_servers SET name = ?, url = ?, description = ?, auth_type = ?, credentials = ?,
		 remote_id = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.URL, p.Description, string(p.AuthType), nullableJSON(p.Credentials),
		p.RemoteID, p.IsActive, formatTime(time.Now()), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update provider %s: %w", p.ID, err)
	}
	return requireAffected(res)
}

// DeleteProvider removes a provider.
func (s *ProviderStore) DeleteProvider(ctx context.Context, id string) error {
	res, err := s.db.sql.ExecContext(ctx, `DELETE FROM mcp_servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete provider %s: %w", id, err)
	}
	return requireAffected(res)
}

func (s *ProviderStore) query(ctx context.Context, q string, args ...any) ([]domain.ToolProvider, error) {
	rows, err := s.db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	out := []domain.ToolProvider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func nullableJSON(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func scanProvider(r scanner) (*domain.ToolProvider, error) {
	var p domain.ToolProvider
	var authType, createdAt, updatedAt string
	var creds sql.NullString
	if err := r.Scan(&p.ID, &p.UserID, &p.Name, &p.URL, &p.Description, &authType, &creds,
		&p.RemoteID, &p.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.AuthType = domain.AuthType(authType)
	if creds.Valid {
		p.Credentials = []byte(creds.String)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
