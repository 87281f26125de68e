package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"

	"expedientes/internal/domain"
)

// HashAPIKey returns the hex SHA-256 of the trimmed key material.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

func (r Repo) InsertAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO api_keys(id,actor_id,rol,name,key_hash,created_at) VALUES (?,?,?,?,?,?)`,
		k.ID, k.ActorID, nullable(k.Rol), nullable(k.Name), k.KeyHash, k.CreatedAt)
	return err
}

func (r Repo) GetAPIKeyByHash(ctx context.Context, keyHash string) (domain.APIKey, error) {
	var k domain.APIKey
	var rol, name sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,actor_id,rol,name,key_hash,created_at FROM api_keys WHERE key_hash=?`, keyHash).
		Scan(&k.ID, &k.ActorID, &rol, &name, &k.KeyHash, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	k.Rol = rol.String
	k.Name = name.String
	return k, err
}

func (r Repo) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,actor_id,rol,name,key_hash,created_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		var rol, name sql.NullString
		if err := rows.Scan(&k.ID, &k.ActorID, &rol, &name, &k.KeyHash, &k.CreatedAt); err != nil {
			return nil, err
		}
		k.Rol = rol.String
		k.Name = name.String
		res = append(res, k)
	}
	return res, nil
}

func (r Repo) DeleteAPIKey(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
