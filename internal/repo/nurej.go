package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// NextNurejTx atomically advances the per-juzgado per-year sequence and
// formats the resulting NUREJ, e.g. COD-2025-00001.
func (r Repo) NextNurejTx(ctx context.Context, tx *sql.Tx, juzgadoID, codigo string, anio int) (string, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `INSERT INTO nurej_secuencias(juzgado_id,anio,ultimo) VALUES (?,?,1)
ON CONFLICT(juzgado_id,anio) DO UPDATE SET ultimo=ultimo+1
RETURNING ultimo`, juzgadoID, anio).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("advance nurej sequence: %w", err)
	}
	return fmt.Sprintf("%s-%d-%05d", codigo, anio, seq), nil
}
