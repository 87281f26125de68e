package repo

import (
	"context"
	"database/sql"
	"fmt"

	"expedientes/internal/domain"
)

const contestacionColumns = `id,proceso_id,variante,contenido_json,tipo_excepcion,estado_excepcion,abogado_id,documento_hash,created_at`

func (r Repo) InsertContestacionTx(ctx context.Context, tx *sql.Tx, c domain.Contestacion) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO contestaciones(id,proceso_id,variante,contenido_json,tipo_excepcion,estado_excepcion,abogado_id,documento_hash,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ProcesoID, c.Variante, c.ContenidoJSON,
		nullableStringPtr(c.TipoExcepcion), nullableStringPtr(c.EstadoExcepcion),
		c.AbogadoID, c.DocumentoHash, c.CreatedAt)
	return err
}

func scanContestacion(row interface{ Scan(...any) error }) (domain.Contestacion, error) {
	var c domain.Contestacion
	var tipoExc, estadoExc sql.NullString
	err := row.Scan(&c.ID, &c.ProcesoID, &c.Variante, &c.ContenidoJSON,
		&tipoExc, &estadoExc, &c.AbogadoID, &c.DocumentoHash, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	if tipoExc.Valid {
		c.TipoExcepcion = &tipoExc.String
	}
	if estadoExc.Valid {
		c.EstadoExcepcion = &estadoExc.String
	}
	return c, nil
}

func (r Repo) GetContestacion(ctx context.Context, id string) (domain.Contestacion, error) {
	return getContestacion(ctx, r.DB.QueryRowContext, id)
}

func (r Repo) GetContestacionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Contestacion, error) {
	return getContestacion(ctx, tx.QueryRowContext, id)
}

func getContestacion(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, id string) (domain.Contestacion, error) {
	c, err := scanContestacion(queryRow(ctx, fmt.Sprintf(`SELECT %s FROM contestaciones WHERE id=?`, contestacionColumns), id))
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) SetExcepcionEstadoTx(ctx context.Context, tx *sql.Tx, id, estado string) error {
	res, err := tx.ExecContext(ctx, `UPDATE contestaciones SET estado_excepcion=? WHERE id=?`, estado, id)
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

func (r Repo) ListContestaciones(ctx context.Context, procesoID string) ([]domain.Contestacion, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM contestaciones WHERE proceso_id=? ORDER BY created_at ASC`, contestacionColumns), procesoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contestacion
	for rows.Next() {
		c, err := scanContestacion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

// ExcepcionesPendientesTx counts unresolved excepciones previas of the proceso.
func (r Repo) ExcepcionesPendientesTx(ctx context.Context, tx *sql.Tx, procesoID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contestaciones WHERE proceso_id=? AND variante=? AND estado_excepcion=?`,
		procesoID, domain.VarianteExcepcion, domain.ExcepcionPendiente).Scan(&n)
	return n, err
}
