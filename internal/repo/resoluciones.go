package repo

import (
	"context"
	"database/sql"
	"fmt"

	"expedientes/internal/domain"
)

const resolucionColumns = `id,proceso_id,tipo,vistos,considerando,por_tanto,juez_id,documento_hash,fecha_emision,fecha_notificacion,created_at,updated_at`

func (r Repo) InsertResolucionTx(ctx context.Context, tx *sql.Tx, res domain.Resolucion) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO resoluciones(id,proceso_id,tipo,vistos,considerando,por_tanto,juez_id,documento_hash,fecha_emision,fecha_notificacion,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, res.ProcesoID, res.Tipo, res.Vistos, res.Considerando, res.PorTanto,
		res.JuezID, res.DocumentoHash, res.FechaEmision,
		nullableStringPtr(res.FechaNotificacion), res.CreatedAt, res.UpdatedAt)
	return err
}

func scanResolucion(row interface{ Scan(...any) error }) (domain.Resolucion, error) {
	var res domain.Resolucion
	var fechaNotif sql.NullString
	err := row.Scan(&res.ID, &res.ProcesoID, &res.Tipo, &res.Vistos, &res.Considerando,
		&res.PorTanto, &res.JuezID, &res.DocumentoHash, &res.FechaEmision,
		&fechaNotif, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return res, err
	}
	if fechaNotif.Valid {
		res.FechaNotificacion = &fechaNotif.String
	}
	return res, nil
}

func (r Repo) GetResolucion(ctx context.Context, id string) (domain.Resolucion, error) {
	return getResolucion(ctx, r.DB.QueryRowContext, id)
}

func (r Repo) GetResolucionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Resolucion, error) {
	return getResolucion(ctx, tx.QueryRowContext, id)
}

func getResolucion(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, id string) (domain.Resolucion, error) {
	res, err := scanResolucion(queryRow(ctx, fmt.Sprintf(`SELECT %s FROM resoluciones WHERE id=?`, resolucionColumns), id))
	if err == sql.ErrNoRows {
		return res, ErrNotFound
	}
	return res, err
}

func (r Repo) UpdateResolucionTx(ctx context.Context, tx *sql.Tx, res domain.Resolucion) error {
	result, err := tx.ExecContext(ctx, `UPDATE resoluciones SET vistos=?, considerando=?, por_tanto=?, documento_hash=?, fecha_notificacion=?, updated_at=? WHERE id=?`,
		res.Vistos, res.Considerando, res.PorTanto, res.DocumentoHash,
		nullableStringPtr(res.FechaNotificacion), res.UpdatedAt, res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteResolucionTx(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM resoluciones WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListResoluciones(ctx context.Context, procesoID string) ([]domain.Resolucion, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM resoluciones WHERE proceso_id=? ORDER BY fecha_emision ASC`, resolucionColumns), procesoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Resolucion
	for rows.Next() {
		item, err := scanResolucion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

const sentenciaColumns = `id,proceso_id,vistos,considerando,por_tanto,decision,juez_id,documento_hash,fecha_emision,created_at`

func (r Repo) InsertSentenciaTx(ctx context.Context, tx *sql.Tx, s domain.Sentencia) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sentencias(id,proceso_id,vistos,considerando,por_tanto,decision,juez_id,documento_hash,fecha_emision,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ProcesoID, s.Vistos, s.Considerando, s.PorTanto, s.Decision,
		s.JuezID, s.DocumentoHash, s.FechaEmision, s.CreatedAt)
	return err
}

func scanSentencia(row interface{ Scan(...any) error }) (domain.Sentencia, error) {
	var s domain.Sentencia
	err := row.Scan(&s.ID, &s.ProcesoID, &s.Vistos, &s.Considerando, &s.PorTanto,
		&s.Decision, &s.JuezID, &s.DocumentoHash, &s.FechaEmision, &s.CreatedAt)
	return s, err
}

func (r Repo) GetSentencia(ctx context.Context, id string) (domain.Sentencia, error) {
	s, err := scanSentencia(r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM sentencias WHERE id=?`, sentenciaColumns), id))
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) GetSentenciaByProceso(ctx context.Context, procesoID string) (domain.Sentencia, error) {
	s, err := scanSentencia(r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM sentencias WHERE proceso_id=?`, sentenciaColumns), procesoID))
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) SentenciaExisteTx(ctx context.Context, tx *sql.Tx, procesoID string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentencias WHERE proceso_id=?`, procesoID).Scan(&n)
	return n > 0, err
}
