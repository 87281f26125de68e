package repo

import (
	"context"
	"database/sql"
	"fmt"

	"expedientes/internal/domain"
)

const citacionColumns = `id,proceso_id,tipo,estado,direccion,fecha_citacion,recomendacion,version,created_at,updated_at`

func (r Repo) InsertCitacionTx(ctx context.Context, tx *sql.Tx, c domain.Citacion) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO citaciones(id,proceso_id,tipo,estado,direccion,fecha_citacion,recomendacion,version,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ProcesoID, c.Tipo, c.Estado, nullable(c.Direccion),
		nullableStringPtr(c.FechaCitacion), nullableStringPtr(c.Recomendacion),
		c.Version, c.CreatedAt, c.UpdatedAt)
	return err
}

func scanCitacion(row interface{ Scan(...any) error }) (domain.Citacion, error) {
	var c domain.Citacion
	var direccion, fecha, recomendacion sql.NullString
	err := row.Scan(&c.ID, &c.ProcesoID, &c.Tipo, &c.Estado, &direccion,
		&fecha, &recomendacion, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Direccion = direccion.String
	if fecha.Valid {
		c.FechaCitacion = &fecha.String
	}
	if recomendacion.Valid {
		c.Recomendacion = &recomendacion.String
	}
	return c, nil
}

func (r Repo) GetCitacion(ctx context.Context, id string) (domain.Citacion, error) {
	return getCitacion(ctx, r.DB.QueryRowContext, id)
}

func (r Repo) GetCitacionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Citacion, error) {
	return getCitacion(ctx, tx.QueryRowContext, id)
}

func getCitacion(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, id string) (domain.Citacion, error) {
	c, err := scanCitacion(queryRow(ctx, fmt.Sprintf(`SELECT %s FROM citaciones WHERE id=?`, citacionColumns), id))
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// UpdateCitacionTx writes the citación back guarded by its prior version.
func (r Repo) UpdateCitacionTx(ctx context.Context, tx *sql.Tx, c domain.Citacion, priorVersion int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE citaciones SET tipo=?, estado=?, fecha_citacion=?, recomendacion=?, version=version+1, updated_at=? WHERE id=? AND version=?`,
		c.Tipo, c.Estado, nullableStringPtr(c.FechaCitacion), nullableStringPtr(c.Recomendacion),
		c.UpdatedAt, c.ID, priorVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CitacionAbiertaTx reports whether the proceso has a citación that is not
// FALLIDA: pending, in process, or already served.
func (r Repo) CitacionAbiertaTx(ctx context.Context, tx *sql.Tx, procesoID string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM citaciones WHERE proceso_id=? AND estado<>?`, procesoID, domain.CitacionFallida).Scan(&n)
	return n > 0, err
}

// CitacionExitosa reports whether service of process succeeded for the proceso.
func (r Repo) CitacionExitosa(ctx context.Context, procesoID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM citaciones WHERE proceso_id=? AND estado=?`, procesoID, domain.CitacionExitosa).Scan(&n)
	return n > 0, err
}

func (r Repo) ListCitaciones(ctx context.Context, procesoID string) ([]domain.Citacion, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM citaciones WHERE proceso_id=? ORDER BY created_at ASC`, citacionColumns), procesoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Citacion
	for rows.Next() {
		c, err := scanCitacion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) InsertCitacionIntentoTx(ctx context.Context, tx *sql.Tx, i domain.CitacionIntento) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO citacion_intentos(citacion_id,numero,fecha,motivo,actor_id,created_at) VALUES (?,?,?,?,?,?)`,
		i.CitacionID, i.Numero, i.Fecha, i.Motivo, i.ActorID, i.CreatedAt)
	return err
}

func (r Repo) CountCitacionIntentosTx(ctx context.Context, tx *sql.Tx, citacionID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM citacion_intentos WHERE citacion_id=?`, citacionID).Scan(&n)
	return n, err
}

func (r Repo) ListCitacionIntentos(ctx context.Context, citacionID string) ([]domain.CitacionIntento, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,citacion_id,numero,fecha,motivo,actor_id,created_at FROM citacion_intentos WHERE citacion_id=? ORDER BY numero ASC`, citacionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CitacionIntento
	for rows.Next() {
		var i domain.CitacionIntento
		if err := rows.Scan(&i.ID, &i.CitacionID, &i.Numero, &i.Fecha, &i.Motivo, &i.ActorID, &i.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, nil
}
