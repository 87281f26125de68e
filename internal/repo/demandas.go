package repo

import (
	"context"
	"database/sql"
	"fmt"

	"expedientes/internal/domain"
)

const demandaColumns = `id,proceso_id,num,hechos,petitorio,pruebas_json,cuantia,observaciones,documento_hash,created_at,updated_at`

func (r Repo) InsertDemandaTx(ctx context.Context, tx *sql.Tx, d domain.Demanda) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO demandas(id,proceso_id,num,hechos,petitorio,pruebas_json,cuantia,observaciones,documento_hash,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ProcesoID, d.Num, d.Hechos, d.Petitorio,
		nullableStringPtr(d.PruebasJSON), nullableFloatPtr(d.Cuantia),
		nullableStringPtr(d.Observaciones), d.DocumentoHash, d.CreatedAt, d.UpdatedAt)
	return err
}

func scanDemanda(row interface{ Scan(...any) error }) (domain.Demanda, error) {
	var d domain.Demanda
	var pruebas, observaciones sql.NullString
	var cuantia sql.NullFloat64
	err := row.Scan(&d.ID, &d.ProcesoID, &d.Num, &d.Hechos, &d.Petitorio,
		&pruebas, &cuantia, &observaciones, &d.DocumentoHash, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	if pruebas.Valid {
		d.PruebasJSON = &pruebas.String
	}
	if cuantia.Valid {
		d.Cuantia = &cuantia.Float64
	}
	if observaciones.Valid {
		d.Observaciones = &observaciones.String
	}
	return d, nil
}

func (r Repo) GetDemanda(ctx context.Context, id string) (domain.Demanda, error) {
	d, err := scanDemanda(r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM demandas WHERE id=?`, demandaColumns), id))
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

// UltimaDemandaTx returns the highest-numbered demanda of the proceso.
func (r Repo) UltimaDemandaTx(ctx context.Context, tx *sql.Tx, procesoID string) (domain.Demanda, error) {
	d, err := scanDemanda(tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM demandas WHERE proceso_id=? ORDER BY num DESC LIMIT 1`, demandaColumns), procesoID))
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) SetDemandaObservacionesTx(ctx context.Context, tx *sql.Tx, id, observaciones, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE demandas SET observaciones=?, updated_at=? WHERE id=?`, observaciones, updatedAt, id)
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

func (r Repo) ListDemandas(ctx context.Context, procesoID string) ([]domain.Demanda, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM demandas WHERE proceso_id=? ORDER BY num ASC`, demandaColumns), procesoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Demanda
	for rows.Next() {
		d, err := scanDemanda(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}
