package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"expedientes/internal/domain"
)

const plazoColumns = `id,proceso_id,tipo,destinatario_id,fecha_inicio,fecha_vencimiento,dias,estado,created_at,updated_at`

func (r Repo) InsertPlazoTx(ctx context.Context, tx *sql.Tx, p domain.Plazo) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO plazos(id,proceso_id,tipo,destinatario_id,fecha_inicio,fecha_vencimiento,dias,estado,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ProcesoID, p.Tipo, p.DestinatarioID, p.FechaInicio,
		p.FechaVencimiento, p.Dias, p.Estado, p.CreatedAt, p.UpdatedAt)
	return err
}

func scanPlazo(row interface{ Scan(...any) error }) (domain.Plazo, error) {
	var p domain.Plazo
	err := row.Scan(&p.ID, &p.ProcesoID, &p.Tipo, &p.DestinatarioID, &p.FechaInicio,
		&p.FechaVencimiento, &p.Dias, &p.Estado, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r Repo) GetPlazo(ctx context.Context, id string) (domain.Plazo, error) {
	p, err := scanPlazo(r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM plazos WHERE id=?`, plazoColumns), id))
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) SetPlazoEstadoTx(ctx context.Context, tx *sql.Tx, id, estado, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE plazos SET estado=?, updated_at=? WHERE id=?`, estado, updatedAt, id)
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

// CumplirPlazosActivosTx marks the proceso's active plazos of the given tipo
// as cumplidos. Returns how many rows changed.
func (r Repo) CumplirPlazosActivosTx(ctx context.Context, tx *sql.Tx, procesoID, tipo, updatedAt string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE plazos SET estado=?, updated_at=? WHERE proceso_id=? AND tipo=? AND estado=?`,
		domain.PlazoCumplido, updatedAt, procesoID, tipo, domain.PlazoActivo)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PlazosVenciblesTx returns active plazos whose fecha_vencimiento is strictly
// before the given date.
func (r Repo) PlazosVenciblesTx(ctx context.Context, tx *sql.Tx, fecha string) ([]domain.Plazo, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM plazos WHERE estado=? AND fecha_vencimiento<? ORDER BY fecha_vencimiento ASC`, plazoColumns),
		domain.PlazoActivo, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Plazo
	for rows.Next() {
		p, err := scanPlazo(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

type PlazoFilters struct {
	ProcesoID      string
	Estado         string
	Tipo           string
	DestinatarioID string
}

func (r Repo) ListPlazos(ctx context.Context, f PlazoFilters) ([]domain.Plazo, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ProcesoID != "" {
		clauses = append(clauses, "proceso_id=?")
		args = append(args, f.ProcesoID)
	}
	if f.Estado != "" {
		clauses = append(clauses, "estado=?")
		args = append(args, f.Estado)
	}
	if f.Tipo != "" {
		clauses = append(clauses, "tipo=?")
		args = append(args, f.Tipo)
	}
	if f.DestinatarioID != "" {
		clauses = append(clauses, "destinatario_id=?")
		args = append(args, f.DestinatarioID)
	}
	query := fmt.Sprintf(`SELECT %s FROM plazos WHERE %s ORDER BY fecha_vencimiento ASC`, plazoColumns, strings.Join(clauses, " AND "))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Plazo
	for rows.Next() {
		p, err := scanPlazo(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}
