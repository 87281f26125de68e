package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"expedientes/internal/domain"
)

func (r Repo) InsertProcesoTx(ctx context.Context, tx *sql.Tx, p domain.Proceso) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO procesos(id,juzgado_id,nurej,materia,tipo_proceso,estado,demandante_nombre,demandado_nombre,abogado_demandante_id,abogado_demandado_id,juez_id,version,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.JuzgadoID, nullableStringPtr(p.Nurej), p.Materia, p.TipoProceso, p.Estado,
		p.DemandanteNombre, p.DemandadoNombre, p.AbogadoDemandanteID,
		nullableStringPtr(p.AbogadoDemandadoID), nullableStringPtr(p.JuezID),
		p.Version, p.CreatedAt, p.UpdatedAt)
	return err
}

const procesoColumns = `id,juzgado_id,nurej,materia,tipo_proceso,estado,demandante_nombre,demandado_nombre,abogado_demandante_id,abogado_demandado_id,juez_id,version,created_at,updated_at`

func scanProceso(row interface{ Scan(...any) error }) (domain.Proceso, error) {
	var p domain.Proceso
	var nurej, abogadoDemandado, juez sql.NullString
	err := row.Scan(&p.ID, &p.JuzgadoID, &nurej, &p.Materia, &p.TipoProceso, &p.Estado,
		&p.DemandanteNombre, &p.DemandadoNombre, &p.AbogadoDemandanteID,
		&abogadoDemandado, &juez, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if nurej.Valid {
		p.Nurej = &nurej.String
	}
	if abogadoDemandado.Valid {
		p.AbogadoDemandadoID = &abogadoDemandado.String
	}
	if juez.Valid {
		p.JuezID = &juez.String
	}
	return p, nil
}

func (r Repo) GetProceso(ctx context.Context, id string) (domain.Proceso, error) {
	return getProceso(ctx, r.DB.QueryRowContext, id)
}

func (r Repo) GetProcesoTx(ctx context.Context, tx *sql.Tx, id string) (domain.Proceso, error) {
	return getProceso(ctx, tx.QueryRowContext, id)
}

func getProceso(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, id string) (domain.Proceso, error) {
	p, err := scanProceso(queryRow(ctx, fmt.Sprintf(`SELECT %s FROM procesos WHERE id=?`, procesoColumns), id))
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetProcesoByNurej(ctx context.Context, nurej string) (domain.Proceso, error) {
	p, err := scanProceso(r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM procesos WHERE nurej=?`, procesoColumns), nurej))
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// UpdateProcesoTx writes the proceso back guarded by its prior version.
// Returns ErrConflict when another writer got there first.
func (r Repo) UpdateProcesoTx(ctx context.Context, tx *sql.Tx, p domain.Proceso, priorVersion int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE procesos SET nurej=?, estado=?, abogado_demandado_id=?, juez_id=?, version=version+1, updated_at=? WHERE id=? AND version=?`,
		nullableStringPtr(p.Nurej), p.Estado, nullableStringPtr(p.AbogadoDemandadoID),
		nullableStringPtr(p.JuezID), p.UpdatedAt, p.ID, priorVersion)
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

// CountProcesosByEstado returns the number of procesos per estado for a juzgado.
func (r Repo) CountProcesosByEstado(ctx context.Context, juzgadoID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT estado, COUNT(*) FROM procesos WHERE juzgado_id=? GROUP BY estado`, juzgadoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var estado string
		var n int
		if err := rows.Scan(&estado, &n); err != nil {
			return nil, err
		}
		counts[estado] = n
	}
	return counts, nil
}

type ProcesoFilters struct {
	JuzgadoID string
	Estado    string
	AbogadoID string
	JuezID    string
	Search    string
}

// ListProcesos returns procesos newest first, with cursor pagination on
// (created_at,id).
func (r Repo) ListProcesos(ctx context.Context, f ProcesoFilters, limit int, cursor string) ([]domain.Proceso, string, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if f.JuzgadoID != "" {
		clauses = append(clauses, "juzgado_id=?")
		args = append(args, f.JuzgadoID)
	}
	if f.Estado != "" {
		clauses = append(clauses, "estado=?")
		args = append(args, f.Estado)
	}
	if f.AbogadoID != "" {
		clauses = append(clauses, "(abogado_demandante_id=? OR abogado_demandado_id=?)")
		args = append(args, f.AbogadoID, f.AbogadoID)
	}
	if f.JuezID != "" {
		clauses = append(clauses, "juez_id=?")
		args = append(args, f.JuezID)
	}
	if f.Search != "" {
		clauses = append(clauses, "(demandante_nombre LIKE ? OR demandado_nombre LIKE ? OR nurej LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}
	if cursor != "" {
		ts, id, ok := strings.Cut(cursor, "|")
		if !ok {
			return nil, "", fmt.Errorf("invalid cursor")
		}
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, ts, ts, id)
	}
	query := fmt.Sprintf(`SELECT %s FROM procesos WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`,
		procesoColumns, strings.Join(clauses, " AND "))
	args = append(args, limit+1)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	var res []domain.Proceso
	for rows.Next() {
		p, err := scanProceso(rows)
		if err != nil {
			return nil, "", err
		}
		res = append(res, p)
	}
	next := ""
	if len(res) > limit {
		res = res[:limit]
		last := res[len(res)-1]
		next = last.CreatedAt + "|" + last.ID
	}
	return res, next, nil
}
