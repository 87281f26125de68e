package repo

import (
	"context"
	"database/sql"
	"fmt"

	"expedientes/internal/domain"
)

const audienciaColumns = `id,proceso_id,tipo,modalidad,estado,fecha,enlace,acta_json,juez_id,created_at,updated_at`

func (r Repo) InsertAudienciaTx(ctx context.Context, tx *sql.Tx, a domain.Audiencia) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO audiencias(id,proceso_id,tipo,modalidad,estado,fecha,enlace,acta_json,juez_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.ProcesoID, a.Tipo, a.Modalidad, a.Estado, a.Fecha,
		nullableStringPtr(a.Enlace), nullableStringPtr(a.ActaJSON), a.JuezID,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return err
	}
	for _, as := range a.Asistentes {
		if err := r.insertAsistenteTx(ctx, tx, a.ID, as); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) insertAsistenteTx(ctx context.Context, tx *sql.Tx, audienciaID string, a domain.Asistente) error {
	var presente any
	if a.Presente != nil {
		presente = boolInt(*a.Presente)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO audiencia_asistentes(audiencia_id,actor_id,rol,obligatorio,presente) VALUES (?,?,?,?,?)`,
		audienciaID, a.ActorID, a.Rol, boolInt(a.Obligatorio), presente)
	return err
}

func scanAudiencia(row interface{ Scan(...any) error }) (domain.Audiencia, error) {
	var a domain.Audiencia
	var enlace, acta sql.NullString
	err := row.Scan(&a.ID, &a.ProcesoID, &a.Tipo, &a.Modalidad, &a.Estado, &a.Fecha,
		&enlace, &acta, &a.JuezID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	if enlace.Valid {
		a.Enlace = &enlace.String
	}
	if acta.Valid {
		a.ActaJSON = &acta.String
	}
	return a, nil
}

func (r Repo) GetAudiencia(ctx context.Context, id string) (domain.Audiencia, error) {
	a, err := getAudiencia(ctx, r.DB.QueryRowContext, id)
	if err != nil {
		return a, err
	}
	a.Asistentes, err = r.listAsistentes(ctx, id)
	return a, err
}

func (r Repo) GetAudienciaTx(ctx context.Context, tx *sql.Tx, id string) (domain.Audiencia, error) {
	return getAudiencia(ctx, tx.QueryRowContext, id)
}

func getAudiencia(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, id string) (domain.Audiencia, error) {
	a, err := scanAudiencia(queryRow(ctx, fmt.Sprintf(`SELECT %s FROM audiencias WHERE id=?`, audienciaColumns), id))
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) listAsistentes(ctx context.Context, audienciaID string) ([]domain.Asistente, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT audiencia_id,actor_id,rol,obligatorio,presente FROM audiencia_asistentes WHERE audiencia_id=? ORDER BY actor_id ASC`, audienciaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Asistente
	for rows.Next() {
		var a domain.Asistente
		var obligatorio int
		var presente sql.NullInt64
		if err := rows.Scan(&a.AudienciaID, &a.ActorID, &a.Rol, &obligatorio, &presente); err != nil {
			return nil, err
		}
		a.Obligatorio = obligatorio != 0
		if presente.Valid {
			v := presente.Int64 != 0
			a.Presente = &v
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) CerrarAudienciaTx(ctx context.Context, tx *sql.Tx, id, estado string, actaJSON *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE audiencias SET estado=?, acta_json=?, updated_at=? WHERE id=?`,
		estado, nullableStringPtr(actaJSON), updatedAt, id)
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

func (r Repo) MarcarAsistenciaTx(ctx context.Context, tx *sql.Tx, audienciaID, actorID string, presente bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE audiencia_asistentes SET presente=? WHERE audiencia_id=? AND actor_id=?`,
		boolInt(presente), audienciaID, actorID)
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

func (r Repo) ListAudiencias(ctx context.Context, procesoID string) ([]domain.Audiencia, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM audiencias WHERE proceso_id=? ORDER BY fecha ASC`, audienciaColumns), procesoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Audiencia
	for rows.Next() {
		a, err := scanAudiencia(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

// AudienciaProgramadaTx reports whether the proceso already has a pending
// audiencia of the given tipo.
func (r Repo) AudienciaProgramadaTx(ctx context.Context, tx *sql.Tx, procesoID, tipo string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM audiencias WHERE proceso_id=? AND tipo=? AND estado=?`,
		procesoID, tipo, domain.AudienciaProgramada).Scan(&n)
	return n > 0, err
}
