package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"expedientes/internal/domain"
)

const notificacionColumns = `id,proceso_id,destinatario_id,tipo,mensaje,referencia_tipo,referencia_id,leida,fecha_creacion,fecha_leida`

func scanNotificacion(row interface{ Scan(...any) error }) (domain.Notificacion, error) {
	var n domain.Notificacion
	var refTipo, refID, fechaLeida sql.NullString
	var leida int
	err := row.Scan(&n.ID, &n.ProcesoID, &n.DestinatarioID, &n.Tipo, &n.Mensaje,
		&refTipo, &refID, &leida, &n.FechaCreacion, &fechaLeida)
	if err != nil {
		return n, err
	}
	n.ReferenciaTipo = refTipo.String
	n.ReferenciaID = refID.String
	n.Leida = leida != 0
	if fechaLeida.Valid {
		n.FechaLeida = &fechaLeida.String
	}
	return n, nil
}

type NotificacionFilters struct {
	DestinatarioID string
	ProcesoID      string
	SoloNoLeidas   bool
}

func (r Repo) ListNotificaciones(ctx context.Context, f NotificacionFilters, limit int) ([]domain.Notificacion, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if f.DestinatarioID != "" {
		clauses = append(clauses, "destinatario_id=?")
		args = append(args, f.DestinatarioID)
	}
	if f.ProcesoID != "" {
		clauses = append(clauses, "proceso_id=?")
		args = append(args, f.ProcesoID)
	}
	if f.SoloNoLeidas {
		clauses = append(clauses, "leida=0")
	}
	query := fmt.Sprintf(`SELECT %s FROM notificaciones WHERE %s ORDER BY fecha_creacion DESC, id DESC LIMIT ?`,
		notificacionColumns, strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notificacion
	for rows.Next() {
		n, err := scanNotificacion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

func (r Repo) GetNotificacion(ctx context.Context, id string) (domain.Notificacion, error) {
	n, err := scanNotificacion(r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM notificaciones WHERE id=?`, notificacionColumns), id))
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}

// MarcarNotificacionLeida is idempotent: an already-read notification keeps
// its original fecha_leida.
func (r Repo) MarcarNotificacionLeida(ctx context.Context, id, fechaLeida string) (domain.Notificacion, error) {
	_, err := r.DB.ExecContext(ctx, `UPDATE notificaciones SET leida=1, fecha_leida=? WHERE id=? AND leida=0`, fechaLeida, id)
	if err != nil {
		return domain.Notificacion{}, err
	}
	return r.GetNotificacion(ctx, id)
}
