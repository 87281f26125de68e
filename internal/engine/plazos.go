package engine

import (
	"context"
	"fmt"

	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
)

type BarrerPlazosOptions struct {
	ActorID string
}

// MarcarPlazosVencidos expires every active plazo whose vencimiento is in
// the past and notifies the destinatarios. It is idempotent and meant to
// run periodically.
func (e *Engine) MarcarPlazosVencidos(ctx context.Context, opts BarrerPlazosOptions) ([]domain.Plazo, Efectos, error) {
	var efectos Efectos
	actor, err := e.Auth.ResolveActor(ctx, opts.ActorID)
	if err != nil {
		return nil, efectos, err
	}
	if err := auth.Autorizar(auth.OpBarrerPlazos, actor, auth.Sujeto{}); err != nil {
		return nil, efectos, err
	}

	hoy := e.fecha()
	ts := e.ts()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, efectos, err
	}
	defer tx.Rollback()

	vencibles, err := e.Repo.PlazosVenciblesTx(ctx, tx, hoy)
	if err != nil {
		return nil, efectos, err
	}
	var vencidos []domain.Plazo
	for _, p := range vencibles {
		if err := e.Repo.SetPlazoEstadoTx(ctx, tx, p.ID, domain.PlazoVencido, ts); err != nil {
			return nil, efectos, err
		}
		if err := e.Eventos.Append(ctx, tx, "plazo.vencido", p.ProcesoID, "plazo", p.ID, actor.ID, events.EventPayload{
			"tipo":        p.Tipo,
			"vencimiento": p.FechaVencimiento,
		}); err != nil {
			return nil, efectos, err
		}
		p.Estado = domain.PlazoVencido
		p.UpdatedAt = ts
		vencidos = append(vencidos, p)
	}
	if err := tx.Commit(); err != nil {
		return nil, efectos, err
	}

	var notifs []domain.Notificacion
	for _, p := range vencidos {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ProcesoID,
			DestinatarioID: p.DestinatarioID,
			Tipo:           "PLAZO_VENCIDO",
			Mensaje:        fmt.Sprintf("Plazo de %s vencido el %s", p.Tipo, p.FechaVencimiento),
			ReferenciaTipo: "plazo",
			ReferenciaID:   p.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return vencidos, efectos, nil
}
