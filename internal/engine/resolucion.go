package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
)

type EmitirResolucionOptions struct {
	ProcesoID    string
	Tipo         string
	Vistos       string
	Considerando string
	PorTanto     string
	ActorID      string
}

var tiposResolucion = map[string]bool{
	domain.ResolucionProvidencia:        true,
	domain.ResolucionAutoInterlocutorio: true,
	domain.ResolucionAutoDefinitivo:     true,
}

func validarTextoResolucion(vistos, considerando, porTanto string) error {
	if vistos == "" {
		return validationf("vistos", "required")
	}
	if considerando == "" {
		return validationf("considerando", "required")
	}
	if porTanto == "" {
		return validationf("por_tanto", "required")
	}
	return nil
}

// EmitirResolucion issues a resolución on a live proceso.
func (e *Engine) EmitirResolucion(ctx context.Context, opts EmitirResolucionOptions) (domain.Resolucion, error) {
	if !tiposResolucion[opts.Tipo] {
		return domain.Resolucion{}, validationf("tipo", "unknown tipo %q", opts.Tipo)
	}
	if err := validarTextoResolucion(opts.Vistos, opts.Considerando, opts.PorTanto); err != nil {
		return domain.Resolucion{}, err
	}
	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Resolucion{}, err
	}
	actor, err := e.autorizar(ctx, auth.OpEmitirResolucion, opts.ActorID, p)
	if err != nil {
		return domain.Resolucion{}, err
	}
	if p.Estado == domain.EstadoRechazado || p.Estado == domain.EstadoArchivado {
		return domain.Resolucion{}, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "proceso is closed"}
	}

	ts := e.ts()
	res := domain.Resolucion{
		ID:           uuid.New().String(),
		ProcesoID:    p.ID,
		Tipo:         opts.Tipo,
		Vistos:       opts.Vistos,
		Considerando: opts.Considerando,
		PorTanto:     opts.PorTanto,
		JuezID:       actor.ID,
		FechaEmision: ts,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	res.DocumentoHash = documentoHash(res.ProcesoID, res.Tipo, res.Vistos, res.Considerando, res.PorTanto)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Resolucion{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertResolucionTx(ctx, tx, res); err != nil {
		return domain.Resolucion{}, err
	}
	if err := e.Eventos.Append(ctx, tx, "resolucion.emitida", p.ID, "resolucion", res.ID, actor.ID, events.EventPayload{
		"tipo": res.Tipo,
	}); err != nil {
		return domain.Resolucion{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Resolucion{}, err
	}
	return res, nil
}

type ModificarResolucionOptions struct {
	ResolucionID string
	Vistos       string
	Considerando string
	PorTanto     string
	ActorID      string
}

// ModificarResolucion rewrites a resolución that has not yet been notified.
// Notification freezes the document.
func (e *Engine) ModificarResolucion(ctx context.Context, opts ModificarResolucionOptions) (domain.Resolucion, error) {
	if err := validarTextoResolucion(opts.Vistos, opts.Considerando, opts.PorTanto); err != nil {
		return domain.Resolucion{}, err
	}
	res, err := e.Repo.GetResolucion(ctx, opts.ResolucionID)
	if err != nil {
		return domain.Resolucion{}, err
	}
	if res.FechaNotificacion != nil {
		return domain.Resolucion{}, EstadoError{Entidad: "resolucion", Desde: "NOTIFICADA", Motivo: "a notified resolucion is immutable"}
	}
	p, err := e.Repo.GetProceso(ctx, res.ProcesoID)
	if err != nil {
		return domain.Resolucion{}, err
	}
	actor, err := e.autorizar(ctx, auth.OpModificarResolucion, opts.ActorID, p)
	if err != nil {
		return domain.Resolucion{}, err
	}

	ts := e.ts()
	res.Vistos = opts.Vistos
	res.Considerando = opts.Considerando
	res.PorTanto = opts.PorTanto
	res.DocumentoHash = documentoHash(res.ProcesoID, res.Tipo, res.Vistos, res.Considerando, res.PorTanto)
	res.UpdatedAt = ts

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Resolucion{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateResolucionTx(ctx, tx, res); err != nil {
		return domain.Resolucion{}, err
	}
	if err := e.Eventos.Append(ctx, tx, "resolucion.modificada", p.ID, "resolucion", res.ID, actor.ID, events.EventPayload{
		"documento_hash": res.DocumentoHash,
	}); err != nil {
		return domain.Resolucion{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Resolucion{}, err
	}
	return res, nil
}

type NotificarResolucionOptions struct {
	ResolucionID string
	ActorID      string
}

// NotificarResolucion serves the resolución on the parties and freezes it.
func (e *Engine) NotificarResolucion(ctx context.Context, opts NotificarResolucionOptions) (domain.Resolucion, Efectos, error) {
	var efectos Efectos
	res, err := e.Repo.GetResolucion(ctx, opts.ResolucionID)
	if err != nil {
		return domain.Resolucion{}, efectos, err
	}
	if res.FechaNotificacion != nil {
		return domain.Resolucion{}, efectos, EstadoError{Entidad: "resolucion", Desde: "NOTIFICADA", Motivo: "already notified"}
	}
	p, err := e.Repo.GetProceso(ctx, res.ProcesoID)
	if err != nil {
		return domain.Resolucion{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpNotificarResolucion, opts.ActorID, p)
	if err != nil {
		return domain.Resolucion{}, efectos, err
	}

	ts := e.ts()
	res.FechaNotificacion = &ts
	res.UpdatedAt = ts

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Resolucion{}, efectos, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateResolucionTx(ctx, tx, res); err != nil {
		return domain.Resolucion{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "resolucion.notificada", p.ID, "resolucion", res.ID, actor.ID, nil); err != nil {
		return domain.Resolucion{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Resolucion{}, efectos, err
	}

	notifs := []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "RESOLUCION_NOTIFICADA",
		Mensaje:        fmt.Sprintf("Resolucion %s notificada: %s", res.Tipo, res.PorTanto),
		ReferenciaTipo: "resolucion",
		ReferenciaID:   res.ID,
	}}
	if p.AbogadoDemandadoID != nil {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ID,
			DestinatarioID: *p.AbogadoDemandadoID,
			Tipo:           "RESOLUCION_NOTIFICADA",
			Mensaje:        fmt.Sprintf("Resolucion %s notificada: %s", res.Tipo, res.PorTanto),
			ReferenciaTipo: "resolucion",
			ReferenciaID:   res.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return res, efectos, nil
}

type EliminarResolucionOptions struct {
	ResolucionID string
	ActorID      string
}

// EliminarResolucion removes an unnotified resolución while the deletion
// window is still open.
func (e *Engine) EliminarResolucion(ctx context.Context, opts EliminarResolucionOptions) error {
	res, err := e.Repo.GetResolucion(ctx, opts.ResolucionID)
	if err != nil {
		return err
	}
	if res.FechaNotificacion != nil {
		return EstadoError{Entidad: "resolucion", Desde: "NOTIFICADA", Motivo: "a notified resolucion cannot be deleted"}
	}
	emitida, err := time.Parse(time.RFC3339, res.FechaEmision)
	if err != nil {
		return fmt.Errorf("parse fecha_emision: %w", err)
	}
	ventana := time.Duration(e.Config.Resoluciones.VentanaEliminacionHoras) * time.Hour
	if e.now().UTC().Sub(emitida) > ventana {
		return EstadoError{Entidad: "resolucion", Desde: "EMITIDA", Motivo: fmt.Sprintf("deletion window of %s expired", ventana)}
	}
	p, err := e.Repo.GetProceso(ctx, res.ProcesoID)
	if err != nil {
		return err
	}
	actor, err := e.autorizar(ctx, auth.OpEliminarResolucion, opts.ActorID, p)
	if err != nil {
		return err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteResolucionTx(ctx, tx, res.ID); err != nil {
		return err
	}
	if err := e.Eventos.Append(ctx, tx, "resolucion.eliminada", p.ID, "resolucion", res.ID, actor.ID, events.EventPayload{
		"tipo": res.Tipo,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

type EmitirSentenciaOptions struct {
	ProcesoID    string
	Vistos       string
	Considerando string
	PorTanto     string
	Decision     string
	ActorID      string
}

var decisionesSentencia = map[string]bool{
	"PROBADA":          true,
	"PROBADA_EN_PARTE": true,
	"IMPROBADA":        true,
}

// EmitirSentencia issues the final judgment and archives the proceso. A
// proceso admits exactly one sentencia.
func (e *Engine) EmitirSentencia(ctx context.Context, opts EmitirSentenciaOptions) (domain.Sentencia, Efectos, error) {
	var efectos Efectos
	if !decisionesSentencia[opts.Decision] {
		return domain.Sentencia{}, efectos, validationf("decision", "must be PROBADA, PROBADA_EN_PARTE or IMPROBADA")
	}
	if err := validarTextoResolucion(opts.Vistos, opts.Considerando, opts.PorTanto); err != nil {
		return domain.Sentencia{}, efectos, err
	}
	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Sentencia{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpEmitirSentencia, opts.ActorID, p)
	if err != nil {
		return domain.Sentencia{}, efectos, err
	}
	if p.Estado != domain.EstadoParaSentencia {
		return domain.Sentencia{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "causa is not lista para sentencia"}
	}

	ts := e.ts()
	s := domain.Sentencia{
		ID:           uuid.New().String(),
		ProcesoID:    p.ID,
		Vistos:       opts.Vistos,
		Considerando: opts.Considerando,
		PorTanto:     opts.PorTanto,
		Decision:     opts.Decision,
		JuezID:       actor.ID,
		FechaEmision: ts,
		CreatedAt:    ts,
	}
	s.DocumentoHash = documentoHash(s.ProcesoID, "SENTENCIA", s.Vistos, s.Considerando, s.PorTanto, s.Decision)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Sentencia{}, efectos, err
	}
	defer tx.Rollback()

	existe, err := e.Repo.SentenciaExisteTx(ctx, tx, p.ID)
	if err != nil {
		return domain.Sentencia{}, efectos, err
	}
	if existe {
		return domain.Sentencia{}, efectos, EstadoError{Entidad: "sentencia", Desde: "EMITIDA", Motivo: "proceso already has a sentencia"}
	}
	if err := e.Repo.InsertSentenciaTx(ctx, tx, s); err != nil {
		return domain.Sentencia{}, efectos, err
	}
	priorVersion := p.Version
	p.Estado = domain.EstadoArchivado
	p.UpdatedAt = ts
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Sentencia{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "sentencia.emitida", p.ID, "sentencia", s.ID, actor.ID, events.EventPayload{
		"decision": s.Decision,
	}); err != nil {
		return domain.Sentencia{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Sentencia{}, efectos, err
	}

	notifs := []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "SENTENCIA_EMITIDA",
		Mensaje:        fmt.Sprintf("Sentencia emitida: demanda %s", s.Decision),
		ReferenciaTipo: "sentencia",
		ReferenciaID:   s.ID,
	}}
	if p.AbogadoDemandadoID != nil {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ID,
			DestinatarioID: *p.AbogadoDemandadoID,
			Tipo:           "SENTENCIA_EMITIDA",
			Mensaje:        fmt.Sprintf("Sentencia emitida: demanda %s", s.Decision),
			ReferenciaTipo: "sentencia",
			ReferenciaID:   s.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return s, efectos, nil
}
