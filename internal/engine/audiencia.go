package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
)

type AsistenteInput struct {
	ActorID     string
	Rol         string
	Obligatorio bool
}

type ProgramarAudienciaOptions struct {
	ProcesoID  string
	Tipo       string
	Modalidad  string
	Fecha      string
	Enlace     string
	Asistentes []AsistenteInput
	ActorID    string
}

var tiposAudiencia = map[string]bool{
	"PRELIMINAR":     true,
	"COMPLEMENTARIA": true,
	"CONCILIACION":   true,
}

var estadosProgramables = map[string]bool{
	domain.EstadoAdmitido:                true,
	domain.EstadoCitado:                  true,
	domain.EstadoContestado:              true,
	domain.EstadoAudienciaPreliminar:     true,
	domain.EstadoAudienciaComplementaria: true,
}

// ProgramarAudiencia schedules a hearing. Scheduling the preliminar or the
// complementaria moves the proceso into that stage; a conciliación leaves
// the estado alone.
func (e *Engine) ProgramarAudiencia(ctx context.Context, opts ProgramarAudienciaOptions) (domain.Audiencia, Efectos, error) {
	var efectos Efectos
	if !tiposAudiencia[opts.Tipo] {
		return domain.Audiencia{}, efectos, validationf("tipo", "unknown tipo %q", opts.Tipo)
	}
	switch opts.Modalidad {
	case "PRESENCIAL":
	case "VIRTUAL":
		if opts.Enlace == "" {
			return domain.Audiencia{}, efectos, validationf("enlace", "required for audiencia virtual")
		}
	default:
		return domain.Audiencia{}, efectos, validationf("modalidad", "must be PRESENCIAL or VIRTUAL")
	}
	fecha, err := time.Parse(time.RFC3339, opts.Fecha)
	if err != nil {
		return domain.Audiencia{}, efectos, validationf("fecha", "invalid: %v", err)
	}
	if !fecha.After(e.now()) {
		return domain.Audiencia{}, efectos, validationf("fecha", "must be in the future")
	}

	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpProgramarAudiencia, opts.ActorID, p)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	if !estadosProgramables[p.Estado] {
		return domain.Audiencia{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "audiencias cannot be scheduled in this estado"}
	}

	// A stage hearing advances the proceso; reprogramming within the stage
	// is allowed after a suspension or cancellation.
	hasta := ""
	switch opts.Tipo {
	case "PRELIMINAR":
		if p.Estado != domain.EstadoAudienciaPreliminar {
			hasta = domain.EstadoAudienciaPreliminar
		}
	case "COMPLEMENTARIA":
		if p.Estado != domain.EstadoAudienciaComplementaria {
			hasta = domain.EstadoAudienciaComplementaria
		}
	}
	if hasta != "" {
		if err := ensureTransicionProceso(p.Estado, hasta); err != nil {
			return domain.Audiencia{}, efectos, err
		}
	}

	ts := e.ts()
	a := domain.Audiencia{
		ID:        uuid.New().String(),
		ProcesoID: p.ID,
		Tipo:      opts.Tipo,
		Modalidad: opts.Modalidad,
		Estado:    domain.AudienciaProgramada,
		Fecha:     fecha.UTC().Format(time.RFC3339),
		JuezID:    actor.ID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if opts.Enlace != "" {
		a.Enlace = &opts.Enlace
	}
	// Both abogados attend obligatorily regardless of what the caller lists;
	// the parties themselves fill out the default list.
	registrados := map[string]bool{}
	agregar := func(actorID, rol string, obligatorio bool) {
		if actorID == "" || registrados[actorID] {
			return
		}
		registrados[actorID] = true
		a.Asistentes = append(a.Asistentes, domain.Asistente{
			AudienciaID: a.ID,
			ActorID:     actorID,
			Rol:         rol,
			Obligatorio: obligatorio,
		})
	}
	agregar(p.AbogadoDemandanteID, "ABOGADO", true)
	if p.AbogadoDemandadoID != nil {
		agregar(*p.AbogadoDemandadoID, "ABOGADO", true)
	}
	if len(opts.Asistentes) == 0 {
		agregar(p.DemandanteNombre, "DEMANDANTE", false)
		agregar(p.DemandadoNombre, "DEMANDADO", false)
	}
	for _, as := range opts.Asistentes {
		if as.ActorID == "" {
			return domain.Audiencia{}, efectos, validationf("asistentes", "actor_id required")
		}
		agregar(as.ActorID, as.Rol, as.Obligatorio)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	defer tx.Rollback()

	if opts.Tipo == "PRELIMINAR" && p.Estado == domain.EstadoContestado {
		pendientes, err := e.Repo.ExcepcionesPendientesTx(ctx, tx, p.ID)
		if err != nil {
			return domain.Audiencia{}, efectos, err
		}
		if pendientes > 0 {
			return domain.Audiencia{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: fmt.Sprintf("%d excepciones previas pendientes", pendientes)}
		}
	}
	yaProgramada, err := e.Repo.AudienciaProgramadaTx(ctx, tx, p.ID, opts.Tipo)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	if yaProgramada {
		return domain.Audiencia{}, efectos, EstadoError{Entidad: "audiencia", Desde: domain.AudienciaProgramada, Motivo: fmt.Sprintf("audiencia %s already scheduled", opts.Tipo)}
	}
	if err := e.Repo.InsertAudienciaTx(ctx, tx, a); err != nil {
		return domain.Audiencia{}, efectos, err
	}
	if hasta != "" {
		priorVersion := p.Version
		p.Estado = hasta
		p.UpdatedAt = ts
		if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
			return domain.Audiencia{}, efectos, err
		}
	}
	if err := e.Eventos.Append(ctx, tx, "audiencia.programada", p.ID, "audiencia", a.ID, actor.ID, events.EventPayload{
		"tipo":      a.Tipo,
		"modalidad": a.Modalidad,
		"fecha":     a.Fecha,
	}); err != nil {
		return domain.Audiencia{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Audiencia{}, efectos, err
	}

	mensaje := fmt.Sprintf("Audiencia %s programada para %s (%s)", a.Tipo, a.Fecha, a.Modalidad)
	if a.Modalidad == "VIRTUAL" && a.Enlace != nil {
		mensaje += fmt.Sprintf(", enlace: %s", *a.Enlace)
	}
	var notifs []domain.Notificacion
	for _, destinatario := range destinatariosAbogados(p, opts.Asistentes) {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ID,
			DestinatarioID: destinatario,
			Tipo:           "AUDIENCIA_PROGRAMADA",
			Mensaje:        mensaje,
			ReferenciaTipo: "audiencia",
			ReferenciaID:   a.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return a, efectos, nil
}

// destinatariosAbogados lists both abogados plus any caller-invited actor,
// without duplicates. The parties themselves are reached through their
// abogados and get no inbox row.
func destinatariosAbogados(p domain.Proceso, extra []AsistenteInput) []string {
	vistos := map[string]bool{}
	var res []string
	add := func(id string) {
		if id == "" || vistos[id] {
			return
		}
		vistos[id] = true
		res = append(res, id)
	}
	add(p.AbogadoDemandanteID)
	if p.AbogadoDemandadoID != nil {
		add(*p.AbogadoDemandadoID)
	}
	for _, as := range extra {
		add(as.ActorID)
	}
	return res
}

type CerrarAudienciaOptions struct {
	AudienciaID string
	Estado      string
	Acta        map[string]any
	Asistencia  map[string]bool
	// DirectoASentencia closes the etapa after a preliminar that exhausted
	// the debate, skipping the complementaria.
	DirectoASentencia bool
	ActorID           string
}

// CerrarAudiencia records the outcome of a scheduled hearing. A realizada
// complementaria (or a preliminar closed with DirectoASentencia) leaves the
// causa lista para sentencia; suspensions and cancellations only mark the
// audiencia.
func (e *Engine) CerrarAudiencia(ctx context.Context, opts CerrarAudienciaOptions) (domain.Audiencia, Efectos, error) {
	var efectos Efectos
	switch opts.Estado {
	case domain.AudienciaRealizada, domain.AudienciaSuspendida, domain.AudienciaCancelada:
	default:
		return domain.Audiencia{}, efectos, validationf("estado", "must be REALIZADA, SUSPENDIDA or CANCELADA")
	}
	a, err := e.Repo.GetAudiencia(ctx, opts.AudienciaID)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	if a.Estado != domain.AudienciaProgramada {
		return domain.Audiencia{}, efectos, EstadoError{Entidad: "audiencia", Desde: a.Estado, Hasta: opts.Estado}
	}
	if opts.Estado == domain.AudienciaRealizada && len(opts.Acta) == 0 {
		return domain.Audiencia{}, efectos, validationf("acta", "required for audiencia realizada")
	}
	p, err := e.Repo.GetProceso(ctx, a.ProcesoID)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpCerrarAudiencia, opts.ActorID, p)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}

	hasta := ""
	if opts.Estado == domain.AudienciaRealizada {
		switch {
		case a.Tipo == "COMPLEMENTARIA":
			hasta = domain.EstadoParaSentencia
		case a.Tipo == "PRELIMINAR" && opts.DirectoASentencia:
			hasta = domain.EstadoParaSentencia
		}
	}
	if hasta != "" {
		if err := ensureTransicionProceso(p.Estado, hasta); err != nil {
			return domain.Audiencia{}, efectos, err
		}
	}

	ts := e.ts()
	var acta *string
	if len(opts.Acta) > 0 {
		raw, err := json.Marshal(opts.Acta)
		if err != nil {
			return domain.Audiencia{}, efectos, err
		}
		s := string(raw)
		acta = &s
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Audiencia{}, efectos, err
	}
	defer tx.Rollback()

	if err := e.Repo.CerrarAudienciaTx(ctx, tx, a.ID, opts.Estado, acta, ts); err != nil {
		return domain.Audiencia{}, efectos, err
	}
	for actorID, presente := range opts.Asistencia {
		if err := e.Repo.MarcarAsistenciaTx(ctx, tx, a.ID, actorID, presente); err != nil {
			return domain.Audiencia{}, efectos, fmt.Errorf("asistencia %s: %w", actorID, err)
		}
	}
	if hasta != "" {
		priorVersion := p.Version
		p.Estado = hasta
		p.UpdatedAt = ts
		if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
			return domain.Audiencia{}, efectos, err
		}
	}
	if err := e.Eventos.Append(ctx, tx, "audiencia.cerrada", p.ID, "audiencia", a.ID, actor.ID, events.EventPayload{
		"tipo":   a.Tipo,
		"estado": opts.Estado,
	}); err != nil {
		return domain.Audiencia{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Audiencia{}, efectos, err
	}

	a.Estado = opts.Estado
	a.ActaJSON = acta
	a.UpdatedAt = ts

	var notifs []domain.Notificacion
	for _, destinatario := range destinatariosAbogados(p, nil) {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ID,
			DestinatarioID: destinatario,
			Tipo:           "AUDIENCIA_" + opts.Estado,
			Mensaje:        fmt.Sprintf("Audiencia %s del %s: %s", a.Tipo, a.Fecha, opts.Estado),
			ReferenciaTipo: "audiencia",
			ReferenciaID:   a.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return a, efectos, nil
}
