package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
)

type OrdenarCitacionOptions struct {
	ProcesoID string
	Tipo      string
	Direccion string
	ActorID   string
}

var tiposCitacion = map[string]bool{
	"PERSONAL": true,
	"CEDULA":   true,
	"EDICTO":   true,
	"TACITA":   true,
}

// requiereDireccion: edictos are published and la citación tácita is deemed
// served, neither involves a diligencia at a domicilio.
func requiereDireccion(tipo string) bool {
	return tipo == "PERSONAL" || tipo == "CEDULA"
}

// OrdenarCitacion orders service of process on the demandado and moves the
// proceso to CITADO. Only one citación may be open at a time; after a
// FALLIDA one a new citación can be ordered, typically por edicto.
func (e *Engine) OrdenarCitacion(ctx context.Context, opts OrdenarCitacionOptions) (domain.Citacion, Efectos, error) {
	var efectos Efectos
	if !tiposCitacion[opts.Tipo] {
		return domain.Citacion{}, efectos, validationf("tipo", "unknown tipo %q", opts.Tipo)
	}
	if requiereDireccion(opts.Tipo) && opts.Direccion == "" {
		return domain.Citacion{}, efectos, validationf("direccion", "required for citacion %s", opts.Tipo)
	}
	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpOrdenarCitacion, opts.ActorID, p)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	if p.Estado != domain.EstadoAdmitido && p.Estado != domain.EstadoCitado {
		return domain.Citacion{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "citacion requires an admitted demanda"}
	}

	ts := e.ts()
	c := domain.Citacion{
		ID:        uuid.New().String(),
		ProcesoID: p.ID,
		Tipo:      opts.Tipo,
		Estado:    domain.CitacionPendiente,
		Direccion: opts.Direccion,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	defer tx.Rollback()
	abierta, err := e.Repo.CitacionAbiertaTx(ctx, tx, p.ID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	if abierta {
		return domain.Citacion{}, efectos, EstadoError{Entidad: "citacion", Desde: domain.CitacionPendiente, Motivo: "a citacion is already open for this proceso"}
	}
	if err := e.Repo.InsertCitacionTx(ctx, tx, c); err != nil {
		return domain.Citacion{}, efectos, err
	}
	if p.Estado == domain.EstadoAdmitido {
		if err := ensureTransicionProceso(p.Estado, domain.EstadoCitado); err != nil {
			return domain.Citacion{}, efectos, err
		}
		priorVersion := p.Version
		p.Estado = domain.EstadoCitado
		p.UpdatedAt = ts
		if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
			return domain.Citacion{}, efectos, err
		}
	}
	if err := e.Eventos.Append(ctx, tx, "citacion.ordenada", p.ID, "citacion", c.ID, actor.ID, events.EventPayload{
		"tipo":   c.Tipo,
		"estado": p.Estado,
	}); err != nil {
		return domain.Citacion{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Citacion{}, efectos, err
	}

	efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "CITACION_ORDENADA",
		Mensaje:        fmt.Sprintf("Citacion %s ordenada contra %s", c.Tipo, p.DemandadoNombre),
		ReferenciaTipo: "citacion",
		ReferenciaID:   c.ID,
	}})
	return c, efectos, nil
}

type RegistrarIntentoOptions struct {
	CitacionID string
	Fecha      string
	Motivo     string
	ActorID    string
}

// RegistrarIntentoCitacion records a failed service attempt. Reaching the
// configured maximum marks the citación FALLIDA and recommends citación por
// edicto.
func (e *Engine) RegistrarIntentoCitacion(ctx context.Context, opts RegistrarIntentoOptions) (domain.Citacion, Efectos, error) {
	var efectos Efectos
	if opts.Motivo == "" {
		return domain.Citacion{}, efectos, validationf("motivo", "required")
	}
	fecha := opts.Fecha
	if fecha == "" {
		fecha = e.fecha()
	}
	c, err := e.Repo.GetCitacion(ctx, opts.CitacionID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	p, err := e.Repo.GetProceso(ctx, c.ProcesoID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpRegistrarIntento, opts.ActorID, p)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	// FALLIDA is terminal: further intentos go on a newly ordered citación.
	if c.Estado != domain.CitacionPendiente && c.Estado != domain.CitacionEnProceso {
		return domain.Citacion{}, efectos, EstadoError{Entidad: "citacion", Desde: c.Estado, Motivo: "citacion already closed"}
	}

	ts := e.ts()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	defer tx.Rollback()

	n, err := e.Repo.CountCitacionIntentosTx(ctx, tx, c.ID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	intento := domain.CitacionIntento{
		CitacionID: c.ID,
		Numero:     n + 1,
		Fecha:      fecha,
		Motivo:     opts.Motivo,
		ActorID:    actor.ID,
		CreatedAt:  ts,
	}
	if err := e.Repo.InsertCitacionIntentoTx(ctx, tx, intento); err != nil {
		return domain.Citacion{}, efectos, err
	}

	priorVersion := c.Version
	c.Estado = domain.CitacionEnProceso
	c.UpdatedAt = ts
	if intento.Numero >= e.Config.Citacion.MaxIntentos {
		c.Estado = domain.CitacionFallida
		rec := "EDICTO"
		c.Recomendacion = &rec
		efectos.Recomendacion = rec
	}
	if err := e.Repo.UpdateCitacionTx(ctx, tx, c, priorVersion); err != nil {
		return domain.Citacion{}, efectos, err
	}
	tipoEvento := "citacion.intento"
	if c.Estado == domain.CitacionFallida {
		tipoEvento = "citacion.fallida"
	}
	if err := e.Eventos.Append(ctx, tx, tipoEvento, p.ID, "citacion", c.ID, actor.ID, events.EventPayload{
		"numero": intento.Numero,
		"motivo": intento.Motivo,
	}); err != nil {
		return domain.Citacion{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Citacion{}, efectos, err
	}

	if c.Estado == domain.CitacionFallida && p.JuezID != nil {
		efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
			ProcesoID:      p.ID,
			DestinatarioID: *p.JuezID,
			Tipo:           "CITACION_FALLIDA",
			Mensaje:        fmt.Sprintf("Citacion fallida tras %d intentos; se recomienda citacion por edicto", intento.Numero),
			ReferenciaTipo: "citacion",
			ReferenciaID:   c.ID,
		}})
	}
	return c, efectos, nil
}

type RegistrarExitosaOptions struct {
	CitacionID string
	Fecha      string
	ActorID    string
}

// RegistrarCitacionExitosa records successful service and opens the plazo
// de contestación from the fecha de citación.
func (e *Engine) RegistrarCitacionExitosa(ctx context.Context, opts RegistrarExitosaOptions) (domain.Citacion, Efectos, error) {
	var efectos Efectos
	fecha := opts.Fecha
	if fecha == "" {
		fecha = e.fecha()
	}
	c, err := e.Repo.GetCitacion(ctx, opts.CitacionID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	p, err := e.Repo.GetProceso(ctx, c.ProcesoID)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpRegistrarExitosa, opts.ActorID, p)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	if c.Estado != domain.CitacionPendiente && c.Estado != domain.CitacionEnProceso {
		return domain.Citacion{}, efectos, EstadoError{Entidad: "citacion", Desde: c.Estado, Motivo: "citacion already closed"}
	}
	if p.Estado != domain.EstadoCitado {
		return domain.Citacion{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "proceso is no longer awaiting service"}
	}

	dias := e.Config.Plazos.Contestacion.General
	if c.Tipo == "EDICTO" {
		dias = e.Config.Plazos.Contestacion.Edicto
	}
	vencimiento, err := addDias(fecha, dias)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	destinatario := p.DemandadoNombre
	if p.AbogadoDemandadoID != nil {
		destinatario = *p.AbogadoDemandadoID
	}
	ts := e.ts()
	plazo := domain.Plazo{
		ID:               uuid.New().String(),
		ProcesoID:        p.ID,
		Tipo:             domain.PlazoContestacion,
		DestinatarioID:   destinatario,
		FechaInicio:      fecha,
		FechaVencimiento: vencimiento,
		Dias:             dias,
		Estado:           domain.PlazoActivo,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Citacion{}, efectos, err
	}
	defer tx.Rollback()

	priorCitVersion := c.Version
	c.Estado = domain.CitacionExitosa
	c.FechaCitacion = &fecha
	c.UpdatedAt = ts
	if err := e.Repo.UpdateCitacionTx(ctx, tx, c, priorCitVersion); err != nil {
		return domain.Citacion{}, efectos, err
	}
	if err := e.Repo.InsertPlazoTx(ctx, tx, plazo); err != nil {
		return domain.Citacion{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "citacion.exitosa", p.ID, "citacion", c.ID, actor.ID, events.EventPayload{
		"fecha":       fecha,
		"plazo_dias":  dias,
		"vencimiento": vencimiento,
	}); err != nil {
		return domain.Citacion{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Citacion{}, efectos, err
	}

	efectos.Plazos = append(efectos.Plazos, plazo)
	notifs := []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "CITACION_PRACTICADA",
		Mensaje:        fmt.Sprintf("Citacion practicada el %s; plazo de contestacion hasta %s", fecha, vencimiento),
		ReferenciaTipo: "plazo",
		ReferenciaID:   plazo.ID,
	}}
	if p.AbogadoDemandadoID != nil {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ID,
			DestinatarioID: *p.AbogadoDemandadoID,
			Tipo:           "CITACION_PRACTICADA",
			Mensaje:        fmt.Sprintf("Citacion practicada el %s; contestar hasta %s", fecha, vencimiento),
			ReferenciaTipo: "plazo",
			ReferenciaID:   plazo.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return c, efectos, nil
}
