package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
)

type PresentarContestacionOptions struct {
	ProcesoID    string
	Negacion     *domain.Negacion
	Allanamiento *domain.Allanamiento
	Excepcion    *domain.ExcepcionPrevia
	Reconvencion *domain.Reconvencion
	ActorID      string
}

// variante returns the single variant set in the options, or an error when
// zero or several are present.
func (o PresentarContestacionOptions) variante() (string, any, error) {
	var nombre string
	var contenido any
	count := 0
	if o.Negacion != nil {
		nombre, contenido = domain.VarianteNegacion, *o.Negacion
		count++
	}
	if o.Allanamiento != nil {
		nombre, contenido = domain.VarianteAllanamiento, *o.Allanamiento
		count++
	}
	if o.Excepcion != nil {
		nombre, contenido = domain.VarianteExcepcion, *o.Excepcion
		count++
	}
	if o.Reconvencion != nil {
		nombre, contenido = domain.VarianteReconvencion, *o.Reconvencion
		count++
	}
	if count != 1 {
		return "", nil, validationf("contestacion", "exactly one variante required, got %d", count)
	}
	return nombre, contenido, nil
}

// PresentarContestacion files the demandado's answer and moves the proceso
// to CONTESTADO. The acting abogado becomes the abogado demandado if none
// was registered.
func (e *Engine) PresentarContestacion(ctx context.Context, opts PresentarContestacionOptions) (domain.Contestacion, Efectos, error) {
	var efectos Efectos
	variante, contenido, err := opts.variante()
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if v, ok := contenido.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return domain.Contestacion{}, efectos, ValidationError{Campo: "contestacion", Motivo: err.Error()}
		}
	}
	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpPresentarContestacion, opts.ActorID, p)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if err := ensureTransicionProceso(p.Estado, domain.EstadoContestado); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	servida, err := e.Repo.CitacionExitosa(ctx, p.ID)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if !servida {
		return domain.Contestacion{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "contestacion requires a citacion exitosa"}
	}

	raw, err := json.Marshal(contenido)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	ts := e.ts()
	c := domain.Contestacion{
		ID:            uuid.New().String(),
		ProcesoID:     p.ID,
		Variante:      variante,
		ContenidoJSON: string(raw),
		AbogadoID:     actor.ID,
		CreatedAt:     ts,
	}
	if opts.Excepcion != nil {
		tipo := opts.Excepcion.Tipo
		estado := domain.ExcepcionPendiente
		c.TipoExcepcion = &tipo
		c.EstadoExcepcion = &estado
	}
	c.DocumentoHash = documentoHash(c.ProcesoID, c.Variante, c.ContenidoJSON)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertContestacionTx(ctx, tx, c); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if _, err := e.Repo.CumplirPlazosActivosTx(ctx, tx, p.ID, domain.PlazoContestacion, ts); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	priorVersion := p.Version
	p.Estado = domain.EstadoContestado
	if p.AbogadoDemandadoID == nil {
		p.AbogadoDemandadoID = &actor.ID
	}
	p.UpdatedAt = ts
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "contestacion.presentada", p.ID, "contestacion", c.ID, actor.ID, events.EventPayload{
		"variante": c.Variante,
	}); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Contestacion{}, efectos, err
	}

	notifs := []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "CONTESTACION_PRESENTADA",
		Mensaje:        fmt.Sprintf("Contestacion presentada (%s)", c.Variante),
		ReferenciaTipo: "contestacion",
		ReferenciaID:   c.ID,
	}}
	if p.JuezID != nil {
		notifs = append(notifs, domain.Notificacion{
			ProcesoID:      p.ID,
			DestinatarioID: *p.JuezID,
			Tipo:           "CONTESTACION_PRESENTADA",
			Mensaje:        fmt.Sprintf("Contestacion presentada (%s) en el proceso %s", c.Variante, p.ID),
			ReferenciaTipo: "contestacion",
			ReferenciaID:   c.ID,
		})
	}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return c, efectos, nil
}

type ResolverExcepcionOptions struct {
	ContestacionID string
	Fundada        bool
	Fundamento     string
	ActorID        string
}

// ResolverExcepcion decides a pending excepción previa with an auto
// interlocutorio. A fundada dispositive excepción terminates the proceso;
// a fundada non-dispositive one leaves its estado untouched.
func (e *Engine) ResolverExcepcion(ctx context.Context, opts ResolverExcepcionOptions) (domain.Contestacion, Efectos, error) {
	var efectos Efectos
	if opts.Fundamento == "" {
		return domain.Contestacion{}, efectos, validationf("fundamento", "required")
	}
	c, err := e.Repo.GetContestacion(ctx, opts.ContestacionID)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if c.Variante != domain.VarianteExcepcion || c.TipoExcepcion == nil {
		return domain.Contestacion{}, efectos, validationf("contestacion", "not an excepcion previa")
	}
	if c.EstadoExcepcion == nil || *c.EstadoExcepcion != domain.ExcepcionPendiente {
		return domain.Contestacion{}, efectos, EstadoError{Entidad: "excepcion", Desde: derefOr(c.EstadoExcepcion, ""), Motivo: "already resolved"}
	}
	p, err := e.Repo.GetProceso(ctx, c.ProcesoID)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpResolverExcepcion, opts.ActorID, p)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}

	estado := domain.ExcepcionRechazada
	fallo := fmt.Sprintf("SE RECHAZA la excepcion de %s", *c.TipoExcepcion)
	archiva := false
	if opts.Fundada {
		estado = domain.ExcepcionFundada
		fallo = fmt.Sprintf("SE DECLARA FUNDADA la excepcion de %s", *c.TipoExcepcion)
		archiva = domain.ExcepcionDispositiva(*c.TipoExcepcion)
	}
	if archiva {
		if err := ensureTransicionProceso(p.Estado, domain.EstadoArchivado); err != nil {
			return domain.Contestacion{}, efectos, err
		}
	}

	ts := e.ts()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contestacion{}, efectos, err
	}
	defer tx.Rollback()

	if err := e.Repo.SetExcepcionEstadoTx(ctx, tx, c.ID, estado); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	c.EstadoExcepcion = &estado

	res := domain.Resolucion{
		ID:           uuid.New().String(),
		ProcesoID:    p.ID,
		Tipo:         domain.ResolucionAutoInterlocutorio,
		Vistos:       fmt.Sprintf("La excepcion previa de %s opuesta por el demandado", *c.TipoExcepcion),
		Considerando: opts.Fundamento,
		PorTanto:     fallo,
		JuezID:       actor.ID,
		FechaEmision: ts,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	res.DocumentoHash = documentoHash(res.ProcesoID, res.Tipo, res.Vistos, res.Considerando, res.PorTanto)
	if err := e.Repo.InsertResolucionTx(ctx, tx, res); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if archiva {
		priorVersion := p.Version
		p.Estado = domain.EstadoArchivado
		p.UpdatedAt = ts
		if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
			return domain.Contestacion{}, efectos, err
		}
	}
	if err := e.Eventos.Append(ctx, tx, "excepcion.resuelta", p.ID, "contestacion", c.ID, actor.ID, events.EventPayload{
		"tipo":          *c.TipoExcepcion,
		"estado":        estado,
		"archiva":       archiva,
		"resolucion_id": res.ID,
	}); err != nil {
		return domain.Contestacion{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Contestacion{}, efectos, err
	}

	efectos.Resoluciones = append(efectos.Resoluciones, res)
	notifs := []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "EXCEPCION_RESUELTA",
		Mensaje:        fallo,
		ReferenciaTipo: "resolucion",
		ReferenciaID:   res.ID,
	}, {
		ProcesoID:      p.ID,
		DestinatarioID: c.AbogadoID,
		Tipo:           "EXCEPCION_RESUELTA",
		Mensaje:        fallo,
		ReferenciaTipo: "resolucion",
		ReferenciaID:   res.ID,
	}}
	efectos.Notificaciones = e.Notify.Dispatch(ctx, notifs)
	return c, efectos, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
