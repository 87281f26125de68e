package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
	"expedientes/internal/repo"
)

type CrearProcesoOptions struct {
	JuzgadoID        string
	Materia          string
	TipoProceso      string
	DemandanteNombre string
	DemandadoNombre  string
	ActorID          string
}

var tiposProceso = map[string]bool{
	"ORDINARIO":  true,
	"EJECUTIVO":  true,
	"MONITORIO":  true,
	"VOLUNTARIO": true,
}

// CrearProceso opens a new expediente in BORRADOR. The acting abogado
// becomes the abogado demandante.
func (e *Engine) CrearProceso(ctx context.Context, opts CrearProcesoOptions) (domain.Proceso, error) {
	if opts.DemandanteNombre == "" {
		return domain.Proceso{}, validationf("demandante_nombre", "required")
	}
	if opts.DemandadoNombre == "" {
		return domain.Proceso{}, validationf("demandado_nombre", "required")
	}
	if !tiposProceso[opts.TipoProceso] {
		return domain.Proceso{}, validationf("tipo_proceso", "unknown tipo %q", opts.TipoProceso)
	}
	if opts.Materia == "" {
		opts.Materia = e.Config.Juzgado.Materia
	}
	actor, err := e.Auth.ResolveActor(ctx, opts.ActorID)
	if err != nil {
		return domain.Proceso{}, err
	}
	if err := auth.Autorizar(auth.OpCrearProceso, actor, auth.Sujeto{JuzgadoID: opts.JuzgadoID}); err != nil {
		return domain.Proceso{}, err
	}

	ts := e.ts()
	p := domain.Proceso{
		ID:                  uuid.New().String(),
		JuzgadoID:           opts.JuzgadoID,
		Materia:             opts.Materia,
		TipoProceso:         opts.TipoProceso,
		Estado:              domain.EstadoBorrador,
		DemandanteNombre:    opts.DemandanteNombre,
		DemandadoNombre:     opts.DemandadoNombre,
		AbogadoDemandanteID: actor.ID,
		CreatedAt:           ts,
		UpdatedAt:           ts,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proceso{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProcesoTx(ctx, tx, p); err != nil {
		return domain.Proceso{}, err
	}
	if err := e.Eventos.Append(ctx, tx, "proceso.creado", p.ID, "proceso", p.ID, actor.ID, events.EventPayload{
		"tipo_proceso": p.TipoProceso,
		"demandante":   p.DemandanteNombre,
		"demandado":    p.DemandadoNombre,
	}); err != nil {
		return domain.Proceso{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Proceso{}, err
	}
	return p, nil
}

type PresentarDemandaOptions struct {
	ProcesoID string
	Hechos    string
	Petitorio string
	Pruebas   []string
	Cuantia   *float64
	ActorID   string
}

// PresentarDemanda files the demanda and moves the proceso to PRESENTADO.
// On first filing a juez is assigned from the juzgado's roster.
func (e *Engine) PresentarDemanda(ctx context.Context, opts PresentarDemandaOptions) (domain.Demanda, Efectos, error) {
	var efectos Efectos
	if opts.Hechos == "" {
		return domain.Demanda{}, efectos, validationf("hechos", "required")
	}
	if opts.Petitorio == "" {
		return domain.Demanda{}, efectos, validationf("petitorio", "required")
	}
	if opts.Cuantia != nil && *opts.Cuantia <= 0 {
		return domain.Demanda{}, efectos, validationf("cuantia", "must be positive")
	}

	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpPresentarDemanda, opts.ActorID, p)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	if err := ensureTransicionProceso(p.Estado, domain.EstadoPresentado); err != nil {
		return domain.Demanda{}, efectos, err
	}
	if p.Estado == domain.EstadoObservado {
		return domain.Demanda{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Motivo: "use subsanar for an observed demanda"}
	}

	ts := e.ts()
	d := domain.Demanda{
		ID:        uuid.New().String(),
		ProcesoID: p.ID,
		Num:       1,
		Hechos:    opts.Hechos,
		Petitorio: opts.Petitorio,
		Cuantia:   opts.Cuantia,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if len(opts.Pruebas) > 0 {
		raw, err := json.Marshal(opts.Pruebas)
		if err != nil {
			return domain.Demanda{}, efectos, err
		}
		s := string(raw)
		d.PruebasJSON = &s
	}
	d.DocumentoHash = documentoHash(p.ID, fmt.Sprint(d.Num), d.Hechos, d.Petitorio)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	defer tx.Rollback()

	priorVersion := p.Version
	p.Estado = domain.EstadoPresentado
	p.UpdatedAt = ts
	if p.JuezID == nil {
		// No active juez leaves the causa unassigned; the next filing retries.
		juez, err := e.Repo.PrimerJuezDisponible(ctx, p.JuzgadoID)
		switch {
		case err == nil:
			p.JuezID = &juez.ID
		case errors.Is(err, repo.ErrNotFound):
		default:
			return domain.Demanda{}, efectos, fmt.Errorf("assign juez: %w", err)
		}
	}
	if err := e.Repo.InsertDemandaTx(ctx, tx, d); err != nil {
		return domain.Demanda{}, efectos, err
	}
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Demanda{}, efectos, err
	}
	payload := events.EventPayload{"num": d.Num}
	if p.JuezID != nil {
		payload["juez_id"] = *p.JuezID
	}
	if err := e.Eventos.Append(ctx, tx, "demanda.presentada", p.ID, "demanda", d.ID, actor.ID, payload); err != nil {
		return domain.Demanda{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Demanda{}, efectos, err
	}

	if p.JuezID != nil {
		efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
			ProcesoID:      p.ID,
			DestinatarioID: *p.JuezID,
			Tipo:           "DEMANDA_PRESENTADA",
			Mensaje:        fmt.Sprintf("Demanda presentada en el proceso %s (%s c/ %s)", p.ID, p.DemandanteNombre, p.DemandadoNombre),
			ReferenciaTipo: "demanda",
			ReferenciaID:   d.ID,
		}})
	}
	return d, efectos, nil
}

type ObservarDemandaOptions struct {
	ProcesoID     string
	Observaciones string
	Dias          int
	ActorID       string
}

// ObservarDemanda returns the demanda for correction and opens a plazo de
// subsanación for the abogado demandante.
func (e *Engine) ObservarDemanda(ctx context.Context, opts ObservarDemandaOptions) (domain.Proceso, Efectos, error) {
	var efectos Efectos
	if opts.Observaciones == "" {
		return domain.Proceso{}, efectos, validationf("observaciones", "required")
	}
	sub := e.Config.Plazos.Subsanacion
	dias := opts.Dias
	if dias == 0 {
		dias = sub.Defecto
	}
	if dias < sub.Minimo || dias > sub.Maximo {
		return domain.Proceso{}, efectos, validationf("dias", "must be within [%d,%d]", sub.Minimo, sub.Maximo)
	}

	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpObservarDemanda, opts.ActorID, p)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := ensureTransicionProceso(p.Estado, domain.EstadoObservado); err != nil {
		return domain.Proceso{}, efectos, err
	}

	ts := e.ts()
	inicio := e.fecha()
	vencimiento, err := addDias(inicio, dias)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	plazo := domain.Plazo{
		ID:               uuid.New().String(),
		ProcesoID:        p.ID,
		Tipo:             domain.PlazoSubsanacion,
		DestinatarioID:   p.AbogadoDemandanteID,
		FechaInicio:      inicio,
		FechaVencimiento: vencimiento,
		Dias:             dias,
		Estado:           domain.PlazoActivo,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	defer tx.Rollback()

	d, err := e.Repo.UltimaDemandaTx(ctx, tx, p.ID)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := e.Repo.SetDemandaObservacionesTx(ctx, tx, d.ID, opts.Observaciones, ts); err != nil {
		return domain.Proceso{}, efectos, err
	}
	priorVersion := p.Version
	p.Estado = domain.EstadoObservado
	p.UpdatedAt = ts
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := e.Repo.InsertPlazoTx(ctx, tx, plazo); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "demanda.observada", p.ID, "demanda", d.ID, actor.ID, events.EventPayload{
		"observaciones": opts.Observaciones,
		"plazo_dias":    dias,
		"vencimiento":   vencimiento,
	}); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Proceso{}, efectos, err
	}

	efectos.Plazos = append(efectos.Plazos, plazo)
	efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "DEMANDA_OBSERVADA",
		Mensaje:        fmt.Sprintf("Demanda observada, subsanar hasta %s: %s", vencimiento, opts.Observaciones),
		ReferenciaTipo: "plazo",
		ReferenciaID:   plazo.ID,
	}})
	return p, efectos, nil
}

type SubsanarDemandaOptions struct {
	ProcesoID string
	Hechos    string
	Petitorio string
	Pruebas   []string
	Cuantia   *float64
	ActorID   string
}

// SubsanarDemanda files a corrected demanda, closes the plazo de subsanación
// and returns the proceso to PRESENTADO.
func (e *Engine) SubsanarDemanda(ctx context.Context, opts SubsanarDemandaOptions) (domain.Demanda, Efectos, error) {
	var efectos Efectos
	if opts.Hechos == "" {
		return domain.Demanda{}, efectos, validationf("hechos", "required")
	}
	if opts.Petitorio == "" {
		return domain.Demanda{}, efectos, validationf("petitorio", "required")
	}

	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpSubsanarDemanda, opts.ActorID, p)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	if p.Estado != domain.EstadoObservado {
		return domain.Demanda{}, efectos, EstadoError{Entidad: "proceso", Desde: p.Estado, Hasta: domain.EstadoPresentado}
	}

	ts := e.ts()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	defer tx.Rollback()

	prev, err := e.Repo.UltimaDemandaTx(ctx, tx, p.ID)
	if err != nil {
		return domain.Demanda{}, efectos, err
	}
	d := domain.Demanda{
		ID:        uuid.New().String(),
		ProcesoID: p.ID,
		Num:       prev.Num + 1,
		Hechos:    opts.Hechos,
		Petitorio: opts.Petitorio,
		Cuantia:   opts.Cuantia,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if len(opts.Pruebas) > 0 {
		raw, err := json.Marshal(opts.Pruebas)
		if err != nil {
			return domain.Demanda{}, efectos, err
		}
		s := string(raw)
		d.PruebasJSON = &s
	}
	d.DocumentoHash = documentoHash(p.ID, fmt.Sprint(d.Num), d.Hechos, d.Petitorio)

	if err := e.Repo.InsertDemandaTx(ctx, tx, d); err != nil {
		return domain.Demanda{}, efectos, err
	}
	if _, err := e.Repo.CumplirPlazosActivosTx(ctx, tx, p.ID, domain.PlazoSubsanacion, ts); err != nil {
		return domain.Demanda{}, efectos, err
	}
	priorVersion := p.Version
	p.Estado = domain.EstadoPresentado
	p.UpdatedAt = ts
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Demanda{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "demanda.subsanada", p.ID, "demanda", d.ID, actor.ID, events.EventPayload{
		"num": d.Num,
	}); err != nil {
		return domain.Demanda{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Demanda{}, efectos, err
	}

	if p.JuezID != nil {
		efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
			ProcesoID:      p.ID,
			DestinatarioID: *p.JuezID,
			Tipo:           "DEMANDA_SUBSANADA",
			Mensaje:        fmt.Sprintf("Demanda subsanada (version %d) en el proceso %s", d.Num, p.ID),
			ReferenciaTipo: "demanda",
			ReferenciaID:   d.ID,
		}})
	}
	return d, efectos, nil
}

type AdmitirDemandaOptions struct {
	ProcesoID string
	ActorID   string
}

// AdmitirDemanda admits the demanda: the proceso receives its NUREJ and a
// providencia de admisión is emitted.
func (e *Engine) AdmitirDemanda(ctx context.Context, opts AdmitirDemandaOptions) (domain.Proceso, Efectos, error) {
	var efectos Efectos
	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpAdmitirDemanda, opts.ActorID, p)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := ensureTransicionProceso(p.Estado, domain.EstadoAdmitido); err != nil {
		return domain.Proceso{}, efectos, err
	}

	ts := e.ts()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	defer tx.Rollback()

	if p.Nurej == nil {
		nurej, err := e.Repo.NextNurejTx(ctx, tx, p.JuzgadoID, e.Config.Juzgado.Codigo, e.now().UTC().Year())
		if err != nil {
			return domain.Proceso{}, efectos, err
		}
		p.Nurej = &nurej
	}
	priorVersion := p.Version
	p.Estado = domain.EstadoAdmitido
	p.UpdatedAt = ts
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Proceso{}, efectos, err
	}

	res := domain.Resolucion{
		ID:           uuid.New().String(),
		ProcesoID:    p.ID,
		Tipo:         domain.ResolucionProvidencia,
		Vistos:       fmt.Sprintf("La demanda presentada por %s contra %s", p.DemandanteNombre, p.DemandadoNombre),
		Considerando: "La demanda cumple los requisitos de forma exigidos para su admision",
		PorTanto:     fmt.Sprintf("SE ADMITE la demanda y se asigna el NUREJ %s; citese al demandado", *p.Nurej),
		JuezID:       actor.ID,
		FechaEmision: ts,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	res.DocumentoHash = documentoHash(res.ProcesoID, res.Tipo, res.Vistos, res.Considerando, res.PorTanto)
	if err := e.Repo.InsertResolucionTx(ctx, tx, res); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "demanda.admitida", p.ID, "proceso", p.ID, actor.ID, events.EventPayload{
		"nurej":         *p.Nurej,
		"resolucion_id": res.ID,
	}); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Proceso{}, efectos, err
	}

	efectos.Resoluciones = append(efectos.Resoluciones, res)
	efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "DEMANDA_ADMITIDA",
		Mensaje:        fmt.Sprintf("Demanda admitida con NUREJ %s", *p.Nurej),
		ReferenciaTipo: "resolucion",
		ReferenciaID:   res.ID,
	}})
	return p, efectos, nil
}

type RechazarDemandaOptions struct {
	ProcesoID string
	Motivo    string
	ActorID   string
}

// RechazarDemanda rejects the demanda with an auto definitivo. RECHAZADO is
// terminal.
func (e *Engine) RechazarDemanda(ctx context.Context, opts RechazarDemandaOptions) (domain.Proceso, Efectos, error) {
	var efectos Efectos
	if opts.Motivo == "" {
		return domain.Proceso{}, efectos, validationf("motivo", "required")
	}
	p, err := e.Repo.GetProceso(ctx, opts.ProcesoID)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	actor, err := e.autorizar(ctx, auth.OpRechazarDemanda, opts.ActorID, p)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := ensureTransicionProceso(p.Estado, domain.EstadoRechazado); err != nil {
		return domain.Proceso{}, efectos, err
	}

	ts := e.ts()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proceso{}, efectos, err
	}
	defer tx.Rollback()

	priorVersion := p.Version
	p.Estado = domain.EstadoRechazado
	p.UpdatedAt = ts
	if err := e.Repo.UpdateProcesoTx(ctx, tx, p, priorVersion); err != nil {
		return domain.Proceso{}, efectos, err
	}
	res := domain.Resolucion{
		ID:           uuid.New().String(),
		ProcesoID:    p.ID,
		Tipo:         domain.ResolucionAutoDefinitivo,
		Vistos:       fmt.Sprintf("La demanda presentada por %s contra %s", p.DemandanteNombre, p.DemandadoNombre),
		Considerando: opts.Motivo,
		PorTanto:     "SE RECHAZA la demanda",
		JuezID:       actor.ID,
		FechaEmision: ts,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	res.DocumentoHash = documentoHash(res.ProcesoID, res.Tipo, res.Vistos, res.Considerando, res.PorTanto)
	if err := e.Repo.InsertResolucionTx(ctx, tx, res); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := e.Eventos.Append(ctx, tx, "demanda.rechazada", p.ID, "proceso", p.ID, actor.ID, events.EventPayload{
		"motivo":        opts.Motivo,
		"resolucion_id": res.ID,
	}); err != nil {
		return domain.Proceso{}, efectos, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Proceso{}, efectos, err
	}

	efectos.Resoluciones = append(efectos.Resoluciones, res)
	efectos.Notificaciones = e.Notify.Dispatch(ctx, []domain.Notificacion{{
		ProcesoID:      p.ID,
		DestinatarioID: p.AbogadoDemandanteID,
		Tipo:           "DEMANDA_RECHAZADA",
		Mensaje:        fmt.Sprintf("Demanda rechazada: %s", opts.Motivo),
		ReferenciaTipo: "resolucion",
		ReferenciaID:   res.ID,
	}})
	return p, efectos, nil
}
