package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"expedientes/internal/config"
	"expedientes/internal/domain"
	"expedientes/internal/engine/auth"
	"expedientes/internal/events"
	"expedientes/internal/notify"
	"expedientes/internal/repo"
)

// Engine executes the procedural operations of a juzgado: every state
// change runs inside a transaction, appends its eventos, and hands the
// resulting notificaciones to the dispatcher after commit.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Eventos events.Writer
	Notify  *notify.Dispatcher
	Config  *config.Config
	Auth    auth.Service
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	e := &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Config: cfg,
		Auth:   auth.Service{DB: db},
		Now:    time.Now,
	}
	e.Eventos = events.Writer{DB: db, Now: e.nowFunc()}
	e.Notify = &notify.Dispatcher{DB: db, Now: e.nowFunc()}
	return e
}

func (e *Engine) nowFunc() func() time.Time {
	return func() time.Time { return e.now() }
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) ts() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e *Engine) fecha() string {
	return e.now().UTC().Format("2006-01-02")
}

// Efectos summarizes the side effects of an operation beyond the entity it
// returns: plazos opened, resoluciones emitted, notificaciones stored.
type Efectos struct {
	Notificaciones []domain.Notificacion `json:"notificaciones,omitempty"`
	Plazos         []domain.Plazo        `json:"plazos,omitempty"`
	Resoluciones   []domain.Resolucion   `json:"resoluciones,omitempty"`
	Recomendacion  string                `json:"recomendacion,omitempty"`
}

var transicionesProceso = map[string][]string{
	domain.EstadoBorrador:                {domain.EstadoPresentado},
	domain.EstadoPresentado:              {domain.EstadoObservado, domain.EstadoAdmitido, domain.EstadoRechazado},
	domain.EstadoObservado:               {domain.EstadoPresentado},
	domain.EstadoAdmitido:                {domain.EstadoCitado, domain.EstadoAudienciaPreliminar},
	domain.EstadoCitado:                  {domain.EstadoContestado, domain.EstadoAudienciaPreliminar, domain.EstadoArchivado},
	domain.EstadoContestado:              {domain.EstadoAudienciaPreliminar, domain.EstadoArchivado},
	domain.EstadoAudienciaPreliminar:     {domain.EstadoAudienciaComplementaria, domain.EstadoParaSentencia, domain.EstadoArchivado},
	domain.EstadoAudienciaComplementaria: {domain.EstadoParaSentencia, domain.EstadoArchivado},
	domain.EstadoParaSentencia:           {domain.EstadoArchivado},
}

func ensureTransicionProceso(desde, hasta string) error {
	for _, t := range transicionesProceso[desde] {
		if t == hasta {
			return nil
		}
	}
	return EstadoError{Entidad: "proceso", Desde: desde, Hasta: hasta}
}

func sujetoDe(p domain.Proceso) auth.Sujeto {
	s := auth.Sujeto{
		JuzgadoID:           p.JuzgadoID,
		AbogadoDemandanteID: p.AbogadoDemandanteID,
	}
	if p.JuezID != nil {
		s.JuezID = *p.JuezID
	}
	if p.AbogadoDemandadoID != nil {
		s.AbogadoDemandadoID = *p.AbogadoDemandadoID
	}
	return s
}

// autorizar resolves the actor against the directory and checks the policy
// table for the operation.
func (e *Engine) autorizar(ctx context.Context, op, actorID string, p domain.Proceso) (auth.Actor, error) {
	actor, err := e.Auth.ResolveActor(ctx, actorID)
	if err != nil {
		return actor, err
	}
	if err := auth.Autorizar(op, actor, sujetoDe(p)); err != nil {
		return actor, err
	}
	return actor, nil
}

// addDias advances a calendar date by the given number of days. Plazos run
// on calendar days, including weekends.
func addDias(fecha string, dias int) (string, error) {
	t, err := time.Parse("2006-01-02", fecha)
	if err != nil {
		return "", fmt.Errorf("invalid fecha %q: %w", fecha, err)
	}
	return t.AddDate(0, 0, dias).Format("2006-01-02"), nil
}
