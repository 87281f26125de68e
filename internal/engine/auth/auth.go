package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Roles reconocidos por el sistema.
const (
	RolJuez       = "JUEZ"
	RolSecretario = "SECRETARIO"
	RolAbogado    = "ABOGADO"
)

// Actor is the authenticated participant performing an operation.
type Actor struct {
	ID        string
	Rol       string
	JuzgadoID string
}

// Sujeto carries the ownership facts of a proceso needed for authorization.
type Sujeto struct {
	JuzgadoID           string
	JuezID              string
	AbogadoDemandanteID string
	AbogadoDemandadoID  string
}

// ForbiddenError indicates the actor may not perform the operation.
type ForbiddenError struct {
	Operacion string
	Motivo    string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("operation %s forbidden: %s", e.Operacion, e.Motivo)
}

// Operaciones sujetas a autorización.
const (
	OpCrearProceso          = "proceso.crear"
	OpPresentarDemanda      = "demanda.presentar"
	OpObservarDemanda       = "demanda.observar"
	OpSubsanarDemanda       = "demanda.subsanar"
	OpAdmitirDemanda        = "demanda.admitir"
	OpRechazarDemanda       = "demanda.rechazar"
	OpOrdenarCitacion       = "citacion.ordenar"
	OpRegistrarIntento      = "citacion.intento"
	OpRegistrarExitosa      = "citacion.exitosa"
	OpPresentarContestacion = "contestacion.presentar"
	OpResolverExcepcion     = "excepcion.resolver"
	OpProgramarAudiencia    = "audiencia.programar"
	OpCerrarAudiencia       = "audiencia.cerrar"
	OpEmitirResolucion      = "resolucion.emitir"
	OpModificarResolucion   = "resolucion.modificar"
	OpNotificarResolucion   = "resolucion.notificar"
	OpEliminarResolucion    = "resolucion.eliminar"
	OpEmitirSentencia       = "sentencia.emitir"
	OpBarrerPlazos          = "plazos.barrer"
)

type regla struct {
	roles   []string
	vinculo func(Actor, Sujeto) error
}

func esJuezDelProceso(a Actor, s Sujeto) error {
	if s.JuezID == "" {
		return errors.New("proceso has no juez assigned")
	}
	if a.ID != s.JuezID {
		return errors.New("actor is not the juez of the proceso")
	}
	return nil
}

func esAbogadoDemandante(a Actor, s Sujeto) error {
	if a.ID != s.AbogadoDemandanteID {
		return errors.New("actor is not the abogado demandante")
	}
	return nil
}

func esAbogadoDemandado(a Actor, s Sujeto) error {
	if a.ID == s.AbogadoDemandanteID {
		return errors.New("abogado demandante cannot answer its own demanda")
	}
	if s.AbogadoDemandadoID != "" && a.ID != s.AbogadoDemandadoID {
		return errors.New("actor is not the abogado demandado")
	}
	return nil
}

// delJuzgado permits court staff of the proceso's juzgado, or its assigned juez.
func delJuzgado(a Actor, s Sujeto) error {
	if a.Rol == RolJuez {
		return esJuezDelProceso(a, s)
	}
	if a.JuzgadoID != s.JuzgadoID {
		return errors.New("actor belongs to a different juzgado")
	}
	return nil
}

func cualquiera(Actor, Sujeto) error { return nil }

var reglas = map[string]regla{
	OpCrearProceso:          {roles: []string{RolAbogado}, vinculo: cualquiera},
	OpPresentarDemanda:      {roles: []string{RolAbogado}, vinculo: esAbogadoDemandante},
	OpObservarDemanda:       {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpSubsanarDemanda:       {roles: []string{RolAbogado}, vinculo: esAbogadoDemandante},
	OpAdmitirDemanda:        {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpRechazarDemanda:       {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpOrdenarCitacion:       {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpRegistrarIntento:      {roles: []string{RolSecretario, RolJuez}, vinculo: delJuzgado},
	OpRegistrarExitosa:      {roles: []string{RolSecretario, RolJuez}, vinculo: delJuzgado},
	OpPresentarContestacion: {roles: []string{RolAbogado}, vinculo: esAbogadoDemandado},
	OpResolverExcepcion:     {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpProgramarAudiencia:    {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpCerrarAudiencia:       {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpEmitirResolucion:      {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpModificarResolucion:   {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpNotificarResolucion:   {roles: []string{RolSecretario, RolJuez}, vinculo: delJuzgado},
	OpEliminarResolucion:    {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpEmitirSentencia:       {roles: []string{RolJuez}, vinculo: esJuezDelProceso},
	OpBarrerPlazos:          {roles: []string{RolSecretario, RolJuez}, vinculo: cualquiera},
}

// Autorizar checks the single policy table for every guarded operation.
func Autorizar(op string, a Actor, s Sujeto) error {
	r, ok := reglas[op]
	if !ok {
		return ForbiddenError{Operacion: op, Motivo: "unknown operation"}
	}
	allowed := false
	for _, rol := range r.roles {
		if a.Rol == rol {
			allowed = true
			break
		}
	}
	if !allowed {
		return ForbiddenError{Operacion: op, Motivo: fmt.Sprintf("rol %s not permitted", a.Rol)}
	}
	if err := r.vinculo(a, s); err != nil {
		return ForbiddenError{Operacion: op, Motivo: err.Error()}
	}
	return nil
}

// Service resolves actors against the directory tables.
type Service struct {
	DB *sql.DB
}

var ErrActorDesconocido = errors.New("actor not found in directory")

// ResolveActor looks the actor up in jueces, secretarios, then abogados.
func (s Service) ResolveActor(ctx context.Context, actorID string) (Actor, error) {
	if actorID == "" {
		return Actor{}, ErrActorDesconocido
	}
	var juzgadoID string
	err := s.DB.QueryRowContext(ctx, `SELECT juzgado_id FROM jueces WHERE id=? AND activo=1`, actorID).Scan(&juzgadoID)
	if err == nil {
		return Actor{ID: actorID, Rol: RolJuez, JuzgadoID: juzgadoID}, nil
	}
	if err != sql.ErrNoRows {
		return Actor{}, err
	}
	err = s.DB.QueryRowContext(ctx, `SELECT juzgado_id FROM secretarios WHERE id=?`, actorID).Scan(&juzgadoID)
	if err == nil {
		return Actor{ID: actorID, Rol: RolSecretario, JuzgadoID: juzgadoID}, nil
	}
	if err != sql.ErrNoRows {
		return Actor{}, err
	}
	var id string
	err = s.DB.QueryRowContext(ctx, `SELECT id FROM abogados WHERE id=?`, actorID).Scan(&id)
	if err == nil {
		return Actor{ID: actorID, Rol: RolAbogado}, nil
	}
	if err == sql.ErrNoRows {
		return Actor{}, ErrActorDesconocido
	}
	return Actor{}, err
}
