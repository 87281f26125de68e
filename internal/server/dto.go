package server

import (
	"expedientes/internal/domain"
	"expedientes/internal/engine"
)

type CrearProcesoRequest struct {
	Materia          string `json:"materia,omitempty"`
	TipoProceso      string `json:"tipo_proceso" enum:"ORDINARIO,EJECUTIVO,MONITORIO,VOLUNTARIO"`
	DemandanteNombre string `json:"demandante_nombre"`
	DemandadoNombre  string `json:"demandado_nombre"`
}

type PresentarDemandaRequest struct {
	Hechos    string   `json:"hechos"`
	Petitorio string   `json:"petitorio"`
	Pruebas   []string `json:"pruebas,omitempty"`
	Cuantia   *float64 `json:"cuantia,omitempty"`
}

type ObservarDemandaRequest struct {
	Observaciones string `json:"observaciones"`
	Dias          int    `json:"dias,omitempty"`
}

type RechazarDemandaRequest struct {
	Motivo string `json:"motivo"`
}

type OrdenarCitacionRequest struct {
	Tipo      string `json:"tipo" enum:"PERSONAL,CEDULA,EDICTO,TACITA"`
	Direccion string `json:"direccion,omitempty"`
}

type IntentoCitacionRequest struct {
	Fecha  string `json:"fecha,omitempty" format:"date"`
	Motivo string `json:"motivo"`
}

type CitacionExitosaRequest struct {
	Fecha string `json:"fecha,omitempty" format:"date"`
}

type ContestacionRequest struct {
	Negacion     *domain.Negacion        `json:"negacion,omitempty"`
	Allanamiento *domain.Allanamiento    `json:"allanamiento,omitempty"`
	Excepcion    *domain.ExcepcionPrevia `json:"excepcion_previa,omitempty"`
	Reconvencion *domain.Reconvencion    `json:"reconvencion,omitempty"`
}

type ResolverExcepcionRequest struct {
	Fundada    bool   `json:"fundada"`
	Fundamento string `json:"fundamento"`
}

type AsistenteRequest struct {
	ActorID     string `json:"actor_id"`
	Rol         string `json:"rol,omitempty"`
	Obligatorio bool   `json:"obligatorio,omitempty"`
}

type ProgramarAudienciaRequest struct {
	Tipo       string             `json:"tipo" enum:"PRELIMINAR,COMPLEMENTARIA,CONCILIACION"`
	Modalidad  string             `json:"modalidad" enum:"PRESENCIAL,VIRTUAL"`
	Fecha      string             `json:"fecha" format:"date-time"`
	Enlace     string             `json:"enlace,omitempty"`
	Asistentes []AsistenteRequest `json:"asistentes,omitempty"`
}

type CerrarAudienciaRequest struct {
	Estado            string          `json:"estado" enum:"REALIZADA,SUSPENDIDA,CANCELADA"`
	Acta              map[string]any  `json:"acta,omitempty"`
	Asistencia        map[string]bool `json:"asistencia,omitempty"`
	DirectoASentencia bool            `json:"directo_a_sentencia,omitempty"`
}

type EmitirResolucionRequest struct {
	Tipo         string `json:"tipo" enum:"PROVIDENCIA,AUTO_INTERLOCUTORIO,AUTO_DEFINITIVO"`
	Vistos       string `json:"vistos"`
	Considerando string `json:"considerando"`
	PorTanto     string `json:"por_tanto"`
}

type ModificarResolucionRequest struct {
	Vistos       string `json:"vistos"`
	Considerando string `json:"considerando"`
	PorTanto     string `json:"por_tanto"`
}

type EmitirSentenciaRequest struct {
	Vistos       string `json:"vistos"`
	Considerando string `json:"considerando"`
	PorTanto     string `json:"por_tanto"`
	Decision     string `json:"decision" enum:"PROBADA,PROBADA_EN_PARTE,IMPROBADA"`
}

type ProcesoConEfectos struct {
	Proceso domain.Proceso `json:"proceso"`
	Efectos engine.Efectos `json:"efectos,omitempty"`
}

type DemandaConEfectos struct {
	Demanda domain.Demanda `json:"demanda"`
	Efectos engine.Efectos `json:"efectos,omitempty"`
}

type CitacionConEfectos struct {
	Citacion domain.Citacion `json:"citacion"`
	Efectos  engine.Efectos  `json:"efectos,omitempty"`
}

type ContestacionConEfectos struct {
	Contestacion domain.Contestacion `json:"contestacion"`
	Efectos      engine.Efectos      `json:"efectos,omitempty"`
}

type AudienciaConEfectos struct {
	Audiencia domain.Audiencia `json:"audiencia"`
	Efectos   engine.Efectos   `json:"efectos,omitempty"`
}

type ResolucionConEfectos struct {
	Resolucion domain.Resolucion `json:"resolucion"`
	Efectos    engine.Efectos    `json:"efectos,omitempty"`
}

type SentenciaConEfectos struct {
	Sentencia domain.Sentencia `json:"sentencia"`
	Efectos   engine.Efectos   `json:"efectos,omitempty"`
}

// ExpedienteResponse is the full dossier view of a proceso.
type ExpedienteResponse struct {
	Proceso        domain.Proceso        `json:"proceso"`
	Demandas       []domain.Demanda      `json:"demandas,omitempty"`
	Citaciones     []domain.Citacion     `json:"citaciones,omitempty"`
	Contestaciones []domain.Contestacion `json:"contestaciones,omitempty"`
	Audiencias     []domain.Audiencia    `json:"audiencias,omitempty"`
	Plazos         []domain.Plazo        `json:"plazos,omitempty"`
	Resoluciones   []domain.Resolucion   `json:"resoluciones,omitempty"`
	Sentencia      *domain.Sentencia     `json:"sentencia,omitempty"`
}
