package domain

// Estados del proceso.
const (
	EstadoBorrador                = "BORRADOR"
	EstadoPresentado              = "PRESENTADO"
	EstadoObservado               = "OBSERVADO"
	EstadoAdmitido                = "ADMITIDO"
	EstadoRechazado               = "RECHAZADO"
	EstadoCitado                  = "CITADO"
	EstadoContestado              = "CONTESTADO"
	EstadoAudienciaPreliminar     = "AUDIENCIA_PRELIMINAR"
	EstadoAudienciaComplementaria = "AUDIENCIA_COMPLEMENTARIA"
	EstadoParaSentencia           = "PARA_SENTENCIA"
	EstadoArchivado               = "ARCHIVADO"
)

type Proceso struct {
	ID                  string  `json:"id"`
	JuzgadoID           string  `json:"juzgado_id"`
	Nurej               *string `json:"nurej,omitempty"`
	Materia             string  `json:"materia"`
	TipoProceso         string  `json:"tipo_proceso" enum:"ORDINARIO,EJECUTIVO,MONITORIO,VOLUNTARIO"`
	Estado              string  `json:"estado"`
	DemandanteNombre    string  `json:"demandante_nombre"`
	DemandadoNombre     string  `json:"demandado_nombre"`
	AbogadoDemandanteID string  `json:"abogado_demandante_id"`
	AbogadoDemandadoID  *string `json:"abogado_demandado_id,omitempty"`
	JuezID              *string `json:"juez_id,omitempty"`
	Version             int64   `json:"version"`
	CreatedAt           string  `json:"created_at" format:"date-time"`
	UpdatedAt           string  `json:"updated_at" format:"date-time"`
}

type Demanda struct {
	ID            string   `json:"id"`
	ProcesoID     string   `json:"proceso_id"`
	Num           int      `json:"num"`
	Hechos        string   `json:"hechos"`
	Petitorio     string   `json:"petitorio"`
	PruebasJSON   *string  `json:"pruebas_json,omitempty"`
	Cuantia       *float64 `json:"cuantia,omitempty"`
	Observaciones *string  `json:"observaciones,omitempty"`
	DocumentoHash string   `json:"documento_hash"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

// Estados de la citación.
const (
	CitacionPendiente = "PENDIENTE"
	CitacionEnProceso = "EN_PROCESO"
	CitacionExitosa   = "EXITOSA"
	CitacionFallida   = "FALLIDA"
)

type Citacion struct {
	ID            string  `json:"id"`
	ProcesoID     string  `json:"proceso_id"`
	Tipo          string  `json:"tipo" enum:"PERSONAL,CEDULA,EDICTO,TACITA"`
	Estado        string  `json:"estado" enum:"PENDIENTE,EN_PROCESO,EXITOSA,FALLIDA"`
	Direccion     string  `json:"direccion,omitempty"`
	FechaCitacion *string `json:"fecha_citacion,omitempty" format:"date"`
	Recomendacion *string `json:"recomendacion,omitempty"`
	Version       int64   `json:"version"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type CitacionIntento struct {
	ID         int64  `json:"id"`
	CitacionID string `json:"citacion_id"`
	Numero     int    `json:"numero"`
	Fecha      string `json:"fecha" format:"date"`
	Motivo     string `json:"motivo"`
	ActorID    string `json:"actor_id"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// Estados de la excepción previa dentro de una contestación.
const (
	ExcepcionPendiente = "PENDIENTE"
	ExcepcionFundada   = "FUNDADA"
	ExcepcionRechazada = "RECHAZADA"
)

type Contestacion struct {
	ID              string  `json:"id"`
	ProcesoID       string  `json:"proceso_id"`
	Variante        string  `json:"variante" enum:"NEGACION,ALLANAMIENTO,EXCEPCION_PREVIA,RECONVENCION"`
	ContenidoJSON   string  `json:"contenido_json"`
	TipoExcepcion   *string `json:"tipo_excepcion,omitempty"`
	EstadoExcepcion *string `json:"estado_excepcion,omitempty" enum:"PENDIENTE,FUNDADA,RECHAZADA"`
	AbogadoID       string  `json:"abogado_id"`
	DocumentoHash   string  `json:"documento_hash"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
}

// Estados de la audiencia.
const (
	AudienciaProgramada = "PROGRAMADA"
	AudienciaRealizada  = "REALIZADA"
	AudienciaSuspendida = "SUSPENDIDA"
	AudienciaCancelada  = "CANCELADA"
)

type Audiencia struct {
	ID         string      `json:"id"`
	ProcesoID  string      `json:"proceso_id"`
	Tipo       string      `json:"tipo" enum:"PRELIMINAR,COMPLEMENTARIA,CONCILIACION"`
	Modalidad  string      `json:"modalidad" enum:"PRESENCIAL,VIRTUAL"`
	Estado     string      `json:"estado" enum:"PROGRAMADA,REALIZADA,SUSPENDIDA,CANCELADA"`
	Fecha      string      `json:"fecha" format:"date-time"`
	Enlace     *string     `json:"enlace,omitempty"`
	ActaJSON   *string     `json:"acta_json,omitempty"`
	JuezID     string      `json:"juez_id"`
	Asistentes []Asistente `json:"asistentes,omitempty"`
	CreatedAt  string      `json:"created_at" format:"date-time"`
	UpdatedAt  string      `json:"updated_at" format:"date-time"`
}

type Asistente struct {
	AudienciaID string `json:"audiencia_id"`
	ActorID     string `json:"actor_id"`
	Rol         string `json:"rol"`
	Obligatorio bool   `json:"obligatorio"`
	Presente    *bool  `json:"presente,omitempty"`
}

// Estados del plazo.
const (
	PlazoActivo   = "ACTIVO"
	PlazoCumplido = "CUMPLIDO"
	PlazoVencido  = "VENCIDO"
)

// Tipos de plazo.
const (
	PlazoSubsanacion  = "SUBSANACION"
	PlazoContestacion = "CONTESTACION"
)

type Plazo struct {
	ID               string `json:"id"`
	ProcesoID        string `json:"proceso_id"`
	Tipo             string `json:"tipo" enum:"SUBSANACION,CONTESTACION"`
	DestinatarioID   string `json:"destinatario_id"`
	FechaInicio      string `json:"fecha_inicio" format:"date"`
	FechaVencimiento string `json:"fecha_vencimiento" format:"date"`
	Dias             int    `json:"dias"`
	Estado           string `json:"estado" enum:"ACTIVO,CUMPLIDO,VENCIDO"`
	CreatedAt        string `json:"created_at" format:"date-time"`
	UpdatedAt        string `json:"updated_at" format:"date-time"`
}

// Tipos de resolución.
const (
	ResolucionProvidencia        = "PROVIDENCIA"
	ResolucionAutoInterlocutorio = "AUTO_INTERLOCUTORIO"
	ResolucionAutoDefinitivo     = "AUTO_DEFINITIVO"
)

type Resolucion struct {
	ID                string  `json:"id"`
	ProcesoID         string  `json:"proceso_id"`
	Tipo              string  `json:"tipo" enum:"PROVIDENCIA,AUTO_INTERLOCUTORIO,AUTO_DEFINITIVO"`
	Vistos            string  `json:"vistos"`
	Considerando      string  `json:"considerando"`
	PorTanto          string  `json:"por_tanto"`
	JuezID            string  `json:"juez_id"`
	DocumentoHash     string  `json:"documento_hash"`
	FechaEmision      string  `json:"fecha_emision" format:"date-time"`
	FechaNotificacion *string `json:"fecha_notificacion,omitempty" format:"date-time"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type Sentencia struct {
	ID            string `json:"id"`
	ProcesoID     string `json:"proceso_id"`
	Vistos        string `json:"vistos"`
	Considerando  string `json:"considerando"`
	PorTanto      string `json:"por_tanto"`
	Decision      string `json:"decision" enum:"PROBADA,PROBADA_EN_PARTE,IMPROBADA"`
	JuezID        string `json:"juez_id"`
	DocumentoHash string `json:"documento_hash"`
	FechaEmision  string `json:"fecha_emision" format:"date-time"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type Notificacion struct {
	ID             string  `json:"id"`
	ProcesoID      string  `json:"proceso_id"`
	DestinatarioID string  `json:"destinatario_id"`
	Tipo           string  `json:"tipo"`
	Mensaje        string  `json:"mensaje"`
	ReferenciaTipo string  `json:"referencia_tipo,omitempty"`
	ReferenciaID   string  `json:"referencia_id,omitempty"`
	Leida          bool    `json:"leida"`
	FechaCreacion  string  `json:"fecha_creacion" format:"date-time"`
	FechaLeida     *string `json:"fecha_leida,omitempty" format:"date-time"`
}

type Evento struct {
	ID        int64  `json:"id"`
	TS        string `json:"ts" format:"date-time"`
	Tipo      string `json:"tipo"`
	ProcesoID string `json:"proceso_id,omitempty"`
	Entidad   string `json:"entidad"`
	EntidadID string `json:"entidad_id,omitempty"`
	ActorID   string `json:"actor_id"`
	Payload   string `json:"payload_json"`
}

type Juzgado struct {
	ID        string `json:"id"`
	Codigo    string `json:"codigo"`
	Nombre    string `json:"nombre"`
	Materia   string `json:"materia"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Juez struct {
	ID        string `json:"id"`
	JuzgadoID string `json:"juzgado_id"`
	Nombre    string `json:"nombre"`
	Activo    bool   `json:"activo"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Secretario struct {
	ID        string `json:"id"`
	JuzgadoID string `json:"juzgado_id"`
	Nombre    string `json:"nombre"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Abogado struct {
	ID        string `json:"id"`
	Nombre    string `json:"nombre"`
	Matricula string `json:"matricula"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Rol       string `json:"rol,omitempty"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
