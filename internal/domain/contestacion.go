package domain

import (
	"errors"
	"fmt"
)

// Variantes de contestación.
const (
	VarianteNegacion     = "NEGACION"
	VarianteAllanamiento = "ALLANAMIENTO"
	VarianteExcepcion    = "EXCEPCION_PREVIA"
	VarianteReconvencion = "RECONVENCION"
)

// Tipos de excepción previa.
const (
	ExcIncompetencia     = "INCOMPETENCIA"
	ExcIncapacidad       = "INCAPACIDAD"
	ExcFaltaLegitimacion = "FALTA_LEGITIMACION"
	ExcLitispendencia    = "LITISPENDENCIA"
	ExcDemandaDefectuosa = "DEMANDA_DEFECTUOSA"
	ExcPrescripcion      = "PRESCRIPCION"
	ExcCosaJuzgada       = "COSA_JUZGADA"
	ExcTransaccion       = "TRANSACCION"
	ExcConciliacion      = "CONCILIACION"
	ExcDesistimiento     = "DESISTIMIENTO"
)

var tiposExcepcion = map[string]bool{
	ExcIncompetencia:     true,
	ExcIncapacidad:       true,
	ExcFaltaLegitimacion: true,
	ExcLitispendencia:    true,
	ExcDemandaDefectuosa: true,
	ExcPrescripcion:      true,
	ExcCosaJuzgada:       true,
	ExcTransaccion:       true,
	ExcConciliacion:      true,
	ExcDesistimiento:     true,
}

// excepcionesDispositivas son las que, declaradas fundadas, terminan el proceso.
var excepcionesDispositivas = map[string]bool{
	ExcIncompetencia: true,
	ExcCosaJuzgada:   true,
	ExcTransaccion:   true,
	ExcConciliacion:  true,
	ExcDesistimiento: true,
	ExcPrescripcion:  true,
}

// ExcepcionValida reporta si el tipo pertenece al catálogo de excepciones previas.
func ExcepcionValida(tipo string) bool {
	return tiposExcepcion[tipo]
}

// ExcepcionDispositiva reporta si una excepción fundada archiva el proceso.
func ExcepcionDispositiva(tipo string) bool {
	return excepcionesDispositivas[tipo]
}

// Negacion contesta negando los hechos de la demanda.
type Negacion struct {
	RespuestaHechos    string   `json:"respuesta_hechos"`
	FundamentosDerecho string   `json:"fundamentos_derecho"`
	Pruebas            []string `json:"pruebas,omitempty"`
}

func (n Negacion) Validate() error {
	if n.RespuestaHechos == "" {
		return errors.New("respuesta_hechos is required")
	}
	if n.FundamentosDerecho == "" {
		return errors.New("fundamentos_derecho is required")
	}
	return nil
}

// Allanamiento acepta la pretensión, total o parcialmente.
type Allanamiento struct {
	Alcance       string `json:"alcance" enum:"TOTAL,PARCIAL"`
	Manifestacion string `json:"manifestacion"`
}

func (a Allanamiento) Validate() error {
	if a.Alcance != "TOTAL" && a.Alcance != "PARCIAL" {
		return fmt.Errorf("alcance must be TOTAL or PARCIAL, got %q", a.Alcance)
	}
	if a.Manifestacion == "" {
		return errors.New("manifestacion is required")
	}
	return nil
}

// ExcepcionPrevia opone una defensa previa al fondo.
type ExcepcionPrevia struct {
	Tipo       string `json:"tipo"`
	Fundamento string `json:"fundamento"`
}

func (e ExcepcionPrevia) Validate() error {
	if !ExcepcionValida(e.Tipo) {
		return fmt.Errorf("unknown tipo_excepcion %q", e.Tipo)
	}
	if e.Fundamento == "" {
		return errors.New("fundamento is required")
	}
	return nil
}

// Reconvencion contrademanda dentro de la misma causa.
type Reconvencion struct {
	Pretension string `json:"pretension"`
	Hechos     string `json:"hechos"`
	Petitorio  string `json:"petitorio"`
}

func (r Reconvencion) Validate() error {
	if r.Pretension == "" {
		return errors.New("pretension is required")
	}
	if r.Hechos == "" {
		return errors.New("hechos is required")
	}
	if r.Petitorio == "" {
		return errors.New("petitorio is required")
	}
	return nil
}
