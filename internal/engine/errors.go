package engine

import "fmt"

// EstadoError reports an operation attempted against a proceso (or one of
// its pieces) in the wrong estado.
type EstadoError struct {
	Entidad string
	Desde   string
	Hasta   string
	Motivo  string
}

func (e EstadoError) Error() string {
	if e.Hasta != "" {
		return fmt.Sprintf("invalid %s transition %s -> %s", e.Entidad, e.Desde, e.Hasta)
	}
	return fmt.Sprintf("%s in estado %s: %s", e.Entidad, e.Desde, e.Motivo)
}

// ValidationError reports malformed or incomplete input.
type ValidationError struct {
	Campo  string
	Motivo string
}

func (e ValidationError) Error() string {
	if e.Campo == "" {
		return e.Motivo
	}
	return fmt.Sprintf("%s: %s", e.Campo, e.Motivo)
}

func validationf(campo, format string, args ...any) error {
	return ValidationError{Campo: campo, Motivo: fmt.Sprintf(format, args...)}
}
