package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcepcionCatalogo(t *testing.T) {
	for _, tipo := range []string{
		ExcIncompetencia, ExcIncapacidad, ExcFaltaLegitimacion, ExcLitispendencia,
		ExcDemandaDefectuosa, ExcPrescripcion, ExcCosaJuzgada, ExcTransaccion,
		ExcConciliacion, ExcDesistimiento,
	} {
		assert.True(t, ExcepcionValida(tipo), "tipo %s", tipo)
	}
	assert.False(t, ExcepcionValida("NULIDAD"))
	assert.False(t, ExcepcionValida(""))
}

func TestExcepcionDispositiva(t *testing.T) {
	dispositivas := []string{
		ExcIncompetencia, ExcCosaJuzgada, ExcTransaccion,
		ExcConciliacion, ExcDesistimiento, ExcPrescripcion,
	}
	for _, tipo := range dispositivas {
		assert.True(t, ExcepcionDispositiva(tipo), "tipo %s", tipo)
	}
	for _, tipo := range []string{ExcIncapacidad, ExcFaltaLegitimacion, ExcLitispendencia, ExcDemandaDefectuosa} {
		assert.False(t, ExcepcionDispositiva(tipo), "tipo %s", tipo)
	}
}

func TestNegacionValidate(t *testing.T) {
	valid := Negacion{RespuestaHechos: "niega todos los hechos", FundamentosDerecho: "art. 125 CPC"}
	require.NoError(t, valid.Validate())

	err := Negacion{FundamentosDerecho: "art. 125"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "respuesta_hechos")

	err = Negacion{RespuestaHechos: "niega"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fundamentos_derecho")
}

func TestAllanamientoValidate(t *testing.T) {
	require.NoError(t, Allanamiento{Alcance: "TOTAL", Manifestacion: "se allana"}.Validate())
	require.NoError(t, Allanamiento{Alcance: "PARCIAL", Manifestacion: "solo al primer punto"}.Validate())

	err := Allanamiento{Alcance: "COMPLETO", Manifestacion: "x"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alcance")

	err = Allanamiento{Alcance: "TOTAL"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifestacion")
}

func TestExcepcionPreviaValidate(t *testing.T) {
	require.NoError(t, ExcepcionPrevia{Tipo: ExcIncompetencia, Fundamento: "otra jurisdiccion"}.Validate())

	err := ExcepcionPrevia{Tipo: "INVENTADA", Fundamento: "f"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tipo_excepcion")

	err = ExcepcionPrevia{Tipo: ExcCosaJuzgada}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fundamento")
}

func TestReconvencionValidate(t *testing.T) {
	valid := Reconvencion{Pretension: "pago de mejoras", Hechos: "realizo mejoras", Petitorio: "se ordene el pago"}
	require.NoError(t, valid.Validate())

	for _, tc := range []struct {
		name string
		rec  Reconvencion
		want string
	}{
		{"sin pretension", Reconvencion{Hechos: "h", Petitorio: "p"}, "pretension"},
		{"sin hechos", Reconvencion{Pretension: "x", Petitorio: "p"}, "hechos"},
		{"sin petitorio", Reconvencion{Pretension: "x", Hechos: "h"}, "petitorio"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
