package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("jz-1")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "jz-1", cfg.Juzgado.ID)
	assert.Equal(t, "jz-1", cfg.Juzgado.Codigo)
	assert.Equal(t, "CIVIL", cfg.Juzgado.Materia)
	assert.Equal(t, 20, cfg.Plazos.Contestacion.Edicto)
	assert.Equal(t, 30, cfg.Plazos.Contestacion.General)
	assert.Equal(t, 5, cfg.Plazos.Subsanacion.Minimo)
	assert.Equal(t, 30, cfg.Plazos.Subsanacion.Maximo)
	assert.Equal(t, 10, cfg.Plazos.Subsanacion.Defecto)
	assert.Equal(t, 3, cfg.Citacion.MaxIntentos)
	assert.Equal(t, 1, cfg.Resoluciones.VentanaEliminacionHoras)
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing id", func(c *Config) { c.Juzgado.ID = "" }, "juzgado.id"},
		{"missing codigo", func(c *Config) { c.Juzgado.Codigo = "" }, "juzgado.codigo"},
		{"edicto zero", func(c *Config) { c.Plazos.Contestacion.Edicto = 0 }, "edicto"},
		{"general negative", func(c *Config) { c.Plazos.Contestacion.General = -1 }, "general"},
		{"subsanacion inverted", func(c *Config) { c.Plazos.Subsanacion.Maximo = 2 }, "subsanacion"},
		{"defecto outside range", func(c *Config) { c.Plazos.Subsanacion.Defecto = 31 }, "defecto"},
		{"max intentos zero", func(c *Config) { c.Citacion.MaxIntentos = 0 }, "max_intentos"},
		{"ventana zero", func(c *Config) { c.Resoluciones.VentanaEliminacionHoras = 0 }, "ventana_eliminacion_horas"},
		{"webhook without url", func(c *Config) { c.Webhooks = []WebhookConfig{{Secret: "s"}} }, "webhooks[0].url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default("jz-1")
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault("jz-7")))
	require.NoError(t, err)
	assert.Equal(t, "jz-7", cfg.Juzgado.ID)

	_, err = FromYAML([]byte("juzgado: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config yaml")

	_, err = FromYAML([]byte("juzgado:\n  id: jz-7\n"))
	require.Error(t, err, "parsed yaml must still pass validation")
}

func TestFromYAMLWebhooks(t *testing.T) {
	yamlDoc := GenerateDefault("jz-1") + `
webhooks:
  - url: https://hooks.example.test/expedientes
    events: [proceso.archivado, sentencia.emitida]
    secret: shh
    timeout_seconds: 9
`
	cfg, err := FromYAML([]byte(yamlDoc))
	require.NoError(t, err)
	require.Len(t, cfg.Webhooks, 1)
	hook := cfg.Webhooks[0]
	assert.Equal(t, "https://hooks.example.test/expedientes", hook.URL)
	assert.Equal(t, []string{"proceso.archivado", "sentencia.emitida"}, hook.Events)
	assert.Equal(t, 9, hook.TimeoutSeconds)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg, "absent file is not an error")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "expedientes.yml"), []byte(GenerateDefault("jz-2")), 0o644))
	cfg, err = LoadOptional(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "jz-2", cfg.Juzgado.ID)
}

func TestPathDefaultsToCwd(t *testing.T) {
	assert.Equal(t, filepath.Join(".", "expedientes.yml"), Path(""))
	assert.Equal(t, filepath.Join("/tmp/ws", "expedientes.yml"), Path("/tmp/ws"))
}
