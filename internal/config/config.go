package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models expedientes.yml: the procedural rulebook of a juzgado.
type Config struct {
	Juzgado struct {
		ID      string `yaml:"id" json:"id"`
		Codigo  string `yaml:"codigo" json:"codigo"`
		Nombre  string `yaml:"nombre" json:"nombre"`
		Materia string `yaml:"materia" json:"materia"`
	} `yaml:"juzgado" json:"juzgado"`
	Plazos struct {
		Contestacion struct {
			Edicto  int `yaml:"edicto" json:"edicto"`
			General int `yaml:"general" json:"general"`
		} `yaml:"contestacion" json:"contestacion"`
		Subsanacion struct {
			Minimo  int `yaml:"minimo" json:"minimo"`
			Maximo  int `yaml:"maximo" json:"maximo"`
			Defecto int `yaml:"defecto" json:"defecto"`
		} `yaml:"subsanacion" json:"subsanacion"`
	} `yaml:"plazos" json:"plazos"`
	Citacion struct {
		MaxIntentos int `yaml:"max_intentos" json:"max_intentos"`
	} `yaml:"citacion" json:"citacion"`
	Resoluciones struct {
		VentanaEliminacionHoras int `yaml:"ventana_eliminacion_horas" json:"ventana_eliminacion_horas"`
	} `yaml:"resoluciones" json:"resoluciones"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events,omitempty" json:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty" json:"secret,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Juzgado.ID == "" {
		return fmt.Errorf("config.juzgado.id is required")
	}
	if c.Juzgado.Codigo == "" {
		return fmt.Errorf("config.juzgado.codigo is required")
	}
	if c.Plazos.Contestacion.Edicto <= 0 {
		return fmt.Errorf("config.plazos.contestacion.edicto must be positive")
	}
	if c.Plazos.Contestacion.General <= 0 {
		return fmt.Errorf("config.plazos.contestacion.general must be positive")
	}
	s := c.Plazos.Subsanacion
	if s.Minimo <= 0 || s.Maximo < s.Minimo {
		return fmt.Errorf("config.plazos.subsanacion range invalid (minimo=%d maximo=%d)", s.Minimo, s.Maximo)
	}
	if s.Defecto < s.Minimo || s.Defecto > s.Maximo {
		return fmt.Errorf("config.plazos.subsanacion.defecto %d outside [%d,%d]", s.Defecto, s.Minimo, s.Maximo)
	}
	if c.Citacion.MaxIntentos <= 0 {
		return fmt.Errorf("config.citacion.max_intentos must be positive")
	}
	if c.Resoluciones.VentanaEliminacionHoras <= 0 {
		return fmt.Errorf("config.resoluciones.ventana_eliminacion_horas must be positive")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "expedientes.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(juzgadoID string) string {
	return fmt.Sprintf(defaultTemplate, juzgadoID, juzgadoID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a juzgado.
func Default(juzgadoID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(juzgadoID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `juzgado:
  id: %s
  codigo: %s
  nombre: Juzgado Publico en lo Civil y Comercial
  materia: CIVIL

plazos:
  contestacion:
    edicto: 20
    general: 30
  subsanacion:
    minimo: 5
    maximo: 30
    defecto: 10

citacion:
  max_intentos: 3

resoluciones:
  ventana_eliminacion_horas: 1
`
