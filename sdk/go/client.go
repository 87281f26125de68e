package expedientessdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Expedientes HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Proceso represents the API proceso model (partial).
type Proceso struct {
	ID               string  `json:"id"`
	JuzgadoID        string  `json:"juzgado_id"`
	Nurej            *string `json:"nurej,omitempty"`
	Materia          string  `json:"materia"`
	TipoProceso      string  `json:"tipo_proceso"`
	Estado           string  `json:"estado"`
	DemandanteNombre string  `json:"demandante_nombre"`
	DemandadoNombre  string  `json:"demandado_nombre"`
}

// Demanda represents a filing (partial).
type Demanda struct {
	ID        string `json:"id"`
	ProcesoID string `json:"proceso_id"`
	Estado    string `json:"estado"`
	Hechos    string `json:"hechos"`
	Petitorio string `json:"petitorio"`
}

// Plazo represents a running deadline.
type Plazo struct {
	ID               string `json:"id"`
	ProcesoID        string `json:"proceso_id"`
	Tipo             string `json:"tipo"`
	DestinatarioID   string `json:"destinatario_id"`
	FechaVencimiento string `json:"fecha_vencimiento"`
	Estado           string `json:"estado"`
}

// Notificacion represents an inbox entry.
type Notificacion struct {
	ID             string `json:"id"`
	ProcesoID      string `json:"proceso_id"`
	DestinatarioID string `json:"destinatario_id"`
	Tipo           string `json:"tipo"`
	Mensaje        string `json:"mensaje"`
	Leida          bool   `json:"leida"`
}

// Evento represents a log entry.
type Evento struct {
	ID        int64           `json:"id"`
	TS        string          `json:"ts"`
	Tipo      string          `json:"tipo"`
	ProcesoID string          `json:"proceso_id"`
	Entidad   string          `json:"entidad"`
	EntidadID string          `json:"entidad_id"`
	Payload   json.RawMessage `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedProcesos wraps proceso list responses with cursors.
type PaginatedProcesos struct {
	Items      []Proceso `json:"items"`
	NextCursor string    `json:"next_cursor"`
}

// PaginatedEventos wraps evento list responses with cursors.
type PaginatedEventos struct {
	Items      []Evento `json:"items"`
	NextCursor string   `json:"next_cursor"`
}

// CrearProceso creates a proceso in BORRADOR.
func (c *Client) CrearProceso(ctx context.Context, tipoProceso, demandante, demandado string) (Proceso, error) {
	body := map[string]any{
		"tipo_proceso":      tipoProceso,
		"demandante_nombre": demandante,
		"demandado_nombre":  demandado,
	}
	var resp Proceso
	err := c.do(ctx, http.MethodPost, "v0/procesos", body, &resp)
	return resp, err
}

// GetProceso fetches a proceso by id.
func (c *Client) GetProceso(ctx context.Context, id string) (Proceso, error) {
	var resp Proceso
	endpoint := fmt.Sprintf("v0/procesos/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Procesos returns a paginated proceso listing.
func (c *Client) Procesos(ctx context.Context, estado string, limit int, cursor string) (PaginatedProcesos, error) {
	q := url.Values{}
	if estado != "" {
		q.Set("estado", estado)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/procesos"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedProcesos
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// PresentarDemanda files the demanda for a proceso.
func (c *Client) PresentarDemanda(ctx context.Context, procesoID, hechos, petitorio string, pruebas []string) (Demanda, error) {
	body := map[string]any{
		"hechos":    hechos,
		"petitorio": petitorio,
		"pruebas":   pruebas,
	}
	var resp struct {
		Demanda Demanda `json:"demanda"`
	}
	endpoint := fmt.Sprintf("v0/procesos/%s/demanda", url.PathEscape(procesoID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp.Demanda, err
}

// AdmitirDemanda admits the demanda, assigning the NUREJ.
func (c *Client) AdmitirDemanda(ctx context.Context, procesoID string) (Proceso, error) {
	var resp struct {
		Proceso Proceso `json:"proceso"`
	}
	endpoint := fmt.Sprintf("v0/procesos/%s/demanda/admitir", url.PathEscape(procesoID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Proceso, err
}

// Plazos lists plazos, optionally scoped to a proceso.
func (c *Client) Plazos(ctx context.Context, procesoID, estado string) ([]Plazo, error) {
	q := url.Values{}
	if procesoID != "" {
		q.Set("proceso", procesoID)
	}
	if estado != "" {
		q.Set("estado", estado)
	}
	endpoint := "v0/plazos"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Plazo
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Notificaciones lists notificaciones addressed to the authenticated actor.
func (c *Client) Notificaciones(ctx context.Context, soloNoLeidas bool, limit int) ([]Notificacion, error) {
	q := url.Values{}
	if soloNoLeidas {
		q.Set("no_leidas", "true")
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	endpoint := "v0/notificaciones"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Notificacion
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MarcarLeida marks a notificacion as read.
func (c *Client) MarcarLeida(ctx context.Context, id string) (Notificacion, error) {
	var resp Notificacion
	endpoint := fmt.Sprintf("v0/notificaciones/%s/leer", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Eventos returns recent eventos.
func (c *Client) Eventos(ctx context.Context, limit int) ([]Evento, error) {
	page, err := c.EventosPage(ctx, limit, "")
	return page.Items, err
}

// EventosPage returns a paginated evento listing.
func (c *Client) EventosPage(ctx context.Context, limit int, cursor string) (PaginatedEventos, error) {
	endpoint := "v0/eventos"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEventos
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
