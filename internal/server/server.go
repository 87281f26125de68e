package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"expedientes/internal/domain"
	"expedientes/internal/engine"
	"expedientes/internal/engine/auth"
	"expedientes/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"invalid proceso transition BORRADOR -> ADMITIDO"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Expedientes API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Expedientes API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerProcesos(group, cfg.Engine)
	registerDemandas(group, cfg.Engine)
	registerCitaciones(group, cfg.Engine)
	registerContestaciones(group, cfg.Engine)
	registerAudiencias(group, cfg.Engine)
	registerResoluciones(group, cfg.Engine)
	registerSentencias(group, cfg.Engine)
	registerPlazos(group, cfg.Engine)
	registerNotificaciones(group, cfg.Engine)
	registerEventos(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"operacion": fe.Operacion})
	}
	if errors.Is(err, auth.ErrActorDesconocido) {
		return newAPIError(http.StatusForbidden, "unknown_actor", err.Error(), nil)
	}
	var ee engine.EstadoError
	if errors.As(err, &ee) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{"entidad": ee.Entidad, "desde": ee.Desde})
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrConflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
}

var defaultErrors = []int{
	http.StatusBadRequest,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Expedientes API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Juzgado status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		j, err := e.Repo.GetJuzgado(ctx, e.Config.Juzgado.ID)
		if err != nil {
			return nil, handleError(err)
		}
		counts, err := e.Repo.CountProcesosByEstado(ctx, j.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"juzgado_id":     j.ID,
			"codigo":         j.Codigo,
			"nombre":         j.Nombre,
			"proceso_counts": counts,
		}}, nil
	})
}

func registerProcesos(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "crear-proceso",
		Method:        http.MethodPost,
		Path:          "/procesos",
		Summary:       "Crear proceso",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		Body CrearProcesoRequest `json:"body"`
	}) (*struct {
		Body domain.Proceso `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CrearProceso(ctx, engine.CrearProcesoOptions{
			JuzgadoID:        e.Config.Juzgado.ID,
			Materia:          input.Body.Materia,
			TipoProceso:      input.Body.TipoProceso,
			DemandanteNombre: input.Body.DemandanteNombre,
			DemandadoNombre:  input.Body.DemandadoNombre,
			ActorID:          actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Proceso `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-procesos",
		Method:      http.MethodGet,
		Path:        "/procesos",
		Summary:     "List procesos",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Estado  string `query:"estado"`
		Abogado string `query:"abogado"`
		Juez    string `query:"juez"`
		Search  string `query:"q"`
		Limit   int    `query:"limit"`
		Cursor  string `query:"cursor"`
	}) (*struct {
		Body struct {
			Items      []domain.Proceso `json:"items"`
			NextCursor string           `json:"next_cursor,omitempty"`
		} `json:"body"`
	}, error) {
		items, next, err := e.Repo.ListProcesos(ctx, repo.ProcesoFilters{
			JuzgadoID: e.Config.Juzgado.ID,
			Estado:    input.Estado,
			AbogadoID: input.Abogado,
			JuezID:    input.Juez,
			Search:    input.Search,
		}, input.Limit, input.Cursor)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items      []domain.Proceso `json:"items"`
				NextCursor string           `json:"next_cursor,omitempty"`
			} `json:"body"`
		}{}
		out.Body.Items = items
		out.Body.NextCursor = next
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-proceso",
		Method:      http.MethodGet,
		Path:        "/procesos/{proceso_id}",
		Summary:     "Get proceso",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcesoID string `path:"proceso_id"`
	}) (*struct {
		Body domain.Proceso `json:"body"`
	}, error) {
		p, err := e.Repo.GetProceso(ctx, input.ProcesoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Proceso `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-expediente",
		Method:      http.MethodGet,
		Path:        "/procesos/{proceso_id}/expediente",
		Summary:     "Get expediente completo",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcesoID string `path:"proceso_id"`
	}) (*struct {
		Body ExpedienteResponse `json:"body"`
	}, error) {
		exp, err := buildExpediente(ctx, e, input.ProcesoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExpedienteResponse `json:"body"`
		}{Body: exp}, nil
	})
}

func buildExpediente(ctx context.Context, e *engine.Engine, procesoID string) (ExpedienteResponse, error) {
	var exp ExpedienteResponse
	p, err := e.Repo.GetProceso(ctx, procesoID)
	if err != nil {
		return exp, err
	}
	exp.Proceso = p
	if exp.Demandas, err = e.Repo.ListDemandas(ctx, p.ID); err != nil {
		return exp, err
	}
	if exp.Citaciones, err = e.Repo.ListCitaciones(ctx, p.ID); err != nil {
		return exp, err
	}
	if exp.Contestaciones, err = e.Repo.ListContestaciones(ctx, p.ID); err != nil {
		return exp, err
	}
	if exp.Audiencias, err = e.Repo.ListAudiencias(ctx, p.ID); err != nil {
		return exp, err
	}
	if exp.Plazos, err = e.Repo.ListPlazos(ctx, repo.PlazoFilters{ProcesoID: p.ID}); err != nil {
		return exp, err
	}
	if exp.Resoluciones, err = e.Repo.ListResoluciones(ctx, p.ID); err != nil {
		return exp, err
	}
	s, err := e.Repo.GetSentenciaByProceso(ctx, p.ID)
	if err == nil {
		exp.Sentencia = &s
	} else if !errors.Is(err, repo.ErrNotFound) {
		return exp, err
	}
	return exp, nil
}

func registerDemandas(api huma.API, e *engine.Engine) {
	type procesoPath struct {
		ProcesoID string `path:"proceso_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "presentar-demanda",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/demanda",
		Summary:       "Presentar demanda",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                  `path:"proceso_id"`
		Body      PresentarDemandaRequest `json:"body"`
	}) (*struct {
		Body DemandaConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, efectos, err := e.PresentarDemanda(ctx, engine.PresentarDemandaOptions{
			ProcesoID: input.ProcesoID,
			Hechos:    input.Body.Hechos,
			Petitorio: input.Body.Petitorio,
			Pruebas:   input.Body.Pruebas,
			Cuantia:   input.Body.Cuantia,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DemandaConEfectos `json:"body"`
		}{Body: DemandaConEfectos{Demanda: d, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "observar-demanda",
		Method:      http.MethodPost,
		Path:        "/procesos/{proceso_id}/demanda/observar",
		Summary:     "Observar demanda",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                 `path:"proceso_id"`
		Body      ObservarDemandaRequest `json:"body"`
	}) (*struct {
		Body ProcesoConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, efectos, err := e.ObservarDemanda(ctx, engine.ObservarDemandaOptions{
			ProcesoID:     input.ProcesoID,
			Observaciones: input.Body.Observaciones,
			Dias:          input.Body.Dias,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcesoConEfectos `json:"body"`
		}{Body: ProcesoConEfectos{Proceso: p, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "subsanar-demanda",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/demanda/subsanar",
		Summary:       "Subsanar demanda",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                  `path:"proceso_id"`
		Body      PresentarDemandaRequest `json:"body"`
	}) (*struct {
		Body DemandaConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, efectos, err := e.SubsanarDemanda(ctx, engine.SubsanarDemandaOptions{
			ProcesoID: input.ProcesoID,
			Hechos:    input.Body.Hechos,
			Petitorio: input.Body.Petitorio,
			Pruebas:   input.Body.Pruebas,
			Cuantia:   input.Body.Cuantia,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DemandaConEfectos `json:"body"`
		}{Body: DemandaConEfectos{Demanda: d, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admitir-demanda",
		Method:      http.MethodPost,
		Path:        "/procesos/{proceso_id}/demanda/admitir",
		Summary:     "Admitir demanda",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *procesoPath) (*struct {
		Body ProcesoConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, efectos, err := e.AdmitirDemanda(ctx, engine.AdmitirDemandaOptions{
			ProcesoID: input.ProcesoID,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcesoConEfectos `json:"body"`
		}{Body: ProcesoConEfectos{Proceso: p, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rechazar-demanda",
		Method:      http.MethodPost,
		Path:        "/procesos/{proceso_id}/demanda/rechazar",
		Summary:     "Rechazar demanda",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                 `path:"proceso_id"`
		Body      RechazarDemandaRequest `json:"body"`
	}) (*struct {
		Body ProcesoConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, efectos, err := e.RechazarDemanda(ctx, engine.RechazarDemandaOptions{
			ProcesoID: input.ProcesoID,
			Motivo:    input.Body.Motivo,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcesoConEfectos `json:"body"`
		}{Body: ProcesoConEfectos{Proceso: p, Efectos: efectos}}, nil
	})
}

func registerCitaciones(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "ordenar-citacion",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/citaciones",
		Summary:       "Ordenar citacion",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                 `path:"proceso_id"`
		Body      OrdenarCitacionRequest `json:"body"`
	}) (*struct {
		Body CitacionConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, efectos, err := e.OrdenarCitacion(ctx, engine.OrdenarCitacionOptions{
			ProcesoID: input.ProcesoID,
			Tipo:      input.Body.Tipo,
			Direccion: input.Body.Direccion,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CitacionConEfectos `json:"body"`
		}{Body: CitacionConEfectos{Citacion: c, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-citaciones",
		Method:      http.MethodGet,
		Path:        "/procesos/{proceso_id}/citaciones",
		Summary:     "List citaciones",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcesoID string `path:"proceso_id"`
	}) (*struct {
		Body []domain.Citacion `json:"body"`
	}, error) {
		items, err := e.Repo.ListCitaciones(ctx, input.ProcesoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Citacion `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "registrar-intento-citacion",
		Method:        http.MethodPost,
		Path:          "/citaciones/{citacion_id}/intentos",
		Summary:       "Registrar intento fallido",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		CitacionID string                 `path:"citacion_id"`
		Body       IntentoCitacionRequest `json:"body"`
	}) (*struct {
		Body CitacionConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, efectos, err := e.RegistrarIntentoCitacion(ctx, engine.RegistrarIntentoOptions{
			CitacionID: input.CitacionID,
			Fecha:      input.Body.Fecha,
			Motivo:     input.Body.Motivo,
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CitacionConEfectos `json:"body"`
		}{Body: CitacionConEfectos{Citacion: c, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "registrar-citacion-exitosa",
		Method:      http.MethodPost,
		Path:        "/citaciones/{citacion_id}/exito",
		Summary:     "Registrar citacion exitosa",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		CitacionID string                 `path:"citacion_id"`
		Body       CitacionExitosaRequest `json:"body"`
	}) (*struct {
		Body CitacionConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, efectos, err := e.RegistrarCitacionExitosa(ctx, engine.RegistrarExitosaOptions{
			CitacionID: input.CitacionID,
			Fecha:      input.Body.Fecha,
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CitacionConEfectos `json:"body"`
		}{Body: CitacionConEfectos{Citacion: c, Efectos: efectos}}, nil
	})
}

func registerContestaciones(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "presentar-contestacion",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/contestaciones",
		Summary:       "Presentar contestacion",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string              `path:"proceso_id"`
		Body      ContestacionRequest `json:"body"`
	}) (*struct {
		Body ContestacionConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, efectos, err := e.PresentarContestacion(ctx, engine.PresentarContestacionOptions{
			ProcesoID:    input.ProcesoID,
			Negacion:     input.Body.Negacion,
			Allanamiento: input.Body.Allanamiento,
			Excepcion:    input.Body.Excepcion,
			Reconvencion: input.Body.Reconvencion,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContestacionConEfectos `json:"body"`
		}{Body: ContestacionConEfectos{Contestacion: c, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolver-excepcion",
		Method:      http.MethodPost,
		Path:        "/contestaciones/{contestacion_id}/resolver-excepcion",
		Summary:     "Resolver excepcion previa",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		ContestacionID string                   `path:"contestacion_id"`
		Body           ResolverExcepcionRequest `json:"body"`
	}) (*struct {
		Body ContestacionConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, efectos, err := e.ResolverExcepcion(ctx, engine.ResolverExcepcionOptions{
			ContestacionID: input.ContestacionID,
			Fundada:        input.Body.Fundada,
			Fundamento:     input.Body.Fundamento,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContestacionConEfectos `json:"body"`
		}{Body: ContestacionConEfectos{Contestacion: c, Efectos: efectos}}, nil
	})
}

func registerAudiencias(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "programar-audiencia",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/audiencias",
		Summary:       "Programar audiencia",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                    `path:"proceso_id"`
		Body      ProgramarAudienciaRequest `json:"body"`
	}) (*struct {
		Body AudienciaConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ProgramarAudienciaOptions{
			ProcesoID: input.ProcesoID,
			Tipo:      input.Body.Tipo,
			Modalidad: input.Body.Modalidad,
			Fecha:     input.Body.Fecha,
			Enlace:    input.Body.Enlace,
			ActorID:   actorID,
		}
		for _, a := range input.Body.Asistentes {
			opts.Asistentes = append(opts.Asistentes, engine.AsistenteInput{
				ActorID:     a.ActorID,
				Rol:         a.Rol,
				Obligatorio: a.Obligatorio,
			})
		}
		a, efectos, err := e.ProgramarAudiencia(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AudienciaConEfectos `json:"body"`
		}{Body: AudienciaConEfectos{Audiencia: a, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audiencias",
		Method:      http.MethodGet,
		Path:        "/procesos/{proceso_id}/audiencias",
		Summary:     "List audiencias",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcesoID string `path:"proceso_id"`
	}) (*struct {
		Body []domain.Audiencia `json:"body"`
	}, error) {
		items, err := e.Repo.ListAudiencias(ctx, input.ProcesoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Audiencia `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cerrar-audiencia",
		Method:      http.MethodPost,
		Path:        "/audiencias/{audiencia_id}/cerrar",
		Summary:     "Cerrar audiencia",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		AudienciaID string                 `path:"audiencia_id"`
		Body        CerrarAudienciaRequest `json:"body"`
	}) (*struct {
		Body AudienciaConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, efectos, err := e.CerrarAudiencia(ctx, engine.CerrarAudienciaOptions{
			AudienciaID:       input.AudienciaID,
			Estado:            input.Body.Estado,
			Acta:              input.Body.Acta,
			Asistencia:        input.Body.Asistencia,
			DirectoASentencia: input.Body.DirectoASentencia,
			ActorID:           actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AudienciaConEfectos `json:"body"`
		}{Body: AudienciaConEfectos{Audiencia: a, Efectos: efectos}}, nil
	})
}

func registerResoluciones(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "emitir-resolucion",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/resoluciones",
		Summary:       "Emitir resolucion",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                  `path:"proceso_id"`
		Body      EmitirResolucionRequest `json:"body"`
	}) (*struct {
		Body domain.Resolucion `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.EmitirResolucion(ctx, engine.EmitirResolucionOptions{
			ProcesoID:    input.ProcesoID,
			Tipo:         input.Body.Tipo,
			Vistos:       input.Body.Vistos,
			Considerando: input.Body.Considerando,
			PorTanto:     input.Body.PorTanto,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Resolucion `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-resoluciones",
		Method:      http.MethodGet,
		Path:        "/procesos/{proceso_id}/resoluciones",
		Summary:     "List resoluciones",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcesoID string `path:"proceso_id"`
	}) (*struct {
		Body []domain.Resolucion `json:"body"`
	}, error) {
		items, err := e.Repo.ListResoluciones(ctx, input.ProcesoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Resolucion `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "modificar-resolucion",
		Method:      http.MethodPatch,
		Path:        "/resoluciones/{resolucion_id}",
		Summary:     "Modificar resolucion",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		ResolucionID string                     `path:"resolucion_id"`
		Body         ModificarResolucionRequest `json:"body"`
	}) (*struct {
		Body domain.Resolucion `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.ModificarResolucion(ctx, engine.ModificarResolucionOptions{
			ResolucionID: input.ResolucionID,
			Vistos:       input.Body.Vistos,
			Considerando: input.Body.Considerando,
			PorTanto:     input.Body.PorTanto,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Resolucion `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "notificar-resolucion",
		Method:      http.MethodPost,
		Path:        "/resoluciones/{resolucion_id}/notificar",
		Summary:     "Notificar resolucion",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		ResolucionID string `path:"resolucion_id"`
	}) (*struct {
		Body ResolucionConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, efectos, err := e.NotificarResolucion(ctx, engine.NotificarResolucionOptions{
			ResolucionID: input.ResolucionID,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ResolucionConEfectos `json:"body"`
		}{Body: ResolucionConEfectos{Resolucion: res, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "eliminar-resolucion",
		Method:      http.MethodDelete,
		Path:        "/resoluciones/{resolucion_id}",
		Summary:     "Eliminar resolucion",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		ResolucionID string `path:"resolucion_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.EliminarResolucion(ctx, engine.EliminarResolucionOptions{
			ResolucionID: input.ResolucionID,
			ActorID:      actorID,
		}); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSentencias(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "emitir-sentencia",
		Method:        http.MethodPost,
		Path:          "/procesos/{proceso_id}/sentencia",
		Summary:       "Emitir sentencia",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *struct {
		ProcesoID string                 `path:"proceso_id"`
		Body      EmitirSentenciaRequest `json:"body"`
	}) (*struct {
		Body SentenciaConEfectos `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, efectos, err := e.EmitirSentencia(ctx, engine.EmitirSentenciaOptions{
			ProcesoID:    input.ProcesoID,
			Vistos:       input.Body.Vistos,
			Considerando: input.Body.Considerando,
			PorTanto:     input.Body.PorTanto,
			Decision:     input.Body.Decision,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SentenciaConEfectos `json:"body"`
		}{Body: SentenciaConEfectos{Sentencia: s, Efectos: efectos}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-sentencia",
		Method:      http.MethodGet,
		Path:        "/procesos/{proceso_id}/sentencia",
		Summary:     "Get sentencia",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProcesoID string `path:"proceso_id"`
	}) (*struct {
		Body domain.Sentencia `json:"body"`
	}, error) {
		s, err := e.Repo.GetSentenciaByProceso(ctx, input.ProcesoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sentencia `json:"body"`
		}{Body: s}, nil
	})
}

func registerPlazos(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-plazos",
		Method:      http.MethodGet,
		Path:        "/plazos",
		Summary:     "List plazos",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProcesoID    string `query:"proceso"`
		Estado       string `query:"estado"`
		Tipo         string `query:"tipo"`
		Destinatario string `query:"destinatario"`
	}) (*struct {
		Body []domain.Plazo `json:"body"`
	}, error) {
		items, err := e.Repo.ListPlazos(ctx, repo.PlazoFilters{
			ProcesoID:      input.ProcesoID,
			Estado:         input.Estado,
			Tipo:           input.Tipo,
			DestinatarioID: input.Destinatario,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Plazo `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "barrer-plazos",
		Method:      http.MethodPost,
		Path:        "/plazos/barrer",
		Summary:     "Marcar plazos vencidos",
		Errors:      defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Vencidos []domain.Plazo `json:"vencidos"`
			Efectos  engine.Efectos `json:"efectos,omitempty"`
		} `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		vencidos, efectos, err := e.MarcarPlazosVencidos(ctx, engine.BarrerPlazosOptions{ActorID: actorID})
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Vencidos []domain.Plazo `json:"vencidos"`
				Efectos  engine.Efectos `json:"efectos,omitempty"`
			} `json:"body"`
		}{}
		out.Body.Vencidos = vencidos
		out.Body.Efectos = efectos
		return out, nil
	})
}

func registerNotificaciones(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notificaciones",
		Method:      http.MethodGet,
		Path:        "/notificaciones",
		Summary:     "List notificaciones del actor",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Proceso  string `query:"proceso"`
		NoLeidas bool   `query:"no_leidas"`
		Limit    int    `query:"limit"`
	}) (*struct {
		Body []domain.Notificacion `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListNotificaciones(ctx, repo.NotificacionFilters{
			DestinatarioID: actorID,
			ProcesoID:      input.Proceso,
			SoloNoLeidas:   input.NoLeidas,
		}, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Notificacion `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "leer-notificacion",
		Method:      http.MethodPost,
		Path:        "/notificaciones/{notificacion_id}/leer",
		Summary:     "Marcar notificacion leida",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		NotificacionID string `path:"notificacion_id"`
	}) (*struct {
		Body domain.Notificacion `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.Repo.GetNotificacion(ctx, input.NotificacionID)
		if err != nil {
			return nil, handleError(err)
		}
		if n.DestinatarioID != actorID {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "notificacion belongs to another actor", nil)
		}
		n, err = e.Repo.MarcarNotificacionLeida(ctx, n.ID, e.Now().UTC().Format("2006-01-02T15:04:05Z07:00"))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Notificacion `json:"body"`
		}{Body: n}, nil
	})
}

func registerEventos(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-eventos",
		Method:      http.MethodGet,
		Path:        "/eventos",
		Summary:     "List eventos",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Proceso string `query:"proceso"`
		Tipo    string `query:"tipo"`
		Entidad string `query:"entidad"`
		Limit   int    `query:"limit"`
		Cursor  int64  `query:"cursor"`
	}) (*struct {
		Body struct {
			Items      []domain.Evento `json:"items"`
			NextCursor int64           `json:"next_cursor,omitempty"`
		} `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.LatestEventosFrom(ctx, limit, input.Cursor, input.Proceso, input.Tipo, input.Entidad, "")
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items      []domain.Evento `json:"items"`
				NextCursor int64           `json:"next_cursor,omitempty"`
			} `json:"body"`
		}{}
		out.Body.Items = items
		if len(items) == limit {
			out.Body.NextCursor = items[len(items)-1].ID
		}
		return out, nil
	})
}
