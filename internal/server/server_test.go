package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expedientes/internal/app"
	"expedientes/internal/db"
	"expedientes/internal/domain"
	"expedientes/internal/engine"
	"expedientes/internal/migrate"
	"expedientes/internal/repo"
)

const (
	testJuzgado    = "jz-1"
	testJuez       = "juez-1"
	testSecretario = "sec-1"
	testDemandante = "ab-demandante"
	testDemandado  = "ab-demandado"
	testJWTSecret  = "test-secret"
)

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	ctx := context.Background()
	_, cfg, err := app.ResolveJuzgadoAndConfig(ctx, workspace, testJuzgado, r)
	if err != nil {
		t.Fatalf("resolve juzgado: %v", err)
	}
	e := engine.New(conn, cfg)
	e.Now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }

	now := e.Now().UTC().Format(time.RFC3339)
	if err := r.InsertJuez(ctx, domain.Juez{ID: testJuez, JuzgadoID: testJuzgado, Nombre: "Juez Uno", Activo: true, CreatedAt: now}); err != nil {
		t.Fatalf("seed juez: %v", err)
	}
	if err := r.InsertSecretario(ctx, domain.Secretario{ID: testSecretario, JuzgadoID: testJuzgado, Nombre: "Secretario Uno", CreatedAt: now}); err != nil {
		t.Fatalf("seed secretario: %v", err)
	}
	if err := r.InsertAbogado(ctx, domain.Abogado{ID: testDemandante, Nombre: "Abogado Demandante", Matricula: "M-001", CreatedAt: now}); err != nil {
		t.Fatalf("seed abogado demandante: %v", err)
	}
	if err := r.InsertAbogado(ctx, domain.Abogado{ID: testDemandado, Nombre: "Abogado Demandado", Matricula: "M-002", CreatedAt: now}); err != nil {
		t.Fatalf("seed abogado demandado: %v", err)
	}

	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testJWTSecret, AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asActor(actorID string) map[string]string {
	return map[string]string{"X-Actor-Id": actorID}
}

func TestDemandaLifecycleHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos", map[string]any{
		"tipo_proceso":      "ORDINARIO",
		"demandante_nombre": "Maria Quispe",
		"demandado_nombre":  "Jorge Mamani",
	}, asActor(testDemandante))
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("crear proceso status %d: %s", createRes.StatusCode, string(data))
	}
	var created domain.Proceso
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal proceso: %v", err)
	}
	if created.Estado != domain.EstadoBorrador {
		t.Fatalf("expected BORRADOR, got %s", created.Estado)
	}

	presRes, presBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/demanda", map[string]any{
		"hechos":    "Incumplimiento de contrato",
		"petitorio": "Resolucion y pago de danos",
	}, asActor(testDemandante))
	if presRes.StatusCode != http.StatusCreated {
		t.Fatalf("presentar demanda status %d: %s", presRes.StatusCode, string(presBody))
	}

	admRes, admBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/demanda/admitir", nil, asActor(testJuez))
	if admRes.StatusCode != http.StatusOK {
		t.Fatalf("admitir status %d: %s", admRes.StatusCode, string(admBody))
	}
	var admitted ProcesoConEfectos
	if err := json.Unmarshal(admBody, &admitted); err != nil {
		t.Fatalf("unmarshal admitir: %v", err)
	}
	if admitted.Proceso.Nurej == nil || *admitted.Proceso.Nurej == "" {
		t.Fatalf("expected nurej after admission")
	}
	if len(admitted.Efectos.Resoluciones) != 1 {
		t.Fatalf("expected providencia de admision in efectos")
	}

	expRes, expBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/procesos/"+created.ID+"/expediente", nil, asActor(testJuez))
	if expRes.StatusCode != http.StatusOK {
		t.Fatalf("expediente status %d: %s", expRes.StatusCode, string(expBody))
	}
	var exp ExpedienteResponse
	if err := json.Unmarshal(expBody, &exp); err != nil {
		t.Fatalf("unmarshal expediente: %v", err)
	}
	if len(exp.Demandas) != 1 || len(exp.Resoluciones) != 1 {
		t.Fatalf("unexpected expediente: %d demandas, %d resoluciones", len(exp.Demandas), len(exp.Resoluciones))
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/procesos", map[string]any{
		"tipo_proceso":      "ORDINARIO",
		"demandante_nombre": "a",
		"demandado_nombre":  "b",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected code unauthorized, got %q", envelope.Error.Code)
	}
}

func TestForbiddenRolMappedTo403(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos", map[string]any{
		"tipo_proceso":      "ORDINARIO",
		"demandante_nombre": "a",
		"demandado_nombre":  "b",
	}, asActor(testDemandante))
	var created domain.Proceso
	_ = json.Unmarshal(data, &created)

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/demanda", map[string]any{
		"hechos": "h", "petitorio": "p",
	}, asActor(testDemandante))

	// an abogado may not admit
	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/demanda/admitir", nil, asActor(testDemandante))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(body))
	}
}

func TestContestacionVarianteUnica(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos", map[string]any{
		"tipo_proceso":      "ORDINARIO",
		"demandante_nombre": "a",
		"demandado_nombre":  "b",
	}, asActor(testDemandante))
	var created domain.Proceso
	_ = json.Unmarshal(data, &created)
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/demanda", map[string]any{
		"hechos": "h", "petitorio": "p",
	}, asActor(testDemandante))
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/demanda/admitir", nil, asActor(testJuez))

	ordRes, ordBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/citaciones", map[string]any{
		"tipo": "PERSONAL", "direccion": "Calle Junin 42",
	}, asActor(testJuez))
	if ordRes.StatusCode != http.StatusCreated {
		t.Fatalf("ordenar citacion status %d: %s", ordRes.StatusCode, string(ordBody))
	}
	var ordenada CitacionConEfectos
	if err := json.Unmarshal(ordBody, &ordenada); err != nil {
		t.Fatalf("unmarshal citacion: %v", err)
	}
	exitoRes, exitoBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/citaciones/"+ordenada.Citacion.ID+"/exito", map[string]any{}, asActor(testSecretario))
	if exitoRes.StatusCode != http.StatusOK {
		t.Fatalf("citacion exitosa status %d: %s", exitoRes.StatusCode, string(exitoBody))
	}

	// two variantes in one contestacion is a client error
	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/contestaciones", map[string]any{
		"negacion":     map[string]any{"respuesta_hechos": "r", "fundamentos_derecho": "f"},
		"allanamiento": map[string]any{"alcance": "TOTAL", "manifestacion": "m"},
	}, asActor(testDemandado))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(body))
	}

	okRes, okBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos/"+created.ID+"/contestaciones", map[string]any{
		"negacion": map[string]any{"respuesta_hechos": "r", "fundamentos_derecho": "f"},
	}, asActor(testDemandado))
	if okRes.StatusCode != http.StatusCreated {
		t.Fatalf("contestar status %d: %s", okRes.StatusCode, string(okBody))
	}
}

func TestProcesoNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/procesos/desconocido", nil, asActor(testJuez))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	_ = json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected code not_found, got %q", envelope.Error.Code)
	}
}

func TestJWTAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testDemandante,
		"rol": "ABOGADO",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/procesos", map[string]any{
		"tipo_proceso":      "ORDINARIO",
		"demandante_nombre": "a",
		"demandado_nombre":  "b",
	}, map[string]string{"Authorization": "Bearer " + signed})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with jwt, got %d: %s", res.StatusCode, string(data))
	}

	badRes, badData := doJSON(t, client, http.MethodGet, srv.URL+"/v0/procesos", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if badRes.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad jwt, got %d: %s", badRes.StatusCode, string(badData))
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	rawKey := "clave-secreta-de-prueba"
	err := srv.Engine.Repo.InsertAPIKey(context.Background(), domain.APIKey{
		ID:        "key-1",
		ActorID:   testSecretario,
		Rol:       "SECRETARIO",
		Name:      "barrido",
		KeyHash:   repo.HashAPIKey(rawKey),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("insert api key: %v", err)
	}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/plazos/barrer", nil, map[string]string{"X-Api-Key": rawKey})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with api key, got %d: %s", res.StatusCode, string(data))
	}

	badRes, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/plazos/barrer", nil, map[string]string{"X-Api-Key": "incorrecta"})
	if badRes.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong api key, got %d", badRes.StatusCode)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}
