package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"expedientes/internal/app"
	"expedientes/internal/db"
	"expedientes/internal/domain"
	"expedientes/internal/engine"
	"expedientes/internal/engine/auth"
	"expedientes/internal/migrate"
	"expedientes/internal/repo"
)

const (
	juzgadoID    = "jz-1"
	juezID       = "juez-1"
	secretarioID = "sec-1"
	demandanteID = "ab-demandante"
	demandadoID  = "ab-demandado"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	env := newTestEnvSinJuez(t)
	now := env.Engine.Now().UTC().Format(time.RFC3339)
	if err := env.Engine.Repo.InsertJuez(env.Ctx, domain.Juez{ID: juezID, JuzgadoID: juzgadoID, Nombre: "Juez Uno", Activo: true, CreatedAt: now}); err != nil {
		t.Fatalf("seed juez: %v", err)
	}
	return env
}

// newTestEnvSinJuez seeds the directory without any juez, for exercising
// presentation at a court with no active judge.
func newTestEnvSinJuez(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	ctx := context.Background()
	_, cfg, err := app.ResolveJuzgadoAndConfig(ctx, dir, juzgadoID, r)
	if err != nil {
		t.Fatalf("resolve juzgado: %v", err)
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }

	now := eng.Now().UTC().Format(time.RFC3339)
	if err := r.InsertSecretario(ctx, domain.Secretario{ID: secretarioID, JuzgadoID: juzgadoID, Nombre: "Secretario Uno", CreatedAt: now}); err != nil {
		t.Fatalf("seed secretario: %v", err)
	}
	if err := r.InsertAbogado(ctx, domain.Abogado{ID: demandanteID, Nombre: "Abogado Demandante", Matricula: "M-001", CreatedAt: now}); err != nil {
		t.Fatalf("seed abogado demandante: %v", err)
	}
	if err := r.InsertAbogado(ctx, domain.Abogado{ID: demandadoID, Nombre: "Abogado Demandado", Matricula: "M-002", CreatedAt: now}); err != nil {
		t.Fatalf("seed abogado demandado: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func crearProceso(t *testing.T, env testEnv) domain.Proceso {
	t.Helper()
	p, err := env.Engine.CrearProceso(env.Ctx, engine.CrearProcesoOptions{
		JuzgadoID:        juzgadoID,
		TipoProceso:      "ORDINARIO",
		DemandanteNombre: "Maria Quispe",
		DemandadoNombre:  "Jorge Mamani",
		ActorID:          demandanteID,
	})
	if err != nil {
		t.Fatalf("crear proceso: %v", err)
	}
	return p
}

func presentarDemanda(t *testing.T, env testEnv, procesoID string) domain.Demanda {
	t.Helper()
	d, _, err := env.Engine.PresentarDemanda(env.Ctx, engine.PresentarDemandaOptions{
		ProcesoID: procesoID,
		Hechos:    "El demandado incumplio el contrato de arrendamiento",
		Petitorio: "Se declare resuelto el contrato y se ordene el pago",
		Pruebas:   []string{"contrato", "recibos"},
		ActorID:   demandanteID,
	})
	if err != nil {
		t.Fatalf("presentar demanda: %v", err)
	}
	return d
}

func admitirDemanda(t *testing.T, env testEnv, procesoID string) domain.Proceso {
	t.Helper()
	p, _, err := env.Engine.AdmitirDemanda(env.Ctx, engine.AdmitirDemandaOptions{ProcesoID: procesoID, ActorID: juezID})
	if err != nil {
		t.Fatalf("admitir demanda: %v", err)
	}
	return p
}

func citarConExito(t *testing.T, env testEnv, procesoID string) domain.Citacion {
	t.Helper()
	c, _, err := env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: procesoID,
		Tipo:      "PERSONAL",
		Direccion: "Calle Murillo 123, La Paz",
		ActorID:   juezID,
	})
	if err != nil {
		t.Fatalf("ordenar citacion: %v", err)
	}
	c, _, err = env.Engine.RegistrarCitacionExitosa(env.Ctx, engine.RegistrarExitosaOptions{
		CitacionID: c.ID,
		ActorID:    secretarioID,
	})
	if err != nil {
		t.Fatalf("citacion exitosa: %v", err)
	}
	return c
}

func contestarNegacion(t *testing.T, env testEnv, procesoID string) domain.Contestacion {
	t.Helper()
	c, _, err := env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: procesoID,
		Negacion: &domain.Negacion{
			RespuestaHechos:    "Se niegan los hechos de la demanda",
			FundamentosDerecho: "Art. 125 CPC",
		},
		ActorID: demandadoID,
	})
	if err != nil {
		t.Fatalf("presentar contestacion: %v", err)
	}
	return c
}

func TestCicloCompletoHastaSentencia(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	if p.Estado != domain.EstadoBorrador {
		t.Fatalf("expected BORRADOR, got %s", p.Estado)
	}
	presentarDemanda(t, env, p.ID)

	p = admitirDemanda(t, env, p.ID)
	if p.Nurej == nil || *p.Nurej != "jz-1-2025-00001" {
		t.Fatalf("unexpected nurej: %v", p.Nurej)
	}
	resoluciones, err := env.Engine.Repo.ListResoluciones(env.Ctx, p.ID)
	if err != nil || len(resoluciones) != 1 {
		t.Fatalf("expected providencia de admision: %v (%d)", err, len(resoluciones))
	}
	if !strings.Contains(resoluciones[0].PorTanto, "SE ADMITE") {
		t.Fatalf("unexpected por_tanto: %s", resoluciones[0].PorTanto)
	}

	citarConExito(t, env, p.ID)
	contestarNegacion(t, env, p.ID)

	a, _, err := env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID,
		Tipo:      "PRELIMINAR",
		Modalidad: "PRESENCIAL",
		Fecha:     "2025-02-01T10:00:00Z",
		ActorID:   juezID,
	})
	if err != nil {
		t.Fatalf("programar preliminar: %v", err)
	}
	_, _, err = env.Engine.CerrarAudiencia(env.Ctx, engine.CerrarAudienciaOptions{
		AudienciaID:       a.ID,
		Estado:            domain.AudienciaRealizada,
		Acta:              map[string]any{"resumen": "debate agotado"},
		DirectoASentencia: true,
		ActorID:           juezID,
	})
	if err != nil {
		t.Fatalf("cerrar preliminar: %v", err)
	}

	s, _, err := env.Engine.EmitirSentencia(env.Ctx, engine.EmitirSentenciaOptions{
		ProcesoID:    p.ID,
		Vistos:       "La demanda y la contestacion",
		Considerando: "Los hechos quedaron probados",
		PorTanto:     "Se declara PROBADA la demanda",
		Decision:     "PROBADA",
		ActorID:      juezID,
	})
	if err != nil {
		t.Fatalf("emitir sentencia: %v", err)
	}
	if s.DocumentoHash == "" {
		t.Fatalf("expected documento hash")
	}
	p, err = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if err != nil || p.Estado != domain.EstadoArchivado {
		t.Fatalf("expected ARCHIVADO after sentencia: %v %s", err, p.Estado)
	}

	// a proceso admits exactly one sentencia
	_, _, err = env.Engine.EmitirSentencia(env.Ctx, engine.EmitirSentenciaOptions{
		ProcesoID: p.ID, Vistos: "x", Considerando: "y", PorTanto: "z",
		Decision: "IMPROBADA", ActorID: juezID,
	})
	if err == nil {
		t.Fatalf("expected second sentencia to fail")
	}
}

func TestAudienciaComplementariaHastaSentencia(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	citarConExito(t, env, p.ID)
	contestarNegacion(t, env, p.ID)

	prel, _, err := env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "PRELIMINAR", Modalidad: "PRESENCIAL",
		Fecha: "2025-02-01T10:00:00Z", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("programar preliminar: %v", err)
	}
	if _, _, err := env.Engine.CerrarAudiencia(env.Ctx, engine.CerrarAudienciaOptions{
		AudienciaID: prel.ID, Estado: domain.AudienciaRealizada,
		Acta: map[string]any{"resumen": "pendiente de prueba"}, ActorID: juezID,
	}); err != nil {
		t.Fatalf("cerrar preliminar: %v", err)
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoAudienciaPreliminar {
		t.Fatalf("expected AUDIENCIA_PRELIMINAR, got %s", p.Estado)
	}

	comp, _, err := env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "COMPLEMENTARIA", Modalidad: "VIRTUAL",
		Fecha: "2025-02-15T10:00:00Z", Enlace: "https://meet.example/sala-1", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("programar complementaria: %v", err)
	}
	if _, _, err := env.Engine.CerrarAudiencia(env.Ctx, engine.CerrarAudienciaOptions{
		AudienciaID: comp.ID, Estado: domain.AudienciaRealizada,
		Acta: map[string]any{"resumen": "prueba diligenciada"}, ActorID: juezID,
	}); err != nil {
		t.Fatalf("cerrar complementaria: %v", err)
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoParaSentencia {
		t.Fatalf("expected PARA_SENTENCIA, got %s", p.Estado)
	}
}

func TestObservarYSubsanarDemanda(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)

	proc, efectos, err := env.Engine.ObservarDemanda(env.Ctx, engine.ObservarDemandaOptions{
		ProcesoID:     p.ID,
		Observaciones: "Falta acreditar la personeria",
		ActorID:       juezID,
	})
	if err != nil {
		t.Fatalf("observar: %v", err)
	}
	if proc.Estado != domain.EstadoObservado {
		t.Fatalf("expected OBSERVADO, got %s", proc.Estado)
	}
	if len(efectos.Plazos) != 1 {
		t.Fatalf("expected plazo de subsanacion")
	}
	// config default of 10 dias from the frozen clock
	if got := efectos.Plazos[0].FechaVencimiento; got != "2025-01-20" {
		t.Fatalf("expected vencimiento 2025-01-20, got %s", got)
	}

	// a new filing must go through subsanar
	_, _, err = env.Engine.PresentarDemanda(env.Ctx, engine.PresentarDemandaOptions{
		ProcesoID: p.ID, Hechos: "h", Petitorio: "p", ActorID: demandanteID,
	})
	if err == nil {
		t.Fatalf("expected presentar on OBSERVADO to fail")
	}

	d, _, err := env.Engine.SubsanarDemanda(env.Ctx, engine.SubsanarDemandaOptions{
		ProcesoID: p.ID,
		Hechos:    "El demandado incumplio el contrato, personeria acreditada",
		Petitorio: "Se declare resuelto el contrato",
		ActorID:   demandanteID,
	})
	if err != nil {
		t.Fatalf("subsanar: %v", err)
	}
	if d.Num != 2 {
		t.Fatalf("expected demanda num 2, got %d", d.Num)
	}
	plazos, err := env.Engine.Repo.ListPlazos(env.Ctx, repo.PlazoFilters{ProcesoID: p.ID, Tipo: domain.PlazoSubsanacion})
	if err != nil || len(plazos) != 1 {
		t.Fatalf("list plazos: %v (%d)", err, len(plazos))
	}
	if plazos[0].Estado != domain.PlazoCumplido {
		t.Fatalf("expected plazo CUMPLIDO, got %s", plazos[0].Estado)
	}
	proc, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if proc.Estado != domain.EstadoPresentado {
		t.Fatalf("expected PRESENTADO after subsanar, got %s", proc.Estado)
	}
}

func TestObservarDiasFueraDeRango(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	_, _, err := env.Engine.ObservarDemanda(env.Ctx, engine.ObservarDemandaOptions{
		ProcesoID: p.ID, Observaciones: "defectos", Dias: 60, ActorID: juezID,
	})
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCitacionFallidaTrasMaxIntentos(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	c, _, err := env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: p.ID, Tipo: "PERSONAL", Direccion: "Av. Arce 500", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("ordenar: %v", err)
	}
	var efectos engine.Efectos
	for i := 0; i < 3; i++ {
		c, efectos, err = env.Engine.RegistrarIntentoCitacion(env.Ctx, engine.RegistrarIntentoOptions{
			CitacionID: c.ID, Motivo: "domicilio cerrado", ActorID: secretarioID,
		})
		if err != nil {
			t.Fatalf("intento %d: %v", i+1, err)
		}
	}
	if c.Estado != domain.CitacionFallida {
		t.Fatalf("expected FALLIDA after 3 intentos, got %s", c.Estado)
	}
	if efectos.Recomendacion != "EDICTO" {
		t.Fatalf("expected recomendacion EDICTO, got %q", efectos.Recomendacion)
	}
	// a closed citacion rejects further intentos
	_, _, err = env.Engine.RegistrarIntentoCitacion(env.Ctx, engine.RegistrarIntentoOptions{
		CitacionID: c.ID, Motivo: "otro intento", ActorID: secretarioID,
	})
	if err == nil {
		t.Fatalf("expected intento on FALLIDA to fail")
	}

	// reorder por edicto, no direccion needed
	edicto, _, err := env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: p.ID, Tipo: "EDICTO", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("ordenar edicto: %v", err)
	}
	_, efectos, err = env.Engine.RegistrarCitacionExitosa(env.Ctx, engine.RegistrarExitosaOptions{
		CitacionID: edicto.ID, ActorID: secretarioID,
	})
	if err != nil {
		t.Fatalf("edicto exitoso: %v", err)
	}
	// edicto opens the extended plazo: 20 dias from 2025-01-10
	if len(efectos.Plazos) != 1 || efectos.Plazos[0].FechaVencimiento != "2025-01-30" {
		t.Fatalf("unexpected plazo edicto: %+v", efectos.Plazos)
	}
}

func TestPlazoContestacionGeneral(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	_, efectos, err := env.Engine.RegistrarCitacionExitosa(env.Ctx, engine.RegistrarExitosaOptions{
		CitacionID: ordenarPersonal(t, env, p.ID).ID,
		Fecha:      "2025-01-10",
		ActorID:    secretarioID,
	})
	if err != nil {
		t.Fatalf("exitosa: %v", err)
	}
	// 30 dias corridos from the fecha de citacion
	if len(efectos.Plazos) != 1 || efectos.Plazos[0].FechaVencimiento != "2025-02-09" {
		t.Fatalf("unexpected plazo: %+v", efectos.Plazos)
	}
}

func ordenarPersonal(t *testing.T, env testEnv, procesoID string) domain.Citacion {
	t.Helper()
	c, _, err := env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: procesoID, Tipo: "PERSONAL", Direccion: "Calle Junin 42", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("ordenar citacion: %v", err)
	}
	return c
}

func TestContestacionExigeUnaVariante(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	citarConExito(t, env, p.ID)

	_, _, err := env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: p.ID, ActorID: demandadoID,
	})
	if err == nil {
		t.Fatalf("expected empty contestacion to fail")
	}
	_, _, err = env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID:    p.ID,
		Negacion:     &domain.Negacion{RespuestaHechos: "r", FundamentosDerecho: "f"},
		Allanamiento: &domain.Allanamiento{Alcance: "TOTAL", Manifestacion: "m"},
		ActorID:      demandadoID,
	})
	if err == nil {
		t.Fatalf("expected two variantes to fail")
	}
	c := contestarNegacion(t, env, p.ID)
	if c.Variante != domain.VarianteNegacion {
		t.Fatalf("unexpected variante %s", c.Variante)
	}
	// the answering abogado gets registered on the proceso
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.AbogadoDemandadoID == nil || *p.AbogadoDemandadoID != demandadoID {
		t.Fatalf("expected abogado demandado registered")
	}
}

func TestExcepcionDispositivaArchivaProceso(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	citarConExito(t, env, p.ID)

	c, _, err := env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: p.ID,
		Excepcion: &domain.ExcepcionPrevia{Tipo: domain.ExcIncompetencia, Fundamento: "El juzgado carece de competencia territorial"},
		ActorID:   demandadoID,
	})
	if err != nil {
		t.Fatalf("contestar con excepcion: %v", err)
	}

	// the preliminar cannot be scheduled over a pending excepcion
	_, _, err = env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "PRELIMINAR", Modalidad: "PRESENCIAL",
		Fecha: "2025-02-01T10:00:00Z", ActorID: juezID,
	})
	if err == nil {
		t.Fatalf("expected preliminar blocked by excepcion pendiente")
	}

	_, efectos, err := env.Engine.ResolverExcepcion(env.Ctx, engine.ResolverExcepcionOptions{
		ContestacionID: c.ID,
		Fundada:        true,
		Fundamento:     "La incompetencia quedo demostrada",
		ActorID:        juezID,
	})
	if err != nil {
		t.Fatalf("resolver excepcion: %v", err)
	}
	if len(efectos.Resoluciones) != 1 || efectos.Resoluciones[0].Tipo != domain.ResolucionAutoInterlocutorio {
		t.Fatalf("expected auto interlocutorio")
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoArchivado {
		t.Fatalf("expected ARCHIVADO after excepcion dispositiva fundada, got %s", p.Estado)
	}
	// resolving twice fails
	_, _, err = env.Engine.ResolverExcepcion(env.Ctx, engine.ResolverExcepcionOptions{
		ContestacionID: c.ID, Fundada: false, Fundamento: "x", ActorID: juezID,
	})
	if err == nil {
		t.Fatalf("expected second resolution to fail")
	}
}

func TestExcepcionNoDispositivaMantieneEstado(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	citarConExito(t, env, p.ID)
	c, _, err := env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: p.ID,
		Excepcion: &domain.ExcepcionPrevia{Tipo: domain.ExcDemandaDefectuosa, Fundamento: "El petitorio es oscuro"},
		ActorID:   demandadoID,
	})
	if err != nil {
		t.Fatalf("contestar: %v", err)
	}
	_, _, err = env.Engine.ResolverExcepcion(env.Ctx, engine.ResolverExcepcionOptions{
		ContestacionID: c.ID, Fundada: true, Fundamento: "Debera aclararse en audiencia", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoContestado {
		t.Fatalf("expected CONTESTADO after excepcion no dispositiva, got %s", p.Estado)
	}
	// the causa can continue to the preliminar
	_, _, err = env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "PRELIMINAR", Modalidad: "PRESENCIAL",
		Fecha: "2025-02-01T10:00:00Z", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("programar tras resolver: %v", err)
	}
}

func TestResolucionInmutableTrasNotificar(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)

	res, err := env.Engine.EmitirResolucion(env.Ctx, engine.EmitirResolucionOptions{
		ProcesoID: p.ID, Tipo: domain.ResolucionProvidencia,
		Vistos: "v", Considerando: "c", PorTanto: "traslado a la parte contraria",
		ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("emitir: %v", err)
	}
	priorHash := res.DocumentoHash
	res, err = env.Engine.ModificarResolucion(env.Ctx, engine.ModificarResolucionOptions{
		ResolucionID: res.ID, Vistos: "v2", Considerando: "c2", PorTanto: "pt2", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("modificar: %v", err)
	}
	if res.DocumentoHash == priorHash {
		t.Fatalf("expected documento hash to change")
	}
	if _, _, err := env.Engine.NotificarResolucion(env.Ctx, engine.NotificarResolucionOptions{
		ResolucionID: res.ID, ActorID: secretarioID,
	}); err != nil {
		t.Fatalf("notificar: %v", err)
	}
	_, err = env.Engine.ModificarResolucion(env.Ctx, engine.ModificarResolucionOptions{
		ResolucionID: res.ID, Vistos: "v3", Considerando: "c3", PorTanto: "pt3", ActorID: juezID,
	})
	if err == nil {
		t.Fatalf("expected modificar after notificar to fail")
	}
	if err := env.Engine.EliminarResolucion(env.Ctx, engine.EliminarResolucionOptions{
		ResolucionID: res.ID, ActorID: juezID,
	}); err == nil {
		t.Fatalf("expected eliminar after notificar to fail")
	}
}

func TestVentanaEliminacionResolucion(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	res, err := env.Engine.EmitirResolucion(env.Ctx, engine.EmitirResolucionOptions{
		ProcesoID: p.ID, Tipo: domain.ResolucionProvidencia,
		Vistos: "v", Considerando: "c", PorTanto: "pt", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("emitir: %v", err)
	}
	// within the 1 hour window deletion works
	if err := env.Engine.EliminarResolucion(env.Ctx, engine.EliminarResolucionOptions{
		ResolucionID: res.ID, ActorID: juezID,
	}); err != nil {
		t.Fatalf("eliminar dentro de ventana: %v", err)
	}
	res, err = env.Engine.EmitirResolucion(env.Ctx, engine.EmitirResolucionOptions{
		ProcesoID: p.ID, Tipo: domain.ResolucionProvidencia,
		Vistos: "v", Considerando: "c", PorTanto: "pt", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("emitir segunda: %v", err)
	}
	env.Engine.Now = func() time.Time { return time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC) }
	if err := env.Engine.EliminarResolucion(env.Ctx, engine.EliminarResolucionOptions{
		ResolucionID: res.ID, ActorID: juezID,
	}); err == nil {
		t.Fatalf("expected eliminar after window to fail")
	}
}

func TestBarrerPlazosVencidos(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	if _, _, err := env.Engine.ObservarDemanda(env.Ctx, engine.ObservarDemandaOptions{
		ProcesoID: p.ID, Observaciones: "defectos", ActorID: juezID,
	}); err != nil {
		t.Fatalf("observar: %v", err)
	}
	// nothing expires while the plazo runs
	vencidos, _, err := env.Engine.MarcarPlazosVencidos(env.Ctx, engine.BarrerPlazosOptions{ActorID: secretarioID})
	if err != nil || len(vencidos) != 0 {
		t.Fatalf("expected no vencidos: %v (%d)", err, len(vencidos))
	}
	env.Engine.Now = func() time.Time { return time.Date(2025, 1, 21, 8, 0, 0, 0, time.UTC) }
	vencidos, efectos, err := env.Engine.MarcarPlazosVencidos(env.Ctx, engine.BarrerPlazosOptions{ActorID: secretarioID})
	if err != nil {
		t.Fatalf("barrer: %v", err)
	}
	if len(vencidos) != 1 || vencidos[0].Estado != domain.PlazoVencido {
		t.Fatalf("expected one plazo vencido: %+v", vencidos)
	}
	if len(efectos.Notificaciones) != 1 || efectos.Notificaciones[0].DestinatarioID != demandanteID {
		t.Fatalf("expected notificacion to demandante: %+v", efectos.Notificaciones)
	}
	// idempotent
	vencidos, _, err = env.Engine.MarcarPlazosVencidos(env.Ctx, engine.BarrerPlazosOptions{ActorID: secretarioID})
	if err != nil || len(vencidos) != 0 {
		t.Fatalf("expected sweep idempotent: %v (%d)", err, len(vencidos))
	}
}

func TestTransicionInvalida(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	// BORRADOR cannot be admitted
	_, _, err := env.Engine.AdmitirDemanda(env.Ctx, engine.AdmitirDemandaOptions{ProcesoID: p.ID, ActorID: juezID})
	var eerr engine.EstadoError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected estado error, got %v", err)
	}
}

func TestAutorizacionPorRolYVinculo(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)

	// an abogado cannot admit
	_, _, err := env.Engine.AdmitirDemanda(env.Ctx, engine.AdmitirDemandaOptions{ProcesoID: p.ID, ActorID: demandanteID})
	var ferr auth.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// the demandante cannot answer its own demanda
	admitirDemanda(t, env, p.ID)
	citarConExito(t, env, p.ID)
	_, _, err = env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: p.ID,
		Negacion:  &domain.Negacion{RespuestaHechos: "r", FundamentosDerecho: "f"},
		ActorID:   demandanteID,
	})
	if !errors.As(err, &ferr) {
		t.Fatalf("expected forbidden for demandante answering, got %v", err)
	}
	// unknown actors are rejected outright
	_, _, err = env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: p.ID,
		Negacion:  &domain.Negacion{RespuestaHechos: "r", FundamentosDerecho: "f"},
		ActorID:   "nadie",
	})
	if !errors.Is(err, auth.ErrActorDesconocido) {
		t.Fatalf("expected actor desconocido, got %v", err)
	}
}

func TestNurejSecuenciaPorAnio(t *testing.T) {
	env := newTestEnv(t)
	first := crearProceso(t, env)
	presentarDemanda(t, env, first.ID)
	first = admitirDemanda(t, env, first.ID)

	second := crearProceso(t, env)
	presentarDemanda(t, env, second.ID)
	second = admitirDemanda(t, env, second.ID)

	if *first.Nurej != "jz-1-2025-00001" || *second.Nurej != "jz-1-2025-00002" {
		t.Fatalf("unexpected nurej sequence: %s %s", *first.Nurej, *second.Nurej)
	}
}

func TestRechazoEsTerminal(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	p, efectos, err := env.Engine.RechazarDemanda(env.Ctx, engine.RechazarDemandaOptions{
		ProcesoID: p.ID, Motivo: "pretension manifiestamente improponible", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("rechazar: %v", err)
	}
	if p.Estado != domain.EstadoRechazado {
		t.Fatalf("expected RECHAZADO, got %s", p.Estado)
	}
	if len(efectos.Resoluciones) != 1 || efectos.Resoluciones[0].Tipo != domain.ResolucionAutoDefinitivo {
		t.Fatalf("expected auto definitivo")
	}
	// no further resoluciones on a closed proceso
	_, err = env.Engine.EmitirResolucion(env.Ctx, engine.EmitirResolucionOptions{
		ProcesoID: p.ID, Tipo: domain.ResolucionProvidencia,
		Vistos: "v", Considerando: "c", PorTanto: "pt", ActorID: juezID,
	})
	if err == nil {
		t.Fatalf("expected emision on RECHAZADO to fail")
	}
}

func TestOrdenarCitacionCitaElProceso(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)

	c, efectos, err := env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: p.ID, Tipo: "CEDULA", Direccion: "Av. Busch 900", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("ordenar: %v", err)
	}
	if c.Estado != domain.CitacionPendiente {
		t.Fatalf("expected citacion PENDIENTE, got %s", c.Estado)
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoCitado {
		t.Fatalf("expected CITADO after ordenar, got %s", p.Estado)
	}
	if len(efectos.Notificaciones) != 1 || efectos.Notificaciones[0].DestinatarioID != demandanteID {
		t.Fatalf("expected notificacion to abogado demandante: %+v", efectos.Notificaciones)
	}

	// only one citacion may be open at a time
	_, _, err = env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: p.ID, Tipo: "PERSONAL", Direccion: "Otra direccion", ActorID: juezID,
	})
	var eerr engine.EstadoError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected second ordenar to fail, got %v", err)
	}
	if _, _, err := env.Engine.RegistrarCitacionExitosa(env.Ctx, engine.RegistrarExitosaOptions{
		CitacionID: c.ID, ActorID: secretarioID,
	}); err != nil {
		t.Fatalf("exitosa: %v", err)
	}
	_, _, err = env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: p.ID, Tipo: "PERSONAL", Direccion: "Otra direccion", ActorID: juezID,
	})
	if !errors.As(err, &eerr) {
		t.Fatalf("expected ordenar after exitosa to fail, got %v", err)
	}
}

func TestCitacionTacita(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)

	// la citacion tacita needs no direccion de diligencia
	c, _, err := env.Engine.OrdenarCitacion(env.Ctx, engine.OrdenarCitacionOptions{
		ProcesoID: p.ID, Tipo: "TACITA", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("ordenar tacita: %v", err)
	}
	_, efectos, err := env.Engine.RegistrarCitacionExitosa(env.Ctx, engine.RegistrarExitosaOptions{
		CitacionID: c.ID, Fecha: "2025-01-10", ActorID: secretarioID,
	})
	if err != nil {
		t.Fatalf("exitosa: %v", err)
	}
	// tacita carries the general 30-day plazo
	if len(efectos.Plazos) != 1 || efectos.Plazos[0].FechaVencimiento != "2025-02-09" {
		t.Fatalf("unexpected plazo tacita: %+v", efectos.Plazos)
	}
}

func TestCitacionExitosaNotificaAlDemandante(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	c := ordenarPersonal(t, env, p.ID)

	// before the contestacion no abogado demandado is on record, the
	// demandante still learns the plazo started
	_, efectos, err := env.Engine.RegistrarCitacionExitosa(env.Ctx, engine.RegistrarExitosaOptions{
		CitacionID: c.ID, ActorID: secretarioID,
	})
	if err != nil {
		t.Fatalf("exitosa: %v", err)
	}
	if len(efectos.Notificaciones) != 1 {
		t.Fatalf("expected one notificacion, got %+v", efectos.Notificaciones)
	}
	n := efectos.Notificaciones[0]
	if n.DestinatarioID != demandanteID || n.Tipo != "CITACION_PRACTICADA" {
		t.Fatalf("unexpected notificacion: %+v", n)
	}
}

func TestContestacionRequiereCitacionExitosa(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	ordenarPersonal(t, env, p.ID)

	_, _, err := env.Engine.PresentarContestacion(env.Ctx, engine.PresentarContestacionOptions{
		ProcesoID: p.ID,
		Negacion:  &domain.Negacion{RespuestaHechos: "r", FundamentosDerecho: "f"},
		ActorID:   demandadoID,
	})
	var eerr engine.EstadoError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected contestacion before service to fail, got %v", err)
	}
}

func TestPresentarDemandaSinJuezDisponible(t *testing.T) {
	env := newTestEnvSinJuez(t)
	p := crearProceso(t, env)
	_, efectos, err := env.Engine.PresentarDemanda(env.Ctx, engine.PresentarDemandaOptions{
		ProcesoID: p.ID,
		Hechos:    "hechos",
		Petitorio: "petitorio",
		ActorID:   demandanteID,
	})
	if err != nil {
		t.Fatalf("presentar sin juez: %v", err)
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoPresentado {
		t.Fatalf("expected PRESENTADO, got %s", p.Estado)
	}
	if p.JuezID != nil {
		t.Fatalf("expected no juez assigned, got %v", *p.JuezID)
	}
	if len(efectos.Notificaciones) != 0 {
		t.Fatalf("expected no notificaciones without juez: %+v", efectos.Notificaciones)
	}
}

func TestProgramarAudienciaAsistentesPorDefecto(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	citarConExito(t, env, p.ID)
	contestarNegacion(t, env, p.ID)

	a, efectos, err := env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "PRELIMINAR", Modalidad: "VIRTUAL",
		Fecha: "2025-02-01T10:00:00Z", Enlace: "https://meet.example.test/sala-1",
		ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("programar: %v", err)
	}
	obligatorios := map[string]bool{}
	nombres := map[string]bool{}
	for _, as := range a.Asistentes {
		nombres[as.ActorID] = true
		if as.Obligatorio {
			obligatorios[as.ActorID] = true
		}
	}
	if !obligatorios[demandanteID] || !obligatorios[demandadoID] {
		t.Fatalf("expected both abogados obligatorios: %+v", a.Asistentes)
	}
	if !nombres["Maria Quispe"] || !nombres["Jorge Mamani"] {
		t.Fatalf("expected the parties in the default list: %+v", a.Asistentes)
	}
	destinatarios := map[string]bool{}
	for _, n := range efectos.Notificaciones {
		destinatarios[n.DestinatarioID] = true
		if !strings.Contains(n.Mensaje, "https://meet.example.test/sala-1") {
			t.Fatalf("expected enlace in mensaje: %s", n.Mensaje)
		}
	}
	if !destinatarios[demandanteID] || !destinatarios[demandadoID] {
		t.Fatalf("expected both abogados notified: %+v", efectos.Notificaciones)
	}
}

func TestProgramarPreliminarDesdeCitado(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	admitirDemanda(t, env, p.ID)
	ordenarPersonal(t, env, p.ID)

	_, _, err := env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "PRELIMINAR", Modalidad: "PRESENCIAL",
		Fecha: "2025-02-01T10:00:00Z", ActorID: juezID,
	})
	if err != nil {
		t.Fatalf("programar desde CITADO: %v", err)
	}
	p, _ = env.Engine.Repo.GetProceso(env.Ctx, p.ID)
	if p.Estado != domain.EstadoAudienciaPreliminar {
		t.Fatalf("expected AUDIENCIA_PRELIMINAR, got %s", p.Estado)
	}
}

func TestProgramarAudienciaEnProcesoCerrado(t *testing.T) {
	env := newTestEnv(t)
	p := crearProceso(t, env)
	presentarDemanda(t, env, p.ID)
	if _, _, err := env.Engine.RechazarDemanda(env.Ctx, engine.RechazarDemandaOptions{
		ProcesoID: p.ID, Motivo: "improponible", ActorID: juezID,
	}); err != nil {
		t.Fatalf("rechazar: %v", err)
	}
	// not even a conciliacion on a closed proceso
	_, _, err := env.Engine.ProgramarAudiencia(env.Ctx, engine.ProgramarAudienciaOptions{
		ProcesoID: p.ID, Tipo: "CONCILIACION", Modalidad: "PRESENCIAL",
		Fecha: "2025-02-01T10:00:00Z", ActorID: juezID,
	})
	var eerr engine.EstadoError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected conciliacion on RECHAZADO to fail, got %v", err)
	}
}

