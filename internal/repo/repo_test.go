package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"expedientes/internal/db"
	"expedientes/internal/domain"
	"expedientes/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
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
	t.Cleanup(func() { conn.Close() })
	return Repo{DB: conn}
}

func withTx(t *testing.T, r Repo, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := r.DB.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx fn: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func seedJuzgado(t *testing.T, r Repo, id string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	withTx(t, r, func(tx *sql.Tx) error {
		return r.InsertJuzgado(context.Background(), tx, domain.Juzgado{
			ID: id, Codigo: id, Nombre: "Juzgado de Prueba", Materia: "CIVIL", CreatedAt: now,
		})
	})
}

func seedProceso(t *testing.T, r Repo, juzgadoID, id string) domain.Proceso {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	if err := r.InsertAbogado(context.Background(), domain.Abogado{ID: "ab-1", Nombre: "Abogado Demandante", Matricula: "M-001", CreatedAt: now}); err != nil {
		t.Fatalf("seed abogado: %v", err)
	}
	p := domain.Proceso{
		ID:                  id,
		JuzgadoID:           juzgadoID,
		Materia:             "CIVIL",
		TipoProceso:         "ORDINARIO",
		Estado:              domain.EstadoBorrador,
		DemandanteNombre:    "Demandante",
		DemandadoNombre:     "Demandado",
		AbogadoDemandanteID: "ab-1",
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	withTx(t, r, func(tx *sql.Tx) error {
		return r.InsertProcesoTx(context.Background(), tx, p)
	})
	return p
}

func TestGetProcesoNotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetProceso(context.Background(), "no-existe")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProcesoVersionConflict(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedJuzgado(t, r, "jz-1")
	p := seedProceso(t, r, "jz-1", "p-1")

	p.Estado = domain.EstadoPresentado
	withTx(t, r, func(tx *sql.Tx) error {
		return r.UpdateProcesoTx(ctx, tx, p, 1)
	})
	got, err := r.GetProceso(ctx, "p-1")
	if err != nil {
		t.Fatalf("get proceso: %v", err)
	}
	if got.Estado != domain.EstadoPresentado || got.Version != 2 {
		t.Fatalf("expected PRESENTADO v2, got %s v%d", got.Estado, got.Version)
	}

	// a stale writer loses
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	if err := r.UpdateProcesoTx(ctx, tx, p, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestNextNurejSequence(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedJuzgado(t, r, "jz-1")

	var first, second, otherYear string
	withTx(t, r, func(tx *sql.Tx) error {
		var err error
		first, err = r.NextNurejTx(ctx, tx, "jz-1", "jz-1", 2025)
		return err
	})
	withTx(t, r, func(tx *sql.Tx) error {
		var err error
		second, err = r.NextNurejTx(ctx, tx, "jz-1", "jz-1", 2025)
		return err
	})
	withTx(t, r, func(tx *sql.Tx) error {
		var err error
		otherYear, err = r.NextNurejTx(ctx, tx, "jz-1", "jz-1", 2026)
		return err
	})

	if first != "jz-1-2025-00001" {
		t.Fatalf("unexpected first nurej %q", first)
	}
	if second != "jz-1-2025-00002" {
		t.Fatalf("unexpected second nurej %q", second)
	}
	if otherYear != "jz-1-2026-00001" {
		t.Fatalf("year sequences must be independent, got %q", otherYear)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	raw := "clave-de-integracion"
	hash := HashAPIKey(raw)
	if hash == raw || len(hash) != 64 {
		t.Fatalf("unexpected hash %q", hash)
	}
	if HashAPIKey(raw) != hash {
		t.Fatalf("hash must be deterministic")
	}

	err := r.InsertAPIKey(ctx, domain.APIKey{
		ID: "key-1", ActorID: "sec-1", Rol: "SECRETARIO", Name: "ci",
		KeyHash: hash, CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("insert api key: %v", err)
	}
	k, err := r.GetAPIKeyByHash(ctx, hash)
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if k.ActorID != "sec-1" || k.Rol != "SECRETARIO" {
		t.Fatalf("unexpected key %+v", k)
	}
	if _, err := r.GetAPIKeyByHash(ctx, HashAPIKey("otra")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
