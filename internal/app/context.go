package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expedientes/internal/config"
	"expedientes/internal/domain"
	"expedientes/internal/repo"
)

// ResolveJuzgadoAndConfig picks the active juzgado and ensures both the
// juzgado and its config exist in the DB, seeding defaults if missing. It
// prefers the override, then expedientes.yml, then single-juzgado DB.
// If the juzgado does not exist, it is created on the fly.
func ResolveJuzgadoAndConfig(ctx context.Context, workspace, juzgadoOverride string, r repo.Repo) (string, *config.Config, error) {
	fileCfg, err := config.LoadOptional(workspace)
	if err != nil {
		return "", nil, err
	}
	juzgadoID := juzgadoOverride
	if juzgadoID == "" && fileCfg != nil {
		juzgadoID = fileCfg.Juzgado.ID
	}
	if juzgadoID == "" {
		if j, err := r.SingleJuzgado(ctx); err == nil {
			juzgadoID = j.ID
		} else {
			return "", nil, fmt.Errorf("juzgado not specified; use --juzgado")
		}
	}
	seedCfg := fileCfg
	if seedCfg == nil {
		seedCfg = config.Default(juzgadoID)
	}

	if _, err := r.GetJuzgado(ctx, juzgadoID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		if err := createJuzgado(ctx, r, juzgadoID, seedCfg); err != nil {
			return "", nil, err
		}
	}
	cfg, err := r.GetJuzgadoConfig(ctx, juzgadoID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if err := r.UpsertJuzgadoConfig(ctx, juzgadoID, seedCfg); err != nil {
				return "", nil, fmt.Errorf("seed juzgado config: %w", err)
			}
			cfg = seedCfg
		} else {
			return "", nil, err
		}
	}
	cfg.Juzgado.ID = juzgadoID
	return juzgadoID, cfg, nil
}

// createJuzgado inserts a minimal juzgado footprint using the seed config.
func createJuzgado(ctx context.Context, r repo.Repo, juzgadoID string, seedCfg *config.Config) error {
	if seedCfg == nil {
		seedCfg = config.Default(juzgadoID)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	j := domain.Juzgado{
		ID:        juzgadoID,
		Codigo:    seedCfg.Juzgado.Codigo,
		Nombre:    seedCfg.Juzgado.Nombre,
		Materia:   seedCfg.Juzgado.Materia,
		CreatedAt: now,
	}
	if j.Codigo == "" {
		j.Codigo = juzgadoID
	}
	if j.Materia == "" {
		j.Materia = "CIVIL"
	}
	if err := r.InsertJuzgado(ctx, tx, j); err != nil {
		return fmt.Errorf("insert juzgado: %w", err)
	}
	if err := r.UpsertJuzgadoConfigTx(ctx, tx, juzgadoID, seedCfg); err != nil {
		return fmt.Errorf("insert juzgado config: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
