package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"expedientes/internal/config"
	"expedientes/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// ErrConflict signals a lost optimistic-concurrency race: the row changed
// under the caller's version.
var ErrConflict = errors.New("concurrent update conflict")

func (r Repo) InsertJuzgado(ctx context.Context, tx *sql.Tx, j domain.Juzgado) error {
	exec := execer(r.DB, tx)
	_, err := exec(ctx, `INSERT INTO juzgados(id,codigo,nombre,materia,created_at) VALUES (?,?,?,?,?)`,
		j.ID, j.Codigo, j.Nombre, j.Materia, j.CreatedAt)
	return err
}

func (r Repo) GetJuzgado(ctx context.Context, id string) (domain.Juzgado, error) {
	var j domain.Juzgado
	err := r.DB.QueryRowContext(ctx, `SELECT id,codigo,nombre,materia,created_at FROM juzgados WHERE id=?`, id).
		Scan(&j.ID, &j.Codigo, &j.Nombre, &j.Materia, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	return j, err
}

func (r Repo) SingleJuzgado(ctx context.Context) (domain.Juzgado, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,codigo,nombre,materia,created_at FROM juzgados`)
	if err != nil {
		return domain.Juzgado{}, err
	}
	defer rows.Close()
	var items []domain.Juzgado
	for rows.Next() {
		var j domain.Juzgado
		if err := rows.Scan(&j.ID, &j.Codigo, &j.Nombre, &j.Materia, &j.CreatedAt); err != nil {
			return domain.Juzgado{}, err
		}
		items = append(items, j)
	}
	if len(items) == 0 {
		return domain.Juzgado{}, ErrNotFound
	}
	if len(items) > 1 {
		return domain.Juzgado{}, fmt.Errorf("multiple juzgados exist; specify --juzgado")
	}
	return items[0], nil
}

func (r Repo) ListJuzgados(ctx context.Context) ([]domain.Juzgado, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,codigo,nombre,materia,created_at FROM juzgados ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Juzgado
	for rows.Next() {
		var j domain.Juzgado
		if err := rows.Scan(&j.ID, &j.Codigo, &j.Nombre, &j.Materia, &j.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, nil
}

func (r Repo) UpsertJuzgadoConfig(ctx context.Context, juzgadoID string, cfg *config.Config) error {
	return upsertJuzgadoConfig(ctx, r.DB, nil, juzgadoID, cfg)
}

func (r Repo) UpsertJuzgadoConfigTx(ctx context.Context, tx *sql.Tx, juzgadoID string, cfg *config.Config) error {
	return upsertJuzgadoConfig(ctx, nil, tx, juzgadoID, cfg)
}

func upsertJuzgadoConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, juzgadoID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Juzgado.ID = juzgadoID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO juzgado_configs(juzgado_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(juzgado_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, juzgadoID, string(payload), now, now)
	return err
}

func (r Repo) GetJuzgadoConfig(ctx context.Context, juzgadoID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM juzgado_configs WHERE juzgado_id=?`, juzgadoID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Juzgado.ID == "" {
		cfg.Juzgado.ID = juzgadoID
	}
	return &cfg, cfg.Validate()
}

func (r Repo) InsertJuez(ctx context.Context, j domain.Juez) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO jueces(id,juzgado_id,nombre,activo,created_at) VALUES (?,?,?,?,?)`,
		j.ID, j.JuzgadoID, j.Nombre, boolInt(j.Activo), j.CreatedAt)
	return err
}

func (r Repo) GetJuez(ctx context.Context, id string) (domain.Juez, error) {
	var j domain.Juez
	var activo int
	err := r.DB.QueryRowContext(ctx, `SELECT id,juzgado_id,nombre,activo,created_at FROM jueces WHERE id=?`, id).
		Scan(&j.ID, &j.JuzgadoID, &j.Nombre, &activo, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	j.Activo = activo != 0
	return j, err
}

// PrimerJuezDisponible returns the first active juez of the juzgado; used
// for automatic assignment on filing.
func (r Repo) PrimerJuezDisponible(ctx context.Context, juzgadoID string) (domain.Juez, error) {
	var j domain.Juez
	var activo int
	err := r.DB.QueryRowContext(ctx, `SELECT id,juzgado_id,nombre,activo,created_at FROM jueces WHERE juzgado_id=? AND activo=1 ORDER BY created_at ASC, id ASC LIMIT 1`, juzgadoID).
		Scan(&j.ID, &j.JuzgadoID, &j.Nombre, &activo, &j.CreatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	j.Activo = activo != 0
	return j, err
}

func (r Repo) ListJueces(ctx context.Context, juzgadoID string) ([]domain.Juez, error) {
	query := `SELECT id,juzgado_id,nombre,activo,created_at FROM jueces`
	var args []any
	if juzgadoID != "" {
		query += ` WHERE juzgado_id=?`
		args = append(args, juzgadoID)
	}
	query += ` ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Juez
	for rows.Next() {
		var j domain.Juez
		var activo int
		if err := rows.Scan(&j.ID, &j.JuzgadoID, &j.Nombre, &activo, &j.CreatedAt); err != nil {
			return nil, err
		}
		j.Activo = activo != 0
		res = append(res, j)
	}
	return res, nil
}

func (r Repo) InsertSecretario(ctx context.Context, s domain.Secretario) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO secretarios(id,juzgado_id,nombre,created_at) VALUES (?,?,?,?)`,
		s.ID, s.JuzgadoID, s.Nombre, s.CreatedAt)
	return err
}

func (r Repo) InsertAbogado(ctx context.Context, a domain.Abogado) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO abogados(id,nombre,matricula,created_at) VALUES (?,?,?,?)`,
		a.ID, a.Nombre, a.Matricula, a.CreatedAt)
	return err
}

func (r Repo) GetAbogado(ctx context.Context, id string) (domain.Abogado, error) {
	var a domain.Abogado
	err := r.DB.QueryRowContext(ctx, `SELECT id,nombre,matricula,created_at FROM abogados WHERE id=?`, id).
		Scan(&a.ID, &a.Nombre, &a.Matricula, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) ListAbogados(ctx context.Context) ([]domain.Abogado, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,nombre,matricula,created_at FROM abogados ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Abogado
	for rows.Next() {
		var a domain.Abogado
		if err := rows.Scan(&a.ID, &a.Nombre, &a.Matricula, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) LatestEventos(ctx context.Context, limit int, procesoID, tipo, entidad, entidadID string) ([]domain.Evento, error) {
	return r.LatestEventosFrom(ctx, limit, 0, procesoID, tipo, entidad, entidadID)
}

func (r Repo) LatestEventosFrom(ctx context.Context, limit int, cursor int64, procesoID, tipo, entidad, entidadID string) ([]domain.Evento, error) {
	clauses := []string{"1=1"}
	var args []any
	if procesoID != "" {
		clauses = append(clauses, "proceso_id=?")
		args = append(args, procesoID)
	}
	if tipo != "" {
		clauses = append(clauses, "tipo=?")
		args = append(args, tipo)
	}
	if entidad != "" {
		clauses = append(clauses, "entidad=?")
		args = append(args, entidad)
	}
	if entidadID != "" {
		clauses = append(clauses, "entidad_id=?")
		args = append(args, entidadID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,tipo,proceso_id,entidad,entidad_id,actor_id,payload_json FROM eventos %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Evento
	for rows.Next() {
		var e domain.Evento
		var procID, entID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Tipo, &procID, &e.Entidad, &entID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		e.ProcesoID = procID.String
		e.EntidadID = entID.String
		e.Payload = payload.String
		res = append(res, e)
	}
	return res, nil
}

// EventosAfter returns eventos with IDs greater than the cursor in ascending order.
func (r Repo) EventosAfter(ctx context.Context, limit int, cursor int64, procesoID string) ([]domain.Evento, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if procesoID != "" {
		clauses = append(clauses, "proceso_id=?")
		args = append(args, procesoID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,tipo,proceso_id,entidad,entidad_id,actor_id,payload_json FROM eventos %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Evento
	for rows.Next() {
		var e domain.Evento
		var procID, entID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Tipo, &procID, &e.Entidad, &entID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		e.ProcesoID = procID.String
		e.EntidadID = entID.String
		e.Payload = payload.String
		res = append(res, e)
	}
	return res, nil
}

// LatestEventoID returns the most recent evento ID.
func (r Repo) LatestEventoID(ctx context.Context, procesoID string) (int64, error) {
	query := `SELECT COALESCE(MAX(id),0) FROM eventos`
	var args []any
	if procesoID != "" {
		query += ` WHERE proceso_id=?`
		args = append(args, procesoID)
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// --- helpers ---

func execer(db *sql.DB, tx *sql.Tx) func(context.Context, string, ...any) (sql.Result, error) {
	if tx != nil {
		return tx.ExecContext
	}
	return db.ExecContext
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
