package notify

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"expedientes/internal/domain"
)

// Dispatcher persists notificaciones outside the operation's transaction.
// A failed insert is logged, never propagated: notifications are best effort
// and must not roll back the legal act that produced them.
type Dispatcher struct {
	DB     *sql.DB
	Logger *log.Logger
	Now    func() time.Time
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch stores the given notifications, assigning IDs and timestamps.
// It returns the ones that were actually persisted.
func (d *Dispatcher) Dispatch(ctx context.Context, items []domain.Notificacion) []domain.Notificacion {
	if d == nil || d.DB == nil || len(items) == 0 {
		return nil
	}
	ts := d.now().UTC().Format(time.RFC3339)
	var sent []domain.Notificacion
	for _, n := range items {
		if n.DestinatarioID == "" {
			continue
		}
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		n.FechaCreacion = ts
		_, err := d.DB.ExecContext(ctx, `INSERT INTO notificaciones(id,proceso_id,destinatario_id,tipo,mensaje,referencia_tipo,referencia_id,leida,fecha_creacion) VALUES (?,?,?,?,?,?,?,0,?)`,
			n.ID, n.ProcesoID, n.DestinatarioID, n.Tipo, n.Mensaje, nullable(n.ReferenciaTipo), nullable(n.ReferenciaID), n.FechaCreacion)
		if err != nil {
			d.logger().Printf("notify: store %s for %s failed: %v", n.Tipo, n.DestinatarioID, err)
			continue
		}
		sent = append(sent, n)
	}
	return sent
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
