package events

import (
	"context"
	"time"

	"randevu/internal/db"
	"randevu/internal/metrics"
)

const handlerTimeout = 5 * time.Second

// AuditWriter persists audit rows.
type AuditWriter interface {
	InsertAudit(ctx context.Context, e db.AuditEntry) error
}

// VersionMirror publishes the data version to other processes.
type VersionMirror interface {
	SetVersion(ctx context.Context, v int64) error
}

// AuditHandler records every reservation event in the audit log.
func AuditHandler(w AuditWriter) EventHandler {
	return func(event Event) error {
		p, err := DecodeReservation(event)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		return w.InsertAudit(ctx, db.AuditEntry{
			Event:         event.Type,
			ReservationID: p.ReservationID,
			Date:          p.Date,
			Hour:          p.Hour,
			StaffID:       p.StaffID,
			Type:          p.Type,
			Profile:       p.Profile,
			DataVersion:   p.DataVersion,
			CreatedAt:     event.CreatedAt,
		})
	}
}

// VersionHandler updates the data version gauge and, when m is set, the shared mirror.
func VersionHandler(m VersionMirror) EventHandler {
	return func(event Event) error {
		p, err := DecodeReservation(event)
		if err != nil {
			return err
		}

		metrics.SetDataVersion(p.DataVersion)
		if m == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		return m.SetVersion(ctx, p.DataVersion)
	}
}

// SubscribeReservations registers handlers for every reservation event type.
func (b *EventBus) SubscribeReservations(handlers ...EventHandler) {
	for _, t := range ReservationTypes {
		for _, h := range handlers {
			b.Subscribe(t, h)
		}
	}
}
