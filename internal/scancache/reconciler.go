package scancache

import (
	"context"
	"log"
	"time"

	"github.com/parishworks/ticketing/internal/clock"
	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/ticket"
)

// Submitter carries a scan to the server and returns its verdict. Over
// the wire this is the sync-scan endpoint; in one process it is the
// admission service directly.
type Submitter interface {
	SyncScan(ctx context.Context, sub ticket.ScanSubmission) (ticket.SyncVerdict, error)
}

// Reconciler drives one device's scan flow: online-first admission
// with an offline fallback, and the periodic sync pass that replays
// the backlog. The device never treats its own signature check as
// final; the raw payload travels to the server every time.
type Reconciler struct {
	cache    *Cache
	submit   Submitter
	deviceID string
	clock    clock.Clock
	logger   *log.Logger
}

func NewReconciler(cache *Cache, submit Submitter, deviceID string, clk clock.Clock, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		cache:    cache,
		submit:   submit,
		deviceID: deviceID,
		clock:    clk,
		logger:   logger,
	}
}

// Scan handles a gate scan. With connectivity the server verdict comes
// back immediately and the stored record is just a receipt; on a
// transport error the scan is parked unsynced with its raw payload for
// the next sync pass.
func (r *Reconciler) Scan(ctx context.Context, payload string) (domain.ScanRecord, error) {
	claims, err := ticket.ParseClaims(payload)
	if err != nil {
		return domain.ScanRecord{}, err
	}

	rec := domain.ScanRecord{
		TicketID:   claims.ID,
		DeviceID:   r.deviceID,
		ScannedAt:  r.clock.Now(),
		RawPayload: payload,
	}

	verdict, err := r.submit.SyncScan(ctx, ticket.ScanSubmission{
		TicketID:   rec.TicketID,
		DeviceID:   rec.DeviceID,
		ScannedAt:  rec.ScannedAt,
		RawPayload: rec.RawPayload,
	})
	if err != nil {
		r.logger.Printf("WARN: scan submit failed, queuing offline ticket=%s: %v", rec.TicketID, err)
		if cacheErr := r.cache.Record(rec); cacheErr != nil {
			return domain.ScanRecord{}, cacheErr
		}
		return rec, nil
	}

	r.applyVerdict(&rec, verdict)
	if err := r.cache.Record(rec); err != nil {
		return domain.ScanRecord{}, err
	}
	return rec, nil
}

// SyncStats summarizes one sync pass.
type SyncStats struct {
	Synced    int
	Conflicts int
	Remaining int
}

// Sync replays every unsynced record. A transport failure leaves the
// record unsynced for the next pass; the server side is idempotent, so
// replaying a record that already got through changes nothing.
func (r *Reconciler) Sync(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	for _, rec := range r.cache.Unsynced() {
		verdict, err := r.submit.SyncScan(ctx, ticket.ScanSubmission{
			TicketID:   rec.TicketID,
			DeviceID:   rec.DeviceID,
			ScannedAt:  rec.ScannedAt,
			RawPayload: rec.RawPayload,
		})
		if err != nil {
			r.logger.Printf("WARN: sync submit ticket=%s: %v", rec.TicketID, err)
			stats.Remaining++
			continue
		}

		conflicted := false
		if err := r.cache.apply(rec.TicketID, func(stored *domain.ScanRecord) {
			r.applyVerdict(stored, verdict)
			conflicted = stored.Conflict
		}); err != nil {
			return stats, err
		}
		stats.Synced++
		if conflicted {
			stats.Conflicts++
			r.logger.Printf("scan conflict ticket=%s used at %s by %s",
				rec.TicketID, verdict.ScannedAt.Format(time.RFC3339), verdict.DeviceID)
		}
	}
	return stats, nil
}

// applyVerdict marks a record synced. A conflict is a loss to another
// device; losing to an earlier submission from this same device is
// just a duplicate receipt.
func (r *Reconciler) applyVerdict(rec *domain.ScanRecord, verdict ticket.SyncVerdict) {
	rec.Synced = true
	if !verdict.Confirmed && verdict.DeviceID != rec.DeviceID {
		rec.Conflict = true
		at := verdict.ScannedAt
		rec.ConflictAt = &at
		rec.ConflictDevice = verdict.DeviceID
	}
}
