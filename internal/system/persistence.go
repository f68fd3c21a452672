package system

import (
	"context"
	"time"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	coresys "github.com/driftsim/server/internal/core/system"
	"github.com/driftsim/server/internal/persist"
	"github.com/driftsim/server/internal/world"
	"go.uber.org/zap"
)

// PersistenceSystem flushes entity spatial snapshots and the grid-crossing
// audit trail to the database at a fixed tick interval. Phase 5 (Persist).
// Both repos may be nil when the database is disabled; the system then only
// drains its buffers.
//
// It subscribes synchronously to ChangedGrid (audit rows) and on the deferred
// path to EntityDestroyed (snapshot row deletes).
type PersistenceSystem struct {
	world    *world.State
	entities *persist.EntityRepo
	audit    *persist.TraversalLogRepo
	log      *zap.Logger

	interval int
	ticks    int

	pendingAudit   []persist.TraversalEntry
	pendingDeletes []int64
}

func NewPersistenceSystem(
	ws *world.State,
	bus *event.Bus,
	entities *persist.EntityRepo,
	audit *persist.TraversalLogRepo,
	interval int,
	log *zap.Logger,
) *PersistenceSystem {
	if interval <= 0 {
		interval = 600
	}
	s := &PersistenceSystem{
		world:    ws,
		entities: entities,
		audit:    audit,
		log:      log,
		interval: interval,
	}
	event.Subscribe(bus, func(ev event.ChangedGrid) {
		s.pendingAudit = append(s.pendingAudit, persist.TraversalEntry{
			EntityID: int64(ev.Entity),
			OldGrid:  int64(ev.OldGrid),
			NewGrid:  int64(ev.NewGrid),
		})
	})
	event.Subscribe(bus, func(ev event.EntityDestroyed) {
		s.pendingDeletes = append(s.pendingDeletes, int64(ev.Entity))
	})
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0
	s.Flush()
}

// Flush writes all pending state immediately. Called on the interval and once
// more at shutdown.
func (s *PersistenceSystem) Flush() {
	if s.entities == nil || s.audit == nil {
		s.pendingAudit = s.pendingAudit[:0]
		s.pendingDeletes = s.pendingDeletes[:0]
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.audit.Append(ctx, s.pendingAudit); err != nil {
		s.log.Error("persist: traversal audit flush failed", zap.Error(err))
	}
	s.pendingAudit = s.pendingAudit[:0]

	if err := s.entities.DeleteBatch(ctx, s.pendingDeletes); err != nil {
		s.log.Error("persist: snapshot delete failed", zap.Error(err))
	}
	s.pendingDeletes = s.pendingDeletes[:0]

	rows := s.collectSnapshots()
	if err := s.entities.SaveBatch(ctx, rows); err != nil {
		s.log.Error("persist: snapshot flush failed",
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
	}
}

// collectSnapshots gathers the spatial state of every live, non-node entity.
// Map roots and grid nodes are world data, not simulation state — they are
// skipped.
func (s *PersistenceSystem) collectSnapshots() []persist.EntitySnapshotRow {
	ws := s.world
	rows := make([]persist.EntitySnapshotRow, 0, ws.Transforms().Len())
	ws.Transforms().Each(func(id ecs.EntityID, tr *component.Transform) {
		if ws.IsMap(id) || ws.IsGrid(id) || ws.Terminating(id) {
			return
		}
		mapID, pos, err := ws.MapPosition(id)
		if err != nil {
			s.log.Warn("persist: skipping unresolvable entity",
				zap.Uint64("entity", uint64(id)),
				zap.Error(err),
			)
			return
		}
		name := ""
		if m, ok := ws.Meta(id); ok {
			name = m.Name
		}
		rows = append(rows, persist.EntitySnapshotRow{
			EntityID: int64(id),
			Name:     name,
			MapID:    int16(mapID),
			GridID:   int64(tr.Grid),
			PosX:     pos.X,
			PosY:     pos.Y,
			Anchored: tr.Anchored,
		})
	})
	return rows
}
