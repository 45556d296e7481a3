// Package gormstorage implements the storage.Backend interface on any GORM database.
// Telemetry is converted to GORM models, buffered in queues and written in batches by
// a background writer. The Postgres and SQLite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corax/nail/internal/database"
	"github.com/corax/nail/internal/model"
	"github.com/corax/nail/internal/model/convert"
	"github.com/corax/nail/internal/queue"
	"github.com/corax/nail/pkg/core"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// ErrNoFlight is returned when a flight operation needs a started flight.
var ErrNoFlight = errors.New("no flight started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Ticks  *queue.Queue[model.FlightTick]
	Phases *queue.Queue[model.PhaseChange]
	Locks  *queue.Queue[model.TargetLock]
}

func newQueues() *queues {
	return &queues{
		Ticks:  queue.New[model.FlightTick](),
		Phases: queue.New[model.PhaseChange](),
		Locks:  queue.New[model.TargetLock](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	flightID atomic.Uint64
	flight   *core.Flight

	flushMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying database handle.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database configured")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}
	b.deps.Logger.Debug("Database setup complete", "dialect", b.deps.DB.Name())

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	return b.Flush()
}

// StartFlight inserts the flight row and assigns its ID back to f.
func (b *Backend) StartFlight(f *core.Flight) error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database configured")
	}
	gormFlight := convert.CoreToFlight(*f)
	gormFlight.ID = 0
	if err := b.deps.DB.Create(&gormFlight).Error; err != nil {
		return fmt.Errorf("failed to insert new flight: %w", err)
	}
	f.ID = gormFlight.ID
	b.flight = f
	b.flightID.Store(uint64(gormFlight.ID))
	return nil
}

// FlightID is the ID stamped on queued records.
func (b *Backend) FlightID() uint {
	return uint(b.flightID.Load())
}

// EndFlight writes the queued telemetry and stores the end time.
func (b *Backend) EndFlight() error {
	if b.flight == nil {
		return ErrNoFlight
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if b.flight.EndTime.IsZero() {
		b.flight.EndTime = time.Now().UTC()
	}
	err := b.deps.DB.Model(&model.Flight{}).
		Where("id = ?", b.flight.ID).
		Update("end_time", b.flight.EndTime).Error
	if err != nil {
		return fmt.Errorf("failed to close flight %d: %w", b.flight.ID, err)
	}
	return nil
}

// RecordTick converts and queues a flight tick.
func (b *Backend) RecordTick(t *core.FlightTick) error {
	b.queues.Ticks.Push(convert.CoreToFlightTick(*t))
	return nil
}

// RecordPhaseChange converts and queues a phase change.
func (b *Backend) RecordPhaseChange(p *core.PhaseChange) error {
	b.queues.Phases.Push(convert.CoreToPhaseChange(*p))
	return nil
}

// RecordTargetLock converts and queues a target lock.
func (b *Backend) RecordTargetLock(l *core.TargetLock) error {
	b.queues.Locks.Push(convert.CoreToTargetLock(*l))
	return nil
}

// Pending is the number of records waiting for the writer.
func (b *Backend) Pending() int {
	return b.queues.Ticks.Len() + b.queues.Phases.Len() + b.queues.Locks.Len()
}

// Flush drains every queue into the database now. Items that fail to insert stay queued
// and the first error is returned.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	flightID := uint(b.flightID.Load())
	log := b.deps.Logger

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Phases, "phase changes", log, func(items []model.PhaseChange) {
			for i := range items {
				if items[i].FlightID == 0 {
					items[i].FlightID = flightID
				}
			}
		}),
		writeQueue(b.deps.DB, b.queues.Ticks, "flight ticks", log, func(items []model.FlightTick) {
			for i := range items {
				if items[i].FlightID == 0 {
					items[i].FlightID = flightID
				}
			}
		}),
		writeQueue(b.deps.DB, b.queues.Locks, "target locks", log, func(items []model.TargetLock) {
			for i := range items {
				if items[i].FlightID == 0 {
					items[i].FlightID = flightID
				}
			}
		}),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating "+name, "error", err, "count", len(items))
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

// writerLoop periodically drains the queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Debug("DB writer cycle failed", "error", err)
			}
		}
	}
}
