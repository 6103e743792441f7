package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	genverr "github.com/sajjad-MoBe/genv/internal/errors"
)

const tracerName = "github.com/sajjad-MoBe/genv/internal/storage"

// Variable is a single named value
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TableMetrics tracks table operations
type TableMetrics struct {
	Keys          int
	ReadCount     int64
	WriteCount    int64
	ErrorCount    int64
	SaveCount     int64
	LastSave      time.Time
	LastSaveError string
}

// PersistObserver is notified after every snapshot save attempt with the
// number of variables that were being saved
type PersistObserver func(keys int, duration time.Duration, err error)

// Table is the in-memory variable map. One mutex guards the map for the
// whole of every operation, including the snapshot write of SetMany.
type Table struct {
	mu          sync.Mutex
	vars        map[string]string
	snapshotter Snapshotter
	logger      logrus.FieldLogger
	tracer      trace.Tracer
	observers   []PersistObserver

	readCount  int64
	writeCount int64
	errorCount int64
	saveCount  int64

	lastSave      time.Time
	lastSaveError error
}

// Open loads the last snapshot into a new table. A snapshot that is
// missing or cannot be read leaves the table empty.
func Open(ctx context.Context, snapshotter Snapshotter, logger logrus.FieldLogger) *Table {
	t := &Table{
		snapshotter: snapshotter,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}

	vars, err := snapshotter.Load(ctx)
	switch {
	case err == nil:
		logger.WithField("variables", len(vars)).Info("snapshot loaded")
	case errors.Is(err, ErrNoSnapshot):
		logger.Info("no snapshot found, starting with an empty table")
	default:
		logger.WithError(err).Warn("failed to load snapshot, starting with an empty table")
	}
	if err != nil || vars == nil {
		vars = make(map[string]string)
	}
	t.vars = vars
	return t
}

// OnPersist registers an observer for snapshot saves. Observers run with
// the table lock held and must not call back into the table.
func (t *Table) OnPersist(observer PersistObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, observer)
}

// Get returns the value stored under name
func (t *Table) Get(name string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	atomic.AddInt64(&t.readCount, 1)

	value, ok := t.vars[name]
	if !ok {
		atomic.AddInt64(&t.errorCount, 1)
		return "", genverr.New(genverr.ErrorTypeNotFound, fmt.Sprintf("no value found for %q", name), nil)
	}
	return value, nil
}

// SetMany validates the whole batch, applies it and persists the table.
// A rejected batch leaves the table untouched; a batch that cannot be
// persisted is rolled back before the error is returned.
func (t *Table) SetMany(ctx context.Context, entries map[string][]string) error {
	batch, err := validateBatch(entries)
	if err != nil {
		atomic.AddInt64(&t.errorCount, 1)
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	type prior struct {
		value   string
		existed bool
	}
	undo := make(map[string]prior, len(batch))
	for name, value := range batch {
		old, existed := t.vars[name]
		undo[name] = prior{value: old, existed: existed}
		t.vars[name] = value
	}

	if err := t.persist(ctx); err != nil {
		for name, p := range undo {
			if p.existed {
				t.vars[name] = p.value
			} else {
				delete(t.vars, name)
			}
		}
		atomic.AddInt64(&t.errorCount, 1)
		return genverr.New(genverr.ErrorTypeStorage, "failed to persist variables", err)
	}

	atomic.AddInt64(&t.writeCount, int64(len(batch)))
	return nil
}

// All returns every variable ordered by name
func (t *Table) All() []Variable {
	t.mu.Lock()
	defer t.mu.Unlock()

	atomic.AddInt64(&t.readCount, 1)

	result := make([]Variable, 0, len(t.vars))
	for name, value := range t.vars {
		result = append(result, Variable{Name: name, Value: value})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Len returns the number of stored variables
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.vars)
}

// Metrics returns the current table metrics
func (t *Table) Metrics() TableMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := TableMetrics{
		Keys:       len(t.vars),
		ReadCount:  atomic.LoadInt64(&t.readCount),
		WriteCount: atomic.LoadInt64(&t.writeCount),
		ErrorCount: atomic.LoadInt64(&t.errorCount),
		SaveCount:  atomic.LoadInt64(&t.saveCount),
		LastSave:   t.lastSave,
	}
	if t.lastSaveError != nil {
		m.LastSaveError = t.lastSaveError.Error()
	}
	return m
}

// persist must be called with t.mu held
func (t *Table) persist(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "storage.save")
	defer span.End()
	span.SetAttributes(attribute.Int("genv.variables", len(t.vars)))

	start := time.Now()
	err := t.snapshotter.Save(ctx, t.vars)
	duration := time.Since(start)

	atomic.AddInt64(&t.saveCount, 1)
	t.lastSaveError = err
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.WithError(err).Error("failed to save snapshot")
	} else {
		t.lastSave = time.Now()
		t.logger.WithFields(logrus.Fields{
			"variables": len(t.vars),
			"payload":   humanize.Bytes(payloadSize(t.vars)),
			"duration":  duration,
		}).Debug("snapshot saved")
	}

	for _, observer := range t.observers {
		observer(len(t.vars), duration, err)
	}
	return err
}

// validateBatch requires at least one entry and exactly one value per name
func validateBatch(entries map[string][]string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, genverr.New(genverr.ErrorTypeInvalidInput, "no values supplied to set", nil)
	}

	batch := make(map[string]string, len(entries))
	for name, values := range entries {
		if name == "" {
			return nil, genverr.New(genverr.ErrorTypeInvalidInput, "variable name cannot be empty", nil)
		}
		if len(values) != 1 {
			return nil, genverr.New(genverr.ErrorTypeInvalidInput,
				fmt.Sprintf("expected 1 and only 1 value for %q, got %d", name, len(values)), nil)
		}
		batch[name] = values[0]
	}
	return batch, nil
}

func payloadSize(vars map[string]string) uint64 {
	var n uint64
	for k, v := range vars {
		n += uint64(len(k) + len(v))
	}
	return n
}
