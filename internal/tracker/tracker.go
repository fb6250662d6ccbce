// Package tracker accumulates what one entity load did: new, updated and
// failed natural keys plus counters and wall time.
package tracker

import (
	"strings"
	"time"
)

type Action string

const (
	ActionNew     Action = "NUEVO"
	ActionUpdated Action = "ACTUALIZADO"
	ActionError   Action = "ERROR"
	// cofnięte przez rollback całej partii, nie trafiło do bazy
	ActionDiscarded Action = "DESCARTADO"
)

// Entry to jeden wpis szczegółowy (klucz naturalny + co się stało).
type Entry struct {
	Key       string    `json:"key"`
	Action    Action    `json:"accion"`
	Timestamp time.Time `json:"timestamp"`
	Fields    []string  `json:"fields,omitempty"`
	Detail    string    `json:"detalle,omitempty"`
}

type Counts struct {
	New       int `json:"nuevos"`
	Updated   int `json:"actualizados"`
	Errors    int `json:"errores"`
	Unchanged int `json:"sin_cambios"`
	Processed int `json:"total_procesadas"`
	Discarded int `json:"descartados"`
}

type Summary struct {
	Entity  string        `json:"entity"`
	Start   time.Time     `json:"inicio"`
	End     time.Time     `json:"fin"`
	Elapsed time.Duration `json:"duracion"`
	Counts  Counts        `json:"stats"`
}

// Tracker is created fresh for every entity load and never shared.
type Tracker struct {
	entity  string
	now     func() time.Time
	start   time.Time
	counts  Counts
	news    []Entry
	updates []Entry
	errors  []Entry
	lost    []Entry
}

func New(entity string) *Tracker {
	return NewWithClock(entity, time.Now)
}

// NewWithClock pozwala podmienić zegar (testy).
func NewWithClock(entity string, now func() time.Time) *Tracker {
	return &Tracker{entity: entity, now: now, start: now()}
}

func (t *Tracker) Entity() string { return t.entity }

// MarkProcessed marks that this entity's load was attempted. Called once
// per batch, not per row.
func (t *Tracker) MarkProcessed() {
	t.counts.Processed++
}

func (t *Tracker) RecordNew(key string) {
	t.counts.New++
	t.news = append(t.news, Entry{Key: key, Action: ActionNew, Timestamp: t.now()})
}

func (t *Tracker) RecordUpdate(key string, fields []string) {
	t.counts.Updated++
	t.updates = append(t.updates, Entry{
		Key:       key,
		Action:    ActionUpdated,
		Timestamp: t.now(),
		Fields:    append([]string(nil), fields...),
		Detail:    "Campos actualizados: " + strings.Join(fields, ", "),
	})
}

func (t *Tracker) RecordError(key, msg string) {
	t.counts.Errors++
	t.errors = append(t.errors, Entry{
		Key:       key,
		Action:    ActionError,
		Timestamp: t.now(),
		Detail:    msg,
	})
}

// RecordUnchanged liczy rekordy bez różnic (bez wpisu szczegółowego).
func (t *Tracker) RecordUnchanged() {
	t.counts.Unchanged++
}

// DiscardPending moves every new and updated entry recorded so far to the
// discarded list. Used after a rollback of the whole uncommitted unit, so
// New and Updated only count rows that can still reach the commit.
func (t *Tracker) DiscardPending() int {
	n := len(t.news) + len(t.updates)
	for _, list := range [][]Entry{t.news, t.updates} {
		for _, e := range list {
			e.Action = ActionDiscarded
			t.lost = append(t.lost, e)
		}
	}
	t.news, t.updates = nil, nil
	t.counts.New, t.counts.Updated = 0, 0
	t.counts.Discarded += n
	return n
}

func (t *Tracker) Counts() Counts { return t.counts }

func (t *Tracker) NewEntries() []Entry       { return t.news }
func (t *Tracker) UpdatedEntries() []Entry   { return t.updates }
func (t *Tracker) ErrorEntries() []Entry     { return t.errors }
func (t *Tracker) DiscardedEntries() []Entry { return t.lost }

func (t *Tracker) Summary() Summary {
	end := t.now()
	return Summary{
		Entity:  t.entity,
		Start:   t.start,
		End:     end,
		Elapsed: end.Sub(t.start),
		Counts:  t.counts,
	}
}
