package etl

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/tsatrips/dodoetl/internal/config"
	"github.com/tsatrips/dodoetl/internal/db"
	"github.com/tsatrips/dodoetl/internal/loader"
	"github.com/tsatrips/dodoetl/internal/record"
	"github.com/tsatrips/dodoetl/internal/source"
)

type fakeSource struct {
	sets  map[record.Feed]record.Set
	fail  map[record.Feed]error
	calls []record.Feed
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Feeds() []record.Feed {
	return record.Feeds
}
func (f *fakeSource) Fetch(_ context.Context, feed record.Feed, _, _ time.Time) (record.Set, error) {
	f.calls = append(f.calls, feed)
	if err := f.fail[feed]; err != nil {
		return record.Set{}, err
	}
	return f.sets[feed], nil
}

func store(t *testing.T) *db.Handle {
	t.Helper()
	h, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "etl.db"))
	require.NoError(t, err)
	require.NoError(t, h.Migrate())
	t.Cleanup(func() { _ = h.Close() })
	_, err = h.CreateVendor(context.Background(), db.VendorInput{NombreCompleto: "Martin Pena", Nombre: "Martin"})
	require.NoError(t, err)
	return h
}

func feeds() map[record.Feed]record.Set {
	return map[record.Feed]record.Set{
		record.FeedReservations: {
			Columns: []string{"Idreserva", "Rva", "Nombrevendedor_cod_vdor", "Total", "Descripparame_moneda", "Fec_sal"},
			Rows: []record.Record{
				{"Idreserva": 1, "Rva": "r1", "Nombrevendedor_cod_vdor": "Martín Peña", "Total": "100.004", "Descripparame_moneda": "us", "Fec_sal": "2025-03-01T00:00:00"},
				{"Idreserva": 2, "Rva": "r1", "Nombrevendedor_cod_vdor": "Martín Peña", "Total": "1", "Descripparame_moneda": "us", "Fec_sal": "2025-03-01"},
				{"Idreserva": 3, "Rva": nil, "Nombrevendedor_cod_vdor": "Martín Peña"},
				{"Idreserva": 4, "Rva": "r2", "Nombrevendedor_cod_vdor": "Nadie"},
			},
		},
		record.FeedBudgets: {
			Columns: []string{"Idpresupu", "Rva", "Observ", "Nombrevendedor_cod_vdor", "costoConIva"},
			Rows: []record.Record{
				{"Idpresupu": 9, "Rva": "p1", "Observ": "grupo egresados", "Nombrevendedor_cod_vdor": "martin", "costoConIva": 55.555},
			},
		},
		record.FeedOpportunities: {
			Columns: []string{"name", "email_from", "user_id", "expected_revenue", "stage_id"},
			Rows: []record.Record{
				{"name": "Boda Gomez", "email_from": nil, "user_id": "MARTIN PEÑA", "expected_revenue": "U$D 1.000,00", "stage_id": "Leads"},
			},
		},
	}
}

func TestRunLoadsAllFeeds(t *testing.T) {
	h := store(t)
	src := &fakeSource{sets: feeds()}
	auditDir := filepath.Join(t.TempDir(), "rechazados")
	clock := func() time.Time { return time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC) }

	p := New(zerolog.Nop(), h.DB, map[record.Feed]source.Source{
		record.FeedReservations:  src,
		record.FeedBudgets:       src,
		record.FeedOpportunities: src,
	}, Options{AuditDir: auditDir, Now: clock})

	rep, err := p.Run(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, record.Feeds, src.calls)
	require.Len(t, rep.Trackers, 3)

	res := rep.Trackers[0].Counts()
	assert.Equal(t, 1, res.New)
	assert.Equal(t, 1, res.Errors, "vendor Nadie")
	assert.Equal(t, 2, rep.Rejected[record.FeedReservations])
	require.Len(t, rep.AuditFiles, 1)
	assert.FileExists(t, rep.AuditFiles[0])

	assert.Equal(t, 1, rep.Trackers[1].Counts().New)
	assert.Equal(t, 1, rep.Trackers[2].Counts().New)

	var r db.Reservation
	require.NoError(t, h.DB.Where("reserva = ?", "R1").First(&r).Error)
	assert.Equal(t, "100", r.Total.Decimal.String())
	assert.Equal(t, "US", *r.Moneda)

	var b db.Budget
	require.NoError(t, h.DB.Where("reserva = ?", "P1").First(&b).Error)
	assert.Equal(t, "GRUPO EGRESADOS", *b.NombreGrupo)
	assert.Equal(t, "55.56", b.CostoFinal.Decimal.StringFixed(2))

	var o db.Opportunity
	require.NoError(t, h.DB.Where("nombre_grupo = ?", "BODA GOMEZ").First(&o).Error)
	assert.Equal(t, "U$D 1.000,00", *o.GananciaEsperada)
	assert.Equal(t, db.StageLeads, o.Stage())

	summaries := rep.Summaries()
	assert.Equal(t, "reservas", summaries[0].Entity)

	// drugi przebieg: nic się nie zmienia
	rep, err = p.Run(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	for _, tr := range rep.Trackers {
		assert.Zero(t, tr.Counts().New, tr.Entity())
		assert.Zero(t, tr.Counts().Updated, tr.Entity())
	}
}

func TestRunStopsOnSourceFailure(t *testing.T) {
	h := store(t)
	src := &fakeSource{sets: feeds(), fail: map[record.Feed]error{record.FeedBudgets: errors.New("portal down")}}

	p := New(zerolog.Nop(), h.DB, map[record.Feed]source.Source{
		record.FeedReservations:  src,
		record.FeedBudgets:       src,
		record.FeedOpportunities: src,
	}, Options{})

	rep, err := p.Run(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.ErrorContains(t, err, "portal down")
	require.Len(t, rep.Trackers, 1)
	assert.Equal(t, []record.Feed{record.FeedReservations, record.FeedBudgets}, src.calls)

	// reservations were committed before the failure
	var n int64
	require.NoError(t, h.DB.Model(&db.Reservation{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestFromConfigSharesSources(t *testing.T) {
	built := 0
	source.Register("etl-test", func(zerolog.Logger, json.RawMessage) (source.Source, error) {
		built++
		return &fakeSource{}, nil
	})
	cfg := conf.Default()
	cfg.Feeds = map[record.Feed]string{
		record.FeedReservations: "etl-test",
		record.FeedBudgets:      "etl-test",
	}
	cfg.RollbackPolicy = string(loader.PolicyBatch)

	p, err := FromConfig(zerolog.Nop(), cfg, nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, built)
	assert.Len(t, p.sources, 2)
	assert.Equal(t, loader.PolicyBatch, p.opts.Policy)

	cfg.Feeds[record.FeedOpportunities] = "nope"
	_, err = FromConfig(zerolog.Nop(), cfg, nil, t.TempDir())
	assert.Error(t, err)
}
