package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsatrips/dodoetl/internal/db"
	"github.com/tsatrips/dodoetl/internal/normalize"
	"github.com/tsatrips/dodoetl/internal/record"
	"github.com/tsatrips/dodoetl/internal/tracker"
)

var testVendors = []db.Vendor{
	{VendorID: 1, NombreCompleto: "MARTIN PENA", Nombre: "MARTIN"},
	{VendorID: 2, NombreCompleto: "ANA GOMEZ", Nombre: "ANA"},
}

func resKey(r *db.Reservation) string { return r.Reserva }

func ptr[V any](v V) *V { return &v }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func resRow(key, vendor string, total string) record.Record {
	return record.Record{
		"reserva":       key,
		"vendedor":      vendor,
		"moneda":        "US",
		"total":         decimal.RequireFromString(total),
		"fecha_salida":  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		"can_adu":       int64(2),
		"tipo_reserva":  nil,
		"nombre_grupo":  nil,
		"cliente":       "AGENCIA SUR",
		"ultima_modif":  nil,
		"fecha_reserva": nil,
	}
}

func storedRes(key string, vendorID uint, total string) db.Reservation {
	return db.Reservation{
		Reserva:     key,
		Moneda:      ptr("US"),
		Total:       dec(total),
		FechaSalida: ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)),
		CanAdu:      ptr(2),
		Cliente:     ptr("AGENCIA SUR"),
		VendorID:    vendorID,
	}
}

func set(rows ...record.Record) record.Set { return record.Set{Rows: rows} }

func opts(p Policy) Options { return Options{Policy: p, Log: zerolog.Nop()} }

func keys(es []tracker.Entry) []string {
	var out []string
	for _, e := range es {
		out = append(out, e.Key)
	}
	return out
}

func TestUpsertNewUpdatedUntouched(t *testing.T) {
	sess := newMem(resKey, testVendors, storedRes("A", 1, "100"), storedRes("C", 1, "75"))

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "150"), resRow("B", "MARTIN PENA", "20"), resRow("C", "MARTIN PENA", "75")),
		opts(PolicyRow))
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, keys(tr.NewEntries()))
	require.Len(t, tr.UpdatedEntries(), 1)
	assert.Equal(t, "A", tr.UpdatedEntries()[0].Key)
	assert.Equal(t, []string{"total"}, tr.UpdatedEntries()[0].Fields)

	c := tr.Counts()
	assert.Equal(t, 1, c.New)
	assert.Equal(t, 1, c.Updated)
	assert.Equal(t, 0, c.Errors)
	assert.Equal(t, 1, c.Unchanged)

	assert.Equal(t, 1, sess.commits)
	assert.Equal(t, [][]string{{"total"}}, sess.updateCols)
	assert.True(t, sess.committed["A"].Total.Decimal.Equal(decimal.NewFromInt(150)))
	assert.Contains(t, sess.committed, "B")
}

func TestUpsertIsIdempotent(t *testing.T) {
	sess := newMem(resKey, testVendors)
	rows := set(resRow("A", "MARTIN PENA", "10"), resRow("B", "ANA GOMEZ", "20"))

	first, err := Upsert[db.Reservation](context.Background(), sess, Reservations, rows, opts(PolicyRow))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Counts().New)

	second, err := Upsert[db.Reservation](context.Background(), sess, Reservations, rows, opts(PolicyRow))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Counts().New)
	assert.Equal(t, 0, second.Counts().Updated)
	assert.Equal(t, 2, second.Counts().Unchanged)
	assert.Len(t, sess.updates, 0)
}

func TestUpsertOnlyCurrencyChanged(t *testing.T) {
	sess := newMem(resKey, testVendors, storedRes("A", 1, "100"))
	row := resRow("A", "MARTIN PENA", "100")
	row["moneda"] = "AR"

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations, set(row), opts(PolicyRow))
	require.NoError(t, err)
	require.Len(t, tr.UpdatedEntries(), 1)
	assert.Equal(t, []string{"moneda"}, tr.UpdatedEntries()[0].Fields)
	assert.Equal(t, "AR", *sess.committed["A"].Moneda)
}

func TestUpsertUnknownVendor(t *testing.T) {
	sess := newMem(resKey, testVendors)

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1"), resRow("X", "UNKNOWN VENDOR", "1"), resRow("B", "ANA GOMEZ", "1")),
		opts(PolicyRow))
	require.NoError(t, err)

	require.Len(t, tr.ErrorEntries(), 1)
	assert.Equal(t, "X", tr.ErrorEntries()[0].Key)
	assert.Contains(t, tr.ErrorEntries()[0].Detail, "vendor not found")
	assert.ElementsMatch(t, []string{"A", "B"}, keys(tr.NewEntries()))
	assert.Empty(t, tr.UpdatedEntries())

	assert.Equal(t, 1, sess.commits)
	assert.NotContains(t, sess.committed, "X")
	assert.Len(t, sess.committed, 2)
	assert.Zero(t, sess.rollbacks+sess.rollbackTos)
}

func TestUpsertAccentedVendorMatches(t *testing.T) {
	vendors := []db.Vendor{{VendorID: 7, NombreCompleto: "MARTIN PENA", Nombre: "MARTIN"}}
	sess := newMem(resKey, vendors)

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", normalize.Name("Martín Peña"), "1")), opts(PolicyRow))
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Counts().New)
	assert.Equal(t, uint(7), sess.committed["A"].VendorID)
}

func TestUpsertReferenceNamesAreNormalized(t *testing.T) {
	// vendedor zapisany z akcentem w tabeli referencyjnej
	vendors := []db.Vendor{{VendorID: 3, NombreCompleto: "José Núñez", Nombre: "José"}}
	sess := newMem(resKey, vendors)

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "JOSE NUNEZ", "1")), opts(PolicyRow))
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Counts().New)
}

func TestVendorMissCarriesHint(t *testing.T) {
	idx := indexVendors(testVendors, Reservations)
	_, err := idx.lookup("MARTIN PEÑAS")
	var nf *VendorNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "MARTIN PENA", nf.Hint)

	_, err = idx.lookup("ZZZ")
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, nf.Hint)

	_, err = idx.lookup("")
	assert.Error(t, err)
}

func TestBudgetsMatchShortVendorName(t *testing.T) {
	sess := newMem(func(b *db.Budget) string { return b.Reserva }, testVendors)
	rows := set(
		record.Record{"reserva": "P1", "vendedor": "ANA", "costo_final": decimal.RequireFromString("9.5")},
		record.Record{"reserva": "P2", "vendedor": "ANA GOMEZ"},
	)

	tr, err := Upsert[db.Budget](context.Background(), sess, Budgets, rows, opts(PolicyRow))
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, keys(tr.NewEntries()))
	assert.Equal(t, []string{"P2"}, keys(tr.ErrorEntries()))
	assert.Equal(t, uint(2), sess.committed["P1"].VendorID)
	assert.True(t, sess.committed["P1"].CostoFinal.Valid)
}

func TestRowPolicyKeepsEarlierWork(t *testing.T) {
	sess := newMem(resKey, testVendors)
	sess.failInsert = map[string]error{"B": errors.New("value too long")}

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1"), resRow("B", "MARTIN PENA", "1"), resRow("C", "MARTIN PENA", "1")),
		opts(PolicyRow))
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, keys(tr.ErrorEntries()))
	assert.Equal(t, "value too long", tr.ErrorEntries()[0].Detail)
	assert.Equal(t, 1, sess.rollbackTos)
	assert.Zero(t, sess.rollbacks)
	assert.Contains(t, sess.committed, "A")
	assert.Contains(t, sess.committed, "C")
	assert.NotContains(t, sess.committed, "B")
	assert.Equal(t, 2, sess.releases)
}

func TestRowPolicyReleaseFailureUndoesRow(t *testing.T) {
	sess := newMem(resKey, testVendors)
	sess.failRelease = errors.New("savepoint gone")

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1")), opts(PolicyRow))
	require.NoError(t, err)

	assert.Empty(t, tr.NewEntries())
	assert.Equal(t, []string{"A"}, keys(tr.ErrorEntries()))
	assert.Contains(t, tr.ErrorEntries()[0].Detail, "release savepoint")
	assert.Equal(t, 1, sess.rollbackTos)
	assert.NotContains(t, sess.committed, "A")
}

func TestBatchPolicyDiscardsEarlierWork(t *testing.T) {
	sess := newMem(resKey, testVendors)
	sess.failInsert = map[string]error{"B": errors.New("value too long")}

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1"), resRow("B", "MARTIN PENA", "1"), resRow("C", "MARTIN PENA", "1")),
		opts(PolicyBatch))
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, keys(tr.ErrorEntries()))
	assert.Equal(t, 1, sess.rollbacks)
	assert.Zero(t, sess.rollbackTos)
	// A był tylko w niezatwierdzonej pracy
	assert.NotContains(t, sess.committed, "A")
	assert.Contains(t, sess.committed, "C")
	assert.Equal(t, 1, sess.commits)
	assert.Zero(t, sess.releases)

	// A poszło w rollbacku, w podsumowaniu zostaje tylko C
	assert.Equal(t, []string{"C"}, keys(tr.NewEntries()))
	assert.Equal(t, []string{"A"}, keys(tr.DiscardedEntries()))
	assert.Equal(t, 1, tr.Counts().New)
	assert.Equal(t, 1, tr.Counts().Discarded)
}

func TestBatchPolicyReinsertsAfterRollback(t *testing.T) {
	sess := newMem(resKey, testVendors)
	sess.failInsert = map[string]error{"B": errors.New("boom")}

	_, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1"), resRow("B", "MARTIN PENA", "1"), resRow("A2", "MARTIN PENA", "1")),
		opts(PolicyBatch))
	require.NoError(t, err)

	// the next run sees A as new again
	sess.failInsert = nil
	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1")), opts(PolicyBatch))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keys(tr.NewEntries()))
}

func TestFailedUpdateLeavesStoredValue(t *testing.T) {
	sess := newMem(resKey, testVendors, storedRes("A", 1, "100"))
	sess.failUpdate = map[string]error{"A": errors.New("deadlock")}

	rows := set(resRow("A", "MARTIN PENA", "150"), resRow("A", "MARTIN PENA", "150"))
	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations, rows, opts(PolicyRow))
	require.NoError(t, err)

	// both attempts see the old stored total, so both fail
	assert.Equal(t, 2, tr.Counts().Errors)
	assert.True(t, sess.committed["A"].Total.Decimal.Equal(decimal.NewFromInt(100)))
}

func TestPanicBecomesRowError(t *testing.T) {
	sess := newMem(resKey, testVendors)
	sess.panicOn = "B"

	tr, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("B", "MARTIN PENA", "1"), resRow("C", "MARTIN PENA", "1")), opts(PolicyRow))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, keys(tr.ErrorEntries()))
	assert.Contains(t, tr.ErrorEntries()[0].Detail, "panic: boom")
	assert.Equal(t, []string{"C"}, keys(tr.NewEntries()))
}

func TestCommitFailureIsFatal(t *testing.T) {
	sess := newMem(resKey, testVendors)
	sess.failCommit = errors.New("disk full")

	_, err := Upsert[db.Reservation](context.Background(), sess, Reservations,
		set(resRow("A", "MARTIN PENA", "1")), opts(PolicyRow))
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, sess.committed)
}

func TestUnknownPolicy(t *testing.T) {
	sess := newMem(resKey, testVendors)
	_, err := Upsert[db.Reservation](context.Background(), sess, Reservations, set(), opts("all"))
	assert.Error(t, err)
}

func TestCancelledContextDoesNotCommit(t *testing.T) {
	sess := newMem(resKey, testVendors)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Upsert[db.Reservation](ctx, sess, Reservations, set(resRow("A", "MARTIN PENA", "1")), opts(PolicyRow))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sess.commits)
}

func TestOpportunityStageChange(t *testing.T) {
	okey := func(o *db.Opportunity) string { return o.NombreGrupo }
	sess := newMem(okey, testVendors, db.Opportunity{NombreGrupo: "EGRESADOS", Estado: ptr("LEADS"), VendorID: 2})

	rows := set(
		record.Record{"nombre_grupo": "EGRESADOS", "vendedor": "ANA GOMEZ", "estado": "PROPUESTA ENVIADA"},
		record.Record{"nombre_grupo": "BODA", "vendedor": "ANA GOMEZ", "estado": "GANADO", "ganancia_esperada": "USD 10,00"},
	)
	tr, err := Upsert[db.Opportunity](context.Background(), sess, Opportunities, rows, opts(PolicyRow))
	require.NoError(t, err)
	require.Len(t, tr.UpdatedEntries(), 1)
	assert.Equal(t, []string{"estado"}, tr.UpdatedEntries()[0].Fields)

	// unknown stage is stored as is
	boda := sess.committed["BODA"]
	assert.Equal(t, "GANADO", *boda.Estado)
	assert.Equal(t, db.StageUnknown, boda.Stage())
}

func TestDiffTreatsNilAndValueAsChange(t *testing.T) {
	a := storedRes("A", 1, "1")
	b := a
	b.Cliente = nil
	b.Total = decimal.NullDecimal{}
	var names []string
	for _, f := range Reservations.diff(&a, &b) {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"cliente", "total"}, names)
}
