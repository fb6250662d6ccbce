package loader

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tsatrips/dodoetl/internal/db"
	"github.com/tsatrips/dodoetl/internal/record"
)

// Field is one reconciled column of T.
type Field[T any] struct {
	Name  string // nazwa kolumny, trafia do raportu zmian
	Equal func(a, b *T) bool
	Copy  func(dst, src *T)
}

func field[T, V any](name string, at func(*T) *V, eq func(a, b V) bool) Field[T] {
	return Field[T]{
		Name:  name,
		Equal: func(a, b *T) bool { return eq(*at(a), *at(b)) },
		Copy:  func(dst, src *T) { *at(dst) = *at(src) },
	}
}

// Kind describes how one entity type is built from a clean record and
// matched against stored rows.
type Kind[T any] struct {
	Name         string
	KeyColumn    string
	VendorColumn string
	// VendorName picks the reference name a feed value is compared to.
	VendorName func(db.Vendor) string
	Key        func(*T) string
	// Build maps a clean record; missing columns become nil, never defaults.
	Build  func(rec record.Record, vendorID uint) T
	Fields []Field[T]
	// Check returns a non-empty warning for suspicious values (logged once per value).
	Check func(*T) string
}

func (k Kind[T]) diff(stored, incoming *T) []Field[T] {
	var out []Field[T]
	for _, f := range k.Fields {
		if !f.Equal(stored, incoming) {
			out = append(out, f)
		}
	}
	return out
}

var Reservations = Kind[db.Reservation]{
	Name:         string(record.FeedReservations),
	KeyColumn:    "reserva",
	VendorColumn: "vendedor",
	VendorName:   func(v db.Vendor) string { return v.NombreCompleto },
	Key:          func(r *db.Reservation) string { return r.Reserva },
	Build: func(rec record.Record, vendorID uint) db.Reservation {
		return db.Reservation{
			Reserva:          rec.String("reserva"),
			TipoReserva:      str(rec, "tipo_reserva"),
			UltimaModif:      date(rec, "ultima_modif"),
			FechaReserva:     date(rec, "fecha_reserva"),
			FechaSalida:      date(rec, "fecha_salida"),
			FechaFin:         date(rec, "fecha_fin"),
			Cliente:          str(rec, "cliente"),
			NombreGrupo:      str(rec, "nombre_grupo"),
			Estado:           str(rec, "estado"),
			CanAdu:           integer(rec, "can_adu"),
			CanChd:           integer(rec, "can_chd"),
			Moneda:           str(rec, "moneda"),
			Total:            money(rec, "total"),
			Ganancia:         money(rec, "ganancia"),
			EjeReservasPara:  str(rec, "eje_reservas_para"),
			DescripProductos: str(rec, "descrip_productos"),
			VendorID:         vendorID,
		}
	},
	Fields: []Field[db.Reservation]{
		field("tipo_reserva", func(r *db.Reservation) **string { return &r.TipoReserva }, eqStr),
		field("ultima_modif", func(r *db.Reservation) **time.Time { return &r.UltimaModif }, eqDate),
		field("fecha_reserva", func(r *db.Reservation) **time.Time { return &r.FechaReserva }, eqDate),
		field("fecha_salida", func(r *db.Reservation) **time.Time { return &r.FechaSalida }, eqDate),
		field("fecha_fin", func(r *db.Reservation) **time.Time { return &r.FechaFin }, eqDate),
		field("cliente", func(r *db.Reservation) **string { return &r.Cliente }, eqStr),
		field("nombre_grupo", func(r *db.Reservation) **string { return &r.NombreGrupo }, eqStr),
		field("estado", func(r *db.Reservation) **string { return &r.Estado }, eqStr),
		field("can_adu", func(r *db.Reservation) **int { return &r.CanAdu }, eqInt),
		field("can_chd", func(r *db.Reservation) **int { return &r.CanChd }, eqInt),
		field("moneda", func(r *db.Reservation) **string { return &r.Moneda }, eqStr),
		field("total", func(r *db.Reservation) *decimal.NullDecimal { return &r.Total }, eqMoney),
		field("ganancia", func(r *db.Reservation) *decimal.NullDecimal { return &r.Ganancia }, eqMoney),
		field("eje_reservas_para", func(r *db.Reservation) **string { return &r.EjeReservasPara }, eqStr),
		field("descrip_productos", func(r *db.Reservation) **string { return &r.DescripProductos }, eqStr),
		field("vendedor_id", func(r *db.Reservation) *uint { return &r.VendorID }, eqID),
	},
}

// Budgets: vendedor z presupuestów to krótka nazwa (vendedores.nombre).
var Budgets = Kind[db.Budget]{
	Name:         string(record.FeedBudgets),
	KeyColumn:    "reserva",
	VendorColumn: "vendedor",
	VendorName:   func(v db.Vendor) string { return v.Nombre },
	Key:          func(b *db.Budget) string { return b.Reserva },
	Build: func(rec record.Record, vendorID uint) db.Budget {
		return db.Budget{
			Reserva:      rec.String("reserva"),
			TipoReserva:  str(rec, "tipo_reserva"),
			UltimaModif:  date(rec, "ultima_modif"),
			FechaReserva: date(rec, "fecha_reserva"),
			FechaSalida:  date(rec, "fecha_salida"),
			Cliente:      str(rec, "cliente"),
			NombreGrupo:  str(rec, "nombre_grupo"),
			Estado:       str(rec, "estado"),
			CanAdu:       integer(rec, "can_adu"),
			CanChd:       integer(rec, "can_chd"),
			Moneda:       str(rec, "moneda"),
			Total:        money(rec, "total"),
			CostoFinal:   money(rec, "costo_final"),
			Ganancia:     money(rec, "ganancia"),
			Productos:    str(rec, "productos"),
			VendorID:     vendorID,
		}
	},
	Fields: []Field[db.Budget]{
		field("tipo_reserva", func(b *db.Budget) **string { return &b.TipoReserva }, eqStr),
		field("ultima_modif", func(b *db.Budget) **time.Time { return &b.UltimaModif }, eqDate),
		field("fecha_reserva", func(b *db.Budget) **time.Time { return &b.FechaReserva }, eqDate),
		field("fecha_salida", func(b *db.Budget) **time.Time { return &b.FechaSalida }, eqDate),
		field("cliente", func(b *db.Budget) **string { return &b.Cliente }, eqStr),
		field("nombre_grupo", func(b *db.Budget) **string { return &b.NombreGrupo }, eqStr),
		field("estado", func(b *db.Budget) **string { return &b.Estado }, eqStr),
		field("can_adu", func(b *db.Budget) **int { return &b.CanAdu }, eqInt),
		field("can_chd", func(b *db.Budget) **int { return &b.CanChd }, eqInt),
		field("moneda", func(b *db.Budget) **string { return &b.Moneda }, eqStr),
		field("total", func(b *db.Budget) *decimal.NullDecimal { return &b.Total }, eqMoney),
		field("costo_final", func(b *db.Budget) *decimal.NullDecimal { return &b.CostoFinal }, eqMoney),
		field("ganancia", func(b *db.Budget) *decimal.NullDecimal { return &b.Ganancia }, eqMoney),
		field("productos", func(b *db.Budget) **string { return &b.Productos }, eqStr),
		field("vendedor_id", func(b *db.Budget) *uint { return &b.VendorID }, eqID),
	},
}

var Opportunities = Kind[db.Opportunity]{
	Name:         string(record.FeedOpportunities),
	KeyColumn:    "nombre_grupo",
	VendorColumn: "vendedor",
	VendorName:   func(v db.Vendor) string { return v.NombreCompleto },
	Key:          func(o *db.Opportunity) string { return o.NombreGrupo },
	Build: func(rec record.Record, vendorID uint) db.Opportunity {
		return db.Opportunity{
			NombreGrupo:      rec.String("nombre_grupo"),
			GananciaEsperada: str(rec, "ganancia_esperada"),
			Estado:           str(rec, "estado"),
			VendorID:         vendorID,
		}
	},
	Fields: []Field[db.Opportunity]{
		field("ganancia_esperada", func(o *db.Opportunity) **string { return &o.GananciaEsperada }, eqStr),
		field("estado", func(o *db.Opportunity) **string { return &o.Estado }, eqStr),
		field("vendedor_id", func(o *db.Opportunity) *uint { return &o.VendorID }, eqID),
	},
	Check: func(o *db.Opportunity) string {
		if o.Estado != nil && !o.Stage().Known() {
			return "unknown opportunity stage: " + *o.Estado
		}
		return ""
	},
}
