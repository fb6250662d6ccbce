package normalize

import (
	"fmt"

	"github.com/tsatrips/dodoetl/internal/record"
)

// Kolumny po normalizacji (nazwy kolumn w bazie).
const (
	ColReserva          = "reserva"
	ColTipoReserva      = "tipo_reserva"
	ColUltimaModif      = "ultima_modif"
	ColFechaReserva     = "fecha_reserva"
	ColFechaSalida      = "fecha_salida"
	ColFechaFin         = "fecha_fin"
	ColCliente          = "cliente"
	ColNombreGrupo      = "nombre_grupo"
	ColEstado           = "estado"
	ColCanAdu           = "can_adu"
	ColCanChd           = "can_chd"
	ColMoneda           = "moneda"
	ColVendedor         = "vendedor"
	ColTotal            = "total"
	ColCostoFinal       = "costo_final"
	ColGanancia         = "ganancia"
	ColProductos        = "productos"
	ColEjeReservasPara  = "eje_reservas_para"
	ColDescripProductos = "descrip_productos"
	ColGananciaEsperada = "ganancia_esperada"
)

// Reservations: back office "reservas" list.
var Reservations = Config{
	Feed:        record.FeedReservations,
	DropColumns: []string{"Idreserva"},
	Rename: map[string]string{
		"Rva":                     ColReserva,
		"Tiporva":                 ColTipoReserva,
		"Fec_mod":                 ColUltimaModif,
		"Fec_rva":                 ColFechaReserva,
		"Fec_sal":                 ColFechaSalida,
		"Fec_fin":                 ColFechaFin,
		"Nombreagencia_cod_agcia": ColCliente,
		"Nombregrupo":             ColNombreGrupo,
		"Estado":                  ColEstado,
		"Can_adu":                 ColCanAdu,
		"Can_chd":                 ColCanChd,
		"Moneda":                  ColMoneda,
		"Descripparame_moneda":    ColMoneda,
		"Nombrevendedor_cod_vdor": ColVendedor,
		"Total":                   ColTotal,
		"gananciaTotal":           ColGanancia,
		"Tipocont":                ColEjeReservasPara,
		"Descripparame_productos": ColDescripProductos,
	},
	DateColumns:  []string{ColUltimaModif, ColFechaReserva, ColFechaSalida, ColFechaFin},
	RoundColumns: []string{ColTotal, ColGanancia},
	IntColumns:   []string{ColCanAdu, ColCanChd},
	KeyColumn:    ColReserva,
	VendorColumn: ColVendedor,
}

// Budgets: back office "presupuestos" list. Group name comes from Observ.
var Budgets = Config{
	Feed:        record.FeedBudgets,
	DropColumns: []string{"Idpresupu"},
	Rename: map[string]string{
		"Rva":                     ColReserva,
		"Tiporva":                 ColTipoReserva,
		"Fec_mod":                 ColUltimaModif,
		"Fec_rva":                 ColFechaReserva,
		"Fec_sal":                 ColFechaSalida,
		"Nombreagencia_cod_agcia": ColCliente,
		"Observ":                  ColNombreGrupo,
		"Estado":                  ColEstado,
		"Can_adu":                 ColCanAdu,
		"Can_chd":                 ColCanChd,
		"Moneda":                  ColMoneda,
		"Nombrevendedor_cod_vdor": ColVendedor,
		"Total":                   ColTotal,
		"costoConIva":             ColCostoFinal,
		"GananciaTotal":           ColGanancia,
		"Productos":               ColProductos,
	},
	DateColumns:  []string{ColUltimaModif, ColFechaReserva, ColFechaSalida},
	RoundColumns: []string{ColTotal, ColCostoFinal, ColGanancia},
	IntColumns:   []string{ColCanAdu, ColCanChd},
	KeyColumn:    ColReserva,
	VendorColumn: ColVendedor,
}

// Opportunities: CRM leads keyed by group name.
var Opportunities = Config{
	Feed:        record.FeedOpportunities,
	DropColumns: []string{"email_from"},
	Rename: map[string]string{
		"name":             ColNombreGrupo,
		"user_id":          ColVendedor,
		"expected_revenue": ColGananciaEsperada,
		"stage_id":         ColEstado,
	},
	KeyColumn:    ColNombreGrupo,
	VendorColumn: ColVendedor,
	Cleaners: map[string]func(string) string{
		ColGananciaEsperada: NoBreakSpaces,
	},
}

// ForFeed zwraca konfigurację dla feedu.
func ForFeed(f record.Feed) (Config, error) {
	switch f {
	case record.FeedReservations:
		return Reservations, nil
	case record.FeedBudgets:
		return Budgets, nil
	case record.FeedOpportunities:
		return Opportunities, nil
	}
	return Config{}, fmt.Errorf("%w: unknown feed %q", ErrConfig, f)
}
