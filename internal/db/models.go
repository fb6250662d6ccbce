// internal/db/models.go
package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// vendedores – słownik sprzedawców, zakładany tylko ręcznie
type Vendor struct {
	VendorID       uint   `gorm:"primaryKey;column:vendedor_id"`
	NombreCompleto string `gorm:"column:nombre_completo;size:150;not null;uniqueIndex"`
	Nombre         string `gorm:"column:nombre;size:50;not null"`
}

func (Vendor) TableName() string { return "vendedores" }

// reservas
type Reservation struct {
	ReservaID        uint                `gorm:"primaryKey;column:reserva_id"`
	Reserva          string              `gorm:"column:reserva;size:6;not null;uniqueIndex"`
	TipoReserva      *string             `gorm:"column:tipo_reserva;size:4"`
	UltimaModif      *time.Time          `gorm:"column:ultima_modif;type:date"`
	FechaReserva     *time.Time          `gorm:"column:fecha_reserva;type:date"`
	FechaSalida      *time.Time          `gorm:"column:fecha_salida;type:date"`
	FechaFin         *time.Time          `gorm:"column:fecha_fin;type:date"`
	Cliente          *string             `gorm:"column:cliente;size:255"`
	NombreGrupo      *string             `gorm:"column:nombre_grupo;size:255"`
	Estado           *string             `gorm:"column:estado;size:2"`
	CanAdu           *int                `gorm:"column:can_adu"`
	CanChd           *int                `gorm:"column:can_chd"`
	Moneda           *string             `gorm:"column:moneda;size:2"`
	Total            decimal.NullDecimal `gorm:"column:total;type:decimal(14,2)"`
	Ganancia         decimal.NullDecimal `gorm:"column:ganancia;type:decimal(14,2)"`
	EjeReservasPara  *string             `gorm:"column:eje_reservas_para;size:200"`
	DescripProductos *string             `gorm:"column:descrip_productos;size:255"`
	VendorID         uint                `gorm:"column:vendedor_id;not null;index"`
	Vendor           *Vendor             `gorm:"foreignKey:VendorID;references:VendorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Reservation) TableName() string { return "reservas" }

// presupuestos
type Budget struct {
	PresupuestoID uint                `gorm:"primaryKey;column:presupuesto_id"`
	Reserva       string              `gorm:"column:reserva;size:6;not null;uniqueIndex"`
	TipoReserva   *string             `gorm:"column:tipo_reserva;size:4"`
	UltimaModif   *time.Time          `gorm:"column:ultima_modif;type:date"`
	FechaReserva  *time.Time          `gorm:"column:fecha_reserva;type:date"`
	FechaSalida   *time.Time          `gorm:"column:fecha_salida;type:date"`
	Cliente       *string             `gorm:"column:cliente;size:255"`
	NombreGrupo   *string             `gorm:"column:nombre_grupo;size:255"`
	Estado        *string             `gorm:"column:estado;size:2"`
	CanAdu        *int                `gorm:"column:can_adu"`
	CanChd        *int                `gorm:"column:can_chd"`
	Moneda        *string             `gorm:"column:moneda;size:2"`
	Total         decimal.NullDecimal `gorm:"column:total;type:decimal(14,2)"`
	CostoFinal    decimal.NullDecimal `gorm:"column:costo_final;type:decimal(14,2)"`
	Ganancia      decimal.NullDecimal `gorm:"column:ganancia;type:decimal(14,2)"`
	Productos     *string             `gorm:"column:productos;size:255"`
	VendorID      uint                `gorm:"column:vendedor_id;not null;index"`
	Vendor        *Vendor             `gorm:"foreignKey:VendorID;references:VendorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Budget) TableName() string { return "presupuestos" }

// oddos (CRM)
type Opportunity struct {
	OddoID           uint    `gorm:"primaryKey;column:oddo_id"`
	NombreGrupo      string  `gorm:"column:nombre_grupo;size:255;not null;uniqueIndex"`
	GananciaEsperada *string `gorm:"column:ganancia_esperada;size:100"`
	Estado           *string `gorm:"column:estado;size:50"`
	VendorID         uint    `gorm:"column:vendedor_id;not null;index"`
	Vendor           *Vendor `gorm:"foreignKey:VendorID;references:VendorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Opportunity) TableName() string { return "oddos" }

// Stage zwraca etap lejka CRM (nieznane -> StageUnknown).
func (o *Opportunity) Stage() Stage {
	if o.Estado == nil {
		return StageUnknown
	}
	return ParseStage(*o.Estado)
}
