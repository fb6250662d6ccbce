package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var ErrVendorExists = errors.New("vendor already exists")

// VendorInput – ręczne dodanie sprzedawcy (GUI / CLI).
type VendorInput struct {
	NombreCompleto string `validate:"required,max=150"`
	Nombre         string `validate:"required,max=50"`
}

var validate = validator.New()

// CreateVendor trims and upper-cases both names, so the reference table
// matches what the normalizer produces for feed values.
func (h *Handle) CreateVendor(ctx context.Context, in VendorInput) (*Vendor, error) {
	in.NombreCompleto = strings.ToUpper(strings.TrimSpace(in.NombreCompleto))
	in.Nombre = strings.ToUpper(strings.TrimSpace(in.Nombre))
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid vendor: %w", err)
	}

	var n int64
	if err := h.DB.WithContext(ctx).Model(&Vendor{}).
		Where("nombre_completo = ?", in.NombreCompleto).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: %s", ErrVendorExists, in.NombreCompleto)
	}

	v := &Vendor{NombreCompleto: in.NombreCompleto, Nombre: in.Nombre}
	if err := h.DB.WithContext(ctx).Create(v).Error; err != nil {
		return nil, fmt.Errorf("insert vendor: %w", err)
	}
	return v, nil
}

func (h *Handle) ListVendors(ctx context.Context) ([]Vendor, error) {
	var out []Vendor
	err := h.DB.WithContext(ctx).Order("nombre_completo").Find(&out).Error
	return out, err
}

func (h *Handle) FindVendor(ctx context.Context, fullName string) (*Vendor, error) {
	var v Vendor
	err := h.DB.WithContext(ctx).
		Where("nombre_completo = ?", strings.ToUpper(strings.TrimSpace(fullName))).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
