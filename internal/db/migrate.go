package db

import "fmt"

// Migrate tworzy/aktualizuje schemat bazy. Vendors first: pozostałe tabele
// mają do nich klucz obcy.
func (h *Handle) Migrate() error {
	if err := h.DB.AutoMigrate(
		&Vendor{},
		&Reservation{},
		&Budget{},
		&Opportunity{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}
