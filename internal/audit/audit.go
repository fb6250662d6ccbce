// Package audit writes rejected feed rows (duplicate or missing natural key)
// to an xlsx file for manual review.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tsatrips/dodoetl/internal/normalize"
	"github.com/tsatrips/dodoetl/internal/record"
)

const reasonColumn = "motivo"

// FileName: rechazados_<feed>_<YYYYMMDD-HHMMSS>.xlsx
func FileName(feed record.Feed, at time.Time) string {
	return fmt.Sprintf("rechazados_%s_%s.xlsx", feed, at.Format("20060102-150405"))
}

// WriteRejected saves rejected rows under dir and returns the file path.
// Nothing is written when there is nothing to report.
func WriteRejected(dir string, feed record.Feed, at time.Time, res normalize.Result) (string, error) {
	if len(res.Rejected) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(feed, at))

	f := excelize.NewFile()
	defer f.Close()

	sheet := string(feed)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return "", err
	}

	header := append([]any{reasonColumn}, toAny(res.Clean.Columns)...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", err
	}
	for i, rj := range res.Rejected {
		row := make([]any, 0, len(header))
		row = append(row, string(rj.Reason))
		for _, c := range res.Clean.Columns {
			row = append(row, cell(rj.Row[c]))
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return "", err
		}
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case time.Time:
		return x.Format("2006-01-02")
	}
	return v
}
