package tracker

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
)

// Log zapisuje podsumowanie jako pola strukturalne.
func (s Summary) Log(log zerolog.Logger) {
	log.Info().
		Str("entity", s.Entity).
		Time("start", s.Start).
		Time("end", s.End).
		Dur("elapsed", s.Elapsed).
		Int("processed", s.Counts.Processed).
		Int("new", s.Counts.New).
		Int("updated", s.Counts.Updated).
		Int("unchanged", s.Counts.Unchanged).
		Int("errors", s.Counts.Errors).
		Int("discarded", s.Counts.Discarded).
		Msg("load summary")
}

// RenderTable prints the run summaries as a plain text table.
func RenderTable(w io.Writer, sums []Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Entidad", "Procesadas", "Nuevos", "Actualizados", "Sin cambios", "Errores", "Descartados", "Duración"})

	var tot Counts
	for _, s := range sums {
		tw.AppendRow(table.Row{
			s.Entity, s.Counts.Processed, s.Counts.New, s.Counts.Updated,
			s.Counts.Unchanged, s.Counts.Errors, s.Counts.Discarded, s.Elapsed.Round(1e6).String(),
		})
		tot.Processed += s.Counts.Processed
		tot.New += s.Counts.New
		tot.Updated += s.Counts.Updated
		tot.Unchanged += s.Counts.Unchanged
		tot.Errors += s.Counts.Errors
		tot.Discarded += s.Counts.Discarded
	}
	tw.AppendFooter(table.Row{"Total", tot.Processed, tot.New, tot.Updated, tot.Unchanged, tot.Errors, tot.Discarded, ""})
	tw.Render()
}

// RenderErrors lists failed keys (CLI detail view).
func RenderErrors(w io.Writer, t *Tracker) {
	if len(t.errors) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(t.entity + ": errores")
	tw.AppendHeader(table.Row{"Clave", "Detalle"})
	for _, e := range t.errors {
		tw.AppendRow(table.Row{e.Key, e.Detail})
	}
	tw.Render()
}
