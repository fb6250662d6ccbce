//go:build !windows || dev

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tsatrips/dodoetl/internal/db"
	"github.com/tsatrips/dodoetl/internal/syncer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           appName,
		Short:         "Traffic / Odoo -> base de ventas",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = bootstrap(cmd.Name() == appName)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return shell(cmd.Context(), a, os.Stdin, cmd.OutOrStdout())
		},
	}

	var from, to string
	run := &cobra.Command{
		Use:   "run",
		Short: "Jeden przebieg ETL (domyślnie okno z configa)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, t := a.sync.Window()
			var err error
			if from != "" {
				if f, err = parseDay(from); err != nil {
					return err
				}
			}
			if to != "" {
				if t, err = parseDay(to); err != nil {
					return err
				}
			}
			rep, err := a.sync.RunOnce(cmd.Context(), f, t)
			printReport(cmd.OutOrStdout(), rep)
			return err
		},
	}
	run.Flags().StringVar(&from, "from", "", "fecha desde (YYYY-MM-DD)")
	run.Flags().StringVar(&to, "to", "", "fecha hasta, exclusiva (YYYY-MM-DD)")

	vendor := &cobra.Command{Use: "vendor", Short: "Vendedores"}

	var full, short string
	vendorAdd := &cobra.Command{
		Use:   "add",
		Short: "Dodaj sprzedawcę",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.store.CreateVendor(cmd.Context(), db.VendorInput{NombreCompleto: full, Nombre: short})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vendedor %d: %s (%s)\n", v.VendorID, v.NombreCompleto, v.Nombre)
			return nil
		},
	}
	vendorAdd.Flags().StringVar(&full, "full", "", "nombre completo (como en Traffic / Odoo)")
	vendorAdd.Flags().StringVar(&short, "short", "", "nombre corto (como en presupuestos)")
	_ = vendorAdd.MarkFlagRequired("full")
	_ = vendorAdd.MarkFlagRequired("short")

	vendorList := &cobra.Command{
		Use:   "list",
		Short: "Lista sprzedawców",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listVendors(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
	vendor.AddCommand(vendorAdd, vendorList)

	stages := &cobra.Command{
		Use:   "stages",
		Short: "Etapy CRM rozpoznawane przy imporcie",
		// bez bazy i configa
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			for _, s := range db.Stages() {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
		},
	}

	root.AddCommand(run, vendor, stages)
	return root
}

func listVendors(ctx context.Context, a *app, w io.Writer) error {
	vs, err := a.store.ListVendors(ctx)
	if err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Nombre completo", "Nombre"})
	for _, v := range vs {
		tw.AppendRow(table.Row{v.VendorID, v.NombreCompleto, v.Nombre})
	}
	tw.Render()
	return nil
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

const shellHelp = "Komendy: start | stop | run [od do] | vendor <pełna>;<krótka> | vendors | reload | status | paths | quit"

// shell: prosta pętla poleceń w terminalu
func shell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	s := a.sync

	// AutoStart tak jak w GUI
	if a.cfg.AutoStart {
		if err := s.Start(ctx); err != nil {
			a.log.Error().Msgf("AutoStart nieudany: %v", err)
		} else {
			a.log.Info().Msgf("dodoetl %s, harmonogram działa", ver)
		}
	}

	fmt.Fprintln(out, "dodoetl CLI", ver)
	fmt.Fprintln(out, shellHelp)
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return nil // EOF
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		cmd = strings.ToLower(cmd)

		switch cmd {
		case "start":
			if err := s.Start(ctx); err != nil {
				fmt.Fprintln(out, "Błąd startu:", err)
				continue
			}
			fmt.Fprintln(out, "Start OK")
		case "stop":
			s.Stop()
			fmt.Fprintln(out, "Zatrzymano")
		case "run":
			from, to := s.Window()
			if f, t, ok := strings.Cut(strings.TrimSpace(arg), " "); ok {
				var err1, err2 error
				from, err1 = parseDay(f)
				to, err2 = parseDay(t)
				if err := errors.Join(err1, err2); err != nil {
					fmt.Fprintln(out, err)
					continue
				}
			}
			rep, err := s.RunOnce(ctx, from, to)
			printReport(out, rep)
			if err != nil {
				fmt.Fprintln(out, "Błąd:", err)
			}
		case "vendor":
			full, short, ok := strings.Cut(arg, ";")
			if !ok {
				fmt.Fprintln(out, "Użycie: vendor <nombre completo>;<nombre>")
				continue
			}
			v, err := a.store.CreateVendor(ctx, db.VendorInput{NombreCompleto: full, Nombre: short})
			if err != nil {
				fmt.Fprintln(out, "Błąd:", err)
				continue
			}
			fmt.Fprintf(out, "Vendedor %d: %s\n", v.VendorID, v.NombreCompleto)
		case "vendors":
			if err := listVendors(ctx, a, out); err != nil {
				fmt.Fprintln(out, "Błąd:", err)
			}
		case "reload":
			if err := a.reload(); err != nil {
				a.log.Error().Msgf("Błąd reloadu: %v", err)
				fmt.Fprintln(out, "Błąd reloadu:", err)
				continue
			}
			fmt.Fprintln(out, "Konfiguracja przeładowana")
		case "status":
			printStatus(out, s.Status())
		case "paths":
			fmt.Fprintln(out, "Logi:", a.logPath)
			fmt.Fprintln(out, "Config:", a.cfgPath)
			fmt.Fprintln(out, "Baza:", a.store.Driver)
			if dir := a.cfg.AuditPath(a.dir); dir != "" {
				fmt.Fprintln(out, "Rechazados:", dir)
			}
		case "quit", "exit":
			s.Stop()
			return nil
		case "":
			// enter – ignoruj
		default:
			fmt.Fprintln(out, "Nieznana komenda.", shellHelp)
		}
	}
}

func printStatus(out io.Writer, st syncer.Status) {
	switch {
	case st.Busy:
		fmt.Fprintln(out, "Status: PRZEBIEG W TOKU")
	case st.Running:
		fmt.Fprintln(out, "Status: DZIAŁA, następny:", st.NextTick.Format(time.DateTime))
	default:
		fmt.Fprintln(out, "Status: ZATRZYMANY")
	}
	if st.Runs == 0 {
		return
	}
	res := "OK"
	if st.LastErr != nil {
		res = st.LastErr.Error()
	}
	fmt.Fprintf(out, "Ostatni przebieg: %s (%s), przebiegów: %d\n", st.LastRun.Format(time.DateTime), res, st.Runs)
}
