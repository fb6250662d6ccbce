//go:build windows && !dev

package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/getlantern/systray"
)

//go:embed assets/icon.ico
var iconData []byte

func main() {
	a, err := bootstrap(false)
	if err != nil {
		// brak konsoli w trybie tray – zostaje tylko stderr / kod wyjścia
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.close()
	log := a.log
	s := a.sync

	// kontekst sterujący życiem procesu (CTRL+C / zamknięcie sesji)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// jeśli proces dostanie sygnał – zatrzymaj syncer i zamknij tray
	go func() {
		<-ctx.Done()
		s.Stop()
		systray.Quit()
	}()

	tooltip := func(state string) {
		systray.SetTooltip(fmt.Sprintf("dodoetl %s: %s", ver, state))
	}

	systray.Run(func() {
		// onReady
		if len(iconData) > 0 {
			systray.SetIcon(iconData)
		}
		tooltip(trayReady)

		add := func(it trayItem) *systray.MenuItem { return systray.AddMenuItem(it.Title, it.Tooltip) }

		mRun := add(trayRun)
		mStart := add(trayStart)
		mStop := add(trayStop)
		mStop.Disable()

		systray.AddSeparator()
		mOpenLogs := add(trayLogs)
		mOpenCfg := add(trayConfig)
		mOpenAudit := add(trayRejected)
		mReload := add(trayReload)
		systray.AddSeparator()
		mAbout := add(trayAbout(ver))
		mQuit := add(trayQuit)

		// AutoStart harmonogramu (nie mylić z autostartem Windows!)
		if a.cfg.AutoStart {
			if err := s.Start(ctx); err == nil {
				mStart.Disable()
				mStop.Enable()
				tooltip(trayScheduled)
			} else {
				log.Error().Msgf("AutoStart nieudany: %v", err)
				tooltip(trayStartError)
			}
		}

		// przebieg w tle; tray pokazuje tylko status końcowy
		runNow := func() {
			mRun.Disable()
			tooltip(trayRunning)
			go func() {
				defer mRun.Enable()
				rep, err := a.runWindow(ctx)
				switch {
				case err != nil:
					log.Error().Err(err).Msg("ETL z tray zakończony błędem")
					tooltip("error: " + err.Error())
				default:
					var n, u, e, d int
					for _, sum := range rep.Summaries() {
						n += sum.Counts.New
						u += sum.Counts.Updated
						e += sum.Counts.Errors
						d += sum.Counts.Discarded
					}
					tooltip(trayDone(time.Now().Format("15:04"), n, u, e, d))
				}
			}()
		}

		go func() {
			for {
				select {
				case <-mRun.ClickedCh:
					runNow()

				case <-mStart.ClickedCh:
					if err := s.Start(ctx); err != nil {
						log.Error().Msgf("Start error: %v", err)
						tooltip(trayStartError)
						continue
					}
					mStart.Disable()
					mStop.Enable()
					tooltip(trayScheduled)

				case <-mStop.ClickedCh:
					s.Stop()
					mStop.Disable()
					mStart.Enable()
					tooltip(trayStopped)

				case <-mOpenLogs.ClickedCh:
					openInExplorer(a.logPath)

				case <-mOpenCfg.ClickedCh:
					openInExplorer(a.cfgPath)

				case <-mOpenAudit.ClickedCh:
					if dir := a.cfg.AuditPath(a.dir); dir != "" {
						_ = os.MkdirAll(dir, 0o755)
						openInExplorer(dir)
					}

				case <-mReload.ClickedCh:
					if err := a.reload(); err != nil {
						log.Error().Msgf("Błąd reloadu: %v", err)
						tooltip(trayConfError)
					}

				case <-mAbout.ClickedCh:
					log.Info().Msgf("dodoetl %s | %s", ver, runtime.Version())

				case <-mQuit.ClickedCh:
					// łagodne zamykanie
					cancel()
					s.Stop()
					systray.Quit()
					return
				}
			}
		}()
	}, func() {
		// onExit: daj chwilę loggerowi na flush
		time.Sleep(50 * time.Millisecond)
	})
}
