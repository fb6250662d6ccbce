package main

import "fmt"

// Teksty widoczne w tray (użytkownicy biura: hiszpański). Logi zostają po polsku.
type trayItem struct {
	Title   string
	Tooltip string
}

var (
	trayRun      = trayItem{"Ejecutar ETL ahora", "Una corrida sobre la ventana configurada"}
	trayStart    = trayItem{"Iniciar programación", "Corre el ETL cada intervalo configurado"}
	trayStop     = trayItem{"Detener programación", "Detiene las corridas programadas"}
	trayLogs     = trayItem{"Abrir log", "Muestra el archivo de log"}
	trayConfig   = trayItem{"Configuración (config.json)", "Abre el archivo de configuración"}
	trayRejected = trayItem{"Rechazados", "Carpeta con las filas rechazadas"}
	trayReload   = trayItem{"Recargar configuración", "Vuelve a leer config.json"}
	trayQuit     = trayItem{"Salir", "Cierra la aplicación"}
)

const (
	trayReady      = "listo"
	trayRunning    = "ETL en curso…"
	trayScheduled  = "programación activa"
	trayStopped    = "detenido"
	trayStartError = "error al iniciar"
	trayConfError  = "error de configuración"
)

func trayAbout(ver string) trayItem {
	return trayItem{fmt.Sprintf("Acerca de (%s)", ver), ""}
}

func trayItems(ver string) []trayItem {
	return []trayItem{trayRun, trayStart, trayStop, trayLogs, trayConfig, trayRejected, trayReload, trayAbout(ver), trayQuit}
}

func trayDone(at string, n, u, e, d int) string {
	return fmt.Sprintf("OK %s: %d nuevos, %d actualizados, %d errores, %d descartados", at, n, u, e, d)
}
