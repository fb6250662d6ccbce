package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// znaki, których nie ma w hiszpańskim
const polishOnly = "ąćęłńśźżĄĆĘŁŃŚŹŻ"

func TestTrayTextsAreSpanish(t *testing.T) {
	texts := []string{trayReady, trayRunning, trayScheduled, trayStopped, trayStartError, trayConfError, trayDone("10:00", 1, 2, 3, 4)}
	for _, it := range trayItems("v1") {
		assert.NotEmpty(t, it.Title)
		texts = append(texts, it.Title, it.Tooltip)
	}
	for _, s := range texts {
		assert.False(t, strings.ContainsAny(s, polishOnly), s)
	}
	for _, w := range []string{"harmonogram", "przebieg", "Otwórz", "Wyjście", "programie"} {
		for _, s := range texts {
			assert.NotContains(t, s, w)
		}
	}
}

func TestTrayDone(t *testing.T) {
	assert.Equal(t, "OK 10:00: 1 nuevos, 2 actualizados, 3 errores, 4 descartados", trayDone("10:00", 1, 2, 3, 4))
	assert.Equal(t, "Acerca de (v1)", trayAbout("v1").Title)
}
