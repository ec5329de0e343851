package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"trainboard/pkg/departures"
)

func TestPrintBoard(t *testing.T) {
	var buf bytes.Buffer
	printBoard(&buf, departures.Board{
		Toward: []departures.Departure{{Platform: "1", Destination: "PERTH", TimeDisplay: "3 min", Minutes: 3, Stops: "All Stations"}},
	}, "Perth")

	out := buf.String()
	assert.Contains(t, out, "Toward Perth")
	assert.Contains(t, out, "Perth")
	assert.NotContains(t, out, "PERTH")
	assert.Contains(t, out, "All Stations")
	assert.Contains(t, out, "Away from Perth\nNo departures listed.")
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug", false))
	assert.NoError(t, setupLogging("warn", true))
	assert.Error(t, setupLogging("chatty", false))
}
