package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trainboard/pkg/departures"
	"trainboard/pkg/pipeline"
)

func TestRenderBucket(t *testing.T) {
	out := renderBucket("Toward Perth", []departures.Departure{
		{Platform: "1", Destination: "Perth", Minutes: 0, Stops: "All Stations"},
		{Platform: "1", Destination: "Perth", Minutes: 12, Stops: "K Pattern"},
	})

	assert.Contains(t, out, "Toward Perth")
	assert.Contains(t, out, "now")
	assert.Contains(t, out, "12 min")
	assert.Contains(t, out, "platform 1, K Pattern")

	assert.Contains(t, renderBucket("Away from Perth", nil), "No departures listed.")
}

func TestRenderDiagnostics(t *testing.T) {
	out := renderDiagnostics(pipeline.Diagnostics{
		PageAccess: true,
		Records:    0,
		Message:    "no token",
	})
	assert.Contains(t, out, "Station page reachable")
	assert.Contains(t, out, "0 departure records")
	assert.Contains(t, out, "no token")
}

func TestValidHex(t *testing.T) {
	assert.NoError(t, validHex("#00A650"))
	assert.Error(t, validHex("00A650"))
	assert.Error(t, validHex("#00A65"))
	assert.Error(t, validHex("#00A6ZZ"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Armadale Line", "Thornlie Line"}, splitList(" Armadale Line, ,Thornlie Line "))
	assert.Nil(t, splitList(""))
}

func TestGetThemeFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, GetTheme(nil))
}
