package pipeline

import (
	"context"
	"testing"

	"trainboard/pkg/config"
)

func TestPipelineIntegration_LiveStationPage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	p, err := FromConfig(config.Default(), nil)
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}

	diag := p.Diagnose(context.Background())
	if !diag.PageAccess {
		t.Skipf("Station page not reachable from here: %s", diag.Message)
	}

	res := p.Run(context.Background(), "")
	if !res.Success {
		t.Fatalf("Run failed: %s", res.Error)
	}

	for _, d := range append(res.Board.Toward, res.Board.Away...) {
		if d.Minutes < 0 {
			t.Errorf("Negative countdown: %+v", d)
		}
		if d.Destination == "" {
			t.Errorf("Departure missing destination: %+v", d)
		}
	}
}
