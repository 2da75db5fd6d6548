package cli

import (
	"context"
	"strings"
	"testing"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	cli := &JobsCLI{}
	_, err := cli.Trigger(context.Background(), "ledger:defragment")
	if err == nil || !strings.Contains(err.Error(), "unsupported job") {
		t.Fatalf("expected unsupported job error, got %v", err)
	}
}

func TestHelpersRequireConfiguration(t *testing.T) {
	var cli *JobsCLI
	if _, err := cli.TriggerIntegrityScan(context.Background(), 0, ""); err == nil {
		t.Fatal("expected error from nil client")
	}
	if _, err := (&JobsCLI{}).InspectQueue(context.Background()); err == nil {
		t.Fatal("expected error from missing inspector")
	}
	if _, err := (&JobsCLI{}).ListScheduled(context.Background(), 5); err == nil {
		t.Fatal("expected error from missing inspector")
	}
}
