package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"typologylab/internal/app"
	"typologylab/internal/domain"
)

func TestScoreCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"score", "--gender", "female", "--", "-2", "-1", "-2"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var outcome app.Outcome
	if err := json.Unmarshal(out.Bytes(), &outcome); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if outcome.Archetype != domain.ArchetypeTetoFemale || outcome.Score != -5 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestScoreCommandRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"score", "--gender", "robot", "1"},
		{"score", "--gender", "male", "one"},
		{"score", "1"},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
