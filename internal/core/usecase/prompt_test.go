package usecase

import (
	"strings"
	"testing"
)

func TestRenderFillsAllPlaceholders(t *testing.T) {
	out := render("ask {count} about {question}", map[string]string{
		"count":    "3",
		"question": "warranties",
	})
	if out != "ask 3 about warranties" {
		t.Fatalf("unexpected render output: %q", out)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out := render("{known} and {unknown}", map[string]string{"known": "yes"})
	if out != "yes and {unknown}" {
		t.Fatalf("unexpected render output: %q", out)
	}
}

func TestAnswerTemplateHasRequiredSlots(t *testing.T) {
	for _, slot := range []string{"{question}", "{context}"} {
		if !strings.Contains(answerTemplate, slot) {
			t.Fatalf("answer template missing %s", slot)
		}
	}
}

func TestExpansionTemplateHasRequiredSlots(t *testing.T) {
	for _, slot := range []string{"{question}", "{count}"} {
		if !strings.Contains(queryExpansionTemplate, slot) {
			t.Fatalf("expansion template missing %s", slot)
		}
	}
}
