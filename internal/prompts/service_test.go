package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePromptFile(t *testing.T, dir, key, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, key+".yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write prompt file: %v", err)
	}
}

func TestGetPromptPrefersKeySpecific(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "decomposition", `
system_prompt: "generic prompt"
decomposition_prompt: "split the task"
version: "1.0"
compatibility: ["claude"]
`)

	svc := NewService(dir)
	if got := svc.GetPrompt("decomposition"); got != "split the task" {
		t.Errorf("GetPrompt = %q, want key-specific prompt", got)
	}
}

func TestGetPromptFallsBackToSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "coordination", `
system_prompt: "coordinate agents"
version: "1.0"
compatibility: ["claude"]
`)

	svc := NewService(dir)
	if got := svc.GetPrompt("coordination"); got != "coordinate agents" {
		t.Errorf("GetPrompt = %q, want system_prompt", got)
	}
}

func TestGetPromptMissingFileUsesBuiltin(t *testing.T) {
	svc := NewService(t.TempDir())
	got := svc.GetPrompt("atomic_detection")
	if !strings.Contains(got, "isAtomic") {
		t.Errorf("expected built-in atomic_detection prompt, got %q", got)
	}
	if got := svc.GetPrompt("no_such_key"); !strings.Contains(got, "no_such_key") {
		t.Errorf("generic fallback should name the key, got %q", got)
	}
}

func TestGetPromptMalformedFileUsesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "decomposition", "::: not yaml {{{")

	svc := NewService(dir)
	got := svc.GetPrompt("decomposition")
	if !strings.Contains(got, "sub-tasks") {
		t.Errorf("expected built-in decomposition prompt, got %q", got)
	}
}

func TestGetPromptWithVariables(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "escalation", `
system_prompt: "task {{task_id}} failed {{count}} times; {{unknown}} stays"
version: "1.0"
compatibility: ["claude"]
`)

	svc := NewService(dir)
	got := svc.GetPromptWithVariables("escalation", map[string]string{
		"task_id": "T0001",
		"count":   "3",
	})
	want := "task T0001 failed 3 times; {{unknown}} stays"
	if got != want {
		t.Errorf("GetPromptWithVariables = %q, want %q", got, want)
	}
}

func TestReloadPromptPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "agent_system", `
system_prompt: "v1"
version: "1.0"
compatibility: ["claude"]
`)

	svc := NewService(dir)
	if got := svc.GetPrompt("agent_system"); got != "v1" {
		t.Fatalf("initial prompt = %q", got)
	}

	writePromptFile(t, dir, "agent_system", `
system_prompt: "v2"
version: "1.1"
compatibility: ["claude"]
`)

	// Cached value survives until an explicit reload.
	if got := svc.GetPrompt("agent_system"); got != "v1" {
		t.Errorf("cached prompt = %q, want v1", got)
	}
	if err := svc.ReloadPrompt("agent_system"); err != nil {
		t.Fatalf("ReloadPrompt: %v", err)
	}
	if got := svc.GetPrompt("agent_system"); got != "v2" {
		t.Errorf("reloaded prompt = %q, want v2", got)
	}
}

func TestValidateAllPrompts(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "good", `
system_prompt: "fine"
version: "1.0"
compatibility: ["claude"]
`)
	writePromptFile(t, dir, "noversion", `
system_prompt: "fine"
compatibility: ["claude"]
`)
	writePromptFile(t, dir, "nocompat", `
system_prompt: "fine"
version: "1.0"
`)

	svc := NewService(dir)
	failures := svc.ValidateAllPrompts()
	if _, ok := failures["good"]; ok {
		t.Errorf("good prompt should validate, got %v", failures["good"])
	}
	if _, ok := failures["noversion"]; !ok {
		t.Errorf("expected failure for missing version")
	}
	if _, ok := failures["nocompat"]; !ok {
		t.Errorf("expected failure for missing compatibility")
	}
}

func TestGetAvailablePromptTypes(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, "alpha", "system_prompt: a\n")
	writePromptFile(t, dir, "beta", "system_prompt: b\n")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(dir)
	keys := svc.GetAvailablePromptTypes()
	if len(keys) != 2 {
		t.Fatalf("GetAvailablePromptTypes = %v, want 2 keys", keys)
	}
}
