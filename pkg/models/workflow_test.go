package models

import "testing"

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from WorkflowPhase
		to   WorkflowPhase
		want bool
	}{
		{PhaseInitialization, PhaseDecomposition, true},
		{PhaseDecomposition, PhasePlanning, true},
		{PhasePlanning, PhaseAssignment, true},
		{PhaseAssignment, PhaseExecution, true},
		{PhaseExecution, PhaseMonitoring, true},
		{PhaseMonitoring, PhaseValidation, true},
		{PhaseValidation, PhaseCompletion, true},
		{PhaseInitialization, PhasePlanning, false},
		{PhaseExecution, PhaseDecomposition, false},
		{PhaseCompletion, PhaseErrorRecovery, false},
		{PhaseExecution, PhaseErrorRecovery, true},
		{PhaseErrorRecovery, PhaseAssignment, true},
		{PhaseErrorRecovery, PhaseCompletion, true},
		{PhaseErrorRecovery, PhaseExecution, false},
		{PhaseErrorRecovery, PhaseErrorRecovery, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestWorkflowProgressRecompute(t *testing.T) {
	p := WorkflowProgress{TotalTasks: 8, CompletedTasks: 2}
	p.Recompute()
	if p.Percentage != 25 {
		t.Errorf("expected 25%%, got %v", p.Percentage)
	}

	empty := WorkflowProgress{}
	empty.Recompute()
	if empty.Percentage != 0 {
		t.Errorf("expected 0%% for empty workflow, got %v", empty.Percentage)
	}
}

func TestAgentStatusAvailable(t *testing.T) {
	if !AgentStatusOnline.Available() || !AgentStatusIdle.Available() {
		t.Error("online and idle agents should be available")
	}
	for _, s := range []AgentStatus{AgentStatusBusy, AgentStatusOffline, AgentStatusError, AgentStatusMaintenance} {
		if s.Available() {
			t.Errorf("status %q should not be available", s)
		}
	}
}
