package orchestrator

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunLog is an append-only SQLite record of orchestration activity. It is
// best-effort: callers ignore its errors so a broken log never blocks
// scheduling.
type RunLog struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// OpenRunLog opens (or creates) the run log database at the given path.
// WAL mode is enabled for concurrent reads.
func OpenRunLog(path string) (*RunLog, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create runlog directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open runlog: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	l := &RunLog{conn: conn, path: path}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the run log database.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Close()
}

// Path returns the path to the run log database file.
func (l *RunLog) Path() string {
	return l.path
}

// migrate applies all pending schema migrations.
func (l *RunLog) migrate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := l.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Events},
		{2, migrationV2Executions},
		{3, migrationV3Metrics},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := l.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Events = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	agent_id TEXT,
	task_id TEXT,
	workflow_id TEXT,
	detail TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_task_id ON events(task_id);
`

const migrationV2Executions = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_task_id ON executions(task_id);
CREATE INDEX IF NOT EXISTS idx_executions_agent_id ON executions(agent_id);
`

const migrationV3Metrics = `
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	total_agents INTEGER NOT NULL,
	online_agents INTEGER NOT NULL,
	active_workflows INTEGER NOT NULL,
	pending_tasks INTEGER NOT NULL,
	running_tasks INTEGER NOT NULL,
	completed_tasks INTEGER NOT NULL,
	failed_tasks INTEGER NOT NULL,
	success_rate REAL NOT NULL,
	recorded_at DATETIME NOT NULL
);
`

// RecordEvent appends one orchestration event row.
func (l *RunLog) RecordEvent(eventType, agentID, taskID, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn.Exec(`
		INSERT INTO events (event_type, agent_id, task_id, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, eventType, agentID, taskID, detail, formatTime(time.Now()))
}

// RecordPhase appends a workflow phase transition row.
func (l *RunLog) RecordPhase(workflowID, from, to string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn.Exec(`
		INSERT INTO events (event_type, workflow_id, detail, recorded_at)
		VALUES (?, ?, ?, ?)
	`, string(EventWorkflowPhaseChanged), workflowID, from+" -> "+to, formatTime(time.Now()))
}

// RecordExecution appends one finished execution row.
func (l *RunLog) RecordExecution(id, taskID, agentID, status string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn.Exec(`
		INSERT OR REPLACE INTO executions (id, task_id, agent_id, status, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, taskID, agentID, status, duration.Milliseconds(), formatTime(time.Now()))
}

// RecordMetrics appends one metrics snapshot row.
func (l *RunLog) RecordMetrics(m *Metrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn.Exec(`
		INSERT INTO metrics (total_agents, online_agents, active_workflows,
			pending_tasks, running_tasks, completed_tasks, failed_tasks,
			success_rate, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.TotalAgents, m.OnlineAgents, m.ActiveWorkflows, m.PendingTasks,
		m.RunningTasks, m.CompletedTasks, m.FailedTasks, m.SuccessRate,
		formatTime(m.Timestamp))
}

// PurgeOldEvents deletes event rows older than the given age. Returns the
// number of rows deleted.
func (l *RunLog) PurgeOldEvents(olderThan time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result, err := l.conn.Exec(`
		DELETE FROM events WHERE recorded_at < ?
	`, formatTime(time.Now().Add(-olderThan)))
	if err != nil {
		return 0, fmt.Errorf("purge old events: %w", err)
	}
	return result.RowsAffected()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
