package store

const schema = `
CREATE TABLE IF NOT EXISTS machines (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    hostname TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS session_activity (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    machine_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    project_id TEXT,
    duration INTEGER NOT NULL DEFAULT 0,
    tools_used TEXT NOT NULL,
    commands_run TEXT NOT NULL,
    files_accessed TEXT NOT NULL,
    errors TEXT NOT NULL,
    startup_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    tool_tokens INTEGER NOT NULL DEFAULT 0,
    context_tokens INTEGER NOT NULL DEFAULT 0,
    detected_patterns TEXT NOT NULL,
    detected_techs TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    UNIQUE (machine_id, session_id),
    FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS usage_patterns (
    machine_id TEXT NOT NULL,
    pattern_type TEXT NOT NULL,
    occurrences INTEGER NOT NULL,
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL,
    confidence REAL NOT NULL,
    technologies TEXT NOT NULL,
    PRIMARY KEY (machine_id, pattern_type),
    FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS pattern_projects (
    machine_id TEXT NOT NULL,
    pattern_type TEXT NOT NULL,
    project_id TEXT NOT NULL,
    PRIMARY KEY (machine_id, pattern_type, project_id),
    FOREIGN KEY (machine_id, pattern_type) REFERENCES usage_patterns(machine_id, pattern_type) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS technology_usage (
    machine_id TEXT NOT NULL,
    technology TEXT NOT NULL,
    session_count INTEGER NOT NULL,
    command_count INTEGER NOT NULL,
    project_count INTEGER NOT NULL,
    last_used TIMESTAMP NOT NULL,
    PRIMARY KEY (machine_id, technology),
    FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS recommendations (
    id TEXT PRIMARY KEY,
    machine_id TEXT NOT NULL,
    category TEXT NOT NULL,
    status TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    estimated_token_savings INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS health_scores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    machine_id TEXT NOT NULL,
    composite INTEGER NOT NULL,
    mcp_score INTEGER NOT NULL,
    skill_score INTEGER NOT NULL,
    context_score INTEGER NOT NULL,
    pattern_score INTEGER NOT NULL,
    active_recommendations INTEGER NOT NULL,
    applied_recommendations INTEGER NOT NULL,
    dismissed_recommendations INTEGER NOT NULL,
    estimated_waste INTEGER NOT NULL,
    estimated_savings INTEGER NOT NULL,
    previous_score INTEGER,
    trend TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_machine ON session_activity(machine_id);
CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON session_activity(timestamp);
CREATE INDEX IF NOT EXISTS idx_recommendations_machine ON recommendations(machine_id);
CREATE INDEX IF NOT EXISTS idx_health_scores_machine ON health_scores(machine_id, created_at);
`
