package store

// Schema contains the complete DDL for the domheal tables.
const Schema = `
-- DOM snapshots: compressed structural captures keyed by normalized URL.
-- (normalized_url, snapshot_hash) is the dedup identity: re-capturing an
-- unchanged page must never grow storage.
CREATE TABLE IF NOT EXISTS dom_snapshots (
    id             TEXT PRIMARY KEY,
    normalized_url TEXT NOT NULL,
    snapshot_data  TEXT NOT NULL,
    snapshot_hash  TEXT NOT NULL,
    page_title     TEXT NOT NULL DEFAULT '',
    metadata       TEXT NOT NULL DEFAULT '',
    compressed     INTEGER NOT NULL DEFAULT 1,
    captured_at    INTEGER NOT NULL,
    expires_at     INTEGER NOT NULL,
    UNIQUE (normalized_url, snapshot_hash)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_url ON dom_snapshots(normalized_url);
CREATE INDEX IF NOT EXISTS idx_snapshots_captured ON dom_snapshots(captured_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_expires ON dom_snapshots(expires_at);

-- Healing history: outcomes recorded by the code-patching collaborator.
CREATE TABLE IF NOT EXISTS healing_history (
    id             TEXT PRIMARY KEY,
    test_script_id TEXT NOT NULL,
    test_case_id   TEXT NOT NULL DEFAULT '',
    failed_locator TEXT NOT NULL,
    healed_locator TEXT NOT NULL,
    healing_method TEXT NOT NULL DEFAULT '',
    snapshot_id    TEXT,
    page_url       TEXT NOT NULL DEFAULT '',
    healed_at      INTEGER NOT NULL,
    success        INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY (snapshot_id) REFERENCES dom_snapshots(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_healing_script ON healing_history(test_script_id);
CREATE INDEX IF NOT EXISTS idx_healing_time ON healing_history(healed_at DESC);
`
