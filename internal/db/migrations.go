package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    agent TEXT NOT NULL,
    model TEXT NOT NULL,
    platform TEXT NOT NULL,
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    finished_at TEXT,
    candidates INTEGER NOT NULL DEFAULT 0,
    selected INTEGER NOT NULL DEFAULT 0,
    placed INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS markets (
    id TEXT NOT NULL,
    platform TEXT NOT NULL,
    question TEXT NOT NULL,
    url TEXT NOT NULL,
    close_time INTEGER NOT NULL,
    first_seen_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (platform, id)
);

CREATE TABLE IF NOT EXISTS bot_bets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    platform TEXT NOT NULL,
    market_id TEXT NOT NULL,
    question TEXT NOT NULL,
    outcome TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    market_p_yes REAL NOT NULL,
    model_p_yes REAL NOT NULL,
    confidence REAL NOT NULL,
    dry_run INTEGER NOT NULL DEFAULT 0,
    placed_at INTEGER NOT NULL,
    FOREIGN KEY (platform, market_id) REFERENCES markets(platform, id)
);
CREATE INDEX IF NOT EXISTS idx_bets_platform_time ON bot_bets(platform, placed_at);
CREATE INDEX IF NOT EXISTS idx_bets_run ON bot_bets(run_id);
`
