package sqlite

// schema is applied on every open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS positions (
    id          TEXT PRIMARY KEY,
    order_id    TEXT NOT NULL UNIQUE,
    account     TEXT NOT NULL DEFAULT '',
    symbol      TEXT NOT NULL,
    direction   TEXT NOT NULL,
    entry_price REAL NOT NULL,
    sl          REAL NOT NULL,
    tp          REAL NOT NULL,
    volume      REAL NOT NULL,
    profit      REAL NOT NULL DEFAULT 0,
    status      TEXT NOT NULL DEFAULT 'open',
    opened_at   TIMESTAMP NOT NULL,
    closed_at   TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_positions_opened_at ON positions (opened_at);

CREATE TABLE IF NOT EXISTS equity (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    time     TIMESTAMP NOT NULL,
    account  TEXT NOT NULL DEFAULT '',
    balance  REAL NOT NULL,
    equity   REAL NOT NULL,
    profit   REAL NOT NULL,
    drawdown REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity (time);

CREATE TABLE IF NOT EXISTS audit_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    event      TEXT NOT NULL,
    detail     TEXT,
    created_at TIMESTAMP NOT NULL
);
`
