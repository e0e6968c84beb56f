package database

// Schema is the ledger schema. Decimal quantities and money amounts are
// stored as TEXT to keep exact decimal representation across round-trips.
const Schema = `
CREATE TABLE IF NOT EXISTS assets (
    id INTEGER PRIMARY KEY,
    symbol TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    api_token TEXT UNIQUE NOT NULL,
    cash_balance TEXT NOT NULL,
    starting_balance TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
    account_id TEXT NOT NULL REFERENCES accounts(id),
    asset_id INTEGER NOT NULL REFERENCES assets(id),
    quantity TEXT NOT NULL,
    avg_price TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (account_id, asset_id)
);

CREATE TABLE IF NOT EXISTS trades (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    asset_id INTEGER NOT NULL REFERENCES assets(id),
    side TEXT NOT NULL,
    quantity TEXT NOT NULL,
    price TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    settlement_ref TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_account_seq ON trades(account_id, seq DESC);
CREATE INDEX IF NOT EXISTS idx_trades_unsettled ON trades(seq) WHERE settlement_ref IS NULL;

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    id INTEGER PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    date TEXT NOT NULL,
    total_value TEXT NOT NULL,
    cash_balance TEXT NOT NULL,
    pnl TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (account_id, date)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_account_date ON portfolio_snapshots(account_id, date);
`
