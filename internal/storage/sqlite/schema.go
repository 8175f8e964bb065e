package sqlite

const schema = `
-- Categories table
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) <= 100),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Category names are unique regardless of case
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name ON categories(LOWER(name));

-- Documents table
-- One row per (category, issue date); the natural key is enforced here so a
-- duplicate allocation fails at the store even if the lock is bypassed.
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category_id INTEGER NOT NULL,
    document_number TEXT NOT NULL,
    issued_date DATE NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(category_id, issued_date),
    FOREIGN KEY (category_id) REFERENCES categories(id)
);

CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category_id);
CREATE INDEX IF NOT EXISTS idx_documents_issued_date ON documents(issued_date);

-- Batches table
-- is_verified is nullable: rows imported from the legacy system may carry
-- NULL, which candidate selection treats as unverified.
CREATE TABLE IF NOT EXISTS batches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    top_text TEXT NOT NULL DEFAULT '',
    bottom_text TEXT NOT NULL DEFAULT '',
    is_verified INTEGER DEFAULT 0,
    scan_record_id INTEGER,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (document_id) REFERENCES documents(id),
    FOREIGN KEY (scan_record_id) REFERENCES scan_records(id)
);

CREATE INDEX IF NOT EXISTS idx_batches_document ON batches(document_id);
CREATE INDEX IF NOT EXISTS idx_batches_verified ON batches(is_verified);

-- Scan records table
CREATE TABLE IF NOT EXISTS scan_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    actor TEXT NOT NULL,
    top_text TEXT NOT NULL DEFAULT '',
    bottom_text TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'matched', 'rejected')),
    photo_path TEXT NOT NULL DEFAULT '',
    batch_id INTEGER,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (batch_id) REFERENCES batches(id)
);

CREATE INDEX IF NOT EXISTS idx_scan_records_batch ON scan_records(batch_id);
CREATE INDEX IF NOT EXISTS idx_scan_records_created_at ON scan_records(created_at);

-- Audit events table (append-only trail)
CREATE TABLE IF NOT EXISTS audit_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    detail TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
`
