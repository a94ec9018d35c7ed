package database

import (
	"database/sql"
	"fmt"
)

// mysqlSchema keeps the one-open-pass rule in the schema: open_subject_id
// is NULL for closed passes and the subject otherwise, and InnoDB allows
// any number of NULLs in a UNIQUE key.
var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS passes (
    id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    subject_id          VARCHAR(64)     NOT NULL,
    sponsor_id          VARCHAR(64)     NOT NULL,
    sponsor_name        VARCHAR(255)    NOT NULL,
    purpose             VARCHAR(500)    NOT NULL,
    issued_at           DATETIME(6)     NOT NULL,
    expected_return_at  DATETIME(6)     NULL,
    closed_at           DATETIME(6)     NULL,
    status              ENUM('OPEN','OUT','CLOSED') NOT NULL DEFAULT 'OPEN',
    open_subject_id     VARCHAR(64) GENERATED ALWAYS AS (IF(status IN ('OPEN','OUT'), subject_id, NULL)) STORED,

    PRIMARY KEY (id),
    UNIQUE KEY uq_passes_open_subject (open_subject_id),
    KEY idx_passes_subject_issued (subject_id, issued_at),
    KEY idx_passes_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`, `
CREATE TABLE IF NOT EXISTS leave_windows (
    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    start_date  CHAR(10)        NOT NULL,
    end_date    CHAR(10)        NOT NULL,
    start_time  CHAR(5)         NOT NULL,
    end_time    CHAR(5)         NOT NULL,
    created_by  VARCHAR(64)     NOT NULL,
    status      ENUM('ACTIVE','EXPIRED') NOT NULL DEFAULT 'ACTIVE',
    created_at  DATETIME(6)     NOT NULL,

    PRIMARY KEY (id),
    KEY idx_leave_windows_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`, `
CREATE TABLE IF NOT EXISTS leave_window_exclusions (
    window_id   BIGINT UNSIGNED NOT NULL,
    subject_id  VARCHAR(64)     NOT NULL,

    PRIMARY KEY (window_id, subject_id),
    CONSTRAINT fk_exclusions_window FOREIGN KEY (window_id) REFERENCES leave_windows (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`, `
CREATE TABLE IF NOT EXISTS students (
    subject_id  VARCHAR(64)     NOT NULL,
    full_name   VARCHAR(255)    NOT NULL DEFAULT '',
    is_active   TINYINT(1)      NOT NULL DEFAULT 1,

    PRIMARY KEY (subject_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
}

// sqliteSchema declares timestamp columns as DATETIME so the driver
// parses them back into time.Time.
var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS passes (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id          TEXT     NOT NULL,
    sponsor_id          TEXT     NOT NULL,
    sponsor_name        TEXT     NOT NULL,
    purpose             TEXT     NOT NULL,
    issued_at           DATETIME NOT NULL,
    expected_return_at  DATETIME NULL,
    closed_at           DATETIME NULL,
    status              TEXT     NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN','OUT','CLOSED'))
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_passes_open_subject ON passes (subject_id) WHERE status IN ('OPEN','OUT');`,
	`CREATE INDEX IF NOT EXISTS idx_passes_subject_issued ON passes (subject_id, issued_at);`,
	`CREATE INDEX IF NOT EXISTS idx_passes_status ON passes (status);`, `
CREATE TABLE IF NOT EXISTS leave_windows (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    start_date  TEXT     NOT NULL,
    end_date    TEXT     NOT NULL,
    start_time  TEXT     NOT NULL,
    end_time    TEXT     NOT NULL,
    created_by  TEXT     NOT NULL,
    status      TEXT     NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE','EXPIRED')),
    created_at  DATETIME NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS leave_window_exclusions (
    window_id   INTEGER NOT NULL REFERENCES leave_windows (id) ON DELETE CASCADE,
    subject_id  TEXT    NOT NULL,

    PRIMARY KEY (window_id, subject_id)
);`, `
CREATE TABLE IF NOT EXISTS students (
    subject_id  TEXT    NOT NULL PRIMARY KEY,
    full_name   TEXT    NOT NULL DEFAULT '',
    is_active   INTEGER NOT NULL DEFAULT 1
);`,
}

// Migrate creates the pass, leave window and roster tables for the given
// dialect.  Every statement is idempotent.
func Migrate(db *sql.DB, d Dialect) error {
	var stmts []string
	switch d {
	case MySQL:
		stmts = mysqlSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", d)
	}
	for i, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
