package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
	_ "modernc.org/sqlite" // SQLite driver
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore opens the history database for backend and creates the
// tables if needed. An empty SQLite connStr selects the default file.
// NoneBackend returns a store that records nothing.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// openDB opens and pings a connection for backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driver, err := driverName(backend)
	if err != nil {
		return nil, err
	}

	dsn := connStr
	if backend == schema.SQLiteBackend && dsn == "" {
		dsn = contract.GetHistoryDBFilePath()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		switch backend {
		case schema.MySQLBackend:
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname?parseTime=true", err)
		case schema.PostgreSQLBackend:
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		default:
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dsn, err)
		}
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. Verify the database server is running and the credentials are valid", backend, err)
	}
	return db, nil
}

// createHistoryTables creates the history tables when they do not exist yet.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	queries := map[string]string{
		runsTable:        getCreateRunsQuery(backend),
		predictionsTable: getCreatePredictionsQuery(backend),
	}
	for _, table := range historyTables {
		if _, err := db.Exec(queries[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for the runs table.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	table := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_predictions INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, table)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_predictions INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, table)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_predictions INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, table)
	}
}

// getCreatePredictionsQuery returns the CREATE TABLE query for the predictions table.
func getCreatePredictionsQuery(backend schema.DatabaseBackend) string {
	table := quoteTableName(predictionsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				row_index INT NOT NULL,
				prediction_time DATETIME(6) NOT NULL,
				ca19_9 DOUBLE NOT NULL,
				total_bilirubin DOUBLE NOT NULL,
				alp DOUBLE NOT NULL,
				albumin DOUBLE NOT NULL,
				nlr DOUBLE NOT NULL,
				age INT NOT NULL,
				stage VARCHAR(32) NOT NULL,
				risk_score DOUBLE,
				survival_months DOUBLE,
				survival_text TEXT NOT NULL,
				recommendations TEXT NOT NULL,
				PRIMARY KEY (run_id, row_index)
			);
		`, table)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				row_index INT NOT NULL,
				prediction_time TIMESTAMPTZ NOT NULL,
				ca19_9 DOUBLE PRECISION NOT NULL,
				total_bilirubin DOUBLE PRECISION NOT NULL,
				alp DOUBLE PRECISION NOT NULL,
				albumin DOUBLE PRECISION NOT NULL,
				nlr DOUBLE PRECISION NOT NULL,
				age INT NOT NULL,
				stage TEXT NOT NULL,
				risk_score DOUBLE PRECISION,
				survival_months DOUBLE PRECISION,
				survival_text TEXT NOT NULL,
				recommendations TEXT NOT NULL,
				PRIMARY KEY (run_id, row_index)
			);
		`, table)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				row_index INTEGER NOT NULL,
				prediction_time TEXT NOT NULL,
				ca19_9 REAL NOT NULL,
				total_bilirubin REAL NOT NULL,
				alp REAL NOT NULL,
				albumin REAL NOT NULL,
				nlr REAL NOT NULL,
				age INTEGER NOT NULL,
				stage TEXT NOT NULL,
				risk_score REAL,
				survival_months REAL,
				survival_text TEXT NOT NULL,
				recommendations TEXT NOT NULL,
				PRIMARY KEY (run_id, row_index)
			);
		`, table)
	}
}

// disabled reports whether the store records nothing.
func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	table := quoteTableName(runsTable, hs.backend)
	values := placeholders(hs.backend, 1, 2)

	var runID int64
	if hs.backend == schema.PostgreSQLBackend {
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (%s) RETURNING run_id`, table, values)
		err = hs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (%s)`, table, values)
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalPredictions int) error {
	if hs.disabled() {
		return nil
	}

	table := quoteTableName(runsTable, hs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, table, placeholders(hs.backend, 1, 1))

	start := newTimeColumn(hs.backend)
	if err := hs.db.QueryRow(query, runID).Scan(start.dest()); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := start.value()
	if err != nil {
		return err
	}
	durationMs := endTime.Sub(*startTime).Milliseconds()

	var update string
	if hs.backend == schema.PostgreSQLBackend {
		update = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, total_predictions = $3 WHERE run_id = $4`, table)
	} else {
		update = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_predictions = ? WHERE run_id = ?`, table)
	}
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, totalPredictions, runID); err != nil {
		return fmt.Errorf("failed to update prediction run: %w", err)
	}
	return nil
}

// RecordPrediction stores one prediction together with its lab panel.
func (hs *HistoryStoreImpl) RecordPrediction(runID int64, row int, predictedAt time.Time, pred schema.Prediction) error {
	if hs.disabled() {
		return nil
	}

	var risk *float64
	if pred.Risk != nil {
		score := pred.Risk.Score
		risk = &score
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, row_index, prediction_time, ca19_9, total_bilirubin, alp,
		                albumin, nlr, age, stage, risk_score, survival_months,
		                survival_text, recommendations)
		VALUES (%s)
	`, quoteTableName(predictionsTable, hs.backend), placeholders(hs.backend, 1, 14))

	p := pred.Panel
	_, err := hs.db.Exec(query,
		runID, row, formatTime(predictedAt, hs.backend), p.CA199, p.TotalBilirubin, p.ALP,
		p.Albumin, p.NLR, p.Age, string(pred.Stage), risk, pred.Survival.Months,
		pred.Survival.Text, schema.FormatRecommendations(pred.Recommendations),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		last := newTimeColumn(hs.backend)
		row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastTime, err := last.value()
		if err != nil {
			return status, err
		}
		status.LastRunTime = *lastTime

		oldest := newTimeColumn(hs.backend)
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if err := row.Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		oldestTime, err := oldest.value()
		if err != nil {
			return status, err
		}
		status.OldestRunTime = *oldestTime
	}

	for _, table := range historyTables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))
		if err := hs.db.QueryRow(query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalPredictions = status.TableSizes[predictionsTable]

	return status, nil
}

// GetAllRuns retrieves every recorded run ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.PredictionRunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, total_predictions, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PredictionRunRecord
	for rows.Next() {
		var record schema.PredictionRunRecord
		start, end := newTimeColumn(hs.backend), newTimeColumn(hs.backend)
		if err := rows.Scan(&record.RunID, start.dest(), end.dest(), &record.RunDurationMs,
			&record.TotalPredictions, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan prediction run: %w", err)
		}
		startTime, err := start.value()
		if err != nil {
			return nil, err
		}
		if startTime != nil {
			record.StartTime = *startTime
		}
		if record.EndTime, err = end.value(); err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction runs: %w", err)
	}
	return results, nil
}

// GetAllPredictions retrieves every recorded prediction ordered by run and row.
func (hs *HistoryStoreImpl) GetAllPredictions() ([]schema.PredictionRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, row_index, prediction_time, ca19_9, total_bilirubin, alp,
		albumin, nlr, age, stage, risk_score, survival_months, survival_text, recommendations
		FROM %s ORDER BY run_id, row_index`, quoteTableName(predictionsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PredictionRecord
	for rows.Next() {
		var r schema.PredictionRecord
		predictedAt := newTimeColumn(hs.backend)
		if err := rows.Scan(&r.RunID, &r.RowNumber, predictedAt.dest(), &r.CA199, &r.TotalBilirubin,
			&r.ALP, &r.Albumin, &r.NLR, &r.Age, &r.Stage, &r.RiskScore, &r.SurvivalMonths,
			&r.SurvivalText, &r.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		t, err := predictedAt.value()
		if err != nil {
			return nil, err
		}
		if t != nil {
			r.PredictionTime = *t
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return results, nil
}
