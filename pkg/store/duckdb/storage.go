package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const AdvisoryStateSchema = `
	CREATE TABLE IF NOT EXISTS advisory_state (
		clinic_id VARCHAR NOT NULL PRIMARY KEY,
		responses_since_last INTEGER NOT NULL DEFAULT 0,
		threshold INTEGER NOT NULL DEFAULT 30,
		total_responses INTEGER NOT NULL DEFAULT 0,
		last_generated_at TIMESTAMP NULL
	);
`

const AdvisoryReportSchema = `
	CREATE TABLE IF NOT EXISTS advisory_reports (
		id VARCHAR NOT NULL PRIMARY KEY,
		clinic_id VARCHAR NOT NULL,
		trigger_type VARCHAR NOT NULL,
		response_count INTEGER NOT NULL,
		sections JSON NOT NULL,
		summary VARCHAR NOT NULL,
		priority INTEGER NULL,
		generated_at TIMESTAMP NOT NULL
	);
`

// Aggregate tables populated by the external aggregation job and read by
// the snapshot store. Column names dodge SQL keywords: n for counts, win for
// the time window, dim/grp for the breakdown dimension and group key.
var aggregateSchemas = []string{
	`CREATE TABLE IF NOT EXISTS clinic_overview (
		clinic_id VARCHAR NOT NULL PRIMARY KEY,
		total_responses INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL,
		prev_avg_score DOUBLE NOT NULL,
		prev_period_count INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS template_counts (
		clinic_id VARCHAR NOT NULL,
		template_id VARCHAR NOT NULL,
		n INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS question_scores (
		clinic_id VARCHAR NOT NULL,
		template_id VARCHAR NOT NULL,
		question_id VARCHAR NOT NULL,
		label VARCHAR NOT NULL,
		category VARCHAR,
		score DOUBLE NOT NULL,
		n INTEGER NOT NULL,
		prev_score DOUBLE NOT NULL DEFAULT 0,
		prev_n INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS daily_scores (
		clinic_id VARCHAR NOT NULL,
		day DATE NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS heatmap_cells (
		clinic_id VARCHAR NOT NULL,
		weekday INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS purpose_stats (
		clinic_id VARCHAR NOT NULL,
		win VARCHAR NOT NULL,
		dim VARCHAR NOT NULL,
		grp VARCHAR NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS response_comments (
		clinic_id VARCHAR NOT NULL,
		body VARCHAR NOT NULL,
		score INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS improvement_actions (
		id VARCHAR NOT NULL PRIMARY KEY,
		clinic_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		question_id VARCHAR NOT NULL,
		baseline_score DOUBLE NOT NULL,
		start_date DATE NOT NULL,
		current_score DOUBLE NULL,
		active BOOLEAN NOT NULL DEFAULT true
	);`,
	`CREATE TABLE IF NOT EXISTS score_histogram (
		clinic_id VARCHAR NOT NULL,
		score INTEGER NOT NULL,
		n INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS category_scores (
		clinic_id VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS monthly_metrics (
		clinic_id VARCHAR NOT NULL,
		month DATE NOT NULL,
		visits INTEGER NOT NULL,
		first_visits INTEGER NOT NULL,
		cancels INTEGER NOT NULL,
		self_pay_rate DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS monthly_scores (
		clinic_id VARCHAR NOT NULL,
		month DATE NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS staff_scores (
		clinic_id VARCHAR NOT NULL,
		staff_id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		role VARCHAR NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS segment_scores (
		clinic_id VARCHAR NOT NULL,
		axis VARCHAR NOT NULL,
		grp VARCHAR NOT NULL,
		n INTEGER NOT NULL,
		avg_score DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS quality_stats (
		clinic_id VARCHAR NOT NULL PRIMARY KEY,
		tagged_count INTEGER NOT NULL,
		texted_count INTEGER NOT NULL,
		texted_avg DOUBLE NOT NULL,
		untexted_count INTEGER NOT NULL,
		untexted_avg DOUBLE NOT NULL,
		avg_duration_secs DOUBLE NOT NULL
	);`,
}

var bootQueries = append([]string{
	AdvisoryStateSchema,
	AdvisoryReportSchema,
}, aggregateSchemas...)

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
