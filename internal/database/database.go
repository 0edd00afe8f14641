package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Table Structure:
//
// CREATE TABLE IF NOT EXISTS users (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	email VARCHAR(255) NOT NULL UNIQUE,
// 	name VARCHAR(255) NOT NULL DEFAULT '',
// 	ai_credits INTEGER NOT NULL DEFAULT 0,
// 	onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
// 	is_promotion_email_enabled BOOLEAN NOT NULL DEFAULT TRUE,
// 	is_job_digest_enabled BOOLEAN NOT NULL DEFAULT TRUE,
// 	relevant_jobs_generated BOOLEAN NOT NULL DEFAULT FALSE,
// 	relevant_jobs_failed BOOLEAN NOT NULL DEFAULT FALSE,
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );

// CREATE TABLE IF NOT EXISTS jobs (
// 	id SERIAL NOT NULL,
// 	name VARCHAR(255) NOT NULL,
// 	company VARCHAR(255) NOT NULL,
// 	location VARCHAR(255) NOT NULL DEFAULT '',
// 	salary VARCHAR(255) NOT NULL DEFAULT '',
// 	job_type VARCHAR(50) NOT NULL DEFAULT '',
// 	description TEXT NOT NULL DEFAULT '',
// 	external_url VARCHAR(2048) NOT NULL,
// 	platform VARCHAR(50) NOT NULL DEFAULT '',
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE INDEX jobs_created_at_idx ON jobs (created_at);

// CREATE TABLE IF NOT EXISTS user_relevant_jobs (
// 	user_id CHAR(27) NOT NULL REFERENCES users (id),
// 	job_id INTEGER NOT NULL REFERENCES jobs (id),
// 	rank INTEGER NOT NULL,
// 	updated_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(user_id, job_id)
// );
// CREATE INDEX user_relevant_jobs_rank_idx ON user_relevant_jobs (user_id, rank);

// CREATE TYPE application_status AS ENUM ('submitted', 'reviewed', 'selected', 'stand_by', 'rejected');
// CREATE TABLE IF NOT EXISTS applications (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	user_id CHAR(27) NOT NULL REFERENCES users (id),
// 	job_id INTEGER NOT NULL REFERENCES jobs (id),
// 	status application_status NOT NULL DEFAULT 'submitted',
// 	answers JSONB DEFAULT NULL,
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE INDEX applications_created_at_idx ON applications (created_at);

// CREATE TABLE IF NOT EXISTS favorites (
// 	user_id CHAR(27) NOT NULL REFERENCES users (id),
// 	job_id INTEGER NOT NULL REFERENCES jobs (id),
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(user_id, job_id)
// );

// CREATE TABLE IF NOT EXISTS bookmarks (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	user_id CHAR(27) NOT NULL REFERENCES users (id),
// 	url VARCHAR(2048) NOT NULL,
// 	name VARCHAR(255) NOT NULL DEFAULT '',
// 	is_alert_on BOOLEAN NOT NULL DEFAULT FALSE,
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );

// CREATE TYPE payment_status AS ENUM ('pending', 'complete', 'failed', 'cancelled');
// CREATE TABLE IF NOT EXISTS payments (
// 	id SERIAL NOT NULL,
// 	user_id CHAR(27) NOT NULL REFERENCES users (id),
// 	session_id CHAR(27) NOT NULL,
// 	payment_id VARCHAR(255) DEFAULT NULL,
// 	status payment_status NOT NULL DEFAULT 'pending',
// 	currency CHAR(3) NOT NULL DEFAULT 'USD',
// 	total_amount INTEGER NOT NULL DEFAULT 0,
// 	credits INTEGER NOT NULL DEFAULT 0,
// 	billing JSONB DEFAULT NULL,
// 	customer JSONB DEFAULT NULL,
// 	credits_fulfilled BOOLEAN NOT NULL DEFAULT FALSE,
// 	fulfillment_date TIMESTAMP DEFAULT NULL,
// 	email_sent BOOLEAN NOT NULL DEFAULT FALSE,
// 	failure_reason TEXT DEFAULT NULL,
// 	created_at TIMESTAMP NOT NULL,
// 	updated_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE UNIQUE INDEX payments_user_session_idx ON payments (user_id, session_id);

// CREATE TABLE IF NOT EXISTS meta (
// 	key VARCHAR(255) NOT NULL UNIQUE,
// 	value VARCHAR(255) NOT NULL
// );

func GetDbConn(databaseUser string, databasePassword string, databaseHost string, databasePort string, databaseName string, sslMode string) (*sql.DB, error) {
	databaseURL := fmt.Sprintf("postgres://%v:%v@%v:%v/%v?sslmode=%s",
		databaseUser,
		databasePassword,
		databaseHost,
		databasePort,
		databaseName,
		sslMode,
	)
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// CloseDbConn closes the underlying connection pool
func CloseDbConn(conn *sql.DB) {
	conn.Close()
}
