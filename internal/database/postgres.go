package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL and creates the tables it needs.
func ConnectPostgres(postgresURI string) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	if err := InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return err
	}

	PostgresDB = db
	return nil
}

// postgresSchema holds the payment order log.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS payment_orders (
		id VARCHAR(64) PRIMARY KEY,
		receipt VARCHAR(64) NOT NULL,
		amount BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'created',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		paid_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_orders_receipt ON payment_orders(receipt)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_orders_status ON payment_orders(status)`,
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	for _, query := range postgresSchema {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
