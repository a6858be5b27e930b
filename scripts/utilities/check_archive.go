//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

func main() {
	dsn := os.Getenv("STOERFEED_ARCHIVE_DSN")
	if dsn == "" {
		log.Fatal("STOERFEED_ARCHIVE_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM disruption_items").Scan(&count)
	if err != nil {
		log.Fatalf("failed to count disruption_items: %v", err)
	}
	fmt.Printf("Total archived items: %d\n", count)

	var runs int
	err = db.QueryRow("SELECT COUNT(DISTINCT run_id) FROM disruption_items").Scan(&runs)
	if err != nil {
		log.Fatalf("failed to count runs: %v", err)
	}
	fmt.Printf("Distinct runs: %d\n", runs)

	rows, err := db.Query(`
		SELECT run_id, COUNT(*), MAX(run_at)
		FROM disruption_items
		GROUP BY run_id
		ORDER BY MAX(run_at) DESC
		LIMIT 5
	`)
	if err != nil {
		log.Fatalf("failed to query recent runs: %v", err)
	}
	defer rows.Close()

	fmt.Println("\nRecent runs:")
	for rows.Next() {
		var runID string
		var items int
		var runAt time.Time
		if err := rows.Scan(&runID, &items, &runAt); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}
		fmt.Printf("  %s  %3d items  %s\n", runID, items, runAt.Format(time.RFC3339))
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("row iteration failed: %v", err)
	}
}
