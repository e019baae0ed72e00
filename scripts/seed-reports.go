package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nicscott/assessment-reports/internal/report"
)

type seedFile struct {
	Report   report.Report    `json:"report"`
	Sections []report.Section `json:"sections"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/seed-reports.go <report-file.json>")
		fmt.Println("Example: go run scripts/seed-reports.go testdata/sample-report.json")
		os.Exit(1)
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		fmt.Println("❌ DATABASE_URL is required")
		os.Exit(1)
	}

	seedPath := os.Args[1]

	fmt.Printf("🌱 Seeding Report\n")
	fmt.Printf("============================\n")
	fmt.Printf("Seed file: %s\n\n", seedPath)

	data, err := os.ReadFile(seedPath)
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Printf("❌ Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := report.NewPostgresStore(pool)

	if err := store.SaveReport(ctx, &seed.Report); err != nil {
		fmt.Printf("❌ Error saving report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Report %q saved (id=%d, form=%d)\n", seed.Report.Title, seed.Report.ID, seed.Report.SourceFormID)

	for i := range seed.Sections {
		section := &seed.Sections[i]
		section.ReportID = seed.Report.ID
		if err := store.SaveSection(ctx, section); err != nil {
			fmt.Printf("❌ Error saving section %q: %v\n", section.Title, err)
			os.Exit(1)
		}
		fmt.Printf("✅ Section %q saved (id=%d, position=%d)\n", section.Title, section.ID, section.Position)
	}

	fmt.Printf("\n🎉 Done: 1 report, %d sections\n", len(seed.Sections))
}
