// Command seed-import applies a bootstrap SQL script to the database,
// inserting each table's seed rows only while that table is empty.
//
// Usage:
//
//	seed-import [-db path] script.sql
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"orgledger/internal/cli"
	"orgledger/internal/log"
	"orgledger/internal/seed"
)

func main() {
	cli.LoadEnvFile()

	dbPath := flag.String("db", envOr("SQLITE_DB_PATH", "./data/orgledger.db"), "SQLite database path")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-db path] script.sql\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	script := flag.Arg(0)

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()

	report, err := cli.SeedDatabase(context.Background(), logger, repo, script)
	if err != nil {
		logger.Error("Seed import failed", log.FieldError, err, "path", script)
		os.Exit(1)
	}
	printReport(report)

	for _, t := range report.Tables {
		if t.Outcome == seed.OutcomeFailed {
			os.Exit(1)
		}
	}
}

func printReport(report seed.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tOUTCOME\tEXISTING\tINSERTED\tERROR")
	for _, t := range report.Tables {
		errText := ""
		if t.Err != nil {
			errText = t.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", t.Table, t.Outcome, t.ExistingRows, t.RowsInserted, errText)
	}
	_ = w.Flush()
	if report.OtherErr != nil {
		fmt.Printf("other statements failed: %v\n", report.OtherErr)
	}
	fmt.Printf("%d rows inserted\n", report.RowsInserted())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
