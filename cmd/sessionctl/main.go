package main

// Manage the session store:
//   go run ./cmd/sessionctl create
//   go run ./cmd/sessionctl list -limit 10 -job-title engineer
//   go run ./cmd/sessionctl stats
//   go run ./cmd/sessionctl reset -yes

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"cv-analyzer/internal/analyses"
	"cv-analyzer/internal/bootstrap"
	"cv-analyzer/internal/sessions"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/storage/db"
	"cv-analyzer/internal/shared/storage/object"
	"cv-analyzer/internal/shared/telemetry"
)

const usage = `usage: sessionctl <command> [flags]

commands:
  create   apply schema migrations
  list     list recent sessions
  stats    print aggregate statistics as JSON
  reset    delete every session, enhancement and stored upload`

var errAborted = errors.New("reset aborted")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	telemetry.Configure("warn")

	ctx := context.Background()
	sqlDB, dialect, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	store, err := bootstrap.BuildStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "object store:", err)
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], sqlDB, dialect, store, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, sqlDB *sql.DB, dialect db.Dialect, store object.Store, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	repo := sessions.NewSQLRepo(sqlDB, dialect)

	switch args[0] {
	case "create":
		if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
			return err
		}
		names, err := db.MigrationNames(dialect)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema ready (%s, %d migrations)\n", dialect, len(names))
		return nil
	case "list":
		return list(ctx, repo, args[1:], out)
	case "stats":
		stats, err := repo.Stats(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "reset":
		svc := &analyses.Service{Repo: repo, Store: store}
		return reset(ctx, svc, args[1:], in, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func list(ctx context.Context, repo sessions.Repo, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(out)
	limit := fs.Int("limit", sessions.DefaultListLimit, "maximum rows")
	offset := fs.Int("offset", 0, "rows to skip")
	title := fs.String("job-title", "", "job title substring")
	kind := fs.String("file-type", "", "pdf, docx, txt or image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := repo.List(ctx, sessions.Filter{
		JobTitle: *title,
		FileKind: *kind,
		Limit:    *limit,
		Offset:   *offset,
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSCORE\tJOB TITLE\tFILE")
	for _, s := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Score, s.JobTitle, s.FileName)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d session(s)\n", len(items))
	return nil
}

func reset(ctx context.Context, svc *analyses.Service, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(out)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		fmt.Fprint(out, "This deletes every session, enhancement and stored upload. Type 'yes' to continue: ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			return errAborted
		}
	}
	removed, err := svc.Reset(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session store reset, %d upload(s) removed\n", removed)
	return nil
}
