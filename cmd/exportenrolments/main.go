package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"moodle-portal/internal/concurrency"
	"moodle-portal/internal/config"
	"moodle-portal/internal/domain"
	"moodle-portal/internal/export"
	"moodle-portal/internal/moodle"
	"moodle-portal/internal/obs"
	"moodle-portal/internal/sftpclient"
)

type options struct {
	outPath    string
	workers    int
	uploadSFTP bool
}

func main() {
	var opts options
	flag.StringVar(&opts.outPath, "out", "MOODLE-ENROLMENTS.csv", "output csv path")
	flag.IntVar(&opts.workers, "workers", 4, "users fetched in parallel")
	flag.BoolVar(&opts.uploadSFTP, "sftp", false, "upload the generated CSV via SFTP")
	timeout := flag.Duration("timeout", time.Hour, "overall timeout")
	flag.Parse()

	cfg := config.Load()
	log := obs.NewLogger(obs.LogConfig{Service: "exportenrolments", Env: cfg.Env, Level: cfg.LogLevel})
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.Fatal("export failed", zap.Error(err))
	}
}

// UserCourses is the part of the Moodle client the report needs.
type UserCourses interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	FetchUserCourses(ctx context.Context, userID int64) ([]domain.Course, error)
}

func run(ctx context.Context, cfg config.Config, opts options, log *zap.Logger) error {
	rows, err := collect(ctx, moodle.NewFromConfig(cfg, log), opts.workers, log)
	if err != nil {
		return err
	}

	err = export.WriteFile(opts.outPath, func(w io.Writer) error {
		return export.WriteEnrolmentsCSV(w, rows)
	})
	if err != nil {
		return err
	}
	log.Info("wrote enrolments", zap.Int("rows", len(rows)), zap.String("out", opts.outPath))

	if !opts.uploadSFTP {
		return nil
	}
	return sftpclient.UploadReport(ctx, cfg.SFTP, opts.outPath, log)
}

// collect fetches every user's courses. A user whose courses cannot be
// fetched is logged and left out.
func collect(ctx context.Context, api UserCourses, workers int, log *zap.Logger) ([]export.Enrolment, error) {
	users, err := api.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	perUser, errs := concurrency.ProcessParallel(ctx, users, concurrency.ParallelOptions{MaxWorkers: workers},
		func(ctx context.Context, _ int, u domain.User) ([]export.Enrolment, error) {
			courses, err := api.FetchUserCourses(ctx, u.ID)
			if err != nil {
				return nil, fmt.Errorf("user %d (%s): %w", u.ID, u.Username, err)
			}
			return export.Enrolments(u, courses), nil
		})
	if len(errs) > 0 {
		log.Warn("skipped users whose courses could not be fetched",
			zap.Int("skipped", len(errs)),
			zap.Error(multierr.Combine(errs...)),
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []export.Enrolment
	for _, r := range perUser {
		rows = append(rows, r...)
	}
	return rows, nil
}
