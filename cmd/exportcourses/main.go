package main

import (
	"context"
	"flag"
	"io"
	"time"

	"go.uber.org/zap"

	"moodle-portal/internal/config"
	"moodle-portal/internal/domain"
	"moodle-portal/internal/export"
	"moodle-portal/internal/moodle"
	"moodle-portal/internal/obs"
	"moodle-portal/internal/sftpclient"
)

type options struct {
	outPath    string
	uploadSFTP bool
}

func main() {
	var opts options
	flag.StringVar(&opts.outPath, "out", "MOODLE-COURSES.csv", "output csv path")
	flag.BoolVar(&opts.uploadSFTP, "sftp", false, "upload the generated CSV via SFTP")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall timeout")
	flag.Parse()

	cfg := config.Load()
	log := obs.NewLogger(obs.LogConfig{Service: "exportcourses", Env: cfg.Env, Level: cfg.LogLevel})
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

func run(ctx context.Context, cfg config.Config, opts options, log *zap.Logger) error {
	client := moodle.NewFromConfig(cfg, log)

	courses, err := client.FetchCourses(ctx)
	if err != nil {
		return err
	}
	courses = domain.WithoutSite(courses)

	err = export.WriteFile(opts.outPath, func(w io.Writer) error {
		return export.WriteCoursesCSV(w, courses, client.CourseURL)
	})
	if err != nil {
		return err
	}
	log.Info("wrote course catalog", zap.Int("courses", len(courses)), zap.String("out", opts.outPath))

	if !opts.uploadSFTP {
		return nil
	}
	return sftpclient.UploadReport(ctx, cfg.SFTP, opts.outPath, log)
}
