// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/mdhender/datvault/pipelines/stages"
	store "github.com/mdhender/datvault/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func cmdScan() *cobra.Command {
	var inputDir string
	var outputDB = "catalog.db"
	var workers = 1
	var batchSize = 1000
	var resume, forceNew bool
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVarP(&inputDir, "input", "i", inputDir, "directory containing the DAT files")
		cmd.Flags().StringVarP(&outputDB, "output", "o", outputDB, "path of the catalog database")
		cmd.Flags().IntVarP(&workers, "workers", "w", workers, "number of parser workers (0 auto-detects CPU count)")
		cmd.Flags().IntVarP(&batchSize, "batch-size", "b", batchSize, "records per batch insert")
		cmd.Flags().BoolVar(&resume, "resume", resume, "resume a prior run without prompting")
		cmd.Flags().BoolVar(&forceNew, "force-new", forceNew, "wipe prior data without prompting")
		return cmd.MarkFlagRequired("input")
	}
	var cmd = &cobra.Command{
		Use:          "scan",
		Short:        "scan DAT files and import them into the catalog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			if workers == 0 {
				workers = runtime.NumCPU()
			}
			return runScan(inputDir, outputDB, workers, batchSize, resume, forceNew, quiet)
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func runScan(inputDir, outputDB string, workers, batchSize int, resume, forceNew, quiet bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	fsys := afero.NewOsFs()

	log.Printf("scanning %s\n", inputDir)
	files, err := stages.FindDATFiles(fsys, inputDir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", inputDir, err)
	}
	if len(files) == 0 {
		log.Printf("%s: no .dat files found\n", inputDir)
		return nil
	}
	log.Printf("found %d .dat files\n", len(files))

	release := stages.ExtractReleaseTag(inputDir)
	log.Printf("detected release %q\n", release)

	db, err := store.NewCatalogStoreWithConfig(store.StoreConfig{Path: outputDB, InitSchema: true})
	if err != nil {
		return err
	}
	defer db.Close()

	pref := stages.PreferAsk
	if resume {
		pref = stages.PreferResume
	} else if forceNew {
		pref = stages.PreferFresh
	}

	plan, err := stages.PlanRun(ctx, db, files, release, pref, promptDecider())
	if err != nil {
		if errors.Is(err, stages.ErrAborted) {
			log.Printf("aborted\n")
			return nil
		}
		return err
	}
	if plan.Fresh {
		log.Printf("fresh start: %d files queued\n", len(plan.Work))
	} else {
		log.Printf("resuming: %d files skipped, %d remaining\n", plan.Skipped, len(plan.Work))
	}
	if len(plan.Work) == 0 {
		log.Printf("nothing to do, all files processed\n")
		return nil
	}

	session := stages.NewSession(db, batchSize, workers)
	if !quiet {
		session.SetObserver(newLogObserver())
	}

	stats, err := session.Run(ctx, plan.Work, plan.All)

	elapsed := time.Since(started)
	log.Printf("imported %d records in %s (%d errors)\n", stats.TotalRecords, elapsed.Round(time.Millisecond), stats.ErrorCount)

	switch {
	case err == nil:
		// fall through to summary
	case errors.Is(err, context.Canceled):
		log.Printf("interrupted; buffered records were flushed, re-run with --resume to continue\n")
		return nil
	default:
		var fatal *stages.ErrFatalStorage
		var limit *stages.ErrResourceLimit
		if errors.As(err, &fatal) {
			log.Printf("storage is full or read-only; free up space and re-run with --resume\n")
		} else if errors.As(err, &limit) {
			log.Printf("system resources exhausted; retry with a lower --workers or --batch-size\n")
		}
		return err
	}

	if n, err := db.CountRecords(ctx); err == nil {
		log.Printf("%s: %d records total\n", outputDB, n)
	}
	return nil
}

// promptDecider asks the operator on stdin. On a release mismatch the safe
// answer is to refuse; otherwise the default bias is resume.
func promptDecider() stages.Decider {
	return func(q stages.Question) stages.Decision {
		r := bufio.NewReader(os.Stdin)
		if q.Mismatch {
			fmt.Printf("store holds release %q but input is %q.\n", q.StoredRelease, q.CurrentRelease)
			fmt.Printf("start fresh and wipe the store? [y/N]: ")
			line, _ := r.ReadString('\n')
			if strings.EqualFold(strings.TrimSpace(line), "y") {
				return stages.DecideFresh
			}
			return stages.DecideAbort
		}
		fmt.Printf("found %d processed files. [R]esume or [s]tart fresh? [R/s]: ", q.ProcessedCount)
		line, _ := r.ReadString('\n')
		if strings.EqualFold(strings.TrimSpace(line), "s") {
			return stages.DecideFresh
		}
		return stages.DecideResume
	}
}
