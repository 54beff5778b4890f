package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/scoreweb/internal/adapters/fsnotify"
	"github.com/corey/scoreweb/internal/app"
	"github.com/corey/scoreweb/internal/ports"
)

var (
	watchFormat    string
	watchCounts    bool
	watchTop       int
	watchNoHistory bool
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-rank a directory whenever its documents change",
	Long: "Ranks dir once, then again after every change to a matching document until " +
		"interrupted. Every run is recorded in the history unless --no-history.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	addRankFlags(watchCmd)
	f := watchCmd.Flags()
	f.StringVar(&watchFormat, "format", formatTable, "Output format: table, json, yaml")
	f.BoolVar(&watchCounts, "counts", false, "Show per-keyword counts in table output")
	f.IntVarP(&watchTop, "top", "n", 10, "Print only the best N documents (0 = all)")
	f.BoolVar(&watchNoHistory, "no-history", false, "Do not record runs")
	f.DurationVar(&watchDebounce, "debounce", fsnotify.DefaultDebounce, "Quiet period before a changed file triggers a re-rank")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := checkFormat(watchFormat); err != nil {
		return err
	}
	dir, err := targetDir(args)
	if err != nil {
		return err
	}
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	var store ports.RunStore
	if !watchNoHistory {
		s, err := openStore(env.paths, cmd.Name())
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.Debounce = watchDebounce
	w.OnError = func(err error) {
		env.log.WithError(err).Warn("watcher error")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := outputOptions{
		Format: watchFormat,
		Color:  resolveColor(rankColor, rankNoColor),
		Counts: watchCounts,
		Top:    watchTop,
	}
	out := cmd.OutOrStdout()
	svc := app.NewService(store, env.log)

	env.log.WithField("root", dir).Info("watching")
	err = svc.Watch(ctx, dir, newSource(dir, env.cfg), env.cfg, w, func(run *ports.Run, err error) {
		printWatchRun(out, run, err, opts)
		if run == nil {
			env.log.WithError(err).Error("ranking failed")
		} else if err != nil {
			env.log.WithError(err).Warn("ranking incomplete")
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "stopped")
	return nil
}

// printWatchRun prints one run of a watch session. Table output gets a
// timestamped separator so consecutive rankings stay readable.
func printWatchRun(w io.Writer, run *ports.Run, err error, opts outputOptions) {
	if run == nil {
		fmt.Fprintf(w, "✗ ranking failed: %v\n", err)
		return
	}
	if opts.Format == formatTable || opts.Format == "" {
		st := newStyles(w, opts.Color)
		stamp := time.Unix(run.CreatedAt, 0).Local().Format("15:04:05")
		fmt.Fprintln(w, st.muted.Render("── "+stamp+" ──"))
	}
	if werr := writeRun(w, run, opts); werr != nil {
		fmt.Fprintf(w, "✗ output: %v\n", werr)
	}
}
