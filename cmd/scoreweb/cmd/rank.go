package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corey/scoreweb/internal/adapters/fsdocs"
	"github.com/corey/scoreweb/internal/app"
	"github.com/corey/scoreweb/internal/ports"
)

var (
	rankKeywords   []string
	rankCaseSens   bool
	rankRecursive  bool
	rankExtensions []string
	rankEngine     string
	rankWorkers    int
	rankParallel   bool
	rankMaxSize    int64
	rankFormat     string
	rankColor      string
	rankNoColor    bool
	rankCounts     bool
	rankTop        int
	rankNoHistory  bool
)

var rankCmd = &cobra.Command{
	Use:   "rank [dir]",
	Short: "Rank the documents of a directory by keyword relevance",
	Long: "Counts every keyword in every document of dir (default: current directory), " +
		"scores each document by sum(log(count+0.75)) and prints them best first with " +
		"a percentage of the top score. Each run is recorded in the history unless --no-history.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRank,
}

func init() {
	addRankFlags(rankCmd)
	f := rankCmd.Flags()
	f.StringVar(&rankFormat, "format", formatTable, "Output format: table, json, yaml")
	f.BoolVar(&rankCounts, "counts", false, "Show per-keyword counts in table output")
	f.IntVarP(&rankTop, "top", "n", 0, "Print only the best N documents (0 = all)")
	f.BoolVar(&rankNoHistory, "no-history", false, "Do not record the run")
}

// addRankFlags registers the flags that override config.toml; shared by
// rank and watch.
func addRankFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringSliceVarP(&rankKeywords, "keyword", "k", nil, "Keyword to match (repeatable or comma-separated)")
	f.BoolVar(&rankCaseSens, "case-sensitive", false, "Match keywords case-sensitively")
	f.BoolVarP(&rankRecursive, "recursive", "r", false, "Descend into subdirectories")
	f.StringSliceVar(&rankExtensions, "ext", nil, "Only read files with these extensions, e.g. .html,.txt")
	f.StringVar(&rankEngine, "engine", app.EngineKMP, "Matching engine: kmp, aho")
	f.IntVar(&rankWorkers, "workers", 0, "Concurrent document reads (0 = one per CPU)")
	f.BoolVar(&rankParallel, "parallel-keywords", false, "Scan keywords of one document concurrently (kmp)")
	f.Int64Var(&rankMaxSize, "max-size", 0, "Skip files larger than this many bytes (0 = 1MiB, -1 = no limit)")
	f.StringVar(&rankColor, "color", "auto", "Color output: auto, always, never")
	f.BoolVar(&rankNoColor, "no-color", false, "Suppress color output")
}

// applyRankFlags overlays explicitly set flags on cfg. Flags left at their
// defaults never override the config file.
func applyRankFlags(c *cobra.Command, cfg *app.Config) {
	f := c.Flags()
	if f.Changed("keyword") {
		cfg.Keywords = rankKeywords
	}
	if f.Changed("case-sensitive") {
		cfg.CaseSensitive = rankCaseSens
	}
	if f.Changed("recursive") {
		cfg.Recursive = rankRecursive
	}
	if f.Changed("ext") {
		cfg.Extensions = rankExtensions
	}
	if f.Changed("engine") {
		cfg.Engine = rankEngine
	}
	if f.Changed("workers") {
		cfg.Workers = rankWorkers
	}
	if f.Changed("parallel-keywords") {
		cfg.ParallelKeywords = rankParallel
	}
	if f.Changed("max-size") {
		cfg.MaxFileSize = rankMaxSize
	}
}

// newSource builds the filesystem document source for dir under cfg.
func newSource(dir string, cfg *app.Config) *fsdocs.Source {
	return &fsdocs.Source{
		Root:       dir,
		Extensions: cfg.Extensions,
		Recursive:  cfg.Recursive,
		MaxSize:    cfg.MaxFileSize,
	}
}

// targetDir resolves the optional [dir] argument to an absolute path.
func targetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

// commandEnv is the state every ranking command starts from.
type commandEnv struct {
	paths *app.Paths
	cfg   *app.Config
	log   *logrus.Entry
	close func()
}

func setupCommand(c *cobra.Command) (*commandEnv, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	paths := app.NewPaths(root)
	log, closer, err := newLogger(paths)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(paths)
	if err != nil {
		closer.Close()
		return nil, err
	}
	applyRankFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		closer.Close()
		return nil, err
	}
	return &commandEnv{
		paths: paths,
		cfg:   cfg,
		log:   log.WithField("cmd", c.Name()),
		close: func() { closer.Close() },
	}, nil
}

func runRank(cmd *cobra.Command, args []string) error {
	if err := checkFormat(rankFormat); err != nil {
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
	if !rankNoHistory {
		s, err := openStore(env.paths, cmd.Name())
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	svc := app.NewService(store, env.log)
	run, err := svc.Rank(cmd.Context(), dir, newSource(dir, env.cfg), env.cfg)
	if run == nil {
		return err
	}

	opts := outputOptions{
		Format: rankFormat,
		Color:  resolveColor(rankColor, rankNoColor),
		Counts: rankCounts,
		Top:    rankTop,
	}
	if werr := writeRun(cmd.OutOrStdout(), run, opts); werr != nil {
		return werr
	}
	return rankResult(cmd.ErrOrStderr(), err)
}

// rankResult turns the error returned alongside a run into the command
// result, listing unreadable documents on w.
func rankResult(w io.Writer, err error) error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			fmt.Fprintf(w, "  %v\n", e)
		}
		return partialError{err: merr}
	}
	return err
}
