package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/scoreweb/internal/ports"
)

var (
	historyAll    bool
	historyLimit  int
	historyJSON   bool
	historyColor  string
	historyNoColr bool

	showFormat string
	showCounts bool
	showTop    int
)

var historyCmd = &cobra.Command{
	Use:   "history [dir]",
	Short: "List recorded rankings",
	Long:  "Lists recorded runs for dir (default: current directory), newest first. --all lists runs of every directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <run>",
	Short: "Print a recorded ranking",
	Long:  "Prints a recorded run. <run> is a full run ID, a unique prefix of one, or \"last\".",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <run>...",
	Short: "Delete recorded rankings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runForget,
}

func init() {
	f := historyCmd.Flags()
	f.BoolVar(&historyAll, "all", false, "List runs of every directory")
	f.IntVarP(&historyLimit, "limit", "n", 20, "Show at most N runs (0 = all)")
	f.BoolVar(&historyJSON, "json", false, "Output as JSON")
	f.StringVar(&historyColor, "color", "auto", "Color output: auto, always, never")
	f.BoolVar(&historyNoColr, "no-color", false, "Suppress color output")

	s := showCmd.Flags()
	s.StringVar(&showFormat, "format", formatTable, "Output format: table, json, yaml")
	s.BoolVar(&showCounts, "counts", false, "Show per-keyword counts in table output")
	s.IntVarP(&showTop, "top", "n", 0, "Print only the best N documents (0 = all)")
	s.StringVar(&historyColor, "color", "auto", "Color output: auto, always, never")
	s.BoolVar(&historyNoColr, "no-color", false, "Suppress color output")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root := ""
	if !historyAll {
		dir, err := targetDir(args)
		if err != nil {
			return err
		}
		root = dir
	}

	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	store, err := openStore(env.paths, cmd.Name())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(root)
	if err != nil {
		return err
	}
	if historyLimit > 0 && len(runs) > historyLimit {
		runs = runs[:historyLimit]
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	fmt.Fprint(out, formatHistory(runs, newStyles(out, resolveColor(historyColor, historyNoColr))))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(showFormat); err != nil {
		return err
	}
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	store, err := openStore(env.paths, cmd.Name())
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := resolveRunID(store, args[0])
	if err != nil {
		return err
	}
	run, err := store.LoadRun(id)
	if err != nil {
		return err
	}
	return writeRun(cmd.OutOrStdout(), run, outputOptions{
		Format: showFormat,
		Color:  resolveColor(historyColor, historyNoColr),
		Counts: showCounts,
		Top:    showTop,
	})
}

func runForget(cmd *cobra.Command, args []string) error {
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	store, err := openStore(env.paths, cmd.Name())
	if err != nil {
		return err
	}
	defer store.Close()

	for _, ref := range args {
		id, err := resolveRunID(store, ref)
		if err != nil {
			return err
		}
		if err := store.DeleteRun(id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		env.log.WithField("run", id).Debug("run deleted")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ forgot %s\n", id)
	}
	return nil
}

// resolveRunID maps a user reference to a stored run ID. ref may be a full
// ID, a unique prefix, or "last" for the most recent run of any directory.
func resolveRunID(store ports.RunStore, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty run reference")
	}
	runs, err := store.ListRuns("")
	if err != nil {
		return "", err
	}
	if ref == "last" {
		if len(runs) == 0 {
			return "", fmt.Errorf("no recorded runs: %w", ports.ErrRunNotFound)
		}
		return runs[0].ID, nil
	}

	var matches []string
	for _, r := range runs {
		if r.ID == ref {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", ref, ports.ErrRunNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run prefix %q is ambiguous (%d runs match)", ref, len(matches))
	}
}
