package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/goblin-king/internal/config"
	"github.com/jwebster45206/goblin-king/internal/engine"
	"github.com/jwebster45206/goblin-king/internal/logger"
	"github.com/jwebster45206/goblin-king/internal/results"
	"github.com/jwebster45206/goblin-king/internal/storage"
	"github.com/jwebster45206/goblin-king/pkg/eval"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

// runFlags mirrors the evaluation command line.
type runFlags struct {
	evalName      string
	engineName    string
	modelIdx      string
	ruleInjection string
	sceneIdx      int
	concatPolicy  string
	maxTurns      int
	summarization bool
	summPeriod    int
	clearRawLogs  bool
	casesPath     string
	outDir        string
	pdf           bool
	judge         bool
	noDB          bool
}

func newRootCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the Goblin King",
		Long: `Runs one evaluation against the configured model:
  init       initialize a scene and grade the generated details
  rules      ask the rule questions with a fresh history each time
  responses  play a scripted case file and grade each narration`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), f, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.evalName, "eval_name", "", "evaluation to run: init, rules or responses")
	flags.StringVar(&f.engineName, "engine_name", "", "model engine: anthropic, openai, ollama, gemini or mock (defaults to LLM_PROVIDER)")
	flags.StringVar(&f.modelIdx, "model_idx", "", "model name for the engine (defaults to the engine's default)")
	flags.StringVar(&f.ruleInjection, "rule_injection", "", "rule injection: full, retrieval or empty for none")
	flags.IntVar(&f.sceneIdx, "scene_idx", -1, "scene index for the init evaluation")
	flags.StringVar(&f.concatPolicy, "concat_policy", "simple", "history concat policy")
	flags.IntVar(&f.maxTurns, "max_turns", 0, "history turns sent with each message; 0 sends all")
	flags.BoolVar(&f.summarization, "summarization", false, "summarize past turns")
	flags.IntVar(&f.summPeriod, "summ_period", 0, "rounds between summaries; 0 summarizes every round")
	flags.BoolVar(&f.clearRawLogs, "clear_raw_logs", false, "drop summarized messages from the history")
	flags.StringVar(&f.casesPath, "cases", "", "case file for the responses evaluation")
	flags.StringVar(&f.outDir, "out", "results", "directory for report files")
	flags.BoolVar(&f.pdf, "pdf", false, "also write a PDF report")
	flags.BoolVar(&f.judge, "judge", false, "let the backend model grade instead of a person")
	flags.BoolVar(&f.noDB, "no_db", false, "do not store the report in the results database")
	_ = cmd.MarkFlagRequired("eval_name")

	cmd.AddCommand(newListCmd(), newExportCmd())
	return cmd
}

// applyFlags layers the command line over the environment configuration.
func applyFlags(cfg *config.Config, f *runFlags) error {
	if f.engineName != "" {
		cfg.LLMProvider = f.engineName
	}
	cfg.ModelName = f.modelIdx
	cfg.RuleInjection = f.ruleInjection
	cfg.ConcatPolicy = f.concatPolicy
	cfg.MaxTurns = f.maxTurns
	cfg.Summarization = f.summarization
	cfg.SummPeriod = f.summPeriod
	cfg.ClearRawLogs = f.clearRawLogs
	return cfg.Validate()
}

func runEval(ctx context.Context, f *runFlags, in io.Reader, out io.Writer) error {
	switch f.evalName {
	case "init", "rules", "responses":
	default:
		return fmt.Errorf("specify the correct evaluation name: init, rules or responses")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, f); err != nil {
		return err
	}
	log := logger.SetupWriter(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	gk, err := engine.New(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	if err := gk.InitModel(ctx); err != nil {
		return fmt.Errorf("failed to initialize model: %w", err)
	}

	var scorer eval.Scorer = eval.NewPickerScorer(in, out)
	if f.judge {
		scorer = eval.NewJudgeScorer(gk.Reducer, gk.Options.Book.Summary())
	}

	settings := eval.Settings{
		Engine:        cfg.LLMProvider,
		Model:         gk.Model,
		RuleInjection: cfg.RuleInjection,
		SceneIndex:    f.sceneIdx,
		ConcatPolicy:  cfg.ConcatPolicy,
		MaxTurns:      cfg.MaxTurns,
		Summarization: cfg.Summarization,
		SummPeriod:    cfg.SummPeriod,
		ClearRawLogs:  cfg.ClearRawLogs,
	}

	mgr := gk.NewManager()
	var scores []eval.Score
	switch f.evalName {
	case "init":
		templates, err := loadTemplates(cfg.DataDir)
		if err != nil {
			return err
		}
		if f.sceneIdx < 0 || f.sceneIdx >= len(templates) {
			return fmt.Errorf("the scene index is not valid: use 0 to %d", len(templates)-1)
		}
		score, err := eval.EvaluateInit(ctx, mgr, f.sceneIdx, templates[f.sceneIdx], scorer)
		if err != nil {
			return err
		}
		scores = []eval.Score{score}

	case "rules":
		scores, err = eval.EvaluateRules(ctx, mgr, scorer, log)
		if err != nil {
			log.Error("Rules evaluation stopped early", "error", err, "answered", len(scores))
			if len(scores) == 0 {
				return err
			}
		}

	case "responses":
		if f.casesPath == "" {
			return fmt.Errorf("the responses evaluation needs --cases")
		}
		cf, err := eval.LoadCases(f.casesPath)
		if err != nil {
			return err
		}
		templates, err := loadTemplates(cfg.DataDir)
		if err != nil {
			return err
		}
		if cf.SceneIndex < 0 || cf.SceneIndex >= len(templates) {
			return fmt.Errorf("case file scene index %d is not valid", cf.SceneIndex)
		}
		settings.SceneIndex = cf.SceneIndex
		for _, p := range cf.Players {
			if err := mgr.AddPlayer(p); err != nil {
				return err
			}
		}
		if _, _, err := mgr.InitScene(ctx, cf.SceneIndex, templates[cf.SceneIndex]); err != nil {
			return fmt.Errorf("scene initialization failed: %w", err)
		}
		scores, err = eval.EvaluateResponses(ctx, mgr, cf.Cases, scorer)
		if err != nil {
			log.Error("Responses evaluation stopped early", "error", err, "answered", len(scores))
			if len(scores) == 0 {
				return err
			}
		}
	}

	report := eval.NewReport(f.evalName, settings, scores, time.Now())
	if err := writeReport(report, f.outDir, f.pdf); err != nil {
		return err
	}
	if !f.noDB {
		if err := saveReport(ctx, cfg.ResultsDB, report); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s evaluation finished: %d items, mean score %.3f (report %s)\n",
		f.evalName, len(report.Scores), report.Mean, report.ID)
	log.Info("Evaluation finished", "eval_name", f.evalName, "mean", report.Mean, "report_id", report.ID.String())
	return nil
}

func loadTemplates(dataDir string) ([]scene.Template, error) {
	path, err := storage.ScenesPath(dataDir)
	if err != nil {
		return nil, err
	}
	return scene.LoadTemplates(path)
}

// writeReport writes <out>/<eval>-<time>.json and, when asked, the PDF next to it.
func writeReport(r *eval.Report, outDir string, pdf bool) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	base := filepath.Join(outDir, fmt.Sprintf("%s-%s", r.EvalName, r.CreatedAt.Format("20060102-150405")))

	if err := writeFile(base+".json", r.WriteJSON); err != nil {
		return err
	}
	if pdf {
		return writeFile(base+".pdf", r.WritePDF)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func saveReport(ctx context.Context, dbPath string, r *eval.Report) error {
	store, err := results.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close results database", "error", err)
		}
	}()
	return store.Save(ctx, r)
}
