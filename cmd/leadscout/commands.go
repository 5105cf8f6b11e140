// cmd/leadscout/commands.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/valpere/LeadScout/internal/config"
	"github.com/valpere/LeadScout/internal/monitoring"
	"github.com/valpere/LeadScout/internal/output"
	"github.com/valpere/LeadScout/internal/scoring"
	"github.com/valpere/LeadScout/internal/server"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var (
		region, sector string
		maxResults     int
		format, file   string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find businesses of a sector in a region and save them",
		Example: `  leadscout discover --region "Portland, OR" --sector plumbing --max 20
  leadscout discover -c leadscout.yaml --region Austin --sector bakery --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(region) == "" || strings.TrimSpace(sector) == "" {
				return utils.NewError(utils.ErrCodeValidation, "--region and --sector are required").Build()
			}
			if maxResults < 1 {
				return utils.NewError(utils.ErrCodeValidation, "--max must be at least 1").Build()
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.cfg.Output
			if format != "" {
				out.Format = output.OutputFormat(strings.ToLower(format))
			}
			if file != "" {
				out.File = file
			}
			orch, sink, err := a.orchestrator(out)
			if err != nil {
				return err
			}

			req := types.DiscoveryRequest{Region: region, Sector: sector, MaxResults: maxResults}
			return runDiscovery(cmd.Context(), cmd.OutOrStdout(), orch, req, sink.LastTarget, opts.verbose)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&region, "region", "r", "", "region to search, e.g. \"Portland, OR\"")
	f.StringVarP(&sector, "sector", "s", "", "business sector, e.g. plumbing")
	f.IntVarP(&maxResults, "max", "n", 20, "maximum number of businesses")
	f.StringVarP(&format, "format", "f", "", "override output.format")
	f.StringVarP(&file, "output", "o", "", "override output.file")
	return cmd
}

type discoveryRunner interface {
	Run(ctx context.Context, req types.DiscoveryRequest) types.DiscoveryResult
}

// runDiscovery runs one request until it completes or ctx is cancelled.
// target reports where the batch was persisted.
func runDiscovery(ctx context.Context, w io.Writer, runner discoveryRunner, req types.DiscoveryRequest,
	target func() string, verbose bool) error {
	result := runner.Run(ctx, req)
	switch result.Status {
	case types.RunCompleted:
		fmt.Fprintf(w, "Found %d businesses (run %s, %s). Results saved to %s\n",
			len(result.Records), result.RunID, result.Duration.Round(time.Millisecond), target())
		if verbose {
			printRecords(w, result.Records)
		}
		return nil
	case types.RunCancelled:
		return utils.NewError(utils.ErrCodeContextCanceled, "discovery interrupted").
			WithContext("run_id", result.RunID).Build()
	default:
		return runError(result)
	}
}

// runError recovers the failure code leading a failed run's error text
func runError(result types.DiscoveryResult) error {
	code := utils.ErrCodeInternal
	if prefix, _, ok := strings.Cut(result.Error, ":"); ok && prefix != "" &&
		strings.Trim(prefix, "ABCDEFGHIJKLMNOPQRSTUVWXYZ_") == "" {
		code = utils.ErrorCode(prefix)
	}
	return utils.NewError(code, "discovery failed").
		WithCause(errors.New(result.Error)).
		WithContext("run_id", result.RunID).Build()
}

func printRecords(w io.Writer, records []types.BusinessRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPHONE\tWEBSITE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.ContactPhone, r.Website)
	}
	tw.Flush()
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var (
		save bool
		top  int
	)

	cmd := &cobra.Command{
		Use:   "score <records.json|records.yaml>",
		Short: "Rate discovered businesses as website development leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			gen, err := a.gemini(cmd.Context())
			if err != nil {
				return err
			}
			leads, err := scoring.ScoreAll(cmd.Context(), scoring.NewLeadScorer(gen), records, a.cfg.Scoring.Workers)
			if err != nil {
				return err
			}

			if save {
				store, err := a.leadStore(cmd.Context())
				if err != nil {
					return err
				}
				if leads, err = store.SaveLeads(cmd.Context(), leads); err != nil {
					return err
				}
			}

			if top > 0 && top < len(leads) {
				leads = leads[:top]
			}
			printLeads(cmd.OutOrStdout(), leads)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the scored leads in the lead store")
	cmd.Flags().IntVar(&top, "top", 0, "print only the best N leads")
	return cmd
}

// readRecords loads a batch written by the json or yaml output format
func readRecords(path string) ([]types.BusinessRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeValidation, "failed to read records file")
	}

	var raw []map[string]interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeParsingError, "failed to parse records file").
			WithContext("file", path)
	}

	records := make([]types.BusinessRecord, 0, len(raw))
	for i, m := range raw {
		r := types.RecordFromMap(m)
		if strings.TrimSpace(r.Name) == "" {
			return nil, utils.NewError(utils.ErrCodeValidation, fmt.Sprintf("record %d has no name", i)).
				WithContext("file", path).Build()
		}
		records = append(records, r)
	}
	return records, nil
}

func printLeads(w io.Writer, leads []types.Lead) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROBABILITY\tROI\tREASONING")
	for _, l := range leads {
		id := "-"
		if l.ID != 0 {
			id = fmt.Sprint(l.ID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.0f\t%s\n", id, l.Business.Name,
			l.Score.PredictedProbability, l.Score.PredictedROI, truncate(l.Score.Reasoning, 60))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func newPersonaCmd(opts *rootOptions) *cobra.Command {
	var (
		ids []int64
		top int
	)

	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Draft customer personas and outreach content for stored leads",
		Example: `  leadscout persona --top 5
  leadscout persona --ids 3,7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ids) == 0 && top < 1 {
				return utils.NewError(utils.ErrCodeValidation, "pass --ids or --top").Build()
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			store, err := a.leadStore(ctx)
			if err != nil {
				return err
			}
			var leads []types.Lead
			if len(ids) > 0 {
				leads, err = store.GetLeads(ctx, ids)
			} else {
				leads, err = store.ListLeads(ctx, top)
			}
			if err != nil {
				return err
			}

			pending := leads[:0]
			for _, lead := range leads {
				has, err := store.HasPersona(ctx, lead.ID)
				if err != nil {
					return err
				}
				if has {
					fmt.Fprintf(cmd.OutOrStdout(), "Lead %d (%s) already has a persona, skipping\n", lead.ID, lead.Business.Name)
					continue
				}
				pending = append(pending, lead)
			}
			if len(pending) == 0 {
				return nil
			}

			gen, err := a.gemini(ctx)
			if err != nil {
				return err
			}
			results, err := scoring.GenerateAll(ctx, scoring.NewOutreachWriter(gen, a.cfg.Scoring.Channels), pending)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, res := range results {
				if res.Error != "" {
					fmt.Fprintf(w, "Lead %d: persona failed: %s\n", res.LeadID, res.Error)
					continue
				}
				if _, err := store.SavePersona(ctx, res); err != nil {
					return err
				}
				fmt.Fprintf(w, "Lead %d: %s, %d (%d channels)\n",
					res.LeadID, res.Persona.Name, res.Persona.Age, len(res.ChannelContents))
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "lead ids")
	cmd.Flags().IntVar(&top, "top", 0, "use the N most promising stored leads")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, warning := range cfg.Check().Warnings {
				fmt.Fprintf(w, "warning: %s\n", warning)
			}
			if opts.verbose {
				fmt.Fprintln(w, "Configuration details:")
				fmt.Fprintf(w, "  Search backend: %s\n", cfg.Search.Backend)
				fmt.Fprintf(w, "  Output format: %s\n", cfg.Output.Format)
				fmt.Fprintf(w, "  Lead store: %s\n", cfg.Leads.Format)
				fmt.Fprintf(w, "  Scoring model: %s\n", cfg.Scoring.Model)
				fmt.Fprintf(w, "  Discovery workers: %d\n", cfg.Discovery.Workers)
			}
			fmt.Fprintf(w, "✓ Configuration file '%s' is valid\n", args[0])
			return nil
		},
	}
}

func newTemplateCmd() *cobra.Command {
	var templateType string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a configuration template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			known := false
			for _, t := range config.TemplateTypes() {
				if t == templateType {
					known = true
				}
			}
			if !known {
				return utils.NewError(utils.ErrCodeValidation,
					fmt.Sprintf("unknown template type %q (want one of %v)", templateType, config.TemplateTypes())).Build()
			}
			return config.SaveToWriter(config.GenerateTemplate(templateType), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&templateType, "type", "t", "basic", "template type: "+strings.Join(config.TemplateTypes(), ", "))
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			orch, _, err := a.orchestrator(a.cfg.Output)
			if err != nil {
				return err
			}

			health := monitoring.NewHealthManager(version, 5*time.Second)
			health.RegisterCheck(monitoring.GoroutineHealthCheck(10000))
			if a.cfg.Search.Backend == config.BackendTavily {
				tavilyURL := a.cfg.Search.TavilyURL
				if tavilyURL == "" {
					tavilyURL = "https://api.tavily.com"
				}
				health.RegisterCheck(monitoring.HTTPHealthCheck("tavily", tavilyURL, &http.Client{Timeout: 5 * time.Second}))
			}

			deps := server.Deps{
				Discoverer: orch,
				Health:     health,
				Runs:       monitoring.NewRunTracker(monitoring.RunTrackerConfig{}),
			}
			if a.cfg.Metrics.Enabled {
				deps.Metrics = a.metrics.Handler()
			}

			if gen, err := a.gemini(ctx); err != nil {
				a.logger.Warnf("scoring disabled: %v", err)
			} else {
				deps.Scorer = scoring.NewLeadScorer(gen)
				deps.Personas = scoring.NewOutreachWriter(gen, a.cfg.Scoring.Channels)
			}
			if store, err := a.leadStore(ctx); err != nil {
				a.logger.Warnf("lead store disabled: %v", err)
			} else {
				deps.Leads = store
				health.RegisterCheck(monitoring.DatabaseHealthCheck("leads", store.Ping))
			}

			if opts.configPath != "" && opts.logLevel == "" {
				watcher, err := config.NewWatcher(opts.configPath)
				if err != nil {
					a.logger.Warnf("configuration reload disabled: %v", err)
				} else {
					a.onClose(watcher.Close)
					watcher.OnChange(applyLogLevel)
				}
			}

			s := a.cfg.Server
			srv := server.New(server.Config{
				Addr:            s.Addr,
				ReadTimeout:     s.ReadTimeout,
				WriteTimeout:    s.WriteTimeout,
				ShutdownTimeout: s.ShutdownTimeout,
				MaxResults:      s.MaxResults,
				ScoreWorkers:    a.cfg.Scoring.Workers,
				MetricsPath:     a.cfg.Metrics.Path,
				APIKey:          s.APIKey,
			}, deps)
			return srv.ListenAndServe(ctx)
		},
	}
}

// applyLogLevel is the part of a reloaded configuration a running server
// picks up; everything else needs a restart
func applyLogLevel(cfg *config.Config) {
	level, err := utils.ParseLevel(cfg.LogLevel)
	if err != nil {
		return
	}
	utils.SetDefaultLevel(level)
}
