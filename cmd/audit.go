package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calidata/opsaudit/internal/ai"
	"github.com/calidata/opsaudit/internal/clean"
	cfgpkg "github.com/calidata/opsaudit/internal/config"
	"github.com/calidata/opsaudit/internal/health"
	"github.com/calidata/opsaudit/internal/pipeline"
	"github.com/calidata/opsaudit/internal/report"
)

var (
	auditInventory     string
	auditTransactions  string
	auditFeedback      string
	auditReportPath    string
	auditInsights      bool
	auditModel         string
	auditOutlierPolicy string
	auditIQRFactor     float64
	auditNoCache       bool
	auditTimeoutSec    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the full audit over the three CSV exports",
	Long: `Audit cleans the inventory, sales and feedback exports, scores their
data health, integrates them into the master table and writes the
markdown report. With --insights it also asks the configured model for
an executive narrative; that call is best-effort and a failure shows up
inline in the report instead of aborting it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}

		pol := clean.Policy{
			CostOutliers:    clean.OutlierPolicy(cfg.CostOutlierPolicy),
			IQRFactor:       cfg.IQRFactor,
			MaxDeliveryDays: cfg.MaxDeliveryDays,
		}
		if cmd.Flags().Changed("outlier-policy") {
			switch auditOutlierPolicy {
			case "median", "drop":
				pol.CostOutliers = clean.OutlierPolicy(auditOutlierPolicy)
			default:
				return fmt.Errorf("invalid --outlier-policy: %s (use median or drop)", auditOutlierPolicy)
			}
		}
		if cmd.Flags().Changed("iqr-factor") {
			if auditIQRFactor <= 0 {
				return fmt.Errorf("invalid --iqr-factor: %v", auditIQRFactor)
			}
			pol.IQRFactor = auditIQRFactor
		}

		log := zap.NewNop()
		if debug {
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			log = l
			defer log.Sync()
		}

		runner := &pipeline.Runner{
			Log:     log,
			Policy:  pol,
			Weights: cfg.HealthWeights,
		}
		if !auditNoCache && cfg.CacheDir != "" {
			cache, err := pipeline.NewCache(cfg.CacheDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: cache disabled: %v\n", err)
			} else {
				runner.Cache = cache
			}
		}

		timeoutSec := auditTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = 300
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
		defer cancel()

		res, err := runner.Run(ctx, pipeline.Inputs{
			Inventory:    auditInventory,
			Transactions: auditTransactions,
			Feedback:     auditFeedback,
		})
		if err != nil {
			return err
		}

		if res.FromCache {
			fmt.Println("↻ Inputs unchanged, reusing previous run", res.RunID)
		}
		for _, d := range res.Datasets {
			fmt.Printf("✓ %s: %d filas, health %.1f\n", d.Name, d.Clean.Len(), d.Health.Score)
		}
		fmt.Printf("✓ master: %d registros, %d ventas fantasma\n",
			res.Metrics.TotalRecords, res.Metrics.PhantomSales)

		in := report.Input{
			RunID:    res.RunID,
			Datasets: res.Datasets,
			Master:   res.Master,
			Metrics:  res.Metrics,
		}
		if auditInsights {
			narrative, err := requestInsights(ctx, res)
			if err != nil {
				in.InsightsErr = err.Error()
				fmt.Fprintf(os.Stderr, "⚠ Warning: insights unavailable: %v\n", err)
			} else {
				in.Insights = narrative
			}
		}

		md := report.Render(in)
		if auditReportPath == "" {
			fmt.Println()
			fmt.Print(md)
			return nil
		}
		if err := report.Write(auditReportPath, md); err != nil {
			return err
		}
		fmt.Printf("✓ Report written to %s\n", auditReportPath)
		return nil
	},
}

func requestInsights(ctx context.Context, res *pipeline.Result) (string, error) {
	client := ai.NewClientWithBaseURL(
		cfg.APIKey,
		time.Duration(cfg.HTTPTimeoutSec)*time.Second,
		cfg.RetryMaxAttempts,
		time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond,
		cfg.BaseURL,
	)
	model := auditModel
	if model == "" {
		model = cfg.Model
	}
	reports := make([]health.Report, 0, len(res.Datasets))
	for _, d := range res.Datasets {
		reports = append(reports, d.Health)
	}
	return ai.Insights(ctx, client, model, ai.BuildSummary(res.Metrics, reports))
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVarP(&auditInventory, "inventory", "i", "", "inventory CSV export (required)")
	auditCmd.Flags().StringVarP(&auditTransactions, "transactions", "t", "", "sales transactions CSV export (required)")
	auditCmd.Flags().StringVarP(&auditFeedback, "feedback", "f", "", "customer feedback CSV export (required)")
	auditCmd.Flags().StringVarP(&auditReportPath, "report", "o", "", "write the markdown report to this path instead of stdout")
	auditCmd.Flags().BoolVar(&auditInsights, "insights", false, "ask the configured model for an executive narrative")
	auditCmd.Flags().StringVar(&auditModel, "model", "", "model for --insights (overrides config)")
	auditCmd.Flags().StringVar(&auditOutlierPolicy, "outlier-policy", "", "unit-cost outlier policy: median or drop (overrides config)")
	auditCmd.Flags().Float64Var(&auditIQRFactor, "iqr-factor", 0, "IQR fence factor for cost outliers (overrides config)")
	auditCmd.Flags().BoolVar(&auditNoCache, "no-cache", false, "always recompute, ignore the run cache")
	auditCmd.Flags().IntVar(&auditTimeoutSec, "timeout", 0, "overall run timeout in seconds (default 300)")
	_ = auditCmd.MarkFlagRequired("inventory")
	_ = auditCmd.MarkFlagRequired("transactions")
	_ = auditCmd.MarkFlagRequired("feedback")
}
