package commands

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/cli/config"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
	"github.com/AshkanYarmoradi/go-ledger/cli/ui"
)

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Run diagnostic checks",
		Long: `Run diagnostic checks on your ledger setup.

This command verifies:
  • Configuration file validity
  • Database connectivity
  • Event store schema
  • Kafka broker reachability
  • System resources`,
		Aliases: []string{"diag", "doctor"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			d := &diagnosis{g: g}
			d.cfg, d.cfgErr = g.loadConfig()

			runDiagnose(ctx, cmd.OutOrStdout(), []DiagnosticCheck{
				{Name: "Go Version", Check: checkGoVersion},
				{Name: "Configuration", Check: d.checkConfiguration},
				{Name: "Database Connection", Check: d.checkDatabaseConnection},
				{Name: "Event Store Schema", Check: d.checkEventStoreSchema},
				{Name: "Kafka", Check: d.checkKafka},
				{Name: "System Resources", Check: checkSystemResources},
			})
			d.close()
			return nil
		},
	}
}

// runDiagnose runs checks in order and prints a summary. It reports whether
// every check passed.
func runDiagnose(ctx context.Context, out io.Writer, checks []DiagnosticCheck) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Title.Render(styles.IconHealth+" Running Diagnostics"))

	results := make([]CheckResult, 0, len(checks))
	allPassed := true

	for _, check := range checks {
		fmt.Fprintf(out, "  %s Checking %s... ", styles.IconPending, check.Name)

		result := check.Check(ctx)
		results = append(results, result)

		switch result.Status {
		case StatusOK:
			fmt.Fprintln(out, styles.SuccessStyle.Render("OK"))
		case StatusWarning:
			fmt.Fprintln(out, styles.WarningStyle.Render("WARNING"))
			allPassed = false
		default:
			fmt.Fprintln(out, styles.ErrorStyle.Render("FAILED"))
			allPassed = false
		}

		if result.Message != "" {
			fmt.Fprintf(out, "    %s\n", styles.Muted.Render(result.Message))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Divider(50))
	fmt.Fprintln(out)

	if allPassed {
		fmt.Fprintln(out, styles.FormatSuccess("All checks passed! Your ledger setup is healthy."))
		return true
	}

	fmt.Fprintln(out, styles.FormatWarning("Some checks failed or have warnings."))
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Subtitle.Render("Recommendations:"))
	for _, r := range results {
		if r.Recommendation != "" {
			fmt.Fprintf(out, "  %s %s\n", styles.IconArrow, r.Recommendation)
		}
	}
	return false
}

// CheckStatus represents the status of a diagnostic check
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusWarning
	StatusError
)

// CheckResult represents the result of a diagnostic check
type CheckResult struct {
	Name           string
	Status         CheckStatus
	Message        string
	Recommendation string
}

func newCheckResult(name string, status CheckStatus, message string) CheckResult {
	return CheckResult{Name: name, Status: status, Message: message}
}

func (r CheckResult) withRecommendation(rec string) CheckResult {
	r.Recommendation = rec
	return r
}

// DiagnosticCheck represents a diagnostic check function
type DiagnosticCheck struct {
	Name  string
	Check func(ctx context.Context) CheckResult
}

// diagnosis shares the loaded config and the opened environment between
// checks so the database is connected once.
type diagnosis struct {
	g      *globals
	cfg    *config.Config
	cfgErr error

	env    *Env
	envErr error
	opened bool
}

// open returns the environment, or a skip result when no database check
// should run.
func (d *diagnosis) open(ctx context.Context, name string) (*Env, *CheckResult) {
	if d.cfgErr != nil {
		r := newCheckResult(name, StatusWarning, "Skipped (no configuration)")
		return nil, &r
	}
	if isMemory(d.cfg) && d.g.adapter == nil {
		r := newCheckResult(name, StatusOK, "Using in-memory driver (no connection needed)")
		return nil, &r
	}
	if !d.opened {
		d.env, d.envErr = d.g.openEnv(ctx)
		d.opened = true
	}
	if d.envErr != nil {
		r := newCheckResult(name, StatusError, d.envErr.Error()).withRecommendation("Verify database.url and that the server is running")
		return nil, &r
	}
	return d.env, nil
}

func (d *diagnosis) close() {
	if d.env != nil {
		d.env.Close()
	}
}

func checkGoVersion(context.Context) CheckResult {
	version := runtime.Version()
	if version < "go1.24" {
		return newCheckResult("Go Version", StatusWarning, version).
			withRecommendation("Upgrade to Go 1.24 or later")
	}
	return newCheckResult("Go Version", StatusOK, version)
}

func (d *diagnosis) checkConfiguration(context.Context) CheckResult {
	const name = "Configuration"
	if d.cfgErr != nil {
		return newCheckResult(name, StatusWarning, d.cfgErr.Error()).
			withRecommendation("Run 'ledger init' to create a configuration file")
	}
	if problems := d.cfg.Validate(); len(problems) > 0 {
		return newCheckResult(name, StatusWarning, fmt.Sprintf("%d validation errors", len(problems))).
			withRecommendation(problems[0])
	}
	return newCheckResult(name, StatusOK, fmt.Sprintf("Driver: %s, Serializer: %s", d.cfg.Database.Driver, d.cfg.EventStore.Serializer))
}

func (d *diagnosis) checkDatabaseConnection(ctx context.Context) CheckResult {
	const name = "Database Connection"
	env, skip := d.open(ctx, name)
	if skip != nil {
		return *skip
	}

	hc, ok := env.Adapter.(adapters.HealthChecker)
	if !ok {
		return newCheckResult(name, StatusOK, "Adapter has no health check")
	}
	if err := hc.Ping(ctx); err != nil {
		return newCheckResult(name, StatusError, err.Error()).withRecommendation("Check database server status")
	}
	return newCheckResult(name, StatusOK, "Connected")
}

func (d *diagnosis) checkEventStoreSchema(ctx context.Context) CheckResult {
	const name = "Event Store Schema"
	env, skip := d.open(ctx, name)
	if skip != nil {
		return *skip
	}

	m, ok := env.Adapter.(adapters.Migrator)
	if !ok {
		return newCheckResult(name, StatusOK, "Skipped (adapter has no schema)")
	}
	version, err := m.MigrationVersion(ctx)
	if err != nil {
		return newCheckResult(name, StatusError, err.Error()).withRecommendation("Check database permissions")
	}
	if version == 0 {
		return newCheckResult(name, StatusWarning, "Tables not found").withRecommendation("Run 'ledger migrate up' to create tables")
	}
	return newCheckResult(name, StatusOK, fmt.Sprintf("Schema %q at version %d", env.Config.Database.Schema, version))
}

func (d *diagnosis) checkKafka(ctx context.Context) CheckResult {
	const name = "Kafka"
	if d.cfgErr != nil || !d.cfg.Kafka.Enabled {
		return newCheckResult(name, StatusOK, "Disabled")
	}

	brokers := d.cfg.KafkaBrokers()
	if len(brokers) == 0 {
		return newCheckResult(name, StatusError, "No brokers configured").withRecommendation("Set kafka.brokers")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := kafkago.DialContext(dialCtx, "tcp", brokers[0])
	if err != nil {
		return newCheckResult(name, StatusError, err.Error()).withRecommendation("Check that the brokers are reachable")
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(d.cfg.Kafka.Topic)
	if err != nil || len(partitions) == 0 {
		return newCheckResult(name, StatusWarning, fmt.Sprintf("Topic %q not found", d.cfg.Kafka.Topic)).
			withRecommendation("Create the topic or enable auto creation on the brokers")
	}
	return newCheckResult(name, StatusOK, fmt.Sprintf("Topic %q has %d partition(s)", d.cfg.Kafka.Topic, len(partitions)))
}

func checkSystemResources(context.Context) CheckResult {
	const name = "System Resources"
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	allocMB := float64(m.Alloc) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024
	message := fmt.Sprintf("Memory: %.1f MB used, %.1f MB total", allocMB, sysMB)

	if allocMB > 500 {
		return newCheckResult(name, StatusWarning, message).withRecommendation("Consider optimizing memory usage")
	}
	return newCheckResult(name, StatusOK, message)
}

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.SimpleBanner())
			fmt.Fprintln(out)

			table := ui.NewTable("", "")
			table.AddRow("Version", version)
			table.AddRow("Commit", commit)
			table.AddRow("Built", date)
			table.AddRow("Go", runtime.Version())
			table.AddRow("OS/Arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH))

			fmt.Fprintln(out, table.Render())

			return nil
		},
	}
}
