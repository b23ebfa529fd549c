package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const usage = `usage: fintrack [-owner N] [-db PATH] <command> [flags]

commands:
  add        append a transaction to the ledger
  set-budget create or update a monthly budget
  summary    income/expense totals, optionally filtered
  trend      monthly income and expense flows
  breakdown  top expense categories
  savings    savings rate over a trailing window
  budgets    budget status and alerts for a month
  due        recurring definitions due for execution
  execute    materialize one recurring definition
  goals      financial goal progress
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelWarn)

	ownerID := flag.Int64("owner", 1, "owner id to operate on")
	dbPath := flag.String("db", "", "sqlite database path (defaults to SQLITE_DB_PATH)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	if *dbPath != "" {
		cfg.SQLiteDBPath = *dbPath
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	app := &app{
		owner:     *ownerID,
		repo:      repo,
		analytics: services.NewAnalyticsService(repo),
		budgets:   services.NewBudgetService(repo),
		scheduler: services.NewSchedulerService(repo),
		goals:     services.NewGoalService(repo, repo),
	}

	ctx := context.Background()
	command, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch command {
	case "add":
		err = app.add(ctx, args)
	case "set-budget":
		err = app.setBudget(ctx, args)
	case "summary":
		err = app.summary(ctx, args)
	case "trend":
		err = app.trend(ctx)
	case "breakdown":
		err = app.breakdown(ctx)
	case "savings":
		err = app.savings(ctx, args)
	case "budgets":
		err = app.budgetStatus(ctx, args)
	case "due":
		err = app.due(ctx, args)
	case "execute":
		err = app.execute(ctx, args)
	case "goals":
		err = app.goalProgress(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	owner     int64
	repo      *storage.SQLiteRepository
	analytics *services.AnalyticsService
	budgets   *services.BudgetService
	scheduler *services.SchedulerService
	goals     *services.GoalService
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	dateArg := fs.String("date", today().String(), "transaction date (YYYY-MM-DD)")
	amountArg := fs.String("amount", "", "amount, e.g. 12.34")
	kindArg := fs.String("kind", "expense", "income or expense")
	categoryID := fs.Int64("category", 0, "category id (0 = uncategorized)")
	desc := fs.String("desc", "", "description")
	fs.Parse(args)

	date, err := core.ParseDate(*dateArg)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(*amountArg)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *amountArg, err)
	}

	t := core.Transaction{
		Date:        date,
		Amount:      amount,
		Kind:        core.Kind(*kindArg),
		Description: *desc,
		OwnerID:     a.owner,
	}
	if *categoryID != 0 {
		t.CategoryID = categoryID
	}

	created, err := a.repo.AppendTransaction(ctx, t)
	if err != nil {
		return err
	}
	a.analytics.Invalidate(a.owner, today())

	fmt.Printf("added transaction #%d: %s %s on %s\n", created.ID, created.Kind, created.Amount, created.Date)
	return nil
}

func (a *app) setBudget(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-budget", flag.ExitOnError)
	month := fs.String("month", today().MonthKey(), "month (YYYY-MM)")
	categoryID := fs.Int64("category", 0, "category id (0 = overall budget)")
	limitArg := fs.String("limit", "", "spending limit, e.g. 500.00")
	fs.Parse(args)

	limit, err := core.ParseAmount(*limitArg)
	if err != nil {
		return fmt.Errorf("limit %q: %w", *limitArg, err)
	}

	b := core.Budget{Month: *month, Limit: limit, OwnerID: a.owner}
	if *categoryID != 0 {
		b.CategoryID = categoryID
	}

	saved, err := a.budgets.Upsert(ctx, b)
	if err != nil {
		return err
	}
	fmt.Printf("budget #%d: %s limit %s\n", saved.ID, saved.Month, saved.Limit)
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	month := fs.Int("month", 0, "filter by month (1-12)")
	year := fs.Int("year", 0, "filter by year")
	kind := fs.String("kind", "", "filter by kind (income|expense)")
	fs.Parse(args)

	f := core.Filter{Month: *month, Year: *year, Kind: core.Kind(*kind)}
	if f.Kind != "" {
		if err := f.Kind.Validate(); err != nil {
			return err
		}
	}

	summary, txns, err := a.analytics.Summary(ctx, a.owner, f)
	if err != nil {
		return err
	}

	fmt.Printf("transactions: %d\n", len(txns))
	fmt.Printf("income:       %s\n", summary.TotalIncome)
	fmt.Printf("expense:      %s\n", summary.TotalExpense)
	fmt.Printf("balance:      %s\n", summary.Balance())
	return nil
}

func (a *app) trend(ctx context.Context) error {
	report, err := a.analytics.Overview(ctx, a.owner, today())
	if err != nil {
		return err
	}
	for _, flow := range report.Trend {
		fmt.Printf("%s  income %10s  expense %10s\n", flow.Month, flow.Income, flow.Expense)
	}
	return nil
}

func (a *app) breakdown(ctx context.Context) error {
	report, err := a.analytics.Overview(ctx, a.owner, today())
	if err != nil {
		return err
	}
	for _, cs := range report.Breakdown {
		fmt.Printf("%-20s %10s  (%d transactions)\n", cs.Category, cs.Total, cs.Count)
	}
	return nil
}

func (a *app) savings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("savings", flag.ExitOnError)
	months := fs.Int("months", 6, "trailing window in months")
	fs.Parse(args)

	report, err := a.analytics.SavingsReport(ctx, a.owner, today(), *months)
	if err != nil {
		return err
	}
	for _, m := range report.Months {
		if m.HasIncome {
			fmt.Printf("%s  income %10s  expense %10s  rate %6.1f%%\n", m.Month, m.Income, m.Expense, m.Rate)
		} else {
			fmt.Printf("%s  income %10s  expense %10s  rate      -\n", m.Month, m.Income, m.Expense)
		}
	}
	fmt.Printf("average savings rate: %.1f%%\n", report.AverageRate)
	return nil
}

func (a *app) budgetStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budgets", flag.ExitOnError)
	month := fs.String("month", today().MonthKey(), "month to evaluate (YYYY-MM)")
	fs.Parse(args)

	statuses, alerts, err := a.budgets.EvaluateMonth(ctx, a.owner, *month)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		name := s.Budget.Category
		if name == "" {
			name = "(uncategorized)"
		}
		marker := " "
		if s.OverBudget {
			marker = "!"
		}
		fmt.Printf("%s %-20s spent %10s of %10s  (%5.1f%%)\n", marker, name, s.Spent, s.Budget.Limit, s.Percentage)
	}
	for _, alert := range alerts {
		fmt.Printf("%s: %s %s\n", alert.Severity, alert.Category, alert.Message)
	}
	return nil
}

func (a *app) due(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("due", flag.ExitOnError)
	asOfArg := fs.String("as-of", today().String(), "reference day (YYYY-MM-DD)")
	limit := fs.Int("limit", 50, "maximum definitions to list")
	fs.Parse(args)

	asOf, err := core.ParseDate(*asOfArg)
	if err != nil {
		return err
	}

	due, err := a.scheduler.Due(ctx, a.owner, asOf, *limit)
	if err != nil {
		return err
	}
	for _, rd := range due {
		fmt.Printf("#%-4d %-20s %10s %-8s next %s\n", rd.ID, rd.Title, rd.Amount, rd.Frequency, rd.NextDate)
	}
	return nil
}

func (a *app) execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	id := fs.Int64("id", 0, "recurring definition id")
	fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("missing -id")
	}

	res, err := a.scheduler.Execute(ctx, a.owner, *id)
	if err != nil {
		return err
	}
	a.analytics.Invalidate(a.owner, today())

	fmt.Printf("created transaction #%d: %s %s on %s\n", res.Created.ID, res.Created.Description, res.Created.Amount, res.Created.Date)
	fmt.Printf("next occurrence: %s\n", res.Definition.NextDate)
	return nil
}

func (a *app) goalProgress(ctx context.Context) error {
	progress, err := a.goals.Progress(ctx, a.owner, time.Now())
	if err != nil {
		return err
	}
	for _, p := range progress {
		state := fmt.Sprintf("%d days left", p.DaysLeft)
		if p.Completed {
			state = "completed"
		}
		fmt.Printf("%-20s %10s of %10s  (%5.1f%%, %s)\n", p.Goal.Title, p.Current, p.Goal.TargetAmount, p.Percentage, state)
	}
	return nil
}

func today() core.Date {
	now := time.Now().UTC()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}
