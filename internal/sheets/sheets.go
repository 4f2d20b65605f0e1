// Package sheets mirrors trips into a Google Sheet through the gog CLI.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"clawback/clawback/internal/ledger"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"
)

// Tab names, in creation order.
const (
	TabExpenses    = "Expenses"
	TabSplits      = "Splits"
	TabSettlements = "Settlements"
	TabBalances    = "Balances"
	TabSummary     = "Summary"
)

// Tabs lists every tab a trip sheet carries.
var Tabs = []string{TabExpenses, TabSplits, TabSettlements, TabBalances, TabSummary}

// Headers holds the first row of each tab.
var Headers = map[string][]string{
	TabExpenses:    {"expense_id", "timestamp", "description", "amount", "currency", "paid_by"},
	TabSplits:      {"expense_id", "person", "amount_owed", "currency"},
	TabSettlements: {"settlement_id", "timestamp", "from", "to", "amount", "currency", "notes"},
	TabBalances:    {"person", "net_balance", "currency"},
	TabSummary:     {"from", "to", "amount", "currency"},
}

const computedRange = "A2:Z1000"

// Syncer pushes trip changes to a spreadsheet.
type Syncer interface {
	CreateSheet(ctx context.Context, tripName string) (string, error)
	AppendExpense(ctx context.Context, sheetID string, expense models.Expense) error
	AppendSettlement(ctx context.Context, sheetID string, settlement models.Settlement) error
	RefreshComputed(ctx context.Context, sheetID string, balances ledger.Balances, debts []models.Debt, currency string) error
	URL(sheetID string) string
}

// URL returns the browser link for a sheet id.
func URL(sheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + sheetID
}

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin string) (stdout []byte, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	err := cmd.Run()
	return out.Bytes(), stderr.Bytes(), err
}

// Config configures a GogClient.
type Config struct {
	Binary  string
	Account string
	Timeout time.Duration
}

// GogClient implements Syncer by shelling out to gog.
type GogClient struct {
	cfg    Config
	runner Runner
	logger logging.Logger
}

// NewGogClient creates a client. A nil runner means ExecRunner.
func NewGogClient(cfg Config, runner Runner, logger logging.Logger) *GogClient {
	if cfg.Binary == "" {
		cfg.Binary = "gog"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &GogClient{cfg: cfg, runner: runner, logger: logger}
}

// URL implements Syncer.
func (c *GogClient) URL(sheetID string) string {
	return URL(sheetID)
}

// run executes one gog call and decodes its JSON output. Plain text output is
// returned under the "output" key.
func (c *GogClient) run(ctx context.Context, op string, args []string, rows [][]string) (map[string]interface{}, error) {
	if c.cfg.Account != "" {
		args = append(args, "--account", c.cfg.Account)
	}

	stdin := ""
	if rows != nil {
		data, err := json.Marshal(rows)
		if err != nil {
			return nil, &parsererror.SheetsError{Op: op, Msg: "encoding rows", Err: err}
		}
		stdin = string(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := c.runner.Run(ctx, c.cfg.Binary, args, stdin)
	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, &parsererror.SheetsError{Op: op, Msg: c.cfg.Binary + " CLI not found", Err: err}
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, &parsererror.SheetsError{Op: op, Msg: fmt.Sprintf("timed out after %s", c.cfg.Timeout), Err: ctx.Err()}
		default:
			return nil, &parsererror.SheetsError{Op: op, Msg: strings.TrimSpace(string(stderr)), Err: err}
		}
	}

	c.logger.Debug("gog call finished",
		logging.F(logging.FieldOperation, op),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))

	text := strings.TrimSpace(string(stdout))
	if text == "" {
		return map[string]interface{}{}, nil
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return map[string]interface{}{"output": text}, nil
	}
	return parsed, nil
}

// CreateSheet creates "Clawback - <trip>" with every tab and its header row.
func (c *GogClient) CreateSheet(ctx context.Context, tripName string) (string, error) {
	result, err := c.run(ctx, "create", []string{"sheets", "create", "Clawback - " + tripName, "--json"}, nil)
	if err != nil {
		return "", err
	}

	sheetID := ""
	for _, key := range []string{"spreadsheetId", "id"} {
		if v, ok := result[key]; ok && v != nil {
			sheetID = fmt.Sprint(v)
			break
		}
	}
	if sheetID == "" {
		return "", &parsererror.SheetsError{Op: "create", Msg: "no sheet id in create response"}
	}

	for i, tab := range Tabs {
		args := []string{"sheets", "add-tab", sheetID, tab}
		op := "add-tab"
		if i == 0 {
			args = []string{"sheets", "rename-tab", sheetID, "Sheet1", tab}
			op = "rename-tab"
		}
		if _, err := c.run(ctx, op, args, nil); err != nil {
			return sheetID, err
		}
	}

	for _, tab := range Tabs {
		if _, err := c.run(ctx, "append", []string{"sheets", "append", sheetID, tab, "--json"}, [][]string{Headers[tab]}); err != nil {
			return sheetID, err
		}
	}

	c.logger.Info("Created trip sheet", logging.F(logging.FieldTrip, tripName), logging.F(logging.FieldSheetID, sheetID))
	return sheetID, nil
}

// AppendExpense adds the expense row and one row per split.
func (c *GogClient) AppendExpense(ctx context.Context, sheetID string, expense models.Expense) error {
	row := []string{
		expense.ID,
		expense.Timestamp.Format(time.RFC3339),
		expense.Description,
		expense.Total.Amount.String(),
		expense.Total.Currency,
		expense.PaidBy,
	}
	if _, err := c.run(ctx, "append", []string{"sheets", "append", sheetID, TabExpenses, "--json"}, [][]string{row}); err != nil {
		return err
	}

	if len(expense.Splits) == 0 {
		return nil
	}
	splitRows := make([][]string, 0, len(expense.Splits))
	for _, split := range expense.Splits {
		splitRows = append(splitRows, []string{expense.ID, split.Person, split.Amount.Amount.String(), split.Amount.Currency})
	}
	_, err := c.run(ctx, "append", []string{"sheets", "append", sheetID, TabSplits, "--json"}, splitRows)
	return err
}

// AppendSettlement adds one settlement row.
func (c *GogClient) AppendSettlement(ctx context.Context, sheetID string, settlement models.Settlement) error {
	row := []string{
		settlement.ID,
		settlement.Timestamp.Format(time.RFC3339),
		settlement.From,
		settlement.To,
		settlement.Amount.Amount.String(),
		settlement.Amount.Currency,
		settlement.Notes,
	}
	_, err := c.run(ctx, "append", []string{"sheets", "append", sheetID, TabSettlements, "--json"}, [][]string{row})
	return err
}

// RefreshComputed clears and rewrites the Balances and Summary tabs.
// Balances are written sorted by person.
func (c *GogClient) RefreshComputed(ctx context.Context, sheetID string, balances ledger.Balances, debts []models.Debt, currency string) error {
	sorted := append(ledger.Balances{}, balances...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Person < sorted[j].Person })

	balanceRows := [][]string{Headers[TabBalances]}
	for _, b := range sorted {
		balanceRows = append(balanceRows, []string{b.Person, b.Amount.Amount.StringFixed(models.MoneyPlaces), currency})
	}
	if err := c.rewrite(ctx, sheetID, TabBalances, balanceRows); err != nil {
		return err
	}

	summaryRows := [][]string{Headers[TabSummary]}
	for _, d := range debts {
		summaryRows = append(summaryRows, []string{d.Debtor, d.Creditor, d.Amount.Amount.StringFixed(models.MoneyPlaces), currency})
	}
	return c.rewrite(ctx, sheetID, TabSummary, summaryRows)
}

func (c *GogClient) rewrite(ctx context.Context, sheetID, tab string, rows [][]string) error {
	if _, err := c.run(ctx, "clear", []string{"sheets", "clear", sheetID, tab, "--range", computedRange}, nil); err != nil {
		return err
	}
	_, err := c.run(ctx, "write", []string{"sheets", "write", sheetID, tab, "--range", "A1", "--json"}, rows)
	return err
}

// Disabled is a Syncer that does nothing. CreateSheet returns an empty id.
type Disabled struct{}

func (Disabled) CreateSheet(context.Context, string) (string, error)               { return "", nil }
func (Disabled) AppendExpense(context.Context, string, models.Expense) error       { return nil }
func (Disabled) AppendSettlement(context.Context, string, models.Settlement) error { return nil }
func (Disabled) RefreshComputed(context.Context, string, ledger.Balances, []models.Debt, string) error {
	return nil
}
func (Disabled) URL(sheetID string) string { return URL(sheetID) }
