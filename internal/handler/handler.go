// Package handler runs chat messages through the parse, confirm and execute workflow.
//
// Read commands reply immediately. Write commands store a pending confirmation
// and only touch the ledger once the chat answers yes.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clawback/clawback/internal/audit"
	"clawback/clawback/internal/ledger"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parser"
	"clawback/clawback/internal/parsererror"
	"clawback/clawback/internal/sheets"
	"clawback/clawback/internal/store"

	"github.com/shopspring/decimal"
)

// Auditor records raw inputs.
type Auditor interface {
	Log(input, chatID string, status audit.Status, errMsg string) error
}

// Options tune a Handler. Zero values fall back to defaults.
type Options struct {
	DefaultCurrency string
	Journal         *ledger.Journal
	Clock           func() time.Time
}

// Handler wires the parser and ledger to storage, conversion and sheet sync.
type Handler struct {
	store           store.StateStore
	conv            ledger.Converter
	sheets          sheets.Syncer
	auditor         Auditor
	logger          logging.Logger
	journal         *ledger.Journal
	clock           func() time.Time
	defaultCurrency string
}

// New creates a Handler. A nil syncer disables sheet sync and a nil auditor disables the audit log.
func New(st store.StateStore, conv ledger.Converter, syncer sheets.Syncer, auditor Auditor, logger logging.Logger, opts Options) *Handler {
	if syncer == nil {
		syncer = sheets.Disabled{}
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = models.DefaultBaseCurrency
	}
	if opts.Journal == nil {
		opts.Journal = ledger.NewJournal()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Handler{
		store:           st,
		conv:            conv,
		sheets:          syncer,
		auditor:         auditor,
		logger:          logger,
		journal:         opts.Journal,
		clock:           opts.Clock,
		defaultCurrency: opts.DefaultCurrency,
	}
}

// HandleMessage processes one chat message and returns the reply.
// Store failures are logged and reported in the reply rather than returned.
func (h *Handler) HandleMessage(ctx context.Context, chatID, text string) string {
	reply, err := h.handle(ctx, chatID, text)
	if err != nil {
		h.logger.WithError(err).Error("Failed to handle message",
			logging.F(logging.FieldChatID, chatID))
		return fmt.Sprintf(errorInternal, err)
	}
	return reply
}

func (h *Handler) handle(ctx context.Context, chatID, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		h.audit(raw, chatID, audit.StatusIgnored, "")
		return "", nil
	}

	pending, ok, err := h.store.Pending(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("error loading pending confirmation: %w", err)
	}
	if ok {
		switch {
		case IsConfirmation(text):
			h.audit(raw, chatID, audit.StatusOK, "")
			return h.executePending(ctx, chatID, pending)
		case IsRejection(text):
			h.audit(raw, chatID, audit.StatusOK, "")
			if err := h.store.ClearPending(ctx, chatID); err != nil {
				return "", err
			}
			return cancelled, nil
		}
		if err := h.store.ClearPending(ctx, chatID); err != nil {
			return "", err
		}
	}

	cmd, perr := parser.Parse(text)
	if perr != nil {
		h.audit(raw, chatID, audit.StatusError, perr.Message)
		h.logger.Debug("Parse failed",
			logging.F(logging.FieldChatID, chatID),
			logging.F(logging.FieldStatus, string(perr.Category)))
		return FormatParseError(perr), nil
	}
	h.audit(raw, chatID, audit.StatusOK, "")

	trip, hasTrip, err := h.activeTrip(ctx, chatID)
	if err != nil {
		return "", err
	}

	h.logger.Debug("Parsed command",
		logging.F(logging.FieldChatID, chatID),
		logging.F(logging.FieldCommand, string(cmd.Kind())))

	if cmd.Kind().IsWrite() {
		return h.handleWrite(ctx, chatID, cmd, trip, hasTrip)
	}
	return h.handleRead(ctx, cmd, trip, hasTrip), nil
}

func (h *Handler) audit(input, chatID string, status audit.Status, errMsg string) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Log(input, chatID, status, errMsg); err != nil {
		h.logger.WithError(err).Warn("Failed to write audit entry", logging.F(logging.FieldChatID, chatID))
	}
}

// activeTrip returns the chat's active trip. A mapping to a deleted trip counts as none.
func (h *Handler) activeTrip(ctx context.Context, chatID string) (models.Trip, bool, error) {
	name, ok, err := h.store.ActiveTrip(ctx, chatID)
	if err != nil || !ok {
		return models.Trip{}, false, err
	}
	return h.lookupTrip(ctx, name)
}

func (h *Handler) lookupTrip(ctx context.Context, name string) (models.Trip, bool, error) {
	trip, err := h.store.Get(ctx, name)
	if errors.Is(err, parsererror.ErrTripNotFound) {
		return models.Trip{}, false, nil
	}
	if err != nil {
		return models.Trip{}, false, err
	}
	return trip, true, nil
}

func (h *Handler) handleWrite(ctx context.Context, chatID string, cmd models.Command, trip models.Trip, hasTrip bool) (string, error) {
	pending := models.PendingConfirmation{ChatID: chatID, Command: cmd}

	if tc, ok := cmd.(models.TripCommand); ok {
		existing, found, err := h.lookupTrip(ctx, tc.Name)
		if err != nil {
			return "", err
		}
		if found {
			if err := h.store.SetActiveTrip(ctx, chatID, existing.Name); err != nil {
				return "", err
			}
			return fmt.Sprintf(tripSwitched, existing.Name, h.debtsText(ctx, existing, existing.BaseCurrency)), nil
		}
		pending.TripName = tc.Name
	} else {
		if !hasTrip {
			return noActiveTrip, nil
		}
		pending.TripName = trip.Name
	}

	confirmation, needsAnswer := h.confirmation(cmd, trip)
	if !needsAnswer {
		return confirmation, nil
	}
	pending.ConfirmationText = confirmation
	pending.CreatedAt = h.clock()
	if err := h.store.SetPending(ctx, pending); err != nil {
		return "", fmt.Errorf("error storing pending confirmation: %w", err)
	}
	return confirmation, nil
}

// confirmation renders the prompt for a write command. The second result is
// false when there is nothing to confirm.
func (h *Handler) confirmation(cmd models.Command, trip models.Trip) (string, bool) {
	switch c := cmd.(type) {
	case models.AddExpenseCommand:
		return h.confirmExpense(c, trip)

	case models.SettleCommand:
		return fmt.Sprintf(confirmSettle, c.From, c.To, formatMoney(models.NewMoney(c.Amount, c.Currency))), true

	case models.UndoCommand:
		_, removed := ledger.UndoLast(trip)
		switch {
		case removed.Expense != nil:
			return fmt.Sprintf(confirmUndo, "expense", describeExpense(*removed.Expense)), true
		case removed.Settlement != nil:
			return fmt.Sprintf(confirmUndo, "settlement", describeSettlement(*removed.Settlement)), true
		}
		return nothingToUndo, false

	case models.TripCommand:
		return fmt.Sprintf(confirmTripCreate, c.Name, h.tripCurrency(c)), true
	}
	return fmt.Sprintf("Confirm: %s?", cmd.Raw()), true
}

// confirmExpense renders the expense prompt. The second result is false when
// the splits cannot be resolved and there is nothing to confirm.
func (h *Handler) confirmExpense(c models.AddExpenseCommand, trip models.Trip) (string, bool) {
	total := models.NewMoney(c.Amount, c.Currency)
	amount := formatMoney(total)

	if c.SplitType == models.SplitCustom {
		splits := ledger.CustomSplits(c.CustomSplits, c.Currency)
		warn := customMismatchWarning(c.Amount, c.CustomTotal(), c.Currency)
		return fmt.Sprintf(confirmCustom, c.Description, amount, c.PaidBy, formatSplits(splits), warn), true
	}
	if c.SplitType == models.SplitOnly && len(c.SplitAmong) == 1 && strings.EqualFold(c.SplitAmong[0], c.PaidBy) {
		return fmt.Sprintf(confirmOnlySelf, c.Description, amount, c.PaidBy), true
	}
	if c.SplitType != models.SplitOnly && len(c.SplitAmong) == 0 && len(trip.Participants) == 0 {
		return fmt.Sprintf(confirmEqualPayerOnly, c.Description, amount, c.PaidBy, c.PaidBy), true
	}

	splits, err := expenseSplits(c, trip)
	if err != nil {
		return fmt.Sprintf(errorValidation, err), false
	}
	if c.SplitType == models.SplitOnly {
		return fmt.Sprintf(confirmOnly, c.Description, amount, c.PaidBy,
			strings.Join(c.SplitAmong, " & "), formatMoney(splits[0].Amount)), true
	}
	return fmt.Sprintf(confirmEqual, c.Description, amount, c.PaidBy, formatSplits(splits)), true
}

func (h *Handler) tripCurrency(c models.TripCommand) string {
	if c.BaseCurrency != "" {
		return c.BaseCurrency
	}
	return h.defaultCurrency
}

func (h *Handler) handleRead(ctx context.Context, cmd models.Command, trip models.Trip, hasTrip bool) string {
	if cmd.Kind() == models.KindHelp {
		return helpText
	}
	if !hasTrip {
		return noActiveTrip
	}

	switch c := cmd.(type) {
	case models.BalancesCommand:
		currency := c.DisplayCurrency
		if currency == "" {
			currency = trip.BaseCurrency
		}
		debts, err := ledger.SimplifyTrip(ctx, trip, currency, h.conv)
		if err != nil {
			h.logConversion(err, trip, currency)
			return fmt.Sprintf(balancesReply, trip.Name, fmt.Sprintf(errorConversion, err), h.sheetLink(trip))
		}
		if len(debts) == 0 {
			return allSettled
		}
		return fmt.Sprintf(balancesReply, trip.Name, FormatDebts(debts), h.sheetLink(trip))

	case models.SummaryCommand:
		return h.summary(ctx, trip)

	case models.WhoCommand:
		if len(trip.Participants) == 0 {
			return fmt.Sprintf(whoEmpty, trip.Name)
		}
		lines := make([]string, 0, len(trip.Participants))
		for _, p := range trip.Participants {
			lines = append(lines, "• "+p)
		}
		return fmt.Sprintf(whoReply, trip.Name, strings.Join(lines, "\n"))
	}
	return "Unknown command"
}

func (h *Handler) summary(ctx context.Context, trip models.Trip) string {
	currency := trip.BaseCurrency
	participants := strings.Join(trip.Participants, ", ")
	if participants == "" {
		participants = "None yet"
	}

	totalText := ""
	total := decimal.Zero
	for _, e := range trip.Expenses {
		converted, err := h.conv.Convert(ctx, e.Total.Amount, e.Total.Currency, currency)
		if err != nil {
			h.logConversion(err, trip, currency)
			totalText = fmt.Sprintf(errorConversion, err)
			break
		}
		total = total.Add(converted)
	}
	if totalText == "" {
		totalText = formatMoney(models.NewMoney(total, currency))
	}

	return fmt.Sprintf(summaryReply, trip.Name, participants, totalText, len(trip.Settlements),
		h.debtsText(ctx, trip, currency), h.sheetLink(trip))
}

// debtsText renders simplified debts, or a warning when conversion fails.
func (h *Handler) debtsText(ctx context.Context, trip models.Trip, currency string) string {
	debts, err := ledger.SimplifyTrip(ctx, trip, currency, h.conv)
	if err != nil {
		h.logConversion(err, trip, currency)
		return fmt.Sprintf(errorConversion, err)
	}
	return FormatDebts(debts)
}

func (h *Handler) logConversion(err error, trip models.Trip, currency string) {
	h.logger.WithError(err).Warn("Currency conversion failed",
		logging.F(logging.FieldTrip, trip.Name),
		logging.F(logging.FieldCurrency, currency))
}

func (h *Handler) sheetLink(trip models.Trip) string {
	if trip.SheetID == "" {
		return ""
	}
	return fmt.Sprintf(sheetLink, h.sheets.URL(trip.SheetID))
}

func (h *Handler) executePending(ctx context.Context, chatID string, pending models.PendingConfirmation) (string, error) {
	if err := h.store.ClearPending(ctx, chatID); err != nil {
		return "", err
	}

	if tc, ok := pending.Command.(models.TripCommand); ok {
		return h.createTrip(ctx, chatID, tc)
	}

	trip, found, err := h.lookupTrip(ctx, pending.TripName)
	if err != nil {
		return "", err
	}
	if !found {
		return noActiveTrip, nil
	}

	h.logger.Info("Executing confirmed command",
		logging.F(logging.FieldChatID, chatID),
		logging.F(logging.FieldTrip, trip.Name),
		logging.F(logging.FieldCommand, string(pending.Command.Kind())))

	switch c := pending.Command.(type) {
	case models.AddExpenseCommand:
		return h.addExpense(ctx, c, trip)
	case models.SettleCommand:
		return h.settle(ctx, c, trip)
	case models.UndoCommand:
		return h.undo(ctx, trip)
	}
	return "Unknown command", nil
}

func (h *Handler) createTrip(ctx context.Context, chatID string, c models.TripCommand) (string, error) {
	existing, found, err := h.lookupTrip(ctx, c.Name)
	if err != nil {
		return "", err
	}
	if found {
		if err := h.store.SetActiveTrip(ctx, chatID, existing.Name); err != nil {
			return "", err
		}
		return fmt.Sprintf(tripSwitched, existing.Name, h.debtsText(ctx, existing, existing.BaseCurrency)), nil
	}

	currency := h.tripCurrency(c)
	trip := models.NewTrip(c.Name, currency, h.clock())

	sheetInfo := ""
	sheetID, err := h.sheets.CreateSheet(ctx, c.Name)
	switch {
	case err != nil:
		h.logger.WithError(err).Warn("Sheet creation failed", logging.F(logging.FieldTrip, c.Name))
		sheetInfo = fmt.Sprintf(sheetCreateFailed, err)
	case sheetID != "":
		trip.SheetID = sheetID
		sheetInfo = fmt.Sprintf(sheetCreated, h.sheets.URL(sheetID))
	}

	if err := h.store.Save(ctx, trip); err != nil {
		return "", fmt.Errorf("error saving trip %q: %w", trip.Name, err)
	}
	if err := h.store.SetActiveTrip(ctx, chatID, trip.Name); err != nil {
		return "", err
	}

	h.logger.Info("Created trip",
		logging.F(logging.FieldTrip, trip.Name),
		logging.F(logging.FieldCurrency, currency))
	return fmt.Sprintf(tripCreated, trip.Name, currency, sheetInfo), nil
}

// expenseSplits resolves the split list for a confirmed expense.
func expenseSplits(c models.AddExpenseCommand, trip models.Trip) ([]models.Split, error) {
	total := models.NewMoney(c.Amount, c.Currency)
	switch c.SplitType {
	case models.SplitCustom:
		return ledger.CustomSplits(c.CustomSplits, c.Currency), nil
	case models.SplitOnly:
		return ledger.EqualSplits(total, c.SplitAmong)
	default:
		return ledger.EqualSplits(total, ledger.ResolveParticipants(c.SplitAmong, trip, c.PaidBy))
	}
}

func (h *Handler) addExpense(ctx context.Context, c models.AddExpenseCommand, trip models.Trip) (string, error) {
	splits, err := expenseSplits(c, trip)
	if err != nil {
		return fmt.Sprintf(errorValidation, err), nil
	}

	next, expense, err := h.journal.AddExpense(trip, ledger.ExpenseInput{
		Description: c.Description,
		Total:       models.NewMoney(c.Amount, c.Currency),
		PaidBy:      c.PaidBy,
		Splits:      splits,
	})
	if err != nil {
		var mismatch *parsererror.SplitMismatchError
		if errors.As(err, &mismatch) {
			return fmt.Sprintf(errorValidation, formatMismatch(mismatch, c.Currency)), nil
		}
		return fmt.Sprintf(errorValidation, err), nil
	}

	if err := h.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("error saving trip %q: %w", next.Name, err)
	}

	syncErr := h.sync(ctx, next, func(sheetID string) error {
		return h.sheets.AppendExpense(ctx, sheetID, expense)
	})

	reply := fmt.Sprintf(expenseAdded, expense.Description, formatMoney(expense.Total), expense.PaidBy,
		formatSplits(expense.Splits), h.debtsText(ctx, next, next.BaseCurrency))
	return withSyncWarning(reply, syncErr), nil
}

func (h *Handler) settle(ctx context.Context, c models.SettleCommand, trip models.Trip) (string, error) {
	next, settlement := h.journal.AddSettlement(trip, c.From, c.To, models.NewMoney(c.Amount, c.Currency), "")
	if err := h.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("error saving trip %q: %w", next.Name, err)
	}

	syncErr := h.sync(ctx, next, func(sheetID string) error {
		return h.sheets.AppendSettlement(ctx, sheetID, settlement)
	})

	reply := fmt.Sprintf(settleAdded, settlement.From, settlement.To, formatMoney(settlement.Amount),
		h.debtsText(ctx, next, next.BaseCurrency))
	return withSyncWarning(reply, syncErr), nil
}

func (h *Handler) undo(ctx context.Context, trip models.Trip) (string, error) {
	next, removed := ledger.UndoLast(trip)
	if removed.Empty() {
		return nothingToUndo, nil
	}
	if err := h.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("error saving trip %q: %w", next.Name, err)
	}

	var description string
	if removed.Expense != nil {
		description = describeExpense(*removed.Expense)
	} else {
		description = describeSettlement(*removed.Settlement)
	}
	return fmt.Sprintf(undoSuccess, description, h.debtsText(ctx, next, next.BaseCurrency)), nil
}

// sync appends the new entry and refreshes computed tabs when the trip has a sheet.
func (h *Handler) sync(ctx context.Context, trip models.Trip, appendEntry func(sheetID string) error) error {
	if trip.SheetID == "" {
		return nil
	}
	if err := appendEntry(trip.SheetID); err != nil {
		return h.syncFailed(trip, err)
	}

	balances, err := ledger.ComputeBalances(ctx, trip, trip.BaseCurrency, h.conv)
	if err != nil {
		return h.syncFailed(trip, err)
	}
	if err := h.sheets.RefreshComputed(ctx, trip.SheetID, balances, ledger.Simplify(balances), trip.BaseCurrency); err != nil {
		return h.syncFailed(trip, err)
	}
	return nil
}

func (h *Handler) syncFailed(trip models.Trip, err error) error {
	h.logger.WithError(err).Warn("Sheet sync failed",
		logging.F(logging.FieldTrip, trip.Name),
		logging.F(logging.FieldSheetID, trip.SheetID))
	return err
}

func withSyncWarning(reply string, syncErr error) string {
	if syncErr == nil {
		return reply
	}
	return reply + "\n\n" + fmt.Sprintf(errorSheets, syncErr)
}

func describeExpense(e models.Expense) string {
	return e.Description + " " + formatMoney(e.Total)
}

func describeSettlement(s models.Settlement) string {
	return fmt.Sprintf("%s → %s %s", s.From, s.To, formatMoney(s.Amount))
}
