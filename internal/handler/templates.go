package handler

import (
	"fmt"
	"strings"

	"clawback/clawback/internal/currencyutils"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"

	"github.com/shopspring/decimal"
)

// Reply text. Placeholders are filled with fmt in the order they appear.
const (
	confirmEqual            = "💬 Got it: *%s* %s paid by %s, split equally → %s. Add this? (yes/no)"
	confirmEqualPayerOnly   = "💬 Got it: *%s* %s paid by %s. No participants known yet, so it stays with %s. Add this? (yes/no)"
	confirmOnly             = "💬 Got it: *%s* %s paid by %s, only %s → each %s. Add this? (yes/no)"
	confirmOnlySelf         = "💬 Got it: *%s* %s paid by %s for themselves, nobody owes anything. Add this? (yes/no)"
	confirmCustom           = "💬 Got it: *%s* %s paid by %s, custom split → %s. %sAdd this? (yes/no)"
	confirmCustomMismatch   = "⚠️ splits sum to %s, %s by %s. "
	confirmSettle           = "💬 Settle: %s → %s: %s. Mark as paid? (yes/no)"
	confirmUndo             = "💬 Undo last %s: *%s*? (yes/no)"
	confirmTripCreate       = "💬 Create new trip *%s* with base currency %s? (yes/no)"
	expenseAdded            = "✅ *%s* %s (paid by %s)\n%s\n\n📊 Running debts:\n%s"
	settleAdded             = "✅ %s → %s: %s settled\n\n📊 Remaining:\n%s"
	undoSuccess             = "↩️ Undid: *%s*\n\n📊 Updated debts:\n%s"
	tripCreated             = "🎉 Trip *%s* created!\nBase currency: %s\n%s"
	tripSwitched            = "📍 Switched to *%s*\n\n%s"
	balancesReply           = "📊 *%s* Balances\n\n%s\n\n%s"
	summaryReply            = "📋 *%s* Summary\n\n👥 Participants: %s\n💰 Total expenses: %s\n🔄 Settlements: %d\n\n📊 To settle up:\n%s\n\n%s"
	whoReply                = "👥 *%s* Participants\n\n%s"
	whoEmpty                = "👥 *%s*\n\nNo participants yet. Add an expense to add people."
	sheetLink               = "[View sheet](%s)"
	sheetCreated            = "📊 [Google Sheet](%s)"
	sheetCreateFailed       = "⚠️ Sheet creation failed: %v"
	errorValidation         = "⚠️ %s"
	errorSheets             = "⚠️ Saved locally but Google Sheets sync failed:\n%v\n\nThe entry is recorded - sheet will sync on next update."
	errorConversion         = "⚠️ Could not convert currencies: %v"
	errorInternal           = "⚠️ Something went wrong: %v"
	parseErrorUnknown       = "❓ Didn't understand: %s\n\n%s"
	parseErrorMissingPaidBy = "❓ Who paid? Add `paid by <person>` to the expense."
	parseErrorMissingAmount = "❓ I couldn't find an amount in that expense."
	parseErrorInvalidAmount = "❓ I couldn't read the amount."
	parseErrorInvalidCustom = "❓ I couldn't read the custom split."
)

const (
	helpText = "🧾 *Clawback* - Group Expense Splitter\n\n" +
		"*Add expenses:*\n" +
		"• `kai add <desc> <amount> paid by <person>`\n" +
		"• `kai add dinner ₪340 paid by Dan only Dan & Sara`\n" +
		"• `kai add wine €60 paid by Avi custom Dan:30, Sara:20, Avi:10`\n\n" +
		"*Settle up:*\n" +
		"• `kai settle Dan paid Sara ₪100`\n\n" +
		"*View status:*\n" +
		"• `kai balances` - who owes what\n" +
		"• `kai summary` - full trip summary\n" +
		"• `kai who` - list participants\n\n" +
		"*Manage:*\n" +
		"• `kai undo` - undo last action\n" +
		"• `kai trip <name>` - create/switch trip\n\n" +
		"Currencies: ₪/ILS, $/USD, €/EUR, £/GBP, ¥/JPY"

	noActiveTrip  = "⚠️ No active trip. Create one first:\n`kai trip <name>`"
	nothingToUndo = "🤷 Nothing to undo."
	allSettled    = "✨ All settled up! No outstanding debts."
	settledUp     = "✨ All settled up!"
	cancelled     = "❌ Cancelled."
)

var (
	yesWords = map[string]bool{"yes": true, "y": true, "yep": true, "yeah": true, "correct": true, "confirm": true, "ok": true, "👍": true, "✅": true}
	noWords  = map[string]bool{"no": true, "n": true, "nope": true, "cancel": true, "wrong": true, "👎": true, "❌": true}
)

// IsConfirmation reports whether text accepts a pending confirmation.
func IsConfirmation(text string) bool {
	return yesWords[strings.ToLower(strings.TrimSpace(text))]
}

// IsRejection reports whether text cancels a pending confirmation.
func IsRejection(text string) bool {
	return noWords[strings.ToLower(strings.TrimSpace(text))]
}

func formatMoney(m models.Money) string {
	return currencyutils.FormatAmount(m.Amount, m.Currency)
}

func formatSplits(splits []models.Split) string {
	parts := make([]string, 0, len(splits))
	for _, s := range splits {
		parts = append(parts, s.Person+" "+formatMoney(s.Amount))
	}
	return strings.Join(parts, ", ")
}

// FormatDebts renders one bullet per debt, or a settled-up line when there are none.
func FormatDebts(debts []models.Debt) string {
	if len(debts) == 0 {
		return settledUp
	}
	lines := make([]string, 0, len(debts))
	for _, d := range debts {
		lines = append(lines, fmt.Sprintf("• %s → %s: %s", d.Debtor, d.Creditor, formatMoney(d.Amount)))
	}
	return strings.Join(lines, "\n")
}

// FormatParseError picks the reply for a failed parse by its category.
func FormatParseError(perr *parsererror.ParseError) string {
	var header string
	switch perr.Category {
	case parsererror.CategoryMissingPaidBy:
		header = parseErrorMissingPaidBy
	case parsererror.CategoryMissingAmount:
		header = parseErrorMissingAmount
	case parsererror.CategoryInvalidAmount:
		header = parseErrorInvalidAmount
	case parsererror.CategoryInvalidCustomSplit:
		header = parseErrorInvalidCustom
	default:
		header = fmt.Sprintf(parseErrorUnknown, strings.TrimSpace(perr.RawText), perr.Message)
	}
	if len(perr.Suggestions) == 0 {
		return header
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\nTry:")
	for _, s := range perr.Suggestions {
		b.WriteString("\n• ")
		b.WriteString(s)
	}
	return b.String()
}

// formatMismatch turns a split mismatch into a sentence with amounts in currency.
func formatMismatch(err *parsererror.SplitMismatchError, currency string) string {
	return fmt.Sprintf("Splits sum to %s but the total is %s (%s by %s).",
		currencyutils.FormatAmount(err.Sum, currency),
		currencyutils.FormatAmount(err.Total, currency),
		err.Direction(),
		currencyutils.FormatAmount(err.Difference(), currency))
}

func customMismatchWarning(total, sum decimal.Decimal, currency string) string {
	if sum.Equal(total) {
		return ""
	}
	direction := "over"
	if sum.LessThan(total) {
		direction = "under"
	}
	return fmt.Sprintf(confirmCustomMismatch,
		currencyutils.FormatAmount(sum, currency),
		direction,
		currencyutils.FormatAmount(total.Sub(sum).Abs(), currency))
}
