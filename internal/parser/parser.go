// Package parser turns free-text chat messages into typed commands.
//
// Grammars are tried as an ordered cascade and the first one that matches wins:
//
//	kai add <desc> <amount><currency> paid by <person> [split equally between <people>]
//	kai add <desc> <amount><currency> paid by <person> only <people>
//	kai add <desc> <amount><currency> paid by <person> custom <person>:<amount>[, ...]
//	kai settle <person> paid <person> <amount><currency>
//	kai balances [in <currency>]
//	kai summary | undo | who | help
//	kai trip <name> [base <currency>]
//
// The "kai" prefix is optional and all keywords are case-insensitive.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"clawback/clawback/internal/currencyutils"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"
)

const currencyToken = `([a-zA-Z` + currencyutils.Symbols + `]{1,3})`

var (
	botPrefix = regexp.MustCompile(`(?i)^kai\s+`)

	helpPattern    = regexp.MustCompile(`(?i)^help\b`)
	whoPattern     = regexp.MustCompile(`(?i)^who\b`)
	summaryPattern = regexp.MustCompile(`(?i)^summary\b`)
	undoPattern    = regexp.MustCompile(`(?i)^undo\b`)

	balancesPattern = regexp.MustCompile(`(?i)^(?:balances?|status|debts?)\s*(?:in\s+` + currencyToken + `)?\s*$`)
	tripPattern     = regexp.MustCompile(`(?i)^trip\s+([a-zA-Z0-9_ -]+?)(?:\s+base\s+` + currencyToken + `)?\s*$`)
	settlePattern   = regexp.MustCompile(`(?i)^(?:settle\s+)?([a-zA-Z]+)\s+paid\s+([a-zA-Z]+)\s+(.+)$`)
	addPattern      = regexp.MustCompile(`(?i)^add\s+(.+?)\s+([\d` + currencyutils.Symbols + `,.\s]+[a-zA-Z` + currencyutils.Symbols + `]*)\s+paid\s+(?:by\s+)?([a-zA-Z]+)\s*(.*)$`)

	onlyClause    = regexp.MustCompile(`(?i)^only\s+(.+)$`)
	customClause  = regexp.MustCompile(`(?i)^custom\s+`)
	equalClause   = regexp.MustCompile(`(?i)^(?:split\s+)?equal(?:ly)?(?:\s+(?:between\s+)?(.+))?$`)
	namesClause   = regexp.MustCompile(`(?i)^(?:between\s+)?([a-zA-Z,&\s]+)$`)
	betweenPrefix = regexp.MustCompile(`(?i)^between\s+`)
)

// Suggestions is the canonical list of example commands attached to unknown input.
var Suggestions = []string{
	"kai add <desc> <amount> paid by <person>",
	"kai settle <person> paid <person> <amount>",
	"kai balances",
	"kai help",
}

// Parse converts raw chat text into a command, or a *ParseError describing why it could not.
// Exactly one of the two results is non-nil.
func Parse(raw string) (models.Command, *parsererror.ParseError) {
	text := strings.TrimSpace(raw)
	text = botPrefix.ReplaceAllString(text, "")

	switch {
	case helpPattern.MatchString(text):
		return models.HelpCommand{RawText: raw}, nil
	case whoPattern.MatchString(text):
		return models.WhoCommand{RawText: raw}, nil
	case summaryPattern.MatchString(text):
		return models.SummaryCommand{RawText: raw}, nil
	case undoPattern.MatchString(text):
		return models.UndoCommand{RawText: raw}, nil
	}

	if m := balancesPattern.FindStringSubmatch(text); m != nil {
		cmd := models.BalancesCommand{RawText: raw}
		if m[1] != "" {
			cmd.DisplayCurrency = currencyutils.Normalize(m[1])
		}
		return cmd, nil
	}

	if m := tripPattern.FindStringSubmatch(text); m != nil {
		cmd := models.TripCommand{RawText: raw, Name: strings.TrimSpace(m[1])}
		if m[2] != "" {
			cmd.BaseCurrency = currencyutils.Normalize(m[2])
		}
		return cmd, nil
	}

	// A settle-shaped message whose amount does not parse falls through to the
	// add grammar instead of failing here.
	if m := settlePattern.FindStringSubmatch(text); m != nil {
		if amount, ok := ParseAmountCurrency(m[3]); ok {
			return models.SettleCommand{
				RawText:  raw,
				From:     Capitalize(m[1]),
				To:       Capitalize(m[2]),
				Amount:   amount.Amount,
				Currency: amount.Currency,
			}, nil
		}
	}

	if m := addPattern.FindStringSubmatch(text); m != nil {
		return parseAddExpense(raw, m)
	}

	return nil, unmatched(raw, text)
}

func parseAddExpense(raw string, m []string) (models.Command, *parsererror.ParseError) {
	description := strings.TrimSpace(m[1])
	amountText := strings.TrimSpace(m[2])
	paidBy := Capitalize(m[3])
	splitText := strings.TrimSpace(m[4])

	amount, ok := ParseAmountCurrency(amountText)
	if !ok {
		return nil, &parsererror.ParseError{
			RawText:     raw,
			Message:     fmt.Sprintf("Could not parse amount from '%s'", amountText),
			Suggestions: []string{"Use format: ₪100, $50, 30EUR"},
			Category:    parsererror.CategoryInvalidAmount,
		}
	}

	cmd := models.AddExpenseCommand{
		RawText:     raw,
		Description: description,
		Amount:      amount.Amount,
		Currency:    amount.Currency,
		PaidBy:      paidBy,
		SplitType:   models.SplitEqual,
	}

	if splitText == "" {
		return cmd, nil
	}

	if only := onlyClause.FindStringSubmatch(splitText); only != nil {
		cmd.SplitType = models.SplitOnly
		cmd.SplitAmong = ParseNamesList(only[1])
		return cmd, nil
	}

	if customClause.MatchString(splitText) {
		customText := customClause.ReplaceAllString(splitText, "")
		splits, ok := ParseCustomSplits(customText)
		if !ok {
			return nil, &parsererror.ParseError{
				RawText:     raw,
				Message:     fmt.Sprintf("Could not parse custom splits from '%s'", customText),
				Suggestions: []string{"Use format: custom Dan:50, Sara:30, Avi:20"},
				Category:    parsererror.CategoryInvalidCustomSplit,
			}
		}
		cmd.SplitType = models.SplitCustom
		cmd.CustomSplits = splits
		return cmd, nil
	}

	if equal := equalClause.FindStringSubmatch(splitText); equal != nil {
		if equal[1] != "" {
			cmd.SplitAmong = ParseNamesList(equal[1])
		}
		return cmd, nil
	}

	if namesClause.MatchString(splitText) {
		cmd.SplitAmong = ParseNamesList(betweenPrefix.ReplaceAllString(splitText, ""))
	}

	return cmd, nil
}

// unmatched guesses an error category from surface features of the text.
func unmatched(raw, text string) *parsererror.ParseError {
	lower := strings.ToLower(text)
	category := parsererror.CategoryUnknownCommand

	if strings.HasPrefix(lower, "add") {
		if !strings.Contains(lower, "paid") {
			category = parsererror.CategoryMissingPaidBy
		} else {
			category = parsererror.CategoryMissingAmount
		}
	}

	return &parsererror.ParseError{
		RawText:     raw,
		Message:     "Could not understand command",
		Suggestions: append([]string(nil), Suggestions...),
		Category:    category,
	}
}
