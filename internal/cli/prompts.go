package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/StockPulse/internal/dataflows"
	"github.com/dyike/StockPulse/internal/display"
)

const (
	searchAgainOption = "🔍 Search again"
	labelSeparator    = " - "
)

// prompter asks the user for input. The survey implementation is used
// outside of tests.
type prompter interface {
	// Query reads a search query; suggest is consulted on tab completion.
	Query(suggest func(string) []string) (string, error)
	// Match picks a symbol from matches. An empty symbol means search again.
	Match(matches []dataflows.SearchMatch) (string, error)
	// Again asks whether to analyze another stock.
	Again() (bool, error)
}

type surveyPrompter struct{}

// Query prompts for a company name or ticker.
func (surveyPrompter) Query(suggest func(string) []string) (string, error) {
	var query string
	prompt := &survey.Input{
		Message: "Search a US stock (company name or ticker, empty to quit):",
		Help:    "Press Tab to see matching symbols as you type",
		Suggest: suggest,
	}
	if err := survey.AskOne(prompt, &query); err != nil {
		return "", err
	}
	return strings.TrimSpace(query), nil
}

// Match lets the user pick one of the search results.
func (surveyPrompter) Match(matches []dataflows.SearchMatch) (string, error) {
	options := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		options = append(options, matchOption(m))
	}
	options = append(options, searchAgainOption)

	var picked string
	prompt := &survey.Select{
		Message:  "Select a stock to analyze:",
		Options:  options,
		PageSize: 10,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return "", err
	}
	if picked == searchAgainOption {
		return "", nil
	}
	sym, _ := symbolFromOption(picked)
	return sym, nil
}

// Again asks whether to continue with another analysis.
func (surveyPrompter) Again() (bool, error) {
	again := true
	prompt := &survey.Confirm{
		Message: "Analyze another stock?",
		Default: true,
	}
	if err := survey.AskOne(prompt, &again); err != nil {
		return false, err
	}
	return again, nil
}

// matchOption formats a match as "SYMBOL - description".
func matchOption(m dataflows.SearchMatch) string {
	return m.Symbol + labelSeparator + display.MatchLabel(m)
}

// symbolFromOption extracts the symbol from a matchOption string.
func symbolFromOption(s string) (string, bool) {
	sym, _, ok := strings.Cut(s, labelSeparator)
	sym = strings.TrimSpace(sym)
	if !ok || sym == "" || strings.ContainsAny(sym, " \t") {
		return "", false
	}
	return sym, true
}

// isInterrupt reports whether err is the user pressing Ctrl+C in a prompt.
func isInterrupt(err error) bool {
	return errors.Is(err, terminal.InterruptErr)
}

func promptError(err error) error {
	return fmt.Errorf("prompt failed: %w", err)
}
