// internal/errors/cli.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/valpere/LeadScout/internal/utils"
)

// Exit codes of the command line tool
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitConfig      = 2
	ExitNetwork     = 3
	ExitParsing     = 4
	ExitOutput      = 5
	ExitValidation  = 6
	ExitLLM         = 7
	ExitInterrupted = 130
)

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch utils.CodeOf(err) {
	case utils.ErrCodeInvalidConfig, utils.ErrCodeMissingConfig:
		return ExitConfig
	case utils.ErrCodeNavigation, utils.ErrCodeNetworkTimeout, utils.ErrCodeBrowserFailed,
		utils.ErrCodeSearchFailed, utils.ErrCodeCircuitOpen:
		return ExitNetwork
	case utils.ErrCodeSelectorNotFound, utils.ErrCodeExtractionFailed, utils.ErrCodeParsingError:
		return ExitParsing
	case utils.ErrCodeOutputFailed, utils.ErrCodeDatabaseError:
		return ExitOutput
	case utils.ErrCodeValidation:
		return ExitValidation
	case utils.ErrCodeLLMFailed:
		return ExitLLM
	case utils.ErrCodeContextCanceled:
		return ExitInterrupted
	default:
		return ExitGeneral
	}
}

// Suggestions returns follow-up hints for err
func Suggestions(err error) []string {
	switch utils.CodeOf(err) {
	case utils.ErrCodeBrowserFailed:
		return []string{
			"Install Chrome or Chromium, or set browser.chrome_path",
			"Set LEADSCOUT_CHROME_PATH to the browser binary",
		}
	case utils.ErrCodeNavigation, utils.ErrCodeNetworkTimeout:
		return []string{
			"Check your internet connection",
			"Increase browser.timeout or browser.wait_timeout",
		}
	case utils.ErrCodeSelectorNotFound:
		return []string{"The maps page layout may have changed; review the selectors section"}
	case utils.ErrCodeSearchFailed, utils.ErrCodeCircuitOpen:
		return []string{
			"Check LEADSCOUT_TAVILY_API_KEY",
			"Switch search.backend to scrape to run without the API",
		}
	case utils.ErrCodeInvalidConfig, utils.ErrCodeMissingConfig:
		return []string{
			"Run 'leadscout validate' for the full list of problems",
			"Run 'leadscout template' for a working starting point",
		}
	case utils.ErrCodeOutputFailed, utils.ErrCodeDatabaseError:
		return []string{
			"Check output.file or output.dsn",
			"Make sure the database is reachable and the user may create tables",
		}
	case utils.ErrCodeLLMFailed:
		return []string{"Check LEADSCOUT_GEMINI_API_KEY and the model name"}
	default:
		return nil
	}
}

// FormatForCLI renders err for the terminal. verbose adds the technical
// chain and context.
func FormatForCLI(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", utils.GetUserFriendlyMessage(err))

	var se *utils.StructuredError
	if !stderrors.As(err, &se) || verbose {
		fmt.Fprintf(&b, "\nDetails: %s\n", err.Error())
	}
	if verbose && se != nil && len(se.Context) > 0 {
		for k, v := range se.Context {
			fmt.Fprintf(&b, "  %s: %v\n", k, v)
		}
	}

	if hints := Suggestions(err); len(hints) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "  - %s\n", h)
		}
	}
	return b.String()
}
