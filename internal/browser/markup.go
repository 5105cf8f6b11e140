// internal/browser/markup.go
package browser

import (
	"context"
	"strings"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// FetchMarkup runs a fetch and sorts the outcome: markup is Found, a blank
// page is Absent, and a navigation or timeout problem is Failed with the
// cause logged. Only fatal errors are returned.
func FetchMarkup(ctx context.Context, f Fetcher, req FetchRequest, logger utils.Logger) (types.Lookup[string], error) {
	html, err := f.Fetch(ctx, req)
	if err != nil {
		if utils.IsFatal(err) {
			return types.Failed[string](err), err
		}
		if logger != nil {
			logger.WithFields(map[string]interface{}{
				"url":   req.URL,
				"label": req.Label,
				"code":  utils.CodeOf(err),
			}).Warnf("page unavailable: %v", err)
		}
		return types.Failed[string](err), nil
	}
	if strings.TrimSpace(html) == "" {
		return types.Absent[string](), nil
	}
	return types.Found(html), nil
}
