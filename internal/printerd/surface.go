package printerd

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// renderSurface rasterizes receipt markup in an off-screen Chrome tab.
// The surface is scoped to this call: a hard deadline plus the deferred
// cancels tear it down on success, failure or hang, so it can never leak
// into the next print.
func renderSurface(parent context.Context, chromePath string, timeout time.Duration, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	cdpCtx, cdpCancel := chromedp.NewContext(allocCtx)
	defer cdpCancel()

	// Zero body margin: raster receipts render edge to edge.
	doc := `<!DOCTYPE html><html><head><meta charset="utf-8"><style>` +
		`body { font-family: monospace; margin: 0; padding: 0; }` +
		`@media print { body { margin: 0; } }` +
		`</style></head><body>` + html + `</body></html>`

	var pngBytes []byte
	err := chromedp.Run(cdpCtx,
		chromedp.Navigate("data:text/html,"+urlEncode(doc)),

		// Let fonts and layout settle before capturing.
		chromedp.Sleep(300*time.Millisecond),

		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render surface: %w", err)
	}
	return pngBytes, nil
}

// urlEncode packs HTML into a data URL.
func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
