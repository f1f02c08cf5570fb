package printing

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/localbasket/posagent/internal/model"
)

//go:embed kot.html
var kotTemplate string

// timestampLayout matches the receipt header format staff are used to,
// e.g. "Nov 3, 6:05:12 PM".
const timestampLayout = "Jan 2, 3:04:05 PM"

var templateFuncs = template.FuncMap{
	// 1-based sequence numbers for the items column.
	"seq": func(i int) int { return i + 1 },
}

// Renderer maps a print job to a fixed-width, print-ready markup fragment.
// Output is deterministic apart from the embedded timestamp.
type Renderer struct {
	tmpl *template.Template
	now  func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{
		tmpl: template.Must(template.New("kot").Funcs(templateFuncs).Parse(kotTemplate)),
		now:  time.Now,
	}
}

type kotView struct {
	DineIn           bool
	Timestamp        string
	TableID          int
	CurrentKotNumber int
	RecentKot        string
	StatusLabel      string
	RestaurantName   string
	OrderNumber      string
	Items            []model.OrderItem
}

// Render returns the receipt markup for a job, or "" when the job carries
// no items. Empty output means "nothing to print", not an error.
func (r *Renderer) Render(job model.PrintJob) (string, error) {
	if len(job.RecentlyUpdatedItems) == 0 {
		return "", nil
	}

	view := kotView{
		DineIn:           job.OrderType == model.OrderTypeDineIn,
		Timestamp:        r.now().Format(timestampLayout),
		TableID:          job.TableID,
		CurrentKotNumber: job.CurrentKotNumber,
		RecentKot:        recentKotLabel(job.KotHistoryNumbers),
		StatusLabel:      statusLabel(job.Status),
		RestaurantName:   job.RestaurantName,
		OrderNumber:      job.OrderNumber,
		Items:            job.RecentlyUpdatedItems,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render kot markup: %w", err)
	}
	return buf.String(), nil
}

func recentKotLabel(history []int) string {
	if len(history) == 0 {
		return "None"
	}
	return fmt.Sprintf("%d", history[0])
}

// Everything that is not a running table reads as a fresh ticket.
func statusLabel(status string) string {
	if status == "RUNNING" {
		return "RUNNING"
	}
	return "New Order"
}
