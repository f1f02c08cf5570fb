package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/localbasket/posagent/internal/model"
	"github.com/localbasket/posagent/internal/panel"
)

// consolePicker is the headless stand-in for the printer-selection dialog:
// it lists the enumerated devices and reads a choice from stdin. Empty
// input dismisses the prompt.
type consolePicker struct{}

func (consolePicker) Pick(_ context.Context, printers []model.PrinterInfo) (string, error) {
	if len(printers) == 0 {
		return "", nil
	}

	fmt.Println("No default printer found. Available printers:")
	for i, p := range printers {
		fmt.Printf("  %d) %s %s\n", i+1, p.Name, p.Description)
	}
	fmt.Print("Select a printer number (enter to cancel): ")

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(printers) {
		return "", nil
	}
	return printers[n-1].Name, nil
}

// runConsole drives the panel's staff actions from stdin while the agent
// runs headless.
func runConsole(ctx context.Context, pnl *panel.Panel, log zerolog.Logger) {
	fmt.Println("Commands: list | accept <id> <hh:mm> | reject <id> <notes...> | ready <id>")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			orders := pnl.Orders()
			if len(orders) == 0 {
				fmt.Println("No pending orders.")
				continue
			}
			for _, o := range orders {
				fmt.Printf("  #%d %s %s %s (%.2f)\n", o.ID, o.OrderNumber, o.OrderStatus, summarize(o), o.TotalAmount)
			}

		case "accept":
			if len(fields) < 3 {
				fmt.Println("usage: accept <id> <hh:mm>")
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("bad order id")
				continue
			}
			if err := pnl.Accept(ctx, id, fields[2]); err != nil {
				log.Error().Err(err).Int("order", id).Msg("accept failed")
			}

		case "reject":
			if len(fields) < 3 {
				fmt.Println("usage: reject <id> <notes...>")
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("bad order id")
				continue
			}
			notes := strings.Join(fields[2:], " ")
			if err := pnl.Reject(ctx, id, notes, ""); err != nil {
				log.Error().Err(err).Int("order", id).Msg("reject failed")
			}

		case "ready":
			if len(fields) < 2 {
				fmt.Println("usage: ready <id>")
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("bad order id")
				continue
			}
			if err := pnl.ReadyForPickup(ctx, id); err != nil {
				log.Error().Err(err).Int("order", id).Msg("ready-for-pickup failed")
			}

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func summarize(o model.Order) string {
	parts := make([]string, 0, len(o.OrderItems))
	for _, it := range o.OrderItems {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.ProductName))
	}
	return strings.Join(parts, ", ")
}
