// Command console is the staff order board: it polls every order, lets staff
// move orders between statuses and undo the last change for a few seconds.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"curryhouse/internal/client"
	"curryhouse/internal/config"
	"curryhouse/internal/console"
	"curryhouse/internal/domain"
)

const help = `commands:
  list                  every order
  queue                 orders still in progress, oldest first
  filter <status>       orders in one status
  find <text>           match order number or customer
  set <order> <status>  change status (order number or id)
  undo                  revert the last change while the window is open
  refresh               reload now
  quit
`

func main() {
	email := flag.String("email", "", "admin email, used when API_TOKEN is not set")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[console] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.APIBaseURL)
	switch {
	case cfg.APIToken != "":
		api.SetToken(cfg.APIToken)
	case *email != "":
		res, err := api.Login(ctx, *email, *password)
		if err != nil {
			logger.Fatalf("login: %v", err)
		}
		if res.Customer.Role != domain.RoleAdmin {
			logger.Fatalf("%s is not an admin account", res.Customer.Email)
		}
	default:
		logger.Fatalf("set API_TOKEN or pass -email and -password")
	}

	board := console.New(api, console.Config{
		UndoWindow:   cfg.UndoWindow,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	defer board.Close()

	if err := board.Refresh(ctx); err != nil {
		logger.Fatalf("load orders: %v", err)
	}
	board.OnChange(announceNew(board, os.Stdout))
	go func() { _ = board.Run(ctx) }()

	printTable(os.Stdout, board.Orders())
	fmt.Print(help)
	repl(ctx, board, os.Stdin, os.Stdout, stop)
}

func repl(ctx context.Context, board *console.Console, in io.Reader, out io.Writer, stop func()) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			stop()
			return
		case "help":
			fmt.Fprint(out, help)
		case "list":
			printTable(out, board.Orders())
		case "queue":
			printTable(out, console.InProgress(board.Orders()))
		case "filter":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: filter <status>")
				continue
			}
			printTable(out, console.Filter(board.Orders(), domain.OrderStatus(fields[1]), ""))
		case "find":
			printTable(out, console.Filter(board.Orders(), "", strings.Join(fields[1:], " ")))
		case "set":
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: set <order> <status>")
				continue
			}
			setStatus(board, out, fields[1], domain.OrderStatus(fields[2]))
		case "undo":
			if err := board.Undo(); err != nil {
				fmt.Fprintf(out, "undo: %v\n", err)
				continue
			}
			waitAndReport(board, out)
		case "refresh":
			rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := board.Refresh(rctx)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "refresh: %v\n", err)
				continue
			}
			printTable(out, board.Orders())
		default:
			fmt.Fprintf(out, "unknown command %q, try help\n", fields[0])
		}
	}
}

func setStatus(board *console.Console, out io.Writer, ref string, status domain.OrderStatus) {
	id, ok := resolve(board.Orders(), ref)
	if !ok {
		fmt.Fprintf(out, "no order %s\n", ref)
		return
	}
	if err := board.SetStatus(id, status); err != nil {
		fmt.Fprintf(out, "set: %v\n", err)
		return
	}
	if p, ok := board.PendingUndo(); ok {
		fmt.Fprintf(out, "%s: %s -> %s (undo until %s)\n", p.OrderNumber, p.PreviousStatus, p.NewStatus, p.ExpiresAt.Format("15:04:05"))
	}
	waitAndReport(board, out)
}

// waitAndReport blocks until background updates settle and prints any failure.
func waitAndReport(board *console.Console, out io.Writer) {
	board.Wait()
	if err := board.Err(); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(out, "failed: %s (status restored)\n", apiErr.Message)
			return
		}
		fmt.Fprintf(out, "failed: %v\n", err)
	}
}

func resolve(orders []domain.Order, ref string) (string, bool) {
	for _, o := range orders {
		if o.ID == ref || strings.EqualFold(o.OrderNumber, ref) {
			return o.ID, true
		}
	}
	return "", false
}

// announceNew prints a line for every order that shows up after the initial load.
func announceNew(board *console.Console, out io.Writer) func() {
	var mu sync.Mutex
	seen := make(map[string]bool)
	for _, o := range board.Orders() {
		seen[o.ID] = true
	}
	return func() {
		mu.Lock()
		defer mu.Unlock()
		for _, o := range board.Orders() {
			if seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			fmt.Fprintf(out, "\nnew order %s (%d,%02d kr, %s)\n> ",
				o.OrderNumber, o.TotalAmountCents/100, o.TotalAmountCents%100, o.DeliveryType)
		}
	}
}

func printTable(out io.Writer, orders []domain.Order) {
	counts := console.Counts(orders)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSTATUS\tCUSTOMER\tPHONE\tTOTAL\tTYPE\tPLACED\t")
	for _, o := range orders {
		name, phone := "-", "-"
		if o.Customer != nil {
			name, phone = o.Customer.Name, o.Customer.Phone
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d,%02d\t%s\t%s\t\n",
			o.OrderNumber, o.Status, name, phone,
			o.TotalAmountCents/100, o.TotalAmountCents%100,
			o.DeliveryType, o.CreatedAt.Local().Format("15:04"))
	}
	_ = tw.Flush()

	parts := make([]string, 0, len(domain.OrderStatuses))
	for _, s := range domain.OrderStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
	}
	fmt.Fprintf(out, "%d orders: %s\n", len(orders), strings.Join(parts, ", "))
}
