// Command order is the customer's terminal front-end: browse the menu, keep a
// cart on disk, check out and follow orders.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"curryhouse/internal/cart"
	"curryhouse/internal/checkout"
	"curryhouse/internal/client"
	"curryhouse/internal/config"
	"curryhouse/internal/domain"
	"curryhouse/internal/extras"
)

const usage = `usage: order <command> [flags]

commands:
  register -name -email -phone -password
  login -email -password
  menu [-category] [-tag] [-search]
  cart
  add <menuItemID> [quantity]
  remove|inc|dec <menuItemID>
  set <menuItemID> <quantity>
  clear
  extras
  checkout [-extra id=qty ...] [-notes] [-delivery] [-payment] [-street -city -postal]
  orders
  show <orderID>
  cancel <orderID>
  track <orderID> [-interval 5s]
  profile [-name] [-phone]
  favorites
  fav|unfav <menuItemID>
`

type app struct {
	api      *client.Client
	store    *cart.Store
	checkout *checkout.Service
	catalog  *extras.Catalog
	logger   *log.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[order] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	api := client.New(cfg.APIBaseURL)
	if cfg.APIToken != "" {
		api.SetToken(cfg.APIToken)
	}
	store := cart.NewStore(cart.NewFileStorage(cfg.CartFile), logger)
	store.Init()
	catalog := extras.Default()

	a := &app{
		api:      api,
		store:    store,
		checkout: checkout.NewService(store, api, catalog, logger),
		catalog:  catalog,
		logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "menu":
		return a.menu(ctx, args)
	case "cart":
		a.printCart()
		return nil
	case "add":
		return a.add(ctx, args)
	case "remove", "inc", "dec":
		if len(args) != 1 {
			return fmt.Errorf("%s needs a menu item id", cmd)
		}
		switch cmd {
		case "remove":
			a.store.RemoveItem(args[0])
		case "inc":
			a.store.IncreaseQuantity(args[0])
		case "dec":
			a.store.DecreaseQuantity(args[0])
		}
		a.printCart()
		return nil
	case "set":
		if len(args) != 2 {
			return errors.New("set needs a menu item id and a quantity")
		}
		q, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		a.store.UpdateQuantity(args[0], q)
		a.printCart()
		return nil
	case "clear":
		a.store.Clear()
		fmt.Println("cart cleared")
		return nil
	case "extras":
		a.printExtras()
		return nil
	case "checkout":
		return a.placeOrder(ctx, args)
	case "orders":
		return a.orders(ctx)
	case "show":
		if len(args) != 1 {
			return errors.New("show needs an order id")
		}
		o, err := a.checkout.Order(ctx, args[0])
		if err != nil {
			return err
		}
		printOrder(*o)
		return nil
	case "cancel":
		if len(args) != 1 {
			return errors.New("cancel needs an order id")
		}
		o, err := a.checkout.Cancel(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("order %s is %s\n", o.OrderNumber, o.Status)
		return nil
	case "track":
		return a.track(ctx, args)
	case "profile":
		return a.profile(ctx, args)
	case "favorites":
		items, err := a.api.Favorites(ctx)
		if err != nil {
			return err
		}
		return printItems(items)
	case "fav", "unfav":
		if len(args) != 1 {
			return fmt.Errorf("%s needs a menu item id", cmd)
		}
		var (
			items []domain.MenuItem
			err   error
		)
		if cmd == "fav" {
			items, err = a.api.AddFavorite(ctx, args[0])
		} else {
			items, err = a.api.RemoveFavorite(ctx, args[0])
		}
		if err != nil {
			return err
		}
		return printItems(items)
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var in client.RegisterInput
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Phone, "phone", "", "phone, 8-15 digits")
	fs.StringVar(&in.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.api.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s\nexport API_TOKEN=%s\n", res.Customer.Email, res.Token)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\nexport API_TOKEN=%s\n", res.Customer.Name, res.Customer.Role, res.Token)
	return nil
}

func (a *app) menu(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("menu", flag.ContinueOnError)
	var f domain.MenuFilter
	fs.StringVar(&f.Category, "category", "", "category, All for every category")
	fs.StringVar(&f.Tag, "tag", "", "tag")
	fs.StringVar(&f.Search, "search", "", "text in name or description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	items, err := a.api.Menu(ctx, f)
	if err != nil {
		return err
	}
	return printItems(items)
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	name := fs.String("name", "", "new full name")
	phone := fs.String("phone", "", "new phone, 8-15 digits")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cu, err := a.api.UpdateProfile(ctx, *name, *phone)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> %s\n", cu.Name, cu.Email, cu.Phone)
	return nil
}

func printItems(items []domain.MenuItem) error {
	if len(items) == 0 {
		fmt.Println("no items")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\t")
	for _, it := range items {
		name := it.Name
		if !it.IsAvailable {
			name += " (sold out)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", it.ID, name, it.Category, kr(it.PriceCents))
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("add needs a menu item id and an optional quantity")
	}
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		qty = n
	}
	item, err := a.api.MenuItem(ctx, args[0])
	if err != nil {
		return err
	}
	if !item.IsAvailable {
		return fmt.Errorf("%s is currently unavailable", item.Name)
	}
	a.store.AddItem(cart.Item{ID: item.ID, Name: item.Name, PriceCents: item.PriceCents})
	if qty > 1 {
		a.store.UpdateQuantity(item.ID, a.store.ItemQuantity(item.ID)+qty-1)
	}
	a.printCart()
	return nil
}

func (a *app) printCart() {
	snap := a.store.Snapshot()
	if len(snap.Lines) == 0 {
		fmt.Println("cart is empty")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL\t")
	for _, l := range snap.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n", l.ItemID, l.Name, l.Quantity, kr(l.UnitPriceCents), kr(l.UnitPriceCents*int64(l.Quantity)))
	}
	fmt.Fprintf(tw, "\t%d items\t\t\t%s\t\n", snap.TotalItems, kr(snap.TotalPriceCents))
	_ = tw.Flush()
}

func (a *app) printExtras() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\t")
	for _, e := range a.catalog.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", e.ID, e.Name, kr(e.PriceCents))
	}
	_ = tw.Flush()
}

// extraFlag collects repeated -extra id=qty values.
type extraFlag map[string]int

func (e extraFlag) String() string {
	parts := make([]string, 0, len(e))
	for id, q := range e {
		parts = append(parts, fmt.Sprintf("%s=%d", id, q))
	}
	return strings.Join(parts, ",")
}

func (e extraFlag) Set(v string) error {
	id, qty, found := strings.Cut(v, "=")
	n := 1
	if found {
		var err error
		if n, err = strconv.Atoi(qty); err != nil {
			return fmt.Errorf("extra %s: %w", id, err)
		}
	}
	e[strings.TrimSpace(id)] += n
	return nil
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	selected := extraFlag{}
	fs.Var(selected, "extra", "extra as id=qty, repeatable")
	notes := fs.String("notes", "", "special instructions")
	delivery := fs.String("delivery", string(domain.DeliveryTypeDelivery), "delivery or pickup")
	payment := fs.String("payment", string(domain.PaymentCash), "cash, card or vipps")
	street := fs.String("street", "", "delivery street")
	city := fs.String("city", "", "delivery city")
	postal := fs.String("postal", "", "delivery postal code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := checkout.Options{
		Extras:        selected,
		Notes:         *notes,
		DeliveryType:  domain.DeliveryType(*delivery),
		PaymentMethod: domain.PaymentMethod(*payment),
	}
	if *street != "" || *city != "" || *postal != "" {
		opts.DeliveryAddress = &domain.DeliveryAddress{Street: *street, City: *city, PostalCode: *postal}
	}

	totals, err := a.checkout.Preview(opts)
	if err != nil {
		return err
	}
	fmt.Printf("items %s + extras %s = %s\n", kr(totals.ItemsCents), kr(totals.ExtrasCents), kr(totals.TotalCents))

	o, err := a.checkout.PlaceOrder(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("order %s placed, id %s, about %d minutes\n", o.OrderNumber, o.ID, o.EstimatedDeliveryMinutes)
	return nil
}

func (a *app) orders(ctx context.Context) error {
	orders, err := a.checkout.Orders(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tID\tSTATUS\tTOTAL\tPLACED\t")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", o.OrderNumber, o.ID, o.Status, kr(o.TotalAmountCents), o.CreatedAt.Local().Format("02 Jan 15:04"))
	}
	return tw.Flush()
}

func (a *app) track(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	interval := fs.Duration("interval", 5*time.Second, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("track needs an order id")
	}
	final, err := a.checkout.Track(ctx, fs.Arg(0), *interval, func(o domain.Order) {
		fmt.Printf("%s  %s is %s\n", time.Now().Format("15:04:05"), o.OrderNumber, o.Status)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if final != nil && final.Status.Terminal() {
		fmt.Printf("order %s finished as %s\n", final.OrderNumber, final.Status)
	}
	return nil
}

func printOrder(o domain.Order) {
	fmt.Printf("order %s (%s) status %s, payment %s/%s, %s\n", o.OrderNumber, o.ID, o.Status, o.PaymentMethod, o.PaymentStatus, o.DeliveryType)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, l := range o.Lines {
		fmt.Fprintf(tw, "  %dx\t%s\t%s\t\n", l.Quantity, l.Name, kr(l.SubtotalCents))
	}
	for _, e := range o.Extras {
		fmt.Fprintf(tw, "  %dx\t%s\t%s\t\n", e.Quantity, e.Name, kr(e.SubtotalCents))
	}
	fmt.Fprintf(tw, "  \ttotal\t%s\t\n", kr(o.TotalAmountCents))
	_ = tw.Flush()
	if o.SpecialInstructions != "" {
		fmt.Printf("  notes: %s\n", o.SpecialInstructions)
	}
}

func kr(cents int64) string {
	return fmt.Sprintf("%d,%02d kr", cents/100, cents%100)
}
