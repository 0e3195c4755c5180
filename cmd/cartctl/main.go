// Command cartctl keeps a single café cart in a local JSON file and places it
// as an order through the café API. It uses the same cart rules as the
// gateway, so it doubles as a smoke test against a running café backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-cart/internal/auth"
	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/cart"
	"github.com/noah-isme/cafe-cart/internal/cartstore"
	"github.com/noah-isme/cafe-cart/internal/catalog"
	"github.com/noah-isme/cafe-cart/internal/checkout"
	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/obs"
	"github.com/noah-isme/cafe-cart/internal/order"
	"github.com/noah-isme/cafe-cart/internal/resilience"
	"github.com/noah-isme/cafe-cart/internal/session"
)

// localSession is the session id used for the file-backed cart.
const localSession = "local"

const usage = `usage: cartctl [flags] <command> [args]

commands:
  show                         print the cart
  add <itemTypeId> [qty] [optionId,...]
  qty <index> <delta>          change the quantity of a line
  rm <index>                   remove a line
  clear                        empty the cart
  mode on|off                  toggle on-site ordering (staff token required)
  room <name>|-                set or clear the delivery room
  checkout pickUp|delivery [onSiteName]

flags:
`

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("cartctl", flag.ExitOnError)
	file := fs.String("file", envOr("CART_FILE", "cart.json"), "cart snapshot path")
	baseURL := fs.String("api", os.Getenv("CAFE_API_BASE_URL"), "café API base URL")
	token := fs.String("token", os.Getenv("CAFE_TOKEN"), "bearer token for the café API")
	timeout := fs.Duration("timeout", 10*time.Second, "overall command timeout")
	verbose := fs.Bool("v", false, "log debug output")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := obs.NewLogger("console", level).With().Str("component", "cartctl").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if *token != "" {
		ctx = common.WithToken(ctx, *token)
	}

	app, err := newApp(*file, *baseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise")
	}
	if err := app.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", appErr.Code, appErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type app struct {
	sessions *session.Service
	checkout *checkout.Service
	auth     auth.Middleware
	api      *cafeapi.Client
}

func newApp(path, baseURL string, logger zerolog.Logger) (*app, error) {
	a := &app{}
	var items session.ItemResolver
	if baseURL != "" {
		a.api = cafeapi.New(baseURL, resilience.HTTPClient{
			Client:      &http.Client{},
			MaxAttempts: 2,
			Timeout:     5 * time.Second,
		})
		menu, err := catalog.NewService(catalog.ServiceConfig{API: a.api, Logger: logger})
		if err != nil {
			return nil, err
		}
		items = menu
		a.auth = auth.Middleware{Profiles: a.api}
	}
	sessions, err := session.NewService(session.ServiceConfig{
		Backend: cartstore.File{Path: path},
		Items:   items,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	a.sessions = sessions
	if a.api != nil {
		a.checkout = &checkout.Service{Sessions: sessions, API: a.api, Perms: a.auth, Logger: logger}
	}
	return a, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "show":
		return printJSON(session.NewView(a.sessions.Open(ctx, localSession)))
	case "add":
		return a.add(ctx, args)
	case "qty":
		index, delta, err := twoInts(args)
		if err != nil {
			return err
		}
		return a.mutate(ctx, func(s *cart.Store) { s.ChangeQuantity(index, delta) })
	case "rm":
		index, err := oneInt(args)
		if err != nil {
			return err
		}
		return a.mutate(ctx, func(s *cart.Store) { s.RemoveEntry(index) })
	case "clear":
		return a.mutate(ctx, func(s *cart.Store) { s.Clear() })
	case "mode":
		return a.mode(ctx, args)
	case "room":
		if len(args) != 1 {
			return errors.New("room: expected a room name or -")
		}
		var room *string
		if name := strings.TrimSpace(args[0]); name != "-" && name != "" {
			room = &name
		}
		return a.mutate(ctx, func(s *cart.Store) { s.SetDeliveryRoom(room) })
	case "checkout":
		return a.placeOrder(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("add: item type id required")
	}
	if a.api == nil {
		return errors.New("add: -api or CAFE_API_BASE_URL required to price items")
	}
	itemType, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("add: item type id: %w", err)
	}
	qty := 1
	if len(args) > 1 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("add: quantity: %w", err)
		}
	}
	var options []int64
	if len(args) > 2 {
		for part := range strings.SplitSeq(args[2], ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return fmt.Errorf("add: option id %q: %w", part, err)
			}
			options = append(options, id)
		}
	}
	store, err := a.sessions.AddConfigured(ctx, localSession, itemType, options, qty)
	if err != nil {
		return err
	}
	return printJSON(session.NewView(store))
}

func (a *app) mode(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errors.New("mode: expected on or off")
	}
	onSite := args[0] == "on"
	if onSite {
		if a.api == nil {
			return errors.New("mode: -api required to check staff permission")
		}
		if _, ok := a.auth.HasPermission(ctx, auth.PermManage); !ok {
			return checkout.ErrStaffOnly
		}
	}
	return a.mutate(ctx, func(s *cart.Store) { s.SetOnSiteOrderMode(onSite) })
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	if a.checkout == nil {
		return errors.New("checkout: -api or CAFE_API_BASE_URL required")
	}
	if len(args) == 0 {
		return errors.New("checkout: order type required")
	}
	in := checkout.Input{Type: order.Type(args[0])}
	if len(args) > 1 {
		in.OnSiteName = strings.Join(args[1:], " ")
	}
	placed, err := a.checkout.Checkout(ctx, localSession, in)
	if err != nil {
		return cafeapi.ToAppError(err)
	}
	return printJSON(placed)
}

func (a *app) mutate(ctx context.Context, fn func(*cart.Store)) error {
	store, err := a.sessions.Mutate(ctx, localSession, func(s *cart.Store) error {
		fn(s)
		return nil
	})
	if err != nil {
		return err
	}
	return printJSON(session.NewView(store))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one integer argument")
	}
	return strconv.Atoi(args[0])
}

func twoInts(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("expected two integer arguments")
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(args[1])
	return a, b, err
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
