// Command shopper is a terminal client for the storefront. It keeps the cart
// on disk and drives a checkout attempt through the storefront API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/cart"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/logger"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/storefront"
)

const usage = `usage: shopper [flags] <command> [args]

commands:
  show <slug>                      print a product and its variants
  add <slug> <variantId> [qty]     add a variant to the cart
  remove <lineId>                  remove a cart line
  qty <lineId> <n>                 set a line quantity (0 removes it)
  list                             print the cart
  clear                            empty the cart
  checkout [-email ...] [-name ...] [-line1 ...] [-city ...] [-country ...]
                                   create a payment intent for the cart
  status                           refresh the current checkout attempt

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "shopper:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("shopper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	api := fs.String("api", getEnv("STOREFRONT_URL", "http://localhost:8080"), "storefront base URL")
	state := fs.String("state", getEnv("SHOPPER_CART", "shopper-cart.json"), "cart file")
	timeout := fs.Duration("timeout", 15*time.Second, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Service: "shopper",
		Env:     getEnv("APP_ENV", "local"),
		Level:   getEnv("LOG_LEVEL", "warn"),
		Writer:  stderr,
	})

	s := newShopper(
		storefront.New(*api, *timeout),
		cart.NewFileStorage(*state),
		cart.NewFileStorage(*state+".checkout"),
		stdout,
		log,
	)

	err := s.run(ctx, fs.Args())
	if errors.Is(err, errUsage) {
		fs.Usage()
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
