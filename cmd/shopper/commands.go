package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/cart"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/storefront"
	"github.com/google/uuid"
)

var errUsage = errors.New("usage")

type shopper struct {
	api      *storefront.Client
	cart     *cart.Store
	attempts cart.Storage
	out      io.Writer
	logger   *slog.Logger
	newToken func() string
}

func newShopper(api *storefront.Client, cartStorage, attemptStorage cart.Storage, out io.Writer, logger *slog.Logger) *shopper {
	return &shopper{
		api:      api,
		cart:     cart.NewStore(cartStorage, logger),
		attempts: attemptStorage,
		out:      out,
		logger:   logger,
		newToken: uuid.NewString,
	}
}

func (s *shopper) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "show":
		if len(rest) != 1 {
			return errUsage
		}
		return s.show(ctx, rest[0])
	case "add":
		if len(rest) < 2 || len(rest) > 3 {
			return errUsage
		}
		qty := 1
		if len(rest) == 3 {
			n, err := strconv.Atoi(rest[2])
			if err != nil {
				return fmt.Errorf("quantity %q is not a number", rest[2])
			}
			qty = n
		}
		return s.add(ctx, rest[0], rest[1], qty)
	case "remove":
		if len(rest) != 1 {
			return errUsage
		}
		s.cart.RemoveLine(rest[0])
		return s.list()
	case "qty":
		if len(rest) != 2 {
			return errUsage
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", rest[1])
		}
		s.cart.SetQuantity(rest[0], n)
		return s.list()
	case "list":
		return s.list()
	case "clear":
		s.cart.Clear()
		fmt.Fprintln(s.out, "cart cleared")
		return nil
	case "checkout":
		return s.checkout(ctx, rest)
	case "status":
		return s.status(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func (s *shopper) show(ctx context.Context, slug string) error {
	product, err := s.api.Product(ctx, slug)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "%s (%s)\n", product.Name, product.Slug)
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tNAME\tPRICE")
	for _, v := range product.Variants {
		price := "-"
		if m := v.UnitPrice(); m != nil {
			price = m.Amount.StringFixed(2) + " " + m.Currency
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Name, price)
	}
	return tw.Flush()
}

func (s *shopper) add(ctx context.Context, slug, variantID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	product, err := s.api.Product(ctx, slug)
	if err != nil {
		return err
	}
	if product.FindVariant(variantID) == nil {
		return fmt.Errorf("product %s has no variant %s", slug, variantID)
	}
	s.cart.AddLine(product, variantID, qty)
	return s.list()
}

func (s *shopper) list() error {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tVARIANT\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s %s\t%s\n",
			l.ID, l.ProductName, l.VariantName, l.Quantity,
			l.Price.StringFixed(2), l.Currency, l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%s (estimate)\n", s.cart.Count(), s.cart.Total().StringFixed(2))
	return tw.Flush()
}

func (s *shopper) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(s.out)
	email := fs.String("email", "", "buyer email for the receipt")
	name := fs.String("name", "", "shipping name")
	line1 := fs.String("line1", "", "shipping address line 1")
	line2 := fs.String("line2", "", "shipping address line 2")
	city := fs.String("city", "", "shipping city")
	state := fs.String("state", "", "shipping state")
	postal := fs.String("postal", "", "shipping postal code")
	country := fs.String("country", "", "shipping country code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lines := s.cart.Lines()
	if len(lines) == 0 {
		return errors.New("cart is empty")
	}

	a, err := loadAttempt(s.attempts)
	if err != nil {
		s.logger.Warn("discarding unreadable checkout state", "error", err)
		a = newAttempt()
	}
	if a.PaymentIntentID != "" && !a.Status.IsTerminal() {
		s.logger.Info("abandoning in-flight payment intent", "payment_intent_id", a.PaymentIntentID)
	}
	a.restart()

	payload := storefront.CheckoutPayload{Items: lines, Email: *email}
	if *name != "" || *line1 != "" || *country != "" {
		payload.Shipping = &domain.ShippingInfo{
			Name:  *name,
			Email: *email,
			Address: domain.Address{
				Line1:      *line1,
				Line2:      *line2,
				City:       *city,
				State:      *state,
				PostalCode: *postal,
				Country:    *country,
			},
		}
	}

	a.Token = s.newToken()
	intent, err := s.api.CreatePaymentIntent(ctx, payload, a.Token)
	if err != nil {
		if saveErr := saveAttempt(s.attempts, a); saveErr != nil {
			s.logger.Error("failed to save checkout state", "error", saveErr)
		}
		return fmt.Errorf("checkout failed: %w", err)
	}

	if err := a.advance(domain.CheckoutStatusPaymentIntentCreated); err != nil {
		return err
	}
	a.PaymentIntentID = intent.PaymentIntentID
	a.ClientSecret = intent.ClientSecret
	a.Amount = intent.Amount
	a.Currency = intent.Currency
	if err := saveAttempt(s.attempts, a); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "payment intent %s created for %.2f %s\n", intent.PaymentIntentID, intent.Amount, intent.Currency)
	if !intent.PricingValidated {
		fmt.Fprintln(s.out, "note: prices could not be verified against the catalog")
	}
	fmt.Fprintf(s.out, "client secret: %s\n", intent.ClientSecret)
	return nil
}

func (s *shopper) status(ctx context.Context) error {
	a, err := loadAttempt(s.attempts)
	if err != nil {
		return err
	}
	if a.PaymentIntentID == "" {
		fmt.Fprintf(s.out, "checkout: %s (no payment intent)\n", a.Status)
		return nil
	}

	remote, err := s.api.PaymentStatus(ctx, a.PaymentIntentID)
	if err != nil {
		return err
	}

	next := domain.CheckoutStatus(remote.CheckoutStatus)
	if next != domain.CheckoutStatusPaymentIntentCreated {
		if err := a.advance(next); err != nil {
			s.logger.Warn("ignoring processor status", "status", remote.Status, "error", err)
		}
	}
	if a.Status == domain.CheckoutStatusSucceeded {
		s.cart.Clear()
	}
	if err := saveAttempt(s.attempts, a); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "payment %s: %s (%s), %.2f %s\n", remote.ID, remote.Status, a.Status, remote.Amount, remote.Currency)
	if a.Status == domain.CheckoutStatusSucceeded {
		fmt.Fprintln(s.out, "order placed, cart cleared")
	}
	return nil
}
