package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Gateway creates a payment intent ("order" in Razorpay terms) on the remote
// side and returns its id. Implementations must respect ctx cancellation.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]interface{}) (string, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) Gateway {
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder calls the Razorpay Orders API. The SDK call itself is not
// context-aware, so it runs in a goroutine and the ctx deadline converts a
// hang into a retryable timeout error for the caller.
func (g *razorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	type result struct {
		id  string
		err error
	}
	ch := make(chan result, 1)

	go func() {
		body, err := g.client.Order.Create(data, nil)
		if err != nil {
			ch <- result{err: fmt.Errorf("razorpay order create: %w", err)}
			return
		}
		id, _ := body["id"].(string)
		if id == "" {
			ch <- result{err: errors.New("razorpay order create: response missing order id")}
			return
		}
		ch <- result{id: id}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("razorpay order create: %w", ctx.Err())
	case r := <-ch:
		return r.id, r.err
	}
}
