package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// Metadata keys written on the checkout session by the client and on the
// subscription by a plan change.
const (
	MetadataUserID   = "clerkUserId"
	MetadataPlanType = "planType"
)

// stripeEvent is the top-level structure of a Stripe webhook payload.
type stripeEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Created  int64  `json:"created"`
	Livemode bool   `json:"livemode"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	CustomerDetails   *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata     map[string]string `json:"metadata"`
	Subscription json.RawMessage   `json:"subscription"`
}

type invoiceObject struct {
	ID           string          `json:"id"`
	Subscription json.RawMessage `json:"subscription"`
	// Newer API versions moved the subscription under parent.subscription_details.
	Parent *struct {
		SubscriptionDetails *struct {
			Subscription json.RawMessage `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

type subscriptionObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// DecodeEvent parses a verified payload into the domain event union.
func DecodeEvent(body []byte) (domain.Event, error) {
	var raw stripeEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	meta := domain.EventMeta{
		ID:       raw.ID,
		Type:     raw.Type,
		Livemode: raw.Livemode,
	}
	if raw.Created > 0 {
		meta.CreatedAt = time.Unix(raw.Created, 0).UTC()
	}

	switch raw.Type {
	case domain.EventTypeCheckoutCompleted:
		var session checkoutSessionObject
		if err := decodeObject(raw.Data.Object, &session); err != nil {
			return nil, err
		}
		userID := strings.TrimSpace(session.Metadata[MetadataUserID])
		if userID == "" {
			userID = strings.TrimSpace(session.ClientReferenceID)
		}
		email := session.CustomerEmail
		if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
			email = session.CustomerDetails.Email
		}
		return domain.CheckoutCompleted{
			EventMeta:      meta,
			SessionID:      session.ID,
			UserID:         userID,
			Email:          strings.TrimSpace(email),
			SubscriptionID: expandableID(session.Subscription),
			Tier:           strings.TrimSpace(session.Metadata[MetadataPlanType]),
		}, nil

	case domain.EventTypeInvoicePaymentFail:
		var invoice invoiceObject
		if err := decodeObject(raw.Data.Object, &invoice); err != nil {
			return nil, err
		}
		subscriptionID := expandableID(invoice.Subscription)
		if subscriptionID == "" && invoice.Parent != nil && invoice.Parent.SubscriptionDetails != nil {
			subscriptionID = expandableID(invoice.Parent.SubscriptionDetails.Subscription)
		}
		return domain.PaymentFailed{
			EventMeta:      meta,
			InvoiceID:      invoice.ID,
			SubscriptionID: subscriptionID,
		}, nil

	case domain.EventTypeSubscriptionDeleted:
		var sub subscriptionObject
		if err := decodeObject(raw.Data.Object, &sub); err != nil {
			return nil, err
		}
		return domain.SubscriptionDeleted{
			EventMeta:      meta,
			SubscriptionID: strings.TrimSpace(sub.ID),
		}, nil

	case domain.EventTypeSubscriptionUpdated:
		var sub subscriptionObject
		if err := decodeObject(raw.Data.Object, &sub); err != nil {
			return nil, err
		}
		return domain.SubscriptionUpdated{
			EventMeta:      meta,
			SubscriptionID: strings.TrimSpace(sub.ID),
			Tier:           strings.TrimSpace(sub.Metadata[MetadataPlanType]),
			Status:         sub.Status,
		}, nil
	}

	return domain.UnrecognizedEvent{EventMeta: meta}, nil
}

func decodeObject(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: missing data.object", ErrMalformedEvent)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

// expandableID reads a Stripe expandable field, which is either an ID string
// or the expanded object carrying an "id".
func expandableID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}
