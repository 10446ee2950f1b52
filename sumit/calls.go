package sumit

import (
	"context"
	"fmt"
	"time"
)

const (
	PathCompanyDetails    = "/website/companies/getdetails/"
	PathTokenizeSingleUse = "/creditguy/vault/tokenizesingleuse/"
	PathCreateDocument    = "/accounting/documents/create/"
	PathCharge            = "/billing/payments/charge/"
)

// DefaultPolicies covers the endpoints the typed helpers call
func DefaultPolicies() Policies {
	return Policies{
		PathCompanyDetails: {
			Path: PathCompanyDetails, Family: FamilyEither, Key: PrivateKey,
			Timeout: 30 * time.Second, RetryOnRejection: true,
		},
		PathTokenizeSingleUse: {
			Path: PathTokenizeSingleUse, Family: FamilyEither, Key: PublicKey,
			Timeout: 60 * time.Second, Mutation: true,
		},
		PathCreateDocument: {
			Path: PathCreateDocument, Family: FamilyEither, Key: PrivateKey,
			Timeout: 180 * time.Second, Mutation: true,
		},
		PathCharge: {
			Path: PathCharge, Family: FamilyEither, Key: PrivateKey,
			Timeout: 180 * time.Second, Mutation: true,
		},
	}
}

// CheckCredentials verifies the configured company id and private key
func (c *Client) CheckCredentials(ctx context.Context) error {
	if _, err := c.Call(ctx, Request{Path: PathCompanyDetails, Body: map[string]any{}}); err != nil {
		return fmt.Errorf("checking credentials: %w", err)
	}
	return nil
}

// Card is raw card input used only for single-use tokenization
type Card struct {
	Number          string
	ExpirationMonth int
	ExpirationYear  int
	CVV             string
	CitizenID       string
}

// TokenizeSingleUse exchanges card details for a single-use token with the public key
func (c *Client) TokenizeSingleUse(ctx context.Context, card Card) (string, error) {
	resp, err := c.Call(ctx, Request{
		Path: PathTokenizeSingleUse,
		Body: map[string]any{
			"CardNumber":      card.Number,
			"ExpirationMonth": card.ExpirationMonth,
			"ExpirationYear":  card.ExpirationYear,
			"CVV":             card.CVV,
			"CitizenID":       card.CitizenID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("tokenizing card: %w", err)
	}
	var data struct {
		SingleUseToken string `json:"SingleUseToken"`
	}
	if err := resp.Decode(&data); err != nil {
		return "", fmt.Errorf("tokenizing card: %w", err)
	}
	return data.SingleUseToken, nil
}

// Customer identifies the payer on documents and charges
type Customer struct {
	ID           int64  `json:"ID,omitempty"`
	Name         string `json:"Name,omitempty"`
	EmailAddress string `json:"EmailAddress,omitempty"`
	Phone        string `json:"Phone,omitempty"`
	ExternalID   string `json:"ExternalIdentifier,omitempty"`
}

// Item is one document or charge line
type Item struct {
	Name      string  `json:"Name"`
	Quantity  float64 `json:"Quantity"`
	UnitPrice float64 `json:"UnitPrice"`
}

// Document describes an accounting document to create
type Document struct {
	Type        int
	Customer    Customer
	Items       []Item
	Currency    string
	Language    string
	SendByEmail bool
	ExternalID  string
	Description string
}

// DocumentResult is returned after creating a document
type DocumentResult struct {
	DocumentID     int64  `json:"DocumentID"`
	DocumentNumber int64  `json:"DocumentNumber"`
	CustomerID     int64  `json:"CustomerID"`
	DocumentURL    string `json:"DocumentDownloadURL"`
}

// CreateDocument creates an invoice, receipt or order document
func (c *Client) CreateDocument(ctx context.Context, doc Document) (DocumentResult, error) {
	details := map[string]any{
		"Type":              doc.Type,
		"Customer":          doc.Customer,
		"Currency":          doc.Currency,
		"Language":          doc.Language,
		"Description":       doc.Description,
		"ExternalReference": doc.ExternalID,
	}
	if doc.SendByEmail {
		details["SendByEmail"] = map[string]any{"EmailAddress": doc.Customer.EmailAddress}
	}
	resp, err := c.Call(ctx, Request{
		Path: PathCreateDocument,
		Body: map[string]any{
			"Details": details,
			"Items":   documentItems(doc.Items),
		},
	})
	if err != nil {
		return DocumentResult{}, fmt.Errorf("creating document: %w", err)
	}
	var out DocumentResult
	if err := resp.Decode(&out); err != nil {
		return DocumentResult{}, fmt.Errorf("creating document: %w", err)
	}
	return out, nil
}

/* ChargeRequest charges a customer with a single-use token or a saved card
 * Recurring charges go through the subscriptions merchant number
 */
type ChargeRequest struct {
	Customer       Customer
	Items          []Item
	SingleUseToken string
	Installments   int
	Recurring      bool
	SendReceipt    bool
}

// Payment is the gateway's payment record
type Payment struct {
	ID                int64  `json:"ID"`
	ValidPayment      bool   `json:"ValidPayment"`
	Status            string `json:"Status"`
	StatusDescription string `json:"StatusDescription"`
	AuthNumber        string `json:"AuthNumber"`
}

// ChargeResult is returned after a charge
type ChargeResult struct {
	Payment    Payment `json:"Payment"`
	DocumentID int64   `json:"DocumentID"`
	CustomerID int64   `json:"CustomerID"`
}

// Charge bills a customer. The merchant number comes from configuration
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	merchant := c.merchant
	if req.Recurring && c.subsMerchant != "" {
		merchant = c.subsMerchant
	}
	if merchant == "" {
		return ChargeResult{}, fmt.Errorf("charging: %w", ErrMissingMerchant)
	}

	body := map[string]any{
		"Customer":            req.Customer,
		"Items":               documentItems(req.Items),
		"VATIncluded":         true,
		"SendDocumentByEmail": req.SendReceipt,
		"PaymentMethod":       map[string]any{"SingleUseToken": req.SingleUseToken},
		"MerchantNumber":      merchant,
	}
	if req.Installments > 1 {
		body["Payments_Count"] = req.Installments
	}

	resp, err := c.Call(ctx, Request{Path: PathCharge, Body: body})
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charging: %w", err)
	}
	var out ChargeResult
	if err := resp.Decode(&out); err != nil {
		return ChargeResult{}, fmt.Errorf("charging: %w", err)
	}
	if !out.Payment.ValidPayment {
		return out, &DomainRejection{
			Path:    PathCharge,
			Status:  resp.Status,
			Message: out.Payment.StatusDescription,
		}
	}
	return out, nil
}

func documentItems(items []Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"Item":      map[string]any{"Name": it.Name},
			"Quantity":  it.Quantity,
			"UnitPrice": it.UnitPrice,
		})
	}
	return out
}
