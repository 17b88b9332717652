// Package payments holds the provider-neutral types exchanged between the
// checkout flow and a payment provider adapter.
package payments

import "errors"

// ErrCanceled is returned by a sheet when the shopper dismissed it.
var ErrCanceled = errors.New("payment canceled")

// LineRef identifies a cart line sent alongside an intent request.
type LineRef struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// IntentRequest is the body of a payment-sheet request. Amount is in minor units.
type IntentRequest struct {
	Amount    int64     `json:"amount"`
	CartItems []LineRef `json:"cart_items"`
}

// Handle is an initialized payment intent ready to be presented.
type Handle struct {
	PaymentIntentID string `json:"-"`
	ClientSecret    string `json:"paymentIntent"`
	EphemeralKey    string `json:"ephemeralKey"`
	CustomerID      string `json:"customer"`
}

// Valid reports whether the handle carries the fields a sheet needs.
func (h Handle) Valid() bool {
	return h.ClientSecret != "" && h.EphemeralKey != "" && h.CustomerID != ""
}

// Appearance mirrors the color palette a sheet is themed with.
type Appearance struct {
	Primary             string `json:"primary"`
	Background          string `json:"background"`
	ComponentBackground string `json:"componentBackground"`
	ComponentBorder     string `json:"componentBorder"`
	ComponentDivider    string `json:"componentDivider"`
	PrimaryText         string `json:"primaryText"`
	SecondaryText       string `json:"secondaryText"`
	ComponentText       string `json:"componentText"`
	PlaceholderText     string `json:"placeholderText"`
}

// DefaultAppearance is the storefront palette.
func DefaultAppearance() Appearance {
	return Appearance{
		Primary:             "#006400",
		Background:          "#ffffff",
		ComponentBackground: "#f3f3f3",
		ComponentBorder:     "#e0e0e0",
		ComponentDivider:    "#e0e0e0",
		PrimaryText:         "#000000",
		SecondaryText:       "#646464",
		ComponentText:       "#000000",
		PlaceholderText:     "#8d8d8d",
	}
}

// SheetConfig configures a sheet before it is presented.
type SheetConfig struct {
	MerchantDisplayName string
	Appearance          Appearance
}

// Outcome is the terminal result of presenting a sheet.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeFailed    Outcome = "failed"
)

// ProviderError carries a provider-supplied failure message.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }
