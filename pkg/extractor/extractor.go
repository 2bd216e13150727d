// Package extractor derives structured financial facts from the text of a
// transactional email using ordered, first-match-wins rule lists.
package extractor

import (
	"time"

	"mailledger-backend/internal/emailsync/domain"
)

const (
	// ConfidenceWithMerchant is reported when a merchant rule matched
	ConfidenceWithMerchant = 0.85
	// ConfidenceWithoutMerchant is reported otherwise
	ConfidenceWithoutMerchant = 0.60
)

// Extractor is safe for concurrent use; it holds no mutable state.
type Extractor struct {
	location     *time.Location
	amountRules  []AmountRule
	merchants    []MerchantRule
	dateRules    []DateRule
	paymentModes []PaymentModeRule
}

// Option customises an Extractor
type Option func(*Extractor)

// WithMerchantRules replaces the default merchant rule list
func WithMerchantRules(rules []MerchantRule) Option {
	return func(e *Extractor) {
		e.merchants = rules
	}
}

// WithAmountRules replaces the default amount rule list
func WithAmountRules(rules []AmountRule) Option {
	return func(e *Extractor) {
		e.amountRules = rules
	}
}

// New creates an Extractor. Dates found in text are interpreted at midnight in loc.
func New(loc *time.Location, opts ...Option) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	e := &Extractor{
		location:     loc,
		amountRules:  DefaultAmountRules,
		merchants:    DefaultMerchantRules,
		dateRules:    DefaultDateRules,
		paymentModes: DefaultPaymentModeRules,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract derives a fact from msg. It never fails; a fact whose Amount is nil
// must not be ingested.
func (e *Extractor) Extract(msg *domain.CandidateMessage) *domain.ExtractedFact {
	text := msg.Subject + " " + msg.Body + " " + msg.From

	fact := &domain.ExtractedFact{
		Category:        domain.CategoryOther,
		PaymentMode:     domain.PaymentModeOther,
		Confidence:      ConfidenceWithoutMerchant,
		TransactionDate: e.headerDate(msg.Date),
	}

	for _, rule := range e.amountRules {
		if amount, ok := rule.Match(text); ok {
			fact.Amount = &amount
			break
		}
	}

	for _, rule := range e.merchants {
		if rule.Pattern.MatchString(text) {
			m := rule.Merchant
			fact.Merchant = &m
			fact.Category = m.Category
			fact.Confidence = ConfidenceWithMerchant
			break
		}
	}

	for _, rule := range e.dateRules {
		if date, ok := rule.Match(text, e.location); ok {
			fact.TransactionDate = date
			break
		}
	}

	for _, rule := range e.paymentModes {
		if rule.Pattern.MatchString(text) {
			fact.PaymentMode = rule.Mode
			break
		}
	}

	return fact
}

func (e *Extractor) headerDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.In(e.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location)
}
