package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"mailledger-backend/internal/emailsync/domain"

	"github.com/shopspring/decimal"
)

// numberPattern takes every fractional digit so Match can reject 1.234
const numberPattern = `([0-9][0-9,]*(?:\.[0-9]+)?)`

// maxFractionDigits is the paise precision an amount may carry
const maxFractionDigits = 2

var (
	minAmount = decimal.Zero
	maxAmount = decimal.NewFromInt(10_000_000)
)

// AmountRule pulls a monetary amount out of message text
type AmountRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Match returns the first amount in the open range (0, 10,000,000).
func (r AmountRule) Match(text string) (decimal.Decimal, bool) {
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		if _, frac, ok := strings.Cut(raw, "."); ok && len(frac) > maxFractionDigits {
			continue
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		if amount.GreaterThan(minAmount) && amount.LessThan(maxAmount) {
			return amount.Round(2), true
		}
	}
	return decimal.Decimal{}, false
}

// DefaultAmountRules are tried in order; patterns are never merged.
var DefaultAmountRules = []AmountRule{
	{
		Name:    "currency_prefix",
		Pattern: regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr)\s*` + numberPattern),
	},
	{
		Name:    "amount_label",
		Pattern: regexp.MustCompile(`(?i)\bamount\s*(?:paid|debited|charged|of)?\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*` + numberPattern),
	},
	{
		Name:    "currency_suffix",
		Pattern: regexp.MustCompile(`(?i)\b` + numberPattern + `\s*(?:₹|rs\b\.?|inr\b|rupees\b)`),
	},
}

// MerchantRule maps a brand pattern to a merchant and spending category
type MerchantRule struct {
	Pattern  *regexp.Regexp
	Merchant domain.Merchant
}

func merchant(pattern, name, category string) MerchantRule {
	return MerchantRule{
		Pattern:  regexp.MustCompile(`(?i)` + pattern),
		Merchant: domain.Merchant{Name: name, Category: category},
	}
}

// DefaultMerchantRules lists brands in match priority. Payment gateways come
// last so the actual merchant wins over the instrument used to pay it.
var DefaultMerchantRules = []MerchantRule{
	// e-commerce
	merchant(`\bamazon\b`, "Amazon", "Shopping"),
	merchant(`\bflipkart\b`, "Flipkart", "Shopping"),
	merchant(`\bmyntra\b`, "Myntra", "Shopping"),
	// food delivery
	merchant(`\bswiggy\b`, "Swiggy", "Food"),
	merchant(`\bzomato\b`, "Zomato", "Food"),
	// transport
	merchant(`\buber\b`, "Uber", "Transport"),
	merchant(`\bola\b`, "Ola", "Transport"),
	merchant(`\brapido\b`, "Rapido", "Transport"),
	merchant(`\birctc\b`, "IRCTC", "Transport"),
	// telecom
	merchant(`\bairtel\b`, "Airtel", "Bills"),
	merchant(`\bjio\b`, "Jio", "Bills"),
	merchant(`\bvodafone(?:\s+idea)?\b`, "Vi", "Bills"),
	// streaming
	merchant(`\bnetflix\b`, "Netflix", "Entertainment"),
	merchant(`\bspotify\b`, "Spotify", "Entertainment"),
	// payment gateways
	merchant(`\bpaytm\b`, "Paytm", domain.CategoryOther),
	merchant(`\bphonepe\b`, "PhonePe", domain.CategoryOther),
	merchant(`\bgoogle\s*pay\b`, "Google Pay", domain.CategoryOther),
	merchant(`\brazorpay\b`, "Razorpay", domain.CategoryOther),
}

type dateLayout int

const (
	dayMonthYear dateLayout = iota
	dayMonthNameYear
	monthNameDayYear
)

// DateRule recognises one textual date layout
type DateRule struct {
	Pattern *regexp.Regexp
	Layout  dateLayout
}

const monthNames = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

// DefaultDateRules are tried in order, first valid calendar date wins.
var DefaultDateRules = []DateRule{
	{
		Pattern: regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})\b`),
		Layout:  dayMonthYear,
	},
	{
		Pattern: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[\s\-]+` + monthNames + `[\s,\-]+(\d{4})\b`),
		Layout:  dayMonthNameYear,
	},
	{
		Pattern: regexp.MustCompile(`(?i)\b` + monthNames + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
		Layout:  monthNameDayYear,
	},
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Match returns the first date in text that is a real calendar day in loc.
func (r DateRule) Match(text string, loc *time.Location) (time.Time, bool) {
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		var day, year int
		var month time.Month
		var err error

		switch r.Layout {
		case dayMonthYear:
			day, _ = strconv.Atoi(m[1])
			var mm int
			mm, _ = strconv.Atoi(m[2])
			month = time.Month(mm)
			year, err = strconv.Atoi(m[3])
		case dayMonthNameYear:
			day, _ = strconv.Atoi(m[1])
			month = months[strings.ToLower(m[2])]
			year, err = strconv.Atoi(m[3])
		case monthNameDayYear:
			month = months[strings.ToLower(m[1])]
			day, _ = strconv.Atoi(m[2])
			year, err = strconv.Atoi(m[3])
		}
		if err != nil {
			continue
		}

		if t, ok := calendarDate(year, month, day, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarDate rejects dates that time.Date would normalise, e.g. 31/02.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// PaymentModeRule classifies the payment instrument by keyword presence
type PaymentModeRule struct {
	Pattern *regexp.Regexp
	Mode    domain.PaymentMode
}

// DefaultPaymentModeRules are in priority order: UPI, Card, BankTransfer, Cash.
var DefaultPaymentModeRules = []PaymentModeRule{
	{
		Pattern: regexp.MustCompile(`(?i)\b(?:upi|vpa|gpay|phonepe|bhim)\b`),
		Mode:    domain.PaymentModeUPI,
	},
	{
		Pattern: regexp.MustCompile(`(?i)\b(?:credit\s+card|debit\s+card|card|visa|mastercard|rupay|amex)\b`),
		Mode:    domain.PaymentModeCard,
	},
	{
		Pattern: regexp.MustCompile(`(?i)\b(?:neft|imps|rtgs|bank\s+transfer|net\s*banking)\b`),
		Mode:    domain.PaymentModeBankTransfer,
	},
	{
		Pattern: regexp.MustCompile(`(?i)\b(?:cash|cod)\b`),
		Mode:    domain.PaymentModeCash,
	},
}
