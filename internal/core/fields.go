package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Date fields draw from fixed absolute windows so that output depends on
// the seed alone, never on the wall clock.
var (
	birthStart     = time.Date(1955, time.January, 1, 0, 0, 0, 0, time.UTC)
	birthEnd       = time.Date(2007, time.December, 31, 0, 0, 0, 0, time.UTC)
	employStart    = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	employEnd      = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	eventStart     = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	eventEnd       = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	departments    = []string{"Engineering", "Sales", "Marketing", "HR", "Finance", "Operations"}
	orderStatuses  = []string{"pending", "paid", "shipped", "delivered", "cancelled", "refunded"}
	paymentMethods = []string{"credit_card", "debit_card", "paypal", "bank_transfer", "gift_card"}
)

// NewDefaultCatalog builds the standard catalog. Call it once at startup
// and pass the result to the components that need it.
func NewDefaultCatalog() (*Catalog, error) {
	return NewCatalog(defaultFields()...)
}

// MustDefaultCatalog is NewDefaultCatalog for program start-up and tests.
func MustDefaultCatalog() *Catalog {
	c, err := NewDefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func defaultFields() []Field {
	return []Field{
		// Personal
		{Kind: "first_name", Label: "First Name", Group: GroupPersonal, Generate: text(func(s *RandomSource) string { return s.Faker().FirstName() })},
		{Kind: "last_name", Label: "Last Name", Group: GroupPersonal, Generate: text(func(s *RandomSource) string { return s.Faker().LastName() })},
		{Kind: "full_name", Label: "Full Name", Group: GroupPersonal, Aliases: []string{"name"}, Generate: text(func(s *RandomSource) string { return s.Faker().Name() })},
		{Kind: "email", Label: "Email", Group: GroupPersonal, Generate: text(func(s *RandomSource) string { return s.Faker().Email() })},
		{Kind: "phone_number", Label: "Phone", Group: GroupPersonal, Aliases: []string{"phone"}, Generate: text(func(s *RandomSource) string { return s.Faker().PhoneFormatted() })},
		{Kind: "date_of_birth", Label: "Date of Birth", Group: GroupPersonal, Aliases: []string{"dob"}, Generate: dateIn(birthStart, birthEnd)},
		{Kind: "address", Label: "Address", Group: GroupPersonal, Generate: text(func(s *RandomSource) string {
			return strings.ReplaceAll(s.Faker().Address().Address, "\n", ", ")
		})},
		{Kind: "city", Label: "City", Group: GroupPersonal, Generate: text(func(s *RandomSource) string { return s.Faker().City() })},
		{Kind: "country", Label: "Country", Group: GroupPersonal, Generate: text(func(s *RandomSource) string { return s.Faker().Country() })},
		{Kind: "username", Label: "Username", Group: GroupPersonal, Generate: text(func(s *RandomSource) string { return s.Faker().Username() })},

		// Business
		{Kind: "company", Label: "Company", Group: GroupBusiness, Aliases: []string{"companyName"}, Generate: text(func(s *RandomSource) string { return s.Faker().Company() })},
		{Kind: "job_title", Label: "Job Title", Group: GroupBusiness, Generate: text(func(s *RandomSource) string { return s.Faker().JobTitle() })},
		{Kind: "department", Label: "Department", Group: GroupBusiness, Generate: text(func(s *RandomSource) string { return s.Choice(departments) })},
		{Kind: "salary", Label: "Salary", Group: GroupBusiness, Numeric: true, Generate: amount(40000, 150000)},
		{Kind: "start_date", Label: "Start Date", Group: GroupBusiness, Generate: dateIn(employStart, employEnd)},

		// Technical
		{Kind: "ip_address", Label: "IP Address", Group: GroupTechnical, Aliases: []string{"ipv4"}, Generate: text(func(s *RandomSource) string { return s.Faker().IPv4Address() })},
		{Kind: "ipv6_address", Label: "IPv6 Address", Group: GroupTechnical, Generate: text(func(s *RandomSource) string { return s.Faker().IPv6Address() })},
		{Kind: "user_agent", Label: "User Agent", Group: GroupTechnical, Generate: text(func(s *RandomSource) string { return s.Faker().UserAgent() })},
		{Kind: "api_key", Label: "API Key", Group: GroupTechnical, Generate: text(func(s *RandomSource) string {
			return strings.ReplaceAll(s.Faker().UUID(), "-", "")
		})},
		{Kind: "uuid", Label: "UUID", Group: GroupTechnical, Generate: text(func(s *RandomSource) string { return s.Faker().UUID() })},
		{Kind: "timestamp", Label: "Timestamp", Group: GroupTechnical, Generate: timestampIn(eventStart, eventEnd)},
		{Kind: "url", Label: "URL", Group: GroupTechnical, Generate: text(func(s *RandomSource) string { return s.Faker().URL() })},
		{Kind: "mac_address", Label: "MAC Address", Group: GroupTechnical, Generate: text(func(s *RandomSource) string { return s.Faker().MacAddress() })},

		// Finance
		{Kind: "credit_card_number", Label: "Credit Card Number", Group: GroupFinance, Aliases: []string{"credit_card"}, Generate: text(func(s *RandomSource) string { return s.Faker().CreditCardNumber(nil) })},
		{Kind: "credit_card_type", Label: "Credit Card Type", Group: GroupFinance, Generate: text(func(s *RandomSource) string { return s.Faker().CreditCardType() })},
		{Kind: "currency_code", Label: "Currency", Group: GroupFinance, Aliases: []string{"currency"}, Generate: text(func(s *RandomSource) string { return s.Faker().CurrencyShort() })},
		{Kind: "account_number", Label: "Account Number", Group: GroupFinance, Generate: text(func(s *RandomSource) string { return s.Faker().AchAccount() })},
		{Kind: "routing_number", Label: "Routing Number", Group: GroupFinance, Generate: text(func(s *RandomSource) string { return s.Faker().AchRouting() })},
		{Kind: "transaction_amount", Label: "Transaction Amount", Group: GroupFinance, Numeric: true, Generate: amount(1, 5000)},
		{Kind: "transaction_date", Label: "Transaction Date", Group: GroupFinance, Generate: dateIn(eventStart, eventEnd)},
		{Kind: "bitcoin_address", Label: "Bitcoin Address", Group: GroupFinance, Generate: text(func(s *RandomSource) string { return s.Faker().BitcoinAddress() })},

		// E-commerce
		{Kind: "product_name", Label: "Product Name", Group: GroupCommerce, Aliases: []string{"product"}, Generate: text(func(s *RandomSource) string { return s.Faker().ProductName() })},
		{Kind: "product_category", Label: "Product Category", Group: GroupCommerce, Generate: text(func(s *RandomSource) string { return s.Faker().ProductCategory() })},
		{Kind: "price_usd", Label: "Price (USD)", Group: GroupCommerce, Aliases: []string{"price"}, Numeric: true, Generate: amount(1, 999)},
		{Kind: "quantity", Label: "Quantity", Group: GroupCommerce, Numeric: true, Generate: text(func(s *RandomSource) string {
			return strconv.Itoa(1 + s.IntN(20))
		})},
		{Kind: "order_id", Label: "Order ID", Group: GroupCommerce, Generate: text(func(s *RandomSource) string {
			return fmt.Sprintf("ORD-%08d", s.IntN(100000000))
		})},
		{Kind: "sku", Label: "SKU", Group: GroupCommerce, Generate: text(func(s *RandomSource) string {
			return fmt.Sprintf("SKU-%c%c-%05d", 'A'+rune(s.IntN(26)), 'A'+rune(s.IntN(26)), s.IntN(100000))
		})},
		{Kind: "order_status", Label: "Order Status", Group: GroupCommerce, Generate: text(func(s *RandomSource) string { return s.Choice(orderStatuses) })},
		{Kind: "payment_method", Label: "Payment Method", Group: GroupCommerce, Generate: text(func(s *RandomSource) string { return s.Choice(paymentMethods) })},
		{Kind: "order_date", Label: "Order Date", Group: GroupCommerce, Generate: dateIn(eventStart, eventEnd)},
	}
}

// text adapts an infallible generator.
func text(fn func(*RandomSource) string) GenerateFunc {
	return func(s *RandomSource) (string, error) {
		return fn(s), nil
	}
}

// amount draws a two-decimal value in [lo, hi].
func amount(lo, hi float64) GenerateFunc {
	return func(s *RandomSource) (string, error) {
		v := lo + s.Float64()*(hi-lo)
		v = math.Round(v*100) / 100
		return strconv.FormatFloat(v, 'f', 2, 64), nil
	}
}

// dateIn draws a calendar date in [start, end] formatted as YYYY-MM-DD.
func dateIn(start, end time.Time) GenerateFunc {
	days := int(end.Sub(start).Hours() / 24)
	return func(s *RandomSource) (string, error) {
		return start.AddDate(0, 0, s.IntN(days+1)).Format(time.DateOnly), nil
	}
}

// timestampIn draws a second-resolution instant in [start, end) as RFC 3339.
func timestampIn(start, end time.Time) GenerateFunc {
	span := int64(end.Sub(start) / time.Second)
	return func(s *RandomSource) (string, error) {
		return start.Add(time.Duration(s.Int64N(span)) * time.Second).Format(time.RFC3339), nil
	}
}
