package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// SeedCategory describes how a seeded category is created.
type SeedCategory struct {
	Type       model.CategoryType
	TaxMapping model.TaxMapping
}

// SeedRule is a built-in keyword rule.
type SeedRule struct {
	Keyword         string
	MatchType       model.MatchType
	CategoryName    string
	TransactionType model.TransactionType
	Description     string
	Priority        int
}

// SeedCategories lists the categories referenced by SystemRules.
var SeedCategories = map[string]SeedCategory{
	"Salary":                 {model.CategoryTypeIncome, model.TaxNone},
	"Benefits":               {model.CategoryTypeIncome, model.TaxNone},
	"Refunds":                {model.CategoryTypeIncome, model.TaxNone},
	"Interest":               {model.CategoryTypeIncome, model.TaxNone},
	"Dividends":              {model.CategoryTypeIncome, model.TaxNone},
	"Groceries":              {model.CategoryTypeExpense, model.TaxNone},
	"Dining & Takeaway":      {model.CategoryTypeExpense, model.TaxNone},
	"Subscriptions":          {model.CategoryTypeExpense, model.TaxNone},
	"Utilities":              {model.CategoryTypeExpense, model.TaxPremisesCosts},
	"Telecoms":               {model.CategoryTypeExpense, model.TaxOfficeCosts},
	"Travel":                 {model.CategoryTypeExpense, model.TaxTravelCosts},
	"Vehicle Costs":          {model.CategoryTypeExpense, model.TaxTravelCosts},
	"Shopping":               {model.CategoryTypeExpense, model.TaxNone},
	"Council Tax":            {model.CategoryTypeExpense, model.TaxNone},
	"Insurance":              {model.CategoryTypeExpense, model.TaxNone},
	"Healthcare":             {model.CategoryTypeExpense, model.TaxNone},
	"Software & IT":          {model.CategoryTypeExpense, model.TaxOfficeCosts},
	"Bank & Finance Charges": {model.CategoryTypeExpense, model.TaxFinancialCharges},
	"Transfers":              {model.CategoryTypeExpense, model.TaxNone},
	"Housing":                {model.CategoryTypeExpense, model.TaxNone},
	"Entertainment":          {model.CategoryTypeExpense, model.TaxNone},
	"Childcare":              {model.CategoryTypeExpense, model.TaxNone},
}

// SystemRules are the rules installed by Seeder.
var SystemRules = []SeedRule{
	{"salary", model.MatchContains, "Salary", model.TransactionCredit, "Salary/wages payment", 10},
	{"wages", model.MatchContains, "Salary", model.TransactionCredit, "Wages payment", 10},
	{"payroll", model.MatchContains, "Salary", model.TransactionCredit, "Payroll payment", 10},
	{"universal credit", model.MatchContains, "Benefits", model.TransactionCredit, "DWP Universal Credit", 10},
	{"child benefit", model.MatchContains, "Benefits", model.TransactionCredit, "HMRC Child Benefit", 10},
	{"dwp", model.MatchContains, "Benefits", model.TransactionCredit, "DWP payment", 8},
	{"refund", model.MatchContains, "Refunds", model.TransactionCredit, "Refund payment", 5},
	{"interest earned", model.MatchContains, "Interest", model.TransactionCredit, "Bank interest", 8},
	{"dividend", model.MatchContains, "Dividends", model.TransactionCredit, "Dividend payment", 8},

	{"tesco", model.MatchContains, "Groceries", "", "Tesco supermarket", 10},
	{"sainsbury", model.MatchContains, "Groceries", "", "Sainsburys supermarket", 10},
	{"asda", model.MatchContains, "Groceries", "", "Asda supermarket", 10},
	{"morrisons", model.MatchContains, "Groceries", "", "Morrisons supermarket", 10},
	{"aldi", model.MatchContains, "Groceries", "", "Aldi supermarket", 10},
	{"lidl", model.MatchContains, "Groceries", "", "Lidl supermarket", 10},
	{"waitrose", model.MatchContains, "Groceries", "", "Waitrose supermarket", 10},
	{"ocado", model.MatchContains, "Groceries", "", "Ocado delivery", 10},

	{"deliveroo", model.MatchContains, "Dining & Takeaway", "", "Deliveroo food delivery", 10},
	{"uber eats", model.MatchContains, "Dining & Takeaway", "", "Uber Eats food delivery", 10},
	{"just eat", model.MatchContains, "Dining & Takeaway", "", "Just Eat food delivery", 10},
	{"greggs", model.MatchContains, "Dining & Takeaway", "", "Greggs bakery", 10},
	{"starbucks", model.MatchContains, "Dining & Takeaway", "", "Starbucks coffee", 10},
	{"pret", model.MatchContains, "Dining & Takeaway", "", "Pret A Manger", 10},

	{"netflix", model.MatchContains, "Subscriptions", "", "Netflix streaming", 10},
	{"spotify", model.MatchContains, "Subscriptions", "", "Spotify music", 10},
	{"amazon prime", model.MatchContains, "Subscriptions", "", "Amazon Prime", 10},
	{"audible", model.MatchContains, "Subscriptions", "", "Audible audiobooks", 9},

	{"british gas", model.MatchContains, "Utilities", "", "British Gas energy", 10},
	{"octopus energy", model.MatchContains, "Utilities", "", "Octopus Energy", 10},
	{"ovo energy", model.MatchContains, "Utilities", "", "OVO Energy", 10},
	{"thames water", model.MatchContains, "Utilities", "", "Thames Water", 10},

	{"vodafone", model.MatchContains, "Telecoms", "", "Vodafone mobile/broadband", 10},
	{"virgin media", model.MatchContains, "Telecoms", "", "Virgin Media", 10},
	{"giffgaff", model.MatchContains, "Telecoms", "", "GiffGaff mobile", 10},
	{"three", model.MatchExact, "Telecoms", "", "Three mobile", 10},

	{"tfl", model.MatchContains, "Travel", "", "Transport for London", 10},
	{"trainline", model.MatchContains, "Travel", "", "Trainline tickets", 10},
	{"easyjet", model.MatchContains, "Travel", "", "EasyJet flights", 10},
	{"ryanair", model.MatchContains, "Travel", "", "Ryanair flights", 10},
	{"uber", model.MatchContains, "Travel", "", "Uber ride", 7},

	{"esso", model.MatchContains, "Vehicle Costs", "", "Esso fuel station", 10},
	{"shell", model.MatchContains, "Vehicle Costs", "", "Shell fuel station", 9},
	{"halfords", model.MatchContains, "Vehicle Costs", "", "Halfords car parts", 10},

	{"argos", model.MatchContains, "Shopping", "", "Argos", 10},
	{"john lewis", model.MatchContains, "Shopping", "", "John Lewis", 10},
	{"ebay", model.MatchContains, "Shopping", "", "eBay", 9},

	{"council tax", model.MatchContains, "Council Tax", "", "Council tax payment", 10},
	{"aviva", model.MatchContains, "Insurance", "", "Aviva insurance", 10},
	{"specsavers", model.MatchContains, "Healthcare", "", "Specsavers optician", 10},

	{"adobe", model.MatchContains, "Software & IT", "", "Adobe Creative Cloud", 10},
	{"github", model.MatchContains, "Software & IT", "", "GitHub", 10},
	{"google workspace", model.MatchContains, "Software & IT", "", "Google Workspace", 10},

	{"stripe fee", model.MatchContains, "Bank & Finance Charges", "", "Stripe processing fee", 10},
	{"overdraft", model.MatchContains, "Bank & Finance Charges", "", "Overdraft charge", 10},
	{"internal transfer", model.MatchContains, "Transfers", "", "Internal transfer", 8},

	{"screwfix", model.MatchContains, "Housing", "", "Screwfix trade supplies", 10},
	{"playstation", model.MatchContains, "Entertainment", "", "PlayStation Store", 10},
	{"nursery", model.MatchContains, "Childcare", "", "Nursery fees", 9},
}

// CategoryResolver returns the category with the given name, creating it when absent.
type CategoryResolver interface {
	ResolveCategory(ctx context.Context, name string, mapping model.TaxMapping, isExpense bool) (*model.Category, error)
}

// SeedReport counts what a seeding run did.
type SeedReport struct {
	Created   int
	Refreshed int
	Skipped   int
}

// Seeder installs SystemRules.
type Seeder struct {
	store      service.RuleStore
	categories CategoryResolver
	logger     *slog.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(store service.RuleStore, categories CategoryResolver, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, categories: categories, logger: logger}
}

// Seed creates missing system rules and refreshes existing system rules.
// Rules a user created or the engine learned for the same keyword are left alone.
func (s *Seeder) Seed(ctx context.Context, seeds []SeedRule) (SeedReport, error) {
	var report SeedReport

	for _, seed := range seeds {
		meta, ok := SeedCategories[seed.CategoryName]
		if !ok {
			meta = SeedCategory{Type: model.CategoryTypeExpense, TaxMapping: model.TaxNone}
		}

		category, err := s.categories.ResolveCategory(ctx, seed.CategoryName, meta.TaxMapping, meta.Type == model.CategoryTypeExpense)
		if err != nil {
			return report, fmt.Errorf("failed to resolve category %q: %w", seed.CategoryName, err)
		}

		rule := model.Rule{
			Keyword:         seed.Keyword,
			MatchType:       seed.MatchType,
			CategoryID:      category.ID,
			TaxMapping:      category.TaxMapping,
			IsTaxDeductible: category.IsTaxDeductible(),
			Source:          model.SourceSystem,
			Description:     seed.Description,
			TransactionType: seed.TransactionType,
			Priority:        seed.Priority,
		}

		existing, err := s.store.FindRule(ctx, seed.Keyword, seed.MatchType)
		switch {
		case errors.Is(err, common.ErrNotFound):
			if err := s.store.CreateRule(ctx, &rule); err != nil {
				return report, fmt.Errorf("failed to create rule %q: %w", seed.Keyword, err)
			}
			report.Created++
		case err != nil:
			return report, fmt.Errorf("failed to look up rule %q: %w", seed.Keyword, err)
		case existing.Source != model.SourceSystem:
			s.logger.Debug("keeping user rule over seed", "keyword", seed.Keyword, "source", existing.Source)
			report.Skipped++
		default:
			rule.ID = existing.ID
			if err := s.store.UpdateRule(ctx, &rule); err != nil {
				return report, fmt.Errorf("failed to refresh rule %q: %w", seed.Keyword, err)
			}
			report.Refreshed++
		}
	}

	s.logger.Info("seeded system rules",
		"created", report.Created,
		"refreshed", report.Refreshed,
		"skipped", report.Skipped)
	return report, nil
}
