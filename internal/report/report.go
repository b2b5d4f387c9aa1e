// Package report reduces a snapshot of expenses and budgets into totals, a
// per-category breakdown, per-day totals and the largest expenses.
package report

import (
	"sort"

	"spendwise/internal/models"

	"github.com/shopspring/decimal"
)

// TopExpenseLimit is the number of expenses listed in TopExpenses.
const TopExpenseLimit = 5

// ratioScale is the number of fractional digits kept on a ratio before it
// is scaled to a percentage.
const ratioScale = 4

var hundred = decimal.NewFromInt(100)

// Report is the spending summary of one user over a date range.
type Report struct {
	TotalBudget        decimal.Decimal    `json:"total_budget"`
	RemainingBudget    decimal.Decimal    `json:"remaining_budget"`
	TotalSpending      decimal.Decimal    `json:"total_spending"`
	TotalTransactions  int                `json:"total_transactions"`
	SpendingByCategory []CategorySpending `json:"spending_by_category"`
	SpendingByDay      []DailySpending    `json:"spending_by_day"`
	TopExpenses        []ExpenseView      `json:"top_expenses"`
}

// CategorySpending is the spend and budget of one category.
type CategorySpending struct {
	CategoryName              string          `json:"category_name"`
	AmountSpent               decimal.Decimal `json:"amount_spent"`
	BudgetAmount              decimal.Decimal `json:"budget_amount"`
	PercentageOfTotalSpending float64         `json:"percentage_of_total_spending"`
	PercentageOfBudgetUsed    float64         `json:"percentage_of_budget_used"`
}

// DailySpending is the total spent on one calendar day.
type DailySpending struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// ExpenseView is the compact projection of an expense used in TopExpenses.
type ExpenseView struct {
	ExpenseID    string          `json:"expense_id"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	Note         string          `json:"note"`
	CategoryName string          `json:"category_name"`
}

// Build aggregates already-selected expenses and budgets. expenses must be
// in selection order (expense date, then creation); ties in TopExpenses keep
// that order. Category names come from the preloaded Category relation and
// fall back to the category id when it is missing.
func Build(expenses []models.Expense, budgets []models.Budget) *Report {
	r := &Report{
		TotalTransactions:  len(expenses),
		SpendingByCategory: []CategorySpending{},
		SpendingByDay:      []DailySpending{},
		TopExpenses:        []ExpenseView{},
	}

	spent := make(map[string]decimal.Decimal)
	budgeted := make(map[string]decimal.Decimal)
	daily := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		r.TotalSpending = r.TotalSpending.Add(e.Amount)
		name := categoryName(e.Category, e.CategoryID)
		spent[name] = spent[name].Add(e.Amount)
		day := models.FormatDate(e.ExpenseDate)
		daily[day] = daily[day].Add(e.Amount)
	}
	for _, b := range budgets {
		r.TotalBudget = r.TotalBudget.Add(b.Amount)
		name := categoryName(b.Category, b.CategoryID)
		budgeted[name] = budgeted[name].Add(b.Amount)
	}
	r.RemainingBudget = r.TotalBudget.Sub(r.TotalSpending)

	names := make([]string, 0, len(spent)+len(budgeted))
	for name := range spent {
		names = append(names, name)
	}
	for name := range budgeted {
		if _, ok := spent[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		s, b := spent[name], budgeted[name]
		r.SpendingByCategory = append(r.SpendingByCategory, CategorySpending{
			CategoryName:              name,
			AmountSpent:               s,
			BudgetAmount:              b,
			PercentageOfTotalSpending: Percentage(s, r.TotalSpending),
			PercentageOfBudgetUsed:    BudgetUsed(s, b),
		})
	}
	sort.SliceStable(r.SpendingByCategory, func(i, j int) bool {
		return r.SpendingByCategory[i].AmountSpent.GreaterThan(r.SpendingByCategory[j].AmountSpent)
	})

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		r.SpendingByDay = append(r.SpendingByDay, DailySpending{Date: day, Amount: daily[day]})
	}

	ranked := make([]models.Expense, len(expenses))
	copy(ranked, expenses)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.GreaterThan(ranked[j].Amount)
	})
	if len(ranked) > TopExpenseLimit {
		ranked = ranked[:TopExpenseLimit]
	}
	for _, e := range ranked {
		r.TopExpenses = append(r.TopExpenses, ExpenseView{
			ExpenseID:    e.ID,
			Amount:       e.Amount,
			Date:         models.FormatDate(e.ExpenseDate),
			Note:         e.Note,
			CategoryName: categoryName(e.Category, e.CategoryID),
		})
	}

	return r
}

// Percentage returns 100 × part / whole with the quotient rounded half-up
// to four fractional digits first. A zero whole yields 0.
func Percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.DivRound(whole, ratioScale).Mul(hundred).InexactFloat64()
}

// BudgetUsed is the share of a category budget consumed by spent. Spend on
// a category without budget counts as fully used.
func BudgetUsed(spent, budgeted decimal.Decimal) float64 {
	switch {
	case budgeted.IsPositive():
		return Percentage(spent, budgeted)
	case spent.IsPositive():
		return 100
	default:
		return 0
	}
}

func categoryName(c *models.Category, id string) string {
	if c != nil && c.Name != "" {
		return c.Name
	}
	return id
}
