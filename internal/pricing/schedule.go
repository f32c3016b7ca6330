package pricing

import (
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPenalties are the early-settlement penalty percents for years 1..5.
var DefaultPenalties = []decimal.Decimal{
	decimal.NewFromInt(4),
	decimal.NewFromInt(3),
	decimal.NewFromInt(2),
	decimal.NewFromInt(1),
	decimal.Zero,
}

// RateStage is a promotional rate held for a number of months.
type RateStage struct {
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
	Months            int             `json:"months"`
}

// ScheduleInput describes a declining-balance loan. Stages are applied in
// order before the floating rate takes over; at most two are honoured.
type ScheduleInput struct {
	LoanAmount   decimal.Decimal   `json:"loanAmount"`
	TermYears    int               `json:"termYears"`
	StartDate    time.Time         `json:"startDate"`
	Stages       []RateStage       `json:"stages"`
	FloatingRate decimal.Decimal   `json:"floatingRate"`
	Penalties    []decimal.Decimal `json:"penalties"`
}

// ScheduleRow is one month of a repayment schedule.
type ScheduleRow struct {
	Month          int             `json:"month"`
	DueDate        time.Time       `json:"dueDate"`
	DaysInMonth    int             `json:"daysInMonth"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	AnnualRate     decimal.Decimal `json:"annualRate"`
	Principal      decimal.Decimal `json:"principal"`
	Interest       decimal.Decimal `json:"interest"`
	Payment        decimal.Decimal `json:"payment"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	PenaltyPercent decimal.Decimal `json:"penaltyPercent"`
	SettlementFee  decimal.Decimal `json:"settlementFee"`
}

// Schedule is a full repayment plan with totals.
type Schedule struct {
	Rows              []ScheduleRow   `json:"rows"`
	TotalInterest     decimal.Decimal `json:"totalInterest"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	FirstMonthPayment decimal.Decimal `json:"firstMonthPayment"`
}

const maxRateStages = 2

// BuildSchedule repays equal principal each month with interest charged on the
// remaining balance at the rate of the current stage.
func BuildSchedule(in ScheduleInput) Schedule {
	out := Schedule{Rows: []ScheduleRow{}, TotalInterest: decimal.Zero, TotalPaid: decimal.Zero, FirstMonthPayment: decimal.Zero}
	months := in.TermYears * monthsPerYear
	if !in.LoanAmount.IsPositive() || months <= 0 {
		return out
	}
	penalties := in.Penalties
	if penalties == nil {
		penalties = DefaultPenalties
	}
	start := in.StartDate
	if start.IsZero() {
		start = time.Now()
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)

	principal := in.LoanAmount.Div(decimal.NewFromInt(int64(months)))
	balance := in.LoanAmount
	monthlyDivisor := hundred.Mul(decimal.NewFromInt(monthsPerYear))
	for i := 1; i <= months; i++ {
		rate := rateForMonth(in.Stages, in.FloatingRate, i)
		interest := balance.Mul(rate).Div(monthlyDivisor)
		penalty := decimal.Zero
		if year := (i - 1) / monthsPerYear; year < len(penalties) {
			penalty = penalties[year]
		}
		due := start.AddDate(0, i-1, 0)
		row := ScheduleRow{
			Month:          i,
			DueDate:        due,
			DaysInMonth:    due.AddDate(0, 1, -1).Day(),
			OpeningBalance: balance.Round(0),
			AnnualRate:     rate,
			Principal:      principal.Round(0),
			Interest:       interest.Round(0),
			Payment:        principal.Add(interest).Round(0),
			ClosingBalance: clampZero(balance.Sub(principal)).Round(0),
			PenaltyPercent: penalty,
			SettlementFee:  percentOf(balance, penalty).Round(0),
		}
		out.Rows = append(out.Rows, row)
		out.TotalInterest = out.TotalInterest.Add(interest)
		balance = balance.Sub(principal)
	}
	out.TotalInterest = out.TotalInterest.Round(0)
	out.TotalPaid = in.LoanAmount.Add(out.TotalInterest)
	out.FirstMonthPayment = out.Rows[0].Payment
	return out
}

func rateForMonth(stages []RateStage, floating decimal.Decimal, month int) decimal.Decimal {
	if len(stages) > maxRateStages {
		stages = stages[:maxRateStages]
	}
	elapsed := 0
	for _, s := range stages {
		if s.Months <= 0 {
			continue
		}
		elapsed += s.Months
		if month <= elapsed {
			return s.AnnualRatePercent
		}
	}
	return floating
}

var (
	yearsPattern  = regexp.MustCompile(`(?i)(\d+)\s*(năm|years?|yrs?)`)
	monthsPattern = regexp.MustCompile(`(?i)(\d+)\s*(tháng|months?)`)
)

// PackageDurationMonths reads the fixed-rate period from a package name such
// as "Ưu đãi 2 năm" or "18 tháng". Unrecognised names default to 12 months.
func PackageDurationMonths(name string) int {
	if m := yearsPattern.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n * monthsPerYear
		}
	}
	if m := monthsPattern.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return monthsPerYear
}
