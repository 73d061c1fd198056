// Package commission splits line revenue between the platform and sourcing agents.
package commission

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced order line with the commission metadata snapshotted from the catalog.
type Line struct {
	UnitPrice      decimal.Decimal
	Quantity       int
	CommissionRate decimal.Decimal
	Owner          types.PartyRef
	// AgentRate overrides the default sourcing agent rate when set.
	AgentRate *decimal.Decimal
}

// Revenue returns price × quantity.
func (l Line) Revenue() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Share is the settlement amount attributable to one payee.
type Share struct {
	Payee   types.PartyRef
	Revenue decimal.Decimal
	Amount  decimal.Decimal
}

// Breakdown is the result of a commission calculation, rounded to cents.
type Breakdown struct {
	Subtotal        decimal.Decimal
	Commission      decimal.Decimal
	AgentCommission decimal.Decimal
	Shares          []Share
}

// Calculator computes commission splits. The zero value uses a 0% default agent rate.
type Calculator struct {
	defaultAgentRate decimal.Decimal
}

// NewCalculator builds a calculator with the fallback sourcing agent rate in percent.
func NewCalculator(defaultAgentRate decimal.Decimal) Calculator {
	return Calculator{defaultAgentRate: defaultAgentRate}
}

// AgentRateFor returns the rate applied to a sourcing agent line.
func (c Calculator) AgentRateFor(line Line) decimal.Decimal {
	if line.AgentRate != nil {
		return *line.AgentRate
	}
	return c.defaultAgentRate
}

// Calculate accumulates platform and sourcing agent commission over lines.
// Supplier shares carry the platform commission on their lines; agent shares
// carry the agent commission on theirs.
func (c Calculator) Calculate(lines []Line) Breakdown {
	subtotal := decimal.Zero
	platform := decimal.Zero
	agent := decimal.Zero

	type acc struct {
		revenue decimal.Decimal
		amount  decimal.Decimal
	}
	byPayee := map[types.PartyRef]*acc{}
	order := []types.PartyRef{}

	for _, line := range lines {
		revenue := line.Revenue()
		subtotal = subtotal.Add(revenue)
		lineCommission := revenue.Mul(line.CommissionRate).Div(hundred)
		platform = platform.Add(lineCommission)

		var shareAmount decimal.Decimal
		switch {
		case line.Owner.IsSourcingAgent():
			agentCommission := revenue.Mul(c.AgentRateFor(line)).Div(hundred)
			agent = agent.Add(agentCommission)
			shareAmount = agentCommission
		case line.Owner.IsSupplier():
			shareAmount = lineCommission
		default:
			continue
		}

		entry, ok := byPayee[line.Owner]
		if !ok {
			entry = &acc{revenue: decimal.Zero, amount: decimal.Zero}
			byPayee[line.Owner] = entry
			order = append(order, line.Owner)
		}
		entry.revenue = entry.revenue.Add(revenue)
		entry.amount = entry.amount.Add(shareAmount)
	}

	shares := make([]Share, 0, len(order))
	for _, payee := range order {
		entry := byPayee[payee]
		shares = append(shares, Share{
			Payee:   payee,
			Revenue: entry.revenue.Round(2),
			Amount:  entry.amount.Round(2),
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Payee.Kind != shares[j].Payee.Kind {
			return shares[i].Payee.Kind == enums.PartyKindSupplier
		}
		return false
	})

	return Breakdown{
		Subtotal:        subtotal.Round(2),
		Commission:      platform.Round(2),
		AgentCommission: agent.Round(2),
		Shares:          shares,
	}
}

// Payout returns total minus both commissions. Negative results are returned as is.
func Payout(total decimal.Decimal, b Breakdown) decimal.Decimal {
	return total.Sub(b.Commission).Sub(b.AgentCommission).Round(2)
}
