package billing

import "fmt"

// OwesState classifies a client balance.
type OwesState int

const (
	PaidInFull OwesState = iota
	AmountDue
	Credit
)

func (s OwesState) String() string {
	switch s {
	case AmountDue:
		return "Amount Due"
	case Credit:
		return "You're Amazing!"
	}
	return "Paid in Full"
}

// StateOf classifies balance: positive is due, negative is credit.
func StateOf(balance Amount) OwesState {
	switch {
	case balance > 0:
		return AmountDue
	case balance < 0:
		return Credit
	}
	return PaidInFull
}

// OwesMessage is the text shown to the client for balance.
func OwesMessage(balance Amount) string {
	switch StateOf(balance) {
	case AmountDue:
		return fmt.Sprintf("You currently have an amount due of $%s. Please try to send payment as soon as you can so we can keep doing great work together.", balance)
	case Credit:
		return fmt.Sprintf("You don't owe us anything, in fact we owe you work for $%s.", balance.Abs())
	}
	return "You currently have no balance and owe us nothing. Thanks so much."
}
