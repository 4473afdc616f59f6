package topup

import (
	"fmt"
	"strings"
)

// PaymentDetails is the account a member pays into.
type PaymentDetails struct {
	Method        string `json:"method"`
	MethodName    string `json:"methodName"`
	AccountTitle  string `json:"accountTitle,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
}

func paymentDetails(m PaymentMethod, r Request) PaymentDetails {
	return PaymentDetails{
		Method:        m.Code,
		MethodName:    m.Name,
		AccountTitle:  m.AccountTitle,
		AccountNumber: m.AccountNumber,
		BankName:      m.BankName,
		Amount:        r.Amount.StringFixed(2),
		Currency:      r.Currency,
		Reference:     r.RequestNumber,
	}
}

// paymentInstructions renders the text shown after a request is created. A
// method's own instructions win; placeholders {amount}, {currency} and
// {reference} are filled in.
func paymentInstructions(m PaymentMethod, r Request) string {
	amount := r.Amount.StringFixed(2)
	if strings.TrimSpace(m.Instructions) != "" {
		return strings.NewReplacer(
			"{amount}", amount,
			"{currency}", r.Currency,
			"{reference}", r.RequestNumber,
		).Replace(m.Instructions)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pay %s %s via %s", amount, r.Currency, m.Name)
	if m.AccountNumber != "" {
		fmt.Fprintf(&b, " to account %s", m.AccountNumber)
		if m.AccountTitle != "" {
			fmt.Fprintf(&b, " (%s)", m.AccountTitle)
		}
		if m.BankName != "" {
			fmt.Fprintf(&b, " at %s", m.BankName)
		}
	}
	fmt.Fprintf(&b, " and quote %s as the payment reference.", r.RequestNumber)
	return b.String()
}
