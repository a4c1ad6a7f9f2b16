package coach

import (
	"strings"
	"unicode"
)

// DebtType is a best-effort category derived from a debt's name.
type DebtType string

// Debt categories.
const (
	CreditCard     DebtType = "credit_card"
	AutoLoan       DebtType = "auto_loan"
	StudentLoan    DebtType = "student_loan"
	Mortgage       DebtType = "mortgage"
	PersonalLoan   DebtType = "personal_loan"
	Overdraft      DebtType = "overdraft"
	BuyNowPayLater DebtType = "buy_now_pay_later"
	Other          DebtType = "other"
)

// classifierRules are checked in order and the first match wins, so specific
// products come before the generic "loan". Single-word keywords match whole
// words (or their plural); phrases match anywhere in the normalised name.
var classifierRules = []struct {
	debtType DebtType
	keywords []string
}{
	{Overdraft, []string{"overdraft"}},
	{BuyNowPayLater, []string{"paypal", "klarna", "clearpay", "afterpay", "laybuy", "bnpl", "pay later", "pay in 3"}},
	{Mortgage, []string{"mortgage", "home loan"}},
	{StudentLoan, []string{"student", "tuition"}},
	{AutoLoan, []string{"car", "auto", "vehicle", "motor", "hire purchase"}},
	{CreditCard, []string{"card", "credit card", "barclaycard", "clubcard", "mbna", "amex", "american express", "visa", "mastercard", "capital one", "aqua", "vanquis"}},
	{PersonalLoan, []string{"loan"}},
}

// Classify categorises a debt by keywords in its name.
func Classify(name string) DebtType {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	normalised := " " + strings.Join(words, " ") + " "

	for _, rule := range classifierRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(keyword, " ") {
				if strings.Contains(normalised, " "+keyword+" ") {
					return rule.debtType
				}
				continue
			}
			for _, w := range words {
				if w == keyword || w == keyword+"s" {
					return rule.debtType
				}
			}
		}
	}
	return Other
}
