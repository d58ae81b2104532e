package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
	"github.com/louisbranch/payrollwatch/internal/payroll/marshal"
)

// Payment is one recorded payroll payment. Payments are deduplicated by the
// (TxHash, Token.Address) pair so replayed events never double-record.
type Payment struct {
	AccountAddress string          `json:"accountAddress"`
	Amount         marshal.Amount  `json:"amount"`
	Token          TokenRef        `json:"token"`
	TxHash         string          `json:"transactionHash"`
	Date           time.Time       `json:"date"`
	ExchangeRate   marshal.Amount  `json:"exchangeRate"`
	Exchanged      decimal.Decimal `json:"exchangedAmount"`
}

// PaymentFromEvent marshals a SendPayment payload into a payment record,
// resolving the token against the already-known metadata.
func PaymentFromEvent(payload event.SendPaymentPayload, token TokenRef, txHash string) (Payment, error) {
	amount, err := marshal.ParseAmount(payload.Amount)
	if err != nil {
		return Payment{}, err
	}
	rate, err := marshal.ParseAmount(payload.ExchangeRate)
	if err != nil {
		return Payment{}, err
	}

	payment := Payment{
		AccountAddress: payload.Employee,
		Amount:         amount,
		Token:          token,
		TxHash:         txHash,
		ExchangeRate:   rate,
	}
	if date := marshal.ParseEpochSeconds(payload.PaymentDate); date != nil {
		payment.Date = *date
	}
	if !rate.IsZero() {
		payment.Exchanged = amount.Decimal().DivRound(rate.Decimal(), 18)
	}
	return payment, nil
}
