package model

import (
	"fmt"
	"strconv"
)

// TransactionRecord is one posted transaction as returned by the remote
// feed. Field names follow the wire format; values are passed through
// verbatim, amounts stay decimal-as-string.
type TransactionRecord struct {
	Type            string `json:"type"`
	Time            string `json:"time"`
	DealTime        string `json:"dealtime"`
	MerchantAddress string `json:"address"`
	FeeName         string `json:"feeName"`
	SerialNo        string `json:"serialno"`
	Amount          string `json:"money"`
	BusinessName    string `json:"businessName"`
	BusinessNum     string `json:"businessNum"`
	FeeNum          string `json:"feeNum"`
	AccountName     string `json:"accName"`
	AccountNum      string `json:"accNum"`
	PersonCode      string `json:"perCode"`
	EWalletID       string `json:"eWalletId"`
	CardNo          string `json:"monCard"`
	BalanceAfter    string `json:"afterMon"`
	DiscountAmount  string `json:"concessionsMon"`
}

// Serial parses the record's serial number. The remote sends it as a
// numeric string.
func (t TransactionRecord) Serial() (int64, error) {
	n, err := strconv.ParseInt(t.SerialNo, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse serialno %q: %w", t.SerialNo, err)
	}
	return n, nil
}

// ShortDescription renders a one-line summary suitable for a notification
// body.
func (t TransactionRecord) ShortDescription() string {
	return fmt.Sprintf("%s %s ¥%s, balance ¥%s", t.MerchantAddress, t.FeeName, t.Amount, t.BalanceAfter)
}
