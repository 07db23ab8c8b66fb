package model

// RedemptionResult is the remote's answer to a code-status query. All
// fields mirror the wire format. SettledAmount (monDealCur on the wire) is
// the discriminator: the remote omits it until the code has been charged.
type RedemptionResult struct {
	UserCard      string  `json:"userCard"`
	RealName      string  `json:"realName"`
	DealTime      string  `json:"dealTime"`
	RecFlag       string  `json:"recflag"`
	PayTypeName   string  `json:"payTypeName"`
	SettledAmount *string `json:"monDealCur"`
}

// Settled reports whether the code has been redeemed for a concrete amount.
func (r RedemptionResult) Settled() bool {
	return r.SettledAmount != nil && *r.SettledAmount != ""
}
