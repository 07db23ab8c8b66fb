package model

// Session identifies an authenticated user against the campus-pay remote.
// It is resolved once from the default-login profile and never mutated; a
// fresh Session is created per refresh cycle instead of refreshing in place.
type Session struct {
	Token    string
	MemberID string
	Profile  map[string]any
}
