package xfb

import "encoding/json"

// Envelope is the remote's uniform response wrapper. statusCode 0 means
// success; anything else is a declared application error with message as
// human-readable text. Data may be absent or null on success for endpoints
// with no payload.
type Envelope[T any] struct {
	StatusCode int     `json:"statusCode"`
	Message    *string `json:"message"`
	Data       *T      `json:"data"`
}

// PagedEnvelope is the feed-query variant: the row set sits next to the
// status fields instead of under data.
type PagedEnvelope[T any] struct {
	StatusCode int     `json:"statusCode"`
	Message    *string `json:"message"`
	Total      int     `json:"total"`
	Rows       []T     `json:"rows"`
}

// message flattens the optional envelope message for error construction.
func message(m *string) string {
	if m == nil {
		return ""
	}
	return *m
}

// DecodeEnvelope parses body into an Envelope. Malformed JSON or a missing
// statusCode field is a *DecodeError; a non-zero statusCode is a *APIError.
// Payload access is rejected on failure by never returning the envelope.
func DecodeEnvelope[T any](body []byte) (*Envelope[T], error) {
	var probe struct {
		StatusCode *int    `json:"statusCode"`
		Message    *string `json:"message"`
		Data       *T      `json:"data"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &DecodeError{Detail: "malformed body", Err: err}
	}
	if probe.StatusCode == nil {
		return nil, &DecodeError{Detail: "statusCode missing"}
	}
	if *probe.StatusCode != 0 {
		return nil, &APIError{Code: *probe.StatusCode, Message: message(probe.Message)}
	}
	return &Envelope[T]{StatusCode: *probe.StatusCode, Message: probe.Message, Data: probe.Data}, nil
}

// DecodePagedEnvelope parses body into a PagedEnvelope under the same
// classification rules as DecodeEnvelope.
func DecodePagedEnvelope[T any](body []byte) (*PagedEnvelope[T], error) {
	var probe struct {
		StatusCode *int    `json:"statusCode"`
		Message    *string `json:"message"`
		Total      int     `json:"total"`
		Rows       []T     `json:"rows"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &DecodeError{Detail: "malformed body", Err: err}
	}
	if probe.StatusCode == nil {
		return nil, &DecodeError{Detail: "statusCode missing"}
	}
	if *probe.StatusCode != 0 {
		return nil, &APIError{Code: *probe.StatusCode, Message: message(probe.Message)}
	}
	return &PagedEnvelope[T]{
		StatusCode: *probe.StatusCode,
		Message:    probe.Message,
		Total:      probe.Total,
		Rows:       probe.Rows,
	}, nil
}
