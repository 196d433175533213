// Package outcome enumera as classificações terminais de uma requisição ao gateway.
package outcome

type Code int

const (
	UnexpectedFailure Code = iota
	RateLimited
	MethodNotAllowed
	InvalidRequest
	MisconfiguredServer
	UpstreamRateLimited
	UpstreamError
	UpstreamSuccess
	// Overloaded: sem vaga para chamar o upstream (limite de concorrência ativo).
	Overloaded
)

var names = map[Code]string{
	UnexpectedFailure:   "unexpected_failure",
	RateLimited:         "rate_limited",
	MethodNotAllowed:    "method_not_allowed",
	InvalidRequest:      "invalid_request",
	MisconfiguredServer: "misconfigured_server",
	UpstreamRateLimited: "upstream_rate_limited",
	UpstreamError:       "upstream_error",
	UpstreamSuccess:     "upstream_success",
	Overloaded:          "overloaded",
}

// All lista todos os códigos, na ordem de declaração.
func All() []Code {
	return []Code{
		UnexpectedFailure, RateLimited, MethodNotAllowed, InvalidRequest, MisconfiguredServer,
		UpstreamRateLimited, UpstreamError, UpstreamSuccess, Overloaded,
	}
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}
