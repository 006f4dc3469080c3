package model

import "strings"

type Provider string

const (
	ProviderOnbuka Provider = "onbuka"
	ProviderEIMS1  Provider = "eims_1"
	ProviderEIMS2  Provider = "eims_2"
	ProviderEIMS3  Provider = "eims_3"
	ProviderSMPP   Provider = "smpp"
)

func (p Provider) String() string { return string(p) }

func (p Provider) Valid() bool {
	switch p {
	case ProviderOnbuka, ProviderEIMS1, ProviderEIMS2, ProviderEIMS3, ProviderSMPP:
		return true
	}
	return false
}

// ParseProvider normalizes input; empty => ("", true) so callers can fall
// back to the configured default carrier.
func ParseProvider(s string) (Provider, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	p := Provider(s)
	return p, p.Valid()
}
