package util_test

import (
	"testing"

	"github.com/smsflow/smsflow/internal/util"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 000-1234": "+15550001234",
		"0049 171 1234567":  "+491711234567",
		"  254712345678 ":   "254712345678",
		"+254712345678":     "+254712345678",
		"abc":               "",
		"":                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, util.NormalizePhone(in), "input %q", in)
	}
}

func TestSplitDestinations(t *testing.T) {
	got := util.SplitDestinations("+1 555 0001, 0049171 234, ,abc,+254712345678")
	require.Equal(t, []string{"+15550001", "+49171234", "+254712345678"}, got)
}
