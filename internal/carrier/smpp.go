package carrier

import (
	"context"

	"github.com/smsflow/smsflow/internal/model"
)

// SMPP is the session-oriented binary-protocol carrier. This deployment
// mode holds no persistent SMPP session, so the adapter fails fast with
// the shared SendResult failure shape instead of attempting a bind.
// Session establishment and PDU handling are a documented gap, not
// something this adapter approximates.
type SMPP struct{}

func NewSMPP() *SMPP { return &SMPP{} }

func (s *SMPP) Name() model.Provider { return model.ProviderSMPP }

func (s *SMPP) Send(_ context.Context, _ model.ProviderSettings, _ []string, _, _ string) SendResult {
	return failure("SMPP transport unavailable: no persistent session in this deployment")
}
