package trustyagents

import (
	"context"

	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
)

// PexpectAgent is a passthrough at the agent layer: interactive CLI
// scripts it would otherwise drive are executed by the pytest agent
// as ordinary collected tests (§4.5 table: "always pass at agent
// layer"). It exists only so trusty_agents lists naming pexpect_agent
// validate and enumerate in the genesis catalog.
type PexpectAgent struct{}

func (PexpectAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	return protoblock.Result{
		Success:   true,
		AgentType: "pexpect_agent",
		Summary:   "pexpect scripts are executed by the pytest agent; no separate check performed",
	}, nil
}

// RegisterPexpect adds the pexpect_agent registration to reg.
func RegisterPexpect(reg *trusty.Registry) {
	reg.Register(trusty.Registration{
		Name:        "pexpect_agent",
		Description: "Passthrough: interactive CLI test scripts run as part of the pytest agent's collected tests.",
		Factory:     func() trusty.Agent { return PexpectAgent{} },
	})
}
