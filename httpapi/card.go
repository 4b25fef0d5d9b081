package httpapi

import (
	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/schema"
	"github.com/agentweave/a2a/skill"
)

// buildCard renders the live registry contents into a discovery document.
func buildCard(reg *skill.Registry, cfg CardConfig) protocol.AgentCard {
	skills := reg.List()
	summaries := make([]protocol.SkillSummary, 0, len(skills))
	streaming := false
	for _, sk := range skills {
		if sk.Streaming() {
			streaming = true
		}
		summaries = append(summaries, protocol.SkillSummary{
			ID:           sk.Key,
			Description:  sk.Description,
			InputModes:   sk.InputModes,
			OutputModes:  sk.OutputModes,
			Streaming:    sk.Streaming(),
			InputSchema:  schema.ToPortable(sk.InputSchema),
			OutputSchema: schema.ToPortable(sk.OutputSchema),
			Pricing:      sk.Pricing,
		})
	}

	return protocol.AgentCard{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		URL:         cfg.URL,
		Skills:      summaries,
		Capabilities: protocol.Capabilities{
			Streaming:         streaming,
			TaskSubscriptions: true,
		},
		Extensions:         cfg.Extensions,
		DefaultInputModes:  cfg.DefaultInputModes,
		DefaultOutputModes: cfg.DefaultOutputModes,
	}
}
