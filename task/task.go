// Package task implements the task manager: lifecycle, in-process
// concurrency, and indexing by task and by conversation context.
package task

import (
	"encoding/json"

	"github.com/agentweave/a2a/protocol"
)

// ExtractInput applies the bit-exact input extraction policy of §4.D: the
// wire carries a message whose content is an encoded input, and callers on
// either side of the wire may encode it as JSON.stringify(obj) or as a bare
// string.
func ExtractInput(content protocol.MessageContent) any {
	if content.Text != "" {
		var parsed any
		if err := json.Unmarshal([]byte(content.Text), &parsed); err == nil {
			return parsed
		}
		return content.Text
	}
	if len(content.Parts) > 0 && content.Parts[0].Text != "" {
		return content.Parts[0].Text
	}

	data, err := json.Marshal(content)
	if err != nil {
		return content
	}
	var out any
	if json.Unmarshal(data, &out) != nil {
		return content
	}
	return out
}
