package util

import (
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

const maxCitationLen = 200

// StreamCitationParser splits a streamed answer into text and [[node id]]
// citations. A citation may arrive split across chunks; text that is not a
// citation passes through unchanged.
type StreamCitationParser struct {
	buffer string
}

func (p *StreamCitationParser) Consume(
	chunk string,
	onContent func(string) error,
	onCitation func(string) error,
) error {
	p.buffer += chunk

	emitContent := func(content string) error {
		if content == "" {
			return nil
		}
		return onContent(content)
	}

	for {
		start := strings.Index(p.buffer, "[[")
		if start == -1 {
			if strings.HasSuffix(p.buffer, "[") {
				if err := emitContent(p.buffer[:len(p.buffer)-1]); err != nil {
					return err
				}
				p.buffer = "["
				return nil
			}

			if err := emitContent(p.buffer); err != nil {
				return err
			}
			p.buffer = ""
			return nil
		}

		if start > 0 {
			if err := emitContent(p.buffer[:start]); err != nil {
				return err
			}
			p.buffer = p.buffer[start:]
		}

		end := strings.Index(p.buffer[2:], "]]")
		if end == -1 {
			return nil
		}
		end += 2

		citationID := p.buffer[2:end]
		if isCitationID(citationID) {
			if err := onCitation(citationID); err != nil {
				return err
			}
			p.buffer = p.buffer[end+2:]
			continue
		}

		if err := emitContent(p.buffer[:1]); err != nil {
			return err
		}
		p.buffer = p.buffer[1:]
	}
}

func (p *StreamCitationParser) Flush(onContent func(string) error) error {
	if p.buffer == "" {
		return nil
	}

	if err := onContent(p.buffer); err != nil {
		return err
	}

	p.buffer = ""
	return nil
}

// isCitationID accepts node ids of the form <NodeType>:<key>.
func isCitationID(id string) bool {
	if len(id) > maxCitationLen || strings.ContainsAny(id, "[]\n") {
		return false
	}
	nodeType, key, ok := strings.Cut(id, ":")
	return ok && strings.TrimSpace(key) != "" && common.NodeType(nodeType).Valid()
}
