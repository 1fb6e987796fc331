package protocol

import (
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"
)

type markedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

func (m markedString) markdown() string {
	if m.Language == "" {
		return m.Value
	}
	return "```" + m.Language + "\n" + m.Value + "\n```"
}

// UnmarshalJSON accepts MarkupContent as well as the deprecated MarkedString
// and MarkedString[] forms still sent by some servers.
func (m *MarkupContent) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Errorf("decoding marked string: %w", err)
		}
		*m = MarkupContent{Kind: Markdown, Value: s}
		return nil
	case strings.HasPrefix(trimmed, "["):
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return errors.Errorf("decoding marked string list: %w", err)
		}
		values := make([]string, 0, len(parts))
		for _, part := range parts {
			var inner MarkupContent
			if err := inner.UnmarshalJSON(part); err != nil {
				return err
			}
			values = append(values, inner.Value)
		}
		*m = MarkupContent{Kind: Markdown, Value: strings.Join(values, "\n\n")}
		return nil
	}

	var probe struct {
		Kind     MarkupKind `json:"kind"`
		Language string     `json:"language"`
		Value    string     `json:"value"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return errors.Errorf("decoding markup content: %w", err)
	}
	if probe.Kind == "" {
		*m = MarkupContent{Kind: Markdown, Value: markedString{Language: probe.Language, Value: probe.Value}.markdown()}
		return nil
	}
	*m = MarkupContent{Kind: probe.Kind, Value: probe.Value}
	return nil
}

// DecodeLocations normalizes a definition result (Location, Location[] or
// LocationLink[]) into plain locations.
func DecodeLocations(data json.RawMessage) ([]Location, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if !strings.HasPrefix(trimmed, "[") {
		var loc Location
		if err := json.Unmarshal(data, &loc); err != nil {
			return nil, errors.Errorf("decoding location: %w", err)
		}
		return []Location{loc}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Errorf("decoding location list: %w", err)
	}

	locs := make([]Location, 0, len(raw))
	for _, item := range raw {
		var probe struct {
			URI       DocumentURI `json:"uri"`
			TargetURI DocumentURI `json:"targetUri"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			return nil, errors.Errorf("decoding location entry: %w", err)
		}
		if probe.TargetURI != "" {
			var link LocationLink
			if err := json.Unmarshal(item, &link); err != nil {
				return nil, errors.Errorf("decoding location link: %w", err)
			}
			locs = append(locs, Location{URI: link.TargetURI, Range: link.TargetSelectionRange})
			continue
		}
		var loc Location
		if err := json.Unmarshal(item, &loc); err != nil {
			return nil, errors.Errorf("decoding location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// DecodeCompletion normalizes a completion result (CompletionItem[] or
// CompletionList) into a list.
func DecodeCompletion(data json.RawMessage) (*CompletionList, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []CompletionItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, errors.Errorf("decoding completion items: %w", err)
		}
		return &CompletionList{Items: items}, nil
	}

	var list CompletionList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.Errorf("decoding completion list: %w", err)
	}
	return &list, nil
}
