// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package turn

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// PreviewLength is how much of a reply body status lines show.
const PreviewLength = 96

// Reply is the orchestrator's answer to one turn.
type Reply struct {
	// AudioURL is the synthesized reply to play, possibly relative to
	// the orchestrator base address. Empty means nothing to play.
	AudioURL string

	// Text is the reply text, when the orchestrator sent one.
	Text string

	// Transcript is what the orchestrator heard.
	Transcript string

	// Clarifying is set when the orchestrator is asking a follow-up
	// question instead of acting.
	Clarifying bool

	// Raw is the complete response body.
	Raw json.RawMessage
}

type replyBody struct {
	AudioURL     string `json:"audio_url"`
	TTSURL       string `json:"tts_url"`
	Reply        string `json:"reply"`
	ResponseText string `json:"response_text"`
	Text         string `json:"text"`
	Transcript   string `json:"transcript"`
	Clarifying   bool   `json:"clarifying"`
}

// ParseReply decodes a turn response body. Unknown fields are ignored.
func ParseReply(body []byte) (Reply, error) {
	var decoded replyBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Reply{}, fmt.Errorf("decoding turn reply: %w", err)
	}
	return Reply{
		AudioURL:   firstNonBlank(decoded.AudioURL, decoded.TTSURL),
		Text:       firstNonBlank(decoded.Reply, decoded.ResponseText, decoded.Text),
		Transcript: strings.TrimSpace(decoded.Transcript),
		Clarifying: decoded.Clarifying,
		Raw:        json.RawMessage(body),
	}, nil
}

// HasAudio reports whether the reply names something to play.
func (r Reply) HasAudio() bool {
	return r.AudioURL != ""
}

// ResolveAudioURL resolves AudioURL against the base address, so a
// reply of "/tts/abc.wav" becomes an absolute URL on the orchestrator.
func (r Reply) ResolveAudioURL(base *url.URL) (string, error) {
	if r.AudioURL == "" {
		return "", nil
	}
	reference, err := url.Parse(r.AudioURL)
	if err != nil {
		return "", fmt.Errorf("reply audio URL: %w", err)
	}
	if base == nil || reference.IsAbs() {
		return reference.String(), nil
	}
	return base.ResolveReference(reference).String(), nil
}

// Preview returns at most PreviewLength bytes of the raw body, cut on
// a rune boundary.
func (r Reply) Preview() string {
	raw := strings.TrimSpace(string(r.Raw))
	if len(raw) <= PreviewLength {
		return raw
	}
	cut := PreviewLength
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
