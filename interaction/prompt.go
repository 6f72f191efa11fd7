package interaction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/morganhein/modeshell/schema"
)

const promptDelay = time.Duration(300) * time.Millisecond

// ResolveBasePrompt reads the current prompt, strips its terminator and stores the
// dialect-normalized result as the session's base prompt. It always reads the live
// device, the previous base prompt is not consulted. Empty terminators use the dialect
// defaults; pattern, when set, is read until instead of a timing-based read.
func (s *Session) ResolveBasePrompt(primary, alt string, delayFactor float64, pattern string) (string, error) {
	def := s.dialect.Defaults()
	if primary == "" {
		primary = def.PrimaryTerminator
	}
	if alt == "" {
		alt = def.AltTerminator
	}
	prompt, err := s.findPrompt(delayFactor, pattern)
	if err != nil {
		return "", err
	}
	switch {
	case alt != "" && strings.HasSuffix(prompt, alt):
		prompt = strings.TrimSuffix(prompt, alt)
	case primary != "" && strings.HasSuffix(prompt, primary):
		prompt = strings.TrimSuffix(prompt, primary)
	default:
		return "", fmt.Errorf("router prompt not found: %q", prompt)
	}
	s.basePrompt = s.dialect.NormalizePrompt(prompt)
	log.Debugf("Base prompt set to %q.", s.basePrompt)
	return s.basePrompt, nil
}

// findPrompt sends a return and takes the last line the device answers with.
func (s *Session) findPrompt(delayFactor float64, pattern string) (string, error) {
	if delayFactor <= 0 {
		delayFactor = 1
	}
	delay := time.Duration(float64(promptDelay) * delayFactor)

	var expectation *regexp.Regexp
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return "", err
		}
		expectation = re
	}

	var output string
	for attempt := 1; attempt <= 2; attempt++ {
		if _, err := s.Write("", true); err != nil {
			return "", err
		}
		var out string
		var err error
		if expectation != nil {
			out, err = s.Expect(expectation, s.Timeout())
		} else {
			out, err = s.ReadFor(delay * time.Duration(attempt))
		}
		output += out
		if err != nil {
			return "", err
		}
		if prompt := lastLine(out); prompt != "" {
			return prompt, nil
		}
	}
	return "", &schema.TimeoutError{Timeout: delay, Output: output}
}
