// Package security sanitizes user supplied market metadata before it is
// stored or rendered.
package security

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
)

const (
	MaxTitleLength       = 160
	MaxDescriptionLength = 2000
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid market input")

// MarketInput is the raw display metadata of a market.
type MarketInput struct {
	Title       string
	Description string
}

// SanitizedMarketInput holds plain-text title and HTML description safe to
// serve to browsers.
type SanitizedMarketInput struct {
	Title       string
	Description string
}

// SecurityService holds the sanitizing policies.
type SecurityService struct {
	strict   *bluemonday.Policy
	ugc      *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewSecurityService creates a service with a strict policy for titles and a
// user generated content policy for rendered descriptions.
func NewSecurityService() *SecurityService {
	return &SecurityService{
		strict:   bluemonday.StrictPolicy(),
		ugc:      bluemonday.UGCPolicy(),
		markdown: goldmark.New(),
	}
}

// ValidateAndSanitizeMarketInput strips markup from the title and renders
// the markdown description into sanitized HTML.
func (s *SecurityService) ValidateAndSanitizeMarketInput(in MarketInput) (SanitizedMarketInput, error) {
	title := strings.TrimSpace(s.strict.Sanitize(in.Title))
	if title == "" {
		return SanitizedMarketInput{}, errors.Wrap(ErrInvalidInput, "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return SanitizedMarketInput{}, errors.Wrapf(ErrInvalidInput, "title must be at most %d characters", MaxTitleLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return SanitizedMarketInput{}, errors.Wrapf(ErrInvalidInput, "description must be at most %d characters", MaxDescriptionLength)
	}

	desc, err := s.RenderMarkdown(in.Description)
	if err != nil {
		return SanitizedMarketInput{}, err
	}
	return SanitizedMarketInput{Title: title, Description: desc}, nil
}

// RenderMarkdown converts markdown to HTML and sanitizes the result.
func (s *SecurityService) RenderMarkdown(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return strings.TrimSpace(s.ugc.Sanitize(buf.String())), nil
}
