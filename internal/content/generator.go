package content

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/social-autoposter/internal/ai"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/pkg/logger"
)

const ellipsis = "..."

// DefaultFallback is used when no fallback pool is configured
var DefaultFallback = []string{
	"Tip: reach for CSS grid when you need two dimensions and flexbox when you need one. Mixing both is fine.",
	"Before adding a dependency, read its issue tracker for ten minutes. It tells you more than the README.",
	"Cache-Control: no-cache does not mean do not cache. It means revalidate first. no-store is the one you want for secrets.",
	"Your loading spinner is a feature. Skeleton screens that match the final layout make a slow page feel fast.",
	"Write the error message you would want to read at 3am. Include what failed, with which input, and what to try next.",
	"Lighthouse scores are a compass, not a destination. Measure real users with field data before optimizing.",
}

// Inspiration supplies an optional headline to steer the prompt
type Inspiration interface {
	Headline(ctx context.Context) (string, error)
}

// Config holds generator settings
type Config struct {
	Tags      string
	MaxLength int
	MaxTokens int
	Fallback  []string
}

// Generator produces post text from a provider, degrading to a fixed pool
type Generator struct {
	provider    ai.Provider
	inspiration Inspiration
	cfg         Config
	pick        func(n int) int
	log         *logger.Logger
}

// NewGenerator creates a generator. provider and inspiration may be nil.
func NewGenerator(provider ai.Provider, inspiration Inspiration, cfg Config, log *logger.Logger) *Generator {
	if len(cfg.Fallback) == 0 {
		cfg.Fallback = DefaultFallback
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 280
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	return &Generator{
		provider:    provider,
		inspiration: inspiration,
		cfg:         cfg,
		pick:        rand.IntN,
		log:         log.WithComponent("generator"),
	}
}

// HasProvider reports whether live generation is configured
func (g *Generator) HasProvider() bool {
	return g.provider != nil
}

// Generate returns the text for one cycle. It never fails: provider errors fall back to the pool.
func (g *Generator) Generate(ctx context.Context) models.GeneratedContent {
	if g.provider == nil {
		return g.fallback()
	}

	prompt := ai.BuildPostPrompt(g.cfg.MaxLength, g.cfg.Tags, g.headline(ctx))

	raw, err := g.provider.Generate(ctx, prompt, g.cfg.MaxTokens)
	if err != nil {
		event := g.log.Warn().Err(err).Str("provider", g.provider.Name())
		if errors.Is(err, ai.ErrQuotaExceeded) {
			event = event.Bool("quota_exceeded", true)
		}
		event.Msg("Generation failed, using fallback content")
		return g.fallback()
	}

	body := StripTags(raw, g.cfg.Tags)
	if body == "" {
		g.log.Warn().Str("provider", g.provider.Name()).Msg("Generated text is empty after cleanup, using fallback content")
		return g.fallback()
	}

	text := Finalize(body, g.cfg.Tags, g.cfg.MaxLength)
	g.log.Info().
		Str("provider", g.provider.Name()).
		Int("length", utf8.RuneCountInString(text)).
		Msg("Content generated")

	return models.GeneratedContent{Text: text, Origin: models.OriginGenerated}
}

func (g *Generator) headline(ctx context.Context) string {
	if g.inspiration == nil {
		return ""
	}
	h, err := g.inspiration.Headline(ctx)
	if err != nil {
		g.log.Debug().Err(err).Msg("No headline for inspiration")
		return ""
	}
	return h
}

func (g *Generator) fallback() models.GeneratedContent {
	raw := g.cfg.Fallback[g.pick(len(g.cfg.Fallback))]
	text := Finalize(StripTags(raw, g.cfg.Tags), g.cfg.Tags, g.cfg.MaxLength)
	g.log.Info().Int("length", utf8.RuneCountInString(text)).Msg("Using fallback content")
	return models.GeneratedContent{Text: text, Origin: models.OriginFallback}
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	extraNewlines   = regexp.MustCompile(`\n{3,}`)
)

// StripTags removes every occurrence of each hashtag in tags, case-insensitively,
// and normalizes the remaining whitespace.
func StripTags(text, tags string) string {
	for _, tag := range strings.Fields(tags) {
		text = tagPattern(tag).ReplaceAllString(text, "")
	}
	text = strings.Trim(strings.TrimSpace(text), `"`)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = extraNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func tagPattern(tag string) *regexp.Regexp {
	expr := `(?i)` + regexp.QuoteMeta(tag)
	if last, _ := utf8.DecodeLastRuneInString(tag); unicode.IsLetter(last) || unicode.IsDigit(last) || last == '_' {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

// Finalize appends the tags once to body and enforces maxLength runes. When too long,
// the body is cut so that body + "..." + tags is exactly maxLength; tags are never cut.
func Finalize(body, tags string, maxLength int) string {
	suffix := ""
	if tags = strings.TrimSpace(tags); tags != "" {
		suffix = " " + tags
	}

	text := body + suffix
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	keep := maxLength - utf8.RuneCountInString(suffix) - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(body)
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep]) + ellipsis + suffix
}
