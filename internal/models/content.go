package models

// Origin tells where a piece of content came from
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginFallback  Origin = "fallback"
)

// GeneratedContent is the text produced for one cycle
type GeneratedContent struct {
	Text   string `json:"text"`
	Origin Origin `json:"origin"`
}
