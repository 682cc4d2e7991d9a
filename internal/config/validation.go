package config

import (
	"strings"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// Validate checks values that would otherwise fail deep inside a build.
func (c *Config) Validate() error {
	switch {
	case c.Thumbnail.Size < 1:
		return invalid("thumbnail.size must be positive")
	case c.Thumbnail.Quality < 1 || c.Thumbnail.Quality > 100:
		return invalid("thumbnail.quality must be between 1 and 100")
	case c.FlushInterval < 0:
		return invalid("flush_interval must not be negative")
	case c.Watch.Debounce < 0:
		return invalid("watch.debounce must not be negative")
	case c.Schedule.Interval < 0:
		return invalid("schedule.interval must not be negative")
	case c.Events.Retention < 0:
		return invalid("events.retention must not be negative")
	}

	seen := map[string]string{}
	for kind, list := range map[string][]string{
		"image": c.Formats.Image,
		"video": c.Formats.Video,
		"music": c.Formats.Music,
		"misc":  c.Formats.Misc,
	} {
		for _, ext := range normalizeExts(list) {
			if ext == "." {
				return invalid("formats." + kind + " contains an empty extension")
			}
			if other, ok := seen[ext]; ok && other != kind {
				return invalid("extension " + ext + " is listed as both " + other + " and " + kind)
			}
			seen[ext] = kind
		}
	}
	return nil
}

func invalid(msg string) error {
	return errors.ValidationError(msg).Build()
}

// normalizeExts lower-cases extensions and makes sure they start with a dot.
func normalizeExts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
