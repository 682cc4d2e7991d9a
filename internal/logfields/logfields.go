package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPage       = "page"
	KeyDir        = "dir"
	KeyAsset      = "asset"
	KeyTag        = "tag"
	KeyLine       = "line"
	KeyFormat     = "format"
	KeyCommand    = "command"
	KeyKind       = "kind"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func Asset(a string) slog.Attr        { return slog.String(KeyAsset, a) }
func Tag(t string) slog.Attr          { return slog.String(KeyTag, t) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Stage(s string) slog.Attr        { return slog.String(KeyStage, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
