package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyNodeID     = "node_id"
	KeySlug       = "slug"
	KeyCategory   = "category"
	KeySource     = "source"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyPages      = "pages"
	KeyRedirects  = "redirects"
	KeyJobName    = "job_name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func NodeID(id string) slog.Attr      { return slog.String(KeyNodeID, id) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Source(name string) slog.Attr    { return slog.String(KeySource, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Pages(n int) slog.Attr           { return slog.Int(KeyPages, n) }
func Redirects(n int) slog.Attr       { return slog.Int(KeyRedirects, n) }
func JobName(n string) slog.Attr      { return slog.String(KeyJobName, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
