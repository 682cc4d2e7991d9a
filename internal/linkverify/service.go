// Package linkverify checks that the links of rendered gallery pages point
// at files that exist in the destination.
package linkverify

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
)

// BrokenLink is an internal link whose target does not exist.
type BrokenLink struct {
	Page   string `json:"page"`
	URL    string `json:"url"`
	Tag    string `json:"tag"`
	Target string `json:"target"`
}

// Report is the outcome of checking a site.
type Report struct {
	Pages   int          `json:"pages"`
	Links   int          `json:"links"`
	Broken  []BrokenLink `json:"broken,omitempty"`
	Skipped int          `json:"skipped"`
}

// CheckSite parses every page with extension ext in the root of dest and
// reports internal href/src targets that are missing below dest.
func CheckSite(ctx context.Context, dest, ext string) (*Report, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read destination").
			WithContext("dir", dest).
			Build()
	}
	suffix := "." + strings.TrimPrefix(ext, ".")

	report := &Report{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		links, err := ExtractLinks(filepath.Join(dest, e.Name()))
		if err != nil {
			return report, err
		}
		report.Pages++
		for _, link := range links {
			if !ShouldVerifyLink(link) {
				report.Skipped++
				continue
			}
			report.Links++
			target, ok := resolve(link.URL)
			if !ok {
				continue
			}
			if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(target))); err != nil {
				report.Broken = append(report.Broken, BrokenLink{
					Page:   e.Name(),
					URL:    link.URL,
					Tag:    link.Tag,
					Target: target,
				})
				slog.Debug("Broken link", logfields.Page(e.Name()), slog.String("url", link.URL))
			}
		}
	}
	sort.SliceStable(report.Broken, func(i, j int) bool { return report.Broken[i].Page < report.Broken[j].Page })
	return report, nil
}

// resolve turns a page-relative link into a dest-relative file path.
// Links escaping the destination are not resolved.
func resolve(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return "", false
	}
	p := path.Clean(strings.TrimPrefix(u.Path, "/"))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}
