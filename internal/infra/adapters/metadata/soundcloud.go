package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

const soundCloudBase = "https://soundcloud.com"

// maxDepth ограничивает обход данных гидрации
const maxDepth = 10

var (
	ErrNotSoundCloud   = errors.New("not a soundcloud url")
	ErrNoTracks        = errors.New("no tracks found")
	ErrNotCollection   = errors.New("url points to a single track, not a profile or playlist")
	ErrBPMUnavailable  = errors.New("bpm is not published for this track")
	hydrationRe        = regexp.MustCompile(`(?s)window\.__sc_hydration\s*=\s*(\[.*?\]);\s*</script>`)
	fullHrefRe         = regexp.MustCompile(`href="https://soundcloud\.com/([^/"?#]+)/([^/"?#]+)"`)
	relativeHrefRe     = regexp.MustCompile(`href="/([^/"?#]+)/([^/"?#]+)"`)
	profilePages       = []string{"tracks", "popular-tracks", "albums", "sets", "playlists", "reposts"}
	reservedTrackSlugs = map[string]struct{}{
		"tracks": {}, "popular-tracks": {}, "albums": {}, "sets": {}, "playlists": {},
		"reposts": {}, "followers": {}, "following": {}, "likes": {}, "comments": {},
	}
)

// ScrapedTrack - трек, найденный на странице профиля или плейлиста
type ScrapedTrack struct {
	URL    string
	Title  string
	Artist string
}

// Scraper читает публичные страницы SoundCloud без client_id
type Scraper struct {
	client *http.Client
	base   string
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{client: &http.Client{Timeout: timeout}, base: soundCloudBase}
}

// WithBase направляет запросы на другой хост
func (s *Scraper) WithBase(base string) *Scraper {
	s.base = strings.TrimRight(base, "/")

	return s
}

// Collection возвращает треки профиля или плейлиста, не больше limit
func (s *Scraper) Collection(ctx context.Context, rawURL string, limit int) ([]ScrapedTrack, error) {
	path, err := soundCloudPath(rawURL)
	if err != nil {
		return nil, err
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	username := segments[0]

	switch {
	case len(segments) == 1:
		// профиль без раздела: берём вкладку треков
		path = "/" + username + "/tracks"
	case len(segments) == 2 && !slices.Contains(profilePages, segments[1]):
		return nil, ErrNotCollection
	}

	page, err := get(ctx, s.client, s.base+path, "text/html")
	if err != nil {
		return nil, fmt.Errorf("fetch soundcloud page: %w", err)
	}

	tracks := tracksFromHydration(page)
	if len(tracks) == 0 {
		tracks = tracksFromLinks(page, username, strings.Contains(path, "/sets/"))
	}
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	return tracks, nil
}

// AnalyzeBPM берёт темп из данных гидрации страницы трека, если автор его указал
func (s *Scraper) AnalyzeBPM(ctx context.Context, track models.Track) (float64, error) {
	if track.Platform != models.PlatformSoundCloud {
		return 0, ErrBPMUnavailable
	}

	path, err := soundCloudPath(track.URL)
	if err != nil {
		return 0, err
	}

	page, err := get(ctx, s.client, s.base+path, "text/html")
	if err != nil {
		return 0, fmt.Errorf("fetch soundcloud page: %w", err)
	}

	for _, sound := range hydrationObjects(page) {
		if bpm, ok := sound["bpm"].(float64); ok && bpm > 0 {
			return bpm, nil
		}
	}

	return 0, ErrBPMUnavailable
}

func soundCloudPath(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ErrNotSoundCloud
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "soundcloud.com" || strings.Trim(u.Path, "/") == "" {
		return "", ErrNotSoundCloud
	}

	return "/" + strings.Trim(u.Path, "/"), nil
}

// hydrationObjects - объекты с permalink_url из window.__sc_hydration
func hydrationObjects(page []byte) []map[string]any {
	m := hydrationRe.FindSubmatch(page)
	if m == nil {
		return nil
	}

	var data any
	if err := json.Unmarshal(m[1], &data); err != nil {
		return nil
	}

	var out []map[string]any

	var walk func(v any, depth int)
	walk = func(v any, depth int) {
		if depth > maxDepth {
			return
		}

		switch t := v.(type) {
		case map[string]any:
			if _, ok := t["permalink_url"].(string); ok {
				out = append(out, t)
			}
			// ключи по порядку, чтобы порядок треков не зависел от map
			for _, k := range slices.Sorted(maps.Keys(t)) {
				walk(t[k], depth+1)
			}
		case []any:
			for _, child := range t {
				walk(child, depth+1)
			}
		}
	}
	walk(data, 0)

	return out
}

func tracksFromHydration(page []byte) []ScrapedTrack {
	var tracks []ScrapedTrack
	seen := make(map[string]struct{})

	for _, obj := range hydrationObjects(page) {
		link, _ := obj["permalink_url"].(string)
		if kind, _ := obj["kind"].(string); kind != "" && kind != "track" {
			continue
		}
		if !isTrackURL(link) {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		title, _ := obj["title"].(string)
		var artist string
		if user, ok := obj["user"].(map[string]any); ok {
			artist, _ = user["username"].(string)
		}

		tracks = append(tracks, ScrapedTrack{URL: link, Title: title, Artist: artist})
	}

	return tracks
}

// tracksFromLinks - запасной путь по ссылкам вида /artist/track
func tracksFromLinks(page []byte, username string, anyArtist bool) []ScrapedTrack {
	var tracks []ScrapedTrack
	seen := make(map[string]struct{})

	add := func(artist, slug string) {
		if _, reserved := reservedTrackSlugs[slug]; reserved {
			return
		}
		if !anyArtist && artist != username {
			return
		}

		link := soundCloudBase + "/" + artist + "/" + slug
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		tracks = append(tracks, ScrapedTrack{
			URL:    link,
			Title:  humanize(slug),
			Artist: humanize(artist),
		})
	}

	for _, re := range []*regexp.Regexp{fullHrefRe, relativeHrefRe} {
		for _, m := range re.FindAllSubmatch(page, -1) {
			add(string(m[1]), string(m[2]))
		}
	}

	return tracks
}

func isTrackURL(link string) bool {
	path, err := soundCloudPath(link)
	if err != nil {
		return false
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) != 2 {
		return false
	}
	_, reserved := reservedTrackSlugs[segments[1]]

	return !reserved
}

func humanize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}

	return strings.Join(words, " ")
}
