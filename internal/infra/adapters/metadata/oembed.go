// Package metadata достаёт сведения о треках со страниц площадок.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Luminawater/juketogether/internal/domain/models"
)

const userAgent = "Mozilla/5.0 (compatible; juketogether/1.0; +https://juketogether.app)"

// maxBody - потолок на размер ответа площадки
const maxBody = 4 << 20

var ErrNoEndpoint = errors.New("no oembed endpoint for platform")

var defaultEndpoints = map[models.Platform]string{
	models.PlatformSoundCloud: "https://soundcloud.com/oembed",
	models.PlatformYouTube:    "https://www.youtube.com/oembed",
	models.PlatformSpotify:    "https://open.spotify.com/oembed",
}

// Fetcher получает название, автора и обложку через oEmbed
type Fetcher struct {
	client    *http.Client
	endpoints map[models.Platform]string
}

func NewFetcher(timeout time.Duration) *Fetcher {
	endpoints := make(map[models.Platform]string, len(defaultEndpoints))
	for p, e := range defaultEndpoints {
		endpoints[p] = e
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		endpoints: endpoints,
	}
}

// WithEndpoint подменяет адрес oEmbed площадки
func (f *Fetcher) WithEndpoint(p models.Platform, endpoint string) *Fetcher {
	f.endpoints[p] = endpoint

	return f
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (f *Fetcher) Fetch(ctx context.Context, platform models.Platform, rawURL string) (*models.TrackInfo, error) {
	endpoint, ok := f.endpoints[platform]
	if !ok {
		return nil, ErrNoEndpoint
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("url", rawURL)

	var resp oembedResponse
	if err := getJSON(ctx, f.client, endpoint+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch %s oembed: %w", platform, err)
	}

	title := strings.TrimSpace(resp.Title)
	if title == "" {
		return nil, fmt.Errorf("fetch %s oembed: empty title", platform)
	}

	artist := strings.TrimSpace(resp.AuthorName)

	// SoundCloud отдаёт "Track by Artist"
	if platform == models.PlatformSoundCloud && artist != "" {
		title = strings.TrimSuffix(title, " by "+artist)
	}

	return &models.TrackInfo{
		Title:     title,
		Artist:    artist,
		Thumbnail: resp.ThumbnailURL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	body, err := get(ctx, client, rawURL, "application/json")
	if err != nil {
		return err
	}

	if err = json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func get(ctx context.Context, client *http.Client, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
