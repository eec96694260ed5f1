// Package ingest fetches observed audio features from the Spotify Web API
// for the tracks in the lyric table. Coverage is sparse by nature: tracks
// Spotify has no features for simply stay absent from the audio table.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"mirrorball/internal/dataset"
)

// maxTracksPerRequest is the Spotify API limit for audio-feature lookups.
const maxTracksPerRequest = 100

// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is
// not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

// Config holds Spotify API credentials.
type Config struct {
	ClientID     string
	ClientSecret string
}

// LoadConfig reads Spotify credentials from environment variables.
func LoadConfig() (*Config, error) {
	id := os.Getenv("SPOTIFY_ID")
	secret := os.Getenv("SPOTIFY_SECRET")
	if id == "" || secret == "" {
		return nil, ErrMissingCredentials
	}
	return &Config{ClientID: id, ClientSecret: secret}, nil
}

// Client wraps the Spotify API client.
type Client struct {
	api *spotify.Client
}

// NewClient authenticates with the client-credentials flow. The pipeline
// only reads public audio features, so no user authorization is involved.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	auth := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := auth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting access token: %w", err)
	}
	httpClient := spotifyauth.New().Client(ctx, token)
	return &Client{api: spotify.New(httpClient)}, nil
}

// FetchAudioFeatures retrieves audio features for the given track IDs,
// batching requests per API limits. Tracks without available features are
// omitted from the result, never half-filled: a returned record always
// carries both energy and valence.
func (c *Client) FetchAudioFeatures(ctx context.Context, trackIDs []string) ([]dataset.AudioRecord, error) {
	var records []dataset.AudioRecord
	for _, batch := range chunk(trackIDs, maxTracksPerRequest) {
		ids := make([]spotify.ID, len(batch))
		for i, id := range batch {
			ids[i] = spotify.ID(id)
		}

		features, err := c.api.GetAudioFeatures(ctx, ids...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features: %w", err)
		}

		for _, f := range features {
			if f == nil {
				continue
			}
			records = append(records, dataset.AudioRecord{
				TrackID: f.ID.String(),
				Energy:  float64(f.Energy),
				Valence: float64(f.Valence),
			})
		}
		fmt.Printf("Fetched audio features for %d of %d tracks...\n", len(records), len(trackIDs))
	}
	return records, nil
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
