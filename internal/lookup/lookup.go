// Package lookup resolves chapters and verses to playable audio URLs and
// translation text using the quran.com and alquran.cloud APIs.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultQuranComURL serves whole chapter recitations
	DefaultQuranComURL = "https://api.quran.com/api/v4"
	// DefaultAlQuranCloudURL serves per verse audio and translations
	DefaultAlQuranCloudURL = "https://api.alquran.cloud/v1"
)

// ErrUnexpectedStatus is returned when a provider answers with a non success status
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Config of the lookup client
type Config struct {
	QuranComURL     string
	AlQuranCloudURL string
	// HTTPClient defaults to a client without timeout, transport defaults apply
	HTTPClient *http.Client
}

// Client talks to both content providers. It keeps no state besides the
// http client and is safe for concurrent use.
type Client struct {
	quranComURL     string
	alQuranCloudURL string
	httpClient      *http.Client
}

type chapterRecitationResponse struct {
	AudioFile struct {
		ID        int    `json:"id"`
		ChapterID int    `json:"chapter_id"`
		FileSize  int64  `json:"file_size"`
		Format    string `json:"format"`
		AudioURL  string `json:"audio_url"`
	} `json:"audio_file"`
}

type ayahResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Number        int    `json:"number"`
		Audio         string `json:"audio"`
		Text          string `json:"text"`
		NumberInSurah int    `json:"numberInSurah"`
	} `json:"data"`
}

// New creates a lookup client, empty URLs fall back to the public endpoints
func New(cfg Config) *Client {
	c := &Client{
		quranComURL:     strings.TrimRight(cfg.QuranComURL, "/"),
		alQuranCloudURL: strings.TrimRight(cfg.AlQuranCloudURL, "/"),
		httpClient:      cfg.HTTPClient,
	}
	if c.quranComURL == "" {
		c.quranComURL = DefaultQuranComURL
	}
	if c.alQuranCloudURL == "" {
		c.alQuranCloudURL = DefaultAlQuranCloudURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// ChapterAudio returns the audio URL of a whole chapter for the given quran.com
// reciter. An empty string without error means the provider has no recording.
func (c *Client) ChapterAudio(ctx context.Context, chapter int, reciterID int) (string, error) {
	url := fmt.Sprintf("%s/chapter_recitations/%d/%d", c.quranComURL, reciterID, chapter)

	var response chapterRecitationResponse
	status, err := c.getJSON(ctx, url, &response)
	if err != nil {
		return "", errors.Wrapf(err, "chapter %d reciter %d", chapter, reciterID)
	}
	if status != http.StatusOK {
		return "", errors.Wrapf(ErrUnexpectedStatus, "quran.com returned status %d", status)
	}
	return response.AudioFile.AudioURL, nil
}

// VerseAudio returns the audio URL of a single verse for an alquran.cloud audio
// edition. An empty string without error means there is no such verse, which
// callers use as the end of a chapter. Unlike every other non-success status,
// a 404 is not an error: alquran.cloud answers verses past the end of a
// chapter with it, so it is reported as absent.
func (c *Client) VerseAudio(ctx context.Context, chapter int, verse int, edition string) (string, error) {
	response, status, err := c.ayah(ctx, chapter, verse, edition)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
		return response.Data.Audio, nil
	case http.StatusNotFound:
		// verse past the end of the chapter
		return "", nil
	default:
		return "", errors.Wrapf(ErrUnexpectedStatus, "alquran.cloud returned status %d", status)
	}
}

// VerseTranslation returns the translated verse text or an empty string.
// Failures are logged and never returned, translations are best effort.
func (c *Client) VerseTranslation(ctx context.Context, chapter int, verse int, edition string) string {
	if edition == "" {
		return ""
	}
	response, status, err := c.ayah(ctx, chapter, verse, edition)
	if err != nil {
		log.WithFields(log.Fields{
			"chapter": chapter,
			"verse":   verse,
			"edition": edition,
			"error":   err,
		}).Debug("translation unavailable")
		return ""
	}
	if status != http.StatusOK {
		log.WithFields(log.Fields{
			"chapter": chapter,
			"verse":   verse,
			"edition": edition,
			"status":  status,
		}).Debug("translation unavailable")
		return ""
	}
	return response.Data.Text
}

func (c *Client) ayah(ctx context.Context, chapter int, verse int, edition string) (*ayahResponse, int, error) {
	url := fmt.Sprintf("%s/ayah/%d:%d/%s", c.alQuranCloudURL, chapter, verse, edition)

	response := &ayahResponse{}
	status, err := c.getJSON(ctx, url, response)
	if err != nil {
		return nil, status, errors.Wrapf(err, "ayah %d:%d edition %s", chapter, verse, edition)
	}
	return response, status, nil
}

// getJSON decodes the body into v only for 200 responses. Other status codes
// are returned to the caller to decide what they mean.
func (c *Client) getJSON(ctx context.Context, url string, v interface{}) (int, error) {
	log.WithField("url", url).Debug("requesting")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithFields(log.Fields{
			"url":    url,
			"status": resp.StatusCode,
			"body":   string(body),
		}).Debug("provider answered with error status")
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, errors.Wrap(err, "failed to parse response")
	}
	return resp.StatusCode, nil
}

// NormalizeURL turns protocol relative URLs into https URLs
func NormalizeURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
