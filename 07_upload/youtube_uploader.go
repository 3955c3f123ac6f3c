package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"fandom-explainer/config"
	"fandom-explainer/types"
)

type insertFunc func(ctx context.Context, video *youtube.Video, media io.Reader) (string, error)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	cfg    *config.Config
	insert insertFunc
	logger zerolog.Logger
}

// New creates an Uploader authenticated from YOUTUBE_CLIENT_ID,
// YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN.
func New(ctx context.Context, cfg *config.Config) (*Uploader, error) {
	client, err := oauthClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	u := newUploader(cfg)
	u.insert = func(ctx context.Context, video *youtube.Video, media io.Reader) (string, error) {
		uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(media).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return uploaded.Id, nil
	}
	return u, nil
}

func newUploader(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg, logger: log.With().Str("stage", "upload").Logger()}
}

// Run uploads videoFile with meta and returns the video id and watch URL
func (u *Uploader) Run(ctx context.Context, videoFile string, meta Metadata) (string, string, error) {
	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("%w: open video file: %w", types.ErrMediaNotFound, err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.logger.Info().Str("title", meta.Title).Float64("size_mb", float64(fi.Size())/1024/1024).Msg("uploading")
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Visibility,
			SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
			NotifySubscribers:       u.cfg.Upload.NotifySubscribers,
		},
	}

	id, err := u.insert(ctx, video, f)
	if err != nil {
		return "", "", fmt.Errorf("%w: youtube upload: %w", types.ErrUpstream, err)
	}
	url := "https://www.youtube.com/watch?v=" + id
	u.logger.Info().Str("video_id", id).Str("url", url).Msg("uploaded")
	return id, url, nil
}

func oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("%w: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set", types.ErrInvalidInput)
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	// expired token forces a refresh on first use
	token := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Hour)}
	return conf.Client(ctx, token), nil
}

// LogUpload saves the upload result next to the run state
func LogUpload(videoID, videoURL, videoFile, dir string, meta Metadata) error {
	entry := map[string]interface{}{
		"video_id":    videoID,
		"video_url":   videoURL,
		"title":       meta.Title,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
		"video_file":  videoFile,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	return os.WriteFile(path, data, 0644)
}
