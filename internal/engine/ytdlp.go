package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/veranemoloko/video-downloader/internal/domain"
	"github.com/veranemoloko/video-downloader/internal/validation"
)

var cookieFiles = map[validation.Platform][]string{
	validation.PlatformYouTube:   {"youtube.com_cookies.txt", "youtube_cookies.txt"},
	validation.PlatformInstagram: {"instagram.com_cookies.txt", "instagram_cookies.txt"},
	validation.PlatformTikTok:    {"tiktok.com_cookies.txt", "tiktok_cookies.txt"},
	validation.PlatformTwitter:   {"twitter.com_cookies.txt", "x.com_cookies.txt", "twitter_cookies.txt"},
	validation.PlatformFacebook:  {"facebook.com_cookies.txt", "facebook_cookies.txt"},
	validation.PlatformVimeo:     {"vimeo.com_cookies.txt", "vimeo_cookies.txt"},
}

// Cookie files smaller than this are treated as placeholders.
const minCookieFileSize = 100

// YTDLP runs the yt-dlp binary through go-ytdlp.
type YTDLP struct {
	executable    string
	cookieDir     string
	socketTimeout int
	retries       int
	logger        *slog.Logger
}

// YTDLPOptions configures the yt-dlp invocation.
type YTDLPOptions struct {
	Executable    string
	CookieDir     string
	SocketTimeout int
	Retries       int
}

// NewYTDLP creates a yt-dlp backed engine. An empty executable uses yt-dlp from PATH.
func NewYTDLP(opts YTDLPOptions, logger *slog.Logger) *YTDLP {
	return &YTDLP{
		executable:    opts.Executable,
		cookieDir:     opts.CookieDir,
		socketTimeout: opts.SocketTimeout,
		retries:       opts.Retries,
		logger:        logger,
	}
}

// Extract downloads req.URL into req.OutputDir and reports what was written.
// The platform strategies are tried in order; the last error is returned when
// all of them fail.
func (y *YTDLP) Extract(ctx context.Context, req Request) (*Result, error) {
	platform, _ := validation.DetectPlatform(req.URL)
	stamp := time.Now().Format("20060102_150405")
	prefix := req.FilePrefix + stamp + "_"

	y.logger.Info("starting extraction", "url", req.URL, "platform", platform, "quality", req.Quality, "type", req.DownloadType)

	var (
		result  *ytdlp.Result
		lastErr error
	)
	for _, st := range strategiesFor(platform) {
		dl := st.apply(y.command(req, platform, prefix))
		res, err := dl.Run(ctx, req.URL)
		if err == nil {
			y.logger.Info("extraction strategy succeeded", "url", req.URL, "strategy", st.name)
			result = res
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp: %w", ctxErr)
		}
		y.logger.Warn("extraction strategy failed", "url", req.URL, "strategy", st.name, "error", err)
		lastErr = err
	}
	if result == nil {
		return nil, fmt.Errorf("yt-dlp: %w", lastErr)
	}

	filename, err := findOutput(req.OutputDir, prefix)
	if err != nil {
		return nil, err
	}

	out := &Result{
		Filename:  filename,
		Title:     "Unknown Video",
		Format:    strings.TrimPrefix(filepath.Ext(filename), "."),
		SourceURL: req.URL,
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		y.logger.Warn("could not parse extracted info", "url", req.URL, "error", err)
		return out, nil
	}
	if len(info) > 0 {
		first := info[0]
		if first.Title != nil && *first.Title != "" {
			out.Title = *first.Title
		}
		if first.Duration != nil {
			out.Duration = int(*first.Duration)
		}
		if first.Thumbnail != nil {
			out.Thumbnail = *first.Thumbnail
		}
		if first.WebpageURL != nil && *first.WebpageURL != "" {
			out.SourceURL = *first.WebpageURL
		}
	}
	return out, nil
}

// command builds the options shared by every strategy.
func (y *YTDLP) command(req Request, platform validation.Platform, prefix string) *ytdlp.Command {
	dl := ytdlp.New().
		RestrictFilenames().
		ForceOverwrites().
		NoProgress().
		PrintJSON().
		NoSimulate().
		Format(FormatForQuality(req.Quality)).
		MergeOutputFormat("mp4").
		GeoBypassCountry("US").
		Output(filepath.Join(req.OutputDir, prefix+"%(title).80s.%(ext)s"))

	if y.executable != "" {
		dl.SetExecutable(y.executable)
	}
	if y.socketTimeout > 0 {
		dl.SocketTimeout(float64(y.socketTimeout))
	}
	if y.retries > 0 {
		dl.Retries(strconv.Itoa(y.retries))
		dl.FragmentRetries(strconv.Itoa(y.retries))
	}

	if req.DownloadType == domain.DownloadTypeSingle {
		dl.NoPlaylist()
	} else {
		dl.YesPlaylist()
	}

	if cookie := y.cookieFile(platform); cookie != "" {
		dl.Cookies(cookie)
	}
	for _, h := range platformHeaders(platform) {
		dl.AddHeaders(h.name + ":" + h.value)
	}
	return dl
}

func (y *YTDLP) cookieFile(platform validation.Platform) string {
	if y.cookieDir == "" {
		return ""
	}
	for _, name := range cookieFiles[platform] {
		path := filepath.Join(y.cookieDir, name)
		if info, err := os.Stat(path); err == nil && info.Size() > minCookieFileSize {
			return path
		}
	}
	return ""
}

// findOutput returns the largest file in dir whose name starts with prefix.
func findOutput(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(prefix)+"*"))
	if err != nil {
		return "", fmt.Errorf("find downloaded file: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() || strings.HasSuffix(m, ".part") {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = filepath.Base(m), info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("downloaded file not found")
	}
	return best, nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

// FormatForQuality builds the yt-dlp format selector for a quality tier.
func FormatForQuality(q domain.Quality) string {
	if q == domain.QualityBest || q == "" {
		return "best[ext=mp4]/best"
	}
	h := strings.TrimSuffix(string(q), "p")
	return fmt.Sprintf("best[ext=mp4][height<=%[1]s]/best[ext=mp4]/mp4[height<=%[1]s]/mp4/best[height<=%[1]s]/best", h)
}
