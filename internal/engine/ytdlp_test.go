package engine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/video-downloader/internal/domain"
	"github.com/veranemoloko/video-downloader/internal/validation"
)

func TestFormatForQuality(t *testing.T) {
	assert.Equal(t, "best[ext=mp4]/best", FormatForQuality(domain.QualityBest))
	assert.Equal(t,
		"best[ext=mp4][height<=720]/best[ext=mp4]/mp4[height<=720]/mp4/best[height<=720]/best",
		FormatForQuality(domain.QualityHigh))
}

func TestFindOutput_PicksLargestMatching(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task_1_a.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task_1_a.mp4"), []byte("xxxxxxxx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task_1_a.mp4.part"), []byte("xxxxxxxxxxxxxxxx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.mp4"), []byte("xxxxxxxxxxxxxxxxxxxxxxxx"), 0o644))

	name, err := findOutput(dir, "task_1_")
	require.NoError(t, err)
	assert.Equal(t, "task_1_a.mp4", name)
}

func TestFindOutput_NothingWritten(t *testing.T) {
	_, err := findOutput(t.TempDir(), "task_1_")
	assert.Error(t, err)
}

func TestYTDLP_CookieFile(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	y := NewYTDLP(YTDLPOptions{CookieDir: dir}, logger)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "youtube.com_cookies.txt"), []byte("tiny"), 0o644))
	assert.Empty(t, y.cookieFile(validation.PlatformYouTube))

	big := make([]byte, minCookieFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "youtube_cookies.txt"), big, 0o644))
	assert.Equal(t, filepath.Join(dir, "youtube_cookies.txt"), y.cookieFile(validation.PlatformYouTube))

	assert.Empty(t, y.cookieFile(validation.PlatformUnknown))
}
