package engine

import (
	"github.com/lrstanley/go-ytdlp"

	"github.com/veranemoloko/video-downloader/internal/validation"
)

const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	iphoneUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

// header is a single "Name: value" pair passed with --add-headers.
type header struct {
	name, value string
}

// strategy is one set of extractor options tried against a URL.
type strategy struct {
	name          string
	userAgent     string
	extractorArgs string
	headers       []header
}

// apply adds the strategy options to cmd.
func (s strategy) apply(cmd *ytdlp.Command) *ytdlp.Command {
	if s.userAgent != "" {
		cmd.UserAgent(s.userAgent)
	}
	if s.extractorArgs != "" {
		cmd.ExtractorArgs(s.extractorArgs)
	}
	for _, h := range s.headers {
		cmd.AddHeaders(h.name + ":" + h.value)
	}
	return cmd
}

var genericFallback = strategy{
	name:      "generic_fallback",
	userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
}

// strategiesFor returns the extraction strategies for platform in the order they are tried.
func strategiesFor(platform validation.Platform) []strategy {
	switch platform {
	case validation.PlatformYouTube:
		return []strategy{
			{
				name:          "youtube_android",
				userAgent:     "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip",
				extractorArgs: "youtube:player_client=android;player_skip=configs",
			},
			{
				name:          "youtube_web",
				userAgent:     desktopUserAgent,
				extractorArgs: "youtube:player_client=web;player_skip=configs",
			},
			{
				name:          "youtube_ios",
				userAgent:     "com.google.ios.youtube/19.09.3 (iPhone14,3; U; CPU iOS 15_6 like Mac OS X)",
				extractorArgs: "youtube:player_client=ios;player_skip=configs",
			},
		}
	case validation.PlatformInstagram:
		mobileUA := "Instagram 302.0.0.23.114 Android (28/9; 480dpi; 1080x2280; samsung; SM-G973F; beyond1; exynos9820; en_US; 483971587)"
		return []strategy{
			{
				name:      "instagram_mobile",
				userAgent: mobileUA,
				headers: []header{
					{"Accept", "*/*"},
					{"X-IG-App-ID", "936619743392459"},
					{"X-IG-WWW-Claim", "0"},
					{"X-Requested-With", "XMLHttpRequest"},
				},
			},
			{
				name:      "instagram_web",
				userAgent: desktopUserAgent,
				headers: []header{
					{"Sec-Fetch-Mode", "navigate"},
					{"Sec-Fetch-Site", "none"},
				},
			},
			genericFallback,
		}
	case validation.PlatformFacebook:
		return []strategy{
			{
				name:      "facebook_web",
				userAgent: desktopUserAgent,
				headers: []header{
					{"Sec-Fetch-Mode", "navigate"},
					{"Sec-Fetch-Site", "none"},
				},
			},
			{name: "facebook_mobile", userAgent: iphoneUserAgent},
			genericFallback,
		}
	case validation.PlatformTikTok:
		return []strategy{
			{
				name:      "tiktok_web",
				userAgent: desktopUserAgent,
				headers: []header{
					{"Sec-Fetch-Mode", "navigate"},
					{"Sec-Fetch-Site", "same-origin"},
				},
			},
			{name: "tiktok_mobile", userAgent: iphoneUserAgent},
			{
				name:          "tiktok_api",
				userAgent:     "com.zhiliaoapp.musically/2023405020 (Linux; U; Android 10; en_US; Redmi Note 8; Build/QKQ1.200114.002)",
				extractorArgs: "tiktok:api_hostname=api-h2.tiktokv.com;app_name=trill;app_version=34.1.2;manifest_app_version=2023405020;aid=1988",
			},
			genericFallback,
		}
	default:
		return []strategy{{name: "default"}, genericFallback}
	}
}

// platformHeaders returns the headers sent with every strategy for platform.
func platformHeaders(platform validation.Platform) []header {
	headers := []header{
		{"Accept-Language", "en-US,en;q=0.9"},
		{"DNT", "1"},
	}
	switch platform {
	case validation.PlatformInstagram:
		headers = append(headers,
			header{"Referer", "https://www.instagram.com/"},
			header{"Origin", "https://www.instagram.com"},
		)
	case validation.PlatformFacebook:
		headers = append(headers,
			header{"Referer", "https://www.facebook.com/"},
			header{"Origin", "https://www.facebook.com"},
		)
	case validation.PlatformTikTok:
		headers = append(headers,
			header{"Referer", "https://www.tiktok.com/"},
			header{"Origin", "https://www.tiktok.com"},
		)
	}
	return headers
}
