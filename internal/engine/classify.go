package engine

import (
	"context"
	"errors"
	"strings"
)

// Category is a coarse classification of an extraction failure.
type Category string

const (
	CategoryPrivateUnavailable  Category = "private_unavailable"
	CategoryAuthRequired        Category = "auth_required"
	CategoryNetworkTimeout      Category = "network_timeout"
	CategoryUnsupportedPlatform Category = "unsupported_platform"
	CategoryGeoRestricted       Category = "geo_restricted"
	CategoryAgeRestricted       Category = "age_restricted"
	CategoryCopyright           Category = "copyright"
	CategoryFormatUnavailable   Category = "format_unavailable"
	CategoryNotFound            Category = "not_found"
	CategoryLiveStream          Category = "live_stream"
	CategoryUnknown             Category = "unknown"
)

// Failure is the user-facing description of a classified error.
type Failure struct {
	Category   Category
	Message    string
	Suggestion string
}

// UnexpectedFailure is used when the engine panicked or returned nothing usable.
var UnexpectedFailure = Failure{
	Category:   CategoryUnknown,
	Message:    "An error occurred while processing your request.",
	Suggestion: "Please try again later or contact support if the issue persists.",
}

type rule struct {
	match   func(msg string) bool
	failure Failure
}

func contains(all ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range all {
			if !strings.Contains(msg, s) {
				return false
			}
		}
		return true
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

// Order matters: platform specific patterns come before the generic ones.
var rules = []rule{
	{contains("instagram sent an empty media response"), Failure{CategoryAuthRequired,
		"Instagram requires authentication to access this content. Please provide fresh cookies or try again later.",
		"This Instagram post may be private or require login. Try using browser cookies or a public post."}},
	{contains("instagram", "unable to extract data"), Failure{CategoryPrivateUnavailable,
		"Unable to extract Instagram content. The post may be private or deleted.",
		"Ensure the Instagram URL is correct and the post is publicly accessible."}},
	{contains("facebook", "cannot parse data"), Failure{CategoryPrivateUnavailable,
		"Unable to parse Facebook video data. The video may be private or deleted.",
		"Ensure the Facebook video is publicly accessible and the URL is correct."}},
	{contains("facebook", "no video formats found"), Failure{CategoryFormatUnavailable,
		"No downloadable video formats found on Facebook. The content may be protected.",
		"This Facebook video may not be downloadable due to privacy settings."}},
	{contains("unsupported url"), Failure{CategoryUnsupportedPlatform,
		"This URL is not supported by the download engine.",
		"Try using a direct video URL instead of a profile or page URL."}},
	{contains("tiktok", "ip address is blocked"), Failure{CategoryNetworkTimeout,
		"TikTok has blocked access from this server's IP address. This is a temporary restriction.",
		"TikTok may have rate-limited the server. Try again later."}},
	{contains("youtube", "video unavailable"), Failure{CategoryPrivateUnavailable,
		"YouTube video is unavailable. It may be private, deleted, or region-restricted.",
		"Check if the YouTube video exists and is publicly accessible."}},
	{containsAny("sign in", "confirm your age"), Failure{CategoryAuthRequired,
		"This video requires age verification or sign-in to access.",
		"This video has age restrictions or privacy settings."}},
	{contains("members-only"), Failure{CategoryAuthRequired,
		"This video is available to channel members only.",
		"This content requires a channel membership to access."}},
	{containsAny("premiere"), Failure{CategoryLiveStream,
		"This video is scheduled as a premiere and not yet available.",
		"Wait for the premiere to start or check the scheduled time."}},
	{containsAny("private", "unavailable"), Failure{CategoryPrivateUnavailable,
		"This video is private or unavailable. Please check if the video is publicly accessible.",
		"Try a different video URL or contact the video owner."}},
	{containsAny("geo", "region", "country"), Failure{CategoryGeoRestricted,
		"This video is not available in your region due to geographical restrictions.",
		"This content may be restricted in your location."}},
	{containsAny("age-restricted", "age restricted", "age limit", "restricted"), Failure{CategoryAgeRestricted,
		"This video is age-restricted and cannot be downloaded.",
		"Age-restricted content requires special authentication."}},
	{containsAny("copyright", "dmca"), Failure{CategoryCopyright,
		"This video is protected by copyright and cannot be downloaded.",
		"Please respect copyright restrictions."}},
	{containsAny("requested format", "no video formats", "format is not available", "no video"), Failure{CategoryFormatUnavailable,
		"No suitable video format found for download.",
		"Try selecting a different quality or check if the video supports downloads."}},
	{containsAny("network", "timeout", "timed out", "connection", "deadline exceeded"), Failure{CategoryNetworkTimeout,
		"Network error occurred while downloading the video.",
		"Please check the URL and try again later."}},
	{containsAny("not found", "404"), Failure{CategoryNotFound,
		"Video not found. The URL may be incorrect or the video may have been deleted.",
		"Please verify the URL and try again."}},
	{containsAny("is live", "live event", "live stream", "livestream"), Failure{CategoryLiveStream,
		"Live streams cannot be downloaded while they are active.",
		"Wait for the stream to end or try downloading a recorded version."}},
	{containsAny("login", "authentication", "cookies"), Failure{CategoryAuthRequired,
		"This video requires authentication to access.",
		"This content may require login credentials."}},
}

var timeoutFailure = Failure{
	Category:   CategoryNetworkTimeout,
	Message:    "The download did not finish in time.",
	Suggestion: "The source may be slow or very large. Please try again later or choose a lower quality.",
}

var canceledFailure = Failure{
	Category:   CategoryUnknown,
	Message:    "The download was interrupted before it finished.",
	Suggestion: "Please submit the URL again.",
}

// Classify maps an engine error to a Failure. A nil error yields UnexpectedFailure.
func Classify(err error) Failure {
	if err == nil {
		return UnexpectedFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutFailure
	}
	if errors.Is(err, context.Canceled) {
		return canceledFailure
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.match(msg) {
			return r.failure
		}
	}
	return UnexpectedFailure
}
