package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/veranemoloko/video-downloader/internal/domain"
	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("safe_url", validateSafeURL)
}

// ValidateSubmit checks a submission structurally. Any failure is a *ValidationError.
func ValidateSubmit(req domain.SubmitRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &errpkg.ValidationError{Field: fieldName(fe.Field()), Reason: reason(fe)}
	}
	return &errpkg.ValidationError{Reason: err.Error()}
}

func fieldName(field string) string {
	switch field {
	case "URL":
		return "url"
	case "DownloadType":
		return "download_type"
	case "Quality":
		return "quality"
	default:
		return strings.ToLower(field)
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "url", "safe_url":
		return "Invalid URL format. Please check the URL and try again."
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func validateSafeURL(fl validator.FieldLevel) bool {
	urlStr := fl.Field().String()

	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host == "" {
		return false
	}

	host := u.Hostname()

	forbiddenHosts := []string{
		"localhost",
		"127.0.0.1",
		"::1",
		"0.0.0.0",
		"169.254.169.254",
	}

	for _, forbidden := range forbiddenHosts {
		if strings.EqualFold(host, forbidden) {
			return false
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return false
		}
	}

	return true
}

// Platform identifies a known media host.
type Platform string

const (
	PlatformUnknown     Platform = "unknown"
	PlatformYouTube     Platform = "youtube"
	PlatformTikTok      Platform = "tiktok"
	PlatformInstagram   Platform = "instagram"
	PlatformTwitter     Platform = "twitter"
	PlatformFacebook    Platform = "facebook"
	PlatformVimeo       Platform = "vimeo"
	PlatformDailymotion Platform = "dailymotion"
	PlatformTwitch      Platform = "twitch"
)

var platformPatterns = []struct {
	platform Platform
	pattern  *regexp.Regexp
}{
	{PlatformYouTube, regexp.MustCompile(`(?i)youtube\.com|youtu\.be`)},
	{PlatformTikTok, regexp.MustCompile(`(?i)tiktok\.com`)},
	{PlatformInstagram, regexp.MustCompile(`(?i)instagram\.com`)},
	{PlatformTwitter, regexp.MustCompile(`(?i)twitter\.com|(^|[/.])x\.com`)},
	{PlatformFacebook, regexp.MustCompile(`(?i)facebook\.com|fb\.watch`)},
	{PlatformVimeo, regexp.MustCompile(`(?i)vimeo\.com`)},
	{PlatformDailymotion, regexp.MustCompile(`(?i)dailymotion\.com`)},
	{PlatformTwitch, regexp.MustCompile(`(?i)twitch\.tv`)},
}

// DetectPlatform returns the platform the URL belongs to and whether it is supported.
func DetectPlatform(rawURL string) (Platform, bool) {
	for _, p := range platformPatterns {
		if p.pattern.MatchString(rawURL) {
			return p.platform, true
		}
	}
	return PlatformUnknown, false
}

// UnsupportedPlatformMessage is returned to clients when strict platform checking rejects a URL.
const UnsupportedPlatformMessage = "URL may not be from a supported platform. Supported platforms include YouTube, TikTok, Instagram, Twitter, Facebook, Vimeo, and more."
