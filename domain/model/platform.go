package model

// Platform identifies a supported social network.
type Platform string

const (
	PlatformTikTok    Platform = "TIKTOK"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformYouTube   Platform = "YOUTUBE"
)

// AllPlatforms lists every supported platform; adapter wiring iterates this
// instead of hardcoding dispatch branches.
var AllPlatforms = []Platform{PlatformTikTok, PlatformInstagram, PlatformYouTube}

func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram, PlatformYouTube:
		return true
	}
	return false
}

func (p Platform) String() string { return string(p) }
