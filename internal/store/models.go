package store

// Link is a saved bookmark. CreatedAt is epoch milliseconds.
type Link struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CreatedAt   int64    `json:"createdAt"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type ChatMessage struct {
	Role           Role     `json:"role"`
	Text           string   `json:"text"`
	Timestamp      int64    `json:"timestamp"`
	RelatedLinkIDs []string `json:"relatedLinkIds,omitempty"`
}

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	ThemeOLED  Theme = "oled"
	ThemeCute  Theme = "cute"
)

// Themes lists every supported theme.
var Themes = []Theme{ThemeDark, ThemeLight, ThemeOLED, ThemeCute}

func (t Theme) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}
