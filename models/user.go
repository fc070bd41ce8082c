package models

// Profile mirrors the backend profile resource (snake_case wire format).
// Pointer fields distinguish "absent" from zero values in partial payloads.
type Profile struct {
	AvatarURL           *string  `json:"avatar_url,omitempty"`
	Bio                 string   `json:"bio,omitempty"`
	SkillLevel          *float64 `json:"skill_level,omitempty"` // e.g. 3.0, 4.5
	Location            string   `json:"location,omitempty"`
	Gender              string   `json:"gender,omitempty"` // "M" | "F" | "O" | ""
	DisplayName         string   `json:"display_name,omitempty"`
	Age                 *int     `json:"age,omitempty"`
	YearsPlaying        *int     `json:"years_playing,omitempty"`
	DominantHand        string   `json:"dominant_hand,omitempty"` // "R" | "L" | ""
	BackhandType        string   `json:"backhand_type,omitempty"` // "1H" | "2H" | ""
	PreferredCourtTypes []string `json:"preferred_court_types,omitempty"`
	PreferredMatchTypes []string `json:"preferred_match_types,omitempty"`
	PlayIntentions      []string `json:"play_intentions,omitempty"`
	PreferredLanguages  []string `json:"preferred_languages,omitempty"`
}

// UserWithProfile is the full user representation returned by the backend
type UserWithProfile struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
}

// BriefUser is the compact user shape embedded in friend/chat resources
type BriefUser struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Profile  *Profile `json:"profile,omitempty"`
}

// FriendItem is one saved-friend relation
type FriendItem struct {
	ID        int64     `json:"id"` // relation id, not the friend's user id
	Friend    BriefUser `json:"friend"`
	CreatedAt string    `json:"created_at"`
}
