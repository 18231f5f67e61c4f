package user

// Profile is the public view of a listing owner.
type Profile struct {
	Address     string         `json:"address"`
	AvatarURL   string         `json:"avatar_url"`
	ExplorerURL string         `json:"explorer_url,omitempty"`
	Listings    []OwnedListing `json:"listings"`
}

type OwnedListing struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Price    string `json:"price"`
	// Sold is omitted when the contract version has no sold flag.
	Sold *bool `json:"sold,omitempty"`
}
