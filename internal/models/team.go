package models

// F1Driver is a driver listed under a team
type F1Driver struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// F1Team is one constructor with its livery and drivers
type F1Team struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	LogoURL         string     `json:"logo_url,omitempty"`
	BackgroundColor string     `json:"background_color,omitempty"`
	CarImageURL     string     `json:"car_image_url,omitempty"`
	Drivers         []F1Driver `json:"drivers"`
}

// F1TeamSection groups teams for a season
type F1TeamSection struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Year     int      `json:"year"`
	Teams    []F1Team `json:"teams"`
}
