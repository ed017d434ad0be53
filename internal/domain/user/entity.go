package user

import "globalgigs/internal/domain"

// User is the generic account record at users/{uid}.
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name,omitempty"`
	AvatarURL string      `json:"avatarUrl,omitempty"`
	CreatedAt int64       `json:"createdAt"`
}

// FreelancerProfile is the public profile at freelancers/{uid}.
// Role holds the professional title, not the account role.
type FreelancerProfile struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Role          string              `json:"role"`
	Category      string              `json:"category"`
	Location      string              `json:"location"`
	Rate          float64             `json:"rate"`
	Availability  domain.Availability `json:"availability"`
	Skills        []string            `json:"skills"`
	Bio           string              `json:"bio"`
	AvatarURL     string              `json:"avatarUrl"`
	Portfolio     []PortfolioItem     `json:"portfolio"`
	Experience    []Experience        `json:"experience"`
	AverageRating float64             `json:"averageRating,omitempty"`
	ReviewCount   int                 `json:"reviewCount,omitempty"`
	RatingSum     float64             `json:"ratingSum,omitempty"`
}

type PortfolioItem struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	ImageURLs        []string `json:"imageUrls,omitempty"`
	Hint             string   `json:"hint,omitempty"`
	TechnologiesUsed []string `json:"technologiesUsed,omitempty"`
}

type Experience struct {
	ID          int    `json:"id"`
	Role        string `json:"role"`
	Company     string `json:"company"`
	Period      string `json:"period"`
	Description string `json:"description,omitempty"`
}

// Participant is the display identity of one side of a conversation or gig.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Role      string `json:"role"`
}
