package review

const (
	MinRating = 1
	MaxRating = 5
)

// Review is stored at reviews/{freelancerId}/{id} and never edited.
type Review struct {
	ID              string `json:"id"`
	FreelancerID    string `json:"freelancerId"`
	ClientID        string `json:"clientId"`
	ClientName      string `json:"clientName"`
	ClientAvatarURL string `json:"clientAvatarUrl"`
	Rating          int    `json:"rating"`
	Comment         string `json:"comment"`
	CreatedAt       int64  `json:"createdAt"`
}
