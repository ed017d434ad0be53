package domain

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleFreelancer
}

type Availability string

const (
	AvailabilityFullTime    Availability = "Full-time"
	AvailabilityPartTime    Availability = "Part-time"
	AvailabilityUnavailable Availability = "Unavailable"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityFullTime, AvailabilityPartTime, AvailabilityUnavailable:
		return true
	}
	return false
}

type MessageType string

const (
	MessageTypeGigProposal   MessageType = "gig-proposal"
	MessageTypeGigAcceptance MessageType = "gig-acceptance"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "Pending"
	ProposalAccepted ProposalStatus = "Accepted"
	ProposalDeclined ProposalStatus = "Declined"
)

func (s ProposalStatus) Terminal() bool {
	return s == ProposalAccepted || s == ProposalDeclined
}

type GigStatus string

const (
	GigPending       GigStatus = "Pending"
	GigInProgress    GigStatus = "In Progress"
	GigPendingUpdate GigStatus = "Pending Update"
	GigCompleted     GigStatus = "Completed"
	GigCancelled     GigStatus = "Cancelled"
)

// Terminal statuses are never left again.
func (s GigStatus) Terminal() bool {
	return s == GigCompleted || s == GigCancelled
}

// Store layout
const (
	UsersPath         = "users"
	FreelancersPath   = "freelancers"
	ConversationsPath = "conversations"
	MessagesSegment   = "messages"
	ProposalsPath     = "proposals"
	GigsPath          = "gigs"
	ReviewsPath       = "reviews"
)
