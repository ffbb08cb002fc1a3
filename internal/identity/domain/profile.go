package domain

// Profile is the presentation data the identity collaborator holds for a user.
type Profile struct {
	UserID      string
	DisplayName string
	PlanTier    string
}
