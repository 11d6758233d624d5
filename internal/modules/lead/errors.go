package lead

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrForbidden          = errors.New("forbidden")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrCampaignInactive   = errors.New("campaign is not active")
	ErrInvalidTransition  = errors.New("invalid campaign status change")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrAgentTaken         = errors.New("agent already belongs to an agency")
	ErrNotAgencyMember    = errors.New("agent is not an active member of an agency")
	ErrLeadNotFound       = errors.New("lead not found")
	ErrLeadAlreadyClaimed = errors.New("lead already sold")
)
