package domain

import "strings"

// Role is the closed set of account types. Every session resolves to exactly
// one of these before any handler runs.
type Role string

const (
	RoleCarOwner Role = "car_owner"
	RoleMechanic Role = "mechanic"
	RoleAdmin    Role = "admin"
	RoleAgency   Role = "agency"
	RoleAgent    Role = "agent"
	RoleServicer Role = "servicer"
)

type Capability string

const (
	CapDashboard       Capability = "dashboard"
	CapRequests        Capability = "requests"
	CapVehicles        Capability = "vehicles"
	CapDocuments       Capability = "documents"
	CapMessages        Capability = "messages"
	CapPriceComparison Capability = "price-comparison"
	CapWriteReviews    Capability = "reviews"
	CapOpenJobs        Capability = "open-jobs"
	CapQuotes          Capability = "quotes"
	CapMechanicProfile Capability = "profile"
	CapUsers           Capability = "users"
	CapModeration      Capability = "reviews-moderation"
	CapStats           Capability = "stats"
	CapCampaigns       Capability = "campaigns"
	CapAgents          Capability = "agents"
	CapLeads           Capability = "leads"
	CapSettings        Capability = "settings"
)

type NavLink struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// RoleAccess is what a role is allowed to see and do.
type RoleAccess struct {
	Role         Role
	Home         string
	Capabilities []Capability
	Nav          []NavLink
	SelfService  bool
}

var roleAccess = map[Role]RoleAccess{
	RoleCarOwner: {
		Role:        RoleCarOwner,
		Home:        "/dashboard",
		SelfService: true,
		Capabilities: []Capability{
			CapDashboard, CapRequests, CapVehicles, CapDocuments,
			CapMessages, CapPriceComparison, CapWriteReviews,
		},
		Nav: []NavLink{
			{Href: "/dashboard", Label: "Dashboard"},
			{Href: "/requests", Label: "My Requests"},
			{Href: "/vehicles", Label: "Vehicles"},
			{Href: "/documents", Label: "Documents"},
			{Href: "/messages", Label: "Messages"},
			{Href: "/price-comparison", Label: "Price Comparison"},
		},
	},
	RoleMechanic: {
		Role:         RoleMechanic,
		Home:         "/mechanic/dashboard",
		SelfService:  true,
		Capabilities: []Capability{CapDashboard, CapOpenJobs, CapQuotes, CapMechanicProfile, CapMessages},
		Nav: []NavLink{
			{Href: "/mechanic/dashboard", Label: "Dashboard"},
			{Href: "/mechanic/open-jobs", Label: "Open Jobs"},
			{Href: "/mechanic/quotes", Label: "My Quotes"},
			{Href: "/mechanic/profile", Label: "Profile"},
			{Href: "/messages", Label: "Messages"},
		},
	},
	RoleAdmin: {
		Role:         RoleAdmin,
		Home:         "/admin/dashboard",
		Capabilities: []Capability{CapDashboard, CapUsers, CapModeration, CapStats, CapSettings},
		Nav: []NavLink{
			{Href: "/admin/dashboard", Label: "Dashboard"},
			{Href: "/admin/users", Label: "Users"},
			{Href: "/admin/settings", Label: "Settings"},
		},
	},
	RoleAgency: {
		Role:         RoleAgency,
		Home:         "/agency/dashboard",
		SelfService:  true,
		Capabilities: []Capability{CapDashboard, CapCampaigns, CapAgents, CapSettings},
		Nav: []NavLink{
			{Href: "/agency/dashboard", Label: "Dashboard"},
			{Href: "/agency/campaigns", Label: "Campaigns"},
			{Href: "/agency/agents", Label: "Agents"},
			{Href: "/agency/settings", Label: "Settings"},
		},
	},
	RoleAgent: {
		Role:         RoleAgent,
		Home:         "/agent/dashboard",
		SelfService:  true,
		Capabilities: []Capability{CapDashboard, CapLeads, CapCampaigns},
		Nav: []NavLink{
			{Href: "/agent/dashboard", Label: "Dashboard"},
			{Href: "/agent/leads", Label: "Leads"},
			{Href: "/agent/campaigns", Label: "Campaigns"},
		},
	},
	RoleServicer: {
		Role:         RoleServicer,
		Home:         "/servicer/dashboard",
		SelfService:  true,
		Capabilities: []Capability{CapDashboard, CapLeads, CapCampaigns},
		Nav: []NavLink{
			{Href: "/servicer/dashboard", Label: "Dashboard"},
			{Href: "/servicer/leads", Label: "Leads"},
			{Href: "/servicer/campaigns", Label: "Campaigns"},
		},
	},
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleAccess[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roleAccess[r]
	return ok
}

func (r Role) Access() RoleAccess {
	return roleAccess[r]
}

func (r Role) Can(c Capability) bool {
	for _, have := range roleAccess[r].Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// SelfService reports whether the role can be chosen at signup.
func (r Role) SelfService() bool {
	return roleAccess[r].SelfService
}

func AllRoles() []Role {
	return []Role{RoleCarOwner, RoleMechanic, RoleAdmin, RoleAgency, RoleAgent, RoleServicer}
}
