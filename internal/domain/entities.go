package domain

// Industry is a named domain-of-interest tag shared by projects and investors.
type Industry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the account behind an investor or a startup owner.
// Notification recipients are addressed by user id.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Investor struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	ContactEmail     string     `json:"contact_email"`
	Interests        []Industry `json:"interests"`
	InvestmentAmount string     `json:"investment_amount"`
	IsActive         bool       `json:"is_active"`
	IsVerified       bool       `json:"is_verified"`
}

// InterestedIn reports whether the investor lists the given industry.
func (i *Investor) InterestedIn(industryID int64) bool {
	for _, ind := range i.Interests {
		if ind.ID == industryID {
			return true
		}
	}
	return false
}

type Startup struct {
	ID           int64  `json:"id"`
	OwnerID      int64  `json:"owner_id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	IsVerified   bool   `json:"is_verified"`
}

// Project is a fundraising project owned by a startup.
// Subscribers opted into update notifications; Investors committed funds.
type Project struct {
	ID           int64     `json:"id"`
	StartupID    int64     `json:"startup_id"`
	Name         string    `json:"name"`
	Industry     *Industry `json:"industry,omitempty"`
	Status       string    `json:"status"`
	BudgetNeeded string    `json:"budget_needed"`
	BudgetReady  *string   `json:"budget_ready,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	Subscribers  []int64   `json:"subscribers"`
	Investors    []int64   `json:"investors"`
}

func (p *Project) HasSubscriber(investorID int64) bool {
	for _, id := range p.Subscribers {
		if id == investorID {
			return true
		}
	}
	return false
}

// EntityKind is the closed set of entities that go through moderation.
type EntityKind string

const (
	EntityInvestor EntityKind = "investor"
	EntityProject  EntityKind = "project"
	EntityStartup  EntityKind = "startup"
)

func (k EntityKind) IsValid() bool {
	switch k {
	case EntityInvestor, EntityProject, EntityStartup:
		return true
	}
	return false
}

// Title is the capitalised label used in emails and moderation pages.
func (k EntityKind) Title() string {
	switch k {
	case EntityInvestor:
		return "Investor"
	case EntityProject:
		return "Project"
	case EntityStartup:
		return "Startup"
	}
	return string(k)
}

// Decision is the outcome of a moderation review.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionDecline
}
