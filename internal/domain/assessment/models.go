package assessment

import "time"

type Process struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Active    bool      `json:"active"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Actor is the acting user as known to the lifecycle.
type Actor struct {
	ID   string
	Name string
	Role string
}

// ActorRef is the identity snapshot stored with a history entry.
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	ChangedBy ActorRef  `json:"changedBy"`
}

// StatusSnapshot is what the store reports about a process before a transition.
type StatusSnapshot struct {
	Status        Status
	LastChangedAt time.Time
}

type TransitionResult struct {
	ProcessID      string       `json:"id"`
	PreviousStatus Status       `json:"previousStatus"`
	Status         Status       `json:"status"`
	Entry          HistoryEntry `json:"-"`
}

type ListFilter struct {
	Status Status
	Active *bool
}

type ListResult struct {
	Items []Process `json:"items"`
	Total int       `json:"total"`
}

func (a Actor) ref() ActorRef {
	name := a.Name
	if name == "" {
		name = a.ID
	}
	return ActorRef{ID: a.ID, Name: name}
}
