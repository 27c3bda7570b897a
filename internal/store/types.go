package store

import "time"

// CompetitionStatus is the lifecycle phase of a competition.
type CompetitionStatus string

const (
	StatusUnstarted CompetitionStatus = "unstarted"
	StatusActive    CompetitionStatus = "active"
	StatusFinished  CompetitionStatus = "finished"
)

// CompetitionState is the persisted lifecycle record for one competition.
type CompetitionState struct {
	Name      string            `yaml:"name"`
	Status    CompetitionStatus `yaml:"status"`
	StartTime *time.Time        `yaml:"start_time,omitempty"`
	EndTime   *time.Time        `yaml:"end_time,omitempty"`
}

// IdentitySource names how a user can authenticate.
type IdentitySource string

const (
	IdentityLocalPassword IdentitySource = "local_password"
	IdentityOIDC          IdentitySource = "oidc"
)

// User is a competition participant or administrator.
type User struct {
	Username        string           `yaml:"username"`
	Email           string           `yaml:"email"`
	TeamName        *string          `yaml:"team_name,omitempty"`
	Admin           bool             `yaml:"admin"`
	IdentitySources []IdentitySource `yaml:"identity_sources"`
}

// hasIdentitySource reports whether the user already carries the given source.
func (u *User) hasIdentitySource(source IdentitySource) bool {
	for _, s := range u.IdentitySources {
		if s == source {
			return true
		}
	}
	return false
}

// CheckCurrentState is the latest known outcome of a check for one team.
type CheckCurrentState struct {
	Success          bool     `yaml:"success"`
	NumberOfFailures uint64   `yaml:"number_of_failures"`
	Message          []string `yaml:"message"`
	SuccessCount     uint64   `yaml:"success_count"`
	TotalCount       uint64   `yaml:"total_count"`
	PassingBoxes     []string `yaml:"passing_boxes"`
}

// unsolvedCheckState is returned when no state has been recorded yet.
func unsolvedCheckState() CheckCurrentState {
	return CheckCurrentState{
		Success: false,
		Message: []string{"Unsolved"},
	}
}

// ToastSeverity is the urgency of a toast notification.
type ToastSeverity string

const (
	ToastInfo    ToastSeverity = "info"
	ToastWarning ToastSeverity = "warning"
	ToastError   ToastSeverity = "error"
)

// ToastNotification is a transient UI notice broadcast over pub/sub.
type ToastNotification struct {
	Title       string        `yaml:"title"`
	Message     string        `yaml:"message"`
	Severity    ToastSeverity `yaml:"severity"`
	User        *string       `yaml:"user,omitempty"`
	Team        *string       `yaml:"team,omitempty"`
	SoundEffect *string       `yaml:"sound_effect,omitempty"`
}

// BoxCommand is a command published to a VM supervisor.
type BoxCommand string

const (
	BoxCommandRestore  BoxCommand = "restore"
	BoxCommandStop     BoxCommand = "stop"
	BoxCommandSnapshot BoxCommand = "snapshot"
)

// SupportTicketState is whether a ticket is still being worked.
type SupportTicketState string

const (
	SupportTicketOpen   SupportTicketState = "open"
	SupportTicketClosed SupportTicketState = "closed"
)

// SupportTicketMessage is one entry in a support ticket's conversation.
type SupportTicketMessage struct {
	Sender    string    `yaml:"sender"`
	Message   string    `yaml:"message"`
	Timestamp time.Time `yaml:"timestamp"`
}

// SupportTicket is a team's help request and its conversation thread.
type SupportTicket struct {
	TeamName string                 `yaml:"team_name"`
	Date     time.Time              `yaml:"date"`
	State    SupportTicketState     `yaml:"state"`
	Subject  string                 `yaml:"subject"`
	Messages []SupportTicketMessage `yaml:"messages"`
}
