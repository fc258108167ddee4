package domain

import "time"

type IsolationStatus string

const (
	StatusIsolated     IsolationStatus = "isolated"
	StatusPendingStart IsolationStatus = "pending_start"
	StatusNotIsolated  IsolationStatus = "not_isolated"
)

// EndpointEvent is a single Secure Endpoint detection event.
type EndpointEvent struct {
	ID            string
	Type          string // event_type, ex: "Threat Detected"
	Detection     string // malware name reported by the engine
	Date          time.Time
	Hostname      string
	User          string // may be empty, not every event carries a user
	ExternalIP    string
	ConnectorGUID string
	FileName      string
	SHA256        string
	TrajectoryURL string // console link to the file trajectory
	EventsURL     string // console link to the computer's events
}

// Computer identifies an endpoint managed by Secure Endpoint.
type Computer struct {
	ConnectorGUID string
	Hostname      string
	User          string
	ExternalIP    string
	OperatingSys  string
}

// IsolationResult is the acknowledgment of an isolation request.
type IsolationResult struct {
	Computer    Computer
	Status      IsolationStatus
	Comment     string
	UnlockCode  string
	RequestedBy string
	NotifiedTo  string // empty when no notice was sent
	NotifyError string // non-empty when the notice failed
}

// DNSEvent is one blocked request reported by Umbrella.
type DNSEvent struct {
	Domain     string
	Time       time.Time
	ExternalIP string
	InternalIP string
	Verdict    string
	Identity   string
	Categories []string
	ReportURL  string // dashboard link filtered on the domain
}

// DomainReport aggregates Umbrella Investigate data for a single domain.
type DomainReport struct {
	Domain             string
	RiskScore          int
	Status             int // -1 malicious, 0 unclassified, 1 benign
	SecurityCategories []string
	ContentCategories  []string
	Registrar          string
	Created            string
	Expires            string
}

// IPListing is one entry of an IP's blocklist history.
type IPListing struct {
	IP         string
	Dataset    string
	Detection  string
	Heuristic  string
	Country    string
	ASN        string
	Seen       time.Time
	ValidUntil time.Time
}

type IPReputation struct {
	IP       string
	Listings []IPListing // most recent first
}
