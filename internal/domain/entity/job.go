package entity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusApplied   JobStatus = "Applied"
	JobStatusInterview JobStatus = "Interview"
	JobStatusOffer     JobStatus = "Offer"
	JobStatusRejected  JobStatus = "Rejected"
	JobStatusGhosted   JobStatus = "Ghosted"
)

// Statuses lists every status in pipeline order.
var Statuses = []JobStatus{
	JobStatusApplied,
	JobStatusInterview,
	JobStatusOffer,
	JobStatusRejected,
	JobStatusGhosted,
}

var ErrUnknownStatus = errors.New("unknown job status")

// ParseStatus is strict: anything other than a known status name
// (case-insensitive) is an error.
func ParseStatus(s string) (JobStatus, error) {
	for _, st := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s JobStatus) String() string {
	return string(s)
}

func (s JobStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *JobStatus) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type JobSource string

const (
	JobSourceLinkedIn     JobSource = "LinkedIn"
	JobSourceMonster      JobSource = "Monster"
	JobSourceIndeed       JobSource = "Indeed"
	JobSourceRecruiter    JobSource = "Recruiter"
	JobSourceTalent       JobSource = "Talent"
	JobSourceGlassdoor    JobSource = "Glassdoor"
	JobSourceZipRecruiter JobSource = "ZipRecruiter"
	JobSourceNotProvided  JobSource = "NotProvided"
)

var Sources = []JobSource{
	JobSourceLinkedIn,
	JobSourceMonster,
	JobSourceIndeed,
	JobSourceRecruiter,
	JobSourceTalent,
	JobSourceGlassdoor,
	JobSourceZipRecruiter,
	JobSourceNotProvided,
}

var sourceAliases = map[string]JobSource{
	"talent.com":   JobSourceTalent,
	"not provided": JobSourceNotProvided,
}

// ParseSource never fails. Unrecognised input, including the empty string,
// normalises to JobSourceNotProvided.
func ParseSource(s string) JobSource {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, src := range Sources {
		if s == strings.ToLower(string(src)) {
			return src
		}
	}
	if src, ok := sourceAliases[s]; ok {
		return src
	}
	return JobSourceNotProvided
}

// DisplayName is the label shown to users, which differs from the stored
// name for Talent and NotProvided.
func (s JobSource) DisplayName() string {
	switch s {
	case JobSourceTalent:
		return "Talent.com"
	case JobSourceNotProvided:
		return "Not provided"
	default:
		return string(s)
	}
}

func (s JobSource) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *JobSource) UnmarshalText(b []byte) error {
	*s = ParseSource(string(b))
	return nil
}

// Job is one tracked application. Location and Source are optional: the
// empty value means absent. Timestamp is always UTC.
type Job struct {
	ID        uint32    `json:"id"`
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	Location  string    `json:"location,omitempty"`
	Status    JobStatus `json:"status"`
	Source    JobSource `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewJob(id uint32, company, role, location, source string, at time.Time) Job {
	return Job{
		ID:        id,
		Company:   company,
		Role:      role,
		Location:  location,
		Status:    JobStatusApplied,
		Source:    ParseSource(source),
		Timestamp: at.UTC(),
	}
}

var ErrMissingTimestamp = errors.New("missing timestamp")

// Validate reports a record that could not have been produced by NewJob:
// a status outside Statuses or a zero timestamp.
func (j Job) Validate() error {
	if !slices.Contains(Statuses, j.Status) {
		return fmt.Errorf("job %d: %w: %q", j.ID, ErrUnknownStatus, string(j.Status))
	}
	if j.Timestamp.IsZero() {
		return fmt.Errorf("job %d: %w", j.ID, ErrMissingTimestamp)
	}
	return nil
}

// Day is the UTC calendar day of the job's timestamp.
func (j Job) Day() time.Time {
	return TruncateToDay(j.Timestamp)
}

// TimestampLayout is the accepted alternative to RFC 3339, read as UTC.
const TimestampLayout = "2006-01-02 15:04:05"

var ErrInvalidTimestamp = errors.New("invalid timestamp")

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want RFC 3339 or %q", ErrInvalidTimestamp, s, TimestampLayout)
	}
	return t, nil
}

func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
