package entity

import (
	"fmt"
	"strings"
)

// SummaryCounts is only valid as of the Summarize call that produced it.
type SummaryCounts struct {
	Total      int `json:"total"`
	Applied    int `json:"applied"`
	Interviews int `json:"interviews"`
	Offers     int `json:"offers"`
	Rejected   int `json:"rejected"`
	Ghosted    int `json:"ghosted"`
}

func Summarize(jobs []Job) SummaryCounts {
	var c SummaryCounts
	for _, j := range jobs {
		c.Total++
		switch j.Status {
		case JobStatusApplied:
			c.Applied++
		case JobStatusInterview:
			c.Interviews++
		case JobStatusOffer:
			c.Offers++
		case JobStatusRejected:
			c.Rejected++
		case JobStatusGhosted:
			c.Ghosted++
		}
	}
	return c
}

func (c SummaryCounts) Count(status JobStatus) int {
	switch status {
	case JobStatusApplied:
		return c.Applied
	case JobStatusInterview:
		return c.Interviews
	case JobStatusOffer:
		return c.Offers
	case JobStatusRejected:
		return c.Rejected
	case JobStatusGhosted:
		return c.Ghosted
	}
	return 0
}

// Rate is the share of status in percent. An empty summary yields 0.
func (c SummaryCounts) Rate(status JobStatus) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Count(status)) / float64(c.Total) * 100
}

func (c SummaryCounts) RejectionRate() float64 {
	return c.Rate(JobStatusRejected)
}

func (c SummaryCounts) InterviewRate() float64 {
	return c.Rate(JobStatusInterview)
}

func (c SummaryCounts) String() string {
	pad := strings.Repeat(" ", 20)
	var b strings.Builder
	fmt.Fprintf(&b, "Total Applications: %d", c.Total)
	fmt.Fprintf(&b, "%sApplied: %d", pad, c.Applied)
	fmt.Fprintf(&b, "%sRejected: %d", pad, c.Rejected)
	fmt.Fprintf(&b, "%sGhosted: %d", pad, c.Ghosted)
	fmt.Fprintf(&b, "%sInterviews: %d", pad, c.Interviews)
	fmt.Fprintf(&b, "%sRejection Rate: %.2f%%", pad, c.RejectionRate())
	fmt.Fprintf(&b, "%sInterview Rate: %.2f%%", pad, c.InterviewRate())
	return b.String()
}
