package entity

import "strings"

// Matches reports whether query is a case-insensitive substring of the job's
// company, role, status or location. The empty query matches every job.
func Matches(job Job, query string) bool {
	return matchesLower(job, strings.ToLower(query))
}

// FilterJobs returns the matching jobs in their original order.
func FilterJobs(jobs []Job, query string) []Job {
	q := strings.ToLower(query)
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if matchesLower(j, q) {
			out = append(out, j)
		}
	}
	return out
}

func matchesLower(job Job, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(job.Company), q) ||
		strings.Contains(strings.ToLower(job.Role), q) ||
		strings.Contains(strings.ToLower(job.Status.String()), q) ||
		strings.Contains(strings.ToLower(job.Location), q)
}
