package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"jobtracker/app/usecase"
	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/timeline"
)

// App carries out trackerctl commands against a job service and writes the
// results to Out.
type App struct {
	Jobs  usecase.JobUsecase
	Clock usecase.Clock
	Out   io.Writer
}

func (a *App) Add(ctx context.Context, company, role, location, source string) error {
	company, role = strings.TrimSpace(company), strings.TrimSpace(role)
	if company == "" || role == "" {
		return fmt.Errorf("company and role are required")
	}
	jobs, err := a.Jobs.Add(ctx, company, role, strings.TrimSpace(location), source)
	if err != nil {
		return err
	}
	job := jobs[len(jobs)-1]
	fmt.Fprintf(a.Out, "Added job %d: %s, %s (%s)\n", job.ID, job.Company, job.Role, job.Source.DisplayName())
	return nil
}

// List prints the jobs matching query. The index column is the position in
// the unfiltered list, which is what Delete takes.
func (a *App) List(ctx context.Context, query string) error {
	jobs := a.Jobs.List(ctx)

	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tID\tCOMPANY\tROLE\tLOCATION\tSTATUS\tSOURCE\tAPPLIED")
	for i, j := range jobs {
		if !entity.Matches(j, query) {
			continue
		}
		source := ""
		if j.Source != "" {
			source = j.Source.DisplayName()
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i, j.ID, j.Company, j.Role, j.Location, j.Status, source,
			j.Timestamp.Format(entity.TimestampLayout))
	}
	return w.Flush()
}

func (a *App) Delete(ctx context.Context, position int) error {
	before := a.Jobs.List(ctx)
	if position < 0 || position >= len(before) {
		fmt.Fprintf(a.Out, "No job at index %d\n", position)
		return nil
	}
	if _, err := a.Jobs.Delete(ctx, position); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted job %d (%s)\n", before[position].ID, before[position].Company)
	return nil
}

func (a *App) UpdateStatus(ctx context.Context, id uint32, status string) error {
	st, err := entity.ParseStatus(status)
	if err != nil {
		return err
	}
	return a.update(ctx, id, "status", st.String(), func() error {
		_, err := a.Jobs.UpdateStatus(ctx, id, st)
		return err
	})
}

func (a *App) UpdateSource(ctx context.Context, id uint32, source string) error {
	src := entity.ParseSource(source)
	return a.update(ctx, id, "source", src.DisplayName(), func() error {
		_, err := a.Jobs.UpdateSource(ctx, id, src)
		return err
	})
}

func (a *App) UpdateCompany(ctx context.Context, id uint32, company string) error {
	company = strings.TrimSpace(company)
	if company == "" {
		return fmt.Errorf("company must not be empty")
	}
	return a.update(ctx, id, "company", company, func() error {
		_, err := a.Jobs.UpdateCompany(ctx, id, company)
		return err
	})
}

func (a *App) UpdateTimestamp(ctx context.Context, id uint32, value string) error {
	at, err := entity.ParseTimestamp(value)
	if err != nil {
		return err
	}
	return a.update(ctx, id, "timestamp", at.Format(time.RFC3339), func() error {
		_, err := a.Jobs.UpdateTimestamp(ctx, id, at)
		return err
	})
}

func (a *App) update(ctx context.Context, id uint32, field, value string, apply func() error) error {
	if _, ok := a.Jobs.Get(ctx, id); !ok {
		fmt.Fprintf(a.Out, "No job with id %d\n", id)
		return nil
	}
	if err := apply(); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Job %d %s set to %s\n", id, field, value)
	return nil
}

func (a *App) Summary(ctx context.Context) error {
	fmt.Fprintln(a.Out, entity.Summarize(a.Jobs.List(ctx)).String())
	return nil
}

// Timeline prints one row per day from the first application through today.
func (a *App) Timeline(ctx context.Context) error {
	tl := timeline.Build(a.Jobs.List(ctx), a.Clock.Now())

	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	for _, d := range tl.Days {
		names := make([]string, 0, len(d.Jobs))
		for _, j := range d.Jobs {
			names = append(names, fmt.Sprintf("%s [%s]", j.Company, j.Status))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Label(), strings.Repeat("#", len(d.Jobs)), strings.Join(names, ", "))
	}
	return w.Flush()
}
