package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"total_loc/internal/domain/model"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const reportSubject = "Your line count report"

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier mails a short report when a job finishes.
type SendGridNotifier struct {
	client mailSender
	from   *mail.Email
	log    *logrus.Entry
}

func NewSendGridNotifier(apiKey, from string, log *logrus.Entry) (*SendGridNotifier, error) {
	if apiKey == "" || from == "" {
		return nil, errors.New("invalid SendGrid configuration: api key and sender are required")
	}
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Total LOC", from),
		log:    log,
	}, nil
}

func (n *SendGridNotifier) NotifyJobFinished(ctx context.Context, email string, job *model.LineCountJob) error {
	plain, htmlBody := renderReport(job)
	message := mail.NewSingleEmail(n.from, reportSubject, mail.NewEmail("", email), plain, htmlBody)

	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending report for job %s: %w", job.ID, err)
	}
	if response.StatusCode != 202 {
		return fmt.Errorf("sending report for job %s: status code %d", job.ID, response.StatusCode)
	}

	n.log.WithFields(logrus.Fields{"job_id": job.ID, "status": job.Status}).Info("Report e-mail sent")
	return nil
}

// renderReport returns the plain-text and HTML bodies for a finished job.
func renderReport(job *model.LineCountJob) (string, string) {
	var plain, rich strings.Builder

	if job.Status != model.JobStatusCompleted || job.Result == nil {
		reason := "unknown error"
		if job.Error != nil {
			reason = *job.Error
		}
		fmt.Fprintf(&plain, "Your line count request %s failed: %s\n", job.ID, reason)
		fmt.Fprintf(&rich, "<p>Your line count request <code>%s</code> failed:</p><p>%s</p>",
			html.EscapeString(job.ID), html.EscapeString(reason))
		return plain.String(), rich.String()
	}

	res := job.Result
	fmt.Fprintf(&plain, "%d lines written across %d files in %d repositories.\n\n",
		res.TotalLines, res.FilesProcessed, res.RepositoriesProcessed)
	fmt.Fprintf(&rich, "<h3>%d lines written</h3><p>%d files in %d repositories.</p>",
		res.TotalLines, res.FilesProcessed, res.RepositoriesProcessed)

	repos := make([]model.RepositorySummary, len(res.Repositories))
	copy(repos, res.Repositories)
	sort.SliceStable(repos, func(i, j int) bool { return repos[i].TotalLines > repos[j].TotalLines })

	if len(repos) > 0 {
		rich.WriteString("<ul>")
		for _, r := range repos {
			fmt.Fprintf(&plain, "  %s: %d lines\n", r.Repository, r.TotalLines)
			fmt.Fprintf(&rich, "<li>%s: %d lines</li>", html.EscapeString(r.Repository), r.TotalLines)
		}
		rich.WriteString("</ul>")
	}
	return plain.String(), rich.String()
}
