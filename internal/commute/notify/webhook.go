package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-resty/resty/v2"

	commuteapp "campus-pulse/internal/commute/application"
)

// DefaultTemplate renders a sync report as plain text.
const DefaultTemplate = `[Commute Sync]
Anchor: {{.Anchor}}
Run: {{.RunID}}
Updated: {{.Updated}}/{{.Total}}
Finished: {{.Finished}}
{{- range .Errors}}
- {{.Place}}: {{.Error}}{{if .Detail}} ({{.Detail}}){{end}}
{{- end}}`

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

type templateData struct {
	Anchor   string
	RunID    string
	Updated  int
	Total    int
	Finished string
	Errors   []errorLine
}

type errorLine struct {
	Place  string
	Error  string
	Detail string
}

// WebhookNotifier posts sync reports to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	tpl    *template.Template
}

// NewWebhookNotifier constructs a notifier. An empty tpl uses DefaultTemplate.
func NewWebhookNotifier(url, tpl string) (*WebhookNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("commute-sync").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &WebhookNotifier{
		url:    url,
		client: resty.New().SetTimeout(10 * time.Second),
		tpl:    parsed,
	}, nil
}

// NotifySync implements commuteapp.Notifier.
func (n *WebhookNotifier) NotifySync(ctx context.Context, report commuteapp.Report) error {
	content, err := n.Render(report)
	if err != nil {
		return err
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookPayload{MsgType: "text", Text: webhookText{Content: content}}).
		Post(n.url)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook notifier: status %d", resp.StatusCode())
	}
	return nil
}

// Render produces the message body for a report.
func (n *WebhookNotifier) Render(report commuteapp.Report) (string, error) {
	anchor := report.Anchor
	if anchor == "" {
		anchor = report.AnchorID
	}
	data := templateData{
		Anchor:   anchor,
		RunID:    report.RunID,
		Updated:  report.Result.Updated,
		Total:    report.Result.TotalPlaces,
		Finished: report.Finished.UTC().Format(time.RFC3339),
	}
	for _, failure := range report.Result.Errors {
		data.Errors = append(data.Errors, errorLine{Place: failure.Place, Error: failure.Error, Detail: failure.Detail})
	}
	var buf bytes.Buffer
	if err := n.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
