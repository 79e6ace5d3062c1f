// Package mail renders and delivers the account lifecycle emails.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type Template string

const (
	TemplateVerifyEmail       Template = "verify-email"
	TemplateAlreadyRegistered Template = "already-registered"
	TemplatePasswordReset     Template = "password-reset"
)

var ErrUnknownTemplate = errors.New("unknown mail template")

// Message is a templated email. Values feed the template; Origin, when set,
// turns tokens into links back to the client application.
type Message struct {
	To       string
	Template Template
	Values   map[string]string
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type templateSet struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var templates = map[Template]templateSet{
	TemplateVerifyEmail: {
		subject: "Sign-up Verification API - Verify Email",
		text: texttemplate.Must(texttemplate.New("verify-text").Parse(
			`Thanks for registering!
{{if .Origin}}Please open the link below to verify your email address:
{{.Origin}}/account/verify-email?token={{.Token}}
{{else}}Please use the token below to verify your email address with the /accounts/verify-email api route:
{{.Token}}
{{end}}`)),
		html: htmltemplate.Must(htmltemplate.New("verify-html").Parse(
			`<h4>Verify Email</h4>
<p>Thanks for registering!</p>
{{if .Origin}}<p>Please click the below link to verify your email address:</p>
<p><a href="{{.Origin}}/account/verify-email?token={{.Token}}">{{.Origin}}/account/verify-email?token={{.Token}}</a></p>
{{else}}<p>Please use the below token to verify your email address with the <code>/accounts/verify-email</code> api route:</p>
<p><code>{{.Token}}</code></p>
{{end}}`)),
	},
	TemplateAlreadyRegistered: {
		subject: "Sign-up Verification API - Email Already Registered",
		text: texttemplate.Must(texttemplate.New("registered-text").Parse(
			`Your email {{.Email}} is already registered.
{{if .Origin}}If you don't know your password please visit {{.Origin}}/account/forgot-password
{{else}}If you don't know your password you can reset it via the /accounts/forgot-password api route.
{{end}}`)),
		html: htmltemplate.Must(htmltemplate.New("registered-html").Parse(
			`<h4>Email Already Registered</h4>
<p>Your email <strong>{{.Email}}</strong> is already registered.</p>
{{if .Origin}}<p>If you don't know your password please visit the <a href="{{.Origin}}/account/forgot-password">forgot password</a> page.</p>
{{else}}<p>If you don't know your password you can reset it via the <code>/accounts/forgot-password</code> api route.</p>
{{end}}`)),
	},
	TemplatePasswordReset: {
		subject: "Sign-up Verification API - Reset Password",
		text: texttemplate.Must(texttemplate.New("reset-text").Parse(
			`{{if .Origin}}Please open the link below to reset your password, the link will be valid for 1 day:
{{.Origin}}/account/reset-password?token={{.Token}}
{{else}}Please use the token below to reset your password with the /accounts/reset-password api route:
{{.Token}}
{{end}}`)),
		html: htmltemplate.Must(htmltemplate.New("reset-html").Parse(
			`<h4>Reset Password Email</h4>
{{if .Origin}}<p>Please click the below link to reset your password, the link will be valid for 1 day:</p>
<p><a href="{{.Origin}}/account/reset-password?token={{.Token}}">{{.Origin}}/account/reset-password?token={{.Token}}</a></p>
{{else}}<p>Please use the below token to reset your password with the <code>/accounts/reset-password</code> api route:</p>
<p><code>{{.Token}}</code></p>
{{end}}`)),
	},
}

func Render(msg Message) (Rendered, error) {
	set, ok := templates[msg.Template]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, msg.Template)
	}
	values := msg.Values
	if values == nil {
		values = map[string]string{}
	}
	var text, html bytes.Buffer
	if err := set.text.Execute(&text, values); err != nil {
		return Rendered{}, fmt.Errorf("render %s text: %w", msg.Template, err)
	}
	if err := set.html.Execute(&html, values); err != nil {
		return Rendered{}, fmt.Errorf("render %s html: %w", msg.Template, err)
	}
	return Rendered{Subject: set.subject, Text: text.String(), HTML: html.String()}, nil
}
