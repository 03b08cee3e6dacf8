package auth

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"

	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/templates/helpers"
	"finitefield.org/tutor-admin/internal/admin/templates/layouts"
	"finitefield.org/tutor-admin/internal/admin/view"
)

const (
	viewElementID       = "login-view"
	validationElementID = "login-validation"
	submitElementID     = "login-submit"
	// ViewField carries the view activation id in every login form post.
	ViewField = "view"
)

// Page renders the full login document.
func Page(data LoginPageData) templ.Component {
	return layouts.Base(data.View.TitleKey, Form(data))
}

// Form renders the swappable login view fragment.
func Form(data LoginPageData) templ.Component {
	return view.NodeFunc(func(ctx context.Context) g.Node {
		r := data.View
		return h.Div(
			h.ID(viewElementID),
			h.Class("box login-view"),
			g.Attr("data-mode", r.Mode.String()),
			g.Attr("data-phase", r.Phase.String()),
			h.H1(h.Class("title"), g.Text(helpers.T(ctx, r.TitleKey))),
			g.If(data.Message != "", h.Div(
				h.Class("notification is-info is-light"),
				g.Attr("data-login-message", ""),
				g.Text(data.Message),
			)),
			g.If(r.Error != "", h.Div(
				h.Class("notification is-danger is-light"),
				g.Attr("role", "alert"),
				g.Attr("data-login-error", ""),
				g.Text(r.Error),
			)),
			h.Form(
				h.Method("post"),
				h.Action(data.Action),
				hx.Post(data.Action),
				hx.Target("#"+viewElementID),
				hx.Swap("outerHTML"),
				g.Attr("novalidate", ""),
				h.Input(h.Type("hidden"), h.Name(middleware.CSRFFormField), h.Value(data.CSRFToken)),
				h.Input(h.Type("hidden"), h.Name(ViewField), h.Value(data.ViewID)),
				emailField(ctx, data),
				passwordField(ctx, data),
				validationBlock(data),
				h.Div(
					h.Class("field is-grouped is-grouped-right"),
					submitButton(ctx, r, false),
				),
			),
			g.If(r.Loading, statusPoller(ctx, data)),
			g.If(r.ForgotPasswordPath != "", h.P(
				h.Class("has-text-right is-size-7"),
				h.A(
					h.Href(r.ForgotPasswordPath),
					g.Attr("data-forgot-password", ""),
					g.Text(helpers.T(ctx, "Login.forgotPassword")),
				),
			)),
		)
	})
}

// Validation renders the keystroke validation response: the field messages
// plus the submit button swapped out of band.
func Validation(data LoginPageData) templ.Component {
	return view.NodeFunc(func(ctx context.Context) g.Node {
		return g.Group{
			validationBlock(data),
			submitButton(ctx, data.View, true),
		}
	})
}

func emailField(ctx context.Context, data LoginPageData) g.Node {
	return h.Div(
		h.Class("field"),
		h.Label(h.Class("label"), g.Attr("for", "login-email"), g.Text(helpers.T(ctx, "Login.email"))),
		h.Div(
			h.Class("control"),
			h.Input(
				h.ID("login-email"),
				h.Class("input"),
				h.Type("email"),
				h.Name("email"),
				h.Value(data.View.Email),
				g.Attr("autocomplete", "username"),
				h.Required(),
				validateTrigger(data),
			),
		),
	)
}

func passwordField(ctx context.Context, data LoginPageData) g.Node {
	labelKey := "Login.password"
	autocomplete := "current-password"
	if data.View.Mode == login.ModeSetNewPassword {
		labelKey = "Login.newPassword"
		autocomplete = "new-password"
	}
	return h.Div(
		h.Class("field"),
		h.Label(h.Class("label"), g.Attr("for", "login-password"), g.Text(helpers.T(ctx, labelKey))),
		h.Div(
			h.Class("control"),
			h.Input(
				h.ID("login-password"),
				h.Class("input"),
				h.Type("password"),
				h.Name("password"),
				g.Attr("autocomplete", autocomplete),
				h.Required(),
				g.If(data.MinLength > 0 && data.View.Mode == login.ModeSetNewPassword,
					g.Attr("minlength", strconv.Itoa(data.MinLength))),
				validateTrigger(data),
			),
		),
	)
}

// validateTrigger posts keystrokes for server-side validation. Only the
// set-new-password mode gates submission on validation.
func validateTrigger(data LoginPageData) g.Node {
	if !data.View.ShowValidation || data.ValidatePath == "" {
		return nil
	}
	return g.Group{
		hx.Post(data.ValidatePath),
		hx.Trigger("input changed delay:250ms"),
		hx.Target("#" + validationElementID),
		hx.Swap("outerHTML"),
	}
}

func validationBlock(data LoginPageData) g.Node {
	r := data.View
	var messages []g.Node
	if r.ShowValidation {
		for _, field := range []struct {
			name   string
			result login.FieldResult
		}{
			{"email", r.Validation.Email},
			{"password", r.Validation.Password},
		} {
			if field.result.Valid {
				continue
			}
			messages = append(messages, h.P(
				h.Class("help is-danger"),
				g.Attr("data-field-error", field.name),
				g.Text(field.result.Message),
			))
		}
	}
	return h.Div(
		h.ID(validationElementID),
		g.Attr("aria-live", "polite"),
		g.Group(messages),
	)
}

func submitButton(ctx context.Context, r login.Render, oob bool) g.Node {
	label := helpers.T(ctx, r.SubmitKey)
	class := "button is-primary"
	if r.Loading {
		label = helpers.T(ctx, "Login.loading")
		class += " is-loading"
	}
	return h.Button(
		h.ID(submitElementID),
		h.Type("submit"),
		h.Class(class),
		g.If(r.SubmitDisabled, h.Disabled()),
		g.If(oob, hx.SwapOOB("true")),
		g.Text(label),
	)
}

func statusPoller(ctx context.Context, data LoginPageData) g.Node {
	if data.StatusPath == "" {
		return nil
	}
	target := data.StatusPath + "?" + url.Values{ViewField: {data.ViewID}}.Encode()
	return h.Div(
		g.Attr("data-login-status", ""),
		hx.Get(target),
		hx.Trigger("every 1s"),
		hx.Target("#"+viewElementID),
		hx.Swap("outerHTML"),
		h.Span(h.Class("is-size-7"), g.Text(helpers.T(ctx, "Login.loading"))),
	)
}
