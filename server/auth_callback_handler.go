package server

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-familygraph/oauth2"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// CallbackHandler captures the redirect. The handler does not interpret the
// parameters beyond choosing which page to show; the waiting flow decides
// what the redirect means.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.Form merges query params and POST form data (form_post response mode)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed redirect", http.StatusBadRequest)
			return
		}

		// Fragments never reach the server: hand the browser a page that
		// replays the fragment as a query string, or comes back with
		// ParamRelay alone when there was nothing after the #.
		if len(r.Form) == 0 {
			s.render(w, http.StatusOK, s.relay, pageData{AppName: s.appName, RelayParam: ParamRelay})
			return
		}

		redirect := s.requestURL(r)
		params := oauth2.ParseRedirect(redirect)
		if !s.putResult(Result{URL: redirect}) {
			log.Warn().Str("path", r.URL.Path).Msg("[server CallbackHandler] redirect after result was delivered, ignoring")
		}

		if params.IsError() {
			code := params.Error
			if code == "" {
				code = params.ErrorCode
			}
			desc := params.ErrorDescription
			if desc == "" {
				desc = params.ErrorMessage
			}
			s.render(w, http.StatusOK, s.failed, pageData{
				AppName:     s.appName,
				Message:     "Sign in did not complete.",
				Code:        code,
				Description: desc,
			})
			return
		}
		s.render(w, http.StatusOK, s.complete, pageData{AppName: s.appName, Message: "Done."})
	}
}

// CancelHandler records a dismissed dialog.
func (s *Server) CancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.putResult(Result{URL: s.requestURL(r), Cancelled: true})
		s.render(w, http.StatusOK, s.complete, pageData{AppName: s.appName, Message: "Cancelled."})
	}
}

// requestURL rebuilds the URL the browser was sent to, with POSTed fields
// folded into the query and the relay marker removed.
func (s *Server) requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Scheme = "http"
	u.Host = r.Host
	if r.Method == http.MethodPost {
		u.RawQuery = r.Form.Encode()
	}
	if q := u.Query(); q.Has(ParamRelay) {
		q.Del(ParamRelay)
		u.RawQuery = q.Encode()
	}
	return &u
}

func (s *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_ = tmpl.Execute(w, data)
}
