package handlers

import (
	"bytes"
	"coldcall-api/internal/logger"
	"coldcall-api/internal/middleware"
	"coldcall-api/internal/models"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// UIHandler serves the server rendered search form and results table.
type UIHandler struct {
	outreach Outreach
	tmpl     *template.Template
}

func NewUIHandler(outreach Outreach) *UIHandler {
	return &UIHandler{
		outreach: outreach,
		tmpl:     template.Must(template.New("page").Funcs(pageFuncs).Parse(pageTemplate)),
	}
}

type pageData struct {
	Session    models.Session
	Usage      models.Decision
	Presets    []string
	Form       models.SearchParams
	Notice     string
	Error      string
	DemoSearch bool
	DemoScript bool
}

func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, h.page(identity))
}

func (h *UIHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, identity, http.StatusBadRequest, "Could not read the form.")
		return
	}

	params := searchParamsFromForm(r)
	result, err := h.outreach.Search(r.Context(), identity, params)

	data := h.page(identity)
	data.Form = params
	middleware.SetRateLimitHeaders(w, data.Usage)
	if err != nil {
		data.Error = userMessage(err)
		h.render(w, statusFor(err), data)
		return
	}

	switch {
	case result.Shown == 0:
		data.Notice = "No businesses found. Try a different category or a larger radius."
	case result.Truncated:
		data.Notice = "Showing " + strconv.Itoa(result.Shown) + " of " + strconv.Itoa(result.Total) +
			" businesses. Your daily contact limit has been reached."
	default:
		data.Notice = "Found " + strconv.Itoa(result.Shown) + " businesses."
	}
	h.render(w, http.StatusOK, data)
}

func (h *UIHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, identity, http.StatusBadRequest, "Could not read the form.")
		return
	}

	description := r.PostFormValue("description")
	if strings.TrimSpace(description) == "" {
		description = r.PostFormValue("preset")
	}
	if _, err := h.outreach.SetServiceDescription(identity, description); err != nil {
		h.renderError(w, identity, statusFor(err), userMessage(err))
		return
	}

	data := h.page(identity)
	data.Notice = "Service description saved."
	h.render(w, http.StatusOK, data)
}

func (h *UIHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	row, err := h.outreach.GenerateScript(r.Context(), identity, chi.URLParam(r, "placeID"))
	if err != nil {
		h.renderError(w, identity, statusFor(err), userMessage(err))
		return
	}

	data := h.page(identity)
	data.Notice = "Script ready for " + row.Business.Name + "."
	h.render(w, http.StatusOK, data)
}

func (h *UIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}
	h.outreach.ClearResults(identity)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UIHandler) page(identity string) pageData {
	demoSearch, demoScripts := h.outreach.DemoMode()
	sess := h.outreach.Session(identity)
	return pageData{
		Session:    sess,
		Usage:      h.outreach.Usage(identity),
		Presets:    models.ServicePresets,
		Form:       models.SearchParams{Category: sess.LastCategory, RadiusKm: 5},
		DemoSearch: demoSearch,
		DemoScript: demoScripts,
	}
}

func (h *UIHandler) renderError(w http.ResponseWriter, identity string, status int, message string) {
	data := h.page(identity)
	data.Error = message
	h.render(w, status, data)
}

func (h *UIHandler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		logger.LogEvent(logrus.ErrorLevel, "Failed to render page", logrus.Fields{"error": err.Error()})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func searchParamsFromForm(r *http.Request) models.SearchParams {
	radius, _ := strconv.Atoi(r.PostFormValue("radius_km"))
	minRating, _ := strconv.ParseFloat(r.PostFormValue("min_rating"), 64)
	return models.SearchParams{
		Location: r.PostFormValue("location"),
		Category: r.PostFormValue("category"),
		RadiusKm: radius,
		Filters: models.SearchFilters{
			MinRating:       minRating,
			RequireWebsite:  formBool(r, "require_website"),
			LiveWebsiteOnly: formBool(r, "live_only"),
		},
		VerifyWebsites: formBool(r, "verify_websites"),
	}
}

func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.PostFormValue(key)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

var pageFuncs = template.FuncMap{
	"rating": func(v float64) string {
		if v <= 0 {
			return "N/A"
		}
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
	"telHref": func(phone string) template.URL {
		var b strings.Builder
		for _, c := range phone {
			if (c >= '0' && c <= '9') || c == '+' {
				b.WriteRune(c)
			}
		}
		return template.URL("tel:" + b.String())
	},
}

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Cold Calling Assistant</title>
  <style>
    body { margin: 0; padding: 32px; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; color: #1a1f36; background: #f7f9fc; }
    main { max-width: 1100px; margin: 0 auto; }
    section { background: #fff; border-radius: 8px; padding: 20px 24px; margin-bottom: 20px; box-shadow: 0 2px 5px rgba(0,0,0,0.04); }
    label { display: block; font-size: 12px; font-weight: 600; color: #8792a2; text-transform: uppercase; margin: 10px 0 4px; }
    input[type=text], input[type=number], select, textarea { width: 100%; padding: 8px; border: 1px solid #d8dee8; border-radius: 6px; box-sizing: border-box; }
    .row { display: flex; gap: 16px; }
    .row > div { flex: 1; }
    .notice { background: #ecfdf5; color: #065f46; padding: 10px 14px; border-radius: 6px; }
    .error { background: #fef2f2; color: #991b1b; padding: 10px 14px; border-radius: 6px; }
    .demo { background: #fffbeb; color: #92400e; padding: 10px 14px; border-radius: 6px; }
    table { width: 100%; border-collapse: collapse; font-size: 14px; }
    th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eef1f5; vertical-align: top; }
    .live { color: #047857; } .unreachable { color: #b91c1c; } .unchecked { color: #8792a2; }
    pre { white-space: pre-wrap; font-family: inherit; background: #f7f9fc; padding: 8px; border-radius: 6px; }
    button { background: #10b981; color: #fff; border: 0; padding: 8px 14px; border-radius: 6px; cursor: pointer; }
  </style>
</head>
<body>
<main>
  <h1>Cold Calling Assistant</h1>
  <p>Contacts used today: {{.Usage.Count}} / {{.Usage.Limit}} ({{.Usage.Remaining}} left)</p>
  {{if .DemoSearch}}<p class="demo">Demo mode: business search returns sample data.</p>{{end}}
  {{if .DemoScript}}<p class="demo">Demo mode: scripts use a fixed template.</p>{{end}}
  {{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}

  <section>
    <h2>Your service</h2>
    <form method="post" action="/service">
      <label for="preset">Preset</label>
      <select id="preset" name="preset">
        <option value="">Custom</option>
        {{range .Presets}}<option value="{{.}}">{{.}}</option>{{end}}
      </select>
      <label for="description">What do you offer?</label>
      <textarea id="description" name="description" rows="3">{{.Session.ServiceDescription}}</textarea>
      <p><button type="submit">Save</button></p>
    </form>
  </section>

  <section>
    <h2>Find businesses</h2>
    <form method="post" action="/search">
      <div class="row">
        <div><label for="location">Location</label><input id="location" type="text" name="location" value="{{.Form.Location}}" placeholder="Austin, TX" required /></div>
        <div><label for="category">Business type</label><input id="category" type="text" name="category" value="{{.Form.Category}}" placeholder="plumber" required /></div>
      </div>
      <div class="row">
        <div><label for="radius_km">Radius (km, 1-50)</label><input id="radius_km" type="number" name="radius_km" min="1" max="50" value="{{.Form.RadiusKm}}" /></div>
        <div><label for="min_rating">Minimum rating</label><input id="min_rating" type="number" name="min_rating" min="0" max="5" step="0.1" value="{{.Form.Filters.MinRating}}" /></div>
      </div>
      <p>
        <label><input type="checkbox" name="require_website" {{if .Form.Filters.RequireWebsite}}checked{{end}} /> Has website</label>
        <label><input type="checkbox" name="live_only" {{if .Form.Filters.LiveWebsiteOnly}}checked{{end}} /> Live website only</label>
        <label><input type="checkbox" name="verify_websites" {{if .Form.VerifyWebsites}}checked{{end}} /> Check websites</label>
      </p>
      <p><button type="submit">Search</button></p>
    </form>
  </section>

  {{if .Session.Results}}
  <section>
    <h2>Results</h2>
    <p><a href="/export.csv">Download CSV</a></p>
    <form method="post" action="/clear"><button type="submit">Clear results</button></form>
    <table>
      <thead><tr><th>Name</th><th>Address</th><th>Phone</th><th>Rating</th><th>Website</th><th>Script</th></tr></thead>
      <tbody>
      {{range .Session.Results}}
        <tr>
          <td>{{.Business.Name}}<br /><small>{{.Business.Category}}</small></td>
          <td>{{.Business.Address}}</td>
          <td>{{if .Business.Phone}}<a href="{{telHref .Business.Phone}}">{{.Business.Phone}}</a>{{end}}</td>
          <td>{{rating .Business.Rating}}{{if .Business.TotalRatings}} ({{.Business.TotalRatings}}){{end}}</td>
          <td>{{if .Business.Website}}<a href="{{.Business.Website}}" rel="noopener" target="_blank">site</a> <span class="{{.Website}}">{{.Website}}</span>{{end}}</td>
          <td>
            {{if .Script}}<pre>{{.Script}}</pre>{{else}}
            <form method="post" action="/scripts/{{.Business.PlaceID}}"><button type="submit">Generate script</button></form>
            {{end}}
          </td>
        </tr>
      {{end}}
      </tbody>
    </table>
  </section>
  {{end}}

  {{if .Session.History}}
  <section>
    <h2>Recent searches</h2>
    <ul>
      {{range .Session.History}}<li>{{.Category}} in {{.Location}} ({{.RadiusKm}} km) - {{.Count}} results, {{.Timestamp.Format "Jan 2 15:04"}}</li>{{end}}
    </ul>
  </section>
  {{end}}
</main>
</body>
</html>`
