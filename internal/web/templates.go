package web

import (
	"fmt"
	"html/template"
	"net/http"
)

const layoutTmpl = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:28rem;margin:3rem auto;padding:0 1rem}
form{display:flex;flex-direction:column;gap:.6rem}
input,button{padding:.5rem;font-size:1rem}
.err{color:#b00020}.ok{color:#1b5e20}nav a{margin-right:.8rem}
</style>
</head>
<body>
<nav><a href="/">Home</a>{{if .LoggedIn}}<a href="/dashboard">Dashboard</a><a href="/profile">Profile</a>{{else}}<a href="/login">Log in</a><a href="/signup">Sign up</a>{{end}}</nav>
<h1>{{.Heading}}</h1>
{{if .Notice}}<p class="ok">{{.Notice}}</p>{{end}}
{{if .Error}}<p class="err">{{.Error}}</p>{{end}}
{{template "content" .}}
</body>
</html>`

const submitScript = `<script>
async function submitJSON(formID, url, redirect) {
  const form = document.getElementById(formID);
  form.addEventListener("submit", async (e) => {
    e.preventDefault();
    const body = Object.fromEntries(new FormData(form).entries());
    const res = await fetch(url, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body),
    });
    const data = await res.json().catch(() => ({}));
    if (res.ok && redirect) { window.location = redirect; return; }
    const out = document.getElementById("result");
    out.textContent = data.message || data.error || res.statusText;
    out.className = res.ok ? "ok" : "err";
  });
}
</script>`

var pageContents = map[string]string{
	"home": `{{define "content"}}<p>A small home for your account.</p>{{end}}`,

	"login": `{{define "content"}}
<form id="f">
<input name="email" type="email" placeholder="Email" required>
<input name="password" type="password" placeholder="Password" required>
<button>Log in</button>
</form>
<p id="result"></p>
<p><a href="/forgot-password">Forgot password?</a> &middot; <a href="/resend-verification">Resend verification</a></p>
<p><a href="/v1/auth/google/start">Continue with Google</a></p>
` + submitScript + `<script>submitJSON("f", "/v1/auth/login", {{.CallbackURL}});</script>{{end}}`,

	"signup": `{{define "content"}}
<form id="f">
<input name="name" placeholder="Name" required>
<input name="email" type="email" placeholder="Email" required>
<input name="password" type="password" placeholder="Password" required>
<button>Create account</button>
</form>
<p id="result"></p>
` + submitScript + `<script>submitJSON("f", "/v1/auth/signup", "");</script>{{end}}`,

	"forgot": `{{define "content"}}
<form id="f">
<input name="email" type="email" placeholder="Email" required>
<button>Send reset link</button>
</form>
<p id="result"></p>
` + submitScript + `<script>submitJSON("f", "/v1/auth/forgot-password", "");</script>{{end}}`,

	"resend": `{{define "content"}}
<form id="f">
<input name="email" type="email" placeholder="Email" required>
<button>Resend verification link</button>
</form>
<p id="result"></p>
` + submitScript + `<script>submitJSON("f", "/v1/auth/resend-verification", "");</script>{{end}}`,

	"reset": `{{define "content"}}
<form id="f">
<input name="token" type="hidden" value="{{.Token}}">
<input name="password" type="password" placeholder="New password" required>
<button>Reset password</button>
</form>
<p id="result"></p>
` + submitScript + `<script>submitJSON("f", "/v1/auth/reset-password", "");</script>{{end}}`,

	"verify": `{{define "content"}}
<p id="result">Verifying&hellip;</p>
<script>
fetch("/v1/auth/verify-email", {
  method: "POST",
  headers: {"Content-Type": "application/json"},
  body: JSON.stringify({token: {{.Token}}}),
}).then(async (res) => {
  const data = await res.json().catch(() => ({}));
  const out = document.getElementById("result");
  out.textContent = data.message || data.error || res.statusText;
  out.className = res.ok ? "ok" : "err";
});
</script>{{end}}`,

	"dashboard": `{{define "content"}}
<p>Signed in as <strong>{{.UserName}}</strong> ({{.UserEmail}}).</p>
<form id="f"><button>Log out</button></form>
` + submitScript + `<script>submitJSON("f", "/v1/auth/logout", "/login");</script>{{end}}`,

	"profile": `{{define "content"}}
<h2>Edit name</h2>
<form id="name-form">
<input name="name" value="{{.UserName}}" required>
<button>Save</button>
</form>
<h2>Change password</h2>
<form id="pw-form">
<input name="current_password" type="password" placeholder="Current password" required>
<input name="new_password" type="password" placeholder="New password" required>
<button>Change password</button>
</form>
<p id="result"></p>
<script>
async function patchJSON(formID, url, method) {
  const form = document.getElementById(formID);
  form.addEventListener("submit", async (e) => {
    e.preventDefault();
    const body = Object.fromEntries(new FormData(form).entries());
    const res = await fetch(url, {
      method: method,
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body),
    });
    const data = await res.json().catch(() => ({}));
    const out = document.getElementById("result");
    out.textContent = data.message || data.error || res.statusText;
    out.className = res.ok ? "ok" : "err";
  });
}
patchJSON("name-form", "/v1/users/me", "PATCH");
patchJSON("pw-form", "/v1/auth/change-password", "POST");
</script>{{end}}`,
}

type templates struct {
	pages map[string]*template.Template
}

type viewData struct {
	Title       string
	Heading     string
	Notice      string
	Error       string
	LoggedIn    bool
	UserName    string
	UserEmail   string
	Token       string
	CallbackURL string
}

func parseTemplates() (*templates, error) {
	t := &templates{pages: make(map[string]*template.Template, len(pageContents))}
	for name, content := range pageContents {
		tmpl, err := template.New("layout").Parse(layoutTmpl)
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := tmpl.Parse(content); err != nil {
			return nil, fmt.Errorf("parse %s page: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

func (t *templates) render(w http.ResponseWriter, status int, page string, data viewData) {
	tmpl, ok := t.pages[page]
	if !ok {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = tmpl.Execute(w, data)
}
