package server

import (
	"html/template"
	"log"
	"net/http"

	"github.com/courseflow/courseflow/internal/httputil"
)

type pageData struct {
	Nonce string
	From  string
}

func renderPage(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data pageData) {
	data.Nonce = httputil.NonceFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("failed to render %s page: %v", tmpl.Name(), err)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	// Only same-site destinations survive the login round trip.
	if from == "" || from[0] != '/' {
		from = "/today"
	}
	renderPage(w, r, loginPageTemplate, pageData{From: from})
}

func (s *Server) handleCoursesPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, coursesPageTemplate, pageData{})
}

func (s *Server) handleTodayPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, todayPageTemplate, pageData{})
}

var pageStyles = `
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #0f172a;
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            min-height: 100vh;
        }
        main { max-width: 960px; margin: 0 auto; padding: 2rem 1rem; }
        h1 { font-size: 1.5rem; margin-bottom: 1rem; }
`

var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Courseflow</title>
    <style nonce="{{.Nonce}}">` + pageStyles + `
        main { max-width: 360px; }
        form { display: flex; flex-direction: column; gap: 0.75rem; }
        input {
            padding: 0.625rem 0.75rem;
            border-radius: 6px;
            border: 1px solid #334155;
            background: #1e293b;
            color: #fff;
        }
        button {
            background: #22c55e;
            color: #fff;
            padding: 0.625rem 1rem;
            border: none;
            border-radius: 6px;
            font-weight: 600;
            cursor: pointer;
        }
        .error { color: #ef4444; font-size: 0.875rem; display: none; }
    </style>
</head>
<body>
    <main>
        <h1>Connexion</h1>
        <p class="error" id="error-msg"></p>
        <form id="login-form">
            <input type="email" id="email" placeholder="Email" required autofocus>
            <input type="password" id="password" placeholder="Mot de passe" required>
            <button type="submit">Se connecter</button>
        </form>
    </main>
    <script nonce="{{.Nonce}}">
        document.getElementById('login-form').addEventListener('submit', function(e) {
            e.preventDefault();
            var errEl = document.getElementById('error-msg');
            errEl.style.display = 'none';
            fetch('/api/auth/login', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({
                    email: document.getElementById('email').value,
                    password: document.getElementById('password').value
                })
            }).then(function(r) { return r.json().then(function(body) { return {ok: r.ok, body: body}; }); })
            .then(function(res) {
                if (res.ok) {
                    sessionStorage.setItem('access_token', res.body.accessToken);
                    document.cookie = 'access_token=' + res.body.accessToken + '; path=/; samesite=lax';
                    window.location.href = {{.From}};
                } else {
                    errEl.textContent = res.body.error;
                    errEl.style.display = 'block';
                }
            });
        });
    </script>
</body>
</html>`))

var coursesPageTemplate = template.Must(template.New("courses").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Cours — Courseflow</title>
    <style nonce="{{.Nonce}}">` + pageStyles + `
        .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); gap: 1rem; }
        .card { background: #1e293b; border-radius: 8px; overflow: hidden; }
        .card img { width: 100%; aspect-ratio: 16/9; object-fit: cover; }
        .card .body { padding: 0.75rem; }
        .card .lock { color: #f59e0b; font-size: 0.75rem; }
    </style>
</head>
<body>
    <main>
        <h1>Cours</h1>
        <div class="grid" id="course-grid"></div>
    </main>
    <script nonce="{{.Nonce}}">
        fetch('/api/courses', {
            headers: {'Authorization': 'Bearer ' + sessionStorage.getItem('access_token')}
        }).then(function(r) { return r.json(); }).then(function(courses) {
            var grid = document.getElementById('course-grid');
            courses.forEach(function(c) {
                var card = document.createElement('div');
                card.className = 'card';
                var body = document.createElement('div');
                body.className = 'body';
                if (c.thumbnailUrl) {
                    var img = document.createElement('img');
                    img.src = c.thumbnailUrl;
                    card.appendChild(img);
                }
                var title = document.createElement('div');
                title.textContent = c.title;
                body.appendChild(title);
                if (c.affordance === 'lock') {
                    var lock = document.createElement('div');
                    lock.className = 'lock';
                    lock.textContent = 'Réservé aux abonnés';
                    body.appendChild(lock);
                } else {
                    card.addEventListener('click', function() {
                        window.location.href = '/embed/' + c.id;
                    });
                }
                card.appendChild(body);
                grid.appendChild(card);
            });
        });
    </script>
</body>
</html>`))

var todayPageTemplate = template.Must(template.New("today").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Aujourd'hui — Courseflow</title>
    <style nonce="{{.Nonce}}">` + pageStyles + `
        .player { aspect-ratio: 16/9; background: #000; border-radius: 8px; overflow: hidden; }
        .player iframe { width: 100%; height: 100%; border: 0; }
    </style>
</head>
<body>
    <main>
        <h1>Aujourd'hui</h1>
        <div class="player" id="today-player"></div>
    </main>
    <script nonce="{{.Nonce}}">
        fetch('/api/courses', {
            headers: {'Authorization': 'Bearer ' + sessionStorage.getItem('access_token')}
        }).then(function(r) { return r.json(); }).then(function(courses) {
            var playable = courses.filter(function(c) { return c.affordance === 'play'; });
            if (!playable.length) { return; }
            var frame = document.createElement('iframe');
            frame.src = '/embed/' + playable[0].id;
            frame.allow = 'autoplay; fullscreen';
            document.getElementById('today-player').appendChild(frame);
        });
    </script>
</body>
</html>`))
