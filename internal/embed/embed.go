package embed

import (
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/courseflow/courseflow/internal/database"
	"github.com/courseflow/courseflow/internal/httputil"
	"github.com/courseflow/courseflow/internal/subscription"
)

// SessionResolver extracts the authenticated user from a request, if any.
type SessionResolver func(r *http.Request) (string, bool)

// Handler serves the embeddable player pages and issues playback tokens.
// Pages are gated twice: a signed-in session is required to view anything,
// and premium lessons additionally require an active subscription.
type Handler struct {
	db      database.DBTX
	secret  []byte
	session SessionResolver
}

func NewHandler(db database.DBTX, jwtSecret string, session SessionResolver) *Handler {
	return &Handler{db: db, secret: []byte(jwtSecret), session: session}
}

type courseRow struct {
	Title     string
	VideoID   string
	IsPremium bool
}

func (h *Handler) lookupCourse(r *http.Request, courseID string) (*courseRow, error) {
	var row courseRow
	var playbackID *string
	err := h.db.QueryRow(r.Context(),
		`SELECT title, video_id, playback_id, is_premium FROM courses WHERE id = $1`,
		courseID,
	).Scan(&row.Title, &row.VideoID, &playbackID, &row.IsPremium)
	if err != nil {
		return nil, err
	}
	if playbackID != nil && *playbackID != "" {
		row.VideoID = *playbackID
	}
	return &row, nil
}

// Page renders the embed for one lesson. Anonymous viewers get a sign-in
// prompt, free-tier viewers get an upgrade prompt on premium lessons.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	nonce := httputil.NonceFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	course, err := h.lookupCourse(r, courseID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		if err := notFoundPageTemplate.Execute(w, gatePageData{Nonce: nonce}); err != nil {
			log.Printf("failed to render not found page: %v", err)
		}
		return
	}

	userID, ok := h.session(r)
	if !ok {
		if err := signInPageTemplate.Execute(w, gatePageData{Title: course.Title, Nonce: nonce}); err != nil {
			log.Printf("failed to render sign-in page: %v", err)
		}
		return
	}

	if course.IsPremium && !subscription.PremiumAccessFor(r, h.db, userID) {
		w.WriteHeader(http.StatusForbidden)
		if err := upgradePageTemplate.Execute(w, gatePageData{Title: course.Title, Nonce: nonce}); err != nil {
			log.Printf("failed to render upgrade page: %v", err)
		}
		return
	}

	token, err := GeneratePlaybackToken(h.secret, userID, courseID, course.VideoID)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := playerPageTemplate.Execute(w, playerPageData{
		Title:    course.Title,
		CourseID: courseID,
		VideoID:  course.VideoID,
		Token:    token,
		Nonce:    nonce,
	}); err != nil {
		log.Printf("failed to render embed page: %v", err)
	}
}

type tokenResponse struct {
	Token   string `json:"token"`
	VideoID string `json:"videoId"`
}

// Token issues a playback token for API clients embedding the player
// themselves.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	userID, ok := h.session(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	course, err := h.lookupCourse(r, courseID)
	if err != nil {
		if err == pgx.ErrNoRows {
			httputil.WriteError(w, http.StatusNotFound, "Course not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to fetch course")
		return
	}
	if course.IsPremium && !subscription.PremiumAccessFor(r, h.db, userID) {
		httputil.WriteError(w, http.StatusForbidden, "Subscription required")
		return
	}
	token, err := GeneratePlaybackToken(h.secret, userID, courseID, course.VideoID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to issue playback token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, VideoID: course.VideoID})
}

type gatePageData struct {
	Title string
	Nonce string
}

type playerPageData struct {
	Title    string
	CourseID string
	VideoID  string
	Token    string
	Nonce    string
}

var notFoundPageTemplate = template.Must(template.New("embed-notfound").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Leçon introuvable</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body { width: 100%; height: 100%; background: #0f172a; }
        body {
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            align-items: center;
            justify-content: center;
        }
        .container { text-align: center; padding: 2rem; }
        h1 { font-size: 1.25rem; margin-bottom: 0.5rem; }
        p { color: #94a3b8; font-size: 0.875rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Leçon introuvable</h1>
        <p>Cette leçon n'existe pas ou n'est plus disponible.</p>
    </div>
</body>
</html>`))

var signInPageTemplate = template.Must(template.New("embed-signin").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body { width: 100%; height: 100%; background: #0f172a; }
        body {
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            align-items: center;
            justify-content: center;
        }
        .container { text-align: center; padding: 2rem; max-width: 360px; }
        h1 { font-size: 1.25rem; margin-bottom: 0.5rem; }
        p { color: #94a3b8; margin-bottom: 1rem; font-size: 0.875rem; }
        a.button {
            display: inline-block;
            background: #22c55e;
            color: #fff;
            padding: 0.625rem 1.5rem;
            border-radius: 6px;
            font-size: 0.875rem;
            font-weight: 600;
            text-decoration: none;
        }
        a.button:hover { opacity: 0.9; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Connexion requise</h1>
        <p>Connectez-vous pour regarder « {{.Title}} ».</p>
        <a class="button" href="/" target="_top">Se connecter</a>
    </div>
</body>
</html>`))

var upgradePageTemplate = template.Must(template.New("embed-upgrade").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body { width: 100%; height: 100%; background: #0f172a; }
        body {
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            align-items: center;
            justify-content: center;
        }
        .container { text-align: center; padding: 2rem; max-width: 360px; }
        h1 { font-size: 1.25rem; margin-bottom: 0.5rem; }
        p { color: #94a3b8; margin-bottom: 1rem; font-size: 0.875rem; }
        a.button {
            display: inline-block;
            background: #f59e0b;
            color: #fff;
            padding: 0.625rem 1.5rem;
            border-radius: 6px;
            font-size: 0.875rem;
            font-weight: 600;
            text-decoration: none;
        }
        a.button:hover { opacity: 0.9; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Contenu premium</h1>
        <p>« {{.Title}} » est réservé aux abonnés.</p>
        <a class="button" href="/courses" target="_top">Voir les abonnements</a>
    </div>
</body>
</html>`))

var playerPageTemplate = template.Must(template.New("embed-player").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body { width: 100%; height: 100%; overflow: hidden; background: #000; }
        #player-host { width: 100%; height: 100%; }
    </style>
</head>
<body>
    <div id="player-host" data-video-id="{{.VideoID}}" data-course-id="{{.CourseID}}" data-token="{{.Token}}"></div>
    <script nonce="{{.Nonce}}">
        (function() {
            var host = document.getElementById('player-host');
            var headers = {
                'Content-Type': 'application/json',
                'Authorization': 'Bearer ' + host.dataset.token
            };
            fetch('/api/player/sessions', {
                method: 'POST',
                headers: headers,
                body: JSON.stringify({videoId: host.dataset.videoId})
            }).then(function(r) { return r.json(); }).then(function(session) {
                var base = '/api/player/sessions/' + session.id;
                window.addEventListener('message', function(e) {
                    if (!e.data || !e.data.type) { return; }
                    fetch(base + '/events', {method: 'POST', headers: headers, body: JSON.stringify(e.data)});
                });
                setInterval(function() {
                    fetch(base + '/commands', {headers: headers})
                        .then(function(r) { return r.json(); })
                        .then(function(body) {
                            (body.commands || []).forEach(function(cmd) {
                                host.dispatchEvent(new CustomEvent('player-command', {detail: cmd}));
                            });
                        });
                }, 1000);
            });
        })();
    </script>
</body>
</html>`))
